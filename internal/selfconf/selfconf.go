// Package selfconf implements the reserved `self` configuration, which
// sets up confctl's own directories and persists the machine identity.
package selfconf

import (
	"fmt"
	"os"

	"confctl/internal/identity"
	"confctl/internal/logger"
)

// Name is the reserved configuration name for self-configuration. It is
// never discovered from the user-configs directory.
const Name = "self"

// Run performs self-configuration: it ensures the confctl directory tree
// exists and (re)writes the persisted machine identity. This is the only
// path that writes the identity file after initialization.
func Run(id *identity.Identity, configDir, identityPath, cacheRoot string) error {
	log := logger.ForConfiguration(Name)

	for _, dir := range []string{configDir, identity.UserConfigsDir(configDir), cacheRoot} {
		log.Infof("%s ensure exists %s", logger.Op("folder"), dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	if err := id.Save(identityPath); err != nil {
		return err
	}
	log.Infof("%s wrote identity (target=%q, machine_id=%q) to %s",
		logger.Op("config"), id.Target, id.MachineID, identityPath)

	if id.Target == "" {
		log.Warnf("%s no target set; pass --target (or --nb/--pc/--srv) and rerun `confctl configure self`", logger.Op("manual"))
	}
	if id.MachineID == "" {
		log.Warnf("%s no machine id set; pass --machine-id and rerun `confctl configure self`", logger.Op("manual"))
	}
	return nil
}
