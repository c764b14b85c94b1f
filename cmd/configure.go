package cmd

import (
	"fmt"
	"path/filepath"

	"confctl/internal/discovery"
	"confctl/internal/identity"
	"confctl/internal/logger"
	"confctl/internal/runner"

	"github.com/spf13/cobra"
)

// Flags of the configure command. --target takes a free-form device class;
// --nb/--pc/--srv are shorthands for the common ones.
var (
	targetFlag    string
	nbFlag        bool
	pcFlag        bool
	srvFlag       bool
	machineIDFlag string
	flagsFlag     []string
)

// configureCmd runs the selected configuration definitions against this
// machine. With no positional arguments every discovered configuration
// runs, in sorted order. The reserved name `self` runs confctl's own
// self-configuration (directory tree + persisted identity).
var configureCmd = &cobra.Command{
	Use:   "configure [self] [configuration...]",
	Short: "Run configuration definitions against this machine",
	Long: `Run configuration definitions against this machine.

Definitions live under the user-configs directory, one subdirectory per
configuration, each with a conf.hcl plus whatever asset files its steps
reference. Failures in one configuration are reported and the run
continues with the next; the exit status is non-zero if any failed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := identity.ConfigDir()
		if err != nil {
			return err
		}
		cacheRoot, err := identity.CacheRoot()
		if err != nil {
			return err
		}
		identityPath := filepath.Join(configDir, identity.FileName)

		id, existed := identity.Load(identityPath)
		applyIdentityFlags(id)

		// First run: persist the identity right away so later invocations
		// don't need --target/--machine-id again. During a normal run the
		// file is only ever rewritten on the `self` path.
		if !existed {
			if err := id.Save(identityPath); err != nil {
				return err
			}
			logger.Info("[INFO] Initialized machine identity at %s\n", identityPath)
		}

		reg := discovery.Scan(identity.UserConfigsDir(configDir))
		run := runner.New(reg, id, configDir, identityPath, cacheRoot)

		selection, err := run.Resolve(args)
		if err != nil {
			// Unknown names are rejected before anything runs.
			return err
		}
		if len(selection) == 0 {
			logger.Warn("[WARN] Nothing to configure: no configurations discovered in %s\n",
				identity.UserConfigsDir(configDir))
			return nil
		}

		report := run.Run(selection)
		if failed := report.Failed(); len(failed) > 0 {
			return fmt.Errorf("%d of %d configurations failed", len(failed), len(report.Results))
		}
		logger.Info("[INFO] All %d configurations completed successfully\n", len(report.Results))
		return nil
	},
}

// applyIdentityFlags merges the command-line identity flags into the
// loaded identity. Shorthand target flags apply first so an explicit
// --target wins; --flags are run-scoped and never persisted.
func applyIdentityFlags(id *identity.Identity) {
	switch {
	case nbFlag:
		id.Target = identity.TargetLaptop
	case pcFlag:
		id.Target = identity.TargetDesktop
	case srvFlag:
		id.Target = identity.TargetServer
	}
	if targetFlag != "" {
		id.Target = targetFlag
	}
	if machineIDFlag != "" {
		id.MachineID = machineIDFlag
	}
	id.Flags = flagsFlag
}

func init() {
	configureCmd.Flags().StringVar(&targetFlag, "target", "", "Target device class (free-form, e.g. laptop)")
	configureCmd.Flags().BoolVar(&nbFlag, "nb", false, "Shorthand for --target=laptop")
	configureCmd.Flags().BoolVar(&pcFlag, "pc", false, "Shorthand for --target=desktop")
	configureCmd.Flags().BoolVar(&srvFlag, "srv", false, "Shorthand for --target=server")
	configureCmd.Flags().StringVar(&machineIDFlag, "machine-id", "", "Unique identifier of this host (persisted)")
	configureCmd.Flags().StringSliceVar(&flagsFlag, "flags", nil, "Comma-separated free-form flags passed to configurations")
	configureCmd.MarkFlagsMutuallyExclusive("nb", "pc", "srv")
}
