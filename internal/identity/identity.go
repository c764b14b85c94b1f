package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"confctl/internal/logger"

	"gopkg.in/yaml.v3"
)

// Identity describes the machine a run is configuring: which device class
// it is (laptop, desktop, server, or any free-form string) and a unique
// node identifier. Definition authors branch on these to select per-host
// variant behavior.
//
// Target and MachineID are persisted once per machine in the confctl
// config directory; Flags are free-form run-scoped context passed on the
// command line and are never persisted. An Identity is immutable within a
// single run.
type Identity struct {
	Target    string   `yaml:"target"`
	MachineID string   `yaml:"machine_id"`
	Flags     []string `yaml:"-"`
}

// Shorthand device-class names accepted by the CLI (--nb/--pc/--srv).
const (
	TargetLaptop  = "laptop"
	TargetDesktop = "desktop"
	TargetServer  = "server"
)

// FileName is the name of the persisted identity file inside ConfigDir.
const FileName = "config.yaml"

// ConfigDir returns the confctl config directory (~/.config/confctl on
// Linux, the platform equivalent elsewhere). The directory is not created.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user config directory: %w", err)
	}
	return filepath.Join(base, "confctl"), nil
}

// UserConfigsDir returns the directory scanned for user-authored
// configuration definitions.
func UserConfigsDir(configDir string) string {
	return filepath.Join(configDir, "user-configs")
}

// CacheRoot returns the confctl cache directory, under which each
// configuration gets its own namespaced scratch directory.
func CacheRoot() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user cache directory: %w", err)
	}
	return filepath.Join(base, "confctl"), nil
}

// Load reads the persisted identity from path. If the file does not exist
// or cannot be parsed, it returns an empty Identity and false, so a first
// run (or a corrupted file) degrades to "identity not yet initialized"
// rather than a hard failure. Unknown keys in the file are ignored, which
// keeps the format forward compatible.
func Load(path string) (*Identity, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Debug("[DEBUG] No identity file at %s: %v\n", path, err)
		return &Identity{}, false
	}

	var id Identity
	if err := yaml.Unmarshal(raw, &id); err != nil {
		logger.Warn("[WARN] Ignoring unreadable identity file %s: %v\n", path, err)
		return &Identity{}, false
	}

	logger.Debug("[DEBUG] Loaded identity from %s: target=%q machine_id=%q\n", path, id.Target, id.MachineID)
	return &id, true
}

// Save writes the identity to path as YAML, creating the parent directory
// if needed. Flags are run-scoped and deliberately not written.
func (id *Identity) Save(path string) error {
	raw, err := yaml.Marshal(id)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	logger.Debug("[DEBUG] Writing identity to %s:\n%s", path, raw)
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write identity file %s: %w", path, err)
	}
	return nil
}

// HasFlag reports whether the given free-form flag was passed for this run.
func (id *Identity) HasFlag(name string) bool {
	return slices.Contains(id.Flags, name)
}
