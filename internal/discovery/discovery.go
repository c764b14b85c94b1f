// Package discovery enumerates the user-configs directory and loads each
// subdirectory's configuration definition.
package discovery

import (
	"os"
	"path/filepath"

	"confctl/internal/definition"
	"confctl/internal/logger"
)

// Registry holds the discovered definitions keyed by configuration name
// (= directory name). Names returns them in sorted order so a "run all"
// invocation behaves the same on every platform regardless of the
// directory listing order the OS happens to produce.
type Registry struct {
	defs  map[string]*definition.Definition
	names []string
}

// Scan walks the immediate subdirectories of root and loads a definition
// from each. Directories without a valid definition are skipped with a
// warning, never a hard failure: one broken user configuration must not
// prevent the others from running. A missing or unreadable root yields an
// empty registry for the same reason.
func Scan(root string) *Registry {
	reg := &Registry{defs: make(map[string]*definition.Definition)}

	entries, err := os.ReadDir(root)
	if err != nil {
		logger.Warn("[WARN] Cannot read user-configs directory %s: %v\n", root, err)
		return reg
	}

	// os.ReadDir returns entries sorted by name, which fixes both the
	// discovery order and the run-all execution order.
	for _, entry := range entries {
		dir := filepath.Join(root, entry.Name())
		if !entry.IsDir() {
			// Follow directory symlinks; anything else is not a candidate.
			info, err := os.Stat(dir)
			if err != nil || !info.IsDir() {
				logger.Debug("[DEBUG] Skipping non-directory entry %s\n", dir)
				continue
			}
		}

		def, err := definition.Load(entry.Name(), dir)
		if err != nil {
			logger.Warn("[WARN] Skipping %s: %v\n", entry.Name(), err)
			continue
		}

		reg.defs[def.Name] = def
		reg.names = append(reg.names, def.Name)
		logger.Debug("[DEBUG] Discovered configuration %q (%d params, %d steps)\n",
			def.Name, len(def.Params), len(def.Steps))
	}

	return reg
}

// Names returns all discovered configuration names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Get returns the definition for name, if discovered.
func (r *Registry) Get(name string) (*definition.Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Len returns the number of discovered configurations.
func (r *Registry) Len() int {
	return len(r.names)
}
