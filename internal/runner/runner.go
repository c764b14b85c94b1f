// Package runner selects and executes configurations sequentially,
// collecting an explicit per-configuration result instead of aborting on
// the first failure.
package runner

import (
	"fmt"
	"path/filepath"
	"time"

	"confctl/internal/discovery"
	"confctl/internal/identity"
	"confctl/internal/logger"
	"confctl/internal/ops"
	"confctl/internal/params"
	"confctl/internal/selfconf"
)

// UnknownConfigurationError reports a requested configuration name that
// matches nothing discovered. Resolve returns it before anything runs, so
// a typo in a multi-name invocation cannot half-apply the run.
type UnknownConfigurationError struct {
	Name string
}

func (e *UnknownConfigurationError) Error() string {
	return fmt.Sprintf("unknown configuration %q", e.Name)
}

// Result is the outcome of one configuration run.
type Result struct {
	Name     string
	Err      error
	Duration time.Duration
}

// Report aggregates the results of a run. The process exit status derives
// from OK: all selected configurations are attempted, but one failure is
// enough to make the run fail overall.
type Report struct {
	Results []Result
}

// OK reports whether every attempted configuration succeeded.
func (r *Report) OK() bool {
	return len(r.Failed()) == 0
}

// Failed returns the results of configurations that failed.
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Runner executes configurations against one machine identity.
// Execution is single-threaded and sequential by design: shell commands
// and filesystem mutations are not guaranteed commutative, and sequential
// order is the simplest model that is always correct.
type Runner struct {
	Registry     *discovery.Registry
	Identity     *identity.Identity
	ConfigDir    string
	IdentityPath string
	CacheRoot    string
}

// New builds a Runner over the discovered registry.
func New(reg *discovery.Registry, id *identity.Identity, configDir, identityPath, cacheRoot string) *Runner {
	return &Runner{
		Registry:     reg,
		Identity:     id,
		ConfigDir:    configDir,
		IdentityPath: identityPath,
		CacheRoot:    cacheRoot,
	}
}

// Resolve expands the requested selection into the list of configurations
// to run. An empty request means "all discovered configurations", in
// discovery (sorted) order. The reserved name "self" always resolves. Any
// unknown name fails the whole resolution up front.
func (r *Runner) Resolve(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return r.Registry.Names(), nil
	}
	selection := make([]string, 0, len(requested))
	for _, name := range requested {
		if name != selfconf.Name {
			if _, ok := r.Registry.Get(name); !ok {
				return nil, &UnknownConfigurationError{Name: name}
			}
		}
		selection = append(selection, name)
	}
	return selection, nil
}

// Run executes the selection in order. A failure in one configuration is
// recorded and the run continues with the next; configurations are
// independent and a user typically wants partial progress. The last-run
// report in the cache root is updated afterwards.
func (r *Runner) Run(selection []string) *Report {
	report := &Report{}
	last := LoadLastRun(r.lastRunPath())

	for _, name := range selection {
		logger.Info("[INFO] Configuring %s...\n", name)
		start := time.Now()
		err := r.runOne(name)
		res := Result{Name: name, Err: err, Duration: time.Since(start)}
		report.Results = append(report.Results, res)
		last.Record(res)

		if err != nil {
			logger.Error("[ERROR] Configuration %s failed after %.1fs: %v\n", name, res.Duration.Seconds(), err)
		} else {
			logger.Info("[INFO] Configuration %s done (%.1fs)\n", name, res.Duration.Seconds())
		}
	}

	SaveLastRun(r.lastRunPath(), last)
	return report
}

func (r *Runner) runOne(name string) error {
	if name == selfconf.Name {
		return selfconf.Run(r.Identity, r.ConfigDir, r.IdentityPath, r.CacheRoot)
	}

	def, ok := r.Registry.Get(name)
	if !ok {
		return &UnknownConfigurationError{Name: name}
	}

	// Parameters resolve eagerly, so an unresolvable declaration fails
	// the configuration before any step has touched the filesystem.
	resolved, err := params.Resolve(def, r.Identity)
	if err != nil {
		return err
	}

	cacheDir := filepath.Join(r.CacheRoot, def.Name)
	scope := params.EvalContext(resolved, r.Identity, def.Dir, cacheDir)
	o, err := ops.New(def.Name, def.Dir, cacheDir, scope)
	if err != nil {
		return err
	}
	return o.Run(def.Steps)
}

func (r *Runner) lastRunPath() string {
	return filepath.Join(r.CacheRoot, "last-run.json")
}
