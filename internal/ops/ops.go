// Package ops provides the capability context handed to each configuration
// run. Instead of a base class to subclass, every run gets an Ops value
// carrying the resolved parameter scope, the configuration's asset
// directory, and a namespaced cache directory, plus the imperative helpers
// the configure steps are built from.
package ops

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"confctl/internal/archive"
	"confctl/internal/fetch"
	"confctl/internal/logger"
	"confctl/internal/params"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Ops is the execution context of one configuration run.
//
// ConfDir is the configuration's own directory (templates and other assets
// are referenced relative to it). CacheDir is a scratch directory
// namespaced by configuration name; it survives between runs so authors
// can implement their own idempotence checks, and it is where rendered
// templates live when a step asks for symlinked output.
type Ops struct {
	Name     string
	ConfDir  string
	CacheDir string
	Scope    *hcl.EvalContext

	log *logger.Scoped
}

// New builds the context for one run and ensures the cache directory
// exists.
func New(name, confDir, cacheDir string, scope *hcl.EvalContext) (*Ops, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", cacheDir, err)
	}
	return &Ops{
		Name:     name,
		ConfDir:  confDir,
		CacheDir: cacheDir,
		Scope:    scope,
		log:      logger.ForConfiguration(name),
	}, nil
}

// RunShell executes each command synchronously via `sh -c`. After the
// first failure the remaining commands of this call are skipped with a
// warning, since later commands usually depend on earlier ones. The first
// failure is returned; the caller decides whether that fails the whole
// configuration (it does) or the whole run (it does not).
func (o *Ops) RunShell(commands ...string) error {
	var failed error
	for _, command := range commands {
		if failed != nil {
			o.log.Warnf("%s %s", logger.Op("sh:skip"), command)
			continue
		}
		o.log.Infof("%s %s", logger.Op("sh"), command)
		out, err := exec.Command("sh", "-c", command).CombinedOutput()
		if len(out) > 0 {
			o.log.Debugf("%s output:\n%s", logger.Op("sh"), out)
		}
		if err != nil {
			o.log.Errorf("%s %s: %v", logger.Op("sh:fail"), command, err)
			failed = fmt.Errorf("command %q failed: %w", command, err)
		}
	}
	return failed
}

// InstallCommand is the shell command prefix system packages are
// installed with. A variable so tests can substitute a harmless command.
var InstallCommand = "sudo apt install -y"

// InstallPackages installs system packages in a single shell invocation.
// Empty entries and entries starting with "#" are skipped, so authors can
// annotate longer package lists inline.
func (o *Ops) InstallPackages(packages ...string) error {
	names := make([]string, 0, len(packages))
	for _, p := range packages {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		names = append(names, p)
	}
	if len(names) == 0 {
		return nil
	}
	return o.RunShell(InstallCommand + " " + strings.Join(names, " "))
}

// EnsureDirs idempotently creates each directory, intermediate directories
// included. Paths get ~ and environment expansion. Existing directories
// are not an error.
func (o *Ops) EnsureDirs(paths ...string) error {
	for _, p := range paths {
		dir := params.ExpandPath(p)
		o.log.Infof("%s ensure exists %s", logger.Op("folder"), dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// RenderTemplate renders the template file src (HCL template syntax, with
// the run's parameter scope as variables) and returns the path written.
//
// With symlink=false the rendered output is written to dest directly.
// With symlink=true the output is written into the rendered/ subdirectory
// of the cache and dest becomes a symlink pointing at it; re-running
// re-renders the cached file and leaves dest a symlink to the fresh
// content. The subdirectory keeps the link and its target distinct even
// when dest itself resolves into the cache.
func (o *Ops) RenderTemplate(src, dest string, symlink bool) (string, error) {
	srcPath := o.assetPath(src)
	rendered, err := o.renderFile(srcPath)
	if err != nil {
		return "", err
	}

	destPath := o.cachePath(dest)
	if symlink {
		cached := filepath.Join(o.CacheDir, "rendered", filepath.Base(destPath))
		if cached == destPath {
			return "", fmt.Errorf("symlink destination %s collides with the cached render", destPath)
		}
		o.log.Infof("%s rendering %s --> %s (via cache)", logger.Op("template"), filepath.Base(srcPath), destPath)
		if err := writeFile(cached, rendered); err != nil {
			return "", err
		}
		if err := o.Symlink(destPath, cached); err != nil {
			return "", err
		}
		return cached, nil
	}

	o.log.Infof("%s rendering %s --> %s", logger.Op("template"), filepath.Base(srcPath), destPath)
	if err := writeFile(destPath, rendered); err != nil {
		return "", err
	}
	return destPath, nil
}

// renderFile parses and evaluates one template file against the run scope.
func (o *Ops) renderFile(srcPath string) (string, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", srcPath, err)
	}

	expr, diags := hclsyntax.ParseTemplate(data, srcPath, hcl.InitialPos)
	if diags.HasErrors() {
		return "", fmt.Errorf("invalid template %s: %w", srcPath, diags)
	}
	val, diags := expr.Value(o.Scope)
	if diags.HasErrors() {
		return "", fmt.Errorf("rendering %s: %w", srcPath, diags)
	}
	str, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", fmt.Errorf("template %s did not produce text: %w", srcPath, err)
	}
	return str.AsString(), nil
}

// CopyFile copies a configuration asset to dest, preserving the source
// file mode.
func (o *Ops) CopyFile(src, dest string) error {
	srcPath := o.assetPath(src)
	destPath := o.cachePath(dest)
	o.log.Infof("%s %s --> %s", logger.Op("copy"), filepath.Base(srcPath), destPath)

	in, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open source failed: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source failed: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("mkdir failed: %w", err)
	}
	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create target failed: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy failed: %w", err)
	}
	return out.Close()
}

// Symlink points link at target, replacing an existing link or file at
// that location. The parent directory of link is created if needed.
func (o *Ops) Symlink(link, target string) error {
	linkPath := params.ExpandPath(link)
	targetPath := params.ExpandPath(target)

	if err := os.MkdirAll(filepath.Dir(linkPath), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(linkPath), err)
	}
	// Replace whatever is there; a stale regular file would otherwise
	// block the link.
	_ = os.Remove(linkPath)
	if err := os.Symlink(targetPath, linkPath); err != nil {
		return fmt.Errorf("failed to link %s -> %s: %w", linkPath, targetPath, err)
	}
	o.log.Infof("%s %s -> %s", logger.Op("symlink"), linkPath, targetPath)
	return nil
}

// FetchSpec describes one fetch operation: either a direct URL, or a
// GitHub release asset selected by repo, tag, and name pattern.
type FetchSpec struct {
	URL     string
	Repo    string
	Tag     string
	Pattern string
	Dest    string
	Extract bool
}

// Fetch downloads the asset into the cache directory (or spec.Dest,
// resolved against it) and optionally extracts it. An already-downloaded
// file is not fetched again; authors delete the cache entry to force a
// re-download.
func (o *Ops) Fetch(spec FetchSpec) error {
	url := spec.URL
	if url == "" {
		if spec.Repo == "" || spec.Tag == "" {
			return fmt.Errorf("fetch needs either url or repo+tag")
		}
		var err error
		url, err = fetch.ReleaseAssetURL(spec.Repo, spec.Tag, spec.Pattern)
		if err != nil {
			return err
		}
	}

	destDir := o.CacheDir
	if spec.Dest != "" {
		destDir = o.cachePath(spec.Dest)
	}
	file := filepath.Join(destDir, path.Base(url))

	if _, err := os.Stat(file); err == nil {
		o.log.Infof("%s %s already in cache, skipping download", logger.Op("fetch"), path.Base(url))
	} else {
		o.log.Infof("%s downloading %s", logger.Op("fetch"), url)
		if err := fetch.Download(url, file); err != nil {
			return err
		}
	}

	if spec.Extract {
		if !archive.Supported(file) {
			return fmt.Errorf("fetched file %s is not a supported archive", file)
		}
		extracted, err := archive.Extract(file, destDir)
		if err != nil {
			return err
		}
		o.log.Infof("%s extracted to %s", logger.Op("fetch"), extracted)
	}
	return nil
}

// Warn emits a user-visible, non-fatal notice. Definitions use it for
// manual follow-up steps the tool cannot automate.
func (o *Ops) Warn(message string) {
	o.log.Warnf("%s %s", logger.Op("manual"), message)
}

// assetPath resolves a source path: ~ and env expansion, then relative
// paths against the configuration directory.
func (o *Ops) assetPath(p string) string {
	p = params.ExpandPath(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.ConfDir, p)
}

// cachePath resolves a destination path: ~ and env expansion, then
// relative paths against the cache directory.
func (o *Ops) cachePath(p string) string {
	p = params.ExpandPath(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.CacheDir, p)
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
