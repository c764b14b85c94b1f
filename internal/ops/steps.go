package ops

import (
	"errors"
	"fmt"

	"confctl/internal/definition"
	"confctl/internal/logger"

	"github.com/hashicorp/hcl/v2/gohcl"
)

// Per-kind step argument models. Attribute expressions are evaluated
// against the run scope at decode time, so authors can interpolate params,
// identity fields, flags, and the conf/cache directories anywhere.

type shStep struct {
	Commands []string `hcl:"commands"`
}

type packagesStep struct {
	Names []string `hcl:"names"`
}

type dirsStep struct {
	Paths []string `hcl:"paths"`
}

type templateStep struct {
	Src     string `hcl:"src"`
	Dest    string `hcl:"dest"`
	Symlink bool   `hcl:"symlink,optional"`
}

type copyStep struct {
	Src  string `hcl:"src"`
	Dest string `hcl:"dest"`
}

type symlinkStep struct {
	Link   string `hcl:"link"`
	Target string `hcl:"target"`
}

type fetchStep struct {
	URL     string `hcl:"url,optional"`
	Repo    string `hcl:"repo,optional"`
	Tag     string `hcl:"tag,optional"`
	Pattern string `hcl:"pattern,optional"`
	Dest    string `hcl:"dest,optional"`
	Extract bool   `hcl:"extract,optional"`
}

type warnStep struct {
	Message string `hcl:"message"`
}

// Run executes the configuration's steps in order. Every step is attempted
// even after an earlier one failed: steps of one configuration are often
// independent (render this file, warn about that manual action), and the
// partial progress is exactly what a user re-running later wants to keep.
// The combined error marks the configuration as failed.
func (o *Ops) Run(steps []definition.Step) error {
	var errs []error
	for _, step := range steps {
		if err := o.runStep(step); err != nil {
			o.log.Errorf("%s %s: %v", logger.Op(step.Kind+":fail"), step.DefRange.String(), err)
			errs = append(errs, fmt.Errorf("%s step (%s): %w", step.Kind, step.DefRange.String(), err))
		}
	}
	return errors.Join(errs...)
}

func (o *Ops) runStep(step definition.Step) error {
	switch step.Kind {
	case "sh":
		var args shStep
		if diags := gohcl.DecodeBody(step.Body, o.Scope, &args); diags.HasErrors() {
			return diags
		}
		return o.RunShell(args.Commands...)

	case "packages":
		var args packagesStep
		if diags := gohcl.DecodeBody(step.Body, o.Scope, &args); diags.HasErrors() {
			return diags
		}
		return o.InstallPackages(args.Names...)

	case "dirs":
		var args dirsStep
		if diags := gohcl.DecodeBody(step.Body, o.Scope, &args); diags.HasErrors() {
			return diags
		}
		return o.EnsureDirs(args.Paths...)

	case "template":
		var args templateStep
		if diags := gohcl.DecodeBody(step.Body, o.Scope, &args); diags.HasErrors() {
			return diags
		}
		_, err := o.RenderTemplate(args.Src, args.Dest, args.Symlink)
		return err

	case "copy":
		var args copyStep
		if diags := gohcl.DecodeBody(step.Body, o.Scope, &args); diags.HasErrors() {
			return diags
		}
		return o.CopyFile(args.Src, args.Dest)

	case "symlink":
		var args symlinkStep
		if diags := gohcl.DecodeBody(step.Body, o.Scope, &args); diags.HasErrors() {
			return diags
		}
		return o.Symlink(args.Link, args.Target)

	case "fetch":
		var args fetchStep
		if diags := gohcl.DecodeBody(step.Body, o.Scope, &args); diags.HasErrors() {
			return diags
		}
		return o.Fetch(FetchSpec{
			URL:     args.URL,
			Repo:    args.Repo,
			Tag:     args.Tag,
			Pattern: args.Pattern,
			Dest:    args.Dest,
			Extract: args.Extract,
		})

	case "warn":
		var args warnStep
		if diags := gohcl.DecodeBody(step.Body, o.Scope, &args); diags.HasErrors() {
			return diags
		}
		o.Warn(args.Message)
		return nil

	default:
		// Unreachable: definition.Load rejects unknown step blocks.
		return fmt.Errorf("unknown step kind %q", step.Kind)
	}
}
