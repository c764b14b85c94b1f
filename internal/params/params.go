// Package params resolves a definition's declared parameters against the
// machine identity into concrete immutable values, and builds the HCL
// evaluation scope that step expressions and templates are evaluated in.
package params

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"confctl/internal/definition"
	"confctl/internal/identity"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// ResolutionError reports a declared parameter that could not be resolved,
// e.g. a param derived from the machine id in a run where no machine id
// has been set. It fails the configuration before any step runs.
type ResolutionError struct {
	Configuration string
	Param         string
	Err           error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("configuration %q: cannot resolve param %q: %v", e.Configuration, e.Param, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Resolve evaluates every declared parameter of def, in declaration order,
// into a concrete cty value. Resolution is eager and happens exactly once
// per run; the returned map is never mutated afterwards.
//
// Each parameter's expression can reference the identity scope and any
// parameter declared before it, so later params may build on earlier ones.
func Resolve(def *definition.Definition, id *identity.Identity) (map[string]cty.Value, error) {
	resolved := make(map[string]cty.Value, len(def.Params))

	for _, p := range def.Params {
		ctx := &hcl.EvalContext{
			Variables: map[string]cty.Value{
				"identity": identityVal(id),
				"flags":    flagsVal(id),
				"param":    cty.ObjectVal(resolved),
			},
		}

		val, err := resolveOne(p, id, ctx)
		if err != nil {
			return nil, &ResolutionError{Configuration: def.Name, Param: p.Name, Err: err}
		}
		resolved[p.Name] = val
	}

	return resolved, nil
}

func resolveOne(p definition.Param, id *identity.Identity, ctx *hcl.EvalContext) (cty.Value, error) {
	switch {
	case p.Value != nil:
		val, diags := p.Value.Value(ctx)
		if diags.HasErrors() {
			return cty.NilVal, diags
		}
		return val, nil

	case p.Path != nil:
		val, diags := p.Path.Value(ctx)
		if diags.HasErrors() {
			return cty.NilVal, diags
		}
		str, err := convert.Convert(val, cty.String)
		if err != nil {
			return cty.NilVal, fmt.Errorf("path must be a string: %w", err)
		}
		return cty.StringVal(ExpandPath(str.AsString())), nil

	case p.From != "":
		return resolveDerived(p, id, ctx)

	default:
		// Unreachable for definitions built by definition.Load, which
		// enforces exactly one kind per param.
		return cty.NilVal, fmt.Errorf("param has no value, path, or from")
	}
}

func resolveDerived(p definition.Param, id *identity.Identity, ctx *hcl.EvalContext) (cty.Value, error) {
	var val string
	switch p.From {
	case "target":
		val = id.Target
	case "machine_id":
		val = id.MachineID
	case "flags":
		return flagsVal(id), nil
	default:
		return cty.NilVal, fmt.Errorf("unknown identity field %q (want target, machine_id, or flags)", p.From)
	}

	if val == "" {
		if p.Default != nil {
			def, diags := p.Default.Value(ctx)
			if diags.HasErrors() {
				return cty.NilVal, diags
			}
			return def, nil
		}
		return cty.NilVal, fmt.Errorf("identity field %q is not set and no default was declared", p.From)
	}
	return cty.StringVal(val), nil
}

// EvalContext builds the full evaluation scope used by step expressions
// and template rendering: the resolved params, the machine identity, the
// run flags, and the configuration's own directories.
func EvalContext(resolved map[string]cty.Value, id *identity.Identity, confDir, cacheDir string) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"param":     cty.ObjectVal(resolved),
			"identity":  identityVal(id),
			"flags":     flagsVal(id),
			"conf_dir":  cty.StringVal(confDir),
			"cache_dir": cty.StringVal(cacheDir),
		},
	}
}

func identityVal(id *identity.Identity) cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"target":     cty.StringVal(id.Target),
		"machine_id": cty.StringVal(id.MachineID),
	})
}

func flagsVal(id *identity.Identity) cty.Value {
	if len(id.Flags) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(id.Flags))
	for i, f := range id.Flags {
		vals[i] = cty.StringVal(f)
	}
	return cty.ListVal(vals)
}

// ExpandPath performs user-home and environment expansion on a path:
// a leading "~" becomes the current user's home directory, and $VAR
// references are replaced from the environment.
func ExpandPath(p string) string {
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
		}
	}
	return p
}
