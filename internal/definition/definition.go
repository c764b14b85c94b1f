// Package definition models a user-authored configuration definition: one
// directory under user-configs containing a conf.hcl file plus arbitrary
// asset files (templates, scripts) the steps reference by relative path.
package definition

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// DefinitionFile is the well-known file name looked up in every candidate
// configuration directory during discovery.
const DefinitionFile = "conf.hcl"

// Definition is a parsed configuration definition. The name is always the
// directory name, which makes names unique by construction of a directory
// listing. Step argument expressions stay unevaluated until run time, when
// they are resolved against the machine identity and the declared params.
type Definition struct {
	Name   string
	Dir    string
	Params []Param
	Steps  []Step
}

// Param is a declared parameter of a definition. Exactly one of Value,
// Path, or From is set:
//   - Value: a plain value expression, resolved against the identity scope
//   - Path: a string expression whose result gets ~ and $ENV expansion
//   - From: derived from the machine identity ("target", "machine_id",
//     "flags"), with an optional Default used when the identity field is
//     unset
type Param struct {
	Name    string
	Value   hcl.Expression
	Path    hcl.Expression
	From    string
	Default hcl.Expression
}

// Step is one block inside the configure section. The body is decoded per
// kind at execution time so its attribute expressions can see the resolved
// parameter scope.
type Step struct {
	Kind     string
	Body     hcl.Body
	DefRange hcl.Range
}

// Step block types accepted inside a configure block.
var stepSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "sh"},
		{Type: "packages"},
		{Type: "dirs"},
		{Type: "template"},
		{Type: "copy"},
		{Type: "symlink"},
		{Type: "fetch"},
		{Type: "warn"},
	},
}

type fileModel struct {
	Configuration *configurationModel `hcl:"configuration,block"`
}

type configurationModel struct {
	Params    []paramModel    `hcl:"param,block"`
	Configure *configureModel `hcl:"configure,block"`
}

// Param bodies are decoded by hand against paramSchema rather than via
// gohcl struct tags: gohcl fills absent optional expression fields with a
// synthetic null expression, but telling "declared" from "omitted" apart
// is exactly what the one-kind-per-param validation needs. Attribute
// presence in the decoded content is the source of truth.
type paramModel struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

var paramSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "value"},
		{Name: "path"},
		{Name: "from"},
		{Name: "default"},
	},
}

type configureModel struct {
	Body hcl.Body `hcl:",remain"`
}

// Load parses dir/conf.hcl into a Definition named after the directory.
// Any structural problem (missing file, parse error, missing configuration
// or configure block, ambiguous param kind, unknown step block) is returned
// as an error; discovery treats that as "not a valid definition" and skips
// the directory with a warning rather than failing the scan.
func Load(name, dir string) (*Definition, error) {
	path := filepath.Join(dir, DefinitionFile)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", path, diags)
	}

	var model fileModel
	if diags := gohcl.DecodeBody(file.Body, nil, &model); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %w", path, diags)
	}
	if model.Configuration == nil {
		return nil, fmt.Errorf("%s has no configuration block", path)
	}
	if model.Configuration.Configure == nil {
		return nil, fmt.Errorf("%s has no configure block", path)
	}

	def := &Definition{Name: name, Dir: dir}

	for _, p := range model.Configuration.Params {
		param, err := newParam(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		def.Params = append(def.Params, param)
	}

	// Content enforces the step schema and preserves source order across
	// the different block types, which is the execution order.
	content, diags := model.Configuration.Configure.Body.Content(stepSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s: %w", path, diags)
	}
	for _, block := range content.Blocks {
		def.Steps = append(def.Steps, Step{
			Kind:     block.Type,
			Body:     block.Body,
			DefRange: block.DefRange,
		})
	}

	return def, nil
}

func newParam(p paramModel) (Param, error) {
	content, diags := p.Body.Content(paramSchema)
	if diags.HasErrors() {
		return Param{}, fmt.Errorf("param %q: %w", p.Name, diags)
	}

	param := Param{Name: p.Name}
	kinds := 0
	if attr, ok := content.Attributes["value"]; ok {
		param.Value = attr.Expr
		kinds++
	}
	if attr, ok := content.Attributes["path"]; ok {
		param.Path = attr.Expr
		kinds++
	}
	if attr, ok := content.Attributes["from"]; ok {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return Param{}, fmt.Errorf("param %q: %w", p.Name, diags)
		}
		if val.Type() != cty.String || val.IsNull() {
			return Param{}, fmt.Errorf("param %q: from must be a string", p.Name)
		}
		param.From = val.AsString()
		kinds++
	}
	if attr, ok := content.Attributes["default"]; ok {
		param.Default = attr.Expr
	}

	if kinds != 1 {
		return Param{}, fmt.Errorf("param %q must set exactly one of value, path, or from", p.Name)
	}
	if param.Default != nil && param.From == "" {
		return Param{}, fmt.Errorf("param %q: default is only valid together with from", p.Name)
	}
	return param, nil
}
