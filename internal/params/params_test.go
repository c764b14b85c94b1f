package params

import (
	"os"
	"path/filepath"
	"testing"

	"confctl/internal/definition"
	"confctl/internal/identity"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func loadDefinition(t *testing.T, source string) *definition.Definition {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, definition.DefinitionFile), []byte(source), 0644))
	def, err := definition.Load("fixture", dir)
	require.NoError(t, err)
	return def
}

func TestResolveDerivedTarget(t *testing.T) {
	def := loadDefinition(t, `
configuration {
  param "machine" { from = "target" }
  configure {}
}
`)
	id := &identity.Identity{Target: "laptop", MachineID: "odo"}

	resolved, err := Resolve(def, id)
	require.NoError(t, err)
	require.Equal(t, cty.StringVal("laptop"), resolved["machine"])
}

func TestResolveDerivedMissingWithoutDefault(t *testing.T) {
	def := loadDefinition(t, `
configuration {
  param "mid" { from = "machine_id" }
  configure {}
}
`)
	_, err := Resolve(def, &identity.Identity{Target: "laptop"})
	require.Error(t, err)

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	require.Equal(t, "fixture", resErr.Configuration)
	require.Equal(t, "mid", resErr.Param)
}

func TestResolveDerivedFallsBackToDefault(t *testing.T) {
	def := loadDefinition(t, `
configuration {
  param "machine" {
    from    = "target"
    default = "desktop"
  }
  configure {}
}
`)
	resolved, err := Resolve(def, &identity.Identity{})
	require.NoError(t, err)
	require.Equal(t, cty.StringVal("desktop"), resolved["machine"])
}

func TestResolveDerivedUnknownField(t *testing.T) {
	def := loadDefinition(t, `
configuration {
  param "x" { from = "hostname" }
  configure {}
}
`)
	_, err := Resolve(def, &identity.Identity{})
	require.ErrorContains(t, err, "unknown identity field")
}

func TestResolveDerivedFlags(t *testing.T) {
	def := loadDefinition(t, `
configuration {
  param "extras" { from = "flags" }
  configure {}
}
`)
	id := &identity.Identity{Flags: []string{"full", "work"}}
	resolved, err := Resolve(def, id)
	require.NoError(t, err)
	require.Equal(t, cty.ListVal([]cty.Value{cty.StringVal("full"), cty.StringVal("work")}), resolved["extras"])
}

func TestResolvePathExpandsHome(t *testing.T) {
	def := loadDefinition(t, `
configuration {
  param "conf_dir" { path = "~/.config/console" }
  configure {}
}
`)
	resolved, err := Resolve(def, &identity.Identity{})
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	require.Equal(t, cty.StringVal(filepath.Join(home, ".config/console")), resolved["conf_dir"])
}

func TestResolvePathExpandsEnv(t *testing.T) {
	t.Setenv("CONSOLE_BASE", "/opt/console")
	def := loadDefinition(t, `
configuration {
  param "conf_dir" { path = "$CONSOLE_BASE/etc" }
  configure {}
}
`)
	resolved, err := Resolve(def, &identity.Identity{})
	require.NoError(t, err)
	require.Equal(t, cty.StringVal("/opt/console/etc"), resolved["conf_dir"])
}

func TestResolvePlainValueInterpolatesIdentity(t *testing.T) {
	def := loadDefinition(t, `
configuration {
  param "greeting" { value = "hello from ${identity.machine_id}" }
  configure {}
}
`)
	resolved, err := Resolve(def, &identity.Identity{MachineID: "odo"})
	require.NoError(t, err)
	require.Equal(t, cty.StringVal("hello from odo"), resolved["greeting"])
}

func TestResolveLaterParamSeesEarlierOnes(t *testing.T) {
	def := loadDefinition(t, `
configuration {
  param "base"  { path = "/srv/console" }
  param "theme" { value = "${param.base}/themes" }
  configure {}
}
`)
	resolved, err := Resolve(def, &identity.Identity{})
	require.NoError(t, err)
	require.Equal(t, cty.StringVal("/srv/console/themes"), resolved["theme"])
}

func TestResolveNonStringValue(t *testing.T) {
	def := loadDefinition(t, `
configuration {
  param "retries" { value = 3 }
  configure {}
}
`)
	resolved, err := Resolve(def, &identity.Identity{})
	require.NoError(t, err)
	require.True(t, resolved["retries"].RawEquals(cty.NumberIntVal(3)))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	require.Equal(t, home, ExpandPath("~"))
	require.Equal(t, filepath.Join(home, ".vimrc"), ExpandPath("~/.vimrc"))
	require.Equal(t, "/etc/hosts", ExpandPath("/etc/hosts"))
}

func TestEvalContextVariables(t *testing.T) {
	id := &identity.Identity{Target: "server", MachineID: "rack-7"}
	ctx := EvalContext(map[string]cty.Value{"port": cty.StringVal("22")}, id, "/conf", "/cache")

	require.Equal(t, cty.StringVal("/conf"), ctx.Variables["conf_dir"])
	require.Equal(t, cty.StringVal("/cache"), ctx.Variables["cache_dir"])
	require.Equal(t, cty.StringVal("server"), ctx.Variables["identity"].GetAttr("target"))
	require.Equal(t, cty.StringVal("22"), ctx.Variables["param"].GetAttr("port"))
	require.Equal(t, cty.ListValEmpty(cty.String), ctx.Variables["flags"])
}
