package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, root, name, source string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conf.hcl"), []byte(source), 0644))
}

const validSource = `
configuration {
  configure {
    warn { message = "hi" }
  }
}
`

func TestScanFindsOneEntryPerDirectory(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "zsh", validSource)
	writeConfig(t, root, "alacritty", validSource)
	writeConfig(t, root, "tmux", validSource)

	reg := Scan(root)
	require.Equal(t, 3, reg.Len())
	// Sorted, not listing order.
	require.Equal(t, []string{"alacritty", "tmux", "zsh"}, reg.Names())

	def, ok := reg.Get("tmux")
	require.True(t, ok)
	require.Equal(t, "tmux", def.Name)
	require.Equal(t, filepath.Join(root, "tmux"), def.Dir)
}

func TestScanSkipsInvalidEntries(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "good", validSource)
	writeConfig(t, root, "broken", `configuration { not valid hcl`)
	// A directory without any definition file.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "assets-only"), 0755))
	// A stray file at the top level is not a candidate.
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("notes"), 0644))

	reg := Scan(root)
	require.Equal(t, []string{"good"}, reg.Names())

	_, ok := reg.Get("broken")
	require.False(t, ok)
}

func TestScanMissingRoot(t *testing.T) {
	reg := Scan(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Equal(t, 0, reg.Len())
	require.Empty(t, reg.Names())
}

// Names are taken verbatim from directory names and compared
// case-sensitively, so case variants are distinct configurations. On a
// case-insensitive filesystem the OS itself permits only one of them.
func TestScanKeepsCaseVariantNamesDistinct(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "console", validSource)
	writeConfig(t, root, "Console", validSource)

	lower, err := os.Stat(filepath.Join(root, "console"))
	require.NoError(t, err)
	upper, err := os.Stat(filepath.Join(root, "Console"))
	require.NoError(t, err)
	if os.SameFile(lower, upper) {
		t.Skip("case-insensitive filesystem collapses the variants")
	}

	reg := Scan(root)
	require.Equal(t, []string{"Console", "console"}, reg.Names())
}

func TestScanFollowsDirectorySymlinks(t *testing.T) {
	real := t.TempDir()
	writeConfig(t, real, "shared", validSource)

	root := t.TempDir()
	require.NoError(t, os.Symlink(filepath.Join(real, "shared"), filepath.Join(root, "shared")))

	reg := Scan(root)
	require.Equal(t, []string{"shared"}, reg.Names())
}
