package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "confctl", "config.yaml")

	id := &Identity{Target: TargetLaptop, MachineID: "odo", Flags: []string{"full"}}
	require.NoError(t, id.Save(path))

	loaded, existed := Load(path)
	require.True(t, existed)
	require.Equal(t, TargetLaptop, loaded.Target)
	require.Equal(t, "odo", loaded.MachineID)
	// Flags are run-scoped and must not survive persistence.
	require.Empty(t, loaded.Flags)
}

func TestLoadMissingFile(t *testing.T) {
	loaded, existed := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.False(t, existed)
	require.Equal(t, &Identity{}, loaded)
}

func TestLoadIgnoresUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "target: server\nmachine_id: rack-7\nfuture_option: whatever\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	loaded, existed := Load(path)
	require.True(t, existed)
	require.Equal(t, TargetServer, loaded.Target)
	require.Equal(t, "rack-7", loaded.MachineID)
}

func TestLoadUnparseableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0644))

	loaded, existed := Load(path)
	require.False(t, existed)
	require.Equal(t, &Identity{}, loaded)
}

func TestHasFlag(t *testing.T) {
	id := &Identity{Flags: []string{"full", "work"}}
	require.True(t, id.HasFlag("full"))
	require.False(t, id.HasFlag("minimal"))
}
