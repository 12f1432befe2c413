package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultHasSpecTunables(t *testing.T) {
	c := Default()
	require.Equal(t, uint64(1000), c.Window)
	require.Equal(t, 10, c.TaskMRUSize)
	require.Equal(t, 1000, c.ProcessLRUSize)
	require.Equal(t, 25, c.ActorCallTimeoutSecs)
	require.Equal(t, 30, c.ImportThrottleSecs)
}

func TestLoadOverridesOnlySetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chain.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
Window = 250

[Store]
Kind = "leveldb"
Path = "/var/lib/chaindata"
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint64(250), c.Window)
	require.Equal(t, StoreLevelDB, c.Store.Kind)
	require.Equal(t, "/var/lib/chaindata", c.Store.Path)
	// Untouched fields keep their defaults.
	require.Equal(t, 10, c.TaskMRUSize)
}
