package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultHasSaneValues(t *testing.T) {
	cfg := Default()
	assert.NotEmpty(t, cfg.Engine.DataDir)
	assert.GreaterOrEqual(t, cfg.Engine.SparseStride, 1)
	assert.True(t, cfg.Engine.CreateIfMissing)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stratum.toml")
	doc := `
[engine]
data_dir = "/var/lib/stratum"
sparse_stride = 32
memtable_capacity = 1048576
create_if_missing = false

[server]
listen_addr = "0.0.0.0:9000"
compaction_interval = "5m"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/stratum", cfg.Engine.DataDir)
	assert.Equal(t, 32, cfg.Engine.SparseStride)
	assert.Equal(t, int64(1048576), cfg.Engine.MemtableCapacity)
	assert.False(t, cfg.Engine.CreateIfMissing)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.ListenAddr)
	assert.Equal(t, "5m", cfg.Server.CompactionInterval)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load("/nonexistent/stratum.toml")
	require.Error(t, err)
}
