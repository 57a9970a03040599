package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: sqlite\n  dsn: \"file:dev.db\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10.0, cfg.Server.RateLimitPerSec)
	assert.Equal(t, 20, cfg.API.DefaultPageSize)
	assert.Equal(t, 100, cfg.API.MaxPageSize)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaultPageSizeNeverExceedsMax(t *testing.T) {
	cfg := Config{}
	cfg.API.DefaultPageSize = 500
	cfg.API.MaxPageSize = 50
	cfg.ApplyDefaults()
	assert.Equal(t, 50, cfg.API.DefaultPageSize)
}
