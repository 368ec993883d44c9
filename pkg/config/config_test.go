package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFresh(t *testing.T) *Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := loadFresh(t)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Codegen.MaxConcurrency)
	assert.Equal(t, 30*time.Second, cfg.Codegen.FetchTimeoutDuration())
	assert.Equal(t, 200*time.Millisecond, cfg.Codegen.RetryBackoffDuration())
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.True(t, cfg.CircuitBreaker.Enabled)
	assert.Equal(t, 500, cfg.Neo4j.BatchSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blockgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
codegen:
  max_concurrency: 2
cache:
  driver: badger
  path: /tmp/cache
neo4j:
  uri: neo4j://localhost:7687
`), 0o600))

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 2, cfg.Codegen.MaxConcurrency)
	assert.Equal(t, "badger", cfg.Cache.Driver)
	assert.Equal(t, "neo4j://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, 30, cfg.Codegen.FetchTimeout, "defaults fill unset keys")
	assert.NoError(t, cfg.Validate())
}

func TestOverrideWithEnv(t *testing.T) {
	t.Setenv("BLOCKGRAPH_LOG_LEVEL", "WARN")
	t.Setenv("BLOCKGRAPH_SERVER_PORT", "9090")
	t.Setenv("BLOCKGRAPH_MAX_CONCURRENCY", "16")
	t.Setenv("BLOCKGRAPH_CACHE_DRIVER", "badger")
	t.Setenv("BLOCKGRAPH_CACHE_PATH", "/var/cache/blockgraph")
	t.Setenv("NEO4J_URI", "bolt://db:7687")
	t.Setenv("NEO4J_USER", "neo4j")
	t.Setenv("NEO4J_PASSWORD", "secret")

	cfg := loadFresh(t)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 16, cfg.Codegen.MaxConcurrency)
	assert.Equal(t, "badger", cfg.Cache.Driver)
	assert.Equal(t, "/var/cache/blockgraph", cfg.Cache.Path)
	assert.Equal(t, "bolt://db:7687", cfg.Neo4j.URI)
	assert.Equal(t, "neo4j", cfg.Neo4j.Username)
	assert.Equal(t, "secret", cfg.Neo4j.Password)
}

func TestOverrideWithEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("BLOCKGRAPH_SERVER_PORT", "eighty")
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "Log.Level must be one of"},
		{"zero concurrency", func(c *Config) { c.Codegen.MaxConcurrency = 0 }, "Codegen.MaxConcurrency must be at least 1"},
		{"badger without path", func(c *Config) { c.Cache.Driver = "badger"; c.Cache.Path = "" }, "Cache.Path is required"},
		{"ratio above one", func(c *Config) { c.CircuitBreaker.ReadyToTripRatio = 1.5 }, "CircuitBreaker.ReadyToTripRatio must be at most 1"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "Server.Port must be at most 65535"},
		{"telemetry without path", func(c *Config) { c.Telemetry.Enabled = true; c.Telemetry.ParquetPath = "" }, "Telemetry.ParquetPath is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadFresh(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
