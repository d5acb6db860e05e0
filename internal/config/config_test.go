package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "vitalsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, _, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "vitalsync.db", cfg.DB.Path)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 500, cfg.Sync.PullPageSize)
	assert.Equal(t, 1000, cfg.Sync.MaxBatch)
	assert.Equal(t, 720*time.Hour, cfg.Sync.TombstoneRetention)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 60, cfg.RateLimit.PerMinute)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Auth.Tokens)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
db:
  path: /var/lib/vitalsync/sync.db
sync:
  pull_page_size: 200
  tombstone_retention: 48h
auth:
  tokens:
    - token: Secret-Token-A
      account: Account-A
log:
  level: debug
`)
	t.Setenv("VITALSYNC_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("VITALSYNC_RATELIMIT_PER_MINUTE", "120")

	cfg, v, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, v.ConfigFileUsed())
	assert.Equal(t, "/var/lib/vitalsync/sync.db", cfg.DB.Path)
	assert.Equal(t, 200, cfg.Sync.PullPageSize)
	assert.Equal(t, 48*time.Hour, cfg.Sync.TombstoneRetention)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.Equal(t, 120, cfg.RateLimit.PerMinute)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Tokens and accounts keep their case.
	assert.Equal(t, map[string]string{"Secret-Token-A": "Account-A"}, cfg.TokenMap())
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
sync:
  pull_page_size: 0
auth:
  tokens:
    - token: abc
`)
	_, _, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync.pull_page_size")
	assert.Contains(t, err.Error(), "auth.tokens[0]")
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "log:\n  level: info\n")

	_, v, err := Load(path)
	require.NoError(t, err)

	var level atomic.Value
	Watch(v, func(cfg *Config) {
		level.Store(cfg.Log.Level)
	})

	writeConfig(t, dir, "log:\n  level: debug\n")

	require.Eventually(t, func() bool {
		got, _ := level.Load().(string)
		return got == "debug"
	}, 5*time.Second, 20*time.Millisecond)
}
