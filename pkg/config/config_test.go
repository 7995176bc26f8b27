package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvConfigPathName, "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.App.Env)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "prefs", cfg.Store.Driver)
	assert.Equal(t, time.Second, cfg.Backend.Tick)
	assert.True(t, cfg.Backend.NotificationsAllowed)
	assert.Equal(t, 15*time.Minute, cfg.Reconcile.Interval)
	assert.Equal(t, 30*time.Second, cfg.Reconcile.InitialDelay)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  env: dev
logger:
  log_level: debug
store:
  driver: badger
  path: `+filepath.Join(dir, "db")+`
backend:
  tick: 500ms
reconcile:
  interval: 1m
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "badger", cfg.Store.Driver)
	assert.Equal(t, filepath.Join(dir, "db"), cfg.Store.Path)
	assert.Equal(t, 500*time.Millisecond, cfg.Backend.Tick)
	assert.Equal(t, time.Minute, cfg.Reconcile.Interval)
}

func TestLoad_EnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("logger:\n  log_level: warn\n"), 0o600))
	t.Setenv(EnvConfigPathName, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: sqlite\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.True(t, IsNotExist(err))
}
