package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ".edgar-cache", cfg.Cache.Dir)
	assert.Equal(t, 24, cfg.Cache.MaxAgeHours)
	assert.Equal(t, ".edgar-cache/index.db", cfg.Store.Path)
	assert.Equal(t, 8, cfg.Stitch.MaxPeriods)
	assert.True(t, cfg.Stitch.Standardize)
	assert.True(t, cfg.Stitch.OptimalPeriods)
	assert.Equal(t, 60, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Edgar.Identity)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
edgar:
  identity: "Jane Doe jane@example.com"
cache:
  dir: /var/cache/edgar
log:
  level: debug
  format: console
stitch:
  max_periods: 12
source:
  tar_dirs:
    - /data/tars
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe jane@example.com", cfg.Edgar.Identity)
	assert.Equal(t, "/var/cache/edgar", cfg.Cache.Dir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 12, cfg.Stitch.MaxPeriods)
	assert.Equal(t, []string{"/data/tars"}, cfg.Source.TarDirs)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("EDGAR_LOG_LEVEL", "warn")
	t.Setenv("EDGAR_IDENTITY", "Env User env@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "Env User env@example.com", cfg.Edgar.Identity)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("EDGAR_STITCH_MAX_PERIODS", "4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Stitch.MaxPeriods)
}

func TestValidateRemoteRequiresIdentity(t *testing.T) {
	cfg := &Config{}
	cfg.Stitch.MaxPeriods = 8
	cfg.Cache.MaxAgeHours = 24

	err := cfg.Validate(true)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "edgar.identity is required")

	assert.NoError(t, cfg.Validate(false))

	cfg.Edgar.Identity = "Jane Doe jane@example.com"
	assert.NoError(t, cfg.Validate(true))
}

func TestValidateBounds(t *testing.T) {
	cfg := &Config{}
	cfg.Edgar.Identity = "Jane Doe jane@example.com"
	cfg.Stitch.MaxPeriods = 0
	cfg.Cache.MaxAgeHours = 24

	err := cfg.Validate(true)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "stitch.max_periods must be >= 1")

	cfg.Stitch.MaxPeriods = 8
	cfg.Fetch.MaxRetries = -1
	err = cfg.Validate(true)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "fetch.max_retries must be >= 0")

	cfg.Fetch.MaxRetries = 0
	cfg.Cache.MaxAgeHours = 0
	err = cfg.Validate(true)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cache.max_age_hours must be >= 1")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
