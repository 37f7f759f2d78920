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

	assert.Equal(t, "https://katapultpro.com/api/v2", cfg.Katapult.BaseURL)
	assert.Empty(t, cfg.Katapult.APIKey)
	assert.Equal(t, 60, cfg.Katapult.TimeoutSecs)
	assert.Equal(t, 5, cfg.Katapult.MaxAttempts)
	assert.Equal(t, 1000, cfg.Katapult.RetryDelayMs)
	assert.Equal(t, 5, cfg.Katapult.RateLimitDelaySecs)
	assert.InDelta(t, 2.0, cfg.Katapult.RequestsPerSecond, 0.001)
	assert.Equal(t, 1, cfg.Extract.Concurrency)
	assert.Equal(t, 0, cfg.Extract.Limit)
	assert.Equal(t, "Deeply Digital", cfg.Extract.Height.Company)
	assert.Equal(t, "Fiber Optic Com", cfg.Extract.Height.CableType)
	assert.Equal(t, "./workspace", cfg.Export.Dir)
	assert.Equal(t, []string{FormatShapefile, FormatXLSX}, cfg.Export.Formats)
	assert.Equal(t, "katapult.db", cfg.Store.Path)
	assert.True(t, cfg.Store.ArchivePayloads)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
katapult:
  api_key: file-key
  max_attempts: 3
extract:
  concurrency: 4
  job_ids:
    - -Nabc
    - -Ndef
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.Katapult.APIKey)
	assert.Equal(t, 3, cfg.Katapult.MaxAttempts)
	assert.Equal(t, 4, cfg.Extract.Concurrency)
	assert.Equal(t, []string{"-Nabc", "-Ndef"}, cfg.Extract.JobIDs)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 5, cfg.Katapult.RateLimitDelaySecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
katapult:
  api_key: file-key
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("KATAPULT_KATAPULT_API_KEY", "env-key")
	t.Setenv("KATAPULT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "env-key", cfg.Katapult.APIKey)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("KATAPULT_EXTRACT_CONCURRENCY", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Extract.Concurrency)
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

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Katapult.BaseURL = "https://katapultpro.com/api/v2"
	cfg.Katapult.MaxAttempts = 5
	cfg.Katapult.RequestsPerSecond = 2
	cfg.Extract.Concurrency = 1
	cfg.Export.Formats = []string{FormatShapefile, FormatXLSX}
	cfg.Store.Path = "katapult.db"
	return cfg
}

func TestValidateFetch_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Katapult.APIKey = "key"

	assert.NoError(t, cfg.Validate("fetch"))
}

func TestValidateFetch_MissingKey(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("fetch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "katapult.api_key is required")
}

func TestValidateFetch_ConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Katapult.APIKey = "key"

	cfg.Extract.Concurrency = 0
	err := cfg.Validate("fetch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "extract.concurrency must be between 1 and 16")

	cfg.Extract.Concurrency = 17
	assert.Error(t, cfg.Validate("fetch"))

	cfg.Extract.Concurrency = 16
	assert.NoError(t, cfg.Validate("fetch"))
}

func TestValidateOffline_NoStorePath(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Path = ""

	err := cfg.Validate("offline")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.path is required")
}

func TestValidateUnknownFormat(t *testing.T) {
	cfg := validDefaults()
	cfg.Export.Formats = []string{"kml"}

	err := cfg.Validate("offline")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format kml")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestRedacted(t *testing.T) {
	cfg := validDefaults()
	cfg.Katapult.APIKey = "secret"

	red := cfg.Redacted()
	assert.Equal(t, "****", red.Katapult.APIKey)
	assert.Equal(t, "secret", cfg.Katapult.APIKey)
}
