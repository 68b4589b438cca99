package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  allowed_origins:
    - https://app.example.com
storage:
  database_path: /tmp/test.db
matching:
  scan_limit: 100
  lookback_days: 14
observability:
  logging:
    level: debug
    format: json
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/tmp/test.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 100, cfg.Matching.ScanLimit)
	assert.Equal(t, 14, cfg.Matching.LookbackDays)
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)
	assert.Equal(t, "json", cfg.Observability.Logging.Format)
}

func TestLoad_PartialFileGetsDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: /tmp/partial.db
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "/tmp/partial.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 200, cfg.Matching.ScanLimit)
	assert.Equal(t, 30, cfg.Matching.LookbackDays)
	assert.Equal(t, 7, cfg.Matching.WindowPadDays)
	assert.Equal(t, 14, cfg.Matching.AutoMatchWindowDays)
	assert.Equal(t, "info", cfg.Observability.Logging.Level)
	assert.Equal(t, "text", cfg.Observability.Logging.Format)
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_DB_DIR", "/var/data")
	path := writeConfig(t, `
storage:
  database_path: ${TEST_DB_DIR}/planmatch.db
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "/var/data/planmatch.db", cfg.Storage.DatabasePath)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not: valid")

	_, err := Load(path)

	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PLANMATCH_PORT", "7070")
	t.Setenv("PLANMATCH_DB_PATH", "/tmp/env.db")
	t.Setenv("PLANMATCH_SCAN_LIMIT", "75")
	t.Setenv("PLANMATCH_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg := LoadFromEnv()

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/tmp/env.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 75, cfg.Matching.ScanLimit)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg := LoadFromEnv()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "planmatch.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 200, cfg.Matching.ScanLimit)
	assert.Equal(t, 30, cfg.Matching.LookbackDays)
}

func TestLoadOrEnvWithPath_FallsBackToEnv(t *testing.T) {
	t.Setenv("PLANMATCH_PORT", "6060")

	cfg := LoadOrEnvWithPath(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Equal(t, 6060, cfg.Server.Port)
}
