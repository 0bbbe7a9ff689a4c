// ABOUTME: Tests for configuration loading
// ABOUTME: Verifies env expansion, duration parsing, defaults and validation

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MinimalConfigGetsDefaults(t *testing.T) {
	path := writeConfig(t, `
[backend]
url = "http://localhost:8080"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.Backend.URL)
	assert.Equal(t, 15*time.Second, cfg.Backend.RequestTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotEmpty(t, cfg.Database.Path)

	sched := cfg.Schedule()
	assert.Equal(t, 500*time.Millisecond, sched.FastCadence)
	assert.Equal(t, 30*time.Second, sched.WatchdogCeiling)
}

func TestLoad_ParsesDurations(t *testing.T) {
	path := writeConfig(t, `
[backend]
url = "http://localhost:8080"
request_timeout = "3s"

[polling]
fast_cadence = "250ms"
watchdog_ceiling = "45s"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Backend.RequestTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Polling.FastCadence)
	assert.Equal(t, 45*time.Second, cfg.Polling.WatchdogCeiling)
	// Unset fields still get defaults.
	assert.Equal(t, time.Second, cfg.Polling.MediumCadence)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("COVEN_CHAT_TEST_URL", "http://backend.example:9999")
	path := writeConfig(t, `
[backend]
url = "${COVEN_CHAT_TEST_URL}"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://backend.example:9999", cfg.Backend.URL)
}

func TestLoad_MissingURLFails(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "debug"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.url is required")
}

func TestLoad_BadSchemeFails(t *testing.T) {
	path := writeConfig(t, `
[backend]
url = "ftp://nope"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http or https")
}

func TestLoad_BadDurationFails(t *testing.T) {
	path := writeConfig(t, `
[backend]
url = "http://localhost:8080"
request_timeout = "soon"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request_timeout")
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestDefault_IsUsableExceptURL(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate(), "default config has no backend URL")
	cfg.Backend.URL = "http://localhost:8080"
	assert.NoError(t, cfg.Validate())
}
