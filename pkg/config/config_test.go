package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func noEnv(string) (string, bool) { return "", false }

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, 1, cfg.Retries())
	assert.Equal(t, time.Second, cfg.OverviewDelay())
	assert.Equal(t, ":8080", cfg.Listen)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileKeepsExplicitZeroes(t *testing.T) {
	path := writeFile(t, "logdash.yaml", strings.Join([]string{
		"base_url: http://backend:5000/api/",
		"timeout: 3s",
		"max_retries: 0",
		"bootstrap_overview_delay: 0s",
		"log_format: json",
	}, "\n"))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://backend:5000/api", cfg.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, 0, cfg.Retries())
	assert.Equal(t, time.Duration(0), cfg.OverviewDelay())
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader("base_url: http://x\nport: 1\n"))
	require.Error(t, err)

	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Config{}, cfg)
}

func TestApplyEnvOverrides(t *testing.T) {
	values := map[string]string{
		"LOGDASH_BASE_URL":                 "http://env:5000/api",
		"LOGDASH_MAX_RETRIES":              "3",
		"LOGDASH_BOOTSTRAP_OVERVIEW_DELAY": "250ms",
		"LOGDASH_LOG_LEVEL":                "DEBUG",
		"LOGDASH_LISTEN":                   "  ",
	}
	lookup := func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
	cfg := Config{Listen: ":9000"}
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "http://env:5000/api", cfg.BaseURL)
	assert.Equal(t, 3, cfg.Retries())
	assert.Equal(t, 250*time.Millisecond, cfg.OverviewDelay())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9000", cfg.Listen, "blank values do not override")

	bad := func(key string) (string, bool) {
		if key == "LOGDASH_TIMEOUT" {
			return "soon", true
		}
		return "", false
	}
	require.Error(t, cfg.ApplyEnv(bad))
	require.NoError(t, cfg.ApplyEnv(noEnv))
}

func TestValidateReportsFields(t *testing.T) {
	cfg := Default()
	retries := 9
	cfg.MaxRetries = &retries
	cfg.LogFormat = "xml"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MaxRetries")
	assert.Contains(t, err.Error(), "LogFormat")

	cfg = Default()
	cfg.BaseURL = "not a url"
	require.Error(t, cfg.Validate())
}

func TestLoadEnvFileDoesNotOverrideProcessEnv(t *testing.T) {
	t.Setenv("LOGDASH_LISTEN", "")
	require.NoError(t, os.Unsetenv("LOGDASH_LISTEN"))
	t.Setenv("LOGDASH_LOG_LEVEL", "warn")

	envFile := writeFile(t, ".env", "LOGDASH_LISTEN=127.0.0.1:7070\nLOGDASH_LOG_LEVEL=trace\n")
	cfg, err := Load("", envFile, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7070", cfg.Listen)
	assert.Equal(t, "warn", cfg.LogLevel)
}
