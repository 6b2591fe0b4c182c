package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("TIDY_CACHE_DIR", "/tmp/tidytable-test-cache")
	t.Setenv("TIDY_HTTP_TIMEOUT", "")
	t.Setenv("TIDY_RATE_RPS", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 2.0, cfg.RateLimitRPS)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "/tmp/tidytable-test-cache", cfg.CacheDir)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("TIDY_HTTP_TIMEOUT", "90s")
	t.Setenv("TIDY_RATE_RPS", "0.5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 0.5, cfg.RateLimitRPS)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadFromEnv_BadTimeout(t *testing.T) {
	t.Setenv("TIDY_HTTP_TIMEOUT", "ninety seconds")
	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestLoadFromEnv_BadRateWarns(t *testing.T) {
	t.Setenv("TIDY_RATE_RPS", "-3")
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.RateLimitRPS, "bad rate falls back to the default")
	assert.NotEmpty(t, cfg.Warnings)
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		cfg := &Config{LogLevel: in}
		assert.Equal(t, want, cfg.SlogLevel(), in)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	body := "# comment\n\nTIDY_TEST_A=plain\nTIDY_TEST_B=\"quoted value\"\nnot a pair\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o640))

	t.Setenv("TIDY_TEST_A", "")
	t.Setenv("TIDY_TEST_B", "")
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "plain", os.Getenv("TIDY_TEST_A"))
	assert.Equal(t, "quoted value", os.Getenv("TIDY_TEST_B"))
}

func TestLoadDotEnv_EnvTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TIDY_TEST_C=file\n"), 0o640))

	t.Setenv("TIDY_TEST_C", "env")
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "env", os.Getenv("TIDY_TEST_C"))
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}
