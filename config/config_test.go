package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("SECRET_KEY", "s3cret")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 20, cfg.RatePerMinute)
	assert.Equal(t, 100, cfg.RatePerHour)
	assert.Equal(t, 60*time.Second, cfg.RateRetryAfter)
	assert.Equal(t, 2000, cfg.MaxMessageLength)
	assert.Equal(t, 50, cfg.MaxHistoryMessages)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3001"}, cfg.AllowedOrigins)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLMModel)
	assert.False(t, cfg.RequireAPIKey)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("DEBUG", "true")
	t.Setenv("RATE_PER_MINUTE", "5")
	t.Setenv("RATE_RETRY_AFTER", "30")
	t.Setenv("RATE_CLEANUP_EVERY", "1m")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example ")
	t.Setenv("REQUIRE_API_KEY", "true")
	t.Setenv("API_KEY", "abcdefghijklmnopqrstuvwxyz")
	t.Setenv("UPSTREAM_RPS", "2.5")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, 5, cfg.RatePerMinute)
	assert.Equal(t, 30*time.Second, cfg.RateRetryAfter)
	assert.Equal(t, time.Minute, cfg.RateCleanupEvery)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.RequireAPIKey)
	assert.Equal(t, 2.5, cfg.UpstreamRPS)
}

func TestFromEnv_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":          {},
		"bad int":                 {"SECRET_KEY": "x", "RATE_PER_MINUTE": "lots"},
		"bad bool":                {"SECRET_KEY": "x", "DEBUG": "maybe"},
		"bad duration":            {"SECRET_KEY": "x", "UPSTREAM_TIMEOUT": "soon"},
		"require key without key": {"SECRET_KEY": "x", "REQUIRE_API_KEY": "true"},
		"stats without redis":     {"SECRET_KEY": "x", "RATE_STATS_ENABLED": "true"},
		"negative limit":          {"SECRET_KEY": "x", "RATE_PER_HOUR": "-1"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("SECRET_KEY", "")
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SECRET_KEY=from-dotenv\nRATE_PER_HOUR=7\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	// godotenv não sobrescreve o que já está no ambiente; t.Setenv garante
	// que as variáveis voltem ao estado original no fim do teste.
	t.Setenv("SECRET_KEY", "")
	t.Setenv("RATE_PER_HOUR", "")
	require.NoError(t, os.Unsetenv("SECRET_KEY"))
	require.NoError(t, os.Unsetenv("RATE_PER_HOUR"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.SecretKey)
	assert.Equal(t, 7, cfg.RatePerHour)
}
