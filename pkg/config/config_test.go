package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_SECRET")

	t.Setenv("AUTH_SECRET", "too-short")
	_, err = Load()
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Server.CookieSecure)
	assert.Equal(t, "fallback", cfg.AI.Provider)
	assert.Equal(t, "postgres", cfg.Storage.Backend)
	assert.Equal(t, 90, cfg.Retention.Days)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TTLs.IST)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TTLs.User)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_SECRET", testSecret)
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("CAPABILITY_TOKEN_TTL_MINUTES", "5")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("RETENTION_DAYS", "7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example.com", "https://staging.example.com"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Server.CookieSecure)
	assert.Equal(t, 5*time.Minute, cfg.Auth.TTLs.AIPT)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TTLs.User, "user TTL untouched")
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 7, cfg.Retention.Days)
}

func TestLoadProviderKeySourcing(t *testing.T) {
	t.Setenv("AUTH_SECRET", testSecret)

	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)

	t.Setenv("AI_PROVIDER", "gemini")
	t.Setenv("GOOGLE_API_KEY", "g-test")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "g-test", cfg.AI.APIKey)
	assert.Equal(t, "gemini-1.5-flash", cfg.AI.Model)

	t.Setenv("GEMINI_MODEL", "gemini-1.5-pro")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro", cfg.AI.Model)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("AUTH_SECRET", testSecret)

	t.Setenv("HTTP_PORT", "not-a-port")
	_, err := Load()
	assert.Error(t, err)
	t.Setenv("HTTP_PORT", "")

	t.Setenv("AI_PROVIDER", "claude")
	_, err = Load()
	assert.Error(t, err)
	t.Setenv("AI_PROVIDER", "")

	t.Setenv("AI_PROVIDER", "openai") // without OPENAI_API_KEY
	_, err = Load()
	assert.Error(t, err)
	t.Setenv("AI_PROVIDER", "")

	t.Setenv("AI_PROVIDER", "gemini") // without GOOGLE_API_KEY
	_, err = Load()
	assert.Error(t, err)
	t.Setenv("AI_PROVIDER", "")

	t.Setenv("STORE_BACKEND", "sqlite")
	_, err = Load()
	assert.Error(t, err)
}
