package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsApplied(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("JWT_SECRET", "test-secret")

	cfg := Load()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, "release", cfg.GinMode)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 3600, cfg.CacheTTLSeconds)
	assert.Equal(t, 5, cfg.UploadMaxSizeMB)
	assert.Equal(t, 60, cfg.UploadOrphanTTLMinute)
	assert.Equal(t, "devlog", cfg.DBName)
	// Redirect base follows the public base URL unless set explicitly.
	assert.Equal(t, cfg.BaseURL, cfg.OAuthRedirectBase)
}

func TestLoad_EnvOverrides(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("BASE_URL", "https://devlog.example")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "120")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("CACHE_TTL_SECONDS", "600")
	t.Setenv("UPLOAD_MAX_SIZE_MB", "10")

	cfg := Load()

	assert.Equal(t, "9000", cfg.AppPort)
	assert.Equal(t, "https://devlog.example", cfg.BaseURL)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 600, cfg.CacheTTLSeconds)
	assert.Equal(t, 10, cfg.UploadMaxSizeMB)
}

func TestGet_CachesLoadedConfig(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("APP_PORT", "9100")

	first := Get()
	require.Equal(t, "9100", first.AppPort)

	// Later env changes are not picked up until Reset.
	t.Setenv("APP_PORT", "9200")
	assert.Equal(t, "9100", Get().AppPort)
}

func TestCacheTTL(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("CACHE_TTL_SECONDS", "90")

	assert.Equal(t, 90*time.Second, CacheTTL())
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a , b ,, "))
	assert.Empty(t, splitAndTrim("  ,  "))
}
