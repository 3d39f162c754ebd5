package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv sets the minimum environment Load accepts
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "spark")
	t.Setenv("DB_NAME", "captainspark")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CMS_PASSWORD", "editor")
	for _, key := range []string{"CMS_PASSWORD_HASH", "GCS_BUCKET", "DB_PORT", "REDIS_HOST", "REDIS_PORT", "STORAGE_DRIVER", "PROGRESS_SYNC", "COOKIE_SECURE", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Server.SecureCookies)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 15*time.Minute, cfg.JWT.MagicLinkExpiry)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, 70, cfg.Player.XPReward)
	assert.Equal(t, 400*time.Millisecond, cfg.Player.FadeDuration)
	assert.Equal(t, "queue", cfg.Queue.ProgressSync)
	assert.Equal(t, "0 * * * *", cfg.Schedule.MagicLinkCleanup)
	assert.Equal(t, "spark:@tcp(db:3306)/captainspark?parseTime=true&charset=utf8mb4&clientFoundRows=true&multiStatements=true", cfg.DSN())
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://cms.example.com")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("PROGRESS_SYNC", "inline")
	t.Setenv("FADE_DURATION", "250ms")
	t.Setenv("XP_REWARD", "100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://app.example.com", "https://cms.example.com"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.Server.SecureCookies)
	assert.Equal(t, "inline", cfg.Queue.ProgressSync)
	assert.Equal(t, 250*time.Millisecond, cfg.Player.FadeDuration)
	assert.Equal(t, 100, cfg.Player.XPReward)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "missing database host", key: "DB_HOST", value: ""},
		{name: "missing jwt secret", key: "JWT_SECRET", value: ""},
		{name: "missing cms password", key: "CMS_PASSWORD", value: ""},
		{name: "invalid port", key: "DB_PORT", value: "abc"},
		{name: "invalid duration", key: "MAGIC_LINK_EXPIRY", value: "soon"},
		{name: "invalid cookie flag", key: "COOKIE_SECURE", value: "maybe"},
		{name: "unknown progress sync", key: "PROGRESS_SYNC", value: "later"},
		{name: "gcs without bucket", key: "STORAGE_DRIVER", value: "gcs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()

			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}
