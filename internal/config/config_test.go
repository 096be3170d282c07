package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "UTC")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, 15, cfg.JWTExpirationMinutes)
	assert.Equal(t, 168, cfg.JWTRefreshExpirationHours)
	assert.Equal(t, 10*time.Second, cfg.RepositoryTimeout)
	assert.Equal(t, "UTC", cfg.TimeZone.String())
	assert.Equal(t, "gemini-1.5-pro", cfg.Gemini.Model)
	assert.Contains(t, cfg.Database.DSN, "@tcp(localhost:3306)/medicheck")
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("PORT", "8080")
	t.Setenv("APP_ENV", "production")
	t.Setenv("REPOSITORY_TIMEOUT_SECONDS", "3")
	t.Setenv("DB_NAME", "other")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 3*time.Second, cfg.RepositoryTimeout)
	assert.Contains(t, cfg.Database.DSN, "/other?")
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non numeric jwt expiry", "JWT_EXPIRATION_MINUTES", "soon"},
		{"non numeric refresh expiry", "JWT_REFRESH_EXPIRATION_HOURS", "week"},
		{"zero timeout", "REPOSITORY_TIMEOUT_SECONDS", "0"},
		{"unknown zone", "APP_TIMEZONE", "Mars/Olympus_Mons"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_TIMEZONE", "UTC")
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
