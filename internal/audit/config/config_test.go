package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("DB_NAME", "tripaudit")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("RETENTION_SCHEDULE", "@daily")
	// Empty numeric values fall back to defaults.
	t.Setenv("AUDIT_RETENTION_DAYS", "")
	t.Setenv("VERSION_RETENTION_DAYS", "")
	t.Setenv("VERSION_MAX_RETRIES", "")
	t.Setenv("SERVER_READ_TIMEOUT", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 365, cfg.AuditRetentionDays)
	assert.Equal(t, 365, cfg.VersionRetentionDays)
	assert.Equal(t, 3, cfg.VersionMaxRetries)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 365*24*time.Hour, cfg.VersionRetention())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("DB_NAME", "audit")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("AUDIT_RETENTION_DAYS", "30")
	t.Setenv("VERSION_RETENTION_DAYS", "90")
	t.Setenv("RETENTION_SCHEDULE", "0 3 * * *")
	t.Setenv("VERSION_MAX_RETRIES", "5")
	t.Setenv("SERVER_READ_TIMEOUT", "2m")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "mongodb://db:27017", cfg.MongoURI)
	assert.Equal(t, 30*24*time.Hour, cfg.AuditRetention())
	assert.Equal(t, 90, cfg.VersionRetentionDays)
	assert.Equal(t, 5, cfg.VersionMaxRetries)
	assert.Equal(t, 2*time.Minute, cfg.ReadTimeout)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			MongoURI:             "mongodb://localhost:27017",
			DBName:               "tripaudit",
			LogLevel:             "info",
			AuditRetentionDays:   1,
			VersionRetentionDays: 1,
			RetentionSchedule:    "@hourly",
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing uri", func(c *Config) { c.MongoURI = "" }},
		{"missing db", func(c *Config) { c.DBName = "" }},
		{"zero audit retention", func(c *Config) { c.AuditRetentionDays = 0 }},
		{"negative version retention", func(c *Config) { c.VersionRetentionDays = -1 }},
		{"negative retries", func(c *Config) { c.VersionMaxRetries = -1 }},
		{"bad schedule", func(c *Config) { c.RetentionSchedule = "every tuesday" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
