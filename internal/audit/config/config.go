package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	MongoURI     string
	Port         string
	DBName       string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LogLevel     string

	AuditLogsCollection  string
	VersionsCollection   string
	PropertiesCollection string
	BookingsCollection   string

	AuditRetentionDays   int
	VersionRetentionDays int
	RetentionSchedule    string
	VersionMaxRetries    int
}

func LoadConfig() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		Port:         getEnv("PORT", "8080"),
		DBName:       getEnv("DB_NAME", "tripaudit"),
		ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		AuditLogsCollection:  getEnv("COLLECTION_AUDIT_LOGS", "audit_logs"),
		VersionsCollection:   getEnv("COLLECTION_VERSIONS", "document_versions"),
		PropertiesCollection: getEnv("COLLECTION_PROPERTIES", "properties"),
		BookingsCollection:   getEnv("COLLECTION_BOOKINGS", "bookings"),

		AuditRetentionDays:   getEnvInt("AUDIT_RETENTION_DAYS", 365),
		VersionRetentionDays: getEnvInt("VERSION_RETENTION_DAYS", 365),
		RetentionSchedule:    getEnv("RETENTION_SCHEDULE", "@daily"),
		VersionMaxRetries:    getEnvInt("VERSION_MAX_RETRIES", 3),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.DBName == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.AuditRetentionDays <= 0 {
		return fmt.Errorf("AUDIT_RETENTION_DAYS must be positive, got %d", c.AuditRetentionDays)
	}
	if c.VersionRetentionDays <= 0 {
		return fmt.Errorf("VERSION_RETENTION_DAYS must be positive, got %d", c.VersionRetentionDays)
	}
	if c.VersionMaxRetries < 0 {
		return fmt.Errorf("VERSION_MAX_RETRIES must not be negative, got %d", c.VersionMaxRetries)
	}
	if _, err := cron.ParseStandard(c.RetentionSchedule); err != nil {
		return fmt.Errorf("invalid RETENTION_SCHEDULE %q: %w", c.RetentionSchedule, err)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	return nil
}

// AuditRetention is how long audit entries live before the TTL index removes them.
func (c *Config) AuditRetention() time.Duration {
	return time.Duration(c.AuditRetentionDays) * 24 * time.Hour
}

// VersionRetention is the default expiry applied to versions that are not kept forever.
func (c *Config) VersionRetention() time.Duration {
	return time.Duration(c.VersionRetentionDays) * 24 * time.Hour
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return fallback
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return fallback
	}
	return val
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	valStr := os.Getenv(key)
	if valStr == "" {
		return fallback
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		// Also accept duration strings such as "10s".
		d, err := time.ParseDuration(valStr)
		if err == nil {
			return d
		}
		return fallback
	}
	return time.Duration(val) * time.Second
}
