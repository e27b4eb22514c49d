package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Portal   PortalConfig
	Queue    QueueConfig
	Cache    CacheConfig
	Lock     LockConfig
	Reminder ReminderConfig
	OTEL     OTELConfig

	// QueueSecret guards the internal callback endpoints.
	QueueSecret string

	// Timezone is the IANA zone appointments are interpreted in.
	Timezone string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// PortalConfig holds scheduling portal driver configuration. An empty
// BaseURL selects the mock driver.
type PortalConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// QueueConfig holds job queue and execution agent configuration
type QueueConfig struct {
	MaxAttempts    int
	BackoffBase    time.Duration
	BackoffCap     time.Duration
	DedupTTL       time.Duration
	DequeueTimeout time.Duration
	Concurrency    int
}

// CacheConfig holds slot cache refresh configuration. Providers is the
// comma-separated list of provider ids to refresh.
type CacheConfig struct {
	ClinicID        string
	Providers       []string
	RefreshInterval time.Duration
	HorizonMonths   int
}

// LockConfig holds reservation lock configuration
type LockConfig struct {
	TTL time.Duration
}

// ReminderConfig holds reminder scheduling configuration
type ReminderConfig struct {
	Lead          time.Duration
	SweepInterval time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "bookingcore"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Portal: PortalConfig{
			BaseURL:  getEnv("PORTAL_BASE_URL", ""),
			Username: getEnv("PORTAL_USERNAME", ""),
			Password: getEnv("PORTAL_PASSWORD", ""),
			Timeout:  getEnvAsDuration("PORTAL_TIMEOUT", 45*time.Second),
		},
		Queue: QueueConfig{
			MaxAttempts:    getEnvAsInt("QUEUE_MAX_ATTEMPTS", 5),
			BackoffBase:    getEnvAsDuration("QUEUE_BACKOFF_BASE", 1*time.Second),
			BackoffCap:     getEnvAsDuration("QUEUE_BACKOFF_CAP", 30*time.Second),
			DedupTTL:       getEnvAsDuration("QUEUE_DEDUP_TTL", 6*time.Hour),
			DequeueTimeout: getEnvAsDuration("QUEUE_DEQUEUE_TIMEOUT", 5*time.Second),
			Concurrency:    getEnvAsInt("QUEUE_CONCURRENCY", 1),
		},
		Cache: CacheConfig{
			ClinicID:        getEnv("CLINIC_ID", "main"),
			Providers:       getEnvAsSlice("CLINIC_PROVIDERS", []string{"default"}),
			RefreshInterval: getEnvAsDuration("CACHE_REFRESH_INTERVAL", 5*time.Minute),
			HorizonMonths:   getEnvAsInt("CACHE_HORIZON_MONTHS", 3),
		},
		Lock: LockConfig{
			TTL: getEnvAsDuration("LOCK_TTL", 20*time.Second),
		},
		Reminder: ReminderConfig{
			Lead:          getEnvAsDuration("REMINDER_LEAD", 1*time.Hour),
			SweepInterval: getEnvAsDuration("REMINDER_SWEEP_INTERVAL", 1*time.Minute),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "bookingcore"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		QueueSecret: getEnv("QUEUE_SECRET", ""),
		Timezone:    getEnv("CLINIC_TIMEZONE", "Asia/Riyadh"),
	}, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Location resolves the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
