// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// ExtractionConfig provides settings for the extraction agent.
type ExtractionConfig interface {
	GetExtractionAPIKey() string
	GetExtractionBaseURL() string
	GetExtractionModel() string
	GetExtractionTimeout() time.Duration
	GetExtractionRatePerMinute() int
}

// SyncConfig provides settings for the reconciliation sync cycle.
type SyncConfig interface {
	GetSyncBatchSize() int
	GetSyncFanOut() int
	GetSyncAutoApprove() bool
}

// MailboxConfig provides settings for the IMAP mailbox source.
type MailboxConfig interface {
	GetIMAPHost() string
	GetIMAPPort() int
	GetIMAPUsername() string
	GetIMAPPassword() string
	GetIMAPFolder() string
	IsMailboxEnabled() bool
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetSyncInterval() time.Duration
}

// PhoneConfig provides settings for phone number normalization.
type PhoneConfig interface {
	GetDefaultPhoneRegion() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                     string
	HTTPAddr                string
	DatabaseURL             string
	JWTAccessSecret         string
	CORSAllowAll            bool
	CORSOrigins             []string
	CORSAllowCreds          bool
	ExtractionAPIKey        string
	ExtractionBaseURL       string
	ExtractionModel         string
	ExtractionTimeout       time.Duration
	ExtractionRatePerMinute int
	SyncBatchSize           int
	SyncFanOut              int
	SyncAutoApprove         bool
	IMAPHost                string
	IMAPPort                int
	IMAPUsername            string
	IMAPPassword            string
	IMAPFolder              string
	RedisURL                string
	AsynqQueueName          string
	AsynqConcurrency        int
	SyncInterval            time.Duration
	DefaultPhoneRegion      string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// ExtractionConfig implementation
func (c *Config) GetExtractionAPIKey() string            { return c.ExtractionAPIKey }
func (c *Config) GetExtractionBaseURL() string           { return c.ExtractionBaseURL }
func (c *Config) GetExtractionModel() string             { return c.ExtractionModel }
func (c *Config) GetExtractionTimeout() time.Duration    { return c.ExtractionTimeout }
func (c *Config) GetExtractionRatePerMinute() int        { return c.ExtractionRatePerMinute }

// SyncConfig implementation
func (c *Config) GetSyncBatchSize() int     { return c.SyncBatchSize }
func (c *Config) GetSyncFanOut() int        { return c.SyncFanOut }
func (c *Config) GetSyncAutoApprove() bool  { return c.SyncAutoApprove }

// MailboxConfig implementation
func (c *Config) GetIMAPHost() string     { return c.IMAPHost }
func (c *Config) GetIMAPPort() int        { return c.IMAPPort }
func (c *Config) GetIMAPUsername() string { return c.IMAPUsername }
func (c *Config) GetIMAPPassword() string { return c.IMAPPassword }
func (c *Config) GetIMAPFolder() string   { return c.IMAPFolder }
func (c *Config) IsMailboxEnabled() bool {
	return c.IMAPHost != "" && c.IMAPUsername != ""
}

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string           { return c.RedisURL }
func (c *Config) GetAsynqQueueName() string     { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int      { return c.AsynqConcurrency }
func (c *Config) GetSyncInterval() time.Duration { return c.SyncInterval }

// PhoneConfig implementation
func (c *Config) GetDefaultPhoneRegion() string { return c.DefaultPhoneRegion }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		HTTPAddr:                getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		JWTAccessSecret:         getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:            corsAllowAll,
		CORSOrigins:             corsOrigins,
		CORSAllowCreds:          strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		ExtractionAPIKey:        getEnv("EXTRACTION_API_KEY", ""),
		ExtractionBaseURL:       getEnv("EXTRACTION_BASE_URL", ""),
		ExtractionModel:         getEnv("EXTRACTION_MODEL", ""),
		ExtractionTimeout:       mustDuration(getEnv("EXTRACTION_TIMEOUT", "90s")),
		ExtractionRatePerMinute: mustInt(getEnv("EXTRACTION_RATE_PER_MINUTE", "30")),
		SyncBatchSize:           mustInt(getEnv("SYNC_BATCH_SIZE", "25")),
		SyncFanOut:              mustInt(getEnv("SYNC_FAN_OUT", "3")),
		SyncAutoApprove:         strings.EqualFold(getEnv("SYNC_AUTO_APPROVE", "false"), "true"),
		IMAPHost:                getEnv("IMAP_HOST", ""),
		IMAPPort:                mustInt(getEnv("IMAP_PORT", "993")),
		IMAPUsername:            getEnv("IMAP_USERNAME", ""),
		IMAPPassword:            getEnv("IMAP_PASSWORD", ""),
		IMAPFolder:              getEnv("IMAP_FOLDER", "INBOX"),
		RedisURL:                getEnv("REDIS_URL", ""),
		AsynqQueueName:          getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:        mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		SyncInterval:            mustDuration(getEnv("SYNC_INTERVAL", "5m")),
		DefaultPhoneRegion:      getEnv("DEFAULT_PHONE_REGION", "US"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.SyncBatchSize < 1 {
		return nil, fmt.Errorf("SYNC_BATCH_SIZE must be at least 1")
	}
	if cfg.SyncFanOut < 1 {
		return nil, fmt.Errorf("SYNC_FAN_OUT must be at least 1")
	}
	if cfg.ExtractionTimeout <= 0 {
		return nil, fmt.Errorf("EXTRACTION_TIMEOUT must be a positive duration")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
