// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the database file (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Valuation
	BaseCurrency string  // Currency all valuations are normalized into
	USDRate      float64 // Fixed USD -> base currency multiplier for USD-denominated markets

	// Price refresh
	RefreshInterval time.Duration // Automatic refresh cadence for held assets
	QuoteTimeout    time.Duration // Per-request timeout against the quote provider

	Backup *BackupConfig
}

// BackupConfig holds S3 database backup configuration.
// Backups are disabled unless bucket and credentials are all set.
type BackupConfig struct {
	Bucket          string
	Endpoint        string // Optional custom endpoint (R2 / MinIO style)
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Schedule        string // Cron spec, defaults to daily
	RetentionDays   int    // Backups older than this are rotated out, 0 keeps all
}

// Enabled reports whether enough configuration is present to run backups
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != "" && b.AccessKeyID != "" && b.SecretAccessKey != ""
}

// Load reads configuration from environment variables.
// A .env file is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("PORTFOY_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		Port:            getEnvAsInt("PORT", 8080),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		BaseCurrency:    getEnv("BASE_CURRENCY", "TRY"),
		USDRate:         getEnvAsFloat("FX_USD_RATE", 43.0),
		RefreshInterval: getEnvAsDuration("REFRESH_INTERVAL", 60*time.Second),
		QuoteTimeout:    getEnvAsDuration("QUOTE_TIMEOUT", 8*time.Second),
		Backup: &BackupConfig{
			Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
			Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
			Region:          getEnv("BACKUP_S3_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
			Schedule:        getEnv("BACKUP_SCHEDULE", "@daily"),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.USDRate <= 0 {
		return fmt.Errorf("FX_USD_RATE must be positive, got %f", c.USDRate)
	}
	if c.RefreshInterval < time.Second {
		return fmt.Errorf("REFRESH_INTERVAL must be at least 1s, got %s", c.RefreshInterval)
	}
	if c.QuoteTimeout <= 0 {
		return fmt.Errorf("QUOTE_TIMEOUT must be positive, got %s", c.QuoteTimeout)
	}
	return nil
}

// DatabasePath returns the path of the portfolio database file
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "portfoy.db")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
