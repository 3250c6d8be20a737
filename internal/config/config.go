package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Database
	SQLiteDBPath string

	// AMQP; an empty URL disables event publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets ledger export
	GoogleSpreadsheetID string
	LedgerSheetName     string

	// Logging
	LogLevel string

	// Worker dedupe cache
	DedupeCacheSize      int
	DedupeTTL            time.Duration
	CacheCleanupInterval time.Duration

	// Backend selection
	DataBackend string
}

func Load() *Config {
	cfg := &Config{
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		LedgerSheetName:     getEnv("LEDGER_SHEET_NAME", "Ledger"),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		DedupeCacheSize:      getEnvInt("DEDUPE_CACHE_SIZE", 10000),
		DedupeTTL:            getEnvDuration("DEDUPE_TTL", 24*time.Hour),
		CacheCleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 10*time.Minute),

		DataBackend: getEnv("DATA_BACKEND", "sqlite"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string
	errors = append(errors, c.storeErrors()...)
	errors = append(errors, c.eventErrors()...)
	errors = append(errors, c.exportErrors()...)
	errors = append(errors, c.logErrors()...)
	return combine(errors)
}

// ValidateStore checks only the keys needed to open the data backend.
func (c *Config) ValidateStore() error {
	return combine(append(c.storeErrors(), c.logErrors()...))
}

// ValidateWorker checks the keys the export worker reads. AMQP is required
// there; the data backend is never opened.
func (c *Config) ValidateWorker() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required for the ledger worker")
	}
	errors = append(errors, c.eventErrors()...)
	errors = append(errors, c.exportErrors()...)
	errors = append(errors, c.logErrors()...)
	return combine(errors)
}

func combine(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) storeErrors() []string {
	var errors []string

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}
	return errors
}

func (c *Config) eventErrors() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errors []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errors
}

func (c *Config) exportErrors() []string {
	var errors []string

	// The sheet name is only needed when a spreadsheet is configured
	if c.GoogleSpreadsheetID != "" && strings.TrimSpace(c.LedgerSheetName) == "" {
		errors = append(errors, "ledger sheet name is required when GOOGLE_SPREADSHEET_ID is set")
	}

	if c.DedupeCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid dedupe cache size %d: must be at least 1", c.DedupeCacheSize))
	} else if c.DedupeCacheSize > 1_000_000 {
		errors = append(errors, fmt.Sprintf("invalid dedupe cache size %d: must be at most 1000000", c.DedupeCacheSize))
	}
	if c.DedupeTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid dedupe TTL %v: must be at least 1 minute", c.DedupeTTL))
	}
	if c.CacheCleanupInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache cleanup interval %v: must be at least 1 second", c.CacheCleanupInterval))
	} else if c.CacheCleanupInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache cleanup interval %v: must be at most 24 hours", c.CacheCleanupInterval))
	}
	return errors
}

func (c *Config) logErrors() []string {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return []string{fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel)}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
