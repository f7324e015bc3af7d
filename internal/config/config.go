// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	DataDir      string // base directory for the embedded database
	DatabasePath string // path to trading_system.db

	LogLevel string
	DevMode  bool

	UpdateIntervalSec      int  // streaming.updateIntervalSec
	MaxWorkers             int  // streaming.maxWorkers
	ConnectionTimeoutSec   int  // streaming.connectionTimeoutSec
	FallbackToSimulated    bool // streaming.fallbackToSimulated
	RateLimitExchangeSec   int  // streaming.rateLimit.exchange
	RateLimitAggregatorSec int  // streaming.rateLimit.aggregator

	MaxConcurrentSignals  int     // trading.maxConcurrentSignals
	DefaultStopLossPct    float64 // trading.defaultStopLossPct
	DefaultTakeProfitPct  float64 // trading.defaultTakeProfitPct
	SignalExpiryHours     int     // trading.signalExpiryHours (unactivated)
	MinConfidenceThresh   float64 // trading.minConfidenceThreshold
	CleanupRetentionDays  int     // database.cleanupDays
	AnalyticsHistoryDays  int     // analytics.historyDays
}

// Load reads configuration from environment variables, falling back to a
// .env file and then hardcoded defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "")
	if dataDir == "" {
		if _, err := os.Stat("../data"); err == nil {
			dataDir = "../data"
		} else if _, err := os.Stat("./data"); err == nil {
			dataDir = "./data"
		} else {
			dataDir = "./data"
		}
	}

	databasePath := getEnv("DATABASE_PATH", "")
	if databasePath == "" {
		databasePath = dataDir + "/trading_system.db"
	}

	cfg := &Config{
		DataDir:      dataDir,
		DatabasePath: databasePath,
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DevMode:      getEnvAsBool("DEV_MODE", false),

		UpdateIntervalSec:      getEnvAsInt("STREAMING_UPDATE_INTERVAL_SEC", 5),
		MaxWorkers:             getEnvAsInt("STREAMING_MAX_WORKERS", 5),
		ConnectionTimeoutSec:   getEnvAsInt("STREAMING_CONNECTION_TIMEOUT_SEC", 10),
		FallbackToSimulated:    getEnvAsBool("STREAMING_FALLBACK_TO_SIMULATED", true),
		RateLimitExchangeSec:   getEnvAsInt("STREAMING_RATE_LIMIT_EXCHANGE_SEC", 1),
		RateLimitAggregatorSec: getEnvAsInt("STREAMING_RATE_LIMIT_AGGREGATOR_SEC", 10),

		MaxConcurrentSignals: getEnvAsInt("TRADING_MAX_CONCURRENT_SIGNALS", 10),
		DefaultStopLossPct:   getEnvAsFloat("TRADING_DEFAULT_STOP_LOSS_PCT", 0.03),
		DefaultTakeProfitPct: getEnvAsFloat("TRADING_DEFAULT_TAKE_PROFIT_PCT", 0.06),
		SignalExpiryHours:    getEnvAsInt("TRADING_SIGNAL_EXPIRY_HOURS", 24),
		MinConfidenceThresh:  getEnvAsFloat("TRADING_MIN_CONFIDENCE_THRESHOLD", 0.0),
		CleanupRetentionDays: getEnvAsInt("DATABASE_CLEANUP_DAYS", 30),
		AnalyticsHistoryDays: getEnvAsInt("ANALYTICS_HISTORY_DAYS", 7),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present and well-formed.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.UpdateIntervalSec < 1 {
		return fmt.Errorf("STREAMING_UPDATE_INTERVAL_SEC must be >= 1")
	}
	if c.MaxWorkers < 1 || c.MaxWorkers > 20 {
		return fmt.Errorf("STREAMING_MAX_WORKERS must be between 1 and 20")
	}
	if c.CleanupRetentionDays < 1 {
		return fmt.Errorf("DATABASE_CLEANUP_DAYS must be >= 1")
	}
	return nil
}

// ApplyOverride updates a recognized configuration key (§6 of the
// specification) from a persisted configurations-table value, the same
// env-then-settings layering the reference stack uses for credentials.
func (c *Config) ApplyOverride(key, value string) error {
	switch key {
	case "streaming.updateIntervalSec":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if v < 1 {
			return fmt.Errorf("%s must be >= 1", key)
		}
		c.UpdateIntervalSec = v
	case "streaming.maxWorkers":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if v < 1 || v > 20 {
			return fmt.Errorf("%s must be between 1 and 20", key)
		}
		c.MaxWorkers = v
	case "streaming.fallbackToSimulated":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		c.FallbackToSimulated = v
	case "trading.maxConcurrentSignals":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		c.MaxConcurrentSignals = v
	case "trading.signalExpiryHours":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		c.SignalExpiryHours = v
	case "trading.minConfidenceThreshold":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		c.MinConfidenceThresh = v
	case "database.cleanupDays":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if v < 1 {
			return fmt.Errorf("%s must be >= 1", key)
		}
		c.CleanupRetentionDays = v
	default:
		// Unrecognized key: ignored, not an error (forward compatibility).
	}
	return nil
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
