package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environments accepted by ENV.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// State backends accepted by STATE_BACKEND.
const (
	StateBackendFile     = "file"
	StateBackendMemory   = "memory"
	StateBackendPostgres = "postgres"
)

// Holdings sources accepted by HOLDINGS_SOURCE.
const (
	HoldingsSourceCSV      = "csv"
	HoldingsSourcePostgres = "postgres"
)

// Config holds all configuration for graham
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market data sources
	FRED   FREDConfig
	Yahoo  YahooConfig
	Multpl MultplConfig

	// Persistence
	State    StateConfig
	Holdings HoldingsConfig
	Recorder RecorderConfig

	// Policy file (YAML)
	PolicyPath string

	// Scheduler
	Schedule ScheduleConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host      string
	Port      string
	Password  string
	DB        int
	Enabled   bool
	SignalTTL time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// FREDConfig holds St. Louis Fed (FRED) API configuration
type FREDConfig struct {
	APIKey        string
	BaseURL       string
	RatePerMinute int
}

// YahooConfig holds Yahoo Finance configuration
type YahooConfig struct {
	BaseURL string
}

// MultplConfig holds the multpl.com scraper configuration (Shiller CAPE)
type MultplConfig struct {
	BaseURL string
}

// StateConfig selects where the last accepted equity target lives
type StateConfig struct {
	Backend string // file, memory, postgres
	Path    string
}

// HoldingsConfig selects where holdings are loaded from
type HoldingsConfig struct {
	Source string // csv, postgres
	Path   string
}

// RecorderConfig holds decision history configuration
type RecorderConfig struct {
	SQLitePath string        // empty disables recording
	Retention  time.Duration // history older than this is pruned
}

// ScheduleConfig holds the cron schedule of the advisor job
type ScheduleConfig struct {
	Cron string
}

// Load reads configuration from environment variables
// ⭐ SSOT: only this function calls os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", EnvDevelopment),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 5),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnv("REDIS_PORT", "6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			Enabled:   getEnvAsBool("REDIS_ENABLED", false),
			SignalTTL: getEnvAsDuration("REDIS_SIGNAL_TTL", "1h"),
		},

		// Market data
		FRED: FREDConfig{
			APIKey:        getEnv("FRED_API_KEY", ""),
			BaseURL:       getEnv("FRED_BASE_URL", "https://api.stlouisfed.org"),
			RatePerMinute: getEnvAsInt("FRED_RATE_PER_MINUTE", 100),
		},
		Yahoo: YahooConfig{
			BaseURL: getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
		},
		Multpl: MultplConfig{
			BaseURL: getEnv("MULTPL_BASE_URL", "https://www.multpl.com"),
		},

		// Persistence
		State: StateConfig{
			Backend: getEnv("STATE_BACKEND", StateBackendFile),
			Path:    getEnv("STATE_PATH", filepath.Join("data", "state.json")),
		},
		Holdings: HoldingsConfig{
			Source: getEnv("HOLDINGS_SOURCE", HoldingsSourceCSV),
			Path:   getEnv("HOLDINGS_PATH", filepath.Join("data", "holdings.csv")),
		},
		Recorder: RecorderConfig{
			SQLitePath: getEnv("RECORDER_SQLITE_PATH", ""),
			Retention:  getEnvAsDuration("RECORDER_RETENTION", "8760h"),
		},

		PolicyPath: getEnv("POLICY_PATH", ""),

		Schedule: ScheduleConfig{
			// weekdays after the US close
			Cron: getEnv("SCHEDULE_CRON", "0 30 21 * * 1-5"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks that the combination of values is usable
func (c *Config) validate() error {
	if c.Env != EnvDevelopment && c.Env != EnvStaging && c.Env != EnvProduction {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.State.Backend {
	case StateBackendFile:
		if c.State.Path == "" {
			return fmt.Errorf("STATE_PATH is required for the file state backend")
		}
	case StateBackendMemory:
	case StateBackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres state backend")
		}
	default:
		return fmt.Errorf("STATE_BACKEND must be one of: file, memory, postgres")
	}

	switch c.Holdings.Source {
	case HoldingsSourceCSV:
	case HoldingsSourcePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres holdings source")
		}
	default:
		return fmt.Errorf("HOLDINGS_SOURCE must be one of: csv, postgres")
	}

	if c.FRED.RatePerMinute <= 0 {
		return fmt.Errorf("FRED_RATE_PER_MINUTE must be positive")
	}

	return nil
}

// NeedsDatabase reports whether any configured component uses PostgreSQL
func (c *Config) NeedsDatabase() bool {
	return c.State.Backend == StateBackendPostgres || c.Holdings.Source == HoldingsSourcePostgres
}

// loadEnvFile tries to load .env from the working directory, then next to the executable
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
