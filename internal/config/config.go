package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// MinSessionSecretLen is the shortest accepted SESSION_SECRET, in bytes.
	MinSessionSecretLen = 32
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Sessions
	SessionSecret        string
	SessionSweepInterval time.Duration

	// Runtime
	Environment string
	LogLevel    string

	// AMQP (optional, empty URL disables cost events)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "3400"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/costtracker.db"),

		SessionSecret:        getEnv("SESSION_SECRET", ""),
		SessionSweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", time.Hour),

		Environment: strings.ToLower(getEnv("APP_ENV", getEnv("NODE_ENV", EnvDevelopment))),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "costtracker"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "cost_events"),
	}

	return cfg
}

// Production reports whether cookies must be marked Secure.
func (c *Config) Production() bool {
	return c.Environment == EnvProduction
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// SlogLevel maps LogLevel onto slog, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.SessionSecret == "" {
		errors = append(errors, "SESSION_SECRET is required")
	} else if len(c.SessionSecret) < MinSessionSecretLen {
		errors = append(errors, fmt.Sprintf("SESSION_SECRET too short: %d bytes, need at least %d", len(c.SessionSecret), MinSessionSecretLen))
	}

	if c.SessionSweepInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session sweep interval %v: must be at least 1 minute", c.SessionSweepInterval))
	} else if c.SessionSweepInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid session sweep interval %v: must be at most 24 hours", c.SessionSweepInterval))
	}

	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		errors = append(errors, fmt.Sprintf("invalid environment '%s': must be '%s' or '%s'", c.Environment, EnvDevelopment, EnvProduction))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if c.AMQPURL != "" {
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
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
