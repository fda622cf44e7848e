// Package cli provides common initialization for the costtracker binaries.
package cli

import (
	"io"
	"os"

	"github.com/joho/godotenv"

	"costtracker/internal/config"
	"costtracker/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger at cfg's level and makes it the
// slog default.
func SetupLogger(cfg *config.Config, component string, out io.Writer) *log.Logger {
	if out == nil {
		out = os.Stdout
	}
	logger := log.New(log.Config{
		Level:     cfg.SlogLevel(),
		Component: component,
		Output:    out,
	})
	log.SetDefault(logger)
	return logger
}

// LoadConfig loads .env and the environment, then validates the result.
func LoadConfig() (*config.Config, error) {
	LoadEnvFile()
	cfg := config.Load()
	return cfg, cfg.Validate()
}
