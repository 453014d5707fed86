// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"

	"gasx/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Model    ModelConfig
	Export   ExportConfig
}

// DatabaseConfig holds run-ledger connection settings. An empty URL
// disables persistence entirely; the binaries then run in-memory only.
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// ModelConfig holds estimation and simulation defaults
type ModelConfig struct {
	Sims       int
	Seed       uint64
	Iterations int
}

// ExportConfig holds workbook export settings
type ExportConfig struct {
	ExcelFile string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL:     getEnvOrDefault("DATABASE_URL", ""),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
		Model: ModelConfig{
			Sims:       getEnvIntOrDefault("GASX_SIMS", 2000),
			Seed:       uint64(getEnvIntOrDefault("GASX_SEED", 1)),
			Iterations: getEnvIntOrDefault("GASX_ITERATIONS", 1000),
		},
		Export: ExportConfig{
			ExcelFile: getEnvOrDefault("EXCEL_FILE", ""),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Model.Sims < 1 {
		return errors.ConfigInvalid("GASX_SIMS must be positive")
	}
	if config.Model.Iterations < 1 {
		return errors.ConfigInvalid("GASX_ITERATIONS must be positive")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT must not be empty")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
