package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	DBPath string

	// Vault key custody
	KeyPath string

	// Engine
	WorkerPoolSize int
}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8084"),
		DBPath:         getEnv("ARTHA_DB_PATH", "./data/vault.db"),
		KeyPath:        getEnv("ARTHA_KEY_PATH", "./data/vault.key"),
		WorkerPoolSize: getEnvInt("ARTHA_WORKER_POOL_SIZE", 4),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DBPath == "" {
		errors = append(errors, "database path cannot be empty")
	} else {
		dir := filepath.Dir(c.DBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.KeyPath == "" {
		errors = append(errors, "vault key path cannot be empty")
	}

	if c.WorkerPoolSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid worker pool size %d: must be at least 1", c.WorkerPoolSize))
	} else if c.WorkerPoolSize > 64 {
		errors = append(errors, fmt.Sprintf("invalid worker pool size %d: must be at most 64", c.WorkerPoolSize))
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

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
