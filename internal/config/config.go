package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath   = "ATLAS_CONFIG"
	EnvDatabasePath = "ATLAS_DB"
)

// DefaultDatabasePath is used when neither the environment nor the config
// file names a database file.
const DefaultDatabasePath = "atlas.db"

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from the environment, reading a .env file
// first when one exists next to the binary.
func LoadFromEnv() (AppConfig, error) {
	// Missing .env is the normal case; real variables win over file values.
	_ = godotenv.Load()
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./atlas.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// LoadDatabasePath resolves the SQLite database file location. Precedence:
// ATLAS_DB, then `database-path` or `database.path` from the YAML config
// file, then DefaultDatabasePath. A missing config file is not an error.
func LoadDatabasePath(configPath string) (string, error) {
	if path := strings.TrimSpace(os.Getenv(EnvDatabasePath)); path != "" {
		return path, nil
	}

	// fileConfig maps the YAML fields needed for database resolution.
	type fileConfig struct {
		DatabasePath string `yaml:"database-path"`
		Database     struct {
			Path string `yaml:"path"`
		} `yaml:"database"`
	}

	data, errRead := os.ReadFile(configPath)
	if errRead != nil {
		if os.IsNotExist(errRead) {
			return DefaultDatabasePath, nil
		}
		return "", fmt.Errorf("read config file: %w", errRead)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if path := strings.TrimSpace(cfg.DatabasePath); path != "" {
		return path, nil
	}
	if path := strings.TrimSpace(cfg.Database.Path); path != "" {
		return path, nil
	}
	return DefaultDatabasePath, nil
}
