package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port              string   `yaml:"port"`
	DatabaseURL       string   `yaml:"databaseURL"`
	LogLevel          string   `yaml:"logLevel"`
	TokenSecret       string   `yaml:"tokenSecret"`
	SeedAdminName     string   `yaml:"seedAdminName"`
	SeedAdminEmail    string   `yaml:"seedAdminEmail"`
	SeedAdminPassword string   `yaml:"seedAdminPassword"`
	Courses           []string `yaml:"courses"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("TOKEN_SECRET"); v != "" {
		cfg.TokenSecret = v
	}
	if v := os.Getenv("SEED_ADMIN_EMAIL"); v != "" {
		cfg.SeedAdminEmail = v
	}
	if v := os.Getenv("SEED_ADMIN_PASSWORD"); v != "" {
		cfg.SeedAdminPassword = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set DATABASE_URL)")
	}
	if cfg.TokenSecret == "" {
		return errors.New("config: tokenSecret is required (set TOKEN_SECRET)")
	}
	if cfg.SeedAdminEmail == "" {
		return errors.New("config: seedAdminEmail is required (set SEED_ADMIN_EMAIL)")
	}
	if cfg.SeedAdminPassword == "" {
		return errors.New("config: seedAdminPassword is required (set SEED_ADMIN_PASSWORD)")
	}
	return nil
}
