package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in YAML
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	if cfg.Decimals == 0 {
		cfg.Decimals = 8
	}
	if cfg.Strategy == "" {
		cfg.Strategy = "avg"
	}
	if cfg.RateDifferencePercentThreshold == 0 {
		cfg.RateDifferencePercentThreshold = 25
	}
	if cfg.GroupPercentage == 0 {
		cfg.GroupPercentage = 20
	}
	if cfg.MinSources == 0 {
		cfg.MinSources = 1
	}
	if cfg.RateLifetime == 0 {
		cfg.RateLifetime = 30
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = 10
	}

	// Server defaults
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":36661"
	}
	if cfg.Server.WebSocket.Enabled && cfg.Server.WebSocket.Addr == "" {
		cfg.Server.WebSocket.Addr = ":36662"
	}

	// Metrics defaults
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9091"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}
