package config

import (
	"fmt"
	"strings"
)

var knownStrategies = map[string]bool{
	"avg":      true,
	"min":      true,
	"max":      true,
	"priority": true,
	"weight":   true,
}

// Validate checks configuration for errors
func Validate(cfg *Config) error {
	if !knownStrategies[cfg.Strategy] {
		return fmt.Errorf("%w: %s (supported: avg, min, max, priority, weight)", ErrUnknownStrategy, cfg.Strategy)
	}
	if cfg.Decimals < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDecimals, cfg.Decimals)
	}
	if cfg.RateDifferencePercentThreshold <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, cfg.RateDifferencePercentThreshold)
	}
	if cfg.GroupPercentage <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidGroupPercentage, cfg.GroupPercentage)
	}
	if cfg.MinSources < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidMinSources, cfg.MinSources)
	}
	if cfg.RateLifetime < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidRateLifetime, cfg.RateLifetime)
	}
	if cfg.RefreshInterval < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidRefreshInterval, cfg.RefreshInterval)
	}
	if len(cfg.BaseCoins) == 0 {
		return ErrNoBaseCoins
	}
	if cfg.History.DSN == "" {
		return ErrHistoryDSNRequired
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	switch strings.ToLower(cfg.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("%w: %s", ErrInvalidLogLevel, cfg.Level)
	}

	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("%w: %s", ErrInvalidLogFormat, cfg.Format)
	}

	return nil
}
