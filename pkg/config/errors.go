// Package config provides configuration loading and validation for currencyinfo.
package config

import "errors"

var (
	// ErrUnknownStrategy indicates that the merge strategy is unknown.
	ErrUnknownStrategy = errors.New("unknown strategy")
	// ErrInvalidDecimals indicates that decimals must be >= 0.
	ErrInvalidDecimals = errors.New("decimals must be >= 0")
	// ErrInvalidThreshold indicates that the rate difference threshold is invalid.
	ErrInvalidThreshold = errors.New("rate_difference_percent_threshold must be > 0")
	// ErrInvalidGroupPercentage indicates that the group percentage is invalid.
	ErrInvalidGroupPercentage = errors.New("group_percentage must be > 0")
	// ErrInvalidMinSources indicates that min_sources must be >= 1.
	ErrInvalidMinSources = errors.New("min_sources must be >= 1")
	// ErrInvalidRateLifetime indicates that rate_lifetime must be >= 1.
	ErrInvalidRateLifetime = errors.New("rate_lifetime must be >= 1 minute")
	// ErrInvalidRefreshInterval indicates that refresh_interval must be >= 1.
	ErrInvalidRefreshInterval = errors.New("refresh_interval must be >= 1 minute")
	// ErrNoBaseCoins indicates that at least one base coin must be configured.
	ErrNoBaseCoins = errors.New("at least one base coin must be configured")
	// ErrInvalidLogLevel indicates that the log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat indicates that the log format is invalid.
	ErrInvalidLogFormat = errors.New("invalid log format")
	// ErrHistoryDSNRequired indicates that the history database DSN is missing.
	ErrHistoryDSNRequired = errors.New("history.dsn must be specified")
)
