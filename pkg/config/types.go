package config

// Config is the root configuration structure
type Config struct {
	// Formatting
	Decimals int32 `yaml:"decimals"`

	// Reconciliation
	Strategy                       string   `yaml:"strategy"`
	RateDifferencePercentThreshold float64  `yaml:"rate_difference_percent_threshold"`
	GroupPercentage                float64  `yaml:"group_percentage"`
	MinSources                     int      `yaml:"min_sources"`
	Priorities                     []string `yaml:"priorities"`

	// RateLifetime is the maximum sample age in minutes eligible for merging
	RateLifetime int64 `yaml:"rate_lifetime"`
	// RefreshInterval is the update cycle period in minutes
	RefreshInterval int64 `yaml:"refresh_interval"`

	BaseCoins []string          `yaml:"base_coins"`
	Mappings  map[string]string `yaml:"mappings"`

	Server  ServerConfig  `yaml:"server"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
	Notify  NotifyConfig  `yaml:"notify"`
	History HistoryConfig `yaml:"history"`
	Sources SourcesConfig `yaml:"sources"`
}

// ServerConfig configures the HTTP read API
type ServerConfig struct {
	Addr      string   `yaml:"addr"`
	WebSocket WSConfig `yaml:"websocket"`
}

// WSConfig configures the WebSocket streaming server
type WSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// NotifyConfig lists webhook destinations for anomaly notifications
type NotifyConfig struct {
	Slack   []string `yaml:"slack"`
	Discord []string `yaml:"discord"`
}

// HistoryConfig configures the history database
type HistoryConfig struct {
	DSN string `yaml:"dsn"`
}

// SourcesConfig holds per-provider settings
type SourcesConfig struct {
	CurrencyAPI      SourceConfig `yaml:"currencyapi"`
	ExchangeRateHost SourceConfig `yaml:"exchange_rate_host"`
	Moex             SourceConfig `yaml:"moex"`
	Coinmarketcap    SourceConfig `yaml:"coinmarketcap"`
	CryptoCompare    SourceConfig `yaml:"cryptocompare"`
	Coingecko        SourceConfig `yaml:"coingecko"`
}

// DefaultWeight is used when a source has no weight configured.
const DefaultWeight = 10

// SourceConfig configures a single price source
type SourceConfig struct {
	Enabled *bool    `yaml:"enabled"`
	Weight  int      `yaml:"weight"`
	APIKey  string   `yaml:"api_key"`
	Coins   []string `yaml:"coins"`
	// IDs lists provider-native coin identifiers to fetch in addition to Coins
	IDs []string `yaml:"ids"`
	// Codes maps pair names or symbols to provider-native codes
	// (MOEX security codes, Coinmarketcap numeric IDs)
	Codes map[string]string `yaml:"codes"`
	// URL overrides the provider base URL, mainly for tests
	URL string `yaml:"url"`
}

// IsEnabled reports whether the source is explicitly enabled. A missing
// flag counts as enabled; providers additionally require their API key
// or coin list to be present.
func (sc SourceConfig) IsEnabled() bool {
	return sc.Enabled == nil || *sc.Enabled
}

// SourceWeight returns the configured weight or DefaultWeight.
func (sc SourceConfig) SourceWeight() int {
	if sc.Weight <= 0 {
		return DefaultWeight
	}
	return sc.Weight
}
