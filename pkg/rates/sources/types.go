package sources

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Tickers maps a pair name (e.g. "BTC/USD") to its rate.
type Tickers map[string]decimal.Decimal

// PricePoint is a single price sample reported by one source.
type PricePoint struct {
	Source string
	Price  decimal.Decimal
	// Timestamp is a unix timestamp in minutes
	Timestamp int64
}

// SourceTickers maps a pair name to the samples collected for it,
// at most one per source.
type SourceTickers map[string][]PricePoint

// Source defines the contract every price source must implement.
type Source interface {
	// Enabled reports whether the source should be fetched from.
	// Computed from API key presence, coin list and the explicit config flag.
	Enabled() bool

	// ResourceName returns the readable source name.
	ResourceName() string

	// Weight returns the configured source weight.
	Weight() int

	// EnabledCoins returns the coin symbols this source provides.
	EnabledCoins() []string

	// Fetch retrieves tickers against the given base currency.
	Fetch(ctx context.Context, baseCurrency string) (Tickers, error)
}

// ReadySource is a Source that requires upfront coin-ID resolution
// before its first Fetch.
type ReadySource interface {
	Source

	// Ready blocks until the source finished its coin-ID resolution.
	Ready(ctx context.Context) error
}

// SplitPair splits a pair name into its quote and base coins.
func SplitPair(pair string) (quote, base string, ok bool) {
	quote, base, ok = strings.Cut(pair, "/")
	return quote, base, ok && quote != "" && base != ""
}

// ApplyMappings renames coins in the fetched tickers using the configured
// alias table. Pairs without aliases pass through unchanged.
func ApplyMappings(tickers Tickers, mappings map[string]string) Tickers {
	if len(mappings) == 0 {
		return tickers
	}

	mapped := make(Tickers, len(tickers))
	for pair, price := range tickers {
		quote, base, ok := SplitPair(pair)
		if !ok {
			mapped[pair] = price
			continue
		}

		if alias, ok := mappings[quote]; ok {
			quote = alias
		}
		if alias, ok := mappings[base]; ok {
			base = alias
		}

		mapped[quote+"/"+base] = price
	}

	return mapped
}
