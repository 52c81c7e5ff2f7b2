package api

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Adamant-im/currencyinfo/pkg/config"
	"github.com/Adamant-im/currencyinfo/pkg/logging"
	"github.com/Adamant-im/currencyinfo/pkg/rates/sources"
)

const exchangeRateHostURL = "https://api.exchangerate.host/live"

var exchangeRateHostSkipCoins = map[string]bool{"USD": true, "ETH": true}

// ExchangeRateHost fetches fiat quotes from exchangerate.host. Quotes come
// keyed as "USD<coin>" against the USD source currency.
type ExchangeRateHost struct {
	baseAPI

	enabled   bool
	apiKey    string
	baseCoins []string
	decimals  int32
	url       string
}

type exchangeRateHostResponse struct {
	Quotes map[string]float64 `json:"quotes"`
}

// NewExchangeRateHost creates the provider from config.
func NewExchangeRateHost(cfg *config.Config, logger *logging.Logger) *ExchangeRateHost {
	sc := cfg.Sources.ExchangeRateHost

	url := sc.URL
	if url == "" {
		url = exchangeRateHostURL
	}

	return &ExchangeRateHost{
		baseAPI:   newBaseAPI("ExchangeRateHost", sc.SourceWeight(), logger),
		enabled:   sc.IsEnabled() && sc.APIKey != "" && len(cfg.BaseCoins) > 0,
		apiKey:    sc.APIKey,
		baseCoins: cfg.BaseCoins,
		decimals:  cfg.Decimals,
		url:       url,
	}
}

// Enabled reports whether the provider should be fetched from.
func (e *ExchangeRateHost) Enabled() bool {
	return e.enabled
}

// EnabledCoins returns the fiat coins this provider quotes.
func (e *ExchangeRateHost) EnabledCoins() []string {
	var coins []string
	for _, coin := range e.baseCoins {
		if !exchangeRateHostSkipCoins[coin] {
			coins = append(coins, coin)
		}
	}
	return coins
}

// Fetch retrieves both directions of every configured base coin against USD.
func (e *ExchangeRateHost) Fetch(ctx context.Context, baseCurrency string) (sources.Tickers, error) {
	var data exchangeRateHostResponse
	if err := e.getJSON(ctx, e.url+"?access_key="+e.apiKey, nil, &data); err != nil {
		return nil, err
	}

	one := decimal.NewFromInt(1)
	tickers := make(sources.Tickers)

	for _, coin := range e.baseCoins {
		if exchangeRateHostSkipCoins[coin] {
			continue
		}

		value, ok := data.Quotes["USD"+coin]
		if !ok || value == 0 {
			continue
		}

		rate := decimal.NewFromFloat(value)
		tickers["USD/"+coin] = rate.Round(e.decimals)
		tickers[coin+"/USD"] = one.Div(rate).Round(e.decimals)
	}

	e.logger.Info("ExchangeRateHost rates updated", "base", baseCurrency, "count", len(tickers))

	return tickers, nil
}
