package api

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Adamant-im/currencyinfo/pkg/config"
	"github.com/Adamant-im/currencyinfo/pkg/logging"
	"github.com/Adamant-im/currencyinfo/pkg/rates/sources"
)

const currencyAPIURL = "https://cdn.jsdelivr.net/gh/fawazahmed0/currency-api@1/latest/currencies/usd.json"

// currencyAPISkipCoins are quoted by dedicated crypto providers instead.
var currencyAPISkipCoins = map[string]bool{"USD": true, "BTC": true, "ETH": true}

// CurrencyAPI fetches fiat rates from the free fawazahmed0 currency CDN.
// No API key is required; the payload quotes every currency against USD.
type CurrencyAPI struct {
	baseAPI

	enabled   bool
	baseCoins []string
	decimals  int32
	url       string
}

type currencyAPIResponse struct {
	USD map[string]float64 `json:"usd"`
}

// NewCurrencyAPI creates the provider from config.
func NewCurrencyAPI(cfg *config.Config, logger *logging.Logger) *CurrencyAPI {
	sc := cfg.Sources.CurrencyAPI

	url := sc.URL
	if url == "" {
		url = currencyAPIURL
	}

	return &CurrencyAPI{
		baseAPI:   newBaseAPI("CurrencyApi", sc.SourceWeight(), logger),
		enabled:   sc.IsEnabled() && len(cfg.BaseCoins) > 0,
		baseCoins: cfg.BaseCoins,
		decimals:  cfg.Decimals,
		url:       url,
	}
}

// Enabled reports whether the provider should be fetched from.
func (c *CurrencyAPI) Enabled() bool {
	return c.enabled
}

// EnabledCoins returns the fiat coins this provider quotes.
func (c *CurrencyAPI) EnabledCoins() []string {
	var coins []string
	for _, coin := range c.baseCoins {
		if !currencyAPISkipCoins[coin] {
			coins = append(coins, coin)
		}
	}
	return coins
}

// Fetch retrieves both directions of every configured base coin against USD.
func (c *CurrencyAPI) Fetch(ctx context.Context, baseCurrency string) (sources.Tickers, error) {
	var data currencyAPIResponse
	if err := c.getJSON(ctx, c.url, nil, &data); err != nil {
		return nil, err
	}

	one := decimal.NewFromInt(1)
	tickers := make(sources.Tickers)

	for _, coin := range c.baseCoins {
		if currencyAPISkipCoins[coin] {
			continue
		}

		value, ok := data.USD[strings.ToLower(coin)]
		if !ok || value == 0 {
			continue
		}

		rate := decimal.NewFromFloat(value)
		tickers["USD/"+coin] = rate.Round(c.decimals)
		tickers[coin+"/USD"] = one.Div(rate).Round(c.decimals)
	}

	c.logger.Info("CurrencyApi rates updated", "base", baseCurrency, "count", len(tickers))

	return tickers, nil
}
