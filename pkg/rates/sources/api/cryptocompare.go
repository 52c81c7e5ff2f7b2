package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Adamant-im/currencyinfo/pkg/config"
	"github.com/Adamant-im/currencyinfo/pkg/logging"
	"github.com/Adamant-im/currencyinfo/pkg/rates/sources"
)

const cryptoCompareURL = "https://min-api.cryptocompare.com/data/pricemulti"

// CryptoCompare fetches crypto rates from the CryptoCompare pricemulti
// endpoint. Symbols are queried directly; no coin-ID resolution is needed.
type CryptoCompare struct {
	baseAPI

	enabled  bool
	apiKey   string
	coins    []string
	decimals int32
	url      string
}

// NewCryptoCompare creates the provider from config.
func NewCryptoCompare(cfg *config.Config, logger *logging.Logger) *CryptoCompare {
	sc := cfg.Sources.CryptoCompare

	u := sc.URL
	if u == "" {
		u = cryptoCompareURL
	}

	return &CryptoCompare{
		baseAPI:  newBaseAPI("CryptoCompare", sc.SourceWeight(), logger),
		enabled:  sc.IsEnabled() && sc.APIKey != "" && len(sc.Coins) > 0,
		apiKey:   sc.APIKey,
		coins:    sc.Coins,
		decimals: cfg.Decimals,
		url:      u,
	}
}

// Enabled reports whether the provider should be fetched from.
func (c *CryptoCompare) Enabled() bool {
	return c.enabled
}

// EnabledCoins returns the configured coin symbols.
func (c *CryptoCompare) EnabledCoins() []string {
	return c.coins
}

// Fetch retrieves every configured coin against the base currency.
func (c *CryptoCompare) Fetch(ctx context.Context, baseCurrency string) (sources.Tickers, error) {
	params := url.Values{}
	params.Set("fsyms", strings.Join(c.coins, ","))
	params.Set("tsyms", baseCurrency)
	params.Set("api_key", c.apiKey)

	requestURL := c.url + "?" + params.Encode()

	var data map[string]map[string]float64
	if err := c.getJSON(ctx, requestURL, nil, &data); err != nil {
		return nil, err
	}

	tickers := make(sources.Tickers)

	for _, coin := range c.coins {
		value, ok := data[coin][baseCurrency]
		if !ok {
			return nil, fmt.Errorf("%w: no %s/%s quote from %s",
				sources.ErrInvalidResponse, coin, baseCurrency, c.url)
		}

		tickers[coin+"/"+baseCurrency] = decimal.NewFromFloat(value).Round(c.decimals)
	}

	c.logger.Info("CryptoCompare rates updated", "base", baseCurrency, "count", len(tickers))

	return tickers, nil
}
