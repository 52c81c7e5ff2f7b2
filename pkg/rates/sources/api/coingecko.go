package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Adamant-im/currencyinfo/pkg/config"
	"github.com/Adamant-im/currencyinfo/pkg/logging"
	"github.com/Adamant-im/currencyinfo/pkg/notify"
	"github.com/Adamant-im/currencyinfo/pkg/rates/sources"
)

const coingeckoURL = "https://api.coingecko.com/api/v3"

type coingeckoCoin struct {
	Symbol string
	ID     string
}

// Coingecko fetches crypto rates from the free CoinGecko API. Prices are
// requested by CoinGecko ID, so configured symbols go through the coin-ID
// resolver against the full coin catalog. Coins can also be configured by
// CoinGecko ID directly; the symbol then comes from the catalog.
type Coingecko struct {
	baseAPI

	enabled  bool
	symbols  []string
	ids      []string
	decimals int32
	url      string

	notifier notify.Notifier
	resolver *sources.CoinIDResolver

	coins []coingeckoCoin
}

type coingeckoCatalogEntry struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
}

// NewCoingecko creates the provider from config.
func NewCoingecko(cfg *config.Config, logger *logging.Logger, notifier notify.Notifier) *Coingecko {
	sc := cfg.Sources.Coingecko

	u := sc.URL
	if u == "" {
		u = coingeckoURL
	}

	c := &Coingecko{
		baseAPI:  newBaseAPI("Coingecko", sc.SourceWeight(), logger),
		enabled:  sc.IsEnabled() && (len(sc.Coins) > 0 || len(sc.IDs) > 0),
		symbols:  sc.Coins,
		ids:      sc.IDs,
		decimals: cfg.Decimals,
		url:      u,
		notifier: notifier,
	}

	c.resolver = sources.NewCoinIDResolver(c.name, c.resolveCoinIDs, logger)

	return c
}

// Enabled reports whether the provider should be fetched from.
func (c *Coingecko) Enabled() bool {
	return c.enabled
}

// EnabledCoins returns the resolved coin symbols.
func (c *Coingecko) EnabledCoins() []string {
	coins := make([]string, 0, len(c.coins))
	for _, coin := range c.coins {
		coins = append(coins, coin.Symbol)
	}
	return coins
}

// Ready blocks until coin-ID resolution finished.
func (c *Coingecko) Ready(ctx context.Context) error {
	return c.resolver.Resolve(ctx)
}

// Resolver exposes the coin-ID resolver. Used in tests.
func (c *Coingecko) Resolver() *sources.CoinIDResolver {
	return c.resolver
}

// resolveCoinIDs matches configured symbols and IDs against the CoinGecko
// coin catalog. Entries without a catalog match are reported and skipped.
func (c *Coingecko) resolveCoinIDs(ctx context.Context) error {
	catalogURL := c.url + "/coins/list"

	var catalog []coingeckoCatalogEntry
	if err := c.getJSON(ctx, catalogURL, nil, &catalog); err != nil {
		return err
	}

	bySymbol := make(map[string]string, len(catalog))
	byID := make(map[string]string, len(catalog))
	for _, entry := range catalog {
		if _, ok := bySymbol[entry.Symbol]; !ok {
			bySymbol[entry.Symbol] = entry.ID
		}
		byID[entry.ID] = entry.Symbol
	}

	c.coins = c.coins[:0]

	for _, symbol := range c.symbols {
		id, ok := bySymbol[strings.ToLower(symbol)]
		if !ok {
			c.notifier.Notify(notify.LevelWarn, fmt.Sprintf(
				"Unable to get ticker for Coingecko symbol '%s'. Check if the coin exists: %s.",
				symbol, catalogURL))
			continue
		}

		c.coins = append(c.coins, coingeckoCoin{Symbol: strings.ToUpper(symbol), ID: id})
	}

	for _, id := range c.ids {
		symbol, ok := byID[id]
		if !ok || symbol == "" {
			c.notifier.Notify(notify.LevelWarn, fmt.Sprintf(
				"Unable to get ticker for Coingecko id '%s'. Check if the coin exists: %s.",
				id, catalogURL))
			continue
		}

		c.coins = append(c.coins, coingeckoCoin{Symbol: strings.ToUpper(symbol), ID: id})
	}

	c.logger.Info("Coingecko coin ids fetched successfully", "count", len(c.coins))

	return nil
}

// Fetch retrieves every resolved coin against the base currency.
func (c *Coingecko) Fetch(ctx context.Context, baseCurrency string) (sources.Tickers, error) {
	if c.resolver.State() != sources.StateReady {
		return nil, sources.ErrCoinIDsNotResolved
	}

	ids := make([]string, 0, len(c.coins))
	for _, coin := range c.coins {
		ids = append(ids, coin.ID)
	}

	vsCurrency := strings.ToLower(baseCurrency)

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", vsCurrency)

	requestURL := c.url + "/simple/price?" + params.Encode()

	var data map[string]map[string]float64
	if err := c.getJSON(ctx, requestURL, nil, &data); err != nil {
		return nil, err
	}

	tickers := make(sources.Tickers)

	for _, coin := range c.coins {
		value, ok := data[coin.ID][vsCurrency]
		if !ok || value == 0 {
			continue
		}

		tickers[coin.Symbol+"/"+baseCurrency] = decimal.NewFromFloat(value).Round(c.decimals)
	}

	c.logger.Info("Coingecko rates updated", "base", baseCurrency, "count", len(tickers))

	return tickers, nil
}
