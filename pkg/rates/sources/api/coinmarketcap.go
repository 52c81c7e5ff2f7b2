package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Adamant-im/currencyinfo/pkg/config"
	"github.com/Adamant-im/currencyinfo/pkg/logging"
	"github.com/Adamant-im/currencyinfo/pkg/notify"
	"github.com/Adamant-im/currencyinfo/pkg/rates/sources"
)

const coinmarketcapURL = "https://pro-api.coinmarketcap.com/v1/cryptocurrency/quotes/latest"

type coinmarketcapCoin struct {
	Symbol string
	ID     string
}

// Coinmarketcap fetches crypto rates from the CoinMarketCap pro API.
// Quotes are requested by numeric coin ID, so configured symbols go through
// the coin-ID resolver before the first fetch. Unresolvable symbols can be
// pinned directly via the codes table.
type Coinmarketcap struct {
	baseAPI

	enabled  bool
	apiKey   string
	symbols  []string
	pinned   map[string]string
	decimals int32
	url      string

	notifier notify.Notifier
	resolver *sources.CoinIDResolver

	coins []coinmarketcapCoin
}

type coinmarketcapQuote struct {
	Price float64 `json:"price"`
}

type coinmarketcapEntry struct {
	ID     json.Number                   `json:"id"`
	Symbol string                        `json:"symbol"`
	Quote  map[string]coinmarketcapQuote `json:"quote"`
}

type coinmarketcapResponse struct {
	Data map[string]coinmarketcapEntry `json:"data"`
}

// NewCoinmarketcap creates the provider from config.
func NewCoinmarketcap(cfg *config.Config, logger *logging.Logger, notifier notify.Notifier) *Coinmarketcap {
	sc := cfg.Sources.Coinmarketcap

	u := sc.URL
	if u == "" {
		u = coinmarketcapURL
	}

	c := &Coinmarketcap{
		baseAPI:  newBaseAPI("Coinmarketcap", sc.SourceWeight(), logger),
		enabled:  sc.IsEnabled() && sc.APIKey != "" && (len(sc.Coins) > 0 || len(sc.Codes) > 0),
		apiKey:   sc.APIKey,
		symbols:  sc.Coins,
		pinned:   sc.Codes,
		decimals: cfg.Decimals,
		url:      u,
		notifier: notifier,
	}

	c.resolver = sources.NewCoinIDResolver(c.name, c.resolveCoinIDs, logger)

	return c
}

// Enabled reports whether the provider should be fetched from.
func (c *Coinmarketcap) Enabled() bool {
	return c.enabled
}

// EnabledCoins returns the resolved coin symbols.
func (c *Coinmarketcap) EnabledCoins() []string {
	coins := make([]string, 0, len(c.coins))
	for _, coin := range c.coins {
		coins = append(coins, coin.Symbol)
	}
	return coins
}

// Ready blocks until coin-ID resolution finished.
func (c *Coinmarketcap) Ready(ctx context.Context) error {
	return c.resolver.Resolve(ctx)
}

// Resolver exposes the coin-ID resolver. Used in tests.
func (c *Coinmarketcap) Resolver() *sources.CoinIDResolver {
	return c.resolver
}

func (c *Coinmarketcap) headers() map[string]string {
	return map[string]string{"X-CMC_PRO_API_KEY": c.apiKey}
}

// resolveCoinIDs translates configured symbols into CoinMarketCap numeric
// IDs through a symbol-keyed catalog request, then appends the pinned IDs.
func (c *Coinmarketcap) resolveCoinIDs(ctx context.Context) error {
	c.coins = c.coins[:0]

	if len(c.symbols) > 0 {
		catalogURL := c.url + "?symbol=" + strings.Join(c.symbols, ",")

		var data coinmarketcapResponse
		if err := c.getJSON(ctx, catalogURL, c.headers(), &data); err != nil {
			return err
		}

		bySymbol := make(map[string]coinmarketcapEntry, len(data.Data))
		for _, entry := range data.Data {
			bySymbol[entry.Symbol] = entry
		}

		for _, symbol := range c.symbols {
			entry, ok := bySymbol[strings.ToUpper(symbol)]
			if !ok {
				c.notifier.Notify(notify.LevelWarn, fmt.Sprintf(
					"Unable to get ticker for Coinmarketcap symbol '%s'. Check if the coin exists: %s.",
					symbol, catalogURL))
				continue
			}

			c.coins = append(c.coins, coinmarketcapCoin{
				Symbol: strings.ToUpper(symbol),
				ID:     entry.ID.String(),
			})
		}
	}

	pinned := make([]string, 0, len(c.pinned))
	for symbol := range c.pinned {
		pinned = append(pinned, symbol)
	}
	sort.Strings(pinned)

	for _, symbol := range pinned {
		c.coins = append(c.coins, coinmarketcapCoin{
			Symbol: strings.ToUpper(symbol),
			ID:     c.pinned[symbol],
		})
	}

	c.logger.Info("Coinmarketcap coin ids fetched successfully", "count", len(c.coins))

	return nil
}

// Fetch retrieves every resolved coin against the base currency by ID.
func (c *Coinmarketcap) Fetch(ctx context.Context, baseCurrency string) (sources.Tickers, error) {
	if c.resolver.State() != sources.StateReady {
		return nil, sources.ErrCoinIDsNotResolved
	}

	ids := make([]string, 0, len(c.coins))
	for _, coin := range c.coins {
		ids = append(ids, coin.ID)
	}

	requestURL := c.url + "?id=" + strings.Join(ids, ",") + "&convert=" + baseCurrency

	var data coinmarketcapResponse
	if err := c.getJSON(ctx, requestURL, c.headers(), &data); err != nil {
		return nil, err
	}

	byID := make(map[string]coinmarketcapEntry, len(data.Data))
	for _, entry := range data.Data {
		byID[entry.ID.String()] = entry
	}

	tickers := make(sources.Tickers)
	var unavailable []string

	for _, coin := range c.coins {
		price := byID[coin.ID].Quote[baseCurrency].Price
		if price == 0 {
			unavailable = append(unavailable, coin.Symbol)
			continue
		}

		tickers[coin.Symbol+"/"+baseCurrency] = decimal.NewFromFloat(price).Round(c.decimals)
	}

	switch {
	case len(unavailable) == 0:
		c.logger.Info("Coinmarketcap rates updated", "base", baseCurrency, "count", len(tickers))
	case len(unavailable) == len(c.coins):
		c.notifier.Notify(notify.LevelError, fmt.Sprintf(
			"Unable to get all of %d coin rates from request to %s. Check Coinmarketcap service and config file.",
			len(c.coins), requestURL))
	default:
		c.logger.Warn("Coinmarketcap rates updated partially",
			"base", baseCurrency,
			"unavailable", strings.Join(unavailable, ", "))
	}

	return tickers, nil
}
