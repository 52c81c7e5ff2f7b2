package api

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Adamant-im/currencyinfo/pkg/config"
	"github.com/Adamant-im/currencyinfo/pkg/logging"
	"github.com/Adamant-im/currencyinfo/pkg/rates/sources"
)

const moexURL = "https://rusdoor.adamant.im/securities.jsonp"

// Moex fetches RUB fiat rates from the Moscow Exchange currency board.
// Each configured pair maps to a CETS security code; the quoted price is the
// mean of the two board prices. USD/RUB additionally yields its inverse, and
// every other pair derives a USD cross from USD/RUB.
type Moex struct {
	baseAPI

	enabled  bool
	codes    map[string]string
	decimals int32
	url      string
}

type moexResponse struct {
	Securities struct {
		Data [][]any `json:"data"`
	} `json:"securities"`
}

// Board row indexes of interest.
const (
	moexBoardIndex  = 1
	moexCodeIndex   = 2
	moexPrice1Index = 14
	moexPrice2Index = 15
)

// NewMoex creates the provider from config.
func NewMoex(cfg *config.Config, logger *logging.Logger) *Moex {
	sc := cfg.Sources.Moex

	url := sc.URL
	if url == "" {
		url = moexURL
	}

	return &Moex{
		baseAPI:  newBaseAPI("MOEX", sc.SourceWeight(), logger),
		enabled:  sc.IsEnabled() && len(sc.Codes) > 0,
		codes:    sc.Codes,
		decimals: cfg.Decimals,
		url:      url,
	}
}

// Enabled reports whether the provider should be fetched from.
func (m *Moex) Enabled() bool {
	return m.enabled
}

// EnabledCoins returns the coins named by the configured pairs, USD excluded.
func (m *Moex) EnabledCoins() []string {
	seen := make(map[string]bool)
	var coins []string

	pairs := make([]string, 0, len(m.codes))
	for pair := range m.codes {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)

	for _, pair := range pairs {
		quote, base, ok := sources.SplitPair(pair)
		if !ok {
			continue
		}
		for _, coin := range []string{quote, base} {
			if coin != "USD" && !seen[coin] {
				seen[coin] = true
				coins = append(coins, coin)
			}
		}
	}

	return coins
}

// Fetch retrieves the configured board pairs. USD/RUB is processed first so
// the USD crosses of the remaining pairs can be derived from it.
func (m *Moex) Fetch(ctx context.Context, baseCurrency string) (sources.Tickers, error) {
	var data moexResponse
	if err := m.getJSON(ctx, m.url, nil, &data); err != nil {
		return nil, err
	}

	board := make(map[string]decimal.Decimal)
	for _, row := range data.Securities.Data {
		if len(row) <= moexPrice2Index {
			continue
		}
		if rowBoard, ok := row[moexBoardIndex].(string); !ok || rowBoard != "CETS" {
			continue
		}

		code, ok := row[moexCodeIndex].(string)
		if !ok {
			continue
		}

		price1, ok1 := row[moexPrice1Index].(float64)
		price2, ok2 := row[moexPrice2Index].(float64)
		if !ok1 || !ok2 || price1 == 0 || price2 == 0 {
			continue
		}

		board[code] = decimal.NewFromFloat(price1).
			Add(decimal.NewFromFloat(price2)).
			Div(decimal.NewFromInt(2))
	}

	pairs := make([]string, 0, len(m.codes))
	for pair := range m.codes {
		if pair != "USD/RUB" {
			pairs = append(pairs, pair)
		}
	}
	sort.Strings(pairs)
	if _, ok := m.codes["USD/RUB"]; ok {
		pairs = append([]string{"USD/RUB"}, pairs...)
	}

	hundred := decimal.NewFromInt(100)
	one := decimal.NewFromInt(1)

	tickers := make(sources.Tickers)

	for _, pair := range pairs {
		price, ok := board[m.codes[pair]]
		if !ok {
			continue
		}

		if pair == "JPY/RUB" {
			price = price.Div(hundred)
		}

		tickers[pair] = price.Round(m.decimals)

		if pair == "USD/RUB" {
			tickers["RUB/USD"] = one.Div(tickers[pair]).Round(m.decimals)
			continue
		}

		usdRub, ok := tickers["USD/RUB"]
		if !ok || tickers[pair].IsZero() {
			continue
		}

		market := "USD/" + strings.TrimSuffix(pair, "/RUB")
		tickers[market] = usdRub.Div(tickers[pair]).Round(m.decimals)
	}

	m.logger.Info("MOEX rates updated", "base", baseCurrency, "count", len(tickers))

	return tickers, nil
}
