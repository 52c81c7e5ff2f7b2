package merger

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Adamant-im/currencyinfo/pkg/config"
	"github.com/Adamant-im/currencyinfo/pkg/logging"
	"github.com/Adamant-im/currencyinfo/pkg/metrics"
	"github.com/Adamant-im/currencyinfo/pkg/notify"
	"github.com/Adamant-im/currencyinfo/pkg/rates/sources"
)

const defaultSourceWeight = config.DefaultWeight

// Merger owns the per-pair sample history and the resolved snapshot.
// History and snapshot are mutated only through SetTickers, which is called
// from the scheduler's single merge step; readers consume the snapshot via
// an atomic pointer and never block the writer.
type Merger struct {
	strategy        Strategy
	weights         map[string]int
	priorities      []string
	threshold       decimal.Decimal
	groupPercentage decimal.Decimal
	decimals        int32
	rateLifetime    int64
	baseCoins       []string

	// coverage is provided by the source manager once at startup
	allCoins    []string
	pairSources map[string]int

	mu            sync.RWMutex
	sourceTickers sources.SourceTickers
	resolved      atomic.Pointer[sources.Tickers]

	notifier notify.Notifier
	logger   *logging.Logger

	// now returns a unix timestamp in minutes; replaced in tests
	now func() int64
}

// New creates a merger from config and per-source weights.
func New(cfg *config.Config, weights map[string]int, notifier notify.Notifier, logger *logging.Logger) (*Merger, error) {
	strategy, err := StrategyByName(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	m := &Merger{
		strategy:        strategy,
		weights:         weights,
		priorities:      cfg.Priorities,
		threshold:       decimal.NewFromFloat(cfg.RateDifferencePercentThreshold),
		groupPercentage: decimal.NewFromFloat(cfg.GroupPercentage),
		decimals:        cfg.Decimals,
		rateLifetime:    cfg.RateLifetime,
		baseCoins:       cfg.BaseCoins,
		pairSources:     make(map[string]int),
		sourceTickers:   make(sources.SourceTickers),
		notifier:        notifier,
		logger:          logger,
		now:             CurrentMinute,
	}

	empty := make(sources.Tickers)
	m.resolved.Store(&empty)

	return m, nil
}

// CurrentMinute returns the unix timestamp in minutes.
func CurrentMinute() int64 {
	return time.Now().Unix() / 60
}

// SetClock replaces the timestamp function. Used in tests.
func (m *Merger) SetClock(now func() int64) {
	m.now = now
}

// SetCoverage installs the coin universe and per-pair coverage computed by
// the source manager at startup.
func (m *Merger) SetCoverage(allCoins []string, pairSources map[string]int) {
	m.allCoins = allCoins
	m.pairSources = pairSources
}

// RateLifetime returns the configured sample lifetime in minutes.
func (m *Merger) RateLifetime() int64 {
	return m.rateLifetime
}

// MergeTickers upserts one source's fetched tickers into the given cycle
// accumulator. A new sample replaces the source's prior entry for the pair;
// it never appends a duplicate.
func (m *Merger) MergeTickers(accumulator sources.SourceTickers, data sources.Tickers, sourceName string) {
	timestamp := m.now()

	for pair, price := range data {
		point := sources.PricePoint{
			Source:    sourceName,
			Price:     price,
			Timestamp: timestamp,
		}

		previous := accumulator[pair]

		replaced := false
		for i, prior := range previous {
			if prior.Source == point.Source {
				previous[i] = point
				replaced = true
				break
			}
		}

		if !replaced {
			previous = append(previous, point)
		}

		accumulator[pair] = previous
	}
}

// SetTickers folds one cycle's accumulated samples into the history and
// recomputes the resolved snapshot. Pairs that failed reconciliation are
// dropped from the incoming batch (previous history stays intact), then
// classified and escalated.
func (m *Merger) SetTickers(incoming sources.SourceTickers) {
	m.mu.Lock()

	_, errs := m.squishTickers(incoming, m.rateLifetime)

	for _, pairErr := range errs {
		delete(incoming, pairErr.Pair)
	}

	for pair, points := range incoming {
		m.sourceTickers[pair] = points
	}

	tickers := m.tickersWithLifetimeLocked(m.rateLifetime)
	m.resolved.Store(&tickers)

	classified := m.classifyErrorsLocked(errs)

	m.mu.Unlock()

	for _, pairErr := range errs {
		metrics.RecordConsensusRejection(pairErr.Pair)
	}

	m.notifyErrors(classified)
}

// Tickers returns the current resolved snapshot. The returned map is
// replaced wholesale on every merge and must not be mutated.
func (m *Merger) Tickers() sources.Tickers {
	return *m.resolved.Load()
}

// TickersWithLifetime recomputes the snapshot with an alternate sample
// lifetime without mutating stored state.
func (m *Merger) TickersWithLifetime(rateLifetime int64) sources.Tickers {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tickersWithLifetimeLocked(rateLifetime)
}

func (m *Merger) tickersWithLifetimeLocked(rateLifetime int64) sources.Tickers {
	squished, _ := m.squishTickers(m.sourceTickers, rateLifetime)
	minimized := m.cutRatesBySourceCount(squished)
	return m.normalizeTickers(minimized)
}

// squishTickers reduces each pair's live samples to one rate using the
// configured strategy. Samples older than the lifetime are filtered out;
// they are never deleted from history.
func (m *Merger) squishTickers(sourceTickers sources.SourceTickers, lifetime int64) (sources.Tickers, []PairError) {
	tickers := make(sources.Tickers)
	var errs []PairError

	timestamp := m.now()

	pairs := make([]string, 0, len(sourceTickers))
	for pair := range sourceTickers {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)

	for _, pair := range pairs {
		var live []sources.PricePoint
		for _, point := range sourceTickers[pair] {
			if timestamp-point.Timestamp < lifetime {
				live = append(live, point)
			}
		}

		group, err := m.biggestGroupPrice(live)
		if err != nil {
			errs = append(errs, PairError{Pair: pair, Message: err.Error()})
			continue
		}

		tickers[pair] = m.strategy(group.Members).Round(m.decimals)
	}

	return tickers, errs
}

// cutRatesBySourceCount drops pairs whose history has fewer reporting
// sources than the pair's required coverage (default 1).
func (m *Merger) cutRatesBySourceCount(squished sources.Tickers) sources.Tickers {
	minimized := make(sources.Tickers, len(squished))

	for pair, price := range squished {
		required := m.pairSources[pair]
		if required == 0 {
			required = 1
		}

		if len(m.sourceTickers[pair]) >= required {
			minimized[pair] = price
		}
	}

	return minimized
}

// CoverageGap reports a pair with fewer reporting sources than required.
type CoverageGap struct {
	Pair     string
	Expected int
	Got      int
}

// RatesWithFewerSources lists pairs whose history has fewer reporting
// sources than their required coverage.
func (m *Merger) RatesWithFewerSources() []CoverageGap {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var gaps []CoverageGap

	pairs := make([]string, 0, len(m.sourceTickers))
	for pair := range m.sourceTickers {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)

	for _, pair := range pairs {
		required := m.pairSources[pair]
		if required == 0 {
			required = 1
		}

		if got := len(m.sourceTickers[pair]); got < required {
			gaps = append(gaps, CoverageGap{Pair: pair, Expected: required, Got: got})
		}
	}

	return gaps
}

// normalizeTickers derives cross rates for every configured base coin with
// USD as the pivot: C/B = (USD/B or 1/(B/USD)) * (C/USD). A derived pair is
// written only when absent, and omitted when any input is missing or zero.
func (m *Merger) normalizeTickers(tickers sources.Tickers) sources.Tickers {
	one := decimal.NewFromInt(1)

	for _, baseCoin := range m.baseCoins {
		price, ok := tickers["USD/"+baseCoin]
		if !ok || price.IsZero() {
			inverse, ok := tickers[baseCoin+"/USD"]
			if !ok || inverse.IsZero() {
				continue
			}
			price = one.Div(inverse)
		}

		for _, coin := range append(append([]string{}, m.baseCoins...), m.allCoins...) {
			pair := coin + "/" + baseCoin

			if _, ok := tickers[pair]; ok {
				continue
			}

			coinPrice, ok := tickers[coin+"/USD"]
			if !ok || coinPrice.IsZero() {
				continue
			}

			tickers[pair] = price.Mul(coinPrice).Round(m.decimals)
		}
	}

	return tickers
}

// classifiedErrors buckets one cycle's pair errors by escalation severity.
type classifiedErrors struct {
	needsAttention []string
	recurring      []string
	fresh          []string
}

// classifyErrorsLocked buckets failures against the freshly computed
// snapshot and the merged history: a pair with a cached resolved value only
// needs attention (the value keeps being served); a pair with history but
// no resolved value has an error persisting beyond the rate lifetime; a
// pair with neither has no fallback at all.
func (m *Merger) classifyErrorsLocked(errs []PairError) classifiedErrors {
	var classified classifiedErrors

	tickers := *m.resolved.Load()

	for _, pairErr := range errs {
		message := fmt.Sprintf("%s: %s", pairErr.Pair, pairErr.Message)

		if _, ok := tickers[pairErr.Pair]; ok {
			classified.needsAttention = append(classified.needsAttention, message)
		} else if _, ok := m.sourceTickers[pairErr.Pair]; ok {
			classified.recurring = append(classified.recurring, message)
		} else {
			classified.fresh = append(classified.fresh, message)
		}
	}

	return classified
}

func (m *Merger) notifyErrors(classified classifiedErrors) {
	if len(classified.fresh) > 0 {
		m.notifier.Notify(notify.LevelError, fmt.Sprintf(
			"The rates won't be saved for the following pairs, and there are no previous rates to fall back on: %s",
			strings.Join(classified.fresh, ", ")))
	}

	if len(classified.recurring) > 0 {
		m.notifier.Notify(notify.LevelError, fmt.Sprintf(
			"The rates won't be saved for the following pairs, and these errors have persisted for more than %d minutes: %s",
			m.rateLifetime, strings.Join(classified.recurring, ", ")))
	}

	if len(classified.needsAttention) > 0 {
		m.notifier.Notify(notify.LevelWarn, fmt.Sprintf(
			"The previously stored rates will be saved for the following pairs, but they require attention: %s",
			strings.Join(classified.needsAttention, ", ")))
	}
}
