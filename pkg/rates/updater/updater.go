// Package updater drives the periodic fetch-merge-persist cycle and serves
// the read queries over the merged state.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adamant-im/currencyinfo/pkg/config"
	"github.com/Adamant-im/currencyinfo/pkg/logging"
	"github.com/Adamant-im/currencyinfo/pkg/metrics"
	"github.com/Adamant-im/currencyinfo/pkg/notify"
	"github.com/Adamant-im/currencyinfo/pkg/rates/history"
	"github.com/Adamant-im/currencyinfo/pkg/rates/merger"
	"github.com/Adamant-im/currencyinfo/pkg/rates/sources"
)

// BaseCurrency is the pivot currency every source is fetched against.
const BaseCurrency = "USD"

const fetchTimeout = 10 * time.Second

// Updater schedules update cycles and owns the cycle bookkeeping exposed
// through the status endpoint.
type Updater struct {
	manager  *sources.Manager
	merger   *merger.Merger
	store    history.Store
	notifier notify.Notifier
	logger   *logging.Logger

	mappings        map[string]string
	refreshInterval time.Duration

	mu            sync.RWMutex
	lastUpdated   int64
	initializedAt int64

	// broadcast receives each cycle's resolved snapshot; nil disables it
	broadcast func(sources.Tickers)

	// now returns a unix timestamp in milliseconds; replaced in tests
	now func() int64
}

// Status describes where the update schedule stands.
type Status struct {
	Ready      bool  `json:"ready"`
	Updating   bool  `json:"updating"`
	NextUpdate int64 `json:"next_update"`
}

// New creates an updater over the initialized source manager and merger.
func New(manager *sources.Manager, m *merger.Merger, store history.Store, cfg *config.Config, notifier notify.Notifier, logger *logging.Logger) *Updater {
	u := &Updater{
		manager:         manager,
		merger:          m,
		store:           store,
		notifier:        notifier,
		logger:          logger,
		mappings:        cfg.Mappings,
		refreshInterval: time.Duration(cfg.RefreshInterval) * time.Minute,
		now:             func() int64 { return time.Now().UnixMilli() },
	}

	u.initializedAt = u.now()

	return u
}

// SetBroadcast installs a callback invoked with each cycle's snapshot.
func (u *Updater) SetBroadcast(broadcast func(sources.Tickers)) {
	u.broadcast = broadcast
}

// SetClock replaces the timestamp function. Used in tests.
func (u *Updater) SetClock(now func() int64) {
	u.now = now
	u.initializedAt = now()
}

// Run performs an immediate update cycle, then repeats on every refresh
// interval until the context is canceled.
func (u *Updater) Run(ctx context.Context) {
	u.UpdateTickers(ctx)

	ticker := time.NewTicker(u.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.UpdateTickers(ctx)
		}
	}
}

// UpdateTickers fetches every enabled source concurrently, merges the
// results in registration order and persists the resolved snapshot.
func (u *Updater) UpdateTickers(ctx context.Context) {
	u.logger.Info("Updating rates")

	started := time.Now()

	enabled := u.manager.EnabledSources()

	type fetchResult struct {
		tickers sources.Tickers
		err     error
	}

	results := make([]fetchResult, len(enabled))

	var group errgroup.Group
	for i, src := range enabled {
		i, src := i, src
		group.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
			defer cancel()

			tickers, err := src.Fetch(fetchCtx, BaseCurrency)
			results[i] = fetchResult{tickers: tickers, err: err}
			return nil
		})
	}
	_ = group.Wait()

	accumulator := make(sources.SourceTickers)
	available := 0

	for i, src := range enabled {
		name := src.ResourceName()

		if results[i].err != nil {
			metrics.RecordFetchError(name)
			u.logger.Warn("Source fetch failed", "source", name, "error", results[i].err.Error())
			u.notifier.Notify(notify.LevelWarn, fmt.Sprintf(
				"Unable to get data from %s. InfoService will provide previous rates; historical rates wouldn't be saved for the source.",
				name))
			continue
		}

		metrics.RecordSourceUpdate(name)
		u.merger.MergeTickers(accumulator, sources.ApplyMappings(results[i].tickers, u.mappings), name)
		available++
	}

	u.merger.SetTickers(accumulator)

	snapshot := u.merger.Tickers()
	metrics.RecordCycle(time.Since(started), len(snapshot))

	if u.broadcast != nil {
		u.broadcast(snapshot)
	}

	if available <= 0 {
		u.notifier.Notify(notify.LevelError,
			"Unable to get new rates from all sources. No data has been saved")
		return
	}

	if gaps := u.merger.RatesWithFewerSources(); len(gaps) > 0 {
		formatted := make([]string, 0, len(gaps))
		for _, gap := range gaps {
			formatted = append(formatted, fmt.Sprintf(
				"%s (expected %d, but got %d)", gap.Pair, gap.Expected, gap.Got))
		}

		u.notifier.Notify(notify.LevelWarn, fmt.Sprintf(
			"The following rates have been fetched from fewer sources than expected and therefore won't be saved: %s",
			strings.Join(formatted, "; ")))
	}

	u.saveTickers(ctx, snapshot, available)
}

// saveTickers persists the snapshot. A failed write keeps serving the
// in-memory snapshot; the payload is logged for manual recovery.
func (u *Updater) saveTickers(ctx context.Context, tickers sources.Tickers, available int) {
	date := u.now()

	if err := u.store.Append(ctx, date, tickers); err != nil {
		metrics.RecordHistoryWriteError()

		u.notifier.Notify(notify.LevelError, fmt.Sprintf(
			"Error: Unable to save new rates in history database: %s. See logs for details",
			strings.TrimRight(err.Error(), ".")))

		if payload, marshalErr := json.Marshal(tickers); marshalErr == nil {
			u.logger.Error("Unsaved snapshot", "tickers", string(payload))
		}

		return
	}

	metrics.RecordSnapshotSaved()

	u.mu.Lock()
	u.lastUpdated = date
	u.mu.Unlock()

	u.logger.Info(fmt.Sprintf("Rates from %d/%d sources saved successfully",
		available, u.manager.SourceCount()))
}

// GetTickers returns the resolved snapshot filtered to the requested coins.
// An empty coin list returns every pair. A non-default lifetime recomputes
// the snapshot without touching stored state.
func (u *Updater) GetTickers(coins []string, rateLifetime int64) sources.Tickers {
	var tickers sources.Tickers
	if rateLifetime == 0 || rateLifetime == u.merger.RateLifetime() {
		tickers = u.merger.Tickers()
	} else {
		tickers = u.merger.TickersWithLifetime(rateLifetime)
	}

	if len(coins) == 0 {
		return tickers
	}

	requested := make(map[string]bool, len(coins))
	for _, coin := range coins {
		requested[coin] = true
	}

	filtered := make(sources.Tickers)
	for pair, rate := range tickers {
		quote, base, ok := sources.SplitPair(pair)
		if ok && (requested[quote] || requested[base]) {
			filtered[pair] = rate
		}
	}

	return filtered
}

// GetHistory serves stored snapshots. A timestamp query returns the single
// nearest snapshot at or before it.
func (u *Updater) GetHistory(ctx context.Context, q history.Query) ([]history.Snapshot, error) {
	if q.Timestamp != 0 {
		snapshot, err := u.store.NearestBefore(ctx, q.Timestamp)
		if err != nil {
			return nil, err
		}
		if snapshot == nil {
			return []history.Snapshot{}, nil
		}
		return []history.Snapshot{*snapshot}, nil
	}

	return u.store.History(ctx, q)
}

// LastUpdated returns the save time of the latest persisted snapshot in
// unix milliseconds, zero before the first successful save.
func (u *Updater) LastUpdated() int64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.lastUpdated
}

// Status reports schedule state for the status endpoint.
func (u *Updater) Status() Status {
	u.mu.RLock()
	lastUpdated := u.lastUpdated
	u.mu.RUnlock()

	ready := lastUpdated != 0

	nextUpdate := u.initializedAt
	if ready {
		nextUpdate = lastUpdated + u.refreshInterval.Milliseconds()
	}

	return Status{
		Ready:      ready,
		Updating:   nextUpdate < u.now(),
		NextUpdate: nextUpdate,
	}
}
