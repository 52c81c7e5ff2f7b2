package sources

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Adamant-im/currencyinfo/pkg/config"
	"github.com/Adamant-im/currencyinfo/pkg/logging"
	"github.com/Adamant-im/currencyinfo/pkg/notify"
)

// Manager owns the source set. It resolves which sources are enabled,
// computes per-pair source coverage and the global coin universe, and
// exposes aggregate weights to the merger.
type Manager struct {
	sources  []Source
	disabled map[string]bool

	minSources int
	mappings   map[string]string
	baseCoins  []string

	allCoins    []string
	pairSources map[string]int
	sourceCount int

	logger   *logging.Logger
	notifier notify.Notifier
}

// NewManager creates a manager over the given sources. The slice order is
// the registration order used for deterministic merging.
func NewManager(srcs []Source, cfg *config.Config, logger *logging.Logger, notifier notify.Notifier) *Manager {
	return &Manager{
		sources:     srcs,
		disabled:    make(map[string]bool),
		minSources:  cfg.MinSources,
		mappings:    cfg.Mappings,
		baseCoins:   cfg.BaseCoins,
		pairSources: make(map[string]int),
		logger:      logger,
		notifier:    notifier,
	}
}

// Initialize waits for sources that need coin-ID resolution, then computes
// the coin universe and per-pair coverage. A source whose resolution
// exhausts its retry budget is disabled and reported, not fatal.
func (m *Manager) Initialize(ctx context.Context) error {
	for _, src := range m.sources {
		if !src.Enabled() {
			continue
		}

		ready, ok := src.(ReadySource)
		if !ok {
			continue
		}

		if err := ready.Ready(ctx); err != nil {
			var fatal *FatalSetupError
			if errors.As(err, &fatal) {
				m.disabled[src.ResourceName()] = true
				m.notifier.Notify(notify.LevelError, fmt.Sprintf(
					"Source %s is disabled: %v.", src.ResourceName(), fatal.Err))

				continue
			}

			return fmt.Errorf("source %s: %w", src.ResourceName(), err)
		}
	}

	m.sourceCount = len(m.EnabledSources())

	m.collectCoins()
	m.warnInsufficiency()
	m.warnUnavailableBaseCoins()

	return nil
}

// Sources returns every registered source.
func (m *Manager) Sources() []Source {
	return m.sources
}

// EnabledSources returns the sources eligible for fetching, in
// registration order.
func (m *Manager) EnabledSources() []Source {
	enabled := make([]Source, 0, len(m.sources))
	for _, src := range m.sources {
		if src.Enabled() && !m.disabled[src.ResourceName()] {
			enabled = append(enabled, src)
		}
	}
	return enabled
}

// SourceCount returns the number of enabled sources.
func (m *Manager) SourceCount() int {
	return m.sourceCount
}

// SourceWeights returns the resourceName to weight map fed to the merger.
func (m *Manager) SourceWeights() map[string]int {
	weights := make(map[string]int)
	for _, src := range m.EnabledSources() {
		weights[src.ResourceName()] = src.Weight()
	}
	return weights
}

// AllCoins returns the union of every enabled source's coins, after alias
// mapping, excluding USD.
func (m *Manager) AllCoins() []string {
	return m.allCoins
}

// PairSources returns the per-pair count of distinct covering sources,
// capped at the configured minimum.
func (m *Manager) PairSources() map[string]int {
	return m.pairSources
}

func (m *Manager) mapCoin(coin string) string {
	if alias, ok := m.mappings[coin]; ok {
		return alias
	}
	return coin
}

func (m *Manager) collectCoins() {
	coins := make(map[string]bool)

	for _, src := range m.EnabledSources() {
		for _, enabledCoin := range src.EnabledCoins() {
			baseCoin := m.mapCoin(enabledCoin)

			if baseCoin == "USD" {
				continue
			}

			pairName := baseCoin + "/USD"
			if m.pairSources[pairName] < m.minSources {
				m.pairSources[pairName]++
			}

			coins[baseCoin] = true
		}
	}

	m.allCoins = make([]string, 0, len(coins))
	for coin := range coins {
		m.allCoins = append(m.allCoins, coin)
	}
	sort.Strings(m.allCoins)
}

// warnInsufficiency reports pairs with fewer covering sources than the
// configured minimum. They are still collected; the merger decides.
func (m *Manager) warnInsufficiency() {
	var low []string

	pairs := make([]string, 0, len(m.pairSources))
	for pair := range m.pairSources {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)

	for _, pair := range pairs {
		if count := m.pairSources[pair]; count < m.minSources {
			low = append(low, fmt.Sprintf("%s (%d)", pair, count))
		}
	}

	if len(low) > 0 {
		m.logger.Warn(fmt.Sprintf(
			"The following pairs have fewer enabled sources than the configured minimum (minSources=%d), but they are going to be saved anyway: %s",
			m.minSources, strings.Join(low, ", ")))
	}
}

// warnUnavailableBaseCoins reports configured base coins that no enabled
// source provides. Startup continues; their cross rates are simply absent.
func (m *Manager) warnUnavailableBaseCoins() {
	available := make(map[string]bool, len(m.allCoins))
	for _, coin := range m.allCoins {
		available[coin] = true
	}

	var unavailable []string
	for _, coin := range m.baseCoins {
		mapped := m.mapCoin(coin)
		if mapped != "USD" && !available[mapped] {
			unavailable = append(unavailable, mapped)
		}
	}

	if len(unavailable) > 0 {
		m.logger.Warn(fmt.Sprintf(
			"No resources provide rates for the following base coins: %s. As a result, the rates for these base coins will NOT be saved.",
			strings.Join(unavailable, ", ")))
	}
}
