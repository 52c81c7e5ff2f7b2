package sources

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adamant-im/currencyinfo/pkg/config"
	"github.com/Adamant-im/currencyinfo/pkg/logging"
	"github.com/Adamant-im/currencyinfo/pkg/notify"
)

// fakeSource is a minimal Source for manager tests.
type fakeSource struct {
	name    string
	enabled bool
	weight  int
	coins   []string

	readyErr error
}

func (f *fakeSource) Enabled() bool          { return f.enabled }
func (f *fakeSource) ResourceName() string   { return f.name }
func (f *fakeSource) Weight() int            { return f.weight }
func (f *fakeSource) EnabledCoins() []string { return f.coins }

func (f *fakeSource) Fetch(context.Context, string) (Tickers, error) {
	return Tickers{}, nil
}

// fakeReadySource additionally implements ReadySource.
type fakeReadySource struct {
	fakeSource
}

func (f *fakeReadySource) Ready(context.Context) error {
	return f.readyErr
}

func managerConfig() *config.Config {
	return &config.Config{
		MinSources: 2,
		BaseCoins:  []string{"USD", "EUR"},
	}
}

func TestManager_SourceWeightsAndCount(t *testing.T) {
	srcs := []Source{
		&fakeSource{name: "a", enabled: true, weight: 10, coins: []string{"BTC"}},
		&fakeSource{name: "b", enabled: true, weight: 20, coins: []string{"BTC"}},
		&fakeSource{name: "off", enabled: false, weight: 5},
	}

	m := NewManager(srcs, managerConfig(), logging.Nop(), notify.Nop{})
	require.NoError(t, m.Initialize(context.Background()))

	assert.Equal(t, 2, m.SourceCount())
	assert.Equal(t, map[string]int{"a": 10, "b": 20}, m.SourceWeights())

	enabled := m.EnabledSources()
	require.Len(t, enabled, 2)
	assert.Equal(t, "a", enabled[0].ResourceName())
	assert.Equal(t, "b", enabled[1].ResourceName())
}

func TestManager_CoverageCappedAtMinSources(t *testing.T) {
	srcs := []Source{
		&fakeSource{name: "a", enabled: true, coins: []string{"BTC"}},
		&fakeSource{name: "b", enabled: true, coins: []string{"BTC"}},
		&fakeSource{name: "c", enabled: true, coins: []string{"BTC", "ETH"}},
	}

	m := NewManager(srcs, managerConfig(), logging.Nop(), notify.Nop{})
	require.NoError(t, m.Initialize(context.Background()))

	pairSources := m.PairSources()
	assert.Equal(t, 2, pairSources["BTC/USD"], "coverage must cap at minSources")
	assert.Equal(t, 1, pairSources["ETH/USD"])

	assert.Equal(t, []string{"BTC", "ETH"}, m.AllCoins())
}

func TestManager_MappingsAppliedAndUSDExcluded(t *testing.T) {
	cfg := managerConfig()
	cfg.Mappings = map[string]string{"BCHABC": "BCH"}

	srcs := []Source{
		&fakeSource{name: "a", enabled: true, coins: []string{"BCHABC", "USD"}},
	}

	m := NewManager(srcs, cfg, logging.Nop(), notify.Nop{})
	require.NoError(t, m.Initialize(context.Background()))

	assert.Equal(t, []string{"BCH"}, m.AllCoins())
	assert.Contains(t, m.PairSources(), "BCH/USD")
	assert.NotContains(t, m.PairSources(), "USD/USD")
}

func TestManager_FatalSetupErrorDisablesSource(t *testing.T) {
	notifier := &capturingNotifier{}

	failing := &fakeReadySource{fakeSource: fakeSource{
		name:     "broken",
		enabled:  true,
		coins:    []string{"BTC"},
		readyErr: &FatalSetupError{Source: "broken", Err: assert.AnError},
	}}

	srcs := []Source{
		failing,
		&fakeSource{name: "healthy", enabled: true, coins: []string{"BTC"}},
	}

	m := NewManager(srcs, managerConfig(), logging.Nop(), notifier)
	require.NoError(t, m.Initialize(context.Background()))

	enabled := m.EnabledSources()
	require.Len(t, enabled, 1)
	assert.Equal(t, "healthy", enabled[0].ResourceName())
	assert.Equal(t, 1, m.SourceCount())

	require.Len(t, notifier.messages, 1)
	assert.Equal(t, notify.LevelError, notifier.levels[0])
	assert.Contains(t, notifier.messages[0], "Source broken is disabled:")
}

func TestManager_NonFatalReadyErrorFails(t *testing.T) {
	failing := &fakeReadySource{fakeSource: fakeSource{
		name:     "flaky",
		enabled:  true,
		readyErr: assert.AnError,
	}}

	m := NewManager([]Source{failing}, managerConfig(), logging.Nop(), notify.Nop{})
	err := m.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flaky")
}

// capturingNotifier records notifications for assertions.
type capturingNotifier struct {
	levels   []notify.Level
	messages []string
}

func (c *capturingNotifier) Notify(level notify.Level, message string) {
	c.levels = append(c.levels, level)
	c.messages = append(c.messages, message)
}

func TestSplitPair(t *testing.T) {
	quote, base, ok := SplitPair("BTC/USD")
	require.True(t, ok)
	assert.Equal(t, "BTC", quote)
	assert.Equal(t, "USD", base)

	_, _, ok = SplitPair("BTCUSD")
	assert.False(t, ok)

	_, _, ok = SplitPair("/USD")
	assert.False(t, ok)
}

func TestApplyMappings(t *testing.T) {
	tickers := Tickers{
		"BCHABC/USD": decimal.NewFromInt(100),
		"BTC/USD":    decimal.NewFromInt(50000),
	}

	mapped := ApplyMappings(tickers, map[string]string{"BCHABC": "BCH"})

	assert.Contains(t, mapped, "BCH/USD")
	assert.NotContains(t, mapped, "BCHABC/USD")
	assert.Contains(t, mapped, "BTC/USD")
}
