package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
base_coins:
  - USD
history:
  dsn: "host=localhost"
`))
	require.NoError(t, err)

	assert.Equal(t, int32(8), cfg.Decimals)
	assert.Equal(t, "avg", cfg.Strategy)
	assert.Equal(t, float64(25), cfg.RateDifferencePercentThreshold)
	assert.Equal(t, float64(20), cfg.GroupPercentage)
	assert.Equal(t, 1, cfg.MinSources)
	assert.Equal(t, int64(30), cfg.RateLifetime)
	assert.Equal(t, int64(10), cfg.RefreshInterval)
	assert.Equal(t, ":36661", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	require.NoError(t, Validate(cfg))
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_CMC_KEY", "secret-key")

	cfg, err := Load(writeConfig(t, `
base_coins:
  - USD
history:
  dsn: "host=localhost"
sources:
  coinmarketcap:
    api_key: "${TEST_CMC_KEY}"
`))
	require.NoError(t, err)
	assert.Equal(t, "secret-key", cfg.Sources.Coinmarketcap.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_UnknownStrategy(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
strategy: median
base_coins:
  - USD
history:
  dsn: "host=localhost"
`))
	require.NoError(t, err)

	err = Validate(cfg)
	require.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestValidate_MissingBaseCoins(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
history:
  dsn: "host=localhost"
`))
	require.NoError(t, err)

	require.ErrorIs(t, Validate(cfg), ErrNoBaseCoins)
}

func TestValidate_MissingDSN(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
base_coins:
  - USD
`))
	require.NoError(t, err)

	require.ErrorIs(t, Validate(cfg), ErrHistoryDSNRequired)
}

func TestSourceConfig_Enabled(t *testing.T) {
	var sc SourceConfig
	assert.True(t, sc.IsEnabled(), "missing flag counts as enabled")

	off := false
	sc.Enabled = &off
	assert.False(t, sc.IsEnabled())
}

func TestSourceConfig_Weight(t *testing.T) {
	var sc SourceConfig
	assert.Equal(t, DefaultWeight, sc.SourceWeight())

	sc.Weight = 25
	assert.Equal(t, 25, sc.SourceWeight())
}
