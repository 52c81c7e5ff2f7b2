package history

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adamant-im/currencyinfo/pkg/rates/sources"
)

func TestBuildRows(t *testing.T) {
	rows := buildRows(1000, sources.Tickers{
		"BTC/USD": decimal.NewFromInt(100000),
		"USD/EUR": decimal.NewFromFloat(0.9),
		"badpair": decimal.NewFromInt(1),
	})

	require.Len(t, rows, 2)

	byPair := make(map[string]TickerRow)
	for _, row := range rows {
		byPair[row.Quote+"/"+row.Base] = row
	}

	require.Contains(t, byPair, "BTC/USD")
	assert.Equal(t, "BTC", byPair["BTC/USD"].Quote)
	assert.Equal(t, "USD", byPair["BTC/USD"].Base)
	assert.Equal(t, int64(1000), byPair["BTC/USD"].Date)
	assert.True(t, byPair["BTC/USD"].Rate.Equal(decimal.NewFromInt(100000)))
}

func TestBuildSnapshots_GroupsByDateNewestFirst(t *testing.T) {
	rows := []TickerRow{
		{Quote: "BTC", Base: "USD", Rate: decimal.NewFromInt(1), Date: 1000},
		{Quote: "ETH", Base: "USD", Rate: decimal.NewFromInt(2), Date: 1000},
		{Quote: "BTC", Base: "USD", Rate: decimal.NewFromInt(3), Date: 2000},
	}
	markers := map[int64]string{1000: "id-old", 2000: "id-new"}

	snapshots := buildSnapshots(rows, markers)

	require.Len(t, snapshots, 2)
	assert.Equal(t, int64(2000), snapshots[0].Date)
	assert.Equal(t, "id-new", snapshots[0].ID)
	assert.Len(t, snapshots[0].Tickers, 1)

	assert.Equal(t, int64(1000), snapshots[1].Date)
	assert.Len(t, snapshots[1].Tickers, 2)
	assert.True(t, snapshots[1].Tickers["ETH/USD"].Equal(decimal.NewFromInt(2)))
}

func TestBuildSnapshots_SkipsDatesWithoutMarker(t *testing.T) {
	rows := []TickerRow{
		{Quote: "BTC", Base: "USD", Rate: decimal.NewFromInt(1), Date: 1000},
		{Quote: "BTC", Base: "USD", Rate: decimal.NewFromInt(2), Date: 2000},
	}

	// The 2000 save never completed; only 1000 has a marker.
	snapshots := buildSnapshots(rows, map[int64]string{1000: "id"})

	require.Len(t, snapshots, 1)
	assert.Equal(t, int64(1000), snapshots[0].Date)
}
