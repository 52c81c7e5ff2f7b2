package history

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Adamant-im/currencyinfo/pkg/rates/sources"
)

// TickerRow is one persisted pair rate. A snapshot saved at Date consists
// of every row sharing that Date plus one TimestampRow marker.
type TickerRow struct {
	ID    uint            `gorm:"primaryKey"`
	Quote string          `gorm:"index:idx_pair"`
	Base  string          `gorm:"index:idx_pair"`
	Rate  decimal.Decimal `gorm:"type:numeric"`
	Date  int64           `gorm:"index"`
}

// TableName sets the tickers table name.
func (TickerRow) TableName() string {
	return "tickers"
}

// TimestampRow marks one completed snapshot save.
type TimestampRow struct {
	ID   string `gorm:"primaryKey;type:uuid"`
	Date int64  `gorm:"index"`
}

// TableName sets the timestamps table name.
func (TimestampRow) TableName() string {
	return "timestamps"
}

// buildRows converts a resolved snapshot into ticker rows. The pair name
// "BTC/USD" stores Quote=BTC, Base=USD.
func buildRows(date int64, tickers sources.Tickers) []TickerRow {
	rows := make([]TickerRow, 0, len(tickers))

	for pair, rate := range tickers {
		quote, base, ok := sources.SplitPair(pair)
		if !ok {
			continue
		}

		rows = append(rows, TickerRow{
			Quote: quote,
			Base:  base,
			Rate:  rate,
			Date:  date,
		})
	}

	return rows
}

// buildSnapshots groups ticker rows by save date, newest first. Dates
// without a timestamp marker are skipped: their save never completed.
func buildSnapshots(rows []TickerRow, markers map[int64]string) []Snapshot {
	byDate := make(map[int64]sources.Tickers)
	for _, row := range rows {
		tickers, ok := byDate[row.Date]
		if !ok {
			tickers = make(sources.Tickers)
			byDate[row.Date] = tickers
		}
		tickers[row.Quote+"/"+row.Base] = row.Rate
	}

	dates := make([]int64, 0, len(byDate))
	for date := range byDate {
		if _, ok := markers[date]; ok {
			dates = append(dates, date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] > dates[j] })

	snapshots := make([]Snapshot, 0, len(dates))
	for _, date := range dates {
		snapshots = append(snapshots, Snapshot{
			ID:      markers[date],
			Date:    date,
			Tickers: byDate[date],
		})
	}

	return snapshots
}
