// Package history persists resolved rate snapshots and serves range and
// point-in-time queries over them.
package history

import (
	"context"

	"github.com/Adamant-im/currencyinfo/pkg/rates/sources"
)

// MaxLimit caps the number of snapshots a single query may return.
const MaxLimit = 100

// Snapshot is one persisted set of resolved rates.
type Snapshot struct {
	ID string `json:"id"`
	// Date is a unix timestamp in milliseconds
	Date    int64           `json:"date"`
	Tickers sources.Tickers `json:"tickers"`
}

// Query selects snapshots. From/To/Timestamp are unix timestamps in
// milliseconds; zero values mean unset. Coin filters pairs: a bare coin
// matches either side, "A/B" matches quote and/or base.
type Query struct {
	From      int64
	To        int64
	Timestamp int64
	Coin      string
	Limit     int
}

// Store is the history persistence contract.
type Store interface {
	// Append writes one snapshot plus its timestamp marker.
	Append(ctx context.Context, date int64, tickers sources.Tickers) error

	// History returns snapshots matching the query, newest first,
	// limited to MaxLimit.
	History(ctx context.Context, q Query) ([]Snapshot, error)

	// NearestBefore returns the latest snapshot at or before the given
	// timestamp, or nil when none exists.
	NearestBefore(ctx context.Context, timestamp int64) (*Snapshot, error)
}
