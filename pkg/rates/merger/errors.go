// Package merger reconciles per-source price samples into a single trusted
// rate per pair. It keeps the sample history, clusters samples to reject
// outliers, selects a consensus price via a pluggable strategy, enforces
// staleness and minimum-source policies, derives cross rates via the USD
// pivot, and classifies per-pair failures for escalation.
package merger

import "errors"

var (
	// ErrNoPrices indicates that a pair has no live samples.
	ErrNoPrices = errors.New("No prices for the pair available")
	// ErrUnknownStrategy indicates that the strategy name is unknown.
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// PairError records a per-pair reconciliation failure for one cycle.
type PairError struct {
	Pair    string
	Message string
}
