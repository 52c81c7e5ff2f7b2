package sources

import (
	"context"
	"sync"
	"time"

	"github.com/Adamant-im/currencyinfo/pkg/logging"
)

// ResolverState describes where a coin-ID resolution stands.
type ResolverState int32

const (
	// StatePending means resolution has not started yet.
	StatePending ResolverState = iota
	// StateResolving means a catalog lookup is in flight.
	StateResolving
	// StateReady means coin IDs were resolved successfully.
	StateReady
	// StateFailed means the retry budget was exhausted.
	StateFailed
)

// String returns a readable state name.
func (s ResolverState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResolving:
		return "resolving"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 10 * time.Second
)

// CoinIDResolver drives a source's symbol-to-provider-ID translation.
// It retries the catalog lookup with linearly increasing backoff and
// reports exhaustion as a typed *FatalSetupError instead of terminating.
type CoinIDResolver struct {
	source      string
	lookup      func(ctx context.Context) error
	maxAttempts int
	baseDelay   time.Duration
	logger      *logging.Logger

	mu    sync.Mutex
	state ResolverState
}

// NewCoinIDResolver creates a resolver for the named source. lookup performs
// one catalog request and stores the resolved IDs on the source.
func NewCoinIDResolver(source string, lookup func(ctx context.Context) error, logger *logging.Logger) *CoinIDResolver {
	return &CoinIDResolver{
		source:      source,
		lookup:      lookup,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		logger:      logger,
		state:       StatePending,
	}
}

// SetBackoff overrides the retry budget. Used in tests.
func (r *CoinIDResolver) SetBackoff(maxAttempts int, baseDelay time.Duration) {
	r.maxAttempts = maxAttempts
	r.baseDelay = baseDelay
}

// State returns the current resolver state.
func (r *CoinIDResolver) State() ResolverState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *CoinIDResolver) setState(state ResolverState) {
	r.mu.Lock()
	r.state = state
	r.mu.Unlock()
}

// Resolve runs the catalog lookup until it succeeds or the attempt cap is
// exceeded. Safe to call once; subsequent calls after success return nil
// immediately.
func (r *CoinIDResolver) Resolve(ctx context.Context) error {
	if r.State() == StateReady {
		return nil
	}

	r.setState(StateResolving)

	var lastErr error

	for attempt := 0; attempt <= r.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * r.baseDelay

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				r.setState(StateFailed)
				return &FatalSetupError{Source: r.source, Err: ctx.Err()}
			}
		}

		lastErr = r.lookup(ctx)
		if lastErr == nil {
			r.setState(StateReady)
			return nil
		}

		r.logger.Warn("Could not get coin IDs",
			"source", r.source,
			"attempt", attempt,
			"max_attempts", r.maxAttempts,
			"error", lastErr.Error())
	}

	r.setState(StateFailed)

	return &FatalSetupError{Source: r.source, Err: lastErr}
}
