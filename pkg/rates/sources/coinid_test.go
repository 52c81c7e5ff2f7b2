package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adamant-im/currencyinfo/pkg/logging"
)

func TestCoinIDResolver_SucceedsFirstTry(t *testing.T) {
	calls := 0
	resolver := NewCoinIDResolver("test", func(context.Context) error {
		calls++
		return nil
	}, logging.Nop())

	require.NoError(t, resolver.Resolve(context.Background()))
	assert.Equal(t, 1, calls)
	assert.Equal(t, StateReady, resolver.State())

	// A second call is a no-op.
	require.NoError(t, resolver.Resolve(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestCoinIDResolver_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	resolver := NewCoinIDResolver("test", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("catalog unavailable")
		}
		return nil
	}, logging.Nop())
	resolver.SetBackoff(3, time.Millisecond)

	require.NoError(t, resolver.Resolve(context.Background()))
	assert.Equal(t, 3, calls)
	assert.Equal(t, StateReady, resolver.State())
}

func TestCoinIDResolver_ExhaustionIsFatalSetupError(t *testing.T) {
	cause := errors.New("catalog unavailable")
	calls := 0
	resolver := NewCoinIDResolver("test", func(context.Context) error {
		calls++
		return cause
	}, logging.Nop())
	resolver.SetBackoff(2, time.Millisecond)

	err := resolver.Resolve(context.Background())
	require.Error(t, err)

	var fatal *FatalSetupError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, "test", fatal.Source)
	assert.ErrorIs(t, err, cause)

	// Initial attempt plus two retries.
	assert.Equal(t, 3, calls)
	assert.Equal(t, StateFailed, resolver.State())
}

func TestCoinIDResolver_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolver := NewCoinIDResolver("test", func(context.Context) error {
		return errors.New("catalog unavailable")
	}, logging.Nop())
	resolver.SetBackoff(2, time.Hour)

	err := resolver.Resolve(ctx)
	require.Error(t, err)

	var fatal *FatalSetupError
	require.ErrorAs(t, err, &fatal)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, resolver.State())
}

func TestResolverState_String(t *testing.T) {
	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "resolving", StateResolving.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "failed", StateFailed.String())
}
