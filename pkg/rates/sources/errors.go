// Package sources provides price source interfaces, the source manager and
// the coin-ID resolver.
package sources

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedStatus indicates an unexpected HTTP status code.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status code")
	// ErrInvalidResponse indicates an invalid response from the source.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrNoCoinsConfigured indicates that no coins are configured for the source.
	ErrNoCoinsConfigured = errors.New("no coins configured")
	// ErrCoinIDsNotResolved indicates that coin IDs have not been resolved yet.
	ErrCoinIDsNotResolved = errors.New("coin IDs not resolved")
)

// FatalSetupError indicates that a source exhausted its coin-ID resolution
// retry budget and cannot be used. The caller decides whether to disable
// the source or halt.
type FatalSetupError struct {
	Source string
	Err    error
}

// Error implements the error interface.
func (e *FatalSetupError) Error() string {
	return fmt.Sprintf("source %s failed setup: %v", e.Source, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FatalSetupError) Unwrap() error {
	return e.Err
}
