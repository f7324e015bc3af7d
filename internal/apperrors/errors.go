// Package apperrors groups the error taxonomy shared across the ingestion,
// persistence and signal-lifecycle components, in the wrapped-sentinel style
// used throughout the reference stack's internal/deployment and
// internal/reliability packages.
package apperrors

import "errors"

// Sentinel errors. Wrap with fmt.Errorf("...: %w", Err...) to add context;
// callers compare with errors.Is.
var (
	// ErrTransientFetch covers network/timeout/HTTP-5xx failures talking to
	// a quote source. Never surfaces past the ingestion scheduler.
	ErrTransientFetch = errors.New("transient fetch error")

	// ErrMalformedResponse covers a provider response that failed JSON or
	// schema validation. Treated the same as ErrTransientFetch.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrValidation covers a tick rejected for an excessive jump versus the
	// last accepted price; no absolute price range is checked. Not a source
	// error.
	ErrValidation = errors.New("tick validation failed")

	// ErrDuplicateTick covers a tick dropped as a duplicate of the
	// immediately preceding one from the same source.
	ErrDuplicateTick = errors.New("duplicate tick")

	// ErrSignalValidation covers a candidate signal rejected by parameter
	// or market-condition validation.
	ErrSignalValidation = errors.New("signal validation failed")

	// ErrSignalUniqueness covers a candidate signal whose hash already
	// exists in the uniqueness set.
	ErrSignalUniqueness = errors.New("signal not unique")

	// ErrSignalOverlap covers a candidate signal overlapping an existing
	// active signal (same directional bias, entries within 1%).
	ErrSignalOverlap = errors.New("signal overlaps an active signal")

	// ErrSignalCooldown covers a candidate signal rejected because its
	// pattern is within its cooldown window.
	ErrSignalCooldown = errors.New("pattern in cooldown")

	// ErrStoreTransient covers a recoverable storage error; retried up to
	// 3 times with linear backoff before escalating to ErrStore.
	ErrStoreTransient = errors.New("transient store error")

	// ErrStore covers a storage error surfaced after retry exhaustion.
	ErrStore = errors.New("store error")

	// ErrDuplicateSignal covers a uniqueness-constraint violation on
	// trading_signals.signal_id — recovered silently by the signal manager.
	ErrDuplicateSignal = errors.New("duplicate signal")

	// ErrStoreIntegrity covers a non-duplicate constraint violation,
	// logged at error level and surfaced to the caller.
	ErrStoreIntegrity = errors.New("store integrity error")

	// ErrFatalInit covers an unrecoverable store/schema failure at
	// startup; the process must not start.
	ErrFatalInit = errors.New("fatal initialization error")
)
