package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/cryptosignal/internal/apperrors"
)

// maxRetries and retryBackoffUnit implement the store's "retry-on-transient"
// contract: up to 3 attempts with linear backoff (§4.C4).
const (
	maxRetries      = 3
	retryBackoffUnit = 20 * time.Millisecond
)

// withRetry runs op, retrying transient SQLite errors (locked/busy) with a
// linear backoff. Non-transient failures return at once, wrapped in
// apperrors.ErrStoreIntegrity for a constraint violation and
// apperrors.ErrStore otherwise; a transient failure that outlasts every
// retry is returned wrapping both apperrors.ErrStoreTransient and
// apperrors.ErrStore.
func withRetry(op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isTransient(err) {
			if isConstraintError(err) {
				return fmt.Errorf("%w: %v", apperrors.ErrStoreIntegrity, err)
			}
			return fmt.Errorf("%w: %v", apperrors.ErrStore, err)
		}

		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt) * retryBackoffUnit)
		}
	}
	return fmt.Errorf("%w: %w: %v (after %d attempts)", apperrors.ErrStore, apperrors.ErrStoreTransient, lastErr, maxRetries)
}

// isDuplicateSignalError reports whether err is a uniqueness-constraint
// violation on trading_signals.signal_id.
func isDuplicateSignalError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "constraint failed") && strings.Contains(msg, "signal_id")
}

// isConstraintError reports whether err is any SQLite constraint violation
// (UNIQUE, CHECK, NOT NULL or FOREIGN KEY); the duplicate-signal case is
// told apart afterwards by isDuplicateSignalError.
func isConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "constraint failed") || strings.Contains(msg, "constraint violation")
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "locked") || strings.Contains(msg, "busy") || errors.Is(err, apperrors.ErrTransientFetch)
}
