// Package quotesource provides pluggable providers of periodic price
// snapshots for an instrument (exchange ticker, aggregator, simulated
// fallback), each guarding its own rate limit and error budget.
package quotesource

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aristath/cryptosignal/internal/model"
)

// ErrUnavailable is returned by fetch when the source currently cannot
// serve a symbol (disabled, or no data for the symbol). A rate limit is
// not reported this way: fetch waits out the minimum spacing instead.
var ErrUnavailable = errors.New("quotesource: unavailable")

// maxErrorCount is the consecutive-error threshold at which a source marks
// itself unavailable until resetErrors is called (§4.C1 failure model).
const maxErrorCount = 5

// Source is the capability-bearing abstraction every provider implements.
type Source interface {
	// Fetch returns the latest tick for symbol, or ErrUnavailable if this
	// source currently cannot serve it.
	Fetch(ctx context.Context, symbol string) (model.Tick, error)
	Name() string
	RateLimitSec() int
	IsAvailable() bool
	ResetErrors()
}

// errorBudget tracks the consecutive-failure count and rate-limit spacing
// shared by every source implementation, mirroring the reference stack's
// per-client error/backoff bookkeeping pattern.
type errorBudget struct {
	mu           sync.Mutex
	errorCount   int
	lastCallAt   time.Time
	rateLimitSec int
}

func newErrorBudget(rateLimitSec int) *errorBudget {
	return &errorBudget{rateLimitSec: rateLimitSec}
}

func (b *errorBudget) isAvailable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errorCount < maxErrorCount
}

func (b *errorBudget) resetErrors() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errorCount = 0
}

func (b *errorBudget) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errorCount = 0
}

func (b *errorBudget) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errorCount++
}

// waitForRateLimit sleeps, if needed, until rateLimitSec has elapsed since
// the previous call, then stamps the new call time. It honors ctx
// cancellation while sleeping.
func (b *errorBudget) waitForRateLimit(ctx context.Context) error {
	b.mu.Lock()
	elapsed := time.Since(b.lastCallAt)
	wait := time.Duration(b.rateLimitSec)*time.Second - elapsed
	b.lastCallAt = time.Now()
	b.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
