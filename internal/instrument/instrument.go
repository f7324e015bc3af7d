// Package instrument maintains, per tracked symbol, the rolling tick
// series, derived 24h statistics, and the streaming lifecycle state
// machine (§4.C2 Instrument State).
package instrument

import (
	"fmt"
	"sync"
	"time"

	"github.com/aristath/cryptosignal/internal/model"
)

// historyCap is the per-instrument rolling history bound (§5 "Memory
// bounds").
const historyCap = 1000

// Status is the instrument's streaming lifecycle state.
type Status string

const (
	StatusDisabled    Status = "DISABLED"
	StatusEnabled     Status = "ENABLED"
	StatusMaintenance Status = "MAINTENANCE"
	StatusError       Status = "ERROR" // reserved for unrecoverable init failures
)

// RangeStats summarizes a time window of the rolling series.
type RangeStats struct {
	Min, Max, Avg float64
	Count         int
}

// Instrument is identity plus runtime streaming/health state for one
// tracked symbol.
type Instrument struct {
	Symbol      string
	DisplayName string
	Color       string
	Icon        string

	UpdateIntervalSec int
	MaxErrors         int
	RetryDelaySec     int

	mu           sync.Mutex
	status       Status
	series       []model.Tick // oldest first, capped at historyCap
	errorCount   int
	lastUpdate   time.Time
	streaming    bool
}

// New constructs a disabled Instrument ready to be enabled and streamed.
func New(symbol, displayName string, updateIntervalSec, maxErrors, retryDelaySec int) *Instrument {
	return &Instrument{
		Symbol:            symbol,
		DisplayName:       displayName,
		UpdateIntervalSec: updateIntervalSec,
		MaxErrors:         maxErrors,
		RetryDelaySec:     retryDelaySec,
		status:            StatusDisabled,
	}
}

// UpdateConfig applies non-nil fields of a partial config patch under the
// instrument's lock, since RecordError and IsStale read these fields
// concurrently with the streaming goroutine.
func (i *Instrument) UpdateConfig(updateIntervalSec, maxErrors, retryDelaySec *int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if updateIntervalSec != nil {
		i.UpdateIntervalSec = *updateIntervalSec
	}
	if maxErrors != nil {
		i.MaxErrors = *maxErrors
	}
	if retryDelaySec != nil {
		i.RetryDelaySec = *retryDelaySec
	}
}

// Enable transitions DISABLED -> ENABLED. A no-op if already enabled.
func (i *Instrument) Enable() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.status == StatusDisabled {
		i.status = StatusEnabled
	}
}

// Disable transitions to DISABLED and stops streaming.
func (i *Instrument) Disable() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.status = StatusDisabled
	i.streaming = false
}

// GetStatus returns the current lifecycle state.
func (i *Instrument) GetStatus() Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}

// StartStreaming begins streaming, failing if the instrument is not
// enabled or is under maintenance.
func (i *Instrument) StartStreaming() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.status != StatusEnabled {
		return false
	}
	i.streaming = true
	return true
}

// StopStreaming stops streaming without changing lifecycle status.
func (i *Instrument) StopStreaming() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.streaming = false
}

// AddTick validates and appends a tick to the series, resetting the error
// count and stamping lastUpdate (§4.C2 addTick).
func (i *Instrument) AddTick(t model.Tick) error {
	if t.Price <= 0 {
		return fmt.Errorf("instrument %s: non-positive price %v rejected", i.Symbol, t.Price)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	i.series = append(i.series, t)
	if len(i.series) > historyCap {
		i.series = i.series[len(i.series)-historyCap:]
	}
	i.errorCount = 0
	i.lastUpdate = t.Timestamp
	return nil
}

// RecordError increments the error count and, at MaxErrors, transitions
// ENABLED -> MAINTENANCE.
func (i *Instrument) RecordError() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.errorCount++
	if i.MaxErrors > 0 && i.errorCount >= i.MaxErrors && i.status == StatusEnabled {
		i.status = StatusMaintenance
		i.streaming = false
	}
}

// ResetMaintenance clears the error count and transitions MAINTENANCE ->
// ENABLED, the only path out of maintenance.
func (i *Instrument) ResetMaintenance() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.errorCount = 0
	if i.status == StatusMaintenance {
		i.status = StatusEnabled
	}
}

// Latest returns the most recent tick, or false if the series is empty.
func (i *Instrument) Latest() (model.Tick, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.series) == 0 {
		return model.Tick{}, false
	}
	return i.series[len(i.series)-1], true
}

// History returns up to limit of the most recent ticks, newest last. limit
// <= 0 returns the full retained series.
func (i *Instrument) History(limit int) []model.Tick {
	i.mu.Lock()
	defer i.mu.Unlock()
	if limit <= 0 || limit >= len(i.series) {
		out := make([]model.Tick, len(i.series))
		copy(out, i.series)
		return out
	}
	start := len(i.series) - limit
	out := make([]model.Tick, limit)
	copy(out, i.series[start:])
	return out
}

// Range returns min/max/avg/count over the ticks within the last `hours`,
// measured back from the newest retained tick's timestamp rather than the
// wall clock: the window starts at the first retained tick at or after that
// boundary, so when the retained series does not reach back that far the
// whole series from the oldest tick is used (documented simplification,
// see SPEC_FULL.md decided-open-questions).
func (i *Instrument) Range(hours float64) RangeStats {
	i.mu.Lock()
	defer i.mu.Unlock()

	if len(i.series) == 0 {
		return RangeStats{}
	}

	cutoff := i.series[len(i.series)-1].Timestamp.Add(-time.Duration(hours * float64(time.Hour)))
	startIdx := 0
	for idx, t := range i.series {
		if !t.Timestamp.Before(cutoff) {
			startIdx = idx
			break
		}
		startIdx = idx
	}

	window := i.series[startIdx:]
	stats := RangeStats{Min: window[0].Price, Max: window[0].Price, Count: len(window)}
	sum := 0.0
	for _, t := range window {
		if t.Price < stats.Min {
			stats.Min = t.Price
		}
		if t.Price > stats.Max {
			stats.Max = t.Price
		}
		sum += t.Price
	}
	stats.Avg = sum / float64(len(window))
	return stats
}

// IsStreamingHealthy reports whether the instrument is actively streaming,
// has not gone stale (no update within 3x its update interval), and is
// under its error threshold.
func (i *Instrument) IsStreamingHealthy() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.streaming {
		return false
	}
	if i.UpdateIntervalSec > 0 {
		staleAfter := time.Duration(3*i.UpdateIntervalSec) * time.Second
		if !i.lastUpdate.IsZero() && time.Since(i.lastUpdate) >= staleAfter {
			return false
		}
	}
	return i.MaxErrors <= 0 || i.errorCount < i.MaxErrors
}
