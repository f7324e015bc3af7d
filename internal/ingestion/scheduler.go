// Package ingestion coordinates periodic collection across all streaming
// instruments (§4.C3 Ingestion Scheduler): a hand-rolled cadence loop
// dispatches fetch tasks onto a bounded worker pool, validates and commits
// accepted ticks, and fans them out to registered TickSinks.
package ingestion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/cryptosignal/internal/apperrors"
	"github.com/aristath/cryptosignal/internal/events"
	"github.com/aristath/cryptosignal/internal/instrument"
	"github.com/aristath/cryptosignal/internal/model"
	"github.com/aristath/cryptosignal/internal/quotesource"
	"github.com/rs/zerolog"
)

const (
	defaultCycleDeadline     = 30 * time.Second
	defaultStopTimeout       = 10 * time.Second
	maxMovePct               = 0.10 // 10% max move vs. last successful price
	dedupeWindow             = 2 * time.Second
	consecutiveFailThreshold = 10
	failurePauseDuration     = 60 * time.Second
)

// Config controls the scheduler's cadence and concurrency.
type Config struct {
	UpdateIntervalSec int
	MaxWorkers        int
}

// Stats is a snapshot of scheduler activity, returned by Stats().
type Stats struct {
	Running         bool
	CyclesRun       int64
	TicksAccepted   int64
	TicksRejected   int64
	ConsecutiveFail int
	Paused          bool
}

// HealthStatus is the result of HealthCheck().
type HealthStatus struct {
	Status            string // "healthy" | "degraded" | "unhealthy"
	StreamingCount    int
	UnavailableSources []string
}

type acceptedKey struct {
	source string
	price  float64
	at     time.Time
}

// Scheduler is the C3 Ingestion Scheduler.
type Scheduler struct {
	registry *instrument.Registry
	sources  []quotesource.Source // declared priority order
	sinks    []events.TickSink
	pool     *workerPool
	log      zerolog.Logger
	cfg      Config

	mu          sync.Mutex
	running     bool
	paused      bool
	stopCh      chan struct{}
	doneCh      chan struct{}
	cyclesRun   int64
	accepted    int64
	rejected    int64
	consecFail  int

	lastMu       sync.Mutex
	lastAccepted map[string]float64       // symbol -> last accepted price
	recentTicks  map[string]acceptedKey   // symbol -> last accepted (source,price,time), for dedupe
}

// New constructs a Scheduler. sources is tried in priority order per
// instrument fetch.
func New(cfg Config, registry *instrument.Registry, sources []quotesource.Source, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		registry:     registry,
		sources:      sources,
		pool:         newWorkerPool(cfg.MaxWorkers),
		log:          log.With().Str("component", "ingestion_scheduler").Logger(),
		cfg:          cfg,
		lastAccepted: make(map[string]float64),
		recentTicks:  make(map[string]acceptedKey),
	}
}

// RegisterSink adds a TickSink to be notified of every accepted tick.
func (s *Scheduler) RegisterSink(sink events.TickSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// StartAll begins the background cadence loop. Returns false if already
// running or if no instrument is currently enabled.
func (s *Scheduler) StartAll() bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false
	}
	anyEnabled := false
	for _, inst := range s.registry.All() {
		if inst.GetStatus() == instrument.StatusEnabled {
			anyEnabled = true
			break
		}
	}
	if !anyEnabled {
		s.mu.Unlock()
		return false
	}

	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.loop()
	return true
}

// StopAll cooperatively stops the cadence loop, draining in-flight
// fetches, bounded by a 10s join timeout.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	select {
	case <-done:
	case <-time.After(defaultStopTimeout):
		s.log.Warn().Msg("ingestion scheduler stop timed out waiting for loop to drain")
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// StartInstrument enables and starts streaming for sym.
func (s *Scheduler) StartInstrument(sym string) bool {
	inst, ok := s.registry.Get(sym)
	if !ok {
		return false
	}
	inst.Enable()
	return inst.StartStreaming()
}

// StopInstrument stops streaming for sym without disabling it.
func (s *Scheduler) StopInstrument(sym string) {
	if inst, ok := s.registry.Get(sym); ok {
		inst.StopStreaming()
	}
}

// Stats returns a snapshot of scheduler counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Running:         s.running,
		CyclesRun:       s.cyclesRun,
		TicksAccepted:   s.accepted,
		TicksRejected:   s.rejected,
		ConsecutiveFail: s.consecFail,
		Paused:          s.paused,
	}
}

// HealthCheck reports aggregate streaming health and which sources are
// currently unavailable.
func (s *Scheduler) HealthCheck() HealthStatus {
	streaming := s.registry.Streaming()
	var unavailable []string
	for _, src := range s.sources {
		if !src.IsAvailable() {
			unavailable = append(unavailable, src.Name())
		}
	}

	status := "healthy"
	if len(unavailable) > 0 {
		status = "degraded"
	}
	if len(streaming) == 0 {
		status = "unhealthy"
	}

	return HealthStatus{Status: status, StreamingCount: len(streaming), UnavailableSources: unavailable}
}

// ResetAllErrors clears every source's error budget, undoing the
// errorCount>=5 unavailability latch.
func (s *Scheduler) ResetAllErrors() {
	for _, src := range s.sources {
		src.ResetErrors()
	}
}

func (s *Scheduler) loop() {
	defer close(s.doneCh)

	interval := time.Duration(s.cfg.UpdateIntervalSec) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		s.runCycle()

		t := time.NewTimer(interval)
		select {
		case <-s.stopCh:
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (s *Scheduler) runCycle() {
	s.mu.Lock()
	if s.paused {
		s.paused = false // one pause per escalation; resume after the 60s wait below elapses naturally via the cadence loop
	}
	s.mu.Unlock()

	targets := s.registry.Streaming()
	if len(targets) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultCycleDeadline)
	defer cancel()

	results := s.pool.run(len(targets), func(i int) error {
		return s.fetchAndCommit(ctx, targets[i])
	})

	cycleFailed := true
	for _, err := range results {
		if err == nil {
			cycleFailed = false
			break
		}
	}

	s.mu.Lock()
	s.cyclesRun++
	if cycleFailed {
		s.consecFail++
	} else {
		s.consecFail = 0
	}
	escalate := s.consecFail >= consecutiveFailThreshold
	if escalate {
		s.consecFail = 0
		s.paused = true
	}
	s.mu.Unlock()

	if escalate {
		s.log.Warn().Msg("ingestion scheduler pausing after consecutive total-fetch failures")
		select {
		case <-s.stopCh:
		case <-time.After(failurePauseDuration):
		}
	}
}

// fetchAndCommit fetches one tick for inst by trying sources in priority
// order, then validates, dedupes and commits it, fanning it out to sinks.
func (s *Scheduler) fetchAndCommit(ctx context.Context, inst *instrument.Instrument) error {
	var lastErr error
	for _, src := range s.sources {
		if !src.IsAvailable() {
			continue
		}
		t, err := src.Fetch(ctx, inst.Symbol)
		if err != nil {
			lastErr = err
			continue
		}
		return s.commit(inst, t)
	}
	inst.RecordError()
	s.mu.Lock()
	s.rejected++
	s.mu.Unlock()
	if lastErr == nil {
		lastErr = fmt.Errorf("no available source produced a tick for %s", inst.Symbol)
	}
	return lastErr
}

func (s *Scheduler) commit(inst *instrument.Instrument, t model.Tick) error {
	if err := s.validate(inst.Symbol, t); err != nil {
		inst.RecordError()
		s.mu.Lock()
		s.rejected++
		s.mu.Unlock()
		return err
	}

	if err := inst.AddTick(t); err != nil {
		s.mu.Lock()
		s.rejected++
		s.mu.Unlock()
		return err
	}

	s.lastMu.Lock()
	s.lastAccepted[inst.Symbol] = t.Price
	s.recentTicks[inst.Symbol] = acceptedKey{source: t.Source, price: t.Price, at: t.Timestamp}
	s.lastMu.Unlock()

	s.mu.Lock()
	s.accepted++
	sinks := make([]events.TickSink, len(s.sinks))
	copy(sinks, s.sinks)
	s.mu.Unlock()

	for _, sink := range sinks {
		sink.OnTick(inst.Symbol, t)
	}
	return nil
}

// validate applies the 10% max-move-vs-last-successful-price check and the
// same-source/same-price-within-2s dedupe rule (§4.C3 step 4).
func (s *Scheduler) validate(symbol string, t model.Tick) error {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()

	if last, ok := s.lastAccepted[symbol]; ok && last > 0 {
		move := (t.Price - last) / last
		if move < 0 {
			move = -move
		}
		if move > maxMovePct {
			return fmt.Errorf("tick for %s: %.2f%% move exceeds %.0f%% bound: %w", symbol, move*100, maxMovePct*100, apperrors.ErrValidation)
		}
	}

	if prev, ok := s.recentTicks[symbol]; ok {
		if prev.source == t.Source && prev.price == t.Price && t.Timestamp.Sub(prev.at) < dedupeWindow {
			return fmt.Errorf("tick for %s: duplicate of prior tick within %s: %w", symbol, dedupeWindow, apperrors.ErrDuplicateTick)
		}
	}
	return nil
}
