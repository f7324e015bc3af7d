package quotesource

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/aristath/cryptosignal/internal/model"
	"github.com/rs/zerolog"
)

// SimulatedSource is a deterministic fallback that produces random-walk
// ticks around a per-symbol base price. It is always available, used when
// FallbackToSimulated is enabled and every upstream source is unavailable.
type SimulatedSource struct {
	mu         sync.Mutex
	log        zerolog.Logger
	rng        *rand.Rand
	basePrices map[string]float64
	lastPrices map[string]float64
	order      []string // fixed symbol order for round-robin bookkeeping
	cursor     int
	budget     *errorBudget
}

// NewSimulatedSource constructs a SimulatedSource seeded with basePrices, a
// symbol->starting-price map. seed controls the deterministic walk.
func NewSimulatedSource(basePrices map[string]float64, seed int64, log zerolog.Logger) *SimulatedSource {
	order := make([]string, 0, len(basePrices))
	last := make(map[string]float64, len(basePrices))
	for sym, price := range basePrices {
		order = append(order, sym)
		last[sym] = price
	}
	return &SimulatedSource{
		log:        log.With().Str("source", "simulated").Logger(),
		rng:        rand.New(rand.NewSource(seed)),
		basePrices: basePrices,
		lastPrices: last,
		order:      order,
		budget:     newErrorBudget(0),
	}
}

func (s *SimulatedSource) Name() string     { return "simulated" }
func (s *SimulatedSource) RateLimitSec() int { return 0 }
func (s *SimulatedSource) IsAvailable() bool { return true } // always available, the documented fallback
func (s *SimulatedSource) ResetErrors()      { s.budget.resetErrors() }

// Fetch returns the next random-walk tick for symbol, registering it on
// first use with its default base price if unseen.
func (s *SimulatedSource) Fetch(_ context.Context, symbol string) (model.Tick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.lastPrices[symbol]
	if !ok {
		last = 100.0 // arbitrary default base price for an unseeded symbol
		s.order = append(s.order, symbol)
	}

	// +/-0.5% random walk step, clamped to stay positive.
	step := last * (s.rng.Float64()*0.01 - 0.005)
	next := last + step
	if next <= 0 {
		next = last
	}
	s.lastPrices[symbol] = next

	divisor := len(s.order)
	if divisor == 0 {
		divisor = 1
	}
	s.cursor = (s.cursor + 1) % divisor

	return model.Tick{
		Timestamp: time.Now().UTC(),
		Symbol:    symbol,
		Price:     next,
		Open:      last,
		High:      max(last, next),
		Low:       min(last, next),
		Close:     next,
		Volume:    1000 + s.rng.Float64()*500,
		Source:    s.Name(),
	}, nil
}

// NextInRotation returns the next symbol in round-robin order and advances
// the rotation (an incrementing counter mod instrument count, not a
// wall-clock parity check).
func (s *SimulatedSource) NextInRotation() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return "", false
	}
	sym := s.order[s.cursor%len(s.order)]
	s.cursor = (s.cursor + 1) % len(s.order)
	return sym, true
}
