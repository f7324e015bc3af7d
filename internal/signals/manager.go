package signals

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/cryptosignal/internal/apperrors"
	"github.com/aristath/cryptosignal/internal/database"
	"github.com/aristath/cryptosignal/internal/model"
	"github.com/rs/zerolog"
)

// maxActive bounds the number of concurrently open signals (§4.C8). It is
// fixed at 10: the trading.maxConcurrentSignals setting does not change it
// (the facade's health check compares the active count against that
// setting, nothing more).
const maxActive = 10

// ErrSignalNotFound is returned by CloseManually when signalID names no
// currently active signal.
var ErrSignalNotFound = errors.New("signal not found or not active")

const (
	unactivatedExpiry = 24 * time.Hour
	activatedExpiry   = 48 * time.Hour
	activationTolerance = 0.001
)

// Manager is the central signal lifecycle authority: creation (validated,
// deduplicated, cooldown-gated, overlap-checked), activation, target/stop
// resolution and expiry (§4.C8).
type Manager struct {
	mu     sync.Mutex
	active map[string]model.Signal

	uniqueness *UniquenessTracker
	repo       *database.SignalRepository
	log        zerolog.Logger
}

// NewManager constructs a Manager backed by repo, with the active table
// and hash set empty until Recover is called; cooldown state starts empty
// and Recover does not restore it.
func NewManager(repo *database.SignalRepository, log zerolog.Logger) *Manager {
	return &Manager{
		active:     make(map[string]model.Signal),
		uniqueness: NewUniquenessTracker(),
		repo:       repo,
		log:        log.With().Str("component", "signal_manager").Logger(),
	}
}

// Recover loads every ACTIVE signal from the store into the in-memory
// active table and re-registers its hash, without restoring cooldowns
// (§4.C8 "Recovery").
func (m *Manager) Recover(ctx context.Context) error {
	signals, err := m.repo.GetActive(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range signals {
		m.active[s.SignalID] = s
		m.uniqueness.Register(s.SignalID)
	}
	return nil
}

// Create evaluates a pattern candidate against the ordered §4.C8 rejection
// checks and, if all pass, persists and activates a new Signal. A false
// return with no error is an ordinary rejection; err is reserved for store
// failures.
func (m *Manager) Create(ctx context.Context, symbol string, c model.Candidate, currentPrice float64, indicatorValues map[string]float64, now time.Time) (accept bool, reason string, err error) {
	m.mu.Lock()

	if len(m.active) >= maxActive {
		m.mu.Unlock()
		return false, "active signal capacity reached", nil
	}

	if m.uniqueness.InCooldown(c.PatternType, now) {
		m.mu.Unlock()
		return false, "pattern in cooldown", nil
	}
	m.mu.Unlock()

	if res := ValidateParameters(c, currentPrice); !res.Accept {
		m.log.Debug().Str("pattern", c.PatternType).Str("reason", res.Reason).Msg("signal rejected: parameters")
		return false, res.Reason, nil
	}
	if res := ValidateMarketConditions(indicatorValues); !res.Accept {
		m.log.Debug().Str("pattern", c.PatternType).Str("reason", res.Reason).Msg("signal rejected: market conditions")
		return false, res.Reason, nil
	}

	hash := Hash(c.PatternType, c.Entry, c.Target, c.Stop, currentPrice)
	if !m.uniqueness.IsUnique(hash) {
		return false, "duplicate signal hash", nil
	}

	m.mu.Lock()
	if m.overlapsLocked(c) {
		m.mu.Unlock()
		return false, "overlapping active signal", nil
	}
	m.mu.Unlock()

	sig := model.Signal{
		SignalID:        hash,
		Symbol:          symbol,
		PatternType:     c.PatternType,
		SignalType:      c.SignalType,
		Entry:           c.Entry,
		Target:          c.Target,
		Stop:            c.Stop,
		Confidence:      c.Confidence,
		RiskRewardRatio: riskReward(c),
		Status:          model.StatusActive,
		Activated:       false,
		CurrentPrice:    currentPrice,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := m.repo.Create(ctx, sig); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateSignal) {
			m.log.Debug().Str("signal_id", hash).Msg("duplicate signal row suppressed")
			return false, "duplicate signal hash", nil
		}
		return false, "", err
	}

	m.mu.Lock()
	m.active[hash] = sig
	m.mu.Unlock()
	m.uniqueness.Register(hash)
	m.uniqueness.SetCooldown(c.PatternType, now)

	m.log.Info().Str("signal_id", hash).Str("pattern", c.PatternType).Str("symbol", symbol).Msg("signal created")
	return true, "", nil
}

// overlapsLocked reports whether an active signal shares c's directional
// bias and has an entry within 1% of c's entry. Caller must hold m.mu.
func (m *Manager) overlapsLocked(c model.Candidate) bool {
	for _, s := range m.active {
		if s.SignalType != c.SignalType {
			continue
		}
		if pctGap(c.Entry, s.Entry) < 0.01 {
			return true
		}
	}
	return false
}

func riskReward(c model.Candidate) float64 {
	reward := absf(c.Target - c.Entry)
	risk := absf(c.Entry - c.Stop)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

// Update applies the freshest price for symbol to every active signal on
// that instrument: activation, target/stop resolution, and expiry
// (§4.C8 "Update").
func (m *Manager) Update(ctx context.Context, symbol string, price float64, now time.Time) error {
	m.mu.Lock()
	var touched []model.Signal
	for _, s := range m.active {
		if s.Symbol != symbol {
			continue
		}
		touched = append(touched, s)
	}
	m.mu.Unlock()

	for _, s := range touched {
		next, closed := transition(s, price, now)
		if next.UpdatedAt.Equal(s.UpdatedAt) && next.Activated == s.Activated && next.Status == s.Status {
			continue
		}

		next.UpdatedAt = now
		if err := m.repo.Update(ctx, next); err != nil {
			return err
		}

		m.mu.Lock()
		if closed {
			delete(m.active, next.SignalID)
		} else {
			m.active[next.SignalID] = next
		}
		m.mu.Unlock()
	}
	return nil
}

// transition computes the next state of s given the freshest price, per
// the activation/target-stop/expiry rules in §4.C8. closed reports whether
// s reached a terminal status.
func transition(s model.Signal, price float64, now time.Time) (model.Signal, bool) {
	s.CurrentPrice = price
	bullish := s.IsBullish()

	if !s.Activated {
		if bullish && price >= s.Entry*(1-activationTolerance) {
			s.Activated = true
		} else if !bullish && price <= s.Entry*(1+activationTolerance) {
			s.Activated = true
		}
	}

	if s.Activated {
		if bullish {
			if price >= s.Target {
				return closeSignal(s, price, now, model.StatusHitTarget, "target"), true
			}
			if price <= s.Stop {
				return closeSignal(s, price, now, model.StatusHitStop, "stop"), true
			}
		} else {
			if price <= s.Target {
				return closeSignal(s, price, now, model.StatusHitTarget, "target"), true
			}
			if price >= s.Stop {
				return closeSignal(s, price, now, model.StatusHitStop, "stop"), true
			}
		}
		if now.Sub(s.CreatedAt) >= activatedExpiry {
			return expireSignal(s, now), true
		}
		return s, false
	}

	if now.Sub(s.CreatedAt) >= unactivatedExpiry {
		return expireSignal(s, now), true
	}
	return s, false
}

func closeSignal(s model.Signal, exit float64, now time.Time, status model.SignalStatus, reason string) model.Signal {
	var pnl float64
	if s.IsBullish() {
		pnl = (exit - s.Entry) / s.Entry * 100
	} else {
		pnl = (s.Entry - exit) / s.Entry * 100
	}
	s.Status = status
	s.CloseReason = reason
	s.ClosedAt = &now
	s.ProfitLossPct = &pnl
	return s
}

func expireSignal(s model.Signal, now time.Time) model.Signal {
	zero := 0.0
	s.Status = model.StatusExpired
	s.CloseReason = "expired"
	s.ClosedAt = &now
	s.ProfitLossPct = &zero
	return s
}

// Cleanup removes non-ACTIVE signal rows older than retentionDays
// (§4.C8 "Cleanup").
func (m *Manager) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	return m.repo.CleanupOlderThan(ctx, retentionDays)
}

// CloseManually force-closes an active signal with an operator-supplied
// reason (§6 "trading.closeSignal"), bypassing the target/stop/expiry
// transition rules.
func (m *Manager) CloseManually(ctx context.Context, signalID, reason string, now time.Time) error {
	m.mu.Lock()
	sig, ok := m.active[signalID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("signal %s: %w", signalID, ErrSignalNotFound)
	}

	closed := closeSignal(sig, sig.CurrentPrice, now, model.StatusExpired, reason)
	closed.UpdatedAt = now
	if err := m.repo.Update(ctx, closed); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.active, signalID)
	m.mu.Unlock()

	m.log.Info().Str("signal_id", signalID).Str("reason", reason).Msg("signal closed manually")
	return nil
}

// Active returns a snapshot of currently open signals.
func (m *Manager) Active() []model.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Signal, 0, len(m.active))
	for _, s := range m.active {
		out = append(out, s)
	}
	return out
}
