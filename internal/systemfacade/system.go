// Package systemfacade exposes the whole trading system as a single Go
// method-call contract (§6 "Downstream surfaces exposed to external
// collaborators"): one exported method per row, so a future HTTP or CLI
// layer is a thin adapter over it.
package systemfacade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/cryptosignal/internal/config"
	"github.com/aristath/cryptosignal/internal/database"
	"github.com/aristath/cryptosignal/internal/ingestion"
	"github.com/aristath/cryptosignal/internal/instrument"
	"github.com/aristath/cryptosignal/internal/model"
	"github.com/aristath/cryptosignal/internal/reliability"
	"github.com/aristath/cryptosignal/internal/scheduler"
	"github.com/aristath/cryptosignal/internal/signals"
	"github.com/rs/zerolog"
)

// ErrPairNotFound is returned by any pair-scoped method given an
// unregistered symbol.
var ErrPairNotFound = errors.New("pair not found")

// knownIndicatorNames mirrors indicators.Snapshot's fields, the fixed set
// of technical_indicators rows a symbol may have.
var knownIndicatorNames = []string{
	"SMA_12", "SMA_30", "SMA_60", "EMA_12", "EMA_26", "RSI",
	"STOCH_K", "STOCH_D", "MACD", "MACD_SIGNAL", "MACD_HISTOGRAM",
	"BB_UPPER", "BB_MIDDLE", "BB_LOWER", "ATR", "VOLUME_SMA",
}

// System is the single facade type wiring together every long-lived
// component: persistence, the instrument registry, the ingestion
// scheduler, the cron housekeeping scheduler and the signal manager.
type System struct {
	cfg *config.Config
	log zerolog.Logger

	db            *database.DB
	registry      *instrument.Registry
	ingestion     *ingestion.Scheduler
	cron          *scheduler.CronScheduler
	signalMgr     *signals.Manager
	tickRepo      *database.PriceDataRepository
	indicatorRepo *database.IndicatorRepository
	signalRepo    *database.SignalRepository
	configRepo    *database.ConfigurationRepository
	health        *reliability.HealthAggregator

	startedAt time.Time
	running   bool
}

// New constructs a System over already-built components. cmd/server/main.go
// owns construction order and passes the finished pieces in.
func New(
	cfg *config.Config,
	db *database.DB,
	registry *instrument.Registry,
	ingestionScheduler *ingestion.Scheduler,
	cron *scheduler.CronScheduler,
	signalMgr *signals.Manager,
	tickRepo *database.PriceDataRepository,
	indicatorRepo *database.IndicatorRepository,
	signalRepo *database.SignalRepository,
	configRepo *database.ConfigurationRepository,
	log zerolog.Logger,
) *System {
	s := &System{
		cfg:           cfg,
		log:           log.With().Str("component", "system_facade").Logger(),
		db:            db,
		registry:      registry,
		ingestion:     ingestionScheduler,
		cron:          cron,
		signalMgr:     signalMgr,
		tickRepo:      tickRepo,
		indicatorRepo: indicatorRepo,
		signalRepo:    signalRepo,
		configRepo:    configRepo,
	}

	s.health = reliability.NewHealthAggregator(
		reliability.FuncHealth{CheckName: "persistence_store", Fn: s.storeHealthy},
		reliability.FuncHealth{CheckName: "ingestion_scheduler", Fn: s.schedulerHealthy},
		reliability.FuncHealth{CheckName: "instrument_registry", Fn: s.registryHealthy},
		reliability.FuncHealth{CheckName: "signal_manager", Fn: s.signalManagerHealthy},
	)
	return s
}

func (s *System) storeHealthy() (bool, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.db.QuickCheck(ctx); err != nil {
		return false, err.Error()
	}
	return true, ""
}

func (s *System) schedulerHealthy() (bool, string) {
	hc := s.ingestion.HealthCheck()
	if hc.Status == "unhealthy" {
		return false, fmt.Sprintf("no instruments streaming, unavailable=%v", hc.UnavailableSources)
	}
	return true, hc.Status
}

func (s *System) registryHealthy() (bool, string) {
	if len(s.registry.All()) == 0 {
		return false, "no instruments registered"
	}
	return true, ""
}

func (s *System) signalManagerHealthy() (bool, string) {
	active := len(s.signalMgr.Active())
	if active > s.cfg.MaxConcurrentSignals {
		return false, fmt.Sprintf("active signals %d exceed configured maximum %d", active, s.cfg.MaxConcurrentSignals)
	}
	return true, fmt.Sprintf("%d active", active)
}

// StartResult is the return shape of Start/Stop/Restart.
type StartResult struct {
	Success      bool
	Message      string
	StartedAt    *time.Time
	EnabledPairs []string
}

// Start recovers persisted active signals, then starts every enabled
// instrument's streaming cadence and the housekeeping cron scheduler.
func (s *System) Start(ctx context.Context) (StartResult, error) {
	if s.running {
		return StartResult{Success: false, Message: "system already running"}, nil
	}

	if err := s.signalMgr.Recover(ctx); err != nil {
		return StartResult{}, fmt.Errorf("recover active signals: %w", err)
	}

	s.ingestion.StartAll()
	s.cron.Start()

	s.running = true
	s.startedAt = time.Now().UTC()

	var enabled []string
	for _, inst := range s.registry.All() {
		if inst.GetStatus() == instrument.StatusEnabled {
			enabled = append(enabled, inst.Symbol)
		}
	}

	startedAt := s.startedAt
	return StartResult{Success: true, Message: "system started", StartedAt: &startedAt, EnabledPairs: enabled}, nil
}

// Stop halts streaming and housekeeping without touching persisted state.
func (s *System) Stop(ctx context.Context) (StartResult, error) {
	if !s.running {
		return StartResult{Success: false, Message: "system not running"}, nil
	}
	s.ingestion.StopAll()
	s.cron.Stop()
	s.running = false
	return StartResult{Success: true, Message: "system stopped"}, nil
}

// Restart stops then starts the system.
func (s *System) Restart(ctx context.Context) (StartResult, error) {
	if s.running {
		if _, err := s.Stop(ctx); err != nil {
			return StartResult{}, err
		}
	}
	return s.Start(ctx)
}

// StatusSnapshot is the return shape of Status.
type StatusSnapshot struct {
	Running      bool
	UptimeSeconds float64
	Stats        ingestion.Stats
}

// Status reports whether the system is running, for how long, and the
// ingestion scheduler's activity counters.
func (s *System) Status() StatusSnapshot {
	var uptime float64
	if s.running {
		uptime = time.Since(s.startedAt).Seconds()
	}
	return StatusSnapshot{Running: s.running, UptimeSeconds: uptime, Stats: s.ingestion.Stats()}
}

// Health polls every registered component and returns its combined status.
func (s *System) Health() map[string]reliability.ComponentStatus {
	return s.health.Aggregate()
}

// PairInfo is one instrument's externally-visible metadata and state.
type PairInfo struct {
	Symbol      string
	DisplayName string
	Status      instrument.Status
	LastPrice   float64
	Streaming   bool
}

func pairInfo(inst *instrument.Instrument) PairInfo {
	last, _ := inst.Latest()
	return PairInfo{
		Symbol:      inst.Symbol,
		DisplayName: inst.DisplayName,
		Status:      inst.GetStatus(),
		LastPrice:   last.Price,
		Streaming:   inst.IsStreamingHealthy(),
	}
}

// PairsList returns metadata for every registered instrument.
func (s *System) PairsList() []PairInfo {
	all := s.registry.All()
	out := make([]PairInfo, 0, len(all))
	for _, inst := range all {
		out = append(out, pairInfo(inst))
	}
	return out
}

// PairsEnabled returns metadata for instruments not in DISABLED state.
func (s *System) PairsEnabled() []PairInfo {
	var out []PairInfo
	for _, inst := range s.registry.All() {
		if inst.GetStatus() != instrument.StatusDisabled {
			out = append(out, pairInfo(inst))
		}
	}
	return out
}

// PairsSummary is an aggregate count over every registered pair's status.
type PairsSummary struct {
	Total     int
	Enabled   int
	Streaming int
	Disabled  int
}

// PairsSummary reports counts across every registered instrument.
func (s *System) PairsSummary() PairsSummary {
	var sum PairsSummary
	for _, inst := range s.registry.All() {
		sum.Total++
		switch inst.GetStatus() {
		case instrument.StatusDisabled:
			sum.Disabled++
		default:
			sum.Enabled++
		}
		if inst.IsStreamingHealthy() {
			sum.Streaming++
		}
	}
	return sum
}

// PairStart enables a registered instrument and starts its streaming cadence.
func (s *System) PairStart(symbol string) error {
	inst, ok := s.registry.Get(symbol)
	if !ok {
		return fmt.Errorf("%s: %w", symbol, ErrPairNotFound)
	}
	inst.Enable()
	if !s.ingestion.StartInstrument(symbol) {
		return fmt.Errorf("%s: failed to start streaming", symbol)
	}
	return nil
}

// PairStop stops a registered instrument's streaming cadence and disables it.
func (s *System) PairStop(symbol string) error {
	inst, ok := s.registry.Get(symbol)
	if !ok {
		return fmt.Errorf("%s: %w", symbol, ErrPairNotFound)
	}
	s.ingestion.StopInstrument(symbol)
	inst.Disable()
	return nil
}

// PairStatus returns a single instrument's current state.
func (s *System) PairStatus(symbol string) (PairInfo, error) {
	inst, ok := s.registry.Get(symbol)
	if !ok {
		return PairInfo{}, fmt.Errorf("%s: %w", symbol, ErrPairNotFound)
	}
	return pairInfo(inst), nil
}

const maxPairDataLimit = 1000

// PairData returns up to limit of the instrument's most recent ticks,
// clamped to [1, 1000] (§6 "pair.data(symbol, limit)").
func (s *System) PairData(symbol string, limit int) ([]model.Tick, error) {
	inst, ok := s.registry.Get(symbol)
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, ErrPairNotFound)
	}
	if limit <= 0 {
		limit = 1
	}
	if limit > maxPairDataLimit {
		limit = maxPairDataLimit
	}
	return inst.History(limit), nil
}

// PairConfigUpdate is a partial instrument configuration patch; nil fields
// are left unchanged.
type PairConfigUpdate struct {
	UpdateIntervalSec *int
	MaxErrors         *int
	RetryDelaySec     *int
}

// PairUpdateConfig applies a partial configuration patch to a registered
// instrument.
func (s *System) PairUpdateConfig(symbol string, patch PairConfigUpdate) error {
	inst, ok := s.registry.Get(symbol)
	if !ok {
		return fmt.Errorf("%s: %w", symbol, ErrPairNotFound)
	}
	inst.UpdateConfig(patch.UpdateIntervalSec, patch.MaxErrors, patch.RetryDelaySec)
	return nil
}

// TradingSignals returns up to limit persisted signals, optionally filtered
// by status.
func (s *System) TradingSignals(ctx context.Context, limit int, statusFilter string) ([]model.Signal, error) {
	return s.signalRepo.List(ctx, limit, statusFilter)
}

// TradingIndicators returns the latest persisted indicator values. An empty
// symbol returns every registered instrument's map, keyed by symbol.
func (s *System) TradingIndicators(ctx context.Context, symbol string) (map[string]map[string]float64, error) {
	symbols := []string{symbol}
	if symbol == "" {
		symbols = symbols[:0]
		for _, inst := range s.registry.All() {
			symbols = append(symbols, inst.Symbol)
		}
	}

	out := make(map[string]map[string]float64, len(symbols))
	for _, sym := range symbols {
		values := make(map[string]float64)
		for _, name := range knownIndicatorNames {
			sample, err := s.indicatorRepo.Latest(ctx, sym, name)
			if err != nil {
				return nil, fmt.Errorf("latest %s for %s: %w", name, sym, err)
			}
			if sample != nil {
				values[name] = sample.Value
			}
		}
		out[sym] = values
	}
	return out, nil
}

// PatternStat is one pattern type's historical performance.
type PatternStat struct {
	PatternType string
	Total       int
	HitTarget   int
	HitStop     int
	Expired     int
	Active      int
	SuccessRate float64 // HitTarget / (HitTarget + HitStop), 0 if no resolved signals
}

// TradingPatternStats aggregates every persisted signal by pattern type.
func (s *System) TradingPatternStats(ctx context.Context) ([]PatternStat, error) {
	all, err := s.signalRepo.List(ctx, 0, "")
	if err != nil {
		return nil, fmt.Errorf("list signals for pattern stats: %w", err)
	}

	byPattern := make(map[string]*PatternStat)
	order := make([]string, 0)
	for _, sig := range all {
		stat, ok := byPattern[sig.PatternType]
		if !ok {
			stat = &PatternStat{PatternType: sig.PatternType}
			byPattern[sig.PatternType] = stat
			order = append(order, sig.PatternType)
		}
		stat.Total++
		switch sig.Status {
		case model.StatusHitTarget:
			stat.HitTarget++
		case model.StatusHitStop:
			stat.HitStop++
		case model.StatusExpired:
			stat.Expired++
		case model.StatusActive:
			stat.Active++
		}
	}

	out := make([]PatternStat, 0, len(order))
	for _, patternType := range order {
		stat := *byPattern[patternType]
		if resolved := stat.HitTarget + stat.HitStop; resolved > 0 {
			stat.SuccessRate = float64(stat.HitTarget) / float64(resolved)
		}
		out = append(out, stat)
	}
	return out, nil
}

// TradingCreateManualSignal builds a candidate from explicit parameters and
// routes it through the same acceptance pipeline as an automatically
// detected one, against the symbol's most recently persisted indicator
// snapshot.
func (s *System) TradingCreateManualSignal(ctx context.Context, symbol string, signalType model.SignalType, entry, target, stop float64) (accept bool, reason string, err error) {
	inst, ok := s.registry.Get(symbol)
	if !ok {
		return false, "", fmt.Errorf("%s: %w", symbol, ErrPairNotFound)
	}
	latest, hasTick := inst.Latest()
	if !hasTick {
		return false, "", fmt.Errorf("%s: no ticks recorded yet", symbol)
	}

	values, err := s.latestIndicatorValues(ctx, symbol)
	if err != nil {
		return false, "", err
	}

	candidate := model.Candidate{
		PatternType: "MANUAL",
		SignalType:  signalType,
		Entry:       entry,
		Target:      target,
		Stop:        stop,
		Confidence:  1.0,
	}

	return s.signalMgr.Create(ctx, symbol, candidate, latest.Price, values, time.Now().UTC())
}

func (s *System) latestIndicatorValues(ctx context.Context, symbol string) (map[string]float64, error) {
	values := make(map[string]float64, len(knownIndicatorNames))
	for _, name := range knownIndicatorNames {
		sample, err := s.indicatorRepo.Latest(ctx, symbol, name)
		if err != nil {
			return nil, fmt.Errorf("latest %s for %s: %w", name, symbol, err)
		}
		if sample != nil {
			values[name] = sample.Value
		}
	}
	return values, nil
}

// TradingCloseSignal force-closes an active signal with an operator-supplied
// reason, bypassing the normal target/stop/expiry transition.
func (s *System) TradingCloseSignal(ctx context.Context, signalID, reason string) error {
	return s.signalMgr.CloseManually(ctx, signalID, reason, time.Now().UTC())
}

// ApplyPersistedOverrides seeds recognized-key overrides from the
// configurations table onto the loaded config, the reference stack's
// UpdateFromSettings(repo) pattern (§6 "Configuration").
func (s *System) ApplyPersistedOverrides(ctx context.Context) error {
	overrides, err := s.configRepo.All(ctx)
	if err != nil {
		return fmt.Errorf("load persisted configuration overrides: %w", err)
	}
	for key, value := range overrides {
		if err := s.cfg.ApplyOverride(key, value); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("ignoring invalid persisted configuration override")
		}
	}
	return nil
}
