package systemfacade

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aristath/cryptosignal/internal/config"
	"github.com/aristath/cryptosignal/internal/database"
	"github.com/aristath/cryptosignal/internal/ingestion"
	"github.com/aristath/cryptosignal/internal/instrument"
	"github.com/aristath/cryptosignal/internal/model"
	"github.com/aristath/cryptosignal/internal/quotesource"
	"github.com/aristath/cryptosignal/internal/scheduler"
	"github.com/aristath/cryptosignal/internal/signals"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSystem(t *testing.T) *System {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trading_system.db")
	db, err := database.New(database.Config{Path: path, Profile: database.ProfileStandard})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	registry := instrument.NewRegistry()
	btc := instrument.New("BTCUSDT", "Bitcoin", 5, 5, 5)
	btc.Enable()
	registry.Add(btc)

	source := quotesource.NewSimulatedSource(map[string]float64{"BTCUSDT": 45000}, 1, zerolog.Nop())
	sched := ingestion.New(ingestion.Config{UpdateIntervalSec: 5, MaxWorkers: 2}, registry, []quotesource.Source{source}, zerolog.Nop())
	cron := scheduler.New(zerolog.Nop())

	tickRepo := database.NewPriceDataRepository(db, zerolog.Nop())
	indicatorRepo := database.NewIndicatorRepository(db, zerolog.Nop())
	signalRepo := database.NewSignalRepository(db, zerolog.Nop())
	configRepo := database.NewConfigurationRepository(db, zerolog.Nop())
	sigMgr := signals.NewManager(signalRepo, zerolog.Nop())

	cfg := &config.Config{MaxConcurrentSignals: 10}

	return New(cfg, db, registry, sched, cron, sigMgr, tickRepo, indicatorRepo, signalRepo, configRepo, zerolog.Nop())
}

func TestSystem_StartStop_TogglesRunningState(t *testing.T) {
	s := newTestSystem(t)
	ctx := context.Background()

	res, err := s.Start(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.EnabledPairs, "BTCUSDT")
	assert.True(t, s.Status().Running)

	res, err = s.Stop(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, s.Status().Running)
}

func TestSystem_Health_AggregatesComponents(t *testing.T) {
	s := newTestSystem(t)
	statuses := s.Health()
	assert.Contains(t, statuses, "persistence_store")
	assert.Contains(t, statuses, "instrument_registry")
	assert.True(t, statuses["persistence_store"].OK)
	assert.True(t, statuses["instrument_registry"].OK)
}

func TestSystem_PairsList_ReturnsRegisteredInstrument(t *testing.T) {
	s := newTestSystem(t)
	pairs := s.PairsList()
	require.Len(t, pairs, 1)
	assert.Equal(t, "BTCUSDT", pairs[0].Symbol)
}

func TestSystem_PairStartStop_UnknownSymbolErrors(t *testing.T) {
	s := newTestSystem(t)
	assert.ErrorIs(t, s.PairStart("DOGEUSDT"), ErrPairNotFound)
	assert.ErrorIs(t, s.PairStop("DOGEUSDT"), ErrPairNotFound)
	_, err := s.PairStatus("DOGEUSDT")
	assert.ErrorIs(t, err, ErrPairNotFound)
}

func TestSystem_PairData_ClampsLimit(t *testing.T) {
	s := newTestSystem(t)
	inst, _ := s.registry.Get("BTCUSDT")
	require.NoError(t, inst.AddTick(model.Tick{Symbol: "BTCUSDT", Price: 45000}))

	data, err := s.PairData("BTCUSDT", 5000)
	require.NoError(t, err)
	assert.Len(t, data, 1)
}

func TestSystem_TradingPatternStats_AggregatesByPattern(t *testing.T) {
	s := newTestSystem(t)
	ctx := context.Background()

	require.NoError(t, s.signalRepo.Create(ctx, model.Signal{
		SignalID: "a", Symbol: "BTCUSDT", PatternType: "DOUBLE_BOTTOM",
		SignalType: model.SignalTypeBuy, Entry: 100, Target: 110, Stop: 95,
		Status: model.StatusHitTarget,
	}))
	require.NoError(t, s.signalRepo.Create(ctx, model.Signal{
		SignalID: "b", Symbol: "BTCUSDT", PatternType: "DOUBLE_BOTTOM",
		SignalType: model.SignalTypeBuy, Entry: 100, Target: 110, Stop: 95,
		Status: model.StatusHitStop,
	}))

	stats, err := s.TradingPatternStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].Total)
	assert.Equal(t, 0.5, stats[0].SuccessRate)
}

func TestSystem_TradingCloseSignal_ClosesActiveSignal(t *testing.T) {
	s := newTestSystem(t)
	ctx := context.Background()

	require.NoError(t, s.signalRepo.Create(ctx, model.Signal{
		SignalID: "c", Symbol: "BTCUSDT", PatternType: "DOUBLE_BOTTOM",
		SignalType: model.SignalTypeBuy, Entry: 100, Target: 110, Stop: 95,
		Status: model.StatusActive,
	}))
	require.NoError(t, s.signalMgr.Recover(ctx))

	require.NoError(t, s.TradingCloseSignal(ctx, "c", "operator override"))
	assert.Empty(t, s.signalMgr.Active())
}
