package analysis

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/cryptosignal/internal/database"
	"github.com/aristath/cryptosignal/internal/instrument"
	"github.com/aristath/cryptosignal/internal/model"
	"github.com/aristath/cryptosignal/internal/signals"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T) (*Pipeline, *instrument.Registry, *database.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trading_system.db")
	db, err := database.New(database.Config{Path: path, Profile: database.ProfileStandard})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	registry := instrument.NewRegistry()
	inst := instrument.New("BTCUSDT", "Bitcoin", 60, 5, 30)
	inst.Enable()
	registry.Add(inst)

	ticks := database.NewPriceDataRepository(db, zerolog.Nop())
	indicatorRepo := database.NewIndicatorRepository(db, zerolog.Nop())
	sigRepo := database.NewSignalRepository(db, zerolog.Nop())
	sigMgr := signals.NewManager(sigRepo, zerolog.Nop())

	p := New(registry, ticks, indicatorRepo, sigMgr, zerolog.Nop())
	return p, registry, db
}

func tickAt(symbol string, price float64, at time.Time) model.Tick {
	return model.Tick{
		Timestamp: at,
		Symbol:    symbol,
		Price:     price,
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		Volume:    10,
		Source:    "test",
	}
}

func TestPipeline_OnTick_PersistsTickAndIndicatorSamples(t *testing.T) {
	p, registry, db := newTestPipeline(t)
	inst, _ := registry.Get("BTCUSDT")

	base := time.Now().UTC().Add(-time.Hour)
	price := 100.0
	for i := 0; i < 40; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		price += 1
		tick := tickAt("BTCUSDT", price, at)
		require.NoError(t, inst.AddTick(tick))
		p.OnTick("BTCUSDT", tick)
	}

	rows, err := database.NewPriceDataRepository(db, zerolog.Nop()).GetBySymbol(context.Background(), "BTCUSDT", 100)
	require.NoError(t, err)
	assert.Len(t, rows, 40)

	sample, err := database.NewIndicatorRepository(db, zerolog.Nop()).Latest(context.Background(), "BTCUSDT", "SMA_12")
	require.NoError(t, err)
	assert.NotNil(t, sample)
}

func TestPipeline_OnTick_UnregisteredSymbolDoesNotPanic(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	assert.NotPanics(t, func() {
		p.OnTick("ETHUSDT", tickAt("ETHUSDT", 50, time.Now().UTC()))
	})
}
