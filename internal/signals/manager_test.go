package signals

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/cryptosignal/internal/database"
	"github.com/aristath/cryptosignal/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *database.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trading_system.db")
	db, err := database.New(database.Config{Path: path, Profile: database.ProfileCache})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	repo := database.NewSignalRepository(db, zerolog.Nop())
	return NewManager(repo, zerolog.Nop()), db
}

func goodCandidate() model.Candidate {
	return model.Candidate{
		PatternType: model.PatternDoubleBottom,
		SignalType:  model.SignalTypeBuy,
		Entry:       100,
		Target:      106,
		Stop:        97.5,
		Confidence:  70,
	}
}

func requiredIndicators() map[string]float64 {
	return map[string]float64{"RSI": 40, "SMA_12": 100, "SMA_30": 98}
}

func TestManager_Create_AcceptsValidCandidate(t *testing.T) {
	m, _ := newTestManager(t)
	now := time.Now()

	accept, reason, err := m.Create(context.Background(), "BTCUSDT", goodCandidate(), 100.5, requiredIndicators(), now)
	require.NoError(t, err)
	assert.True(t, accept, reason)
	assert.Len(t, m.Active(), 1)
}

func TestManager_Create_RejectsWhenAtCapacity(t *testing.T) {
	m, _ := newTestManager(t)
	now := time.Now()

	for i := 0; i < maxActive; i++ {
		c := goodCandidate()
		c.Entry = 100 + float64(i)*5
		c.Target = c.Entry + 6
		c.Stop = c.Entry - 2.5
		// spaced by DOUBLE_BOTTOM's 4h cooldown so each create reaches the capacity check
		at := now.Add(time.Duration(i) * 4 * time.Hour)
		accept, reason, err := m.Create(context.Background(), "BTCUSDT", c, c.Entry, requiredIndicators(), at)
		require.NoError(t, err)
		require.True(t, accept, reason)
	}

	c := goodCandidate()
	c.Entry = 500
	c.Target = 506
	c.Stop = 497.5
	accept, reason, err := m.Create(context.Background(), "BTCUSDT", c, 500, requiredIndicators(), now)
	require.NoError(t, err)
	assert.False(t, accept)
	assert.Contains(t, reason, "capacity")
}

func TestManager_Create_RejectsDuplicateHash(t *testing.T) {
	m, _ := newTestManager(t)
	now := time.Now()

	accept, _, err := m.Create(context.Background(), "BTCUSDT", goodCandidate(), 100.5, requiredIndicators(), now)
	require.NoError(t, err)
	require.True(t, accept)

	// 4h later DOUBLE_BOTTOM's cooldown has passed, so the hash check decides
	accept, reason, err := m.Create(context.Background(), "BTCUSDT", goodCandidate(), 100.5, requiredIndicators(), now.Add(4*time.Hour))
	require.NoError(t, err)
	assert.False(t, accept)
	assert.Contains(t, reason, "duplicate")
}

func TestManager_Create_RejectsOverlappingSignal(t *testing.T) {
	m, _ := newTestManager(t)
	now := time.Now()

	accept, _, err := m.Create(context.Background(), "BTCUSDT", goodCandidate(), 100.5, requiredIndicators(), now)
	require.NoError(t, err)
	require.True(t, accept)

	overlap := goodCandidate()
	overlap.PatternType = model.PatternIndicatorsBuy // avoid cooldown collision
	overlap.Entry = 100.3                            // within 1% of 100
	overlap.Target = 106.3
	overlap.Stop = 97.8

	accept, reason, err := m.Create(context.Background(), "BTCUSDT", overlap, 100.5, requiredIndicators(), now)
	require.NoError(t, err)
	assert.False(t, accept)
	assert.Contains(t, reason, "overlap")
}

func TestManager_Create_RejectsWhenPatternInCooldown(t *testing.T) {
	m, _ := newTestManager(t)
	now := time.Now()

	c1 := goodCandidate()
	accept, _, err := m.Create(context.Background(), "BTCUSDT", c1, 100.5, requiredIndicators(), now)
	require.NoError(t, err)
	require.True(t, accept)

	c2 := goodCandidate()
	c2.Entry = 200
	c2.Target = 212
	c2.Stop = 195
	accept, reason, err := m.Create(context.Background(), "BTCUSDT", c2, 200, requiredIndicators(), now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, accept)
	assert.Contains(t, reason, "cooldown")
}

func TestManager_Update_ActivatesAndHitsTarget(t *testing.T) {
	m, _ := newTestManager(t)
	now := time.Now()

	accept, _, err := m.Create(context.Background(), "BTCUSDT", goodCandidate(), 100.5, requiredIndicators(), now)
	require.NoError(t, err)
	require.True(t, accept)

	require.NoError(t, m.Update(context.Background(), "BTCUSDT", 100.0, now.Add(time.Minute)))
	active := m.Active()
	require.Len(t, active, 1)
	assert.True(t, active[0].Activated)

	require.NoError(t, m.Update(context.Background(), "BTCUSDT", 106.5, now.Add(2*time.Minute)))
	assert.Empty(t, m.Active())
}

func TestManager_Update_HitsStop(t *testing.T) {
	m, _ := newTestManager(t)
	now := time.Now()

	accept, _, err := m.Create(context.Background(), "BTCUSDT", goodCandidate(), 100.5, requiredIndicators(), now)
	require.NoError(t, err)
	require.True(t, accept)

	require.NoError(t, m.Update(context.Background(), "BTCUSDT", 100.0, now.Add(time.Minute)))
	require.NoError(t, m.Update(context.Background(), "BTCUSDT", 97.0, now.Add(2*time.Minute)))
	assert.Empty(t, m.Active())
}

func TestManager_Update_ExpiresUnactivatedSignal(t *testing.T) {
	m, _ := newTestManager(t)
	now := time.Now()

	accept, _, err := m.Create(context.Background(), "BTCUSDT", goodCandidate(), 100.5, requiredIndicators(), now)
	require.NoError(t, err)
	require.True(t, accept)

	// 99.0 is below entry*(1-0.001) = 99.9, so the signal never activates
	require.NoError(t, m.Update(context.Background(), "BTCUSDT", 99.0, now.Add(25*time.Hour)))
	assert.Empty(t, m.Active())
}

func TestManager_Recover_LoadsActiveSignalsFromStore(t *testing.T) {
	m, db := newTestManager(t)
	now := time.Now()

	accept, _, err := m.Create(context.Background(), "BTCUSDT", goodCandidate(), 100.5, requiredIndicators(), now)
	require.NoError(t, err)
	require.True(t, accept)

	repo := database.NewSignalRepository(db, zerolog.Nop())
	fresh := NewManager(repo, zerolog.Nop())
	require.NoError(t, fresh.Recover(context.Background()))
	assert.Len(t, fresh.Active(), 1)
}
