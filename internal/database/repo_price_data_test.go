package database

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/cryptosignal/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceDataRepository_BatchInsertThenGetBySymbol(t *testing.T) {
	db := newTestDB(t)
	repo := NewPriceDataRepository(db, zerolog.Nop())
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	ticks := []model.Tick{
		{Timestamp: now, Symbol: "BTCUSDT", Price: 45000, Source: "Binance"},
		{Timestamp: now.Add(time.Second), Symbol: "BTCUSDT", Price: 45010, Source: "Binance"},
	}
	require.NoError(t, repo.BatchInsert(ctx, ticks))

	got, err := repo.GetBySymbol(ctx, "BTCUSDT", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 45010.0, got[0].Price) // newest first
	assert.Equal(t, 45000.0, got[1].Price)
}

func TestPriceDataRepository_BatchInsertEmptyIsNoop(t *testing.T) {
	db := newTestDB(t)
	repo := NewPriceDataRepository(db, zerolog.Nop())
	assert.NoError(t, repo.BatchInsert(context.Background(), nil))
}

func TestPriceDataRepository_GetBySymbol_RespectsLimit(t *testing.T) {
	db := newTestDB(t)
	repo := NewPriceDataRepository(db, zerolog.Nop())
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Insert(ctx, model.Tick{Timestamp: now.Add(time.Duration(i) * time.Second), Symbol: "ETHUSDT", Price: float64(2000 + i)}))
	}

	got, err := repo.GetBySymbol(ctx, "ETHUSDT", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
