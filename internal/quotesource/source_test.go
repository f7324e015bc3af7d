package quotesource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeTickerSource_FetchParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"lastPrice":"45000.50","openPrice":"44000.00","highPrice":"45500.00","lowPrice":"43800.00","volume":"1200.5","priceChangePercent":"2.3"}`))
	}))
	defer srv.Close()

	src := NewExchangeTickerSource(srv.URL, 0, zerolog.Nop())
	tick, err := src.Fetch(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 45000.50, tick.Price)
	assert.Equal(t, "BTCUSDT", tick.Symbol)
	assert.Equal(t, "exchange", tick.Source)
	assert.True(t, src.IsAvailable())
}

func TestExchangeTickerSource_BecomesUnavailableAfterFiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewExchangeTickerSource(srv.URL, 0, zerolog.Nop())
	for i := 0; i < maxErrorCount; i++ {
		_, err := src.Fetch(context.Background(), "BTCUSDT")
		require.Error(t, err)
	}
	assert.False(t, src.IsAvailable())

	_, err := src.Fetch(context.Background(), "BTCUSDT")
	assert.ErrorIs(t, err, ErrUnavailable)

	src.ResetErrors()
	assert.True(t, src.IsAvailable())
}

func TestAggregatorSource_UnknownSymbolIsUnavailable(t *testing.T) {
	src := NewAggregatorSource("http://example.invalid", 0, map[string]string{"BTCUSDT": "bitcoin"}, zerolog.Nop())
	_, err := src.Fetch(context.Background(), "DOGEUSDT")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestAggregatorSource_FetchParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":45000.5,"usd_24h_change":2.1,"usd_24h_vol":123456.0}}`))
	}))
	defer srv.Close()

	src := NewAggregatorSource(srv.URL, 0, map[string]string{"BTCUSDT": "bitcoin"}, zerolog.Nop())
	tick, err := src.Fetch(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 45000.5, tick.Price)
	assert.Equal(t, "aggregator", tick.Source)
}

func TestSimulatedSource_AlwaysAvailableAndWalks(t *testing.T) {
	src := NewSimulatedSource(map[string]float64{"BTCUSDT": 45000}, 1, zerolog.Nop())
	assert.True(t, src.IsAvailable())

	tick, err := src.Fetch(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Greater(t, tick.Price, 0.0)
	assert.Equal(t, "simulated", tick.Source)
}

func TestSimulatedSource_RoundRobinRotation(t *testing.T) {
	src := NewSimulatedSource(map[string]float64{"BTCUSDT": 45000, "ETHUSDT": 2500}, 1, zerolog.Nop())

	seen := make(map[string]bool)
	for i := 0; i < 4; i++ {
		sym, ok := src.NextInRotation()
		require.True(t, ok)
		seen[sym] = true
	}
	assert.Len(t, seen, 2)
}
