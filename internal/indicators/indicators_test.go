package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rising(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestRSI_NilWhenInsufficientHistory(t *testing.T) {
	assert.Nil(t, RSI(rising(10, 100, 1), 14))
}

func TestRSI_100WhenNoLosses(t *testing.T) {
	got := RSI(rising(15, 100, 1), 14) // strictly increasing: no losses at all
	require.NotNil(t, got)
	assert.Equal(t, 100.0, *got)
}

func TestRSI_50WhenGainsEqualLosses(t *testing.T) {
	closes := []float64{100, 101, 100, 101, 100, 101, 100, 101, 100, 101, 100, 101, 100, 101, 100}
	got := RSI(closes, 14)
	require.NotNil(t, got)
	assert.InDelta(t, 50.0, *got, 0.01)
}

func TestStochastic_NilWhenInsufficientHistory(t *testing.T) {
	k, d := Stochastic(rising(5, 100, 1), rising(5, 90, 1), rising(5, 95, 1), 14)
	assert.Nil(t, k)
	assert.Nil(t, d)
}

func TestStochastic_DEqualsKWhenExactlyEnoughForOneValue(t *testing.T) {
	highs := rising(14, 110, 0)
	lows := rising(14, 90, 0)
	closes := rising(14, 100, 0)
	k, d := Stochastic(highs, lows, closes, 14)
	require.NotNil(t, k)
	require.NotNil(t, d)
	assert.Equal(t, *k, *d)
}

func TestMACD_NilWhenInsufficientHistory(t *testing.T) {
	m, s, h := MACD(rising(10, 100, 1))
	assert.Nil(t, m)
	assert.Nil(t, s)
	assert.Nil(t, h)
}

func TestMACD_SignalIsNinetyPercentOfMACD(t *testing.T) {
	m, s, h := MACD(rising(40, 100, 1))
	require.NotNil(t, m)
	require.NotNil(t, s)
	require.NotNil(t, h)
	assert.InDelta(t, 0.9**m, *s, 1e-9)
	assert.InDelta(t, *m-*s, *h, 1e-9)
}

func TestBollingerBands_NilWhenInsufficientHistory(t *testing.T) {
	u, m, l := BollingerBands(rising(10, 100, 1), 20, 2)
	assert.Nil(t, u)
	assert.Nil(t, m)
	assert.Nil(t, l)
}

func TestBollingerBands_FlatSeriesCollapsesToMiddle(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	u, m, l := BollingerBands(closes, 20, 2)
	require.NotNil(t, u)
	require.NotNil(t, m)
	require.NotNil(t, l)
	assert.Equal(t, 100.0, *u)
	assert.Equal(t, 100.0, *m)
	assert.Equal(t, 100.0, *l)
}

func TestATR_NilWhenInsufficientHistory(t *testing.T) {
	assert.Nil(t, ATR(rising(5, 110, 0), rising(5, 90, 0), rising(5, 100, 0), 14))
}

func TestATR_ComputesMeanTrueRange(t *testing.T) {
	n := 15
	highs := rising(n, 110, 0)
	lows := rising(n, 100, 0)
	closes := rising(n, 105, 0)
	got := ATR(highs, lows, closes, 14)
	require.NotNil(t, got)
	assert.Equal(t, 10.0, *got) // constant 10-wide range, zero close drift
}

func TestVolumeSMA_NilWhenInsufficientHistory(t *testing.T) {
	assert.Nil(t, VolumeSMA(rising(5, 1000, 0), 20))
}

func TestCompute_PopulatesAsMapOnlyWithNonNilValues(t *testing.T) {
	snap := Compute(Series{
		Opens:   rising(10, 100, 1),
		Highs:   rising(10, 101, 1),
		Lows:    rising(10, 99, 1),
		Closes:  rising(10, 100, 1),
		Volumes: rising(10, 1000, 10),
	})
	m := snap.AsMap()
	_, hasBB := m["BB_UPPER"]
	assert.False(t, hasBB, "20-period Bollinger should be absent with only 10 closes")
}
