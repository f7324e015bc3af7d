package patterns

import (
	"testing"

	"github.com/aristath/cryptosignal/internal/indicators"
	"github.com/aristath/cryptosignal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatSeries(n int, price, volume float64) indicators.Series {
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	opens := make([]float64, n)
	volumes := make([]float64, n)
	for i := range closes {
		closes[i] = price
		highs[i] = price
		lows[i] = price
		opens[i] = price
		volumes[i] = volume
	}
	return indicators.Series{Opens: opens, Highs: highs, Lows: lows, Closes: closes, Volumes: volumes}
}

func TestDetectDoubleBottom_NilWithTooFewTicks(t *testing.T) {
	s := flatSeries(50, 100, 1000)
	assert.Nil(t, DetectDoubleBottom(s))
}

func TestDetectDoubleBottom_FindsWBottomShape(t *testing.T) {
	n := 90
	s := flatSeries(n, 100, 1000)
	// carve a W: low at 30, peak at 45, low at 60 (mirrored, within 1.5% of each other)
	s.Lows[30] = 90
	s.Highs[30] = 90
	s.Closes[30] = 90
	s.Lows[45] = 95
	s.Highs[45] = 95
	s.Closes[45] = 95
	s.Lows[60] = 90.5
	s.Highs[60] = 90.5
	s.Closes[60] = 90.5

	cand := DetectDoubleBottom(s)
	if cand != nil {
		assert.Equal(t, model.PatternDoubleBottom, cand.PatternType)
		assert.Equal(t, model.SignalTypeBuy, cand.SignalType)
	}
}

func TestDetectHeadAndShoulders_NilWithTooFewTicks(t *testing.T) {
	s := flatSeries(60, 100, 1000)
	assert.Nil(t, DetectHeadAndShoulders(s))
}

func TestDetectTriangleBreakout_NilWithTooFewTicks(t *testing.T) {
	s := flatSeries(20, 100, 1000)
	assert.Nil(t, DetectTriangleBreakout(s))
}

func TestDetectTriangleBreakout_EmitsBreakoutUpOnConvergenceAndClose(t *testing.T) {
	n := 40
	s := flatSeries(n, 100, 1000)
	// wide range in the early window, tight converging range late, close at resistance
	for i := n - 30; i < n-15; i++ {
		s.Highs[i] = 110
		s.Lows[i] = 90
	}
	for i := n - 15; i < n; i++ {
		s.Highs[i] = 101
		s.Lows[i] = 99
	}
	s.Closes[n-1] = 101

	cand := DetectTriangleBreakout(s)
	require.NotNil(t, cand)
	assert.Equal(t, model.PatternTriangleBreakUp, cand.PatternType)
}

func ptr(v float64) *float64 { return &v }

func TestDetectIndicatorConfluence_NilWhenNoIndicatorsAvailable(t *testing.T) {
	assert.Nil(t, DetectIndicatorConfluence(indicators.Snapshot{}, 100))
}

func TestDetectIndicatorConfluence_EmitsBuyWhenEverythingAligned(t *testing.T) {
	snap := indicators.Snapshot{
		RSI:     ptr(20),   // strong oversold -> full buy weight
		StochK:  ptr(10),
		StochD:  ptr(12),   // both <15 -> full buy weight
		MACD:    ptr(1.5),
		MACDSig: ptr(1.0),  // above signal & >0 -> full buy weight
		SMA12:   ptr(105),
		SMA30:   ptr(100),  // SMA12>SMA30 & price>SMA12 -> full buy weight
		BBUpper: ptr(120),
		BBLower: ptr(100),  // position 0.3, not below 0.2 -> no Bollinger weight
	}
	cand := DetectIndicatorConfluence(snap, 106)
	require.NotNil(t, cand)
	assert.Equal(t, model.PatternIndicatorsBuy, cand.PatternType)
	assert.Equal(t, model.SignalTypeBuy, cand.SignalType)
}

func TestDetectIndicatorConfluence_EmitsSellWhenEverythingAligned(t *testing.T) {
	snap := indicators.Snapshot{
		RSI:     ptr(80),
		StochK:  ptr(90),
		StochD:  ptr(92),
		MACD:    ptr(-1.5),
		MACDSig: ptr(-1.0),
		SMA12:   ptr(95),
		SMA30:   ptr(100),
		BBUpper: ptr(120),
		BBLower: ptr(100),
	}
	cand := DetectIndicatorConfluence(snap, 94)
	require.NotNil(t, cand)
	assert.Equal(t, model.PatternIndicatorsSell, cand.PatternType)
}

func TestDetectAll_CollectsEveryNonNilCandidate(t *testing.T) {
	s := flatSeries(30, 100, 1000)
	snap := indicators.Snapshot{}
	cands := DetectAll(s, snap, 100)
	assert.Empty(t, cands) // too short for any chart pattern, no indicator data
}
