package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// CalculateSMA returns the Simple Moving Average over the last length
// closes, or nil if there isn't enough history.
func CalculateSMA(closes []float64, length int) *float64 {
	if len(closes) < length {
		return nil
	}

	sma := talib.Sma(closes, length)
	if len(sma) > 0 && !math.IsNaN(sma[len(sma)-1]) {
		result := sma[len(sma)-1]
		return &result
	}
	return nil
}

// CalculateEMA returns the Exponential Moving Average over length closes,
// seeded with the SMA of the lookback window (go-talib's Ema behavior),
// smoothing α = 2/(length+1). Returns nil if there isn't enough history —
// unlike the reference implementation this wraps, no SMA fallback is used
// for short series, since the indicator contract requires null on
// insufficient history rather than a lower-fidelity substitute.
func CalculateEMA(closes []float64, length int) *float64 {
	if len(closes) < length {
		return nil
	}

	ema := talib.Ema(closes, length)
	if len(ema) > 0 && !math.IsNaN(ema[len(ema)-1]) {
		result := ema[len(ema)-1]
		return &result
	}
	return nil
}
