package indicators

import "github.com/aristath/cryptosignal/pkg/formulas"

// SMA is the arithmetic mean of the last length closes, talib-backed via
// pkg/formulas (go-talib's Sma, matching the plain-average definition this
// spec requires verbatim).
func SMA(closes []float64, length int) *float64 {
	return formulas.CalculateSMA(closes, length)
}

// EMA is the Exponential Moving Average over the last length closes,
// seeded with the SMA of the lookback window, talib-backed via
// pkg/formulas (go-talib's Ema seeds with SMA the same way this spec
// requires).
func EMA(closes []float64, length int) *float64 {
	return formulas.CalculateEMA(closes, length)
}
