package indicators

// MACD returns (macd, signal, histogram). macd = EMA_12 - EMA_26; signal is
// the documented simplification 0.9·macd, not a real 9-period EMA of macd
// (see §9 / DESIGN.md); histogram = macd - signal.
func MACD(closes []float64) (*float64, *float64, *float64) {
	ema12 := EMA(closes, 12)
	ema26 := EMA(closes, 26)
	if ema12 == nil || ema26 == nil {
		return nil, nil, nil
	}

	macd := *ema12 - *ema26
	signal := 0.9 * macd
	hist := macd - signal
	return &macd, &signal, &hist
}
