package indicators

// RSI computes the period-length Relative Strength Index using the simple
// (unsmoothed) average of gains and losses over the last `period` deltas —
// deliberately hand-rolled because go-talib's Rsi is Wilder-smoothed, which
// diverges from this exact definition (see DESIGN.md).
func RSI(closes []float64, period int) *float64 {
	if len(closes) < period+1 {
		return nil
	}

	start := len(closes) - period - 1
	window := closes[start:]

	var gainSum, lossSum float64
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum += -delta
		}
	}

	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)

	if avgLoss == 0 {
		result := 100.0
		return &result
	}

	rs := avgGain / avgLoss
	result := 100 - 100/(1+rs)
	return &result
}
