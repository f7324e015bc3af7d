package indicators

import "github.com/aristath/cryptosignal/pkg/formulas"

// BollingerBands returns (upper, middle, lower) over the last `period`
// closes: middle = SMA(period), bands = middle ± stdDevMultiplier·σ, σ the
// *population* standard deviation (divisor N) over the same window.
// Hand-rolled rather than talib-backed because go-talib's BBands does not
// document a population-vs-sample stddev guarantee this spec can pin down
// (see DESIGN.md).
func BollingerBands(closes []float64, period int, stdDevMultiplier float64) (*float64, *float64, *float64) {
	if len(closes) < period {
		return nil, nil, nil
	}

	window := closes[len(closes)-period:]
	mean := formulas.Mean(window)
	std := formulas.PopStdDev(window)

	upper := mean + stdDevMultiplier*std
	lower := mean - stdDevMultiplier*std
	return &upper, &mean, &lower
}
