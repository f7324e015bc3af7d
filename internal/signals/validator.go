package signals

import (
	"fmt"

	"github.com/aristath/cryptosignal/internal/model"
)

// ValidationResult is the redesigned two-variant outcome of a validator —
// rejection is ordinary control flow, never a Go error or panic (§4.C7
// redesign note / §9 "exception-based control flow").
type ValidationResult struct {
	Accept bool
	Reason string
}

func accept() ValidationResult { return ValidationResult{Accept: true} }

func reject(reason string) ValidationResult { return ValidationResult{Accept: false, Reason: reason} }

// ValidateParameters checks a candidate's prices are internally consistent
// before it becomes a Signal (§4.C7 parameter validation).
func ValidateParameters(c model.Candidate, currentPrice float64) ValidationResult {
	if c.Entry <= 0 || c.Target <= 0 || c.Stop <= 0 {
		return reject("all prices must be positive")
	}

	if currentPrice <= 0 {
		return reject("current price must be positive")
	}
	if pctGap(currentPrice, c.Entry) > 0.02 {
		return reject("entry too far from current price (>2%)")
	}

	bullish := c.SignalType == model.SignalTypeBuy
	if bullish {
		if !(c.Target > c.Entry && c.Entry > c.Stop) {
			return reject("bullish signal requires target > entry > stop")
		}
	} else {
		if !(c.Target < c.Entry && c.Entry < c.Stop) {
			return reject("bearish signal requires target < entry < stop")
		}
	}

	reward := absf(c.Target - c.Entry)
	risk := absf(c.Entry - c.Stop)
	if risk == 0 || reward/risk < 1.5 {
		return reject("risk:reward ratio below 1.5")
	}

	if pctGap(c.Entry, c.Stop) > 0.05 {
		return reject("stop too far from entry (>5%)")
	}

	return accept()
}

// ValidateMarketConditions requires RSI/SMA_12/SMA_30 to be present and
// rejects as too volatile when the Bollinger band width exceeds 10% of the
// lower band (§4.C7 market-condition validation).
func ValidateMarketConditions(indicatorValues map[string]float64) ValidationResult {
	for _, name := range []string{"RSI", "SMA_12", "SMA_30"} {
		if _, ok := indicatorValues[name]; !ok {
			return reject(fmt.Sprintf("missing required indicator %s", name))
		}
	}

	upper, hasUpper := indicatorValues["BB_UPPER"]
	lower, hasLower := indicatorValues["BB_LOWER"]
	if hasUpper && hasLower && lower != 0 {
		if (upper-lower)/lower > 0.10 {
			return reject("market too volatile: Bollinger band width exceeds 10%")
		}
	}

	return accept()
}

func pctGap(a, b float64) float64 {
	if a == 0 {
		return 0
	}
	gap := (b - a) / a
	return absf(gap)
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
