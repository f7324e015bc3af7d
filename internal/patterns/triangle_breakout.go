package patterns

import (
	"github.com/aristath/cryptosignal/internal/indicators"
	"github.com/aristath/cryptosignal/internal/model"
)

// DetectTriangleBreakout requires at least 40 ticks. It compares the
// high-low range of the last 15 samples against the prior 15 (a converging
// range signals a triangle), then checks whether the latest close sits
// within 0.2% of the 10-sample resistance or support (§4.C6).
func DetectTriangleBreakout(s indicators.Series) *model.Candidate {
	const minTicks = 40

	n := len(s.Closes)
	if n < minTicks {
		return nil
	}

	lateRange := rangeOf(s.Highs[n-15:], s.Lows[n-15:])
	earlyRange := rangeOf(s.Highs[n-30:n-15], s.Lows[n-30:n-15])
	if earlyRange == 0 || lateRange >= 0.7*earlyRange {
		return nil
	}

	resistance := maxFloat(s.Highs[n-10:])
	support := minFloat(s.Lows[n-10:])
	lastClose := s.Closes[n-1]

	if pctGap(resistance, lastClose) <= 0.002 {
		return &model.Candidate{
			PatternType: model.PatternTriangleBreakUp,
			SignalType:  model.SignalTypeBuy,
			Entry:       resistance * 1.002,
			Target:      resistance + (resistance - support),
			Stop:        support * 0.99,
			Confidence:  70,
		}
	}

	if pctGap(support, lastClose) <= 0.002 {
		return &model.Candidate{
			PatternType: model.PatternTriangleBreakDown,
			SignalType:  model.SignalTypeSell,
			Entry:       support * 0.998,
			Target:      support - (resistance - support),
			Stop:        resistance * 1.01,
			Confidence:  70,
		}
	}

	return nil
}

func rangeOf(highs, lows []float64) float64 {
	return maxFloat(highs) - minFloat(lows)
}
