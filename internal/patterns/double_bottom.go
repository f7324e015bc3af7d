package patterns

import (
	"github.com/aristath/cryptosignal/internal/indicators"
	"github.com/aristath/cryptosignal/internal/model"
)

// DetectDoubleBottom requires at least 80 ticks. It finds local-minimum
// lows within a ±20 sample window, keeping only those with volume
// confirmation (≥0.8·trailing-20 average volume), then checks the most
// recent pair for separation, price-gap and intervening-peak-height
// conditions (§4.C6).
func DetectDoubleBottom(s indicators.Series) *model.Candidate {
	const minTicks = 80
	const window = 20

	if len(s.Closes) < minTicks {
		return nil
	}

	minima := localMinima(s.Lows, window)
	var confirmed []extremum
	for _, m := range minima {
		avgVol := trailingAvg(s.Volumes, m.index, window)
		if avgVol > 0 && s.Volumes[m.index] >= 0.8*avgVol {
			confirmed = append(confirmed, m)
		}
	}
	if len(confirmed) < 2 {
		return nil
	}

	first := confirmed[len(confirmed)-2]
	second := confirmed[len(confirmed)-1]

	if second.index-first.index < window {
		return nil
	}

	lowerLow := first.value
	if second.value < lowerLow {
		lowerLow = second.value
	}

	gap := pctGap(first.value, second.value)
	if gap >= 0.015 {
		return nil
	}

	peak := maxFloat(s.Highs[first.index : second.index+1])
	height := peak - lowerLow
	if height <= 0.02*lowerLow {
		return nil
	}

	entry := second.value * 1.008
	target := entry + 0.8*height
	stop := second.value * 0.985
	confidence := 50 + (1-gap)*35
	if confidence > 85 {
		confidence = 85
	}

	return &model.Candidate{
		PatternType: model.PatternDoubleBottom,
		SignalType:  model.SignalTypeBuy,
		Entry:       entry,
		Target:      target,
		Stop:        stop,
		Confidence:  confidence,
	}
}
