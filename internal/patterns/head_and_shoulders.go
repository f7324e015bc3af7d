package patterns

import (
	"github.com/aristath/cryptosignal/internal/indicators"
	"github.com/aristath/cryptosignal/internal/model"
)

// DetectHeadAndShoulders requires at least 100 ticks. It identifies three
// ordered local maxima over a ±25 sample window with volume confirmation
// (≥0.6·trailing-30 average volume), then checks inter-peak separation,
// head/shoulder ratio bounds, and shoulder-to-shoulder symmetry (§4.C6).
func DetectHeadAndShoulders(s indicators.Series) *model.Candidate {
	const minTicks = 100
	const window = 25

	if len(s.Closes) < minTicks {
		return nil
	}

	maxima := localMaxima(s.Highs, window)
	var confirmed []extremum
	for _, m := range maxima {
		avgVol := trailingAvg(s.Volumes, m.index, 30)
		if avgVol > 0 && s.Volumes[m.index] >= 0.6*avgVol {
			confirmed = append(confirmed, m)
		}
	}
	if len(confirmed) < 3 {
		return nil
	}

	n := len(confirmed)
	leftShoulder := confirmed[n-3]
	head := confirmed[n-2]
	rightShoulder := confirmed[n-1]

	if head.index-leftShoulder.index < 15 || rightShoulder.index-head.index < 15 {
		return nil
	}
	if head.value <= leftShoulder.value || head.value <= rightShoulder.value {
		return nil // head must be the tallest of the three
	}

	leftRatio := head.value / leftShoulder.value
	rightRatio := head.value / rightShoulder.value
	if leftRatio < 1.03 || leftRatio > 1.15 || rightRatio < 1.03 || rightRatio > 1.15 {
		return nil
	}

	if pctGap(leftShoulder.value, rightShoulder.value) > 0.025 {
		return nil
	}

	neckline := leftShoulder.value
	if rightShoulder.value < neckline {
		neckline = rightShoulder.value
	}
	headHeight := head.value - neckline

	return &model.Candidate{
		PatternType: model.PatternHeadAndShoulders,
		SignalType:  model.SignalTypeSell,
		Entry:       neckline * 0.998,
		Target:      neckline - 0.8*headHeight,
		Stop:        head.value * 1.015,
		Confidence:  80,
	}
}
