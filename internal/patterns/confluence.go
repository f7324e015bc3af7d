package patterns

import (
	"github.com/aristath/cryptosignal/internal/indicators"
	"github.com/aristath/cryptosignal/internal/model"
)

const (
	weightRSI    = 2.0
	weightStoch  = 1.5
	weightMACD   = 2.0
	weightSMA    = 1.5
	weightBB     = 1.0
	confluenceThreshold = 60.0
)

// DetectIndicatorConfluence computes weighted buy/sell confluence scores
// across RSI, Stochastic, MACD, SMA cross, and Bollinger position, and
// emits a candidate when either side's confluence exceeds 60% (§4.C6).
func DetectIndicatorConfluence(snap indicators.Snapshot, price float64) *model.Candidate {
	var buyScore, sellScore, total float64

	if snap.RSI != nil {
		total += weightRSI
		rsi := *snap.RSI
		switch {
		case rsi < 25:
			buyScore += weightRSI
		case rsi < 35:
			buyScore += weightRSI / 2
		}
		switch {
		case rsi > 75:
			sellScore += weightRSI
		case rsi > 65:
			sellScore += weightRSI / 2
		}
	}

	if snap.StochK != nil && snap.StochD != nil {
		total += weightStoch
		k, d := *snap.StochK, *snap.StochD
		if k < 15 && d < 15 {
			buyScore += weightStoch
		} else if k > 85 && d > 85 {
			sellScore += weightStoch
		}
	}

	if snap.MACD != nil && snap.MACDSig != nil {
		total += weightMACD
		macd, sig := *snap.MACD, *snap.MACDSig
		switch {
		case macd > sig && macd > 0:
			buyScore += weightMACD
		case macd > sig:
			buyScore += weightMACD / 2
		}
		switch {
		case macd < sig && macd < 0:
			sellScore += weightMACD
		case macd < sig:
			sellScore += weightMACD / 2
		}
	}

	if snap.SMA12 != nil && snap.SMA30 != nil {
		total += weightSMA
		sma12, sma30 := *snap.SMA12, *snap.SMA30
		if sma12 > sma30 && price > sma12 {
			buyScore += weightSMA
		} else if sma12 < sma30 && price < sma12 {
			sellScore += weightSMA
		}
	}

	if snap.BBUpper != nil && snap.BBLower != nil {
		total += weightBB
		width := *snap.BBUpper - *snap.BBLower
		if width > 0 {
			position := (price - *snap.BBLower) / width
			switch {
			case position < 0.2:
				buyScore += weightBB
			case position > 0.8:
				sellScore += weightBB
			}
		}
	}

	if total == 0 {
		return nil
	}

	buyConfluence := buyScore / total * 100
	sellConfluence := sellScore / total * 100

	if buyConfluence > confluenceThreshold {
		factor := buyConfluence / 30
		if factor > 3 {
			factor = 3
		}
		confidence := buyConfluence
		if confidence > 90 {
			confidence = 90
		}
		return &model.Candidate{
			PatternType: model.PatternIndicatorsBuy,
			SignalType:  model.SignalTypeBuy,
			Entry:       price * 1.002,
			Target:      price * (1 + 0.02*factor),
			Stop:        price * 0.985,
			Confidence:  confidence,
		}
	}

	if sellConfluence > confluenceThreshold {
		factor := sellConfluence / 30
		if factor > 3 {
			factor = 3
		}
		confidence := sellConfluence
		if confidence > 90 {
			confidence = 90
		}
		return &model.Candidate{
			PatternType: model.PatternIndicatorsSell,
			SignalType:  model.SignalTypeSell,
			Entry:       price * 0.998,
			Target:      price * (1 - 0.02*factor),
			Stop:        price * 1.015,
			Confidence:  confidence,
		}
	}

	return nil
}
