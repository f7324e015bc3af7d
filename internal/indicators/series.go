// Package indicators computes the technical-analysis indicator set over an
// instrument's price history (§4.C5 Indicator Engine). Every function is
// pure: inputs are plain numeric slices, outputs are a *float64 (nil when
// history is insufficient).
package indicators

// Series is the OHLCV input the indicator functions read from, oldest
// value first.
type Series struct {
	Opens   []float64
	Highs   []float64
	Lows    []float64
	Closes  []float64
	Volumes []float64
}

// Snapshot is the full set of computed indicators for one point in time,
// keyed the same as the `technical_indicators.indicator_name` column.
type Snapshot struct {
	SMA12   *float64
	SMA30   *float64
	SMA60   *float64
	EMA12   *float64
	EMA26   *float64
	RSI     *float64
	StochK  *float64
	StochD  *float64
	MACD    *float64
	MACDSig *float64
	MACDHist *float64
	BBUpper  *float64
	BBMiddle *float64
	BBLower  *float64
	ATR        *float64
	VolumeSMA  *float64
}

// AsMap returns the non-nil indicators as a name->value map, the shape
// persisted one row per indicator into technical_indicators.
func (s Snapshot) AsMap() map[string]float64 {
	out := make(map[string]float64, 16)
	add := func(name string, v *float64) {
		if v != nil {
			out[name] = *v
		}
	}
	add("SMA_12", s.SMA12)
	add("SMA_30", s.SMA30)
	add("SMA_60", s.SMA60)
	add("EMA_12", s.EMA12)
	add("EMA_26", s.EMA26)
	add("RSI", s.RSI)
	add("STOCH_K", s.StochK)
	add("STOCH_D", s.StochD)
	add("MACD", s.MACD)
	add("MACD_SIGNAL", s.MACDSig)
	add("MACD_HISTOGRAM", s.MACDHist)
	add("BB_UPPER", s.BBUpper)
	add("BB_MIDDLE", s.BBMiddle)
	add("BB_LOWER", s.BBLower)
	add("ATR", s.ATR)
	add("VOLUME_SMA", s.VolumeSMA)
	return out
}

// Compute produces a full Snapshot from a Series.
func Compute(s Series) Snapshot {
	macd, macdSig, macdHist := MACD(s.Closes)
	bbUpper, bbMiddle, bbLower := BollingerBands(s.Closes, 20, 2)
	stochK, stochD := Stochastic(s.Highs, s.Lows, s.Closes, 14)

	return Snapshot{
		SMA12:    SMA(s.Closes, 12),
		SMA30:    SMA(s.Closes, 30),
		SMA60:    SMA(s.Closes, 60),
		EMA12:    EMA(s.Closes, 12),
		EMA26:    EMA(s.Closes, 26),
		RSI:      RSI(s.Closes, 14),
		StochK:   stochK,
		StochD:   stochD,
		MACD:     macd,
		MACDSig:  macdSig,
		MACDHist: macdHist,
		BBUpper:  bbUpper,
		BBMiddle: bbMiddle,
		BBLower:  bbLower,
		ATR:       ATR(s.Highs, s.Lows, s.Closes, 14),
		VolumeSMA: VolumeSMA(s.Volumes, 20),
	}
}
