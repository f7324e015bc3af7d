// Package model holds the data types shared across the ingestion,
// indicator, pattern and signal-lifecycle components.
package model

import "time"

// Tick is a single point-in-time price snapshot (§3 PriceData).
type Tick struct {
	Timestamp time.Time
	Symbol    string
	Price     float64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Source    string
}

// IndicatorSample is one named indicator value computed at a point in time
// (§3 Indicator Sample).
type IndicatorSample struct {
	Timestamp     time.Time
	Symbol        string
	IndicatorName string
	Value         float64
	Timeframe     string
	Metadata      string
}

// SignalStatus is the signal lifecycle state (§3).
type SignalStatus string

const (
	StatusActive     SignalStatus = "ACTIVE"
	StatusHitTarget  SignalStatus = "HIT_TARGET"
	StatusHitStop    SignalStatus = "HIT_STOP"
	StatusExpired    SignalStatus = "EXPIRED"
)

// SignalType is the directional bias a pattern implies.
type SignalType string

const (
	SignalTypeBuy  SignalType = "BUY"
	SignalTypeSell SignalType = "SELL"
)

// Pattern type names emitted by the pattern detector (§4.C6).
const (
	PatternDoubleBottom       = "DOUBLE_BOTTOM"
	PatternHeadAndShoulders   = "HEAD_AND_SHOULDERS"
	PatternTriangleBreakUp    = "TRIANGLE_BREAKOUT_UP"
	PatternTriangleBreakDown  = "TRIANGLE_BREAKOUT_DOWN"
	PatternIndicatorsBuy      = "INDICATORS_BUY"
	PatternIndicatorsSell     = "INDICATORS_SELL"
)

// Signal is the central lifecycle entity (§3).
type Signal struct {
	SignalID        string // 12-hex MD5 hash, also the uniqueness key
	Symbol          string
	PatternType     string
	SignalType      SignalType
	Entry           float64
	Target          float64
	Stop            float64
	Confidence      float64
	RiskRewardRatio float64
	Status          SignalStatus
	Activated       bool
	CurrentPrice    float64
	ProfitLossPct   *float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ClosedAt        *time.Time
	CloseReason     string
}

// IsBullish reports whether s follows the bullish direction invariant
// (target > entry > stop).
func (s *Signal) IsBullish() bool {
	return s.SignalType == SignalTypeBuy
}

// Candidate is a pattern detector's proposed trade setup before validation
// (§4.C6's `{pattern, entry, target, stop, confidence}`).
type Candidate struct {
	PatternType string
	SignalType  SignalType
	Entry       float64
	Target      float64
	Stop        float64
	Confidence  float64
}
