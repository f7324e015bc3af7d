// Package analysis wires the per-tick data flow C1 -> C3 -> C2 -> (C5, C6)
// -> C7 -> C8 -> C4: on every accepted tick it persists the tick, recomputes
// the indicator snapshot, runs pattern detection, and drives the signal
// manager's create/update cycle for that symbol.
package analysis

import (
	"context"
	"time"

	"github.com/aristath/cryptosignal/internal/database"
	"github.com/aristath/cryptosignal/internal/indicators"
	"github.com/aristath/cryptosignal/internal/instrument"
	"github.com/aristath/cryptosignal/internal/model"
	"github.com/aristath/cryptosignal/internal/patterns"
	"github.com/aristath/cryptosignal/internal/signals"
	"github.com/rs/zerolog"
)

// seriesWindow bounds how much history feeds the indicator engine. SMA60 is
// the longest-lookback indicator computed; a generous multiple keeps its
// warm-up covered without dragging the whole retained history through the
// pipeline on every tick.
const seriesWindow = 240

const indicatorTimeframe = "1m"

// Pipeline implements events.TickSink, gluing the instrument registry, the
// indicator engine, pattern detection and the signal manager together
// (§4 data flow).
type Pipeline struct {
	registry   *instrument.Registry
	ticks      *database.PriceDataRepository
	indicators *database.IndicatorRepository
	signals    *signals.Manager
	log        zerolog.Logger
}

// New constructs a Pipeline.
func New(registry *instrument.Registry, ticks *database.PriceDataRepository, indicatorRepo *database.IndicatorRepository, sigMgr *signals.Manager, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		registry:   registry,
		ticks:      ticks,
		indicators: indicatorRepo,
		signals:    sigMgr,
		log:        log.With().Str("component", "analysis_pipeline").Logger(),
	}
}

// OnTick implements events.TickSink.
func (p *Pipeline) OnTick(symbol string, t model.Tick) {
	ctx := context.Background()

	if err := p.ticks.Insert(ctx, t); err != nil {
		p.log.Error().Err(err).Str("symbol", symbol).Msg("failed to persist tick")
	}

	inst, ok := p.registry.Get(symbol)
	if !ok {
		p.log.Warn().Str("symbol", symbol).Msg("tick accepted for unregistered instrument")
		return
	}

	series := toSeries(inst.History(seriesWindow))
	snap := indicators.Compute(series)
	values := snap.AsMap()

	if len(values) > 0 {
		samples := make([]model.IndicatorSample, 0, len(values))
		for name, value := range values {
			samples = append(samples, model.IndicatorSample{
				Timestamp:     t.Timestamp,
				Symbol:        symbol,
				IndicatorName: name,
				Value:         value,
				Timeframe:     indicatorTimeframe,
			})
		}
		if err := p.indicators.BatchInsert(ctx, samples); err != nil {
			p.log.Error().Err(err).Str("symbol", symbol).Msg("failed to persist indicator samples")
		}
	}

	now := t.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	for _, candidate := range patterns.DetectAll(series, snap, t.Price) {
		accept, reason, err := p.signals.Create(ctx, symbol, candidate, t.Price, values, now)
		if err != nil {
			p.log.Error().Err(err).Str("symbol", symbol).Str("pattern", candidate.PatternType).Msg("signal creation failed")
			continue
		}
		if !accept {
			p.log.Debug().Str("symbol", symbol).Str("pattern", candidate.PatternType).Str("reason", reason).Msg("candidate rejected")
		}
	}

	if err := p.signals.Update(ctx, symbol, t.Price, now); err != nil {
		p.log.Error().Err(err).Str("symbol", symbol).Msg("signal update failed")
	}
}

func toSeries(ticks []model.Tick) indicators.Series {
	s := indicators.Series{
		Opens:   make([]float64, len(ticks)),
		Highs:   make([]float64, len(ticks)),
		Lows:    make([]float64, len(ticks)),
		Closes:  make([]float64, len(ticks)),
		Volumes: make([]float64, len(ticks)),
	}
	for i, t := range ticks {
		s.Opens[i] = t.Open
		s.Highs[i] = t.High
		s.Lows[i] = t.Low
		s.Closes[i] = t.Close
		s.Volumes[i] = t.Volume
	}
	return s
}
