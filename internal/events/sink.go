// Package events defines the typed subscriber capability accepted ticks are
// fanned out to. This replaces the reference stack's duck-typed callback
// subscribers and package-level event bus singleton with an explicit,
// constructor-wired list of typed sinks (§4.C2 redesign note).
package events

import "github.com/aristath/cryptosignal/internal/model"

// TickSink is implemented by anything that needs to react to an accepted
// tick. Its concrete implementor is analysis.Pipeline, which persists the
// tick and runs the indicator/pattern/signal steps; cmd/server/main.go
// constructs it and registers it on the Ingestion Scheduler.
type TickSink interface {
	OnTick(symbol string, t model.Tick)
}

// TickSinkFunc adapts a plain function to the TickSink interface, letting
// callers register lightweight sinks (e.g. in tests) without declaring a
// named type.
type TickSinkFunc func(symbol string, t model.Tick)

// OnTick implements TickSink.
func (f TickSinkFunc) OnTick(symbol string, t model.Tick) { f(symbol, t) }
