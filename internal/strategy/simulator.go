package strategy

import (
	"errors"
	"fmt"
)

var ErrNoObservations = errors.New("no aligned observations to simulate")

// Result is the full output of one simulation.
type Result struct {
	Params       Params
	Trades       []Trade
	Events       []TradeEvent
	FinalState   SimulationState
	FinalCapital float64
	Observations int
}

// Run validates p and replays observations through Step, force-closing any
// position left open at the last observation. No observations is a valid run
// with zero trades.
func Run(p Params, observations []Observation) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(observations) == 0 {
		state := NewSimulationState(p.Capital)
		return &Result{Params: p, FinalState: state, FinalCapital: state.Cash}, nil
	}

	ledger := NewLedger()
	var events []TradeEvent
	record := func(ev *TradeEvent) {
		if ev == nil {
			return
		}
		ledger.Apply(ev)
		events = append(events, *ev)
	}

	state := NewSimulationState(p.Capital)
	for _, o := range observations {
		var ev *TradeEvent
		state, ev = Step(p, state, o)
		record(ev)
	}

	var ev *TradeEvent
	state, ev = Finish(p, state, observations[len(observations)-1])
	record(ev)

	if state.Status != StatusFlat {
		return nil, fmt.Errorf("simulation ended with status %s", state.Status)
	}

	return &Result{
		Params:       p,
		Trades:       ledger.Trades(),
		Events:       events,
		FinalState:   state,
		FinalCapital: state.Cash,
		Observations: len(observations),
	}, nil
}
