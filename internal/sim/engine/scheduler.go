package engine

import (
	"fmt"

	"hegemon.sim/internal/sim/phase"
	"hegemon.sim/internal/sim/state"
	"hegemon.sim/internal/sim/tuning"
)

// Scheduler runs the fixed phase pipeline over a working copy of the
// world. Either every phase commits and the copy becomes the next tick, or
// the turn aborts and the committed world is untouched.
type Scheduler struct {
	phases []phase.Phase
}

func NewScheduler() *Scheduler {
	return &Scheduler{phases: phase.Pipeline()}
}

// Resolve advances the committed world by one tick using the closed
// order-set. On success it returns the new world and the tick's drained
// event queue; on failure it returns a *PhaseFailure and the input world
// remains the committed tip.
func (s *Scheduler) Resolve(w *state.World, orders state.OrderSet, tun *tuning.Tuning) (*state.World, []state.Event, error) {
	work := w.Clone()
	nextTick := w.Tick + 1
	events := &state.EventLog{}
	committed := map[string]bool{}

	ctx := &phase.Context{
		Tick:   nextTick,
		World:  work,
		Orders: orders,
		Events: events,
		Tun:    tun,
	}

	for _, ph := range s.phases {
		for _, dep := range ph.After() {
			if !committed[dep] {
				return nil, nil, &PhaseFailure{
					Phase: ph.Name(),
					Tick:  nextTick,
					Err:   fmt.Errorf("predecessor %s has not committed", dep),
				}
			}
		}
		if err := ph.Run(ctx); err != nil {
			return nil, nil, &PhaseFailure{Phase: ph.Name(), Tick: nextTick, Err: err}
		}
		committed[ph.Name()] = true
	}

	work.Tick = nextTick
	return work, events.Drain(), nil
}
