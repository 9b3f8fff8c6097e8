// Package phase implements the subsystem ledgers the scheduler runs in
// fixed order every turn: materials, logistics, population, power, crisis,
// culture, knowledge, victory. Each phase owns one world-state partition
// and may additionally write only the cross-partition outputs named in its
// doc comment. A returned error aborts the whole turn.
package phase

import (
	"hegemon.sim/internal/sim/state"
	"hegemon.sim/internal/sim/tuning"
)

// Context carries everything a phase may touch while it runs. The world is
// the scheduler's working copy; the event log is the tick-scoped
// cross-subsystem queue drained at snapshot capture.
type Context struct {
	Tick   uint64
	World  *state.World
	Orders state.OrderSet
	Events *state.EventLog
	Tun    *tuning.Tuning
}

type Phase interface {
	Name() string
	// After names the phases whose commit this phase depends on. The
	// scheduler refuses to run a phase before all of them committed.
	After() []string
	Run(ctx *Context) error
}

// Pipeline returns the fixed total order of subsystem phases. The order is
// part of the engine's determinism contract and never changes at runtime.
func Pipeline() []Phase {
	return []Phase{
		MaterialsPhase{},
		LogisticsPhase{},
		PopulationPhase{},
		PowerPhase{},
		CrisisPhase{},
		CulturePhase{},
		KnowledgePhase{},
		VictoryPhase{},
	}
}
