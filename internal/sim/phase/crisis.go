package phase

import (
	"fmt"

	"hegemon.sim/internal/sim/state"
)

// CrisisPhase accumulates regional tension from the incidents earlier
// phases appended to the tick event log, decays it, and escalates or calms
// crisis levels. It writes only the crisis partition plus tension events.
type CrisisPhase struct{}

func (CrisisPhase) Name() string    { return "crisis" }
func (CrisisPhase) After() []string { return []string{"power"} }

const maxCrisisLevel = 3

func (CrisisPhase) Run(ctx *Context) error {
	w := ctx.World
	soc := ctx.Tun.Society

	// Incidents raise tension in the region of the affected node.
	for _, ev := range ctx.Events.Events() {
		if ev.Kind != state.EventIncident {
			continue
		}
		n := w.Power.Nodes[ev.Entity]
		if n == nil {
			return fmt.Errorf("crisis: incident for unknown node %s", ev.Entity)
		}
		bump := state.Milli(soc.TensionPerIncident)
		if ev.Severity == state.SeverityCritical {
			bump *= 2
		}
		w.Crisis.Tension[n.Region] += bump
	}

	for _, rid := range w.RegionIDs() {
		t := state.MulPermille(w.Crisis.Tension[rid], soc.TensionDecayPermille)
		w.Crisis.Tension[rid] = t

		level := w.Crisis.Level[rid]
		threshold := state.Milli(soc.CrisisThreshold)
		switch {
		case t >= threshold && level < maxCrisisLevel:
			level++
			w.Crisis.Level[rid] = level
			w.Crisis.Tension[rid] = t / 2
			ctx.Events.Append(state.Event{
				Kind:      state.EventTension,
				Subsystem: "crisis",
				Entity:    rid,
				Detail:    "crisis escalation",
				Severity:  state.SeverityCritical,
				Value:     level,
			})
		case t < threshold/2 && level > 0:
			w.Crisis.Level[rid] = level - 1
		}
	}
	return nil
}
