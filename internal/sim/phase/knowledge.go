package phase

import (
	"fmt"

	"hegemon.sim/internal/sim/state"
)

// KnowledgePhase advances each faction's active research with labor and
// openness, and on completion grants the tech's capability flag. Declared
// cross write: completed research sets the flag on the faction record,
// which is what gates directives at order validation. Unlocks are also
// announced on the tick event log.
type KnowledgePhase struct{}

func (KnowledgePhase) Name() string    { return "knowledge" }
func (KnowledgePhase) After() []string { return []string{"culture"} }

func (KnowledgePhase) Run(ctx *Context) error {
	w := ctx.World
	rate := ctx.Tun.Society.ResearchRatePermille

	for _, fid := range w.FactionIDs() {
		res := w.Knowledge.Research[fid]
		if res == nil {
			return fmt.Errorf("faction %s has no research record", fid)
		}

		// A research directive retargets the active project; switching
		// away abandons accumulated progress.
		for _, d := range ctx.Orders.DirectivesFor(fid, state.DirectiveResearch) {
			tech := ctx.Tun.TechByID(d.Target)
			if tech == nil || res.Has(tech.ID) {
				continue
			}
			if res.Current != tech.ID {
				res.Current = tech.ID
				res.Progress = 0
			}
		}
		if res.Current == "" {
			continue
		}
		tech := ctx.Tun.TechByID(res.Current)
		if tech == nil {
			// Tech removed by a config reload; drop the project.
			res.Current = ""
			res.Progress = 0
			continue
		}

		pop := w.Population.Pops[fid]
		openness := w.Culture.Openness[fid]
		if openness == 0 {
			openness = 500
		}
		gain := state.MulPermille(state.MulPermille(pop.Labor, rate), openness)
		res.Progress += gain

		if res.Progress >= state.Milli(tech.Cost) {
			res.Unlock(tech.ID)
			if tech.Capability != "" {
				w.Factions[fid].Capabilities[tech.Capability] = true
			}
			ctx.Events.Append(state.Event{
				Kind:      state.EventUnlock,
				Subsystem: "knowledge",
				Entity:    fid,
				Detail:    tech.ID,
				Value:     int64(res.Progress),
			})
			res.Current = ""
			res.Progress = 0
		}
	}
	return nil
}
