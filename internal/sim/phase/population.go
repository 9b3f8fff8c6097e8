package phase

import (
	"fmt"

	"hegemon.sim/internal/sim/state"
)

// PopulationPhase feeds each faction's population from its food stock and
// applies growth or starvation. Declared cross write: it debits food from
// the materials partition. Its labor pool output is read by later phases
// and by the next tick's materials phase.
type PopulationPhase struct{}

func (PopulationPhase) Name() string    { return "population" }
func (PopulationPhase) After() []string { return []string{"materials"} }

func (PopulationPhase) Run(ctx *Context) error {
	w := ctx.World
	soc := ctx.Tun.Society

	for _, fid := range w.FactionIDs() {
		pop := w.Population.Pops[fid]
		if pop == nil {
			return fmt.Errorf("faction %s has no population record", fid)
		}
		stock := w.Materials.Stock[fid]
		if stock == nil {
			return fmt.Errorf("faction %s has no stockpile", fid)
		}

		need := state.MulPermille(pop.Count, ctx.Tun.Materials.UpkeepFoodPermille)
		eaten := state.MinMilli(need, stock.Food)
		stock.Food -= eaten

		sufficiency := state.Ratio(eaten, need)
		if sufficiency >= 1000 {
			pop.Count += state.MulPermille(pop.Count, soc.GrowthPermille)
		} else {
			hunger := 1000 - sufficiency
			loss := soc.StarvationPermille * hunger / 1000
			pop.Count -= state.MulPermille(pop.Count, loss)
		}
		if pop.Count < 0 {
			return fmt.Errorf("faction %s population went negative", fid)
		}

		pop.Labor = state.MulPermille(pop.Count, soc.LaborPermille)
	}
	return nil
}
