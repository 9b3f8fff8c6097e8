package phase

import (
	"fmt"

	"hegemon.sim/internal/sim/state"
)

// MaterialsPhase extracts food, ore and fuel from owned regions into each
// faction's stockpile. It writes only the materials partition. Extraction
// scales with last tick's labor pool and can be biased per resource by
// materials.extract directives.
type MaterialsPhase struct{}

func (MaterialsPhase) Name() string    { return "materials" }
func (MaterialsPhase) After() []string { return nil }

func (MaterialsPhase) Run(ctx *Context) error {
	w := ctx.World
	base := ctx.Tun.Materials.ExtractionBasePermille

	for _, fid := range w.FactionIDs() {
		stock := w.Materials.Stock[fid]
		if stock == nil {
			return fmt.Errorf("faction %s has no stockpile", fid)
		}

		bias := extractBias(ctx.Orders.DirectivesFor(fid, state.DirectiveExtract))
		laborFactor := laborPermille(w, fid)

		for _, rid := range w.RegionIDs() {
			r := w.Terrain.Regions[rid]
			if r.Owner != fid {
				continue
			}
			rate := base * laborFactor / 1000
			stock.Food += state.MulPermille(state.MulPermille(r.FoodYield, rate), bias["food"])
			stock.Ore += state.MulPermille(state.MulPermille(r.OreYield, rate), bias["ore"])
			stock.Fuel += state.MulPermille(state.MulPermille(r.FuelYield, rate), bias["fuel"])
		}

		if stock.Food < 0 || stock.Ore < 0 || stock.Fuel < 0 {
			return fmt.Errorf("faction %s stockpile went negative", fid)
		}
	}
	return nil
}

// extractBias resolves materials.extract directives to per-resource
// multipliers. A directive weight shifts the targeted resource up and
// leaves the others at par; unknown targets are ignored.
func extractBias(directives []state.Directive) map[string]int64 {
	bias := map[string]int64{"food": 1000, "ore": 1000, "fuel": 1000}
	for _, d := range directives {
		if _, ok := bias[d.Target]; ok {
			bias[d.Target] = 1000 + state.ClampPermille(d.Weight)
		}
	}
	return bias
}

// laborPermille reads the labor pool committed by the population phase on
// the previous tick, scaled against the faction's population. A faction
// with no population yet works at par.
func laborPermille(w *state.World, fid string) int64 {
	p := w.Population.Pops[fid]
	if p == nil || p.Count <= 0 {
		return 1000
	}
	return state.Ratio(p.Labor, p.Count)
}
