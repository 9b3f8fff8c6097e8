package phase

import (
	"fmt"

	"hegemon.sim/internal/sim/state"
)

// CulturePhase drifts each faction's influence with population and erodes
// it under crisis pressure in owned regions. Openness relaxes toward the
// midpoint and closes under pressure. Writes only the culture partition.
type CulturePhase struct{}

func (CulturePhase) Name() string    { return "culture" }
func (CulturePhase) After() []string { return []string{"crisis"} }

func (CulturePhase) Run(ctx *Context) error {
	w := ctx.World
	drift := ctx.Tun.Society.InfluenceDriftPermille

	for _, fid := range w.FactionIDs() {
		pop := w.Population.Pops[fid]
		if pop == nil {
			return fmt.Errorf("faction %s has no population record", fid)
		}

		pressure := int64(0)
		for _, rid := range w.RegionIDs() {
			if w.Terrain.Regions[rid].Owner == fid {
				pressure += w.Crisis.Level[rid]
			}
		}

		gain := state.MulPermille(pop.Count, drift)
		loss := state.Milli(pressure) * 100
		inf := w.Culture.Influence[fid] + gain - loss
		if inf < 0 {
			inf = 0
		}
		w.Culture.Influence[fid] = inf

		open := w.Culture.Openness[fid]
		if open == 0 {
			open = 500
		}
		open += (500 - open) / 8
		open -= pressure * 25
		w.Culture.Openness[fid] = state.ClampPermille(open)
	}
	return nil
}
