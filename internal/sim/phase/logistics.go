package phase

import (
	"fmt"

	"hegemon.sim/internal/sim/state"
)

// LogisticsPhase converts faction fuel stock into per-region delivered
// throughput, bounded by each region's logistics capacity. Declared cross
// writes: it debits fuel from the materials partition; its Throughput map
// is the designated output consumed by the power phase.
type LogisticsPhase struct{}

func (LogisticsPhase) Name() string    { return "logistics" }
func (LogisticsPhase) After() []string { return []string{"materials"} }

func (LogisticsPhase) Run(ctx *Context) error {
	w := ctx.World
	w.Logistics.Throughput = make(map[string]state.Milli, len(w.Terrain.Regions))
	w.Logistics.Strain = make(map[string]int64, len(w.Terrain.Regions))

	for _, rid := range w.RegionIDs() {
		r := w.Terrain.Regions[rid]
		need := regionFuelNeed(w, rid)
		if need == 0 {
			w.Logistics.Throughput[rid] = 0
			w.Logistics.Strain[rid] = 0
			continue
		}

		cap := r.LogisticsCap
		if boost := prioritizeBoost(ctx.Orders, r.Owner, rid); boost > 0 {
			cap += state.MulPermille(cap, boost)
		}

		stock := w.Materials.Stock[r.Owner]
		available := state.Milli(0)
		if stock != nil {
			available = stock.Fuel
		}

		delivered := state.MinMilli(need, state.MinMilli(cap, available))
		if delivered < 0 {
			return fmt.Errorf("region %s delivered negative throughput", rid)
		}
		if stock != nil {
			stock.Fuel -= delivered
		}

		w.Logistics.Throughput[rid] = delivered
		strain := 1000 - state.Ratio(delivered, need)
		w.Logistics.Strain[rid] = strain

		if strain >= 500 {
			ctx.Events.Append(state.Event{
				Kind:      state.EventTension,
				Subsystem: "logistics",
				Entity:    rid,
				Detail:    "fuel shortfall",
				Severity:  state.SeverityWarn,
				Value:     strain,
			})
		}
	}
	return nil
}

// regionFuelNeed is the fuel demanded this tick by the region's power
// nodes: a fixed permille of installed base capacity.
func regionFuelNeed(w *state.World, rid string) state.Milli {
	var total state.Milli
	for _, nid := range w.Power.NodeIDs() {
		n := w.Power.Nodes[nid]
		if n.Region == rid {
			total += n.BaseCapacity
		}
	}
	return state.MulPermille(total, 100)
}

func prioritizeBoost(orders state.OrderSet, owner, rid string) int64 {
	for _, d := range orders.DirectivesFor(owner, state.DirectivePrioritize) {
		if d.Target == rid {
			return state.ClampPermille(d.Weight)
		}
	}
	return 0
}
