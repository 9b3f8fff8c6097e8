package phase

import (
	"fmt"
	"sort"

	"hegemon.sim/internal/sim/state"
)

// PowerPhase resolves the power grid: generation, routing, storage, demand
// satisfaction, instability scoring and incident emission, in that fixed
// sub-step order. It consumes the logistics Throughput output and writes
// only the power partition plus incident events on the tick event log.
type PowerPhase struct{}

func (PowerPhase) Name() string    { return "power" }
func (PowerPhase) After() []string { return []string{"logistics"} }

// Incident kinds.
const (
	IncidentGridStrain       = "grid_strain"
	IncidentBrownout         = "brownout"
	IncidentBlackout         = "blackout"
	IncidentContainment      = "containment_breach"
	IncidentCascadingFailure = "cascading_failure"
)

const incidentPurpose = "power.incident_kind"

func (PowerPhase) Run(ctx *Context) error {
	w := ctx.World
	if w.Logistics.Throughput == nil {
		return fmt.Errorf("power: missing logistics throughput output")
	}
	grid := w.Power
	nodeIDs := grid.NodeIDs()

	gen, err := collectGeneration(ctx, nodeIDs)
	if err != nil {
		return err
	}
	avail := resolveGeneration(ctx, grid, nodeIDs, gen)
	if err := routeEnergy(grid, avail); err != nil {
		return err
	}
	applyStorage(grid, nodeIDs, avail, gen)
	satisfyDemand(w, grid, nodeIDs, avail)
	records := evaluateInstability(ctx, grid, nodeIDs)
	exportMetrics(ctx, grid, records)
	return nil
}

// generationPlan carries the per-node directive inputs collected before any
// grid math runs.
type generationPlan struct {
	outputBias     map[string]int64 // permille, default 1000
	storageReserve map[string]state.Milli
}

// collectGeneration gathers power.generate and power.storage_policy
// directives. Only the node owner's directives apply.
func collectGeneration(ctx *Context, nodeIDs []string) (generationPlan, error) {
	plan := generationPlan{
		outputBias:     make(map[string]int64, len(nodeIDs)),
		storageReserve: make(map[string]state.Milli, len(nodeIDs)),
	}
	grid := ctx.World.Power
	for _, nid := range nodeIDs {
		n := grid.Nodes[nid]
		if n.BaseCapacity < 0 || n.Demand < 0 {
			return plan, fmt.Errorf("power node %s has negative capacity or demand", nid)
		}
		plan.outputBias[nid] = 1000
		for _, d := range ctx.Orders.DirectivesFor(n.Owner, state.DirectiveGenerate) {
			if d.Target == nid {
				plan.outputBias[nid] = state.ClampPermille(d.Weight)
			}
		}
		for _, d := range ctx.Orders.DirectivesFor(n.Owner, state.DirectiveStoragePolicy) {
			if d.Target == nid {
				plan.storageReserve[nid] = state.MulPermille(n.StorageCap, state.ClampPermille(d.Weight))
			}
		}
	}
	return plan, nil
}

// resolveGeneration sets per-node supply: base capacity scaled by fuel
// efficiency (clamped to [floor, 1.0]) and the directive output bias.
func resolveGeneration(ctx *Context, grid *state.PowerGrid, nodeIDs []string, plan generationPlan) map[string]state.Milli {
	avail := make(map[string]state.Milli, len(nodeIDs))
	floor := ctx.Tun.Power.EfficiencyFloorPermille
	for _, nid := range nodeIDs {
		n := grid.Nodes[nid]
		eff := regionEfficiency(ctx.World, n.Region, floor)
		n.Efficiency = eff
		n.Supply = state.MulPermille(state.MulPermille(n.BaseCapacity, eff), plan.outputBias[nid])
		avail[nid] = n.Supply
	}
	return avail
}

// regionEfficiency maps delivered fuel against the region's need. No need
// (no installed capacity) counts as fully fueled.
func regionEfficiency(w *state.World, rid string, floor int64) int64 {
	need := regionFuelNeed(w, rid)
	delivered := w.Logistics.Throughput[rid]
	eff := state.Ratio(delivered, need)
	if eff < floor {
		eff = floor
	}
	return eff
}

// routeEnergy moves surplus across transmission edges in stable order.
// Transfers are bounded by edge capacity and lose a per-edge permille.
func routeEnergy(grid *state.PowerGrid, avail map[string]state.Milli) error {
	edges := append([]state.PowerEdge(nil), grid.Edges...)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	for _, e := range edges {
		from := grid.Nodes[e.From]
		to := grid.Nodes[e.To]
		if from == nil || to == nil {
			return fmt.Errorf("power edge %s->%s references unknown node", e.From, e.To)
		}
		surplus := avail[e.From] - from.Demand
		if surplus <= 0 {
			continue
		}
		transfer := state.MinMilli(surplus, e.Capacity)
		loss := state.MulPermille(transfer, e.LossPermille)
		avail[e.From] -= transfer
		avail[e.To] += transfer - loss
	}
	return nil
}

// applyStorage charges storage with surplus and discharges to cover
// shortfall, both bounded by the node's clamp rates. A storage_policy
// reserve keeps that fraction of charge out of reach.
func applyStorage(grid *state.PowerGrid, nodeIDs []string, avail map[string]state.Milli, plan generationPlan) {
	for _, nid := range nodeIDs {
		n := grid.Nodes[nid]
		if n.StorageCap <= 0 {
			continue
		}
		surplus := avail[nid] - n.Demand
		if surplus > 0 {
			room := n.StorageCap - n.StorageCharge
			in := state.MinMilli(surplus, state.MinMilli(n.ChargeClamp, room))
			if in > 0 {
				avail[nid] -= in
				n.StorageCharge += in
			}
			continue
		}
		if surplus < 0 {
			usable := n.StorageCharge - plan.storageReserve[nid]
			out := state.MinMilli(-surplus, state.MinMilli(n.DischargeClamp, state.MaxMilli(usable, 0)))
			if out > 0 {
				avail[nid] += out
				n.StorageCharge -= out
			}
		}
	}
}
