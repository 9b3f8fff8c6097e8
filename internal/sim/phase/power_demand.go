package phase

import (
	"sort"

	"hegemon.sim/internal/sim/mathx"
	"hegemon.sim/internal/sim/state"
)

// satisfyDemand pools the routed supply inside each region and allocates it
// to the region's nodes by priority tier. Higher tiers (lower Priority) are
// filled to their demand first; what remains is split within the next tier
// proportionally to unmet demand, largest-remainder rounded, ties broken by
// ascending node id.
func satisfyDemand(w *state.World, grid *state.PowerGrid, nodeIDs []string, avail map[string]state.Milli) {
	for _, rid := range w.RegionIDs() {
		var regionNodes []string
		pool := state.Milli(0)
		for _, nid := range nodeIDs {
			n := grid.Nodes[nid]
			if n.Region != rid {
				continue
			}
			regionNodes = append(regionNodes, nid)
			pool += avail[nid]
		}
		if len(regionNodes) == 0 {
			continue
		}

		for _, tier := range tiersOf(grid, regionNodes) {
			members := tierMembers(grid, regionNodes, tier)
			tierDemand := state.Milli(0)
			for _, nid := range members {
				tierDemand += grid.Nodes[nid].Demand
			}
			if tierDemand <= 0 {
				continue
			}
			if pool >= tierDemand {
				for _, nid := range members {
					grid.Nodes[nid].Served = grid.Nodes[nid].Demand
				}
				pool -= tierDemand
				continue
			}
			allocateProportional(grid, members, pool, tierDemand)
			pool = 0
		}
	}
}

func tiersOf(grid *state.PowerGrid, nodeIDs []string) []int {
	seen := map[int]bool{}
	var tiers []int
	for _, nid := range nodeIDs {
		p := grid.Nodes[nid].Priority
		if !seen[p] {
			seen[p] = true
			tiers = append(tiers, p)
		}
	}
	sort.Ints(tiers)
	return tiers
}

func tierMembers(grid *state.PowerGrid, nodeIDs []string, tier int) []string {
	var out []string
	for _, nid := range nodeIDs {
		if grid.Nodes[nid].Priority == tier {
			out = append(out, nid)
		}
	}
	return out // nodeIDs is already id-sorted
}

// allocateProportional splits pool across members short of demand using
// floor division plus largest-remainder distribution. The remainder order
// (descending remainder, then ascending node id) is the documented
// deterministic tie-break for equal-priority consumers.
func allocateProportional(grid *state.PowerGrid, members []string, pool, tierDemand state.Milli) {
	type slot struct {
		id        string
		remainder int64
	}
	slots := make([]slot, 0, len(members))
	distributed := state.Milli(0)
	for _, nid := range members {
		d := int64(grid.Nodes[nid].Demand)
		share := int64(pool) * d / int64(tierDemand)
		grid.Nodes[nid].Served = state.Milli(share)
		distributed += state.Milli(share)
		slots = append(slots, slot{id: nid, remainder: int64(pool) * d % int64(tierDemand)})
	}
	leftover := pool - distributed
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].remainder != slots[j].remainder {
			return slots[i].remainder > slots[j].remainder
		}
		return slots[i].id < slots[j].id
	})
	for i := 0; leftover > 0 && i < len(slots); i++ {
		grid.Nodes[slots[i].id].Served++
		leftover--
	}
}

// evaluateInstability scores each node in [0, 1000] permille. The score is
// non-decreasing in served supply for fixed demand and storage: the only
// supply-dependent term is the shortfall penalty, which shrinks as served
// supply grows.
func evaluateInstability(ctx *Context, grid *state.PowerGrid, nodeIDs []string) []state.Incident {
	pw := ctx.Tun.Power
	var records []state.Incident
	for _, nid := range nodeIDs {
		n := grid.Nodes[nid]
		ratio := state.Ratio(n.Served, n.Demand)
		deficit := 1000 - ratio

		chargeFrac := int64(0)
		if n.StorageCap > 0 {
			chargeFrac = state.Ratio(n.StorageCharge, n.StorageCap)
		}

		score := 1000 - pw.ShortfallPenaltyPermille*deficit/1000 + pw.HeadroomBonusPermille*chargeFrac/1000
		n.Stability = state.ClampPermille(score)

		switch {
		case n.Stability < pw.CriticalThresholdPermille:
			records = append(records, state.Incident{
				Tick:      ctx.Tick,
				NodeID:    nid,
				Kind:      criticalIncidentKind(ctx.Tick, nid, deficit, pw.BlackoutDeficitPermille),
				Severity:  state.SeverityCritical,
				Stability: n.Stability,
			})
		case n.Stability < pw.WarnThresholdPermille:
			records = append(records, state.Incident{
				Tick:      ctx.Tick,
				NodeID:    nid,
				Kind:      IncidentGridStrain,
				Severity:  state.SeverityWarn,
				Stability: n.Stability,
			})
		}
	}
	return records
}

// criticalIncidentKind picks the incident flavor. A deficit at or past the
// blackout threshold is always a blackout; below it the kind comes from the
// (tick, node, purpose) hash so independent runs agree.
func criticalIncidentKind(tick uint64, nodeID string, deficit, blackoutDeficit int64) string {
	if deficit >= blackoutDeficit {
		return IncidentBlackout
	}
	kinds := []string{IncidentBrownout, IncidentContainment, IncidentCascadingFailure}
	roll := mathx.Roll(tick, nodeID, incidentPurpose)
	return kinds[mathx.Pick(roll, len(kinds))]
}

// exportMetrics publishes the tick's incident records into the power
// partition for the snapshot capturer and mirrors them onto the tick event
// log for the crisis phase.
func exportMetrics(ctx *Context, grid *state.PowerGrid, records []state.Incident) {
	grid.Incidents = records
	for _, rec := range records {
		ctx.Events.Append(state.Event{
			Kind:      state.EventIncident,
			Subsystem: "power",
			Entity:    rec.NodeID,
			Detail:    rec.Kind,
			Severity:  rec.Severity,
			Value:     rec.Stability,
		})
	}
}
