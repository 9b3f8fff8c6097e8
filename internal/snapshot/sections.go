package snapshot

import (
	"sort"

	"hegemon.sim/internal/sim/state"
)

// Section ids. Wire bodies are keyed by these; a delta entry carries only
// the sections whose canonical bytes changed since the previous tick.
const (
	SectionMeta       uint8 = 1
	SectionFactions   uint8 = 2
	SectionTerrain    uint8 = 3
	SectionMaterials  uint8 = 4
	SectionLogistics  uint8 = 5
	SectionPopulation uint8 = 6
	SectionPower      uint8 = 7
	SectionCrisis     uint8 = 8
	SectionCulture    uint8 = 9
	SectionKnowledge  uint8 = 10
	SectionScores     uint8 = 11
	SectionEvents     uint8 = 12
)

type Section struct {
	ID   uint8
	Body []byte
}

// EncodeSections serializes a committed world plus that tick's drained
// events into the canonical section set, ordered by section id.
func EncodeSections(w *state.World, events []state.Event) []Section {
	return []Section{
		{SectionMeta, encodeMeta(w)},
		{SectionFactions, encodeFactions(w)},
		{SectionTerrain, encodeTerrain(w)},
		{SectionMaterials, encodeMaterials(w)},
		{SectionLogistics, encodeLogistics(w)},
		{SectionPopulation, encodePopulation(w)},
		{SectionPower, encodePower(w)},
		{SectionCrisis, encodeCrisis(w)},
		{SectionCulture, encodeCulture(w)},
		{SectionKnowledge, encodeKnowledge(w)},
		{SectionScores, encodeScores(w)},
		{SectionEvents, encodeEvents(events)},
	}
}

func sortedKeys[V any](m map[string]V) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

func encodeMeta(w *state.World) []byte {
	var e enc
	e.u64(w.Tick)
	e.i64(w.Seed)
	return e.bytes()
}

func encodeFactions(w *state.World) []byte {
	var e enc
	e.u64(uint64(len(w.Factions)))
	for _, id := range sortedKeys(w.Factions) {
		f := w.Factions[id]
		e.str(f.ID)
		e.str(f.Name)
		caps := make([]string, 0, len(f.Capabilities))
		for c, on := range f.Capabilities {
			if on {
				caps = append(caps, c)
			}
		}
		sort.Strings(caps)
		e.u64(uint64(len(caps)))
		for _, c := range caps {
			e.str(c)
		}
	}
	return e.bytes()
}

func encodeTerrain(w *state.World) []byte {
	var e enc
	e.u64(uint64(len(w.Terrain.Regions)))
	for _, id := range sortedKeys(w.Terrain.Regions) {
		r := w.Terrain.Regions[id]
		e.str(r.ID)
		e.str(r.Owner)
		e.milli(r.FoodYield)
		e.milli(r.OreYield)
		e.milli(r.FuelYield)
		e.milli(r.LogisticsCap)
	}
	return e.bytes()
}

func encodeMaterials(w *state.World) []byte {
	var e enc
	e.u64(uint64(len(w.Materials.Stock)))
	for _, id := range sortedKeys(w.Materials.Stock) {
		s := w.Materials.Stock[id]
		e.str(id)
		e.milli(s.Food)
		e.milli(s.Ore)
		e.milli(s.Fuel)
	}
	return e.bytes()
}

func encodeMilliMap(e *enc, m map[string]state.Milli) {
	e.u64(uint64(len(m)))
	for _, k := range sortedKeys(m) {
		e.str(k)
		e.milli(m[k])
	}
}

func encodeIntMap(e *enc, m map[string]int64) {
	e.u64(uint64(len(m)))
	for _, k := range sortedKeys(m) {
		e.str(k)
		e.i64(m[k])
	}
}

func encodeLogistics(w *state.World) []byte {
	var e enc
	encodeMilliMap(&e, w.Logistics.Throughput)
	encodeIntMap(&e, w.Logistics.Strain)
	return e.bytes()
}

func encodePopulation(w *state.World) []byte {
	var e enc
	e.u64(uint64(len(w.Population.Pops)))
	for _, id := range sortedKeys(w.Population.Pops) {
		p := w.Population.Pops[id]
		e.str(id)
		e.milli(p.Count)
		e.milli(p.Labor)
	}
	return e.bytes()
}

func encodePower(w *state.World) []byte {
	var e enc
	g := w.Power
	e.u64(uint64(len(g.Nodes)))
	for _, id := range g.NodeIDs() {
		n := g.Nodes[id]
		e.str(n.ID)
		e.str(n.Region)
		e.str(n.Owner)
		e.milli(n.BaseCapacity)
		e.i64(n.Efficiency)
		e.milli(n.Demand)
		e.i64(int64(n.Priority))
		e.milli(n.StorageCap)
		e.milli(n.StorageCharge)
		e.milli(n.ChargeClamp)
		e.milli(n.DischargeClamp)
		e.milli(n.Supply)
		e.milli(n.Served)
		e.i64(n.Stability)
	}
	edges := append([]state.PowerEdge(nil), g.Edges...)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	e.u64(uint64(len(edges)))
	for _, ed := range edges {
		e.str(ed.From)
		e.str(ed.To)
		e.milli(ed.Capacity)
		e.i64(ed.LossPermille)
	}
	e.u64(uint64(len(g.Incidents)))
	for _, in := range g.Incidents {
		e.u64(in.Tick)
		e.str(in.NodeID)
		e.str(in.Kind)
		e.str(in.Severity)
		e.i64(in.Stability)
	}
	return e.bytes()
}

func encodeCrisis(w *state.World) []byte {
	var e enc
	encodeMilliMap(&e, w.Crisis.Tension)
	encodeIntMap(&e, w.Crisis.Level)
	return e.bytes()
}

func encodeCulture(w *state.World) []byte {
	var e enc
	encodeMilliMap(&e, w.Culture.Influence)
	encodeIntMap(&e, w.Culture.Openness)
	return e.bytes()
}

func encodeKnowledge(w *state.World) []byte {
	var e enc
	e.u64(uint64(len(w.Knowledge.Research)))
	for _, id := range sortedKeys(w.Knowledge.Research) {
		r := w.Knowledge.Research[id]
		e.str(id)
		e.str(r.Current)
		e.milli(r.Progress)
		e.u64(uint64(len(r.Unlocked)))
		for _, t := range r.Unlocked {
			e.str(t)
		}
	}
	return e.bytes()
}

func encodeScores(w *state.World) []byte {
	var e enc
	encodeMilliMap(&e, w.Scores.Points)
	e.str(w.Scores.Victor)
	return e.bytes()
}

func encodeEvents(events []state.Event) []byte {
	var e enc
	e.u64(uint64(len(events)))
	for _, ev := range events {
		e.str(ev.Kind)
		e.str(ev.Subsystem)
		e.str(ev.Entity)
		e.str(ev.Detail)
		e.str(ev.Severity)
		e.i64(ev.Value)
	}
	return e.bytes()
}
