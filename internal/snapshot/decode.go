package snapshot

import (
	"fmt"

	"hegemon.sim/internal/sim/state"
)

// DecodeWorld rebuilds a world from a complete section set, as produced by
// EncodeSections or reconstructed from a full snapshot plus deltas. The
// returned events are the tick-scoped queue embedded at capture time.
func DecodeWorld(sections map[uint8][]byte) (*state.World, []state.Event, error) {
	need := []uint8{
		SectionMeta, SectionFactions, SectionTerrain, SectionMaterials,
		SectionLogistics, SectionPopulation, SectionPower, SectionCrisis,
		SectionCulture, SectionKnowledge, SectionScores, SectionEvents,
	}
	for _, id := range need {
		if _, ok := sections[id]; !ok {
			return nil, nil, fmt.Errorf("section %d missing from snapshot", id)
		}
	}

	w := &state.World{
		Factions:   map[string]*state.Faction{},
		Terrain:    &state.Terrain{Regions: map[string]*state.Region{}},
		Materials:  &state.Materials{Stock: map[string]*state.Stockpile{}},
		Logistics:  &state.Logistics{},
		Population: &state.Population{Pops: map[string]*state.PopState{}},
		Power:      &state.PowerGrid{Nodes: map[string]*state.PowerNode{}},
		Crisis:     &state.Crisis{},
		Culture:    &state.Culture{},
		Knowledge:  &state.Knowledge{Research: map[string]*state.Research{}},
		Scores:     &state.Scores{},
	}

	if err := decodeMeta(sections[SectionMeta], w); err != nil {
		return nil, nil, fmt.Errorf("meta: %w", err)
	}
	if err := decodeFactions(sections[SectionFactions], w); err != nil {
		return nil, nil, fmt.Errorf("factions: %w", err)
	}
	if err := decodeTerrain(sections[SectionTerrain], w); err != nil {
		return nil, nil, fmt.Errorf("terrain: %w", err)
	}
	if err := decodeMaterials(sections[SectionMaterials], w); err != nil {
		return nil, nil, fmt.Errorf("materials: %w", err)
	}
	if err := decodeLogistics(sections[SectionLogistics], w); err != nil {
		return nil, nil, fmt.Errorf("logistics: %w", err)
	}
	if err := decodePopulation(sections[SectionPopulation], w); err != nil {
		return nil, nil, fmt.Errorf("population: %w", err)
	}
	if err := decodePower(sections[SectionPower], w); err != nil {
		return nil, nil, fmt.Errorf("power: %w", err)
	}
	if err := decodeCrisis(sections[SectionCrisis], w); err != nil {
		return nil, nil, fmt.Errorf("crisis: %w", err)
	}
	if err := decodeCulture(sections[SectionCulture], w); err != nil {
		return nil, nil, fmt.Errorf("culture: %w", err)
	}
	if err := decodeKnowledge(sections[SectionKnowledge], w); err != nil {
		return nil, nil, fmt.Errorf("knowledge: %w", err)
	}
	if err := decodeScores(sections[SectionScores], w); err != nil {
		return nil, nil, fmt.Errorf("scores: %w", err)
	}
	events, err := decodeEvents(sections[SectionEvents])
	if err != nil {
		return nil, nil, fmt.Errorf("events: %w", err)
	}
	return w, events, nil
}

func decodeMeta(b []byte, w *state.World) error {
	d := dec{b: b}
	var err error
	if w.Tick, err = d.u64(); err != nil {
		return err
	}
	if w.Seed, err = d.i64(); err != nil {
		return err
	}
	return nil
}

func decodeFactions(b []byte, w *state.World) error {
	d := dec{b: b}
	n, err := d.u64()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		f := &state.Faction{Capabilities: map[string]bool{}}
		if f.ID, err = d.str(); err != nil {
			return err
		}
		if f.Name, err = d.str(); err != nil {
			return err
		}
		nc, err := d.u64()
		if err != nil {
			return err
		}
		for j := uint64(0); j < nc; j++ {
			c, err := d.str()
			if err != nil {
				return err
			}
			f.Capabilities[c] = true
		}
		w.Factions[f.ID] = f
	}
	return nil
}

func decodeTerrain(b []byte, w *state.World) error {
	d := dec{b: b}
	n, err := d.u64()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		r := &state.Region{}
		if r.ID, err = d.str(); err != nil {
			return err
		}
		if r.Owner, err = d.str(); err != nil {
			return err
		}
		if r.FoodYield, err = d.milli(); err != nil {
			return err
		}
		if r.OreYield, err = d.milli(); err != nil {
			return err
		}
		if r.FuelYield, err = d.milli(); err != nil {
			return err
		}
		if r.LogisticsCap, err = d.milli(); err != nil {
			return err
		}
		w.Terrain.Regions[r.ID] = r
	}
	return nil
}

func decodeMaterials(b []byte, w *state.World) error {
	d := dec{b: b}
	n, err := d.u64()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		id, err := d.str()
		if err != nil {
			return err
		}
		s := &state.Stockpile{}
		if s.Food, err = d.milli(); err != nil {
			return err
		}
		if s.Ore, err = d.milli(); err != nil {
			return err
		}
		if s.Fuel, err = d.milli(); err != nil {
			return err
		}
		w.Materials.Stock[id] = s
	}
	return nil
}

func decodeMilliMap(d *dec) (map[string]state.Milli, error) {
	n, err := d.u64()
	if err != nil {
		return nil, err
	}
	m := make(map[string]state.Milli, n)
	for i := uint64(0); i < n; i++ {
		k, err := d.str()
		if err != nil {
			return nil, err
		}
		v, err := d.milli()
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

func decodeIntMap(d *dec) (map[string]int64, error) {
	n, err := d.u64()
	if err != nil {
		return nil, err
	}
	m := make(map[string]int64, n)
	for i := uint64(0); i < n; i++ {
		k, err := d.str()
		if err != nil {
			return nil, err
		}
		v, err := d.i64()
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

func decodeLogistics(b []byte, w *state.World) error {
	d := dec{b: b}
	var err error
	if w.Logistics.Throughput, err = decodeMilliMap(&d); err != nil {
		return err
	}
	if w.Logistics.Strain, err = decodeIntMap(&d); err != nil {
		return err
	}
	return nil
}

func decodePopulation(b []byte, w *state.World) error {
	d := dec{b: b}
	n, err := d.u64()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		id, err := d.str()
		if err != nil {
			return err
		}
		p := &state.PopState{}
		if p.Count, err = d.milli(); err != nil {
			return err
		}
		if p.Labor, err = d.milli(); err != nil {
			return err
		}
		w.Population.Pops[id] = p
	}
	return nil
}

func decodePower(b []byte, w *state.World) error {
	d := dec{b: b}
	n, err := d.u64()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		node := &state.PowerNode{}
		if node.ID, err = d.str(); err != nil {
			return err
		}
		if node.Region, err = d.str(); err != nil {
			return err
		}
		if node.Owner, err = d.str(); err != nil {
			return err
		}
		if node.BaseCapacity, err = d.milli(); err != nil {
			return err
		}
		if node.Efficiency, err = d.i64(); err != nil {
			return err
		}
		if node.Demand, err = d.milli(); err != nil {
			return err
		}
		pr, err := d.i64()
		if err != nil {
			return err
		}
		node.Priority = int(pr)
		if node.StorageCap, err = d.milli(); err != nil {
			return err
		}
		if node.StorageCharge, err = d.milli(); err != nil {
			return err
		}
		if node.ChargeClamp, err = d.milli(); err != nil {
			return err
		}
		if node.DischargeClamp, err = d.milli(); err != nil {
			return err
		}
		if node.Supply, err = d.milli(); err != nil {
			return err
		}
		if node.Served, err = d.milli(); err != nil {
			return err
		}
		if node.Stability, err = d.i64(); err != nil {
			return err
		}
		w.Power.Nodes[node.ID] = node
	}
	ne, err := d.u64()
	if err != nil {
		return err
	}
	for i := uint64(0); i < ne; i++ {
		var ed state.PowerEdge
		if ed.From, err = d.str(); err != nil {
			return err
		}
		if ed.To, err = d.str(); err != nil {
			return err
		}
		if ed.Capacity, err = d.milli(); err != nil {
			return err
		}
		if ed.LossPermille, err = d.i64(); err != nil {
			return err
		}
		w.Power.Edges = append(w.Power.Edges, ed)
	}
	ni, err := d.u64()
	if err != nil {
		return err
	}
	for i := uint64(0); i < ni; i++ {
		var in state.Incident
		if in.Tick, err = d.u64(); err != nil {
			return err
		}
		if in.NodeID, err = d.str(); err != nil {
			return err
		}
		if in.Kind, err = d.str(); err != nil {
			return err
		}
		if in.Severity, err = d.str(); err != nil {
			return err
		}
		if in.Stability, err = d.i64(); err != nil {
			return err
		}
		w.Power.Incidents = append(w.Power.Incidents, in)
	}
	return nil
}

func decodeCrisis(b []byte, w *state.World) error {
	d := dec{b: b}
	var err error
	if w.Crisis.Tension, err = decodeMilliMap(&d); err != nil {
		return err
	}
	if w.Crisis.Level, err = decodeIntMap(&d); err != nil {
		return err
	}
	return nil
}

func decodeCulture(b []byte, w *state.World) error {
	d := dec{b: b}
	var err error
	if w.Culture.Influence, err = decodeMilliMap(&d); err != nil {
		return err
	}
	if w.Culture.Openness, err = decodeIntMap(&d); err != nil {
		return err
	}
	return nil
}

func decodeKnowledge(b []byte, w *state.World) error {
	d := dec{b: b}
	n, err := d.u64()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		id, err := d.str()
		if err != nil {
			return err
		}
		r := &state.Research{}
		if r.Current, err = d.str(); err != nil {
			return err
		}
		if r.Progress, err = d.milli(); err != nil {
			return err
		}
		nu, err := d.u64()
		if err != nil {
			return err
		}
		for j := uint64(0); j < nu; j++ {
			t, err := d.str()
			if err != nil {
				return err
			}
			r.Unlocked = append(r.Unlocked, t)
		}
		w.Knowledge.Research[id] = r
	}
	return nil
}

func decodeScores(b []byte, w *state.World) error {
	d := dec{b: b}
	var err error
	if w.Scores.Points, err = decodeMilliMap(&d); err != nil {
		return err
	}
	if w.Scores.Victor, err = d.str(); err != nil {
		return err
	}
	return nil
}

func decodeEvents(b []byte) ([]state.Event, error) {
	d := dec{b: b}
	n, err := d.u64()
	if err != nil {
		return nil, err
	}
	events := make([]state.Event, 0, n)
	for i := uint64(0); i < n; i++ {
		var ev state.Event
		if ev.Kind, err = d.str(); err != nil {
			return nil, err
		}
		if ev.Subsystem, err = d.str(); err != nil {
			return nil, err
		}
		if ev.Entity, err = d.str(); err != nil {
			return nil, err
		}
		if ev.Detail, err = d.str(); err != nil {
			return nil, err
		}
		if ev.Severity, err = d.str(); err != nil {
			return nil, err
		}
		if ev.Value, err = d.i64(); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}
