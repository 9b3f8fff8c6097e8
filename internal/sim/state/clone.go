package state

// Clone deep-copies the world. The scheduler resolves every turn against a
// clone and swaps it in only after all phases commit, so an aborted turn
// leaves the prior committed state untouched.
func (w *World) Clone() *World {
	out := &World{
		Tick:       w.Tick,
		Seed:       w.Seed,
		Factions:   make(map[string]*Faction, len(w.Factions)),
		Terrain:    &Terrain{Regions: make(map[string]*Region, len(w.Terrain.Regions))},
		Materials:  &Materials{Stock: make(map[string]*Stockpile, len(w.Materials.Stock))},
		Logistics:  &Logistics{Throughput: copyMilliMap(w.Logistics.Throughput), Strain: copyIntMap(w.Logistics.Strain)},
		Population: &Population{Pops: make(map[string]*PopState, len(w.Population.Pops))},
		Power:      w.Power.clone(),
		Crisis:     &Crisis{Tension: copyMilliMap(w.Crisis.Tension), Level: copyIntMap(w.Crisis.Level)},
		Culture:    &Culture{Influence: copyMilliMap(w.Culture.Influence), Openness: copyIntMap(w.Culture.Openness)},
		Knowledge:  &Knowledge{Research: make(map[string]*Research, len(w.Knowledge.Research))},
		Scores:     &Scores{Points: copyMilliMap(w.Scores.Points), Victor: w.Scores.Victor},
	}
	for id, f := range w.Factions {
		caps := make(map[string]bool, len(f.Capabilities))
		for k, v := range f.Capabilities {
			caps[k] = v
		}
		out.Factions[id] = &Faction{ID: f.ID, Name: f.Name, Capabilities: caps}
	}
	for id, r := range w.Terrain.Regions {
		cp := *r
		out.Terrain.Regions[id] = &cp
	}
	for id, s := range w.Materials.Stock {
		cp := *s
		out.Materials.Stock[id] = &cp
	}
	for id, p := range w.Population.Pops {
		cp := *p
		out.Population.Pops[id] = &cp
	}
	for id, r := range w.Knowledge.Research {
		cp := &Research{Current: r.Current, Progress: r.Progress}
		cp.Unlocked = append(cp.Unlocked, r.Unlocked...)
		out.Knowledge.Research[id] = cp
	}
	return out
}

func (g *PowerGrid) clone() *PowerGrid {
	out := &PowerGrid{
		Nodes: make(map[string]*PowerNode, len(g.Nodes)),
		Edges: append([]PowerEdge(nil), g.Edges...),
	}
	for id, n := range g.Nodes {
		cp := *n
		out.Nodes[id] = &cp
	}
	out.Incidents = append([]Incident(nil), g.Incidents...)
	return out
}

func copyMilliMap(m map[string]Milli) map[string]Milli {
	out := make(map[string]Milli, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyIntMap(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
