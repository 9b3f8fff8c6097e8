package state

import "sort"

// World is the full simulation state for one committed tick. It is owned
// exclusively by the phase scheduler while a turn resolves; once captured
// into a snapshot it must be treated as read-only. Phases receive it by
// reference and may write only to their own partition plus the cross
// partition outputs declared in their doc comments.
type World struct {
	Tick uint64
	Seed int64

	Factions map[string]*Faction

	Terrain    *Terrain
	Materials  *Materials
	Logistics  *Logistics
	Population *Population
	Power      *PowerGrid
	Crisis     *Crisis
	Culture    *Culture
	Knowledge  *Knowledge
	Scores     *Scores
}

type Faction struct {
	ID           string
	Name         string
	Capabilities map[string]bool
}

// Terrain is the static overlay produced by world generation. It is hashed
// and serialized like every other partition but no phase writes to it.
type Terrain struct {
	Regions map[string]*Region
}

type Region struct {
	ID           string
	Owner        string
	FoodYield    Milli
	OreYield     Milli
	FuelYield    Milli
	LogisticsCap Milli
}

type Materials struct {
	Stock map[string]*Stockpile // by faction
}

type Stockpile struct {
	Food Milli
	Ore  Milli
	Fuel Milli
}

type Logistics struct {
	// Throughput is the per-region delivered fuel flow for this tick.
	// It is a declared phase output consumed by the power phase.
	Throughput map[string]Milli
	Strain     map[string]int64 // permille, by region
}

type Population struct {
	Pops map[string]*PopState // by faction
}

type PopState struct {
	Count Milli
	Labor Milli
}

type PowerGrid struct {
	Nodes     map[string]*PowerNode
	Edges     []PowerEdge
	Incidents []Incident // this tick's incident records, rebuilt every power phase
}

type PowerNode struct {
	ID     string
	Region string
	Owner  string

	BaseCapacity Milli
	Efficiency   int64 // permille
	Demand       Milli
	Priority     int // lower is served first

	StorageCap    Milli
	StorageCharge Milli
	ChargeClamp   Milli
	DischargeClamp Milli

	// Resolved per tick.
	Supply    Milli
	Served    Milli
	Stability int64 // permille in [0, 1000]
}

type PowerEdge struct {
	From         string
	To           string
	Capacity     Milli
	LossPermille int64
}

type Incident struct {
	Tick      uint64
	NodeID    string
	Kind      string
	Severity  string
	Stability int64 // permille at emission
}

type Crisis struct {
	Tension map[string]Milli // by region
	Level   map[string]int64 // by region, 0 = calm
}

type Culture struct {
	Influence map[string]Milli // by faction
	Openness  map[string]int64 // permille, by faction
}

type Knowledge struct {
	Research map[string]*Research // by faction
}

type Research struct {
	Current  string
	Progress Milli
	Unlocked []string // sorted, append via Unlock
}

func (r *Research) Unlock(tech string) {
	for _, t := range r.Unlocked {
		if t == tech {
			return
		}
	}
	r.Unlocked = append(r.Unlocked, tech)
	sort.Strings(r.Unlocked)
}

func (r *Research) Has(tech string) bool {
	for _, t := range r.Unlocked {
		if t == tech {
			return true
		}
	}
	return false
}

type Scores struct {
	Points map[string]Milli // by faction
	Victor string
}

// FactionIDs returns faction ids in stable ascending order. Every phase
// iterates factions through this to keep resolution order deterministic.
func (w *World) FactionIDs() []string {
	ids := make([]string, 0, len(w.Factions))
	for id := range w.Factions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RegionIDs returns region ids in stable ascending order.
func (w *World) RegionIDs() []string {
	ids := make([]string, 0, len(w.Terrain.Regions))
	for id := range w.Terrain.Regions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NodeIDs returns power node ids in stable ascending order.
func (g *PowerGrid) NodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
