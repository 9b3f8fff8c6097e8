// Package worldgen synthesizes the initial world from a seed. Generation
// runs once before the engine starts; it is the only place float math is
// allowed, and every derived value is quantized to Milli before it enters
// the world. The same (seed, config) pair always produces the same world.
package worldgen

import (
	"fmt"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"hegemon.sim/internal/sim/state"
)

// Config holds world generation parameters.
type Config struct {
	Seed     int64
	Regions  int
	Factions []string // faction ids, ascending; owners are assigned round-robin
}

// DefaultConfig returns a small playable layout.
func DefaultConfig(seed int64) Config {
	return Config{
		Seed:     seed,
		Regions:  8,
		Factions: []string{"aurora", "boreal", "cinder"},
	}
}

// Generate builds the tick-0 world.
func Generate(cfg Config) (*state.World, error) {
	if cfg.Regions < 1 {
		return nil, fmt.Errorf("worldgen: need at least one region, got %d", cfg.Regions)
	}
	if len(cfg.Factions) == 0 {
		return nil, fmt.Errorf("worldgen: need at least one faction")
	}

	// Independent noise layers, offset seeds the way terrain generators
	// usually do it.
	yieldNoise := opensimplex.NewNormalized(cfg.Seed)
	fuelNoise := opensimplex.NewNormalized(cfg.Seed + 1)
	gridNoise := opensimplex.NewNormalized(cfg.Seed + 2)

	w := &state.World{
		Tick: 0,
		Seed: cfg.Seed,

		Factions: make(map[string]*state.Faction, len(cfg.Factions)),

		Terrain:    &state.Terrain{Regions: make(map[string]*state.Region, cfg.Regions)},
		Materials:  &state.Materials{Stock: make(map[string]*state.Stockpile, len(cfg.Factions))},
		Logistics:  &state.Logistics{Throughput: map[string]state.Milli{}, Strain: map[string]int64{}},
		Population: &state.Population{Pops: make(map[string]*state.PopState, len(cfg.Factions))},
		Power:      &state.PowerGrid{Nodes: map[string]*state.PowerNode{}},
		Crisis:     &state.Crisis{Tension: map[string]state.Milli{}, Level: map[string]int64{}},
		Culture:    &state.Culture{Influence: map[string]state.Milli{}, Openness: map[string]int64{}},
		Knowledge:  &state.Knowledge{Research: make(map[string]*state.Research, len(cfg.Factions))},
		Scores:     &state.Scores{Points: map[string]state.Milli{}},
	}

	for _, fid := range cfg.Factions {
		w.Factions[fid] = &state.Faction{
			ID:           fid,
			Name:         fid,
			Capabilities: map[string]bool{},
		}
		w.Materials.Stock[fid] = &state.Stockpile{
			Food: 20 * state.One,
			Ore:  10 * state.One,
			Fuel: 15 * state.One,
		}
		w.Population.Pops[fid] = &state.PopState{
			Count: 100 * state.One,
			Labor: 60 * state.One,
		}
		w.Culture.Influence[fid] = 0
		w.Culture.Openness[fid] = 500
		w.Knowledge.Research[fid] = &state.Research{}
		w.Scores.Points[fid] = 0
	}

	for i := 0; i < cfg.Regions; i++ {
		rid := fmt.Sprintf("r%02d", i+1)
		owner := cfg.Factions[i%len(cfg.Factions)]
		x := float64(i) * 0.37

		food := sampleMilli(yieldNoise, x, 0.0, 400, 1600)
		ore := sampleMilli(yieldNoise, x, 7.3, 200, 1200)
		fuel := sampleMilli(fuelNoise, x, 0.0, 300, 1400)

		w.Terrain.Regions[rid] = &state.Region{
			ID:           rid,
			Owner:        owner,
			FoodYield:    food,
			OreYield:     ore,
			FuelYield:    fuel,
			LogisticsCap: sampleMilli(fuelNoise, x, 3.1, 2000, 8000),
		}
		w.Crisis.Tension[rid] = 0
		w.Crisis.Level[rid] = 0

		// One generator node per region; every third region also carries a
		// storage bank so charge dynamics show up from the start.
		nid := fmt.Sprintf("%s-gen", rid)
		node := &state.PowerNode{
			ID:           nid,
			Region:       rid,
			Owner:        owner,
			BaseCapacity: sampleMilli(gridNoise, x, 0.0, 60*1000, 140*1000),
			Efficiency:   1000,
			Demand:       sampleMilli(gridNoise, x, 5.9, 50*1000, 120*1000),
			Priority:     1 + i%3,
		}
		if i%3 == 0 {
			node.StorageCap = 40 * state.One
			node.StorageCharge = 10 * state.One
			node.ChargeClamp = 8 * state.One
			node.DischargeClamp = 8 * state.One
		}
		w.Power.Nodes[nid] = node
	}

	// Transmission ring: each region feeds the next, closing the loop when
	// there is more than one region.
	rids := w.RegionIDs()
	if len(rids) > 1 {
		for i, rid := range rids {
			next := rids[(i+1)%len(rids)]
			w.Power.Edges = append(w.Power.Edges, state.PowerEdge{
				From:         rid + "-gen",
				To:           next + "-gen",
				Capacity:     20 * state.One,
				LossPermille: 50,
			})
		}
	}

	return w, nil
}

// sampleMilli maps one noise sample into [lo, hi] and quantizes it.
func sampleMilli(n opensimplex.Noise, x, y float64, lo, hi int64) state.Milli {
	v := n.Eval2(x, y) // normalized to [0, 1]
	if math.IsNaN(v) {
		v = 0.5
	}
	return state.Milli(lo + int64(v*float64(hi-lo)))
}
