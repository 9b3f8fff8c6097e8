package state

import "testing"

func testWorld() *World {
	return &World{
		Tick: 7,
		Seed: 42,
		Factions: map[string]*Faction{
			"a": {ID: "a", Name: "a", Capabilities: map[string]bool{"grid_control": true}},
		},
		Terrain: &Terrain{Regions: map[string]*Region{
			"r1": {ID: "r1", Owner: "a", FoodYield: 1000, OreYield: 500, FuelYield: 700, LogisticsCap: 4000},
		}},
		Materials: &Materials{Stock: map[string]*Stockpile{
			"a": {Food: 10_000, Ore: 5_000, Fuel: 8_000},
		}},
		Logistics:  &Logistics{Throughput: map[string]Milli{"r1": 300}, Strain: map[string]int64{"r1": 0}},
		Population: &Population{Pops: map[string]*PopState{"a": {Count: 100_000, Labor: 60_000}}},
		Power: &PowerGrid{
			Nodes: map[string]*PowerNode{
				"n1": {ID: "n1", Region: "r1", Owner: "a", BaseCapacity: 100_000, Demand: 80_000, Priority: 1, StorageCap: 20_000, StorageCharge: 5_000},
			},
			Edges: []PowerEdge{{From: "n1", To: "n1", Capacity: 1000, LossPermille: 50}},
		},
		Crisis:    &Crisis{Tension: map[string]Milli{"r1": 100}, Level: map[string]int64{"r1": 1}},
		Culture:   &Culture{Influence: map[string]Milli{"a": 2000}, Openness: map[string]int64{"a": 500}},
		Knowledge: &Knowledge{Research: map[string]*Research{"a": {Current: "grid_control", Progress: 2_500, Unlocked: []string{"logistics_corps"}}}},
		Scores:    &Scores{Points: map[string]Milli{"a": 9000}},
	}
}

func TestClone_IsDeep(t *testing.T) {
	w := testWorld()
	c := w.Clone()

	c.Factions["a"].Capabilities["grid_control"] = false
	c.Terrain.Regions["r1"].FoodYield = 0
	c.Materials.Stock["a"].Fuel = 0
	c.Logistics.Throughput["r1"] = 999
	c.Population.Pops["a"].Count = 1
	c.Power.Nodes["n1"].StorageCharge = 0
	c.Power.Edges[0].Capacity = 0
	c.Crisis.Level["r1"] = 3
	c.Culture.Influence["a"] = 0
	c.Knowledge.Research["a"].Unlocked[0] = "x"
	c.Scores.Points["a"] = 0
	c.Tick = 99

	if !w.Factions["a"].Capabilities["grid_control"] {
		t.Fatal("faction capabilities shared with clone")
	}
	if w.Terrain.Regions["r1"].FoodYield != 1000 {
		t.Fatal("terrain shared with clone")
	}
	if w.Materials.Stock["a"].Fuel != 8_000 {
		t.Fatal("stockpile shared with clone")
	}
	if w.Logistics.Throughput["r1"] != 300 {
		t.Fatal("throughput shared with clone")
	}
	if w.Population.Pops["a"].Count != 100_000 {
		t.Fatal("population shared with clone")
	}
	if w.Power.Nodes["n1"].StorageCharge != 5_000 {
		t.Fatal("power node shared with clone")
	}
	if w.Power.Edges[0].Capacity != 1000 {
		t.Fatal("edge slice shared with clone")
	}
	if w.Crisis.Level["r1"] != 1 {
		t.Fatal("crisis shared with clone")
	}
	if w.Knowledge.Research["a"].Unlocked[0] != "logistics_corps" {
		t.Fatal("research unlocks shared with clone")
	}
	if w.Tick != 7 {
		t.Fatal("tick shared with clone")
	}
}

func TestResearch_UnlockDedupesAndSorts(t *testing.T) {
	r := &Research{}
	r.Unlock("b")
	r.Unlock("a")
	r.Unlock("b")
	if len(r.Unlocked) != 2 || r.Unlocked[0] != "a" || r.Unlocked[1] != "b" {
		t.Fatalf("Unlocked = %v, want [a b]", r.Unlocked)
	}
	if !r.Has("a") || r.Has("c") {
		t.Fatal("Has gave wrong answer")
	}
}
