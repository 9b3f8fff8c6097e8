package worldgen

import (
	"testing"

	"hegemon.sim/internal/snapshot"
)

func TestGenerate_DeterministicPerSeed(t *testing.T) {
	a, err := Generate(DefaultConfig(1337))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := Generate(DefaultConfig(1337))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	ha := snapshot.HashSections(snapshot.EncodeSections(a, nil))
	hb := snapshot.HashSections(snapshot.EncodeSections(b, nil))
	if ha != hb {
		t.Fatalf("same seed produced different worlds: %s vs %s", ha, hb)
	}

	c, err := Generate(DefaultConfig(42))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	hc := snapshot.HashSections(snapshot.EncodeSections(c, nil))
	if ha == hc {
		t.Fatal("different seeds produced identical worlds")
	}
}

func TestGenerate_LayoutInvariants(t *testing.T) {
	cfg := Config{Seed: 5, Regions: 6, Factions: []string{"a", "b"}}
	w, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if w.Tick != 0 || w.Seed != 5 {
		t.Fatalf("meta: tick=%d seed=%d", w.Tick, w.Seed)
	}
	if len(w.Terrain.Regions) != 6 {
		t.Fatalf("regions = %d, want 6", len(w.Terrain.Regions))
	}
	if len(w.Power.Nodes) != 6 {
		t.Fatalf("nodes = %d, want one per region", len(w.Power.Nodes))
	}
	if len(w.Power.Edges) != 6 {
		t.Fatalf("edges = %d, want a closed ring", len(w.Power.Edges))
	}

	for _, rid := range w.RegionIDs() {
		r := w.Terrain.Regions[rid]
		if r.Owner != "a" && r.Owner != "b" {
			t.Fatalf("region %s has unknown owner %q", rid, r.Owner)
		}
		if r.FoodYield < 0 || r.FuelYield < 0 || r.OreYield < 0 {
			t.Fatalf("region %s has negative yields", rid)
		}
	}
	for _, fid := range []string{"a", "b"} {
		if w.Materials.Stock[fid] == nil || w.Population.Pops[fid] == nil || w.Knowledge.Research[fid] == nil {
			t.Fatalf("faction %s missing a partition record", fid)
		}
	}
	for _, nid := range w.Power.NodeIDs() {
		n := w.Power.Nodes[nid]
		if n.BaseCapacity <= 0 || n.Demand <= 0 {
			t.Fatalf("node %s has non-positive capacity or demand", nid)
		}
		if w.Terrain.Regions[n.Region] == nil {
			t.Fatalf("node %s references unknown region %s", nid, n.Region)
		}
	}
}

func TestGenerate_RejectsBadConfig(t *testing.T) {
	if _, err := Generate(Config{Seed: 1, Regions: 0, Factions: []string{"a"}}); err == nil {
		t.Fatal("zero regions accepted")
	}
	if _, err := Generate(Config{Seed: 1, Regions: 3}); err == nil {
		t.Fatal("no factions accepted")
	}
}

func TestGenerate_SingleRegionHasNoEdges(t *testing.T) {
	w, err := Generate(Config{Seed: 1, Regions: 1, Factions: []string{"a"}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(w.Power.Edges) != 0 {
		t.Fatalf("edges = %d, want none for a single region", len(w.Power.Edges))
	}
}
