package mathx

import "testing"

func TestRoll_StablePerTriple(t *testing.T) {
	a := Roll(10, "n1", "power.incident_kind")
	b := Roll(10, "n1", "power.incident_kind")
	if a != b {
		t.Fatalf("same triple rolled differently: %d vs %d", a, b)
	}
	if Roll(10, "n1", "power.incident_kind") == Roll(11, "n1", "power.incident_kind") {
		t.Fatal("tick should change the roll")
	}
	if Roll(10, "n1", "power.incident_kind") == Roll(10, "n2", "power.incident_kind") {
		t.Fatal("entity should change the roll")
	}
	if Roll(10, "n1", "a") == Roll(10, "n1", "b") {
		t.Fatal("purpose should change the roll")
	}
}

func TestPick_Bounds(t *testing.T) {
	for roll := uint64(0); roll < 1000; roll++ {
		if got := Pick(mix64(roll), 3); got < 0 || got > 2 {
			t.Fatalf("Pick out of range: %d", got)
		}
	}
	if Pick(123, 0) != 0 {
		t.Fatal("Pick with n=0 should return 0")
	}
}
