package engine

import (
	"testing"

	"hegemon.sim/internal/protocol"
	"hegemon.sim/internal/sim/state"
)

func TestTurnQueue_FirstOrderWins(t *testing.T) {
	q := NewTurnQueue([]string{"a", "b"}, 5)

	if rej := q.Submit(&state.Order{FactionID: "a", Tick: 5}); rej != nil {
		t.Fatalf("first submit rejected: %+v", rej)
	}
	rej := q.Submit(&state.Order{FactionID: "a", Tick: 5})
	if rej == nil || rej.Code != protocol.ErrOrderDuplicate {
		t.Fatalf("duplicate not rejected: %+v", rej)
	}
	if q.OpenCount() != 1 {
		t.Fatalf("OpenCount = %d, want 1", q.OpenCount())
	}
}

func TestTurnQueue_StagesNextTurn(t *testing.T) {
	q := NewTurnQueue([]string{"a", "b"}, 5)

	if rej := q.Submit(&state.Order{FactionID: "a", Tick: 6}); rej != nil {
		t.Fatalf("staging rejected: %+v", rej)
	}
	if q.StagedCount() != 1 || q.OpenCount() != 0 {
		t.Fatalf("counts open=%d staged=%d", q.OpenCount(), q.StagedCount())
	}

	rej := q.Submit(&state.Order{FactionID: "b", Tick: 9})
	if rej == nil || rej.Code != protocol.ErrOrderLate {
		t.Fatalf("far-future order accepted: %+v", rej)
	}
	rej = q.Submit(&state.Order{FactionID: "b", Tick: 4})
	if rej == nil || rej.Code != protocol.ErrOrderLate {
		t.Fatalf("past order accepted: %+v", rej)
	}

	q.Advance()
	if q.Tick() != 6 || q.OpenCount() != 1 {
		t.Fatalf("staged order not promoted: tick=%d open=%d", q.Tick(), q.OpenCount())
	}
}

func TestTurnQueue_QuorumAndClose(t *testing.T) {
	q := NewTurnQueue([]string{"a", "b"}, 1)
	q.Submit(&state.Order{FactionID: "a", Tick: 1})
	if q.Quorum() {
		t.Fatal("quorum with one of two factions")
	}
	q.Submit(&state.Order{FactionID: "b", Tick: 1})
	if !q.Quorum() {
		t.Fatal("no quorum with all factions in")
	}

	set := q.Close()
	if len(set) != 2 {
		t.Fatalf("closed set has %d orders", len(set))
	}
	rej := q.Submit(&state.Order{FactionID: "a", Tick: 1})
	if rej == nil || rej.Code != protocol.ErrOrderLate {
		t.Fatalf("submit after close: %+v", rej)
	}
}

func TestTurnQueue_CancelWindows(t *testing.T) {
	q := NewTurnQueue([]string{"a"}, 3)
	q.Submit(&state.Order{FactionID: "a", Tick: 3})
	q.Submit(&state.Order{FactionID: "a", Tick: 4})

	if !q.Cancel("a", 4) {
		t.Fatal("staged cancel failed")
	}
	if !q.Cancel("a", 3) {
		t.Fatal("open cancel failed")
	}
	if q.Cancel("a", 3) {
		t.Fatal("second cancel should find nothing")
	}

	q.Submit(&state.Order{FactionID: "a", Tick: 3})
	q.Close()
	if q.Cancel("a", 3) {
		t.Fatal("cancel after close should fail")
	}
}

func TestTurnQueue_ReopenKeepsStaged(t *testing.T) {
	q := NewTurnQueue([]string{"a", "b"}, 2)
	q.Submit(&state.Order{FactionID: "a", Tick: 2})
	q.Submit(&state.Order{FactionID: "b", Tick: 3})
	q.Close()

	q.Reopen()
	if q.Tick() != 2 || q.OpenCount() != 0 {
		t.Fatalf("reopen: tick=%d open=%d", q.Tick(), q.OpenCount())
	}
	if q.StagedCount() != 1 {
		t.Fatalf("staged orders lost on reopen: %d", q.StagedCount())
	}
	// The consumed order is gone; the faction may submit again.
	if rej := q.Submit(&state.Order{FactionID: "a", Tick: 2}); rej != nil {
		t.Fatalf("resubmit after reopen rejected: %+v", rej)
	}
}

func TestTurnQueue_ResetTo(t *testing.T) {
	q := NewTurnQueue([]string{"a"}, 7)
	q.Submit(&state.Order{FactionID: "a", Tick: 7})
	q.Submit(&state.Order{FactionID: "a", Tick: 8})

	q.ResetTo(3)
	if q.Tick() != 3 || q.OpenCount() != 0 || q.StagedCount() != 0 {
		t.Fatalf("reset: tick=%d open=%d staged=%d", q.Tick(), q.OpenCount(), q.StagedCount())
	}
	if rej := q.Submit(&state.Order{FactionID: "a", Tick: 3}); rej != nil {
		t.Fatalf("submit after reset rejected: %+v", rej)
	}
}
