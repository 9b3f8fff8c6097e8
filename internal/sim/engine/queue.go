package engine

import (
	"sort"

	"hegemon.sim/internal/protocol"
	"hegemon.sim/internal/sim/state"
)

// TurnQueue accumulates at most one order-set per faction for the open
// turn, plus a staging slot for the following turn so submission stays
// concurrent with resolution. All access happens on the engine loop
// goroutine.
type TurnQueue struct {
	tick     uint64 // the turn currently accepting orders
	expected []string
	open     map[string]*state.Order
	staged   map[string]*state.Order
	closed   bool
}

func NewTurnQueue(expected []string, tick uint64) *TurnQueue {
	exp := append([]string(nil), expected...)
	sort.Strings(exp)
	return &TurnQueue{
		tick:     tick,
		expected: exp,
		open:     map[string]*state.Order{},
		staged:   map[string]*state.Order{},
	}
}

func (q *TurnQueue) Tick() uint64 { return q.tick }

// Submit accepts an order for the open turn or stages one for the next.
// The first accepted order per faction wins; a duplicate is rejected and
// leaves the original untouched.
func (q *TurnQueue) Submit(o *state.Order) *Rejection {
	switch o.Tick {
	case q.tick:
		if q.closed {
			return reject(protocol.ErrOrderLate, "turn %d already closed", o.Tick)
		}
		if _, dup := q.open[o.FactionID]; dup {
			return reject(protocol.ErrOrderDuplicate, "faction %s already submitted for turn %d", o.FactionID, o.Tick)
		}
		q.open[o.FactionID] = o
	case q.tick + 1:
		if _, dup := q.staged[o.FactionID]; dup {
			return reject(protocol.ErrOrderDuplicate, "faction %s already staged for turn %d", o.FactionID, o.Tick)
		}
		q.staged[o.FactionID] = o
	default:
		return reject(protocol.ErrOrderLate, "turn %d is not accepting orders (open turn %d)", o.Tick, q.tick)
	}
	return nil
}

// Cancel withdraws a pending order. Orders are cancellable only while
// their turn has not closed.
func (q *TurnQueue) Cancel(factionID string, tick uint64) bool {
	switch tick {
	case q.tick:
		if q.closed {
			return false
		}
		if _, ok := q.open[factionID]; ok {
			delete(q.open, factionID)
			return true
		}
	case q.tick + 1:
		if _, ok := q.staged[factionID]; ok {
			delete(q.staged, factionID)
			return true
		}
	}
	return false
}

// Quorum reports whether every expected faction has submitted.
func (q *TurnQueue) Quorum() bool {
	return len(q.open) >= len(q.expected)
}

// Close seals the open turn and hands its order-set to the scheduler.
// Closing is irreversible for this tick.
func (q *TurnQueue) Close() state.OrderSet {
	q.closed = true
	set := make(state.OrderSet, len(q.open))
	for id, o := range q.open {
		set[id] = o
	}
	return set
}

// Advance opens the next turn, promoting staged orders whose tick matches.
func (q *TurnQueue) Advance() {
	q.tick++
	q.open = q.staged
	q.staged = map[string]*state.Order{}
	q.closed = false
}

// Reopen clears the consumed order-set and reopens the same turn after an
// aborted resolution. Staged orders for the following turn are kept.
func (q *TurnQueue) Reopen() {
	q.open = map[string]*state.Order{}
	q.closed = false
}

// ResetTo discards everything and reopens at the given turn, used after a
// rollback.
func (q *TurnQueue) ResetTo(tick uint64) {
	q.tick = tick
	q.open = map[string]*state.Order{}
	q.staged = map[string]*state.Order{}
	q.closed = false
}

func (q *TurnQueue) OpenCount() int   { return len(q.open) }
func (q *TurnQueue) StagedCount() int { return len(q.staged) }
