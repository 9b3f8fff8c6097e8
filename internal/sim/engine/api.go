package engine

import (
	"errors"

	"hegemon.sim/internal/protocol"
)

// ErrStopped reports that the engine loop is no longer accepting requests.
var ErrStopped = errors.New("engine stopped")

// SubmitOrder hands an order envelope to the engine loop and waits for the
// verdict. Safe for concurrent use. The request channels are buffered, so a
// send can land after the loop has exited; every wait on a reply therefore
// also watches the stop channel.
func (e *Engine) SubmitOrder(msg *protocol.OrderMsg) *Rejection {
	resp := make(chan *Rejection, 1)
	select {
	case e.submit <- submitReq{msg: msg, resp: resp}:
		select {
		case r := <-resp:
			return r
		case <-e.stop:
			return reject(protocol.ErrBusy, "engine stopped")
		}
	case <-e.stop:
		return reject(protocol.ErrBusy, "engine stopped")
	}
}

// CancelOrder withdraws a pending order for an open or staged turn.
func (e *Engine) CancelOrder(factionID string, tick uint64) bool {
	resp := make(chan bool, 1)
	select {
	case e.cancel <- cancelReq{factionID: factionID, tick: tick, resp: resp}:
		select {
		case ok := <-resp:
			return ok
		case <-e.stop:
			return false
		}
	case <-e.stop:
		return false
	}
}

// Rollback restores the world to the given tick. It waits for the current
// turn to drain: the request is served on the loop goroutine between
// resolutions, never concurrently with one.
func (e *Engine) Rollback(tick uint64) error {
	resp := make(chan error, 1)
	select {
	case e.rollback <- rollbackReq{tick: tick, resp: resp}:
		select {
		case err := <-resp:
			return err
		case <-e.stop:
			return ErrStopped
		}
	case <-e.stop:
		return ErrStopped
	}
}

// ReloadConfig validates the tuning file now and stages it for an atomic
// swap at the next turn boundary.
func (e *Engine) ReloadConfig(path string) error {
	resp := make(chan error, 1)
	select {
	case e.reload <- reloadReq{path: path, resp: resp}:
		select {
		case err := <-resp:
			return err
		case <-e.stop:
			return ErrStopped
		}
	case <-e.stop:
		return ErrStopped
	}
}

// Status reports a consistent view of the engine taken between turns.
func (e *Engine) Status() Status {
	resp := make(chan Status, 1)
	select {
	case e.status <- resp:
		select {
		case st := <-resp:
			return st
		case <-e.stop:
			return Status{}
		}
	case <-e.stop:
		return Status{}
	}
}

type Status struct {
	Tick         uint64 `json:"tick"`
	OpenTurn     uint64 `json:"open_turn"`
	OpenOrders   int    `json:"open_orders"`
	StagedOrders int    `json:"staged_orders"`
	HistoryLen   int    `json:"history_len"`
	OldestTick   uint64 `json:"oldest_tick"`
	LatestHash   string `json:"latest_hash"`
	LastTurnMs   int64  `json:"last_turn_ms"`
	Victor       string `json:"victor,omitempty"`
}

func (e *Engine) currentStatus() Status {
	st := Status{
		Tick:         e.world.Tick,
		OpenTurn:     e.queue.Tick(),
		OpenOrders:   e.queue.OpenCount(),
		StagedOrders: e.queue.StagedCount(),
		HistoryLen:   e.history.Len(),
		LastTurnMs:   e.lastTurn.Milliseconds(),
		Victor:       e.world.Scores.Victor,
	}
	if t, ok := e.history.OldestTick(); ok {
		st.OldestTick = t
	}
	if t, ok := e.history.LatestTick(); ok {
		if entry, ok2 := e.history.EntryAt(t); ok2 {
			st.LatestHash = entry.Hash
		}
	}
	return st
}
