package engine

import (
	"fmt"

	"hegemon.sim/internal/protocol"
)

// PhaseFailure reports an invariant violation inside a subsystem phase.
// It is fatal for the tick: the scheduler discards every mutation from the
// working copy and the world stays at the prior committed tick.
type PhaseFailure struct {
	Phase string
	Tick  uint64
	Err   error
}

func (e *PhaseFailure) Error() string {
	return fmt.Sprintf("phase %s failed at tick %d: %v", e.Phase, e.Tick, e.Err)
}

func (e *PhaseFailure) Unwrap() error { return e.Err }

// Rejection is the order-submission outcome reported back to the faction.
// Code is one of the protocol rejection codes; a nil *Rejection means the
// order was accepted.
type Rejection struct {
	Code   string
	Reason string
}

func reject(code, format string, args ...any) *Rejection {
	if !protocol.IsKnownCode(code) {
		code = protocol.ErrInternal
	}
	return &Rejection{Code: code, Reason: fmt.Sprintf(format, args...)}
}
