package snapshot

import (
	"errors"
	"fmt"

	"hegemon.sim/internal/sim/state"
)

// ErrRollbackOutOfRange reports a rollback target outside the retained,
// reconstructable history window. The request is rejected with no state
// change.
var ErrRollbackOutOfRange = errors.New("rollback tick out of retained range")

// History is the bounded ring of capture entries. Ticks are strictly
// increasing and gapless; once the ring is full the oldest entry is
// evicted, which silently shrinks the rollback window.
type History struct {
	entries []Entry
	cap     int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 256
	}
	return &History{cap: capacity}
}

func (h *History) Append(e Entry) error {
	if n := len(h.entries); n > 0 && e.Tick != h.entries[n-1].Tick+1 {
		return fmt.Errorf("history tick %d does not follow %d", e.Tick, h.entries[n-1].Tick)
	}
	h.entries = append(h.entries, e)
	if len(h.entries) > h.cap {
		h.entries = h.entries[len(h.entries)-h.cap:]
	}
	return nil
}

func (h *History) Len() int { return len(h.entries) }

func (h *History) OldestTick() (uint64, bool) {
	if len(h.entries) == 0 {
		return 0, false
	}
	return h.entries[0].Tick, true
}

func (h *History) LatestTick() (uint64, bool) {
	if len(h.entries) == 0 {
		return 0, false
	}
	return h.entries[len(h.entries)-1].Tick, true
}

// EntryAt returns the retained entry for a tick.
func (h *History) EntryAt(tick uint64) (Entry, bool) {
	idx, ok := h.index(tick)
	if !ok {
		return Entry{}, false
	}
	return h.entries[idx], true
}

func (h *History) index(tick uint64) (int, bool) {
	if len(h.entries) == 0 {
		return 0, false
	}
	oldest := h.entries[0].Tick
	if tick < oldest || tick > h.entries[len(h.entries)-1].Tick {
		return 0, false
	}
	return int(tick - oldest), true
}

// Reconstruct rebuilds the complete section set at a tick by overlaying
// retained delta sections onto the nearest full snapshot at or before it.
// A target with no reachable full snapshot is out of range even when the
// tick itself is retained.
func (h *History) Reconstruct(tick uint64) (map[uint8][]byte, error) {
	idx, ok := h.index(tick)
	if !ok {
		return nil, fmt.Errorf("tick %d: %w", tick, ErrRollbackOutOfRange)
	}
	base := -1
	for i := idx; i >= 0; i-- {
		if h.entries[i].Kind == KindFull {
			base = i
			break
		}
	}
	if base < 0 {
		return nil, fmt.Errorf("tick %d has no retained full snapshot: %w", tick, ErrRollbackOutOfRange)
	}

	sections := make(map[uint8][]byte)
	for i := base; i <= idx; i++ {
		for _, s := range h.entries[i].Sections {
			sections[s.ID] = s.Body
		}
	}
	return sections, nil
}

// Rollback restores the world at a tick and discards every entry after it.
// The caller must guarantee no resolution or capture is in flight.
func (h *History) Rollback(tick uint64) (*state.World, map[uint8][]byte, error) {
	sections, err := h.Reconstruct(tick)
	if err != nil {
		return nil, nil, err
	}
	w, _, err := DecodeWorld(sections)
	if err != nil {
		return nil, nil, fmt.Errorf("restore tick %d: %w", tick, err)
	}
	idx, _ := h.index(tick)
	h.entries = h.entries[:idx+1]
	return w, sections, nil
}
