package snapshot

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

type Kind uint8

const (
	KindFull Kind = 1
	KindDelta Kind = 2
)

func (k Kind) String() string {
	if k == KindFull {
		return "full"
	}
	return "delta"
}

// Entry is one immutable history record: the capture of a committed tick.
// Delta entries carry only the sections whose bytes changed; Hash always
// covers the complete canonical state so independent runs can be compared
// tick by tick regardless of capture kind.
type Entry struct {
	Tick     uint64
	Kind     Kind
	Sections []Section
	Hash     string
}

// HashSections computes the content hash over the canonical section set:
// sha256 of (id, length, body) in section-id order, hex encoded.
func HashSections(sections []Section) string {
	h := sha256.New()
	var tmp [4]byte
	for _, s := range sections {
		h.Write([]byte{s.ID})
		binary.LittleEndian.PutUint32(tmp[:], uint32(len(s.Body)))
		h.Write(tmp[:])
		h.Write(s.Body)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Capturer turns committed world state into history entries. It remembers
// the previous tick's full section set to diff deltas against.
type Capturer struct {
	everyFull int
	prev      map[uint8][]byte
	haveFull  bool
}

// NewCapturer captures a full snapshot every everyFull ticks (and always
// for the first capture); other ticks produce deltas.
func NewCapturer(everyFull int) *Capturer {
	if everyFull <= 0 {
		everyFull = 16
	}
	return &Capturer{everyFull: everyFull}
}

// Capture encodes the section set for a committed tick and returns the
// history entry. sections must come from EncodeSections for that tick.
func (c *Capturer) Capture(tick uint64, sections []Section) Entry {
	hash := HashSections(sections)

	full := !c.haveFull || tick%uint64(c.everyFull) == 0
	entry := Entry{Tick: tick, Hash: hash}
	if full {
		entry.Kind = KindFull
		entry.Sections = sections
	} else {
		entry.Kind = KindDelta
		for _, s := range sections {
			prev, ok := c.prev[s.ID]
			if ok && bytesEqual(prev, s.Body) {
				continue
			}
			entry.Sections = append(entry.Sections, s)
		}
	}

	next := make(map[uint8][]byte, len(sections))
	for _, s := range sections {
		next[s.ID] = s.Body
	}
	c.prev = next
	c.haveFull = true
	return entry
}

// Reset rewinds the capturer's diff base after a rollback so the next
// capture diffs against the restored tick, not the discarded future.
func (c *Capturer) Reset(sections map[uint8][]byte) {
	prev := make(map[uint8][]byte, len(sections))
	for id, b := range sections {
		prev[id] = b
	}
	c.prev = prev
	c.haveFull = len(prev) > 0
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
