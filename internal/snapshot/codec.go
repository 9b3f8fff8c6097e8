// Package snapshot captures committed world state as content-hashed full
// snapshots and deltas, encodes them for the wire, and retains a bounded
// ring of history entries to serve rollback.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"hegemon.sim/internal/sim/state"
)

// enc builds a canonical section body: varint integers, length-prefixed
// strings, map entries in sorted key order. Every byte is deterministic for
// a given world state, which is what makes the content hash comparable
// across independent runs.
type enc struct {
	buf bytes.Buffer
	tmp [binary.MaxVarintLen64]byte
}

func (e *enc) u64(v uint64) {
	n := binary.PutUvarint(e.tmp[:], v)
	e.buf.Write(e.tmp[:n])
}

func (e *enc) i64(v int64) {
	n := binary.PutVarint(e.tmp[:], v)
	e.buf.Write(e.tmp[:n])
}

func (e *enc) milli(v state.Milli) { e.i64(int64(v)) }

func (e *enc) str(s string) {
	e.u64(uint64(len(s)))
	e.buf.WriteString(s)
}

func (e *enc) bytes() []byte {
	out := make([]byte, e.buf.Len())
	copy(out, e.buf.Bytes())
	return out
}

type dec struct {
	b   []byte
	off int
}

func (d *dec) u64() (uint64, error) {
	v, n := binary.Uvarint(d.b[d.off:])
	if n <= 0 {
		return 0, fmt.Errorf("bad uvarint at offset %d", d.off)
	}
	d.off += n
	return v, nil
}

func (d *dec) i64() (int64, error) {
	v, n := binary.Varint(d.b[d.off:])
	if n <= 0 {
		return 0, fmt.Errorf("bad varint at offset %d", d.off)
	}
	d.off += n
	return v, nil
}

func (d *dec) milli() (state.Milli, error) {
	v, err := d.i64()
	return state.Milli(v), err
}

func (d *dec) str() (string, error) {
	n, err := d.u64()
	if err != nil {
		return "", err
	}
	if d.off+int(n) > len(d.b) {
		return "", fmt.Errorf("string length %d overruns section at offset %d", n, d.off)
	}
	s := string(d.b[d.off : d.off+int(n)])
	d.off += int(n)
	return s, nil
}
