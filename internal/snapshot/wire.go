package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Wire format: zstd frame over
//   magic "HGSN" | version u8 | kind u8 | tick uvarint | hash (32 bytes)
//   section count uvarint | { id u8, length uvarint, body } ...
// Delta frames carry only changed sections.
const wireVersion = 1

var wireMagic = []byte("HGSN")

// EncodeFrame serializes a history entry for broadcast or archival.
func EncodeFrame(e Entry) ([]byte, error) {
	rawHash, err := hex.DecodeString(e.Hash)
	if err != nil || len(rawHash) != 32 {
		return nil, fmt.Errorf("bad content hash %q", e.Hash)
	}

	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte
	buf.Write(wireMagic)
	buf.WriteByte(wireVersion)
	buf.WriteByte(byte(e.Kind))
	n := binary.PutUvarint(tmp[:], e.Tick)
	buf.Write(tmp[:n])
	buf.Write(rawHash)

	n = binary.PutUvarint(tmp[:], uint64(len(e.Sections)))
	buf.Write(tmp[:n])
	for _, s := range e.Sections {
		buf.WriteByte(s.ID)
		n = binary.PutUvarint(tmp[:], uint64(len(s.Body)))
		buf.Write(tmp[:n])
		buf.Write(s.Body)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(buf.Bytes(), nil), nil
}

// DecodeFrame parses a wire frame back into a history entry.
func DecodeFrame(frame []byte) (Entry, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return Entry{}, err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(frame, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("decompress frame: %w", err)
	}

	if len(raw) < len(wireMagic)+2 || !bytes.Equal(raw[:len(wireMagic)], wireMagic) {
		return Entry{}, fmt.Errorf("bad frame magic")
	}
	off := len(wireMagic)
	if raw[off] != wireVersion {
		return Entry{}, fmt.Errorf("unsupported frame version %d", raw[off])
	}
	off++
	kind := Kind(raw[off])
	if kind != KindFull && kind != KindDelta {
		return Entry{}, fmt.Errorf("unknown frame kind %d", kind)
	}
	off++

	tick, n := binary.Uvarint(raw[off:])
	if n <= 0 {
		return Entry{}, fmt.Errorf("bad tick varint")
	}
	off += n
	if off+32 > len(raw) {
		return Entry{}, fmt.Errorf("frame truncated at hash")
	}
	hash := hex.EncodeToString(raw[off : off+32])
	off += 32

	count, n := binary.Uvarint(raw[off:])
	if n <= 0 {
		return Entry{}, fmt.Errorf("bad section count")
	}
	off += n

	e := Entry{Tick: tick, Kind: kind, Hash: hash}
	for i := uint64(0); i < count; i++ {
		if off >= len(raw) {
			return Entry{}, fmt.Errorf("frame truncated at section %d", i)
		}
		id := raw[off]
		off++
		length, n := binary.Uvarint(raw[off:])
		if n <= 0 {
			return Entry{}, fmt.Errorf("bad section length")
		}
		off += n
		if off+int(length) > len(raw) {
			return Entry{}, fmt.Errorf("section %d overruns frame", id)
		}
		body := make([]byte, length)
		copy(body, raw[off:off+int(length)])
		off += int(length)
		e.Sections = append(e.Sections, Section{ID: id, Body: body})
	}
	return e, nil
}
