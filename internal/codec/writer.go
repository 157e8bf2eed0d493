// Package codec converts structured values (*yaml.Node trees) to and from
// the wire format: little-endian, no framing, out-of-line data reached
// through 16-bit backward pointers.
package codec

import (
	"encoding/binary"
)

// Writer is an append-only byte buffer. Positions handed out by Tell stay
// valid for the lifetime of the writer.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty writer with room for capacity bytes.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, max(capacity, 0))}
}

// Tell returns the current write position.
func (w *Writer) Tell() int { return len(w.buf) }

// Align pads with zero bytes until Tell is a multiple of n.
func (w *Writer) Align(n int) {
	if n <= 1 {
		return
	}
	for len(w.buf)%n != 0 {
		w.buf = append(w.buf, 0)
	}
}

// WriteRaw appends p verbatim.
func (w *Writer) WriteRaw(p []byte) {
	w.buf = append(w.buf, p...)
}

// PadTo appends zero bytes until Tell reaches pos.
func (w *Writer) PadTo(pos int) {
	for len(w.buf) < pos {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) writeUint(v uint64, size uint32) {
	switch size {
	case 1:
		w.buf = append(w.buf, byte(v))
	case 2:
		w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(v))
	case 4:
		w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
	default:
		w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
	}
}

// Bytes returns the written bytes. The slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte { return w.buf }
