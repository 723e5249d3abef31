package binio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Writer encodes little-endian values into an in-memory buffer.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated output.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.buf.Len() }

func (w *Writer) U8(v uint8) { w.buf.WriteByte(v) }
func (w *Writer) I8(v int8) { w.buf.WriteByte(byte(v)) }
func (w *Writer) Raw(b []byte) { w.buf.Write(b) }

func (w *Writer) U16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) I16(v int16) { w.U16(uint16(v)) }

func (w *Writer) U32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) I32(v int32) { w.U32(uint32(v)) }

func (w *Writer) F32(v float32) { w.U32(math.Float32bits(v)) }

func (w *Writer) Vec2(v [2]float32) {
	for _, f := range v {
		w.F32(f)
	}
}

func (w *Writer) Vec3(v [3]float32) {
	for _, f := range v {
		w.F32(f)
	}
}

func (w *Writer) Vec4(v [4]float32) {
	for _, f := range v {
		w.F32(f)
	}
}

// SignedIndex writes v at the given width. NoIndex becomes the all-ones
// sentinel of that width; any other value must fit the width's positive range.
func (w *Writer) SignedIndex(width uint8, v int32) error {
	if v != NoIndex && (v < 0 || !SignedIndexFits(int(v)+1, width)) {
		return fmt.Errorf("%w: %d in %d byte(s)", ErrIndexRange, v, width)
	}
	switch width {
	case 1:
		w.I8(int8(v))
	case 2:
		w.I16(int16(v))
	case 4:
		w.I32(v)
	default:
		return ErrIndexWidth
	}
	return nil
}

// UnsignedIndex writes v at the given width.
func (w *Writer) UnsignedIndex(width uint8, v uint32) error {
	if !UnsignedIndexFits(int(v)+1, width) {
		return fmt.Errorf("%w: %d in %d byte(s)", ErrIndexRange, v, width)
	}
	switch width {
	case 1:
		w.U8(uint8(v))
	case 2:
		w.U16(uint16(v))
	case 4:
		w.U32(v)
	default:
		return ErrIndexWidth
	}
	return nil
}

// String writes a 4-byte byte-length prefix followed by the encoded payload.
func (w *Writer) String(c StringCodec, s string) error {
	b, err := c.Encode(s)
	if err != nil {
		return err
	}
	w.I32(int32(len(b)))
	w.buf.Write(b)
	return nil
}
