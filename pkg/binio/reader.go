package binio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Reader decodes little-endian values from an in-memory buffer.
// All reads fail with ErrTruncated when fewer bytes remain than requested.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader over data. The slice is not copied.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

// Offset returns the current read position.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Bytes reads n raw bytes. The returned slice aliases the underlying buffer.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeLength
	}
	if r.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.off, r.Remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) U8() (uint8, error) {
	b, err := r.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) I8() (int8, error) {
	v, err := r.U8()
	return int8(v), err
}

func (r *Reader) U16() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

func (r *Reader) U32() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	return math.Float32frombits(v), err
}

// Vec2 reads two consecutive float32 values.
func (r *Reader) Vec2() ([2]float32, error) {
	var v [2]float32
	for i := range v {
		f, err := r.F32()
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

// Vec3 reads three consecutive float32 values.
func (r *Reader) Vec3() ([3]float32, error) {
	var v [3]float32
	for i := range v {
		f, err := r.F32()
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

// Vec4 reads four consecutive float32 values.
func (r *Reader) Vec4() ([4]float32, error) {
	var v [4]float32
	for i := range v {
		f, err := r.F32()
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

// SignedIndex reads a signed index of the given width, sign-extended to int32.
// The all-ones sentinel of any width decodes to NoIndex.
func (r *Reader) SignedIndex(width uint8) (int32, error) {
	switch width {
	case 1:
		v, err := r.I8()
		return int32(v), err
	case 2:
		v, err := r.I16()
		return int32(v), err
	case 4:
		return r.I32()
	}
	return 0, ErrIndexWidth
}

// UnsignedIndex reads an unsigned index of the given width, zero-extended to
// uint32. Used for vertex references, which have no sentinel.
func (r *Reader) UnsignedIndex(width uint8) (uint32, error) {
	switch width {
	case 1:
		v, err := r.U8()
		return uint32(v), err
	case 2:
		v, err := r.U16()
		return uint32(v), err
	case 4:
		return r.U32()
	}
	return 0, ErrIndexWidth
}

// String reads a 4-byte byte-length prefix followed by that many bytes,
// decoded with the given codec.
func (r *Reader) String(c StringCodec) (string, error) {
	n, err := r.I32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", ErrNegativeLength
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		return "", err
	}
	return c.Decode(b)
}

// StringBytes reads a 4-byte byte-length prefix followed by the raw payload,
// leaving the decoding to the caller.
func (r *Reader) StringBytes() ([]byte, error) {
	n, err := r.I32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, ErrNegativeLength
	}
	return r.Bytes(int(n))
}
