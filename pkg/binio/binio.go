// Package binio implements the binary primitives shared by the MMD codecs:
// fixed-width little-endian numbers, length-prefixed strings, and the
// variable-width index encoding selected by the PMX header.
package binio

import "errors"

// Binary stream errors.
var (
	ErrTruncated      = errors.New("truncated stream")
	ErrIndexWidth     = errors.New("index width must be 1, 2 or 4")
	ErrIndexRange     = errors.New("index does not fit the declared width")
	ErrNegativeLength = errors.New("negative length prefix")
)

// StringCodec converts between Go strings and an external byte encoding.
// Satisfied by *encoding.Codec.
type StringCodec interface {
	Decode(data []byte) (string, error)
	Encode(s string) ([]byte, error)
}

// ValidIndexWidth reports whether w is a legal index width.
func ValidIndexWidth(w uint8) bool {
	return w == 1 || w == 2 || w == 4
}

// NoIndex is the sign-extended form of the "no reference" wire sentinel.
// Each width stores it as its all-ones bit pattern.
const NoIndex int32 = -1

// SignedIndexFits reports whether a collection of n elements can be addressed
// by a signed index of width w with the sentinel value reserved.
func SignedIndexFits(n int, w uint8) bool {
	switch w {
	case 1:
		return n <= 1<<7
	case 2:
		return n <= 1<<15
	case 4:
		return n <= 1<<31
	}
	return false
}

// UnsignedIndexFits reports whether a collection of n elements can be
// addressed by an unsigned index of width w.
func UnsignedIndexFits(n int, w uint8) bool {
	switch w {
	case 1:
		return n <= 1<<8
	case 2:
		return n <= 1<<16
	case 4:
		return true
	}
	return false
}

// MinSignedIndexWidth returns the smallest legal width able to address a
// collection of n elements with a signed index.
func MinSignedIndexWidth(n int) uint8 {
	switch {
	case SignedIndexFits(n, 1):
		return 1
	case SignedIndexFits(n, 2):
		return 2
	default:
		return 4
	}
}

// MinUnsignedIndexWidth returns the smallest legal width able to address a
// collection of n elements with an unsigned index.
func MinUnsignedIndexWidth(n int) uint8 {
	switch {
	case UnsignedIndexFits(n, 1):
		return 1
	case UnsignedIndexFits(n, 2):
		return 2
	default:
		return 4
	}
}
