package pmx

import (
	"errors"
	"fmt"
)

var (
	// ErrSignature reports a stream that does not start with the PMX magic.
	ErrSignature = errors.New("pmx: bad signature")

	// ErrVersion reports a version other than 2.0 or 2.1.
	ErrVersion = errors.New("pmx: unsupported version")

	// ErrGlobals reports a malformed globals block: wrong count, unknown
	// text encoding or an index width outside {1, 2, 4}.
	ErrGlobals = errors.New("pmx: bad globals block")

	// ErrBoneOrder reports a document whose non-auxiliary bone indices are
	// not a dense range, which the encoder requires.
	ErrBoneOrder = errors.New("pmx: bone indices are not contiguous")

	// ErrSoftBodies reports a 2.1 stream carrying soft bodies, which this
	// codec does not model.
	ErrSoftBodies = errors.New("pmx: soft bodies are not supported")
)

// UnknownVariantError reports a tag byte outside the closed variant set of
// its section. The rest of the element cannot be sized, so parsing stops.
type UnknownVariantError struct {
	Section string
	Tag     uint8
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("pmx: unknown %s variant tag %d", e.Section, e.Tag)
}

// Diagnostic records one non-fatal repair made by a lenient parse.
type Diagnostic struct {
	Section string
	Detail  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Section, d.Detail)
}
