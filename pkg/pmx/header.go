package pmx

import (
	"fmt"

	"github.com/Faultbox/mmdkit/pkg/binio"
	"github.com/Faultbox/mmdkit/pkg/encoding"
	"github.com/Faultbox/mmdkit/pkg/model"
)

// signature is the four-byte magic at the start of every PMX stream. The
// fourth byte is a space.
var signature = [4]byte{'P', 'M', 'X', ' '}

const globalCount = 8

// header mirrors the fixed-size prefix of a PMX stream: signature, version
// and the eight globals that parameterize every later section.
type header struct {
	version  float32
	encoding model.TextEncoding
	extraUV  uint8
	layout   model.IndexLayout
}

func (h *header) textCodec() *encoding.Codec {
	if h.encoding == model.TextUTF8 {
		return encoding.UTF8
	}
	return encoding.UTF16
}

func readHeader(r *binio.Reader) (*header, error) {
	sig, err := r.Bytes(4)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	if [4]byte(sig) != signature {
		return nil, fmt.Errorf("%w: % x", ErrSignature, sig)
	}

	h := &header{}
	if h.version, err = r.F32(); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if h.version != 2.0 && h.version != 2.1 {
		return nil, fmt.Errorf("%w: %g", ErrVersion, h.version)
	}

	n, err := r.U8()
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if n != globalCount {
		return nil, fmt.Errorf("%w: %d globals", ErrGlobals, n)
	}
	globals, err := r.Bytes(int(n))
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	if globals[0] > 1 {
		return nil, fmt.Errorf("%w: text encoding %d", ErrGlobals, globals[0])
	}
	h.encoding = model.TextEncoding(globals[0])
	if globals[1] > 4 {
		return nil, fmt.Errorf("%w: %d extra UV channels", ErrGlobals, globals[1])
	}
	h.extraUV = globals[1]

	widths := []*uint8{
		&h.layout.Vertex, &h.layout.Texture, &h.layout.Material,
		&h.layout.Bone, &h.layout.Morph, &h.layout.RigidBody,
	}
	for i, w := range widths {
		v := globals[2+i]
		if !binio.ValidIndexWidth(v) {
			return nil, fmt.Errorf("%w: index width %d", ErrGlobals, v)
		}
		*w = v
	}
	return h, nil
}

func (h *header) write(w *binio.Writer) {
	w.Raw(signature[:])
	w.F32(h.version)
	w.U8(globalCount)
	w.U8(uint8(h.encoding))
	w.U8(h.extraUV)
	w.U8(h.layout.Vertex)
	w.U8(h.layout.Texture)
	w.U8(h.layout.Material)
	w.U8(h.layout.Bone)
	w.U8(h.layout.Morph)
	w.U8(h.layout.RigidBody)
}
