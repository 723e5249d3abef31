package binio

import (
	"errors"
	"testing"

	"github.com/Faultbox/mmdkit/pkg/encoding"
)

func TestReaderFixedWidth(t *testing.T) {
	w := NewWriter()
	w.U8(0xab)
	w.I8(-5)
	w.U16(0x1234)
	w.I16(-200)
	w.U32(0xdeadbeef)
	w.I32(-70000)
	w.F32(1.5)
	w.Vec3([3]float32{1, 2, 3})

	r := NewReader(w.Bytes())
	if v, _ := r.U8(); v != 0xab {
		t.Errorf("U8 = %#x", v)
	}
	if v, _ := r.I8(); v != -5 {
		t.Errorf("I8 = %d", v)
	}
	if v, _ := r.U16(); v != 0x1234 {
		t.Errorf("U16 = %#x", v)
	}
	if v, _ := r.I16(); v != -200 {
		t.Errorf("I16 = %d", v)
	}
	if v, _ := r.U32(); v != 0xdeadbeef {
		t.Errorf("U32 = %#x", v)
	}
	if v, _ := r.I32(); v != -70000 {
		t.Errorf("I32 = %d", v)
	}
	if v, _ := r.F32(); v != 1.5 {
		t.Errorf("F32 = %v", v)
	}
	if v, _ := r.Vec3(); v != [3]float32{1, 2, 3} {
		t.Errorf("Vec3 = %v", v)
	}
	if r.Remaining() != 0 {
		t.Errorf("remaining = %d", r.Remaining())
	}
}

func TestReaderTruncated(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02})
	if _, err := r.U32(); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
	// A failed read must not consume bytes.
	if r.Remaining() != 2 {
		t.Errorf("remaining = %d after failed read", r.Remaining())
	}
}

func TestSignedIndexSentinel(t *testing.T) {
	for _, width := range []uint8{1, 2, 4} {
		w := NewWriter()
		if err := w.SignedIndex(width, NoIndex); err != nil {
			t.Fatalf("width %d: %v", width, err)
		}
		// Sentinel is the all-ones pattern of the width.
		for i, b := range w.Bytes() {
			if b != 0xff {
				t.Errorf("width %d byte %d = %#x, want 0xff", width, i, b)
			}
		}
		r := NewReader(w.Bytes())
		v, err := r.SignedIndex(width)
		if err != nil {
			t.Fatalf("width %d: %v", width, err)
		}
		if v != NoIndex {
			t.Errorf("width %d sentinel decoded to %d", width, v)
		}
	}
}

func TestSignedIndexRange(t *testing.T) {
	tests := []struct {
		width uint8
		value int32
		ok    bool
	}{
		{1, 0, true},
		{1, 127, true},
		{1, 128, false},
		{2, 32767, true},
		{2, 32768, false},
		{4, 1 << 24, true},
		{1, -2, false},
	}

	for _, tc := range tests {
		w := NewWriter()
		err := w.SignedIndex(tc.width, tc.value)
		if tc.ok && err != nil {
			t.Errorf("width %d value %d: unexpected error %v", tc.width, tc.value, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("width %d value %d: expected range error", tc.width, tc.value)
		}
		if err != nil {
			continue
		}
		r := NewReader(w.Bytes())
		got, err := r.SignedIndex(tc.width)
		if err != nil || got != tc.value {
			t.Errorf("width %d value %d: decoded %d, %v", tc.width, tc.value, got, err)
		}
	}
}

func TestUnsignedIndexRoundTrip(t *testing.T) {
	tests := []struct {
		width uint8
		value uint32
	}{
		{1, 0},
		{1, 255},
		{2, 65535},
		{4, 1 << 20},
	}

	for _, tc := range tests {
		w := NewWriter()
		if err := w.UnsignedIndex(tc.width, tc.value); err != nil {
			t.Fatalf("width %d value %d: %v", tc.width, tc.value, err)
		}
		r := NewReader(w.Bytes())
		got, err := r.UnsignedIndex(tc.width)
		if err != nil || got != tc.value {
			t.Errorf("width %d: decoded %d, %v", tc.width, got, err)
		}
	}

	w := NewWriter()
	if err := w.UnsignedIndex(1, 256); err == nil {
		t.Error("expected range error for 256 in one byte")
	}
}

func TestMinIndexWidths(t *testing.T) {
	tests := []struct {
		n        int
		signed   uint8
		unsigned uint8
	}{
		{0, 1, 1},
		{128, 1, 1},
		{129, 2, 1},
		{130, 2, 1}, // 130 bones need a 2-byte signed index
		{256, 2, 1},
		{257, 2, 2},
		{32768, 2, 2},
		{32769, 4, 2},
		{65537, 4, 4},
	}

	for _, tc := range tests {
		if got := MinSignedIndexWidth(tc.n); got != tc.signed {
			t.Errorf("MinSignedIndexWidth(%d) = %d, want %d", tc.n, got, tc.signed)
		}
		if got := MinUnsignedIndexWidth(tc.n); got != tc.unsigned {
			t.Errorf("MinUnsignedIndexWidth(%d) = %d, want %d", tc.n, got, tc.unsigned)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, codec := range []*encoding.Codec{encoding.UTF16, encoding.UTF8} {
		w := NewWriter()
		if err := w.String(codec, "初音ミク"); err != nil {
			t.Fatalf("%s: %v", codec.Name(), err)
		}
		if err := w.String(codec, ""); err != nil {
			t.Fatalf("%s: %v", codec.Name(), err)
		}

		r := NewReader(w.Bytes())
		s, err := r.String(codec)
		if err != nil || s != "初音ミク" {
			t.Errorf("%s: decoded %q, %v", codec.Name(), s, err)
		}
		s, err = r.String(codec)
		if err != nil || s != "" {
			t.Errorf("%s: decoded empty string as %q, %v", codec.Name(), s, err)
		}
	}
}

func TestStringTruncatedPayload(t *testing.T) {
	w := NewWriter()
	w.I32(10) // length prefix promising more bytes than present
	w.U8(0x41)

	r := NewReader(w.Bytes())
	if _, err := r.String(encoding.UTF8); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}
