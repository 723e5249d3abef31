package vmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/Faultbox/mmdkit/pkg/binio"
	"github.com/Faultbox/mmdkit/pkg/encoding"
)

// Parse decodes a VMD stream. Older files end after any complete section,
// so a clean end of stream between sections leaves the remaining tracks
// empty; truncation inside a section is an error.
func Parse(data []byte) (*Motion, error) {
	r := binio.NewReader(data)

	sig, err := r.Bytes(signatureSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	if !bytes.HasPrefix(sig, []byte(Signature)) {
		return nil, fmt.Errorf("%w: %q", ErrSignature, trimNul(sig))
	}

	name, err := r.Bytes(modelNameSize)
	if err != nil {
		return nil, fmt.Errorf("model name: %w", err)
	}
	m := &Motion{ModelName: encoding.DecodeFixed(encoding.ShiftJIS, name)}

	sections := []struct {
		name string
		min  int // wire size of one element, zero IK states for properties
		read func(*binio.Reader, int) error
	}{
		{"bone frames", boneNameSize + 96, m.readBoneFrames},
		{"morph frames", boneNameSize + 8, m.readMorphFrames},
		{"camera frames", 61, m.readCameraFrames},
		{"light frames", 28, m.readLightFrames},
		{"shadow frames", 9, m.readShadowFrames},
		{"property frames", 9, m.readPropertyFrames},
	}
	for _, s := range sections {
		if r.Remaining() == 0 {
			break
		}
		n, err := sectionCount(r, s.min)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		if err := s.read(r, n); err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return m, nil
}

// sectionCount reads a 4-byte element count and bounds it against the bytes
// left, so a corrupt count fails instead of driving a huge allocation.
func sectionCount(r *binio.Reader, minSize int) (int, error) {
	n, err := r.U32()
	if err != nil {
		return 0, err
	}
	if uint64(n)*uint64(minSize) > uint64(r.Remaining()) {
		return 0, fmt.Errorf("%w: %d elements declared, %d bytes left",
			binio.ErrTruncated, n, r.Remaining())
	}
	return int(n), nil
}

// ParseFile reads and parses the file at path.
func ParseFile(path string) (*Motion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func trimNul(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}

func (m *Motion) readBoneFrames(r *binio.Reader, n int) error {
	m.BoneFrames = make([]BoneFrame, n)
	for i := range m.BoneFrames {
		f := &m.BoneFrames[i]
		name, err := r.Bytes(boneNameSize)
		if err != nil {
			return err
		}
		f.Name = encoding.DecodeFixed(encoding.ShiftJIS, name)
		if f.Frame, err = r.U32(); err != nil {
			return err
		}
		if f.Position, err = r.Vec3(); err != nil {
			return err
		}
		if f.Rotation, err = r.Vec4(); err != nil {
			return err
		}
		interp, err := r.Bytes(len(f.Interpolation))
		if err != nil {
			return err
		}
		copy(f.Interpolation[:], interp)
	}
	return nil
}

func (m *Motion) readMorphFrames(r *binio.Reader, n int) error {
	m.MorphFrames = make([]MorphFrame, n)
	for i := range m.MorphFrames {
		f := &m.MorphFrames[i]
		name, err := r.Bytes(boneNameSize)
		if err != nil {
			return err
		}
		f.Name = encoding.DecodeFixed(encoding.ShiftJIS, name)
		if f.Frame, err = r.U32(); err != nil {
			return err
		}
		if f.Weight, err = r.F32(); err != nil {
			return err
		}
	}
	return nil
}

func (m *Motion) readCameraFrames(r *binio.Reader, n int) error {
	m.CameraFrames = make([]CameraFrame, n)
	for i := range m.CameraFrames {
		f := &m.CameraFrames[i]
		var err error
		if f.Frame, err = r.U32(); err != nil {
			return err
		}
		if f.Distance, err = r.F32(); err != nil {
			return err
		}
		if f.Position, err = r.Vec3(); err != nil {
			return err
		}
		if f.Rotation, err = r.Vec3(); err != nil {
			return err
		}
		interp, err := r.Bytes(len(f.Interpolation))
		if err != nil {
			return err
		}
		copy(f.Interpolation[:], interp)
		if f.ViewAngle, err = r.U32(); err != nil {
			return err
		}
		persp, err := r.U8()
		if err != nil {
			return err
		}
		// Stored inverted: 0 means perspective on.
		f.Perspective = persp == 0
	}
	return nil
}

func (m *Motion) readLightFrames(r *binio.Reader, n int) error {
	m.LightFrames = make([]LightFrame, n)
	for i := range m.LightFrames {
		f := &m.LightFrames[i]
		var err error
		if f.Frame, err = r.U32(); err != nil {
			return err
		}
		if f.Color, err = r.Vec3(); err != nil {
			return err
		}
		if f.Direction, err = r.Vec3(); err != nil {
			return err
		}
	}
	return nil
}

func (m *Motion) readShadowFrames(r *binio.Reader, n int) error {
	m.ShadowFrames = make([]ShadowFrame, n)
	for i := range m.ShadowFrames {
		f := &m.ShadowFrames[i]
		var err error
		if f.Frame, err = r.U32(); err != nil {
			return err
		}
		if f.Mode, err = r.U8(); err != nil {
			return err
		}
		if f.Distance, err = r.F32(); err != nil {
			return err
		}
	}
	return nil
}

func (m *Motion) readPropertyFrames(r *binio.Reader, n int) error {
	m.PropertyFrames = make([]PropertyFrame, n)
	for i := range m.PropertyFrames {
		f := &m.PropertyFrames[i]
		var err error
		if f.Frame, err = r.U32(); err != nil {
			return err
		}
		visible, err := r.U8()
		if err != nil {
			return err
		}
		f.Visible = visible != 0
		count, err := sectionCount(r, ikNameSize+1)
		if err != nil {
			return err
		}
		f.IKStates = make([]IKState, count)
		for j := range f.IKStates {
			name, err := r.Bytes(ikNameSize)
			if err != nil {
				return err
			}
			f.IKStates[j].Name = encoding.DecodeFixed(encoding.ShiftJIS, name)
			enabled, err := r.U8()
			if err != nil {
				return err
			}
			f.IKStates[j].Enabled = enabled != 0
		}
	}
	return nil
}
