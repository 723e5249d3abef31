package vmd

import (
	"os"

	"github.com/Faultbox/mmdkit/pkg/binio"
	"github.com/Faultbox/mmdkit/pkg/encoding"
)

// Encode writes the motion as a VMD stream. All six sections are always
// written, empty ones with a zero count. Names that do not fit their fixed
// field or contain characters outside cp932 are truncated and substituted.
func Encode(m *Motion) ([]byte, error) {
	w := binio.NewWriter()

	sig := make([]byte, signatureSize)
	copy(sig, Signature)
	w.Raw(sig)
	w.Raw(encoding.EncodeFixed(encoding.ShiftJIS, m.ModelName, modelNameSize))

	w.U32(uint32(len(m.BoneFrames)))
	for i := range m.BoneFrames {
		f := &m.BoneFrames[i]
		w.Raw(encoding.EncodeFixed(encoding.ShiftJIS, f.Name, boneNameSize))
		w.U32(f.Frame)
		w.Vec3(f.Position)
		w.Vec4(f.Rotation)
		w.Raw(f.Interpolation[:])
	}

	w.U32(uint32(len(m.MorphFrames)))
	for i := range m.MorphFrames {
		f := &m.MorphFrames[i]
		w.Raw(encoding.EncodeFixed(encoding.ShiftJIS, f.Name, boneNameSize))
		w.U32(f.Frame)
		w.F32(f.Weight)
	}

	w.U32(uint32(len(m.CameraFrames)))
	for i := range m.CameraFrames {
		f := &m.CameraFrames[i]
		w.U32(f.Frame)
		w.F32(f.Distance)
		w.Vec3(f.Position)
		w.Vec3(f.Rotation)
		w.Raw(f.Interpolation[:])
		w.U32(f.ViewAngle)
		if f.Perspective {
			w.U8(0)
		} else {
			w.U8(1)
		}
	}

	w.U32(uint32(len(m.LightFrames)))
	for i := range m.LightFrames {
		f := &m.LightFrames[i]
		w.U32(f.Frame)
		w.Vec3(f.Color)
		w.Vec3(f.Direction)
	}

	w.U32(uint32(len(m.ShadowFrames)))
	for i := range m.ShadowFrames {
		f := &m.ShadowFrames[i]
		w.U32(f.Frame)
		w.U8(f.Mode)
		w.F32(f.Distance)
	}

	w.U32(uint32(len(m.PropertyFrames)))
	for i := range m.PropertyFrames {
		f := &m.PropertyFrames[i]
		w.U32(f.Frame)
		if f.Visible {
			w.U8(1)
		} else {
			w.U8(0)
		}
		w.U32(uint32(len(f.IKStates)))
		for j := range f.IKStates {
			w.Raw(encoding.EncodeFixed(encoding.ShiftJIS, f.IKStates[j].Name, ikNameSize))
			if f.IKStates[j].Enabled {
				w.U8(1)
			} else {
				w.U8(0)
			}
		}
	}
	return w.Bytes(), nil
}

// WriteFile encodes the motion and writes the result to path.
func WriteFile(path string, m *Motion) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
