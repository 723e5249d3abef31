// Package vmd reads and writes the VMD motion format: keyframe tracks for
// bones, morphs, camera, lighting, self shadow and model properties. Frame
// values round trip bit for bit; interpolation blocks are carried as raw
// bytes and never reinterpreted.
package vmd

import (
	"errors"
	"sort"
)

const (
	// Signature is the 30-byte magic at the start of every stream,
	// NUL-padded.
	Signature = "Vocaloid Motion Data 0002"

	signatureSize = 30
	modelNameSize = 20
	boneNameSize  = 15
	ikNameSize    = 20
)

var (
	// ErrSignature reports a stream that does not start with the VMD magic.
	ErrSignature = errors.New("vmd: bad signature")
)

// Motion is one motion clip: a model name and per-track keyframe lists.
// A camera or lighting clip carries the conventional camera model name and
// empty bone and morph tracks.
type Motion struct {
	// ModelName is the target model, encoded as cp932 on the wire and
	// truncated to 20 bytes.
	ModelName string

	BoneFrames     []BoneFrame
	MorphFrames    []MorphFrame
	CameraFrames   []CameraFrame
	LightFrames    []LightFrame
	ShadowFrames   []ShadowFrame
	PropertyFrames []PropertyFrame
}

// New returns an empty motion for the given model.
func New(modelName string) *Motion {
	return &Motion{ModelName: modelName}
}

// BoneFrame is one bone keyframe. The 64-byte interpolation block holds the
// four bezier control channels exactly as stored; editors are inconsistent
// about the mirrored copies inside it, so it is preserved verbatim.
type BoneFrame struct {
	Name          string // bone name, cp932, truncated to 15 bytes
	Frame         uint32
	Position      [3]float32
	Rotation      [4]float32 // quaternion x,y,z,w
	Interpolation [64]byte
}

// MorphFrame is one morph weight keyframe.
type MorphFrame struct {
	Name   string
	Frame  uint32
	Weight float32
}

// CameraFrame is one camera keyframe.
type CameraFrame struct {
	Frame         uint32
	Distance      float32
	Position      [3]float32
	Rotation      [3]float32 // Euler angles, radians
	Interpolation [24]byte
	ViewAngle     uint32
	Perspective   bool
}

// LightFrame is one directional light keyframe.
type LightFrame struct {
	Frame     uint32
	Color     [3]float32
	Direction [3]float32
}

// ShadowFrame is one self-shadow keyframe. Distance is stored raw; hosts
// display it as 10000*(0.1-v).
type ShadowFrame struct {
	Frame    uint32
	Mode     uint8
	Distance float32
}

// PropertyFrame toggles model visibility and per-chain IK enablement.
type PropertyFrame struct {
	Frame    uint32
	Visible  bool
	IKStates []IKState
}

// IKState enables or disables one IK chain by bone name.
type IKState struct {
	Name    string // cp932, truncated to 20 bytes
	Enabled bool
}

// SortFrames orders every track by frame number, keeping the relative order
// of same-frame entries. Bone and morph tracks additionally group by name so
// per-name runs stay contiguous.
func (m *Motion) SortFrames() {
	sort.SliceStable(m.BoneFrames, func(i, j int) bool {
		a, b := &m.BoneFrames[i], &m.BoneFrames[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Frame < b.Frame
	})
	sort.SliceStable(m.MorphFrames, func(i, j int) bool {
		a, b := &m.MorphFrames[i], &m.MorphFrames[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Frame < b.Frame
	})
	sort.SliceStable(m.CameraFrames, func(i, j int) bool {
		return m.CameraFrames[i].Frame < m.CameraFrames[j].Frame
	})
	sort.SliceStable(m.LightFrames, func(i, j int) bool {
		return m.LightFrames[i].Frame < m.LightFrames[j].Frame
	})
	sort.SliceStable(m.ShadowFrames, func(i, j int) bool {
		return m.ShadowFrames[i].Frame < m.ShadowFrames[j].Frame
	})
	sort.SliceStable(m.PropertyFrames, func(i, j int) bool {
		return m.PropertyFrames[i].Frame < m.PropertyFrames[j].Frame
	})
}

// MaxFrame returns the highest frame number on any track, or 0 for an empty
// motion.
func (m *Motion) MaxFrame() uint32 {
	var max uint32
	up := func(f uint32) {
		if f > max {
			max = f
		}
	}
	for i := range m.BoneFrames {
		up(m.BoneFrames[i].Frame)
	}
	for i := range m.MorphFrames {
		up(m.MorphFrames[i].Frame)
	}
	for i := range m.CameraFrames {
		up(m.CameraFrames[i].Frame)
	}
	for i := range m.LightFrames {
		up(m.LightFrames[i].Frame)
	}
	for i := range m.ShadowFrames {
		up(m.ShadowFrames[i].Frame)
	}
	for i := range m.PropertyFrames {
		up(m.PropertyFrames[i].Frame)
	}
	return max
}

// BoneTrack returns the keyframes of one bone in file order.
func (m *Motion) BoneTrack(name string) []BoneFrame {
	var frames []BoneFrame
	for i := range m.BoneFrames {
		if m.BoneFrames[i].Name == name {
			frames = append(frames, m.BoneFrames[i])
		}
	}
	return frames
}
