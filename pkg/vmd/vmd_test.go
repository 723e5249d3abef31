package vmd

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Faultbox/mmdkit/pkg/binio"
)

func createTestMotion() *Motion {
	m := New("初音ミク")
	interp := [64]byte{}
	for i := range interp {
		interp[i] = byte(i * 3)
	}
	m.BoneFrames = []BoneFrame{
		{Name: "センター", Frame: 0, Position: [3]float32{0, 8, 0},
			Rotation: [4]float32{0, 0, 0, 1}, Interpolation: interp},
		{Name: "センター", Frame: 30, Position: [3]float32{0, 7.5, 0.2},
			Rotation: [4]float32{0.1, 0, 0, 0.99}, Interpolation: interp},
	}
	m.MorphFrames = []MorphFrame{
		{Name: "まばたき", Frame: 10, Weight: 1},
		{Name: "まばたき", Frame: 15, Weight: 0},
	}
	m.CameraFrames = []CameraFrame{
		{Frame: 0, Distance: -45, Position: [3]float32{0, 10, 0},
			Rotation: [3]float32{-0.1, 0, 0}, ViewAngle: 30, Perspective: true},
	}
	m.LightFrames = []LightFrame{
		{Frame: 0, Color: [3]float32{0.6, 0.6, 0.6}, Direction: [3]float32{-0.5, -1, 0.5}},
	}
	m.ShadowFrames = []ShadowFrame{
		{Frame: 0, Mode: 1, Distance: 0.011},
	}
	m.PropertyFrames = []PropertyFrame{
		{Frame: 0, Visible: true, IKStates: []IKState{
			{Name: "左足ＩＫ", Enabled: true},
			{Name: "右足ＩＫ", Enabled: false},
		}},
	}
	return m
}

func TestRoundTrip(t *testing.T) {
	m := createTestMotion()
	data, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode() = %v", err)
	}
	got, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, m)
	}
}

func TestRoundTripPreservesInterpolation(t *testing.T) {
	m := createTestMotion()
	data, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode() = %v", err)
	}
	got, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}
	if got.BoneFrames[0].Interpolation != m.BoneFrames[0].Interpolation {
		t.Error("bone interpolation block changed across a round trip")
	}
}

func TestRoundTripRawShadowDistance(t *testing.T) {
	m := New("")
	m.ShadowFrames = []ShadowFrame{{Frame: 5, Mode: 2, Distance: 0.03125}}
	data, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode() = %v", err)
	}
	got, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}
	if got.ShadowFrames[0].Distance != 0.03125 {
		t.Errorf("shadow distance = %v, want exact 0.03125", got.ShadowFrames[0].Distance)
	}
}

func TestParseBadSignature(t *testing.T) {
	data := make([]byte, 50)
	copy(data, "Vocaloid Motion Data file")
	if _, err := Parse(data); !errors.Is(err, ErrSignature) {
		t.Errorf("Parse() = %v, want ErrSignature", err)
	}
}

func TestParseToleratesMissingTrailingSections(t *testing.T) {
	w := binio.NewWriter()
	sig := make([]byte, signatureSize)
	copy(sig, Signature)
	w.Raw(sig)
	w.Raw(make([]byte, modelNameSize))
	w.U32(0) // bone frames
	w.U32(0) // morph frames
	// Camera and later sections absent, as old exporters wrote them.

	m, err := Parse(w.Bytes())
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}
	if len(m.CameraFrames) != 0 || len(m.PropertyFrames) != 0 {
		t.Errorf("missing sections parsed as non-empty: %+v", m)
	}
}

func TestParseTruncatedInsideSection(t *testing.T) {
	data, err := Encode(createTestMotion())
	if err != nil {
		t.Fatalf("Encode() = %v", err)
	}
	// Cut inside the first bone frame.
	if _, err := Parse(data[:signatureSize+modelNameSize+4+10]); !errors.Is(err, binio.ErrTruncated) {
		t.Errorf("Parse() = %v, want ErrTruncated", err)
	}
}

func TestParseRejectsOversizedCount(t *testing.T) {
	w := binio.NewWriter()
	sig := make([]byte, signatureSize)
	copy(sig, Signature)
	w.Raw(sig)
	w.Raw(make([]byte, modelNameSize))
	w.U32(0xFFFFFFFF) // bone frame count far beyond the bytes left
	w.U32(0)

	if _, err := Parse(w.Bytes()); !errors.Is(err, binio.ErrTruncated) {
		t.Errorf("Parse() = %v, want ErrTruncated", err)
	}
}

func TestSortFrames(t *testing.T) {
	m := New("")
	m.BoneFrames = []BoneFrame{
		{Name: "b", Frame: 10},
		{Name: "a", Frame: 20},
		{Name: "a", Frame: 5},
	}
	m.CameraFrames = []CameraFrame{{Frame: 9}, {Frame: 2}}
	m.SortFrames()

	want := []struct {
		name  string
		frame uint32
	}{{"a", 5}, {"a", 20}, {"b", 10}}
	for i, w := range want {
		f := m.BoneFrames[i]
		if f.Name != w.name || f.Frame != w.frame {
			t.Errorf("bone frame %d = %s@%d, want %s@%d", i, f.Name, f.Frame, w.name, w.frame)
		}
	}
	if m.CameraFrames[0].Frame != 2 {
		t.Errorf("camera frames not sorted: %+v", m.CameraFrames)
	}
}

func TestMaxFrame(t *testing.T) {
	m := createTestMotion()
	if got := m.MaxFrame(); got != 30 {
		t.Errorf("MaxFrame() = %d, want 30", got)
	}
	if got := New("").MaxFrame(); got != 0 {
		t.Errorf("MaxFrame() on empty motion = %d, want 0", got)
	}
}

func TestBoneTrack(t *testing.T) {
	m := createTestMotion()
	track := m.BoneTrack("センター")
	if len(track) != 2 {
		t.Fatalf("BoneTrack() returned %d frames, want 2", len(track))
	}
	if m.BoneTrack("なし") != nil {
		t.Error("BoneTrack() of unknown bone should be empty")
	}
}

func TestCameraPerspectiveFlagInverted(t *testing.T) {
	m := New("")
	m.CameraFrames = []CameraFrame{{Frame: 0, Perspective: true}, {Frame: 1, Perspective: false}}
	data, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode() = %v", err)
	}
	got, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}
	if !got.CameraFrames[0].Perspective || got.CameraFrames[1].Perspective {
		t.Errorf("perspective flags = %v/%v, want true/false",
			got.CameraFrames[0].Perspective, got.CameraFrames[1].Perspective)
	}
}
