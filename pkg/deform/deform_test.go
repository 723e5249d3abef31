package deform

import (
	"math"
	"testing"

	mmath "github.com/Faultbox/mmdkit/pkg/math"
	"github.com/Faultbox/mmdkit/pkg/model"
)

func near(a, b [3]float32, eps float32) bool {
	return mmath.V3(a).Distance(mmath.V3(b)) < eps
}

// translate builds a pure translation transform.
func translate(x, y, z float32) Transform {
	return Transform{Rotation: mmath.QuatIdentity(), Translation: mmath.Vec3{X: x, Y: y, Z: z}}
}

func TestApplyBDEF1(t *testing.T) {
	pose := Pose{0: translate(1, 0, 0)}
	got := Apply(model.BDEF1{Bone: 0}, [3]float32{0, 5, 0}, pose)
	if !near(got, [3]float32{1, 5, 0}, 1e-5) {
		t.Errorf("Apply() = %v, want (1,5,0)", got)
	}
}

func TestApplyBDEF1NoneBoneIsRest(t *testing.T) {
	got := Apply(model.BDEF1{Bone: model.NoRef}, [3]float32{1, 2, 3}, Pose{})
	if got != [3]float32{1, 2, 3} {
		t.Errorf("Apply() = %v, want rest position", got)
	}
}

func TestApplyBDEF2(t *testing.T) {
	pose := Pose{
		0: translate(1, 0, 0),
		1: translate(0, 1, 0),
	}
	df := model.BDEF2{Bones: [2]model.Ref{0, 1}, Weight: 0.75}
	got := Apply(df, [3]float32{0, 0, 0}, pose)
	// 75% of bone 0's motion, 25% of bone 1's.
	if !near(got, [3]float32{0.75, 0.25, 0}, 1e-5) {
		t.Errorf("Apply() = %v, want (0.75,0.25,0)", got)
	}
}

func TestApplyBDEF4(t *testing.T) {
	pose := Pose{
		0: translate(4, 0, 0),
		1: translate(0, 4, 0),
		2: translate(0, 0, 4),
	}
	df := model.BDEF4{
		Bones:   [4]model.Ref{0, 1, 2, model.NoRef},
		Weights: [4]float32{0.5, 0.25, 0.25, 0},
	}
	got := Apply(df, [3]float32{0, 0, 0}, pose)
	if !near(got, [3]float32{2, 1, 1}, 1e-5) {
		t.Errorf("Apply() = %v, want (2,1,1)", got)
	}
}

func TestApplyRotationAboutBoneOrigin(t *testing.T) {
	// A bone at (0,1,0) rotated 90 degrees about Z swings a vertex at
	// (1,1,0) up to (0,2,0).
	pose := Pose{0: {
		Rotation: mmath.QuatFromAxisAngle(mmath.Vec3{Z: 1}, float32(math.Pi/2)),
		Origin:   mmath.Vec3{Y: 1},
	}}
	got := Apply(model.BDEF1{Bone: 0}, [3]float32{1, 1, 0}, pose)
	if !near(got, [3]float32{0, 2, 0}, 1e-5) {
		t.Errorf("Apply() = %v, want (0,2,0)", got)
	}
}

func TestApplySDEF(t *testing.T) {
	df := model.SDEF{
		Bones:  [2]model.Ref{0, 1},
		Weight: 1, // fully bone 0
		C:      [3]float32{0, 1, 0},
	}
	pose := Pose{
		0: translate(2, 0, 0),
		1: translate(0, 0, 9),
	}
	got := Apply(df, [3]float32{0.5, 1, 0}, pose)
	if !near(got, [3]float32{2.5, 1, 0}, 1e-4) {
		t.Errorf("Apply() = %v, want bone 0's translation only", got)
	}
}

func TestApplyQDEFMatchesBDEF4ForTranslations(t *testing.T) {
	// With pure translations dual-quaternion and linear blending agree.
	pose := Pose{
		0: translate(1, 0, 0),
		1: translate(0, 2, 0),
	}
	bones := [4]model.Ref{0, 1, model.NoRef, model.NoRef}
	weights := [4]float32{0.5, 0.5, 0, 0}
	p := [3]float32{3, 3, 3}

	viaQ := Apply(model.QDEF{Bones: bones, Weights: weights}, p, pose)
	viaB := Apply(model.BDEF4{Bones: bones, Weights: weights}, p, pose)
	if !near(viaQ, viaB, 1e-4) {
		t.Errorf("QDEF = %v, BDEF4 = %v", viaQ, viaB)
	}
}

func TestApplyQDEFStaysRigid(t *testing.T) {
	// Blending two opposite rotations linearly would pull the vertex
	// toward the axis; the dual-quaternion blend must keep its distance.
	rot := func(angle float32) Transform {
		return Transform{Rotation: mmath.QuatFromAxisAngle(mmath.Vec3{Y: 1}, angle)}
	}
	pose := Pose{0: rot(1.4), 1: rot(-1.4)}
	df := model.QDEF{
		Bones:   [4]model.Ref{0, 1, model.NoRef, model.NoRef},
		Weights: [4]float32{0.5, 0.5, 0, 0},
	}
	got := Apply(df, [3]float32{1, 0, 0}, pose)
	dist := mmath.V3(got).Length()
	if math.Abs(float64(dist-1)) > 1e-3 {
		t.Errorf("blended vertex at distance %v from origin, want 1", dist)
	}
}

func createTestSkinnerDoc() *model.Document {
	doc := model.New()
	doc.Bones = append(doc.Bones,
		&model.Bone{Name: "a", Index: 0, Parent: model.NoRef},
		&model.Bone{Name: "b", Index: 1, Parent: 0},
	)
	doc.Vertices = []model.Vertex{
		{Position: [3]float32{0, 0, 0}, Deform: model.BDEF1{Bone: 0}},
		{Position: [3]float32{0, 1, 0}, Deform: model.BDEF2{Bones: [2]model.Ref{0, 1}, Weight: 0.5}},
	}
	return doc
}

func TestSkinnerPositions(t *testing.T) {
	s := NewSkinner(createTestSkinnerDoc())
	pose := Pose{0: translate(1, 0, 0), 1: translate(3, 0, 0)}

	got := s.Positions(pose)
	if len(got) != 2 {
		t.Fatalf("Positions() returned %d vertices", len(got))
	}
	if !near(got[0], [3]float32{1, 0, 0}, 1e-5) {
		t.Errorf("vertex 0 = %v, want (1,0,0)", got[0])
	}
	if !near(got[1], [3]float32{2, 1, 0}, 1e-5) {
		t.Errorf("vertex 1 = %v, want (2,1,0)", got[1])
	}
}

func TestSkinnerCachesByPoseContent(t *testing.T) {
	s := NewSkinner(createTestSkinnerDoc())
	a := s.Positions(Pose{0: translate(1, 0, 0)})
	// A distinct but equal map must hit the same entry.
	b := s.Positions(Pose{0: translate(1, 0, 0)})
	if &a[0] != &b[0] {
		t.Error("equal poses did not share a cache entry")
	}

	c := s.Positions(Pose{0: translate(2, 0, 0)})
	if &a[0] == &c[0] {
		t.Error("different poses shared a cache entry")
	}
}

func TestSkinnerInvalidate(t *testing.T) {
	s := NewSkinner(createTestSkinnerDoc())
	pose := Pose{0: translate(1, 0, 0)}
	a := s.Positions(pose)
	s.Invalidate()
	b := s.Positions(pose)
	if &a[0] == &b[0] {
		t.Error("Invalidate() left the cached entry in place")
	}
}
