package model

import "testing"

func createTestSkeleton(names ...string) *Document {
	doc := New()
	for i, name := range names {
		doc.Bones = append(doc.Bones, &Bone{Name: name, Index: i, Parent: NoRef})
	}
	return doc
}

func boneIndexByName(t *testing.T, doc *Document, name string) int {
	t.Helper()
	b := doc.BoneByName(name)
	if b == nil {
		t.Fatalf("bone %q not found", name)
	}
	return b.Index
}

func assertIndexes(t *testing.T, doc *Document, want map[string]int) {
	t.Helper()
	for name, idx := range want {
		if got := boneIndexByName(t, doc, name); got != idx {
			t.Errorf("bone %q: index = %d, want %d", name, got, idx)
		}
	}
}

func TestSwapBoneIndexes(t *testing.T) {
	doc := createTestSkeleton("A", "B", "C")
	doc.Morphs = append(doc.Morphs, Morph{
		Name:    "nod",
		Offsets: BoneOffsets{{Bone: 1, Rotation: [4]float32{0, 0, 0, 1}}},
	})

	doc.SwapBoneIndexes(doc.BoneByName("A"), doc.BoneByName("B"))

	assertIndexes(t, doc, map[string]int{"A": 1, "B": 0, "C": 2})

	// The morph referenced B before the swap and must still do so after.
	offsets := doc.Morphs[0].Offsets.(BoneOffsets)
	if got := int(offsets[0].Bone); got != 0 {
		t.Errorf("morph bone ref = %d, want 0", got)
	}
}

func TestSwapBoneIndexesNonAdjacent(t *testing.T) {
	doc := createTestSkeleton("A", "B", "C", "D")
	doc.SwapBoneIndexes(doc.BoneByName("A"), doc.BoneByName("D"))
	assertIndexes(t, doc, map[string]int{"A": 3, "B": 1, "C": 2, "D": 0})
}

func TestShiftBoneIndex(t *testing.T) {
	doc := createTestSkeleton("A", "B", "C", "D")
	doc.ShiftBoneIndex(3, 1)
	assertIndexes(t, doc, map[string]int{"A": 0, "D": 1, "B": 2, "C": 3})
}

func TestShiftBoneIndexDown(t *testing.T) {
	doc := createTestSkeleton("A", "B", "C", "D")
	doc.ShiftBoneIndex(0, 2)
	assertIndexes(t, doc, map[string]int{"B": 0, "C": 1, "A": 2, "D": 3})
}

func TestSafeSetBoneIndexClampsNegative(t *testing.T) {
	doc := createTestSkeleton("A", "B")
	doc.SafeSetBoneIndex(doc.BoneByName("B"), -7)
	assertIndexes(t, doc, map[string]int{"B": 0, "A": 1})
}

func TestSafeSetBoneIndexClampsPastEnd(t *testing.T) {
	doc := createTestSkeleton("A", "B", "C")
	doc.SafeSetBoneIndex(doc.BoneByName("A"), 99)
	assertIndexes(t, doc, map[string]int{"B": 0, "C": 1, "A": 2})
}

func TestSafeSetBoneIndexNoop(t *testing.T) {
	doc := createTestSkeleton("A", "B")
	doc.SafeSetBoneIndex(doc.BoneByName("A"), 0)
	assertIndexes(t, doc, map[string]int{"A": 0, "B": 1})
}

func TestSafeSetFollowsAllReferences(t *testing.T) {
	doc := createTestSkeleton("root", "upper", "lower", "effector")
	doc.Bones[1].Parent = 0
	doc.Bones[2].Parent = 1
	doc.Bones[3].Parent = 2
	doc.Bones[1].Tail = TailBone{Bone: 2}
	doc.Bones[0].IK = &IK{
		Target:    3,
		LoopCount: 10,
		AngleStep: 0.5,
		Links:     []IKLink{{Bone: 2}, {Bone: 1}},
	}
	doc.Vertices = append(doc.Vertices, Vertex{
		Deform: BDEF2{Bones: [2]Ref{1, 2}, Weight: 0.5},
	})
	doc.DisplayFrames = append(doc.DisplayFrames, DisplayFrame{
		Name:  "limbs",
		Items: []DisplayItem{{Kind: DisplayBone, Index: 2}},
	})
	doc.RigidBodies = append(doc.RigidBodies, RigidBody{Name: "shin", Bone: 2})

	doc.SafeSetBoneIndex(doc.BoneByName("lower"), 0)

	assertIndexes(t, doc, map[string]int{"lower": 0, "root": 1, "upper": 2, "effector": 3})

	lower := doc.BoneByName("lower")
	upper := doc.BoneByName("upper")
	root := doc.BoneByName("root")
	if int(lower.Parent) != upper.Index {
		t.Errorf("lower.Parent = %d, want %d", lower.Parent, upper.Index)
	}
	if tail := upper.Tail.(TailBone); int(tail.Bone) != lower.Index {
		t.Errorf("upper tail = %d, want %d", tail.Bone, lower.Index)
	}
	if int(root.IK.Links[0].Bone) != lower.Index {
		t.Errorf("ik link 0 = %d, want %d", root.IK.Links[0].Bone, lower.Index)
	}
	df := doc.Vertices[0].Deform.(BDEF2)
	if int(df.Bones[0]) != upper.Index || int(df.Bones[1]) != lower.Index {
		t.Errorf("deform bones = %v, want [%d %d]", df.Bones, upper.Index, lower.Index)
	}
	if got := int(doc.DisplayFrames[0].Items[0].Index); got != lower.Index {
		t.Errorf("display item = %d, want %d", got, lower.Index)
	}
	if got := int(doc.RigidBodies[0].Bone); got != lower.Index {
		t.Errorf("rigid body bone = %d, want %d", got, lower.Index)
	}
}

func TestRealignBoneIndexes(t *testing.T) {
	doc := New()
	doc.Bones = append(doc.Bones,
		&Bone{Name: "X", Index: 10, Parent: NoRef},
		&Bone{Name: "Y", Index: 20, Parent: NoRef},
		&Bone{Name: "Z", Index: 77, Parent: NoRef, Auxiliary: true},
	)
	doc.RealignBoneIndexes(0)

	assertIndexes(t, doc, map[string]int{"X": 0, "Y": 1, "Z": 77})
}

func TestRealignBoneIndexesRewritesRefs(t *testing.T) {
	doc := New()
	doc.Bones = append(doc.Bones,
		&Bone{Name: "X", Index: 5, Parent: NoRef},
		&Bone{Name: "Y", Index: 9, Parent: 5},
	)
	doc.RealignBoneIndexes(0)

	assertIndexes(t, doc, map[string]int{"X": 0, "Y": 1})
	if got := int(doc.BoneByName("Y").Parent); got != 0 {
		t.Errorf("Y.Parent = %d, want 0", got)
	}
}

func TestReindexPreservesNoneRefs(t *testing.T) {
	doc := createTestSkeleton("A", "B")
	doc.RigidBodies = append(doc.RigidBodies, RigidBody{Name: "loose", Bone: NoRef})

	doc.SwapBoneIndexes(doc.BoneByName("A"), doc.BoneByName("B"))

	if doc.RigidBodies[0].Bone != NoRef {
		t.Errorf("unattached body bone = %d, want none", doc.RigidBodies[0].Bone)
	}
}
