package model

import (
	"errors"
	"testing"
)

func createTestDocument() *Document {
	doc := New()
	doc.Name = "test model"
	doc.Bones = append(doc.Bones, &Bone{Name: "root", Index: 0, Parent: NoRef})
	doc.Vertices = append(doc.Vertices,
		Vertex{Deform: BDEF1{Bone: 0}},
		Vertex{Deform: BDEF1{Bone: 0}},
		Vertex{Deform: BDEF1{Bone: 0}},
	)
	doc.Faces = append(doc.Faces, Face{0, 1, 2})
	doc.Materials = append(doc.Materials, Material{
		Name:        "base",
		Texture:     NoRef,
		Sphere:      NoRef,
		Toon:        SharedToon{ID: 0},
		VertexCount: 3,
	})
	return doc
}

func TestValidateOK(t *testing.T) {
	if err := createTestDocument().Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestValidateDanglingRefs(t *testing.T) {
	tests := []struct {
		name  string
		corrupt func(*Document)
	}{
		{"vertex deform bone", func(d *Document) { d.Vertices[0].Deform = BDEF1{Bone: 9} }},
		{"face vertex", func(d *Document) { d.Faces[0][1] = 99 }},
		{"material texture", func(d *Document) { d.Materials[0].Texture = 3 }},
		{"bone parent", func(d *Document) { d.Bones[0].Parent = 4 }},
		{"rigid body bone", func(d *Document) {
			d.RigidBodies = append(d.RigidBodies, RigidBody{Bone: 12})
		}},
		{"joint body", func(d *Document) {
			d.Joints = append(d.Joints, Joint{BodyA: 5, BodyB: NoRef})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := createTestDocument()
			tt.corrupt(doc)
			if err := doc.Validate(); !errors.Is(err, ErrRefOutOfRange) {
				t.Errorf("Validate() = %v, want ErrRefOutOfRange", err)
			}
		})
	}
}

func TestValidateNoneRefsAllowed(t *testing.T) {
	doc := createTestDocument()
	doc.RigidBodies = append(doc.RigidBodies, RigidBody{Bone: NoRef})
	doc.Morphs = append(doc.Morphs, Morph{
		Name:    "tint",
		Offsets: MaterialOffsets{{Material: NoRef, Blend: BlendMultiply}},
	})
	if err := doc.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestValidateMaterialSpan(t *testing.T) {
	doc := createTestDocument()
	doc.Materials[0].VertexCount = 6
	if err := doc.Validate(); !errors.Is(err, ErrMaterialSpan) {
		t.Errorf("Validate() = %v, want ErrMaterialSpan", err)
	}

	doc = createTestDocument()
	doc.Materials[0].VertexCount = 2
	if err := doc.Validate(); !errors.Is(err, ErrMaterialSpan) {
		t.Errorf("Validate() with non-triple span = %v, want ErrMaterialSpan", err)
	}
}

func TestValidateGroupMorphCycle(t *testing.T) {
	doc := createTestDocument()
	doc.Morphs = append(doc.Morphs,
		Morph{Name: "a", Offsets: GroupOffsets{{Morph: 1, Factor: 1}}},
		Morph{Name: "b", Offsets: GroupOffsets{{Morph: 0, Factor: 1}}},
	)
	if err := doc.Validate(); !errors.Is(err, ErrMorphCycle) {
		t.Errorf("Validate() = %v, want ErrMorphCycle", err)
	}
}

func TestValidateGroupMorphSelfCycle(t *testing.T) {
	doc := createTestDocument()
	doc.Morphs = append(doc.Morphs,
		Morph{Name: "self", Offsets: GroupOffsets{{Morph: 0, Factor: 0.5}}},
	)
	if err := doc.Validate(); !errors.Is(err, ErrMorphCycle) {
		t.Errorf("Validate() = %v, want ErrMorphCycle", err)
	}
}

func TestValidateGroupMorphChainOK(t *testing.T) {
	doc := createTestDocument()
	doc.Morphs = append(doc.Morphs,
		Morph{Name: "outer", Offsets: GroupOffsets{{Morph: 1, Factor: 1}}},
		Morph{Name: "inner", Offsets: VertexOffsets{{Vertex: 0, Offset: [3]float32{0, 1, 0}}}},
	)
	if err := doc.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestValidateBoneCycle(t *testing.T) {
	doc := createTestDocument()
	doc.Bones = append(doc.Bones, &Bone{Name: "loop", Index: 1, Parent: 1})
	if err := doc.Validate(); !errors.Is(err, ErrBoneCycle) {
		t.Errorf("Validate() = %v, want ErrBoneCycle", err)
	}
}

func TestValidateMissingDeform(t *testing.T) {
	doc := createTestDocument()
	doc.Vertices[2].Deform = nil
	if err := doc.Validate(); !errors.Is(err, ErrMissingDeform) {
		t.Errorf("Validate() = %v, want ErrMissingDeform", err)
	}
}

func TestClampRefs(t *testing.T) {
	doc := createTestDocument()
	doc.Materials[0].Texture = 7
	doc.Bones[0].Parent = 44
	doc.Faces[0][2] = 88

	issues := doc.ClampRefs()
	if len(issues) != 3 {
		t.Fatalf("ClampRefs() reported %d issues, want 3", len(issues))
	}
	if doc.Materials[0].Texture != NoRef {
		t.Errorf("texture ref = %d, want none", doc.Materials[0].Texture)
	}
	if doc.Bones[0].Parent != NoRef {
		t.Errorf("parent ref = %d, want none", doc.Bones[0].Parent)
	}
	if doc.Faces[0][2] != 0 {
		t.Errorf("face vertex = %d, want 0", doc.Faces[0][2])
	}
	if err := doc.Validate(); err != nil {
		t.Fatalf("Validate() after clamp = %v", err)
	}
}
