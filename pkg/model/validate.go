package model

import (
	"errors"
	"fmt"
)

var (
	// ErrRefOutOfRange reports a reference pointing past the end of its
	// target collection.
	ErrRefOutOfRange = errors.New("model: reference out of range")

	// ErrMaterialSpan reports material vertex counts that do not cover the
	// face list exactly.
	ErrMaterialSpan = errors.New("model: material spans do not cover face list")

	// ErrMorphCycle reports a group morph that reaches itself through other
	// group morphs.
	ErrMorphCycle = errors.New("model: group morph cycle")

	// ErrBoneCycle reports a bone whose parent chain loops.
	ErrBoneCycle = errors.New("model: bone parent cycle")

	// ErrMissingDeform reports a vertex with no skinning weights.
	ErrMissingDeform = errors.New("model: vertex has no deform")

	// ErrTooManyElements reports a collection too large to address with a
	// 4-byte index.
	ErrTooManyElements = errors.New("model: collection exceeds index capacity")
)

// RefIssue describes one dangling reference found by CheckRefs.
type RefIssue struct {
	Entity string // owning collection, e.g. "vertex", "morph"
	Index  int    // position of the owner in its collection
	Field  string // which reference field
	Value  int32  // the out-of-range value
	Limit  int    // size of the target collection
}

func (i RefIssue) String() string {
	return fmt.Sprintf("%s[%d].%s = %d (target has %d entries)", i.Entity, i.Index, i.Field, i.Value, i.Limit)
}

// Validate checks structural consistency: every reference resolves or is
// none, material spans cover the face list, group morphs are acyclic, bone
// parent chains terminate and no collection overflows a 4-byte index.
func (d *Document) Validate() error {
	const maxElements = 1 << 31
	for _, n := range []struct {
		name  string
		count int
	}{
		{"vertices", len(d.Vertices)},
		{"faces", len(d.Faces)},
		{"textures", len(d.Textures)},
		{"materials", len(d.Materials)},
		{"bones", len(d.Bones)},
		{"morphs", len(d.Morphs)},
		{"rigid bodies", len(d.RigidBodies)},
	} {
		if n.count >= maxElements {
			return fmt.Errorf("%w: %d %s", ErrTooManyElements, n.count, n.name)
		}
	}

	for i := range d.Vertices {
		if d.Vertices[i].Deform == nil {
			return fmt.Errorf("%w: vertex %d", ErrMissingDeform, i)
		}
	}

	if issues := d.CheckRefs(); len(issues) > 0 {
		return fmt.Errorf("%w: %s", ErrRefOutOfRange, issues[0])
	}

	total := 0
	for i := range d.Materials {
		n := d.Materials[i].VertexCount
		if n < 0 || n%3 != 0 {
			return fmt.Errorf("%w: material %d covers %d vertices", ErrMaterialSpan, i, n)
		}
		total += int(n)
	}
	if len(d.Materials) > 0 && total != 3*len(d.Faces) {
		return fmt.Errorf("%w: spans cover %d of %d face vertices", ErrMaterialSpan, total, 3*len(d.Faces))
	}

	if err := d.checkMorphCycles(); err != nil {
		return err
	}
	return d.checkBoneCycles()
}

// CheckRefs scans every reference in the document and reports the ones that
// point outside their target collection. A none reference is never an issue.
func (d *Document) CheckRefs() []RefIssue {
	return d.walkRefs(nil)
}

// ClampRefs rewrites every dangling reference to none (or to zero for
// unsigned vertex references, which have no none) and reports what changed.
func (d *Document) ClampRefs() []RefIssue {
	issues := d.walkRefs(func(r *Ref) { *r = NoRef })
	return issues
}

// walkRefs visits every reference field. When fixRef is non-nil, dangling
// signed references are rewritten through it and dangling unsigned vertex
// references are clamped to zero.
func (d *Document) walkRefs(fixRef func(*Ref)) []RefIssue {
	var issues []RefIssue

	boneOK := make(map[int]bool, len(d.Bones))
	for _, b := range d.Bones {
		boneOK[b.Index] = true
	}

	checkBone := func(entity string, idx int, field string, r *Ref) {
		if !r.Valid() || boneOK[int(*r)] {
			return
		}
		issues = append(issues, RefIssue{entity, idx, field, int32(*r), len(d.Bones)})
		if fixRef != nil {
			fixRef(r)
		}
	}
	check := func(entity string, idx int, field string, r *Ref, limit int) {
		if !r.Valid() || int(*r) < limit {
			return
		}
		issues = append(issues, RefIssue{entity, idx, field, int32(*r), limit})
		if fixRef != nil {
			fixRef(r)
		}
	}
	checkVertex := func(entity string, idx int, field string, v *uint32) {
		if int(*v) < len(d.Vertices) {
			return
		}
		issues = append(issues, RefIssue{entity, idx, field, int32(*v), len(d.Vertices)})
		if fixRef != nil {
			*v = 0
		}
	}

	for i := range d.Vertices {
		switch df := d.Vertices[i].Deform.(type) {
		case BDEF1:
			checkBone("vertex", i, "bone", &df.Bone)
			d.Vertices[i].Deform = df
		case BDEF2:
			for j := range df.Bones {
				checkBone("vertex", i, fmt.Sprintf("bone%d", j), &df.Bones[j])
			}
			d.Vertices[i].Deform = df
		case BDEF4:
			for j := range df.Bones {
				checkBone("vertex", i, fmt.Sprintf("bone%d", j), &df.Bones[j])
			}
			d.Vertices[i].Deform = df
		case SDEF:
			for j := range df.Bones {
				checkBone("vertex", i, fmt.Sprintf("bone%d", j), &df.Bones[j])
			}
			d.Vertices[i].Deform = df
		case QDEF:
			for j := range df.Bones {
				checkBone("vertex", i, fmt.Sprintf("bone%d", j), &df.Bones[j])
			}
			d.Vertices[i].Deform = df
		}
	}

	for i := range d.Faces {
		for j := range d.Faces[i] {
			checkVertex("face", i, fmt.Sprintf("vertex%d", j), &d.Faces[i][j])
		}
	}

	for i := range d.Materials {
		m := &d.Materials[i]
		check("material", i, "texture", &m.Texture, len(d.Textures))
		check("material", i, "sphere", &m.Sphere, len(d.Textures))
		if tt, ok := m.Toon.(ToonTexture); ok {
			check("material", i, "toon", &tt.Texture, len(d.Textures))
			m.Toon = tt
		}
	}

	for i, b := range d.Bones {
		checkBone("bone", i, "parent", &b.Parent)
		if tb, ok := b.Tail.(TailBone); ok {
			checkBone("bone", i, "tail", &tb.Bone)
			b.Tail = tb
		}
		if b.Additional != nil {
			checkBone("bone", i, "additional", &b.Additional.Bone)
		}
		if b.IK != nil {
			checkBone("bone", i, "ik target", &b.IK.Target)
			for j := range b.IK.Links {
				checkBone("bone", i, fmt.Sprintf("ik link %d", j), &b.IK.Links[j].Bone)
			}
		}
	}

	for i := range d.Morphs {
		switch offsets := d.Morphs[i].Offsets.(type) {
		case GroupOffsets:
			for j := range offsets {
				check("morph", i, fmt.Sprintf("group %d", j), &offsets[j].Morph, len(d.Morphs))
			}
		case VertexOffsets:
			for j := range offsets {
				checkVertex("morph", i, fmt.Sprintf("vertex %d", j), &offsets[j].Vertex)
			}
		case BoneOffsets:
			for j := range offsets {
				checkBone("morph", i, fmt.Sprintf("bone %d", j), &offsets[j].Bone)
			}
		case UVOffsets:
			for j := range offsets.Offsets {
				checkVertex("morph", i, fmt.Sprintf("uv %d", j), &offsets.Offsets[j].Vertex)
			}
			d.Morphs[i].Offsets = offsets
		case MaterialOffsets:
			for j := range offsets {
				check("morph", i, fmt.Sprintf("material %d", j), &offsets[j].Material, len(d.Materials))
			}
		}
	}

	for i := range d.DisplayFrames {
		items := d.DisplayFrames[i].Items
		for j := range items {
			switch items[j].Kind {
			case DisplayBone:
				checkBone("display frame", i, fmt.Sprintf("item %d", j), &items[j].Index)
			case DisplayMorph:
				check("display frame", i, fmt.Sprintf("item %d", j), &items[j].Index, len(d.Morphs))
			}
		}
	}

	for i := range d.RigidBodies {
		checkBone("rigid body", i, "bone", &d.RigidBodies[i].Bone)
	}

	for i := range d.Joints {
		check("joint", i, "body a", &d.Joints[i].BodyA, len(d.RigidBodies))
		check("joint", i, "body b", &d.Joints[i].BodyB, len(d.RigidBodies))
	}

	return issues
}

// checkMorphCycles runs a three-color depth-first search over group morph
// references.
func (d *Document) checkMorphCycles() error {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	state := make([]uint8, len(d.Morphs))

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case grey:
			return fmt.Errorf("%w: morph %q", ErrMorphCycle, d.Morphs[i].Name)
		case black:
			return nil
		}
		state[i] = grey
		if offsets, ok := d.Morphs[i].Offsets.(GroupOffsets); ok {
			for _, o := range offsets {
				if o.Morph.Valid() && int(o.Morph) < len(d.Morphs) {
					if err := visit(int(o.Morph)); err != nil {
						return err
					}
				}
			}
		}
		state[i] = black
		return nil
	}

	for i := range d.Morphs {
		if err := visit(i); err != nil {
			return err
		}
	}
	return nil
}

// checkBoneCycles follows each bone's parent chain and fails if it does not
// terminate at a root within len(Bones) steps.
func (d *Document) checkBoneCycles() error {
	byIndex := make(map[int]*Bone, len(d.Bones))
	for _, b := range d.Bones {
		byIndex[b.Index] = b
	}
	for _, b := range d.Bones {
		cur := b
		for steps := 0; cur.Parent.Valid(); steps++ {
			if steps > len(d.Bones) {
				return fmt.Errorf("%w: bone %q", ErrBoneCycle, b.Name)
			}
			next, ok := byIndex[int(cur.Parent)]
			if !ok {
				break
			}
			cur = next
		}
	}
	return nil
}
