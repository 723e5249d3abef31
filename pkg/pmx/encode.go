package pmx

import (
	"fmt"
	"os"
	"sort"

	"github.com/Faultbox/mmdkit/pkg/binio"
	"github.com/Faultbox/mmdkit/pkg/encoding"
	"github.com/Faultbox/mmdkit/pkg/model"
)

// EncodeOptions adjusts how a document is written.
type EncodeOptions struct {
	// TextEncoding overrides the document's string encoding on the wire.
	TextEncoding *model.TextEncoding

	// PreserveIndexWidths reuses the widths the document was parsed with
	// instead of recomputing minimal ones. Ignored when the document has
	// no recorded layout or a collection outgrew its recorded width.
	PreserveIndexWidths bool
}

// Encode validates doc and writes it as a PMX stream with minimal index
// widths.
func Encode(doc *model.Document) ([]byte, error) {
	return EncodeWithOptions(doc, EncodeOptions{})
}

// WriteFile encodes doc and writes the result to path.
func WriteFile(path string, doc *model.Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// EncodeWithOptions validates doc and writes it under the given options.
// Auxiliary bones are not written; their indices must therefore sit outside
// the dense range covered by the regular bones.
func EncodeWithOptions(doc *model.Document, opts EncodeOptions) ([]byte, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	bones, err := orderedBones(doc)
	if err != nil {
		return nil, err
	}

	h := &header{
		version:  doc.Version,
		encoding: doc.Encoding,
		extraUV:  doc.ExtraUVCount,
		layout:   minimalLayout(doc, bones),
	}
	if h.version != 2.0 && h.version != 2.1 {
		return nil, fmt.Errorf("%w: %g", ErrVersion, h.version)
	}
	if needsV21(doc) {
		h.version = 2.1
	}
	if opts.TextEncoding != nil {
		h.encoding = *opts.TextEncoding
	}
	if opts.PreserveIndexWidths && doc.Layout != nil && layoutFits(doc, bones, *doc.Layout) {
		h.layout = *doc.Layout
	}

	e := &encoder{
		w:      binio.NewWriter(),
		text:   h.textCodec(),
		layout: h.layout,
		doc:    doc,
		bones:  bones,
	}
	h.write(e.w)

	sections := []struct {
		name  string
		write func() error
	}{
		{"model info", e.writeModelInfo},
		{"vertices", e.writeVertices},
		{"faces", e.writeFaces},
		{"textures", e.writeTextures},
		{"materials", e.writeMaterials},
		{"bones", e.writeBones},
		{"morphs", e.writeMorphs},
		{"display frames", e.writeDisplayFrames},
		{"rigid bodies", e.writeRigidBodies},
		{"joints", e.writeJoints},
	}
	for _, s := range sections {
		if err := s.write(); err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
	}
	if h.version == 2.1 {
		e.w.I32(0) // no soft bodies
	}
	return e.w.Bytes(), nil
}

// orderedBones returns the non-auxiliary bones sorted by index, verifying
// the indices form a dense range from zero.
func orderedBones(doc *model.Document) ([]*model.Bone, error) {
	var bones []*model.Bone
	for _, b := range doc.Bones {
		if !b.Auxiliary {
			bones = append(bones, b)
		}
	}
	sort.SliceStable(bones, func(i, j int) bool { return bones[i].Index < bones[j].Index })
	for i, b := range bones {
		if b.Index != i {
			return nil, fmt.Errorf("%w: bone %q has index %d, want %d", ErrBoneOrder, b.Name, b.Index, i)
		}
	}
	return bones, nil
}

// minimalLayout computes the smallest valid width for every index kind.
func minimalLayout(doc *model.Document, bones []*model.Bone) model.IndexLayout {
	return model.IndexLayout{
		Vertex:    binio.MinUnsignedIndexWidth(len(doc.Vertices)),
		Texture:   binio.MinSignedIndexWidth(len(doc.Textures)),
		Material:  binio.MinSignedIndexWidth(len(doc.Materials)),
		Bone:      binio.MinSignedIndexWidth(len(bones)),
		Morph:     binio.MinSignedIndexWidth(len(doc.Morphs)),
		RigidBody: binio.MinSignedIndexWidth(len(doc.RigidBodies)),
	}
}

// layoutFits reports whether every collection still fits the given widths.
func layoutFits(doc *model.Document, bones []*model.Bone, l model.IndexLayout) bool {
	return binio.UnsignedIndexFits(len(doc.Vertices), l.Vertex) &&
		binio.SignedIndexFits(len(doc.Textures), l.Texture) &&
		binio.SignedIndexFits(len(doc.Materials), l.Material) &&
		binio.SignedIndexFits(len(bones), l.Bone) &&
		binio.SignedIndexFits(len(doc.Morphs), l.Morph) &&
		binio.SignedIndexFits(len(doc.RigidBodies), l.RigidBody)
}

// needsV21 reports whether the document uses a feature absent from 2.0.
func needsV21(doc *model.Document) bool {
	for i := range doc.Vertices {
		if _, ok := doc.Vertices[i].Deform.(model.QDEF); ok {
			return true
		}
	}
	return false
}

type encoder struct {
	w      *binio.Writer
	text   *encoding.Codec
	layout model.IndexLayout
	doc    *model.Document
	bones  []*model.Bone
}

func (e *encoder) str(s string) error { return e.w.String(e.text, s) }

func (e *encoder) ref(width uint8, r model.Ref) error {
	if !r.Valid() {
		return e.w.SignedIndex(width, binio.NoIndex)
	}
	return e.w.SignedIndex(width, int32(r))
}

// boneRef writes a bone reference. Auxiliary bones are not written, so a
// reference resolving to one is remapped to none along with the bone itself;
// after orderedBones the written bones occupy exactly [0, len(bones)).
func (e *encoder) boneRef(r model.Ref) error {
	if r.Valid() && int(r) >= len(e.bones) {
		r = model.NoRef
	}
	return e.ref(e.layout.Bone, r)
}
func (e *encoder) textureRef(r model.Ref) error { return e.ref(e.layout.Texture, r) }
func (e *encoder) materialRef(r model.Ref) error { return e.ref(e.layout.Material, r) }
func (e *encoder) morphRef(r model.Ref) error { return e.ref(e.layout.Morph, r) }
func (e *encoder) rigidRef(r model.Ref) error { return e.ref(e.layout.RigidBody, r) }

func (e *encoder) vertexRef(v uint32) error {
	return e.w.UnsignedIndex(e.layout.Vertex, v)
}

func (e *encoder) writeModelInfo() error {
	for _, s := range []string{e.doc.Name, e.doc.NameEN, e.doc.Comment, e.doc.CommentEN} {
		if err := e.str(s); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) writeVertices() error {
	e.w.I32(int32(len(e.doc.Vertices)))
	for i := range e.doc.Vertices {
		if err := e.writeVertex(&e.doc.Vertices[i]); err != nil {
			return fmt.Errorf("vertex %d: %w", i, err)
		}
	}
	return nil
}

func (e *encoder) writeVertex(v *model.Vertex) error {
	e.w.Vec3(v.Position)
	e.w.Vec3(v.Normal)
	e.w.Vec2(v.UV)
	for i := 0; i < int(e.doc.ExtraUVCount); i++ {
		var uv [4]float32
		if i < len(v.ExtraUVs) {
			uv = v.ExtraUVs[i]
		}
		e.w.Vec4(uv)
	}
	if err := e.writeDeform(v.Deform); err != nil {
		return err
	}
	e.w.F32(v.EdgeScale)
	return nil
}

func (e *encoder) writeDeform(df model.Deform) error {
	e.w.U8(uint8(df.Kind()))
	switch df := df.(type) {
	case model.BDEF1:
		return e.boneRef(df.Bone)

	case model.BDEF2:
		for _, b := range df.Bones {
			if err := e.boneRef(b); err != nil {
				return err
			}
		}
		e.w.F32(df.Weight)
		return nil

	case model.BDEF4:
		return e.writeFourBones(df.Bones, df.Weights)

	case model.SDEF:
		for _, b := range df.Bones {
			if err := e.boneRef(b); err != nil {
				return err
			}
		}
		e.w.F32(df.Weight)
		e.w.Vec3(df.C)
		e.w.Vec3(df.R0)
		e.w.Vec3(df.R1)
		return nil

	case model.QDEF:
		return e.writeFourBones(df.Bones, df.Weights)
	}
	return &UnknownVariantError{Section: "deform", Tag: uint8(df.Kind())}
}

func (e *encoder) writeFourBones(bones [4]model.Ref, weights [4]float32) error {
	for _, b := range bones {
		if err := e.boneRef(b); err != nil {
			return err
		}
	}
	for _, w := range weights {
		e.w.F32(w)
	}
	return nil
}

func (e *encoder) writeFaces() error {
	e.w.I32(int32(3 * len(e.doc.Faces)))
	for i := range e.doc.Faces {
		for _, v := range e.doc.Faces[i] {
			if err := e.vertexRef(v); err != nil {
				return fmt.Errorf("face %d: %w", i, err)
			}
		}
	}
	return nil
}

func (e *encoder) writeTextures() error {
	e.w.I32(int32(len(e.doc.Textures)))
	for i, t := range e.doc.Textures {
		if err := e.str(t); err != nil {
			return fmt.Errorf("texture %d: %w", i, err)
		}
	}
	return nil
}

func (e *encoder) writeMaterials() error {
	e.w.I32(int32(len(e.doc.Materials)))
	for i := range e.doc.Materials {
		if err := e.writeMaterial(&e.doc.Materials[i]); err != nil {
			return fmt.Errorf("material %d: %w", i, err)
		}
	}
	return nil
}

func (e *encoder) writeMaterial(m *model.Material) error {
	if err := e.str(m.Name); err != nil {
		return err
	}
	if err := e.str(m.NameEN); err != nil {
		return err
	}
	e.w.Vec4(m.Diffuse)
	e.w.Vec3(m.Specular)
	e.w.F32(m.Shininess)
	e.w.Vec3(m.Ambient)
	e.w.U8(uint8(m.Flags))
	e.w.Vec4(m.EdgeColor)
	e.w.F32(m.EdgeSize)
	if err := e.textureRef(m.Texture); err != nil {
		return err
	}
	if err := e.textureRef(m.Sphere); err != nil {
		return err
	}
	e.w.U8(uint8(m.SphereMode))

	switch toon := m.Toon.(type) {
	case model.SharedToon:
		e.w.U8(1)
		e.w.U8(toon.ID)
	case model.ToonTexture:
		e.w.U8(0)
		if err := e.textureRef(toon.Texture); err != nil {
			return err
		}
	default: // nil means no toon reference
		e.w.U8(0)
		if err := e.textureRef(model.NoRef); err != nil {
			return err
		}
	}

	if err := e.str(m.Memo); err != nil {
		return err
	}
	e.w.I32(m.VertexCount)
	return nil
}

func (e *encoder) writeBones() error {
	e.w.I32(int32(len(e.bones)))
	for i, b := range e.bones {
		if err := e.writeBone(b); err != nil {
			return fmt.Errorf("bone %d: %w", i, err)
		}
	}
	return nil
}

// boneWireFlags reconciles the stored flag word with the optional blocks
// actually present, so the conditional wire layout always matches the data.
func boneWireFlags(b *model.Bone) model.BoneFlag {
	flags := b.Flags
	set := func(f model.BoneFlag, on bool) {
		if on {
			flags |= f
		} else {
			flags &^= f
		}
	}
	_, tailIsBone := b.Tail.(model.TailBone)
	set(model.BoneTailIsBone, tailIsBone)
	if b.Additional == nil {
		set(model.BoneInheritRotate, false)
		set(model.BoneInheritMove, false)
	} else if flags&(model.BoneInheritRotate|model.BoneInheritMove) == 0 {
		set(model.BoneInheritRotate, true)
	}
	set(model.BoneFixedAxis, b.FixedAxis != nil)
	set(model.BoneLocalAxes, b.LocalAxes != nil)
	set(model.BoneExternalParent, b.ExternalParentKey != nil)
	set(model.BoneIsIK, b.IK != nil)
	return flags
}

func (e *encoder) writeBone(b *model.Bone) error {
	if err := e.str(b.Name); err != nil {
		return err
	}
	if err := e.str(b.NameEN); err != nil {
		return err
	}
	e.w.Vec3(b.Position)
	if err := e.boneRef(b.Parent); err != nil {
		return err
	}
	e.w.I32(b.TransformOrder)

	flags := boneWireFlags(b)
	e.w.U16(uint16(flags))

	switch tail := b.Tail.(type) {
	case model.TailBone:
		if err := e.boneRef(tail.Bone); err != nil {
			return err
		}
	case model.TailOffset:
		e.w.Vec3(tail.Offset)
	default: // nil means a zero offset tail
		e.w.Vec3([3]float32{})
	}

	if b.Additional != nil {
		if err := e.boneRef(b.Additional.Bone); err != nil {
			return err
		}
		e.w.F32(b.Additional.Influence)
	}
	if b.FixedAxis != nil {
		e.w.Vec3(*b.FixedAxis)
	}
	if b.LocalAxes != nil {
		e.w.Vec3(b.LocalAxes.X)
		e.w.Vec3(b.LocalAxes.Z)
	}
	if b.ExternalParentKey != nil {
		e.w.I32(*b.ExternalParentKey)
	}
	if b.IK != nil {
		if err := e.boneRef(b.IK.Target); err != nil {
			return err
		}
		e.w.I32(b.IK.LoopCount)
		e.w.F32(b.IK.AngleStep)
		e.w.I32(int32(len(b.IK.Links)))
		for i := range b.IK.Links {
			l := &b.IK.Links[i]
			if err := e.boneRef(l.Bone); err != nil {
				return err
			}
			if l.HasLimits {
				e.w.U8(1)
				e.w.Vec3(l.Min)
				e.w.Vec3(l.Max)
			} else {
				e.w.U8(0)
			}
		}
	}
	return nil
}

func (e *encoder) writeMorphs() error {
	e.w.I32(int32(len(e.doc.Morphs)))
	for i := range e.doc.Morphs {
		if err := e.writeMorph(&e.doc.Morphs[i]); err != nil {
			return fmt.Errorf("morph %d: %w", i, err)
		}
	}
	return nil
}

func (e *encoder) writeMorph(m *model.Morph) error {
	if err := e.str(m.Name); err != nil {
		return err
	}
	if err := e.str(m.NameEN); err != nil {
		return err
	}
	e.w.U8(uint8(m.Panel))

	switch offsets := m.Offsets.(type) {
	case model.GroupOffsets:
		e.w.U8(0)
		e.w.I32(int32(len(offsets)))
		for _, o := range offsets {
			if err := e.morphRef(o.Morph); err != nil {
				return err
			}
			e.w.F32(o.Factor)
		}

	case model.VertexOffsets:
		e.w.U8(1)
		e.w.I32(int32(len(offsets)))
		for _, o := range offsets {
			if err := e.vertexRef(o.Vertex); err != nil {
				return err
			}
			e.w.Vec3(o.Offset)
		}

	case model.BoneOffsets:
		e.w.U8(2)
		e.w.I32(int32(len(offsets)))
		for _, o := range offsets {
			if err := e.boneRef(o.Bone); err != nil {
				return err
			}
			e.w.Vec3(o.Location)
			e.w.Vec4(o.Rotation)
		}

	case model.UVOffsets:
		if offsets.Channel > 4 {
			return &UnknownVariantError{Section: "morph", Tag: 3 + offsets.Channel}
		}
		e.w.U8(3 + offsets.Channel)
		e.w.I32(int32(len(offsets.Offsets)))
		for _, o := range offsets.Offsets {
			if err := e.vertexRef(o.Vertex); err != nil {
				return err
			}
			e.w.Vec4(o.Offset)
		}

	case model.MaterialOffsets:
		e.w.U8(8)
		e.w.I32(int32(len(offsets)))
		for i := range offsets {
			if err := e.writeMaterialOffset(&offsets[i]); err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("morph %q has no offsets", m.Name)
	}
	return nil
}

func (e *encoder) writeMaterialOffset(o *model.MaterialOffset) error {
	if err := e.materialRef(o.Material); err != nil {
		return err
	}
	e.w.U8(uint8(o.Blend))
	e.w.Vec4(o.Diffuse)
	e.w.Vec3(o.Specular)
	e.w.F32(o.Shininess)
	e.w.Vec3(o.Ambient)
	e.w.Vec4(o.EdgeColor)
	e.w.F32(o.EdgeSize)
	e.w.Vec4(o.Texture)
	e.w.Vec4(o.Sphere)
	e.w.Vec4(o.Toon)
	return nil
}

func (e *encoder) writeDisplayFrames() error {
	e.w.I32(int32(len(e.doc.DisplayFrames)))
	for i := range e.doc.DisplayFrames {
		f := &e.doc.DisplayFrames[i]
		if err := e.str(f.Name); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if err := e.str(f.NameEN); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if f.Special {
			e.w.U8(1)
		} else {
			e.w.U8(0)
		}
		e.w.I32(int32(len(f.Items)))
		for j := range f.Items {
			item := f.Items[j]
			e.w.U8(uint8(item.Kind))
			var err error
			if item.Kind == model.DisplayMorph {
				err = e.morphRef(item.Index)
			} else {
				err = e.boneRef(item.Index)
			}
			if err != nil {
				return fmt.Errorf("frame %d item %d: %w", i, j, err)
			}
		}
	}
	return nil
}

func (e *encoder) writeRigidBodies() error {
	e.w.I32(int32(len(e.doc.RigidBodies)))
	for i := range e.doc.RigidBodies {
		rb := &e.doc.RigidBodies[i]
		if err := e.str(rb.Name); err != nil {
			return fmt.Errorf("rigid body %d: %w", i, err)
		}
		if err := e.str(rb.NameEN); err != nil {
			return fmt.Errorf("rigid body %d: %w", i, err)
		}
		if err := e.boneRef(rb.Bone); err != nil {
			return fmt.Errorf("rigid body %d: %w", i, err)
		}
		e.w.U8(rb.Group)
		e.w.U16(rb.NoCollision)
		e.w.U8(uint8(rb.Shape))
		e.w.Vec3(rb.Size)
		e.w.Vec3(rb.Position)
		e.w.Vec3(rb.Rotation)
		e.w.F32(rb.Mass)
		e.w.F32(rb.LinearDamping)
		e.w.F32(rb.AngularDamping)
		e.w.F32(rb.Restitution)
		e.w.F32(rb.Friction)
		e.w.U8(uint8(rb.Mode))
	}
	return nil
}

func (e *encoder) writeJoints() error {
	e.w.I32(int32(len(e.doc.Joints)))
	for i := range e.doc.Joints {
		j := &e.doc.Joints[i]
		if err := e.str(j.Name); err != nil {
			return fmt.Errorf("joint %d: %w", i, err)
		}
		if err := e.str(j.NameEN); err != nil {
			return fmt.Errorf("joint %d: %w", i, err)
		}
		e.w.U8(uint8(j.Kind))
		if err := e.rigidRef(j.BodyA); err != nil {
			return fmt.Errorf("joint %d: %w", i, err)
		}
		if err := e.rigidRef(j.BodyB); err != nil {
			return fmt.Errorf("joint %d: %w", i, err)
		}
		for _, v := range [][3]float32{
			j.Position, j.Rotation,
			j.LinearMin, j.LinearMax, j.AngularMin, j.AngularMax,
			j.LinearSpring, j.AngularSpring,
		} {
			e.w.Vec3(v)
		}
	}
	return nil
}
