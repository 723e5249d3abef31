// Package pmx reads and writes the PMX rigged-model format, versions 2.0
// and 2.1. Parsing produces a model.Document; encoding validates the
// document and emits a stream with minimal index widths.
package pmx

import (
	"fmt"
	"os"

	"github.com/Faultbox/mmdkit/pkg/binio"
	"github.com/Faultbox/mmdkit/pkg/encoding"
	"github.com/Faultbox/mmdkit/pkg/model"
)

// ParseOptions relaxes parts of the strict parse contract.
type ParseOptions struct {
	// LenientIndex clamps out-of-range references to none instead of
	// failing, reporting each repair as a Diagnostic.
	LenientIndex bool

	// LenientText substitutes U+FFFD for undecodable name and comment
	// bytes instead of failing.
	LenientText bool
}

// Parse decodes a PMX stream strictly: any malformed byte, unknown variant
// tag or dangling reference is an error.
func Parse(data []byte) (*model.Document, error) {
	doc, _, err := ParseWithOptions(data, ParseOptions{})
	return doc, err
}

// ParseFile reads and parses the file at path.
func ParseFile(path string) (*model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// ParseWithOptions decodes a PMX stream under the given options. Repairs
// made by lenient modes are returned as diagnostics.
func ParseWithOptions(data []byte, opts ParseOptions) (*model.Document, []Diagnostic, error) {
	r := binio.NewReader(data)
	h, err := readHeader(r)
	if err != nil {
		return nil, nil, err
	}

	var text binio.StringCodec = h.textCodec()
	if opts.LenientText {
		text = lenientText{h.textCodec()}
	}

	d := &decoder{
		r:      r,
		text:   text,
		layout: h.layout,
		doc: &model.Document{
			Version:      h.version,
			Encoding:     h.encoding,
			ExtraUVCount: h.extraUV,
		},
	}
	layout := h.layout
	d.doc.Layout = &layout

	sections := []struct {
		name string
		read func() error
	}{
		{"model info", d.readModelInfo},
		{"vertices", d.readVertices},
		{"faces", d.readFaces},
		{"textures", d.readTextures},
		{"materials", d.readMaterials},
		{"bones", d.readBones},
		{"morphs", d.readMorphs},
		{"display frames", d.readDisplayFrames},
		{"rigid bodies", d.readRigidBodies},
		{"joints", d.readJoints},
		{"soft bodies", d.readSoftBodies},
	}
	for _, s := range sections {
		if err := s.read(); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", s.name, err)
		}
	}

	var diags []Diagnostic
	if opts.LenientIndex {
		for _, issue := range d.doc.ClampRefs() {
			diags = append(diags, Diagnostic{Section: issue.Entity, Detail: issue.String()})
		}
	} else if issues := d.doc.CheckRefs(); len(issues) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", model.ErrRefOutOfRange, issues[0])
	}
	return d.doc, diags, nil
}

// lenientText wraps a codec so undecodable bytes degrade to U+FFFD and
// unencodable runes to the encoding's replacement.
type lenientText struct {
	c *encoding.Codec
}

func (l lenientText) Decode(b []byte) (string, error) { return l.c.DecodeLenient(b), nil }
func (l lenientText) Encode(s string) ([]byte, error) { return l.c.EncodeLenient(s), nil }

type decoder struct {
	r      *binio.Reader
	text   binio.StringCodec
	layout model.IndexLayout
	doc    *model.Document
}

// count reads the 4-byte element count that prefixes every section.
// minSize is the smallest possible wire size of one element; a count that
// cannot fit in the remaining bytes fails before anything is allocated.
func (d *decoder) count(minSize int) (int, error) {
	n, err := d.r.I32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: count %d", binio.ErrNegativeLength, n)
	}
	if int64(n)*int64(minSize) > int64(d.r.Remaining()) {
		return 0, fmt.Errorf("%w: %d elements declared, %d bytes left",
			binio.ErrTruncated, n, d.r.Remaining())
	}
	return int(n), nil
}

func (d *decoder) str() (string, error) { return d.r.String(d.text) }

func (d *decoder) ref(width uint8) (model.Ref, error) {
	v, err := d.r.SignedIndex(width)
	return model.Ref(v), err
}

func (d *decoder) boneRef() (model.Ref, error) { return d.ref(d.layout.Bone) }
func (d *decoder) textureRef() (model.Ref, error) { return d.ref(d.layout.Texture) }
func (d *decoder) materialRef() (model.Ref, error) { return d.ref(d.layout.Material) }
func (d *decoder) morphRef() (model.Ref, error) { return d.ref(d.layout.Morph) }
func (d *decoder) rigidRef() (model.Ref, error) { return d.ref(d.layout.RigidBody) }

func (d *decoder) vertexRef() (uint32, error) {
	return d.r.UnsignedIndex(d.layout.Vertex)
}

func (d *decoder) readModelInfo() error {
	var err error
	for _, dst := range []*string{&d.doc.Name, &d.doc.NameEN, &d.doc.Comment, &d.doc.CommentEN} {
		if *dst, err = d.str(); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) readVertices() error {
	n, err := d.count(38)
	if err != nil {
		return err
	}
	d.doc.Vertices = make([]model.Vertex, n)
	for i := range d.doc.Vertices {
		if err := d.readVertex(&d.doc.Vertices[i]); err != nil {
			return fmt.Errorf("vertex %d: %w", i, err)
		}
	}
	return nil
}

func (d *decoder) readVertex(v *model.Vertex) error {
	var err error
	if v.Position, err = d.r.Vec3(); err != nil {
		return err
	}
	if v.Normal, err = d.r.Vec3(); err != nil {
		return err
	}
	if v.UV, err = d.r.Vec2(); err != nil {
		return err
	}
	if n := int(d.doc.ExtraUVCount); n > 0 {
		v.ExtraUVs = make([][4]float32, n)
		for i := range v.ExtraUVs {
			if v.ExtraUVs[i], err = d.r.Vec4(); err != nil {
				return err
			}
		}
	}
	if v.Deform, err = d.readDeform(); err != nil {
		return err
	}
	v.EdgeScale, err = d.r.F32()
	return err
}

func (d *decoder) readDeform() (model.Deform, error) {
	tag, err := d.r.U8()
	if err != nil {
		return nil, err
	}
	switch model.DeformKind(tag) {
	case model.DeformBDEF1:
		var df model.BDEF1
		df.Bone, err = d.boneRef()
		return df, err

	case model.DeformBDEF2:
		var df model.BDEF2
		for i := range df.Bones {
			if df.Bones[i], err = d.boneRef(); err != nil {
				return nil, err
			}
		}
		df.Weight, err = d.r.F32()
		return df, err

	case model.DeformBDEF4:
		var df model.BDEF4
		if df.Bones, df.Weights, err = d.readFourBones(); err != nil {
			return nil, err
		}
		return df, nil

	case model.DeformSDEF:
		var df model.SDEF
		for i := range df.Bones {
			if df.Bones[i], err = d.boneRef(); err != nil {
				return nil, err
			}
		}
		if df.Weight, err = d.r.F32(); err != nil {
			return nil, err
		}
		if df.C, err = d.r.Vec3(); err != nil {
			return nil, err
		}
		if df.R0, err = d.r.Vec3(); err != nil {
			return nil, err
		}
		df.R1, err = d.r.Vec3()
		return df, err

	case model.DeformQDEF:
		var df model.QDEF
		if df.Bones, df.Weights, err = d.readFourBones(); err != nil {
			return nil, err
		}
		return df, nil
	}
	return nil, &UnknownVariantError{Section: "deform", Tag: tag}
}

func (d *decoder) readFourBones() ([4]model.Ref, [4]float32, error) {
	var bones [4]model.Ref
	var weights [4]float32
	var err error
	for i := range bones {
		if bones[i], err = d.boneRef(); err != nil {
			return bones, weights, err
		}
	}
	for i := range weights {
		if weights[i], err = d.r.F32(); err != nil {
			return bones, weights, err
		}
	}
	return bones, weights, nil
}

func (d *decoder) readFaces() error {
	n, err := d.count(int(d.layout.Vertex))
	if err != nil {
		return err
	}
	if n%3 != 0 {
		return fmt.Errorf("face vertex count %d is not a multiple of 3", n)
	}
	d.doc.Faces = make([]model.Face, n/3)
	for i := range d.doc.Faces {
		for j := 0; j < 3; j++ {
			if d.doc.Faces[i][j], err = d.vertexRef(); err != nil {
				return fmt.Errorf("face %d: %w", i, err)
			}
		}
	}
	return nil
}

func (d *decoder) readTextures() error {
	n, err := d.count(4)
	if err != nil {
		return err
	}
	d.doc.Textures = make([]string, n)
	for i := range d.doc.Textures {
		if d.doc.Textures[i], err = d.str(); err != nil {
			return fmt.Errorf("texture %d: %w", i, err)
		}
	}
	return nil
}

func (d *decoder) readMaterials() error {
	n, err := d.count(70)
	if err != nil {
		return err
	}
	d.doc.Materials = make([]model.Material, n)
	for i := range d.doc.Materials {
		if err := d.readMaterial(&d.doc.Materials[i]); err != nil {
			return fmt.Errorf("material %d: %w", i, err)
		}
	}
	return nil
}

func (d *decoder) readMaterial(m *model.Material) error {
	var err error
	if m.Name, err = d.str(); err != nil {
		return err
	}
	if m.NameEN, err = d.str(); err != nil {
		return err
	}
	if m.Diffuse, err = d.r.Vec4(); err != nil {
		return err
	}
	if m.Specular, err = d.r.Vec3(); err != nil {
		return err
	}
	if m.Shininess, err = d.r.F32(); err != nil {
		return err
	}
	if m.Ambient, err = d.r.Vec3(); err != nil {
		return err
	}
	flags, err := d.r.U8()
	if err != nil {
		return err
	}
	m.Flags = model.MaterialFlag(flags)
	if m.EdgeColor, err = d.r.Vec4(); err != nil {
		return err
	}
	if m.EdgeSize, err = d.r.F32(); err != nil {
		return err
	}
	if m.Texture, err = d.textureRef(); err != nil {
		return err
	}
	if m.Sphere, err = d.textureRef(); err != nil {
		return err
	}
	mode, err := d.r.U8()
	if err != nil {
		return err
	}
	m.SphereMode = model.SphereMode(mode)

	shared, err := d.r.U8()
	if err != nil {
		return err
	}
	switch shared {
	case 0:
		var toon model.ToonTexture
		if toon.Texture, err = d.textureRef(); err != nil {
			return err
		}
		m.Toon = toon
	case 1:
		id, err := d.r.U8()
		if err != nil {
			return err
		}
		m.Toon = model.SharedToon{ID: id}
	default:
		return &UnknownVariantError{Section: "toon", Tag: shared}
	}

	if m.Memo, err = d.str(); err != nil {
		return err
	}
	m.VertexCount, err = d.r.I32()
	return err
}

func (d *decoder) readBones() error {
	n, err := d.count(27)
	if err != nil {
		return err
	}
	d.doc.Bones = make([]*model.Bone, n)
	for i := range d.doc.Bones {
		b := &model.Bone{Index: i}
		if err := d.readBone(b); err != nil {
			return fmt.Errorf("bone %d: %w", i, err)
		}
		d.doc.Bones[i] = b
	}
	return nil
}

func (d *decoder) readBone(b *model.Bone) error {
	var err error
	if b.Name, err = d.str(); err != nil {
		return err
	}
	if b.NameEN, err = d.str(); err != nil {
		return err
	}
	if b.Position, err = d.r.Vec3(); err != nil {
		return err
	}
	if b.Parent, err = d.boneRef(); err != nil {
		return err
	}
	if b.TransformOrder, err = d.r.I32(); err != nil {
		return err
	}
	flags, err := d.r.U16()
	if err != nil {
		return err
	}
	b.Flags = model.BoneFlag(flags)

	if b.HasFlag(model.BoneTailIsBone) {
		var tail model.TailBone
		if tail.Bone, err = d.boneRef(); err != nil {
			return err
		}
		b.Tail = tail
	} else {
		var tail model.TailOffset
		if tail.Offset, err = d.r.Vec3(); err != nil {
			return err
		}
		b.Tail = tail
	}

	if b.Flags&(model.BoneInheritRotate|model.BoneInheritMove) != 0 {
		at := &model.AdditionalTransform{}
		if at.Bone, err = d.boneRef(); err != nil {
			return err
		}
		if at.Influence, err = d.r.F32(); err != nil {
			return err
		}
		b.Additional = at
	}

	if b.HasFlag(model.BoneFixedAxis) {
		axis, err := d.r.Vec3()
		if err != nil {
			return err
		}
		b.FixedAxis = &axis
	}

	if b.HasFlag(model.BoneLocalAxes) {
		axes := &model.LocalAxes{}
		if axes.X, err = d.r.Vec3(); err != nil {
			return err
		}
		if axes.Z, err = d.r.Vec3(); err != nil {
			return err
		}
		b.LocalAxes = axes
	}

	if b.HasFlag(model.BoneExternalParent) {
		key, err := d.r.I32()
		if err != nil {
			return err
		}
		b.ExternalParentKey = &key
	}

	if b.HasFlag(model.BoneIsIK) {
		ik := &model.IK{}
		if ik.Target, err = d.boneRef(); err != nil {
			return err
		}
		if ik.LoopCount, err = d.r.I32(); err != nil {
			return err
		}
		if ik.AngleStep, err = d.r.F32(); err != nil {
			return err
		}
		links, err := d.count(2)
		if err != nil {
			return err
		}
		ik.Links = make([]model.IKLink, links)
		for i := range ik.Links {
			if err := d.readIKLink(&ik.Links[i]); err != nil {
				return err
			}
		}
		b.IK = ik
	}
	return nil
}

func (d *decoder) readIKLink(l *model.IKLink) error {
	var err error
	if l.Bone, err = d.boneRef(); err != nil {
		return err
	}
	limits, err := d.r.U8()
	if err != nil {
		return err
	}
	if limits != 0 {
		l.HasLimits = true
		if l.Min, err = d.r.Vec3(); err != nil {
			return err
		}
		if l.Max, err = d.r.Vec3(); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) readMorphs() error {
	n, err := d.count(14)
	if err != nil {
		return err
	}
	d.doc.Morphs = make([]model.Morph, n)
	for i := range d.doc.Morphs {
		if err := d.readMorph(&d.doc.Morphs[i]); err != nil {
			return fmt.Errorf("morph %d: %w", i, err)
		}
	}
	return nil
}

func (d *decoder) readMorph(m *model.Morph) error {
	var err error
	if m.Name, err = d.str(); err != nil {
		return err
	}
	if m.NameEN, err = d.str(); err != nil {
		return err
	}
	panel, err := d.r.U8()
	if err != nil {
		return err
	}
	m.Panel = model.MorphPanel(panel)

	tag, err := d.r.U8()
	if err != nil {
		return err
	}
	n, err := d.count(d.morphOffsetMin(tag))
	if err != nil {
		return err
	}

	switch {
	case tag == 0:
		offsets := make(model.GroupOffsets, n)
		for i := range offsets {
			if offsets[i].Morph, err = d.morphRef(); err != nil {
				return err
			}
			if offsets[i].Factor, err = d.r.F32(); err != nil {
				return err
			}
		}
		m.Offsets = offsets

	case tag == 1:
		offsets := make(model.VertexOffsets, n)
		for i := range offsets {
			if offsets[i].Vertex, err = d.vertexRef(); err != nil {
				return err
			}
			if offsets[i].Offset, err = d.r.Vec3(); err != nil {
				return err
			}
		}
		m.Offsets = offsets

	case tag == 2:
		offsets := make(model.BoneOffsets, n)
		for i := range offsets {
			if offsets[i].Bone, err = d.boneRef(); err != nil {
				return err
			}
			if offsets[i].Location, err = d.r.Vec3(); err != nil {
				return err
			}
			if offsets[i].Rotation, err = d.r.Vec4(); err != nil {
				return err
			}
		}
		m.Offsets = offsets

	case tag >= 3 && tag <= 7:
		offsets := model.UVOffsets{Channel: tag - 3, Offsets: make([]model.UVOffset, n)}
		for i := range offsets.Offsets {
			if offsets.Offsets[i].Vertex, err = d.vertexRef(); err != nil {
				return err
			}
			if offsets.Offsets[i].Offset, err = d.r.Vec4(); err != nil {
				return err
			}
		}
		m.Offsets = offsets

	case tag == 8:
		offsets := make(model.MaterialOffsets, n)
		for i := range offsets {
			if err := d.readMaterialOffset(&offsets[i]); err != nil {
				return err
			}
		}
		m.Offsets = offsets

	default:
		return &UnknownVariantError{Section: "morph", Tag: tag}
	}
	return nil
}

// morphOffsetMin returns the smallest wire size of one offset for the given
// morph tag, 1 when the tag is unknown (rejected right after the count).
func (d *decoder) morphOffsetMin(tag uint8) int {
	switch {
	case tag == 0:
		return int(d.layout.Morph) + 4
	case tag == 1:
		return int(d.layout.Vertex) + 12
	case tag == 2:
		return int(d.layout.Bone) + 28
	case tag >= 3 && tag <= 7:
		return int(d.layout.Vertex) + 16
	case tag == 8:
		return int(d.layout.Material) + 113
	}
	return 1
}

func (d *decoder) readMaterialOffset(o *model.MaterialOffset) error {
	var err error
	if o.Material, err = d.materialRef(); err != nil {
		return err
	}
	blend, err := d.r.U8()
	if err != nil {
		return err
	}
	if blend > 1 {
		return &UnknownVariantError{Section: "material blend", Tag: blend}
	}
	o.Blend = model.MaterialBlend(blend)
	if o.Diffuse, err = d.r.Vec4(); err != nil {
		return err
	}
	if o.Specular, err = d.r.Vec3(); err != nil {
		return err
	}
	if o.Shininess, err = d.r.F32(); err != nil {
		return err
	}
	if o.Ambient, err = d.r.Vec3(); err != nil {
		return err
	}
	if o.EdgeColor, err = d.r.Vec4(); err != nil {
		return err
	}
	if o.EdgeSize, err = d.r.F32(); err != nil {
		return err
	}
	if o.Texture, err = d.r.Vec4(); err != nil {
		return err
	}
	if o.Sphere, err = d.r.Vec4(); err != nil {
		return err
	}
	o.Toon, err = d.r.Vec4()
	return err
}

func (d *decoder) readDisplayFrames() error {
	n, err := d.count(13)
	if err != nil {
		return err
	}
	d.doc.DisplayFrames = make([]model.DisplayFrame, n)
	for i := range d.doc.DisplayFrames {
		f := &d.doc.DisplayFrames[i]
		if f.Name, err = d.str(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if f.NameEN, err = d.str(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		special, err := d.r.U8()
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		f.Special = special != 0
		items, err := d.count(2)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		f.Items = make([]model.DisplayItem, items)
		for j := range f.Items {
			if err := d.readDisplayItem(&f.Items[j]); err != nil {
				return fmt.Errorf("frame %d item %d: %w", i, j, err)
			}
		}
	}
	return nil
}

func (d *decoder) readDisplayItem(item *model.DisplayItem) error {
	kind, err := d.r.U8()
	if err != nil {
		return err
	}
	switch model.DisplayItemKind(kind) {
	case model.DisplayBone:
		item.Kind = model.DisplayBone
		item.Index, err = d.boneRef()
	case model.DisplayMorph:
		item.Kind = model.DisplayMorph
		item.Index, err = d.morphRef()
	default:
		return &UnknownVariantError{Section: "display item", Tag: kind}
	}
	return err
}

func (d *decoder) readRigidBodies() error {
	n, err := d.count(70)
	if err != nil {
		return err
	}
	d.doc.RigidBodies = make([]model.RigidBody, n)
	for i := range d.doc.RigidBodies {
		if err := d.readRigidBody(&d.doc.RigidBodies[i]); err != nil {
			return fmt.Errorf("rigid body %d: %w", i, err)
		}
	}
	return nil
}

func (d *decoder) readRigidBody(rb *model.RigidBody) error {
	var err error
	if rb.Name, err = d.str(); err != nil {
		return err
	}
	if rb.NameEN, err = d.str(); err != nil {
		return err
	}
	if rb.Bone, err = d.boneRef(); err != nil {
		return err
	}
	if rb.Group, err = d.r.U8(); err != nil {
		return err
	}
	if rb.NoCollision, err = d.r.U16(); err != nil {
		return err
	}
	shape, err := d.r.U8()
	if err != nil {
		return err
	}
	if shape > uint8(model.ShapeCapsule) {
		return &UnknownVariantError{Section: "rigid shape", Tag: shape}
	}
	rb.Shape = model.RigidShape(shape)
	if rb.Size, err = d.r.Vec3(); err != nil {
		return err
	}
	if rb.Position, err = d.r.Vec3(); err != nil {
		return err
	}
	if rb.Rotation, err = d.r.Vec3(); err != nil {
		return err
	}
	for _, dst := range []*float32{&rb.Mass, &rb.LinearDamping, &rb.AngularDamping, &rb.Restitution, &rb.Friction} {
		if *dst, err = d.r.F32(); err != nil {
			return err
		}
	}
	mode, err := d.r.U8()
	if err != nil {
		return err
	}
	if mode > uint8(model.ModeDynamicBone) {
		return &UnknownVariantError{Section: "rigid mode", Tag: mode}
	}
	rb.Mode = model.RigidMode(mode)
	return nil
}

func (d *decoder) readJoints() error {
	n, err := d.count(107)
	if err != nil {
		return err
	}
	d.doc.Joints = make([]model.Joint, n)
	for i := range d.doc.Joints {
		if err := d.readJoint(&d.doc.Joints[i]); err != nil {
			return fmt.Errorf("joint %d: %w", i, err)
		}
	}
	return nil
}

func (d *decoder) readJoint(j *model.Joint) error {
	var err error
	if j.Name, err = d.str(); err != nil {
		return err
	}
	if j.NameEN, err = d.str(); err != nil {
		return err
	}
	kind, err := d.r.U8()
	if err != nil {
		return err
	}
	if kind != uint8(model.JointSpring6DOF) {
		return &UnknownVariantError{Section: "joint", Tag: kind}
	}
	j.Kind = model.JointKind(kind)
	if j.BodyA, err = d.rigidRef(); err != nil {
		return err
	}
	if j.BodyB, err = d.rigidRef(); err != nil {
		return err
	}
	for _, dst := range []*[3]float32{
		&j.Position, &j.Rotation,
		&j.LinearMin, &j.LinearMax, &j.AngularMin, &j.AngularMax,
		&j.LinearSpring, &j.AngularSpring,
	} {
		if *dst, err = d.r.Vec3(); err != nil {
			return err
		}
	}
	return nil
}

// readSoftBodies handles the 2.1 trailing section. Soft bodies are not
// modeled; an empty section (or none at all) is accepted, a populated one is
// rejected rather than silently dropped.
func (d *decoder) readSoftBodies() error {
	if d.r.Remaining() == 0 {
		return nil
	}
	n, err := d.count(0) // entries are rejected below, never decoded
	if err != nil {
		return err
	}
	if n != 0 {
		return fmt.Errorf("%w: %d entries", ErrSoftBodies, n)
	}
	return nil
}
