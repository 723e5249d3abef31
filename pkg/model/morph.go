package model

// MorphPanel is the UI panel a morph is grouped under.
type MorphPanel uint8

const (
	PanelSystem MorphPanel = 0
	PanelBrow   MorphPanel = 1
	PanelEye    MorphPanel = 2
	PanelMouth  MorphPanel = 3
	PanelOther  MorphPanel = 4
)

// MorphKind identifies a morph's offset-list variant.
type MorphKind uint8

const (
	MorphGroup    MorphKind = 0
	MorphVertex   MorphKind = 1
	MorphBone     MorphKind = 2
	MorphUV       MorphKind = 3 // wire tags 3-7 select the UV channel
	MorphMaterial MorphKind = 8
)

// MorphOffsets is the closed set of morph offset-list variants.
type MorphOffsets interface {
	Kind() MorphKind
}

// GroupOffset applies another morph at a factor. The target may itself be a
// group morph; cycles are rejected by Document.Validate.
type GroupOffset struct {
	Morph  Ref
	Factor float32
}

// VertexOffset moves one vertex by a position delta.
type VertexOffset struct {
	Vertex uint32
	Offset [3]float32
}

// BoneOffset moves and rotates one bone.
type BoneOffset struct {
	Bone     Ref
	Location [3]float32
	Rotation [4]float32 // quaternion x,y,z,w
}

// UVOffset shifts one vertex's texture coordinates. Channel 0 uses only the
// first two components.
type UVOffset struct {
	Vertex uint32
	Offset [4]float32
}

// MaterialBlend selects how a material offset combines with the base value.
type MaterialBlend uint8

const (
	BlendMultiply MaterialBlend = 0
	BlendAdd      MaterialBlend = 1
)

// MaterialOffset scales or shifts one material's shading parameters.
// Material may be NoRef to affect every material.
type MaterialOffset struct {
	Material Ref
	Blend    MaterialBlend

	Diffuse   [4]float32
	Specular  [3]float32
	Shininess float32
	Ambient   [3]float32
	EdgeColor [4]float32
	EdgeSize  float32
	Texture   [4]float32
	Sphere    [4]float32
	Toon      [4]float32
}

// GroupOffsets is the offset list of a group morph.
type GroupOffsets []GroupOffset

// VertexOffsets is the offset list of a vertex morph.
type VertexOffsets []VertexOffset

// BoneOffsets is the offset list of a bone morph.
type BoneOffsets []BoneOffset

// UVOffsets is the offset list of a UV morph on one channel (0-4).
type UVOffsets struct {
	Channel uint8
	Offsets []UVOffset
}

// MaterialOffsets is the offset list of a material morph.
type MaterialOffsets []MaterialOffset

func (GroupOffsets) Kind() MorphKind { return MorphGroup }
func (VertexOffsets) Kind() MorphKind { return MorphVertex }
func (BoneOffsets) Kind() MorphKind { return MorphBone }
func (UVOffsets) Kind() MorphKind { return MorphUV }
func (MaterialOffsets) Kind() MorphKind { return MorphMaterial }

// Morph is a named, weighted deformation of vertices, bones, materials, UVs
// or other morphs.
type Morph struct {
	Name   string
	NameEN string

	Panel   MorphPanel
	Offsets MorphOffsets
}
