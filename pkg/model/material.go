package model

// MaterialFlag holds a material's rendering flag bits.
type MaterialFlag uint8

const (
	MaterialDoubleSided       MaterialFlag = 1 << 0
	MaterialGroundShadow      MaterialFlag = 1 << 1
	MaterialCastSelfShadow    MaterialFlag = 1 << 2
	MaterialReceiveSelfShadow MaterialFlag = 1 << 3
	MaterialToonEdge          MaterialFlag = 1 << 4
	MaterialVertexColor       MaterialFlag = 1 << 5
	MaterialPointDraw         MaterialFlag = 1 << 6
	MaterialLineDraw          MaterialFlag = 1 << 7
)

// SphereMode selects how the sphere texture is blended.
type SphereMode uint8

const (
	SphereDisabled   SphereMode = 0
	SphereMultiply   SphereMode = 1
	SphereAdd        SphereMode = 2
	SphereSubTexture SphereMode = 3
)

// Toon is a material's toon-shading reference: either an index into the
// document's texture table or one of the ten shared toon textures. The two
// are mutually exclusive on the wire via a mode byte.
type Toon interface {
	toon()
}

// ToonTexture references the document's texture table. Texture may be NoRef.
type ToonTexture struct {
	Texture Ref
}

// SharedToon selects one of the standard shared toon textures (0-9).
type SharedToon struct {
	ID uint8
}

func (ToonTexture) toon() {}
func (SharedToon) toon() {}

// Material holds shading parameters and a span of the face list.
// Face association is positional: each material consumes VertexCount/3 faces
// in document order.
type Material struct {
	Name   string
	NameEN string

	Diffuse   [4]float32
	Specular  [3]float32
	Shininess float32
	Ambient   [3]float32

	Flags MaterialFlag

	EdgeColor [4]float32
	EdgeSize  float32

	Texture    Ref
	Sphere     Ref
	SphereMode SphereMode
	Toon       Toon

	Memo string

	// VertexCount is the number of face vertices this material covers.
	// Always a multiple of 3.
	VertexCount int32
}
