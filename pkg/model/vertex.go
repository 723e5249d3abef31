package model

// DeformKind is the tag byte of a vertex weight-deformation variant.
type DeformKind uint8

const (
	DeformBDEF1 DeformKind = 0 // single bone, implicit weight 1
	DeformBDEF2 DeformKind = 1 // two bones, one stored weight
	DeformBDEF4 DeformKind = 2 // four bones, four weights
	DeformSDEF  DeformKind = 3 // spherical blend with control points
	DeformQDEF  DeformKind = 4 // dual-quaternion blend
)

// Deform is the closed set of vertex weight-deformation variants. The tag
// determines which fields are present on the wire, so the codec switches
// exhaustively on the concrete type.
type Deform interface {
	Kind() DeformKind
}

// BDEF1 binds a vertex rigidly to one bone.
type BDEF1 struct {
	Bone Ref
}

// BDEF2 blends two bones linearly; the second weight is 1-Weight.
type BDEF2 struct {
	Bones  [2]Ref
	Weight float32
}

// BDEF4 blends four bones linearly. Weights are stored as-is and are not
// required to sum to one.
type BDEF4 struct {
	Bones   [4]Ref
	Weights [4]float32
}

// SDEF blends two bones spherically around three auxiliary control points.
type SDEF struct {
	Bones  [2]Ref
	Weight float32
	C      [3]float32
	R0     [3]float32
	R1     [3]float32
}

// QDEF blends four bones with dual-quaternion semantics. Same wire layout as
// BDEF4.
type QDEF struct {
	Bones   [4]Ref
	Weights [4]float32
}

func (BDEF1) Kind() DeformKind { return DeformBDEF1 }
func (BDEF2) Kind() DeformKind { return DeformBDEF2 }
func (BDEF4) Kind() DeformKind { return DeformBDEF4 }
func (SDEF) Kind() DeformKind { return DeformSDEF }
func (QDEF) Kind() DeformKind { return DeformQDEF }

// Vertex is one mesh vertex with its skinning weights.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32

	// ExtraUVs holds Document.ExtraUVCount additional channels.
	ExtraUVs [][4]float32

	Deform    Deform
	EdgeScale float32
}
