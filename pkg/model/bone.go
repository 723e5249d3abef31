package model

// BoneFlag holds a bone's flag bits. The presence bits (tail kind, inherit,
// fixed axis, local axes, external parent, IK) are recomputed from the bone's
// fields on encode; only the free-standing behavior bits need to be set by
// callers building documents by hand.
type BoneFlag uint16

const (
	BoneTailIsBone     BoneFlag = 1 << 0
	BoneRotatable      BoneFlag = 1 << 1
	BoneMovable        BoneFlag = 1 << 2
	BoneVisible        BoneFlag = 1 << 3
	BoneControllable   BoneFlag = 1 << 4
	BoneIsIK           BoneFlag = 1 << 5
	BoneInheritLocal   BoneFlag = 1 << 7
	BoneInheritRotate  BoneFlag = 1 << 8
	BoneInheritMove    BoneFlag = 1 << 9
	BoneFixedAxis      BoneFlag = 1 << 10
	BoneLocalAxes      BoneFlag = 1 << 11
	BoneAfterPhysics   BoneFlag = 1 << 12
	BoneExternalParent BoneFlag = 1 << 13
)

// Tail is a bone's display connection: the tail either attaches to another
// bone's head or extends by a raw offset vector. Mutually exclusive by type.
type Tail interface {
	tail()
}

// TailBone attaches the bone's tail to another bone. Bone may be NoRef.
type TailBone struct {
	Bone Ref
}

// TailOffset extends the bone's tail by a vector from its head.
type TailOffset struct {
	Offset [3]float32
}

func (TailBone) tail() {}
func (TailOffset) tail() {}

// AdditionalTransform makes a bone inherit a scaled fraction of another
// bone's rotation and/or movement, selected by the inherit flag bits.
type AdditionalTransform struct {
	Bone      Ref
	Influence float32
}

// LocalAxes overrides a bone's local coordinate frame. Y is derived from the
// cross product.
type LocalAxes struct {
	X [3]float32
	Z [3]float32
}

// IKLink is one bone in an IK chain, with optional per-axis rotation limits
// in radians.
type IKLink struct {
	Bone      Ref
	HasLimits bool
	Min       [3]float32
	Max       [3]float32
}

// IK is a bone's inverse-kinematics block.
type IK struct {
	Target    Ref
	LoopCount int32
	AngleStep float32 // per-iteration angular limit, radians
	Links     []IKLink
}

// Bone is one node of the skeleton.
//
// Index is the bone's position in the document's bone ordering; decode
// assigns it sequentially and the reindexer mutates it (see reindex.go).
// Auxiliary marks helper bones inserted by a host editor, which are excluded
// from realignment and from encoding.
type Bone struct {
	Name   string
	NameEN string

	Index     int
	Auxiliary bool

	Position       [3]float32
	Parent         Ref
	TransformOrder int32
	Flags          BoneFlag

	Tail Tail

	// Optional blocks, nil when absent.
	Additional        *AdditionalTransform
	FixedAxis         *[3]float32
	LocalAxes         *LocalAxes
	ExternalParentKey *int32
	IK                *IK
}

// HasFlag reports whether all given flag bits are set.
func (b *Bone) HasFlag(f BoneFlag) bool { return b.Flags&f == f }
