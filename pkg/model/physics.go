package model

// RigidShape is a rigid body's collision shape.
type RigidShape uint8

const (
	ShapeSphere  RigidShape = 0
	ShapeBox     RigidShape = 1
	ShapeCapsule RigidShape = 2
)

// RigidMode selects how a rigid body and its bone interact.
type RigidMode uint8

const (
	// ModeFollowBone pins the body to its bone; collision only.
	ModeFollowBone RigidMode = 0
	// ModeDynamic lets physics drive the body and the bone follows.
	ModeDynamic RigidMode = 1
	// ModeDynamicBone is physics-driven with bone position alignment.
	ModeDynamicBone RigidMode = 2
)

// RigidBody is a simplified physics-engine proxy attached to a bone.
type RigidBody struct {
	Name   string
	NameEN string

	Bone Ref

	Group       uint8
	NoCollision uint16 // collision mask: groups this body does not collide with

	Shape    RigidShape
	Size     [3]float32
	Position [3]float32
	Rotation [3]float32 // Euler angles, radians

	Mass           float32
	LinearDamping  float32
	AngularDamping float32
	Restitution    float32
	Friction       float32

	Mode RigidMode
}

// JointKind is a joint's constraint type. Only the spring six-degree-of-
// freedom kind is defined.
type JointKind uint8

const JointSpring6DOF JointKind = 0

// Joint connects two rigid bodies with a constrained spring.
type Joint struct {
	Name   string
	NameEN string

	Kind  JointKind
	BodyA Ref
	BodyB Ref

	Position [3]float32
	Rotation [3]float32

	LinearMin  [3]float32
	LinearMax  [3]float32
	AngularMin [3]float32
	AngularMax [3]float32

	LinearSpring  [3]float32
	AngularSpring [3]float32
}
