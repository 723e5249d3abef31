package math

import "math"

// DualQuat is a dual quaternion encoding a rigid transform: Real carries the
// rotation, Dual the translation. Weighted sums of dual quaternions blend
// rigid transforms without the volume collapse linear matrix blending shows,
// which is what the QDEF vertex weighting calls for.
type DualQuat struct {
	Real Quat
	Dual Quat
}

// DualQuatIdentity returns the identity transform.
func DualQuatIdentity() DualQuat {
	return DualQuat{Real: QuatIdentity()}
}

// DualQuatFromRigid builds a dual quaternion from a unit rotation and a
// translation.
func DualQuatFromRigid(q Quat, t Vec3) DualQuat {
	// Dual part is 0.5 * (t as pure quaternion) * q.
	tq := Quat{X: t.X, Y: t.Y, Z: t.Z, W: 0}
	return DualQuat{
		Real: q,
		Dual: tq.Mul(q).Scale(0.5),
	}
}

// Add returns the componentwise sum.
func (d DualQuat) Add(other DualQuat) DualQuat {
	return DualQuat{
		Real: d.Real.Add(other.Real),
		Dual: d.Dual.Add(other.Dual),
	}
}

// Scale returns the componentwise product with a scalar.
func (d DualQuat) Scale(s float32) DualQuat {
	return DualQuat{Real: d.Real.Scale(s), Dual: d.Dual.Scale(s)}
}

// Normalize divides both parts by the real magnitude, restoring a valid
// rigid transform after a weighted blend.
func (d DualQuat) Normalize() DualQuat {
	len2 := d.Real.Dot(d.Real)
	if len2 < 1e-8 {
		return DualQuatIdentity()
	}
	inv := 1 / float32(math.Sqrt(float64(len2)))
	return d.Scale(inv)
}

// Rotation returns the rotation part.
func (d DualQuat) Rotation() Quat {
	return d.Real
}

// Translation extracts the translation part. d must be normalized.
func (d DualQuat) Translation() Vec3 {
	// t = 2 * dual * conjugate(real).
	t := d.Dual.Scale(2).Mul(d.Real.Conjugate())
	return Vec3{t.X, t.Y, t.Z}
}

// Transform applies the rigid transform to a point. d must be normalized.
func (d DualQuat) Transform(p Vec3) Vec3 {
	return d.Real.Rotate(p).Add(d.Translation())
}
