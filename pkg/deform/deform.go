// Package deform evaluates vertex skinning: given a pose expressed as
// per-bone rigid transforms, it computes deformed vertex positions for every
// weight variant a model can carry. Evaluation is pure; the Skinner adds a
// content-addressed cache on top for hosts that re-render the same pose.
package deform

import (
	mmath "github.com/Faultbox/mmdkit/pkg/math"
	"github.com/Faultbox/mmdkit/pkg/model"
)

// Transform is one bone's posed rigid transform: a rotation applied about
// the bone's rest position, then a translation.
type Transform struct {
	Rotation    mmath.Quat
	Translation mmath.Vec3

	// Origin is the bone's rest position, the pivot of Rotation.
	Origin mmath.Vec3
}

// Identity returns the rest transform for a bone at origin.
func Identity(origin mmath.Vec3) Transform {
	return Transform{Rotation: mmath.QuatIdentity(), Origin: origin}
}

// Apply transforms a point.
func (t Transform) Apply(p mmath.Vec3) mmath.Vec3 {
	return t.Rotation.Rotate(p.Sub(t.Origin)).Add(t.Origin).Add(t.Translation)
}

// dualQuat returns the transform as a dual quaternion for QDEF blending.
func (t Transform) dualQuat() mmath.DualQuat {
	// Fold the pivot into the translation: R about o == R about 0 followed
	// by o - R(o).
	shift := t.Origin.Sub(t.Rotation.Rotate(t.Origin)).Add(t.Translation)
	return mmath.DualQuatFromRigid(t.Rotation, shift)
}

// Pose is a full skeleton pose, indexed by bone index. Bones without an
// entry rest at identity.
type Pose map[int]Transform

// transform resolves a bone reference against the pose. A none reference or
// an unposed bone contributes no motion.
func (p Pose) transform(r model.Ref) Transform {
	if r.Valid() {
		if t, ok := p[int(r)]; ok {
			return t
		}
	}
	return Transform{Rotation: mmath.QuatIdentity()}
}

// Apply skins one vertex position under the pose.
func Apply(df model.Deform, position [3]float32, pose Pose) [3]float32 {
	p := mmath.V3(position)
	switch df := df.(type) {
	case model.BDEF1:
		return pose.transform(df.Bone).Apply(p).Array()

	case model.BDEF2:
		p0 := pose.transform(df.Bones[0]).Apply(p)
		p1 := pose.transform(df.Bones[1]).Apply(p)
		return p1.Lerp(p0, df.Weight).Array()

	case model.BDEF4:
		return blendLinear(df.Bones, df.Weights, p, pose).Array()

	case model.SDEF:
		return blendSpherical(df, p, pose).Array()

	case model.QDEF:
		return blendDualQuat(df.Bones, df.Weights, p, pose).Array()
	}
	return position
}

// blendLinear is standard linear blend skinning. Weights are used as
// stored; a vertex whose weights do not sum to one scales accordingly, which
// matches how hosts treat malformed BDEF4 data.
func blendLinear(bones [4]model.Ref, weights [4]float32, p mmath.Vec3, pose Pose) mmath.Vec3 {
	var out mmath.Vec3
	for i, b := range bones {
		if weights[i] == 0 {
			continue
		}
		out = out.Add(pose.transform(b).Apply(p).Scale(weights[i]))
	}
	return out
}

// blendSpherical approximates SDEF: the rotations of the two bones are
// interpolated spherically and applied about the C control point, while C
// itself moves by the linear blend. R0 and R1 refine the split in host
// renderers; this evaluator follows the common C-centered approximation.
func blendSpherical(df model.SDEF, p mmath.Vec3, pose Pose) mmath.Vec3 {
	t0 := pose.transform(df.Bones[0])
	t1 := pose.transform(df.Bones[1])
	c := mmath.V3(df.C)

	center := t1.Apply(c).Lerp(t0.Apply(c), df.Weight)
	rot := t1.Rotation.Slerp(t0.Rotation, df.Weight)
	return rot.Rotate(p.Sub(c)).Add(center)
}

// blendDualQuat blends the bone transforms as dual quaternions, which keeps
// the blend rigid and avoids the candy-wrapper collapse of linear blending.
func blendDualQuat(bones [4]model.Ref, weights [4]float32, p mmath.Vec3, pose Pose) mmath.Vec3 {
	var sum mmath.DualQuat
	first := mmath.QuatIdentity()
	started := false
	for i, b := range bones {
		if weights[i] == 0 {
			continue
		}
		dq := pose.transform(b).dualQuat()
		if !started {
			first = dq.Real
			started = true
		} else if dq.Real.Dot(first) < 0 {
			// Antipodal quaternions blend through zero unless aligned.
			dq = dq.Scale(-1)
		}
		sum = sum.Add(dq.Scale(weights[i]))
	}
	if !started {
		return p
	}
	return sum.Normalize().Transform(p)
}
