/*
Package mathutil
File: vecmath.go
Description:
    Thin helpers on top of go-gl/mathgl's double-precision vector and
    quaternion types, covering exactly the operations the navigation
    state machine needs: building a "face towards" orientation from a
    direction vector, measuring the angle between two orientations, and
    slerp-ing between them. Kept separate from internal/sim so the
    rotation math can be unit tested without dragging in the entity
    world.
*/

package mathutil

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 and Quat are re-exported so callers only need to import this
// package, not mathgl directly.
type Vec3 = mgl64.Vec3
type Quat = mgl64.Quat

// YAxis and XAxis are the two "up" candidates used by FaceTowards,
// which falls back to X whenever the target direction is within 0.01
// rad of Y, since the face-towards basis is ill-defined when forward
// and up are parallel.
var (
	YAxis = Vec3{0, 1, 0}
	XAxis = Vec3{1, 0, 0}
)

// UpFor picks the stable "up" reference vector for a given forward
// direction, swapping to the X axis near the Y-axis singularity.
func UpFor(dir Vec3) Vec3 {
	if AngleBetweenVec(dir, YAxis) < 0.01 {
		return XAxis
	}
	return YAxis
}

// AngleBetweenVec returns the unsigned angle, in radians, between two
// vectors. Returns 0 if either vector is (numerically) zero-length.
func AngleBetweenVec(a, b Vec3) float64 {
	la, lb := a.Len(), b.Len()
	if la < 1e-12 || lb < 1e-12 {
		return 0
	}
	cos := a.Dot(b) / (la * lb)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos)
}

// FaceTowards builds the orientation whose local forward (+Z) axis
// points along dir, using up as the reference for "roof". Returns
// false if dir is degenerate (zero length) — the caller should keep the
// previous orientation in that case, mirroring the NaN-guard in the
// original navigation system.
func FaceTowards(dir, up Vec3) (Quat, bool) {
	if dir.Len() < 1e-9 {
		return Quat{}, false
	}
	forward := dir.Normalize()
	right := up.Cross(forward)
	if right.Len() < 1e-9 {
		return Quat{}, false
	}
	right = right.Normalize()
	realUp := forward.Cross(right)

	m := mgl64.Mat3{
		right.X(), right.Y(), right.Z(),
		realUp.X(), realUp.Y(), realUp.Z(),
		forward.X(), forward.Y(), forward.Z(),
	}
	q := mgl64.Mat4ToQuat(m.Mat4())
	if quatHasNaN(q) {
		return Quat{}, false
	}
	return q.Normalize(), true
}

func quatHasNaN(q Quat) bool {
	return math.IsNaN(q.W) || math.IsNaN(q.V.X()) || math.IsNaN(q.V.Y()) || math.IsNaN(q.V.Z())
}

// AngleBetweenQuat is the shortest rotation angle, in radians, between
// two orientations.
func AngleBetweenQuat(a, b Quat) float64 {
	dot := a.Dot(b)
	dot = math.Max(-1, math.Min(1, math.Abs(dot)))
	return 2 * math.Acos(dot)
}

// Slerp spherically interpolates from a to b by t (clamped to [0,1]).
func Slerp(a, b Quat, t float64) Quat {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return mgl64.QuatSlerp(a, b, t)
}

// Lerp linearly interpolates from a to b by t (not clamped — callers
// that need clamping, like warp spool-up, do it themselves since some
// callers intentionally overshoot then clip to the endpoint).
func Lerp(a, b Vec3, t float64) Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// AxisAngle builds the quaternion rotating by angleRad radians around
// axis, used to apply a ship's banked manual-input rotation.
func AxisAngle(axis Vec3, angleRad float64) Quat {
	if axis.Len() < 1e-9 {
		return Quat{W: 1}
	}
	return mgl64.QuatRotate(angleRad, axis.Normalize())
}

// RandomUnitVec3 returns a uniformly-ish distributed unit vector using
// the supplied [0,1) samples (so callers keep control of the RNG, and
// jump's destination jitter stays deterministic under test).
func RandomUnitVec3(rx, ry, rz float64) Vec3 {
	v := Vec3{rx - 0.5, ry - 0.5, rz - 0.5}
	if v.Len() < 1e-9 {
		return Vec3{0, 0, 1}
	}
	return v.Normalize()
}
