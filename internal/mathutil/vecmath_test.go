package mathutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpForSwapsAxisNearSingularity(t *testing.T) {
	require.Equal(t, YAxis, UpFor(Vec3{1, 0, 0}))
	require.Equal(t, XAxis, UpFor(Vec3{0, 1, 0}))
}

func TestFaceTowardsProducesUnitQuaternion(t *testing.T) {
	q, ok := FaceTowards(Vec3{1, 0, 0}, YAxis)
	require.True(t, ok)
	require.InDelta(t, 1.0, q.Len(), 1e-9)
}

func TestFaceTowardsDegenerateDirection(t *testing.T) {
	_, ok := FaceTowards(Vec3{0, 0, 0}, YAxis)
	require.False(t, ok)
}

func TestAngleBetweenVecOrthogonal(t *testing.T) {
	got := AngleBetweenVec(Vec3{1, 0, 0}, Vec3{0, 1, 0})
	require.InDelta(t, math.Pi/2, got, 1e-9)
}

func TestSlerpClampsT(t *testing.T) {
	a := Quat{W: 1}
	b, _ := FaceTowards(Vec3{1, 0, 0}, YAxis)
	require.InDelta(t, 0.0, AngleBetweenQuat(a, Slerp(a, b, -1)), 1e-6)
	require.InDelta(t, 0.0, AngleBetweenQuat(b, Slerp(a, b, 5)), 1e-6)
}

func TestRandomUnitVec3IsNormalized(t *testing.T) {
	v := RandomUnitVec3(0.9, 0.1, 0.5)
	require.InDelta(t, 1.0, v.Len(), 1e-9)
}
