package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetWarpToRejectedWhileAlreadyWarping(t *testing.T) {
	nav := &Navigation{WarpState: Aligning}
	ok := SetWarpTo(nav, NavTarget{Kind: TargetPoint, Point: Vec3{1, 0, 0}}, 0)
	require.False(t, ok)
}

func TestSetApproachRejectedWhileWarping(t *testing.T) {
	nav := &Navigation{WarpState: Warping}
	ok := SetApproach(nav, NavTarget{Kind: TargetPoint, Point: Vec3{1, 0, 0}})
	require.False(t, ok)
	require.Equal(t, NavAction(0), nav.CurAction)
}

func TestTickTransformsIntegratesVelocity(t *testing.T) {
	w := NewWorld()
	e := w.NewEntity()
	w.Transforms.Set(e, Transform{Pos: Vec3{0, 0, 0}, Vel: Vec3{10, 0, 0}})

	TickTransforms(w, 2.0)

	tf := w.Transforms.Get(e)
	require.Equal(t, Vec3{20, 0, 0}, tf.Pos)
}

func TestHandleWarpToSpoolsUpBeforeMoving(t *testing.T) {
	w := NewWorld()
	ix := NewIndexes()
	e := w.NewEntity()
	tf := Transform{Pos: Vec3{0, 0, 0}, Rot: Quat{W: 1}}
	w.Transforms.Set(e, tf)
	nav := Navigation{
		CurAction: NavWarp,
		WarpState: Warping,
		WarpSpool: 0,
		Target:    NavTarget{Kind: TargetPoint, Point: Vec3{1_000_000, 0, 0}},
	}
	w.Navigations.Set(e, nav)
	stats := ShipStats{WarpSpeedMS: 50_000_000, WarpSpoolS: 2.0}
	w.Ships.Set(e, ShipComp{Stats: stats})

	navPtr := w.Navigations.Get(e)
	tfPtr := w.Transforms.Get(e)
	handleWarpTo(w, ix, e, navPtr, tfPtr, &stats, 0.5)

	require.InDelta(t, 0.25, navPtr.WarpSpool, 1e-9)
	require.Equal(t, Vec3{0, 0, 0}, tfPtr.Pos, "position must not move until spool reaches 1")
}
