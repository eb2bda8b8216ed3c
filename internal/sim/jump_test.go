package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func setupJumpScenario(t *testing.T) (*World, *Indexes, *Bus, EntityID, EntityID) {
	t.Helper()
	w := NewWorld()
	ix := NewIndexes()
	bus := NewBus()

	srcGate := w.NewEntity()
	srcPath := NewObjPath("sol", KindGate, "sol-alpha-gate")
	dstPath := NewObjPath("alpha", KindGate, "alpha-sol-gate")
	w.GameObjects.Set(srcGate, GameObject{Path: srcPath})
	w.Transforms.Set(srcGate, Transform{Pos: Vec3{0, 0, 0}, Rot: Quat{W: 1}})
	w.Gates.Set(srcGate, GateComp{JumpRangeM: 1000, DstPath: dstPath})

	dstGate := w.NewEntity()
	w.GameObjects.Set(dstGate, GameObject{Path: dstPath})
	w.Transforms.Set(dstGate, Transform{Pos: Vec3{500, 0, 0}, Rot: Quat{W: 1}})

	ship := w.NewEntity()
	shipPath := NewObjPath("sol", KindPlayerShip, "alice-ship")
	w.GameObjects.Set(ship, GameObject{Path: shipPath})
	w.Transforms.Set(ship, Transform{Pos: Vec3{500, 0, 0}, Rot: Quat{W: 1}})
	w.Ships.Set(ship, ShipComp{Name: "alice-ship"})
	w.Controllers.Set(ship, PlayerController{PlayerName: "alice", State: LoggedIn})
	w.Navigations.Set(ship, Navigation{})

	w.GameObjects.Each(func(e EntityID, _ *GameObject) { w.GameObjects.MarkModified(e) })
	ix.BookkeepingUpdated(w)
	w.ClearTickFlags()

	return w, ix, bus, ship, srcGate
}

func TestJumpRejectsExactlyAtRange(t *testing.T) {
	w, ix, bus, ship, gate := setupJumpScenario(t)
	w.Transforms.Set(ship, Transform{Pos: Vec3{1000, 0, 0}, Rot: Quat{W: 1}})

	err := Jump(w, ix, bus, nil, ship, gate, "alice", 0, 0, 0)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestJumpRewritesPathAndUpdatesAccount(t *testing.T) {
	w, ix, bus, ship, gate := setupJumpScenario(t)
	accounts := newFakeAccountStore()

	err := Jump(w, ix, bus, accounts, ship, gate, "alice", 0, 0, 0)
	require.NoError(t, err)

	path, ok := w.Path(ship)
	require.True(t, ok)
	require.Equal(t, "alpha", path.Sys)
	require.Equal(t, "alice-ship", path.Name)

	acct, found, err := accounts.LoadAccount("alice")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, path, acct.CurrentLocation)
}
