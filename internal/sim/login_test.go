package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeShipsInSpaceStore struct {
	stored map[string]ShipInSpaceRecord
}

func newFakeShipsInSpaceStore() *fakeShipsInSpaceStore {
	return &fakeShipsInSpaceStore{stored: make(map[string]ShipInSpaceRecord)}
}

func (s *fakeShipsInSpaceStore) SaveShipInSpace(player string, rec ShipInSpaceRecord) error {
	s.stored[player] = rec
	return nil
}

func (s *fakeShipsInSpaceStore) LoadShipInSpace(player string) (ShipInSpaceRecord, bool, error) {
	rec, ok := s.stored[player]
	return rec, ok, nil
}

func (s *fakeShipsInSpaceStore) DeleteShipInSpace(player string) error {
	delete(s.stored, player)
	return nil
}

type fakeAccountStore struct {
	stored map[string]AccountRecord
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{stored: make(map[string]AccountRecord)}
}

func (a *fakeAccountStore) LoadAccount(player string) (AccountRecord, bool, error) {
	rec, ok := a.stored[player]
	return rec, ok, nil
}

func (a *fakeAccountStore) SaveAccount(player string, rec AccountRecord) error {
	a.stored[player] = rec
	return nil
}

func TestTickLoginsDecaysVelocityWhileSafeLogged(t *testing.T) {
	w := NewWorld()
	ship := w.NewEntity()
	path := NewObjPath("sol", KindPlayerShip, "alice-ship")
	w.GameObjects.Set(ship, GameObject{Path: path})
	w.Transforms.Set(ship, Transform{Vel: Vec3{100, 0, 0}, Rot: Quat{W: 1}})
	w.Ships.Set(ship, ShipComp{Name: "alice-ship"})
	w.Controllers.Set(ship, PlayerController{PlayerName: "alice", State: LoggedIn})

	now := time.Unix(1000, 0)
	Logout(w, ship, now)

	sink := newFakeShipsInSpaceStore()
	require.NoError(t, TickLogins(w, loginPersistAdapter{sink}, now.Add(time.Second)))

	require.True(t, w.Ships.Has(ship), "grace window hasn't elapsed yet")
	tf := w.Transforms.Get(ship)
	require.InDelta(t, 90, tf.Vel.X, 1e-9)
}

func TestTickLoginsPersistsAndDespawnsAfterGraceWindow(t *testing.T) {
	w := NewWorld()
	ship := w.NewEntity()
	path := NewObjPath("sol", KindPlayerShip, "alice-ship")
	w.GameObjects.Set(ship, GameObject{Path: path})
	w.Transforms.Set(ship, Transform{Pos: Vec3{1, 2, 3}, Rot: Quat{W: 1}})
	w.Ships.Set(ship, ShipComp{Name: "alice-ship"})
	w.Controllers.Set(ship, PlayerController{PlayerName: "alice", State: LoggedIn})
	w.Navigations.Set(ship, Navigation{})

	now := time.Unix(2000, 0)
	Logout(w, ship, now)

	sink := newFakeShipsInSpaceStore()
	require.NoError(t, TickLogins(w, loginPersistAdapter{sink}, now.Add(SafeLogoutWindow)))

	require.False(t, w.Ships.Has(ship))
	rec, found, err := sink.LoadShipInSpace("alice")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, path, rec.Path)
	require.Equal(t, "alice-ship", rec.Ship.Name)
}

func TestLoginReloadShipRestoresParkedShip(t *testing.T) {
	w := NewWorld()
	ships := newFakeShipsInSpaceStore()
	accounts := newFakeAccountStore()

	path := NewObjPath("sol", KindPlayerShip, "alice-ship")
	ships.stored["alice"] = ShipInSpaceRecord{
		Ship:      ShipComp{Name: "alice-ship"},
		Transform: Transform{Pos: Vec3{5, 6, 7}, Rot: Quat{W: 1}},
		Path:      path,
	}
	accounts.stored["alice"] = AccountRecord{CurrentLocation: path}

	e, err := LoginReloadShip(w, ships, accounts, "alice")
	require.NoError(t, err)
	require.True(t, w.Ships.Has(e))
	tf := w.Transforms.Get(e)
	require.Equal(t, Vec3{5, 6, 7}, tf.Pos)

	_, found, _ := ships.LoadShipInSpace("alice")
	require.False(t, found, "record should be consumed on reload")
}

func TestLoginReloadShipNoopWhenDocked(t *testing.T) {
	w := NewWorld()
	ships := newFakeShipsInSpaceStore()
	accounts := newFakeAccountStore()
	accounts.stored["alice"] = AccountRecord{CurrentLocation: NewObjPath("sol", KindStation, "trade-hub")}

	e, err := LoginReloadShip(w, ships, accounts, "alice")
	require.NoError(t, err)
	require.Equal(t, EntityID(0), e)
}
