package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeHangerStore struct {
	stored map[string]HangerRecord
}

func newFakeHangerStore() *fakeHangerStore { return &fakeHangerStore{stored: make(map[string]HangerRecord)} }

func hangerKeyForTest(hangerUID, player string) string { return hangerUID + "/" + player }

func (h *fakeHangerStore) Load(hangerUID, player string) (HangerRecord, error) {
	rec, ok := h.stored[hangerKeyForTest(hangerUID, player)]
	if !ok {
		return NewHangerRecord(), nil
	}
	return rec, nil
}

func (h *fakeHangerStore) Save(hangerUID, player string, rec HangerRecord) error {
	h.stored[hangerKeyForTest(hangerUID, player)] = rec
	return nil
}

func setupDockScenario(t *testing.T) (*World, *Bus, *fakeHangerStore, EntityID, EntityID) {
	t.Helper()
	w := NewWorld()
	bus := NewBus()
	store := newFakeHangerStore()

	station := w.NewEntity()
	stationPath := NewObjPath("sol", KindStation, "trade-hub")
	w.GameObjects.Set(station, GameObject{Path: stationPath})
	w.Transforms.Set(station, Transform{Pos: Vec3{0, 0, 0}, Rot: Quat{W: 1}})
	w.Hangers.Set(station, HangerComp{HangerUID: "hub-1", UndockOffset: Vec3{0, 0, 100}, DockingRangeM: 1000})

	ship := w.NewEntity()
	shipPath := NewObjPath("sol", KindPlayerShip, "alice")
	w.GameObjects.Set(ship, GameObject{Path: shipPath})
	w.Transforms.Set(ship, Transform{Pos: Vec3{500, 0, 0}, Rot: Quat{W: 1}})
	w.Ships.Set(ship, ShipComp{Name: "alice-ship"})
	w.Controllers.Set(ship, PlayerController{PlayerName: "alice", State: LoggedIn})

	return w, bus, store, ship, station
}

func TestDockDespawnsShipAndStoresIt(t *testing.T) {
	w, bus, store, ship, station := setupDockScenario(t)

	err := Dock(w, bus, store, nil, ship, station, "alice")
	require.NoError(t, err)
	require.False(t, w.Ships.Has(ship))

	rec, err := store.Load("hub-1", "alice")
	require.NoError(t, err)
	require.NotNil(t, rec.ActiveSlot)
	_, found := rec.Slots[*rec.ActiveSlot]
	require.True(t, found)
}

func TestDockRejectsWrongOwner(t *testing.T) {
	w, bus, store, ship, station := setupDockScenario(t)

	err := Dock(w, bus, store, nil, ship, station, "mallory")
	require.ErrorIs(t, err, ErrNotOwner)
	require.True(t, w.Ships.Has(ship))
}

func TestDockRejectsOutOfRange(t *testing.T) {
	w, bus, store, ship, station := setupDockScenario(t)
	w.Transforms.Set(ship, Transform{Pos: Vec3{50_000, 0, 0}, Rot: Quat{W: 1}})

	err := Dock(w, bus, store, nil, ship, station, "alice")
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestDockRejectsExactlyAtRange(t *testing.T) {
	w, bus, store, ship, station := setupDockScenario(t)
	w.Transforms.Set(ship, Transform{Pos: Vec3{1000, 0, 0}, Rot: Quat{W: 1}})

	err := Dock(w, bus, store, nil, ship, station, "alice")
	require.ErrorIs(t, err, ErrOutOfRange, "distance exactly equal to docking range must be rejected")
}

func TestDockUndockUpdateAccountCurrentLocation(t *testing.T) {
	w, bus, store, ship, station := setupDockScenario(t)
	accounts := newFakeAccountStore()

	require.NoError(t, Dock(w, bus, store, accounts, ship, station, "alice"))
	acct, found, err := accounts.LoadAccount("alice")
	require.NoError(t, err)
	require.True(t, found)
	require.NotEmpty(t, acct.AccessToken, "a brand-new account gets a minted access token")
	require.Equal(t, NewObjPath("sol", KindStation, "trade-hub"), acct.CurrentLocation)

	token := acct.AccessToken
	newE, err := Undock(w, bus, store, accounts, station, "alice")
	require.NoError(t, err)
	acct, found, err = accounts.LoadAccount("alice")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, token, acct.AccessToken, "undocking an existing account keeps its token")
	shipPath, ok := w.Path(newE)
	require.True(t, ok)
	require.Equal(t, shipPath, acct.CurrentLocation)
}

func TestUndockSpawnsShipAtOffset(t *testing.T) {
	w, bus, store, ship, station := setupDockScenario(t)
	require.NoError(t, Dock(w, bus, store, nil, ship, station, "alice"))

	newE, err := Undock(w, bus, store, nil, station, "alice")
	require.NoError(t, err)
	tf := w.Transforms.Get(newE)
	require.Equal(t, Vec3{0, 0, 100}, tf.Pos)
}

func TestUndockRejectsNoActiveShip(t *testing.T) {
	w, bus, store, _, station := setupDockScenario(t)

	_, err := Undock(w, bus, store, nil, station, "alice")
	require.ErrorIs(t, err, ErrNoActiveShip)
}

func TestHangerHoldsMultipleShipsAndSwitchesActive(t *testing.T) {
	store := newFakeHangerStore()
	require.NoError(t, store.Save("hub-1", "alice", HangerRecord{
		Slots: map[uint32]ShipComp{0: {Name: "shuttle"}},
	}))
	rec, err := store.Load("hub-1", "alice")
	require.NoError(t, err)
	rec.Slots[1] = ShipComp{Name: "freighter"}
	require.NoError(t, store.Save("hub-1", "alice", rec))

	require.NoError(t, SetActiveShip(store, "hub-1", "alice", 1))
	rec, err = store.Load("hub-1", "alice")
	require.NoError(t, err)
	require.Equal(t, uint32(1), *rec.ActiveSlot)

	require.ErrorIs(t, SetActiveShip(store, "hub-1", "alice", 9), ErrHangerSlotEmpty)

	ships, err := HangerShips(store, "hub-1", "alice")
	require.NoError(t, err)
	require.Len(t, ships.Slots, 2)
}

func TestDockFillsFirstFreeSlotAlongsideExistingShips(t *testing.T) {
	w, bus, store, ship, station := setupDockScenario(t)
	require.NoError(t, store.Save("hub-1", "alice", HangerRecord{Slots: map[uint32]ShipComp{0: {Name: "shuttle"}}}))

	require.NoError(t, Dock(w, bus, store, nil, ship, station, "alice"))
	rec, err := store.Load("hub-1", "alice")
	require.NoError(t, err)
	require.Len(t, rec.Slots, 2)
	require.Equal(t, uint32(1), *rec.ActiveSlot, "the freshly docked ship becomes active in the first free slot")
}
