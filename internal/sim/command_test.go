package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeInventoryBackend struct {
	bins map[string]Inventory
}

func newFakeInventoryBackend() *fakeInventoryBackend {
	return &fakeInventoryBackend{bins: make(map[string]Inventory)}
}

func invBinKey(player string, inv InvId) string { return player + ":" + string(inv) }

func (b *fakeInventoryBackend) LoadInventory(player string, inv InvId) (Inventory, error) {
	if i, ok := b.bins[invBinKey(player, inv)]; ok {
		return i, nil
	}
	return NewInventory(nil, nil), nil
}

func (b *fakeInventoryBackend) SaveInventory(player string, inv InvId, i Inventory) error {
	b.bins[invBinKey(player, inv)] = i
	return nil
}

func setupTwoShipsScenario(t *testing.T, dist float64) (*World, *Indexes, EntityID, EntityID) {
	t.Helper()
	w := NewWorld()
	ix := NewIndexes()

	alice := w.NewEntity()
	alicePath := NewObjPath("sol", KindPlayerShip, "alice-ship")
	w.GameObjects.Set(alice, GameObject{Path: alicePath})
	w.Transforms.Set(alice, Transform{Pos: Vec3{0, 0, 0}, Rot: Quat{W: 1}})
	w.Ships.Set(alice, ShipComp{Name: "alice-ship", Onboard: NewInventory(nil, nil)})
	w.Controllers.Set(alice, PlayerController{PlayerName: "alice", State: LoggedIn})

	bob := w.NewEntity()
	bobPath := NewObjPath("sol", KindPlayerShip, "bob-ship")
	w.GameObjects.Set(bob, GameObject{Path: bobPath})
	w.Transforms.Set(bob, Transform{Pos: Vec3{dist, 0, 0}, Rot: Quat{W: 1}})
	w.Ships.Set(bob, ShipComp{Name: "bob-ship", Onboard: NewInventory(nil, nil)})
	w.Controllers.Set(bob, PlayerController{PlayerName: "bob", State: LoggedIn})

	w.GameObjects.Each(func(e EntityID, _ *GameObject) { w.GameObjects.MarkModified(e) })
	ix.BookkeepingUpdated(w)
	w.ClearTickFlags()

	return w, ix, alice, bob
}

func TestDispatchInvSpaceToSpaceMovesStackWithinRange(t *testing.T) {
	w, ix, alice, bob := setupTwoShipsScenario(t, 500)
	bus := NewBus()
	cat := fakeCatalog{"ore": 1}
	m, err := NewMarket(newFakeItemBackend(), newFakeInventoryBackend(), newFakePlayerOrderBackend(), newFakeBank(), cat, 16)
	require.NoError(t, err)

	aliceShip := w.Ships.Get(alice)
	aliceShip.Onboard.Slots[0] = Stack{ItemID: "ore", Count: 10}

	alicePath, _ := w.Path(alice)
	bobPath, _ := w.Path(bob)

	cmd := Cmd{
		Player: "alice",
		Kind:   CmdInvSpaceToSpace,
		SrcLoc: InvLoc{Kind: InvLocShip, Obj: alicePath},
		DstLoc: InvLoc{Kind: InvLocShip, Obj: bobPath},
		Qty:    4,
	}
	errs := Dispatch(w, ix, bus, m, newFakeHangerStore(), newFakeAccountStore(), newFakeInventoryBackend(), []Cmd{cmd})
	require.Empty(t, errs)

	bobShip := w.Ships.Get(bob)
	require.Equal(t, uint32(4), bobShip.Onboard.Slots[0].Count)
	require.Equal(t, uint32(6), w.Ships.Get(alice).Onboard.Slots[0].Count)
}

func TestDispatchInvSpaceToSpaceRejectsOutOfRange(t *testing.T) {
	w, ix, alice, bob := setupTwoShipsScenario(t, 5000)
	bus := NewBus()
	cat := fakeCatalog{"ore": 1}
	m, err := NewMarket(newFakeItemBackend(), newFakeInventoryBackend(), newFakePlayerOrderBackend(), newFakeBank(), cat, 16)
	require.NoError(t, err)

	aliceShip := w.Ships.Get(alice)
	aliceShip.Onboard.Slots[0] = Stack{ItemID: "ore", Count: 10}

	alicePath, _ := w.Path(alice)
	bobPath, _ := w.Path(bob)

	cmd := Cmd{
		Player: "alice",
		Kind:   CmdInvSpaceToSpace,
		SrcLoc: InvLoc{Kind: InvLocShip, Obj: alicePath},
		DstLoc: InvLoc{Kind: InvLocShip, Obj: bobPath},
		Qty:    4,
	}
	errs := Dispatch(w, ix, bus, m, newFakeHangerStore(), newFakeAccountStore(), newFakeInventoryBackend(), []Cmd{cmd})
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], ErrOutOfRange)
	require.Equal(t, uint32(10), w.Ships.Get(alice).Onboard.Slots[0].Count, "a rejected transfer must not touch the source")
}

func TestDispatchInvStationToStationMovesBetweenBins(t *testing.T) {
	w := NewWorld()
	ix := NewIndexes()
	bus := NewBus()
	cat := fakeCatalog{"ore": 1}
	m, err := NewMarket(newFakeItemBackend(), newFakeInventoryBackend(), newFakePlayerOrderBackend(), newFakeBank(), cat, 16)
	require.NoError(t, err)

	invBackend := newFakeInventoryBackend()
	src, _ := invBackend.LoadInventory("alice", "bin-a")
	src.Slots[0] = Stack{ItemID: "ore", Count: 10}
	require.NoError(t, invBackend.SaveInventory("alice", "bin-a", src))

	cmd := Cmd{
		Player:  "alice",
		Kind:    CmdInvStationToStation,
		SrcLoc:  InvLoc{Kind: InvLocStation, InvID: "bin-a"},
		DstLoc:  InvLoc{Kind: InvLocStation, InvID: "bin-b"},
		DstSlot: 0, HasDstSlot: true,
		Qty: 7,
	}
	errs := Dispatch(w, ix, bus, m, newFakeHangerStore(), newFakeAccountStore(), invBackend, []Cmd{cmd})
	require.Empty(t, errs)

	dst, err := invBackend.LoadInventory("alice", "bin-b")
	require.NoError(t, err)
	require.Equal(t, uint32(7), dst.Slots[0].Count)

	remaining, err := invBackend.LoadInventory("alice", "bin-a")
	require.NoError(t, err)
	require.Equal(t, uint32(3), remaining.Slots[0].Count)
}

func TestDispatchSetActiveShipAndHangerRequestShips(t *testing.T) {
	w := NewWorld()
	ix := NewIndexes()
	bus := NewBus()
	cat := fakeCatalog{"ore": 1}
	m, err := NewMarket(newFakeItemBackend(), newFakeInventoryBackend(), newFakePlayerOrderBackend(), newFakeBank(), cat, 16)
	require.NoError(t, err)

	station := w.NewEntity()
	stationPath := NewObjPath("sol", KindStation, "trade-hub")
	w.GameObjects.Set(station, GameObject{Path: stationPath})
	w.Hangers.Set(station, HangerComp{HangerUID: "hub-1"})
	w.GameObjects.Each(func(e EntityID, _ *GameObject) { w.GameObjects.MarkModified(e) })
	ix.BookkeepingUpdated(w)
	w.ClearTickFlags()

	hangers := newFakeHangerStore()
	require.NoError(t, hangers.Save("hub-1", "alice", HangerRecord{
		Slots: map[uint32]ShipComp{0: {Name: "shuttle"}, 1: {Name: "freighter"}},
	}))

	errs := Dispatch(w, ix, bus, m, hangers, newFakeAccountStore(), newFakeInventoryBackend(), []Cmd{
		{Player: "alice", Kind: CmdSetActiveShip, TargetObj: stationPath, Slot: 1},
		{Player: "alice", Kind: CmdHangerRequestShips, TargetObj: stationPath},
	})
	require.Empty(t, errs)

	rec, err := hangers.Load("hub-1", "alice")
	require.NoError(t, err)
	require.Equal(t, uint32(1), *rec.ActiveSlot)

	infos := bus.DrainInfos()
	require.Len(t, infos, 1)
	require.Equal(t, EInfoHanger, infos[0].Kind)
	gotRec, ok := infos[0].Detail.(HangerRecord)
	require.True(t, ok)
	require.Len(t, gotRec.Slots, 2)
}
