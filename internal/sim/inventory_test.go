package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeCatalog map[ItemId]uint32

func (f fakeCatalog) SizeVUnits(item ItemId) (uint32, bool) {
	sz, ok := f[item]
	return sz, ok
}

func TestRemoveNClampsToAvailable(t *testing.T) {
	inv := NewInventory(nil, nil)
	inv.Slots[0] = Stack{ItemID: "ore", Count: 5}

	got, ok := inv.RemoveN(0, 100)
	require.True(t, ok)
	require.Equal(t, uint32(5), got.Count)
	require.False(t, inv.Slots[0].Count > 0)
	_, stillThere := inv.Slots[0]
	require.False(t, stillThere)
}

func TestRemoveNFromMissingSlotIsNoop(t *testing.T) {
	inv := NewInventory(nil, nil)
	_, ok := inv.RemoveN(3, 10)
	require.False(t, ok)
}

func TestAddStackRespectsCapacity(t *testing.T) {
	cat := fakeCatalog{"ore": 2}
	cap := uint32(10)
	inv := NewInventory(nil, &cap)

	overflow, had := inv.AddStack(cat, Stack{ItemID: "ore", Count: 8}, nil)
	require.True(t, had)
	require.Equal(t, uint32(3), overflow.Count) // only 5 units (10 vunits / 2) fit

	var total uint32
	for _, s := range inv.Slots {
		total += s.Count
	}
	require.Equal(t, uint32(5), total)
}

func TestInsertStackAtSlotRelocatesResident(t *testing.T) {
	inv := NewInventory(nil, nil)
	inv.Slots[0] = Stack{ItemID: "water", Count: 3}

	inv.InsertStackAtSlot(Stack{ItemID: "ore", Count: 2}, 0)

	require.Equal(t, Stack{ItemID: "ore", Count: 2}, inv.Slots[0])
	found := false
	for slot, s := range inv.Slots {
		if slot != 0 && s.ItemID == "water" {
			found = true
		}
	}
	require.True(t, found, "resident stack should have relocated to a free slot")
}

func TestTransferRollsBackOverflowToSource(t *testing.T) {
	cat := fakeCatalog{"ore": 1}
	srcCap := uint32(100)
	dstCap := uint32(3)
	src := NewInventory(nil, &srcCap)
	dst := NewInventory(nil, &dstCap)
	src.Slots[0] = Stack{ItemID: "ore", Count: 10}

	result, ok := Transfer(cat, &src, &dst, 0, 10, nil)
	require.True(t, ok)
	require.False(t, result.Annihilated)
	require.Equal(t, uint32(3), result.Moved.Count)

	var srcTotal uint32
	for _, s := range src.Slots {
		srcTotal += s.Count
	}
	require.Equal(t, uint32(7), srcTotal, "the 7 units that didn't fit in dst must return to src")
}
