/*
Package sim
File: inventory.go
Description:
    Stack and Inventory arithmetic: RemoveN/AddStack/InsertStack and
    the first-free-slot search backing cross-container transfers. One
    deliberate behavior choice: RemoveN clips to min(n, count) instead
    of refusing a request that's merely too large.
*/

package sim

import (
	"sort"
	"strconv"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Stack is a run-length item record at a single slot.
type Stack struct {
	ItemID ItemId
	Count  uint32
}

func (s Stack) IsEmpty() bool { return s.Count == 0 }

// Catalog is the read-only item catalog the core consumes (static
// world loading is out of scope; something else populates this).
type Catalog interface {
	SizeVUnits(item ItemId) (uint32, bool)
}

// Inventory is a capacity-bounded (optionally unbounded) map of slot
// index to Stack.
type Inventory struct {
	ID         *InvId
	CapVUnits  *uint32 // nil => unbounded, mirrors station/ship-internal inventories with no cap
	Slots      map[uint32]Stack
}

// NewInventory constructs an inventory, optionally capacity-bounded.
func NewInventory(id *InvId, capVUnits *uint32) Inventory {
	return Inventory{ID: id, CapVUnits: capVUnits, Slots: make(map[uint32]Stack)}
}

// inventoryBSON is Inventory's wire shape: BSON documents only accept
// string-keyed maps, so slot indices round-trip as decimal strings
// rather than as the uint32 keys the rest of the package uses.
type inventoryBSON struct {
	ID        *InvId
	CapVUnits *uint32
	Slots     map[string]Stack
}

// MarshalBSON implements bson.Marshaler.
func (inv Inventory) MarshalBSON() ([]byte, error) {
	aux := inventoryBSON{ID: inv.ID, CapVUnits: inv.CapVUnits, Slots: make(map[string]Stack, len(inv.Slots))}
	for slot, s := range inv.Slots {
		aux.Slots[strconv.FormatUint(uint64(slot), 10)] = s
	}
	return bson.Marshal(aux)
}

// UnmarshalBSON implements bson.Unmarshaler.
func (inv *Inventory) UnmarshalBSON(data []byte) error {
	var aux inventoryBSON
	if err := bson.Unmarshal(data, &aux); err != nil {
		return err
	}
	inv.ID = aux.ID
	inv.CapVUnits = aux.CapVUnits
	inv.Slots = make(map[uint32]Stack, len(aux.Slots))
	for k, s := range aux.Slots {
		n, err := strconv.ParseUint(k, 10, 32)
		if err != nil {
			return err
		}
		inv.Slots[uint32(n)] = s
	}
	return nil
}

// RemoveN returns and deducts min(n, slots[slot].count) from slot,
// deleting the slot when it empties. Returns (Stack{}, false) if the
// slot is absent — removing from an empty/missing slot is a no-op.
func (inv *Inventory) RemoveN(slot uint32, n uint32) (Stack, bool) {
	cur, ok := inv.Slots[slot]
	if !ok {
		return Stack{}, false
	}
	taken := n
	if taken > cur.Count {
		taken = cur.Count
	}
	cur.Count -= taken
	if cur.Count == 0 {
		delete(inv.Slots, slot)
	} else {
		inv.Slots[slot] = cur
	}
	return Stack{ItemID: cur.ItemID, Count: taken}, true
}

// usedVUnits sums capacity consumed across all slots.
func (inv *Inventory) usedVUnits(cat Catalog) uint32 {
	var used uint32
	for _, s := range inv.Slots {
		if sz, ok := cat.SizeVUnits(s.ItemID); ok {
			used += sz * s.Count
		}
	}
	return used
}

// firstFreeSlot returns the smallest slot index in [0, len] not
// currently occupied.
func (inv *Inventory) firstFreeSlot() uint32 {
	for i := uint32(0); i <= uint32(len(inv.Slots)); i++ {
		if _, occupied := inv.Slots[i]; !occupied {
			return i
		}
	}
	return 0 // unreachable given the loop bound above
}

// insertStack coalesces with an existing stack of the same item id if
// one exists anywhere in the inventory; otherwise allocates the first
// free slot. Used on non-capacity paths (InsertStack) and internally
// by AddStack once an insertable quantity has been computed.
func (inv *Inventory) insertStack(s Stack) {
	if s.Count == 0 {
		return
	}
	for slot, v := range inv.Slots {
		if v.ItemID == s.ItemID {
			v.Count += s.Count
			inv.Slots[slot] = v
			return
		}
	}
	inv.Slots[inv.firstFreeSlot()] = s
}

// insertStackAtSlot fills slot directly if it's empty or holds the same
// item id; otherwise relocates the slot's resident stack to the first
// free slot before inserting.
func (inv *Inventory) insertStackAtSlot(s Stack, slot uint32) {
	if s.Count == 0 {
		return
	}
	if resident, ok := inv.Slots[slot]; ok {
		if resident.ItemID == s.ItemID {
			resident.Count += s.Count
			inv.Slots[slot] = resident
			return
		}
		delete(inv.Slots, slot)
		inv.Slots[inv.firstFreeSlot()] = resident
	}
	inv.Slots[slot] = s
}

// InsertStack coalesces or allocates a slot, ignoring capacity. Used on
// non-capacity paths such as a market fulfillment depositing a
// pre-authorized shipment.
func (inv *Inventory) InsertStack(s Stack) {
	inv.insertStack(s)
}

// InsertStackAtSlot is InsertStack but preferring a specific slot index.
func (inv *Inventory) InsertStackAtSlot(s Stack, slot uint32) {
	inv.insertStackAtSlot(s, slot)
}

// AddStack inserts as much of stack as capacity allows, honoring an
// optional preferred slot, and returns the uninserted remainder (or
// false if everything was inserted). Capacity-less inventories always
// insert the whole stack.
func (inv *Inventory) AddStack(cat Catalog, stack Stack, slot *uint32) (Stack, bool) {
	if inv.CapVUnits == nil {
		if slot != nil {
			inv.insertStackAtSlot(stack, *slot)
		} else {
			inv.insertStack(stack)
		}
		return Stack{}, false
	}

	sz, ok := cat.SizeVUnits(stack.ItemID)
	if !ok || sz == 0 {
		return stack, true
	}
	used := inv.usedVUnits(cat)
	var free uint32
	if *inv.CapVUnits > used {
		free = *inv.CapVUnits - used
	}
	maxCount := free / sz
	insertCount := stack.Count
	if insertCount > maxCount {
		insertCount = maxCount
	}

	if insertCount == 0 {
		return stack, true
	}

	toInsert := Stack{ItemID: stack.ItemID, Count: insertCount}
	if slot != nil {
		inv.insertStackAtSlot(toInsert, *slot)
	} else {
		inv.insertStack(toInsert)
	}

	remainder := stack.Count - insertCount
	if remainder == 0 {
		return Stack{}, false
	}
	return Stack{ItemID: stack.ItemID, Count: remainder}, true
}

// SlotIndices returns the occupied slot numbers in ascending order —
// used only by tests and by the outbound emitter's deterministic
// inventory snapshots.
func (inv *Inventory) SlotIndices() []uint32 {
	out := make([]uint32, 0, len(inv.Slots))
	for k := range inv.Slots {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TransferResult records what happened to a cross-container transfer,
// for callers that need to report InvariantViolation if the
// rollback path itself lost or duplicated items.
type TransferResult struct {
	Moved      Stack
	Annihilated bool // true iff rollback couldn't return the overflow anywhere (bug, never expected)
}

// Transfer implements the strict take-place-rollback protocol: remove
// up to n from src at srcSlot, insert as much as possible
// into dst (bypassing capacity iff dst has no CapVUnits, e.g. a market
// fulfillment destination), and return any overflow to src. Returns
// (TransferResult{}, false) if src had nothing to give.
func Transfer(cat Catalog, src, dst *Inventory, srcSlot uint32, n uint32, dstSlot *uint32) (TransferResult, bool) {
	stack, ok := src.RemoveN(srcSlot, n)
	if !ok || stack.IsEmpty() {
		return TransferResult{}, false
	}

	overflow, hadOverflow := dst.AddStack(cat, stack, dstSlot)
	if !hadOverflow {
		return TransferResult{Moved: Stack{ItemID: stack.ItemID, Count: stack.Count}}, true
	}

	moved := stack.Count - overflow.Count
	back, backOverflow := src.AddStack(cat, overflow, &srcSlot)
	if backOverflow && !back.IsEmpty() {
		// This must not happen if capacity math above is correct; it
		// means items vanished. Surfaced to the caller as an
		// InvariantViolation, never shown to the player.
		return TransferResult{Moved: Stack{ItemID: stack.ItemID, Count: moved}, Annihilated: true}, true
	}
	return TransferResult{Moved: Stack{ItemID: stack.ItemID, Count: moved}}, true
}
