/*
Package sim
File: inventory_cmd.go
Description:
    Inventory-transfer command handling: resolves the four kinds of
    addressable inventory (a live ship, a free-floating container, a
    stored hanger ship, a player's station storage bin) to a common
    handle, then drives the same Transfer() rollback protocol
    inventory.go already uses for market fulfillment.
*/

package sim

import (
	"errors"
	"fmt"
)

// spaceTransferRangeM bounds how far apart two in-space inventories
// (ship or container) may be for a direct transfer between them.
const spaceTransferRangeM = 1000.0

// invHandle is a resolved inventory endpoint: a pointer the transfer
// can mutate directly, plus however that mutation gets persisted.
type invHandle struct {
	inv  *Inventory
	save func() error
}

// resolveInvLoc turns an InvLoc into a mutable Inventory handle,
// verifying the requester owns or otherwise may address it.
func resolveInvLoc(w *World, ix *Indexes, hangers HangerStore, invBackend InventoryBackend, player string, loc InvLoc) (*invHandle, error) {
	switch loc.Kind {
	case InvLocShip:
		e, found := ix.Lookup(loc.Obj)
		if !found {
			return nil, fmt.Errorf("sim: ship not found: %s", loc.Obj)
		}
		ship := w.Ships.Get(e)
		if ship == nil {
			return nil, fmt.Errorf("sim: entity has no ship")
		}
		ctrl := w.Controllers.Get(e)
		if ctrl == nil || ctrl.PlayerName != player {
			return nil, ErrNotOwner
		}
		return &invHandle{
			inv:  &ship.Onboard,
			save: func() error { w.Ships.MarkModified(e); return nil },
		}, nil

	case InvLocContainer:
		e, found := ix.Lookup(loc.Obj)
		if !found {
			return nil, fmt.Errorf("sim: container not found: %s", loc.Obj)
		}
		c := w.Containers.Get(e)
		if c == nil {
			return nil, fmt.Errorf("sim: entity has no inventory")
		}
		return &invHandle{
			inv:  &c.Inv,
			save: func() error { w.Containers.MarkModified(e); return nil },
		}, nil

	case InvLocHangerShip:
		ship, rec, err := hangerShipInventory(hangers, loc.HangerUID, player, loc.HangerSlot)
		if err != nil {
			return nil, err
		}
		slot := loc.HangerSlot
		return &invHandle{
			inv: &ship.Onboard,
			save: func() error {
				rec.Slots[slot] = *ship
				return hangers.Save(loc.HangerUID, player, rec)
			},
		}, nil

	case InvLocStation:
		if invBackend == nil {
			return nil, fmt.Errorf("sim: no station inventory backend configured")
		}
		inv, err := invBackend.LoadInventory(player, loc.InvID)
		if err != nil {
			return nil, err
		}
		invID := loc.InvID
		return &invHandle{
			inv:  &inv,
			save: func() error { return invBackend.SaveInventory(player, invID, inv) },
		}, nil

	default:
		return nil, fmt.Errorf("sim: unknown inventory location kind")
	}
}

// invLocPos resolves the live position of an in-space inventory
// location, for the space-to-space proximity check. Hanger and station
// locations have no position and are never subject to that check.
func invLocPos(w *World, ix *Indexes, loc InvLoc) (Vec3, bool) {
	if loc.Kind != InvLocShip && loc.Kind != InvLocContainer {
		return Vec3{}, false
	}
	e, found := ix.Lookup(loc.Obj)
	if !found {
		return Vec3{}, false
	}
	tf := w.Transforms.Get(e)
	if tf == nil {
		return Vec3{}, false
	}
	return tf.Pos, true
}

// transferInventory moves n units from src's srcSlot to dst, at dstSlot
// if hasDstSlot or the first free slot otherwise. Space-to-space
// transfers (ship<->ship, ship<->container, container<->container) are
// additionally rejected when the two endpoints are more than
// spaceTransferRangeM apart; stored-ship and station endpoints have no
// live position and are exempt from that check.
func transferInventory(w *World, ix *Indexes, hangers HangerStore, invBackend InventoryBackend, player string, src, dst InvLoc, srcSlot, dstSlot uint32, hasDstSlot bool, n uint32, cat Catalog) error {
	srcH, err := resolveInvLoc(w, ix, hangers, invBackend, player, src)
	if err != nil {
		return err
	}

	// Same-inventory transfers (e.g. two station commands both addressing
	// the player's own bin) must share one resolved handle: resolving dst
	// independently would load a second copy of the same backing data,
	// and whichever side saves last would silently clobber the other's
	// write.
	var dstH *invHandle
	if src.Kind == InvLocStation && dst.Kind == InvLocStation && src.InvID == dst.InvID {
		dstH = srcH
	} else if dst.Kind == InvLocShip {
		// Cargo may be handed to another pilot's ship; only the source
		// side is checked for ownership.
		e, found := ix.Lookup(dst.Obj)
		if !found {
			return fmt.Errorf("sim: ship not found: %s", dst.Obj)
		}
		ship := w.Ships.Get(e)
		if ship == nil {
			return fmt.Errorf("sim: entity has no ship")
		}
		dstH = &invHandle{inv: &ship.Onboard, save: func() error { w.Ships.MarkModified(e); return nil }}
	} else {
		dstH, err = resolveInvLoc(w, ix, hangers, invBackend, player, dst)
		if err != nil {
			return err
		}
	}

	srcPos, srcInSpace := invLocPos(w, ix, src)
	dstPos, dstInSpace := invLocPos(w, ix, dst)
	if srcInSpace && dstInSpace {
		if srcPos.Sub(dstPos).Len() >= spaceTransferRangeM {
			return ErrOutOfRange
		}
	}

	var dstSlotPtr *uint32
	if hasDstSlot {
		dstSlotPtr = &dstSlot
	}
	_, ok := Transfer(cat, srcH.inv, dstH.inv, srcSlot, n, dstSlotPtr)
	if !ok {
		return errors.New("sim: inventory transfer failed")
	}

	if err := srcH.save(); err != nil {
		return err
	}
	if dstH == srcH {
		return nil
	}
	return dstH.save()
}
