/*
Package sim
File: command.go
Description:
    Inbound command dispatch — the Process Commands stage. Each Cmd names the issuing player and an
    action; Dispatch resolves the player's controlled ship, validates
    ownership, and calls into nav.go/dock.go/jump.go/market.go. Errors
    never panic the tick: a malformed or rejected command produces a
    CmdError the caller can relay back to the issuing player, and an
    inapplicable input is silently dropped rather than aborting the
    stage.
*/

package sim

import "fmt"

// CmdKind enumerates the wire-level actions a connected player can
// issue.
type CmdKind string

const (
	CmdApproach      CmdKind = "approach"
	CmdAlignTo       CmdKind = "align_to"
	CmdWarpTo        CmdKind = "warp_to"
	CmdKeepAtRange   CmdKind = "keep_at_range"
	CmdOrbit         CmdKind = "orbit"
	CmdDock          CmdKind = "dock"
	CmdUndock        CmdKind = "undock"
	CmdJump          CmdKind = "jump"
	CmdPlaceBuy      CmdKind = "place_buy_order"
	CmdPlaceSell     CmdKind = "place_sell_order"
	CmdCancelBuy     CmdKind = "cancel_buy_order"
	CmdCancelSell    CmdKind = "cancel_sell_order"
	CmdFulfillBuy    CmdKind = "fulfill_buy_order"
	CmdFulfillSell   CmdKind = "fulfill_sell_order"
	CmdMNav          CmdKind = "mnav"

	CmdSetActiveShip       CmdKind = "set_active_ship"
	CmdHangerRequestShips  CmdKind = "hanger_request_ships"

	CmdInvSpaceToSpace           CmdKind = "inv_space_to_space"
	CmdInvHangerShipToHangerShip CmdKind = "inv_hangership_to_hangership"
	CmdInvHangerShipToStation    CmdKind = "inv_hangership_to_station"
	CmdInvStationToShip          CmdKind = "inv_station_to_ship"
	CmdInvStationToStation       CmdKind = "inv_station_to_station"

	CmdInvRequestInventoryList CmdKind = "inv_request_inventory_list"
	CmdInvRequestInventory     CmdKind = "inv_request_inventory"
	CmdInvRequestShip          CmdKind = "inv_request_ship"
	CmdInvRequestGameObject    CmdKind = "inv_request_game_object"
	CmdGetStore                CmdKind = "get_store"
)

// InvLocKind names which of the four places an inventory transfer
// endpoint can live: a ship or container sitting in space, a ship
// parked in a station hanger, or a player's station storage bin.
type InvLocKind int

const (
	InvLocShip InvLocKind = iota
	InvLocContainer
	InvLocHangerShip
	InvLocStation
)

// InvLoc addresses one endpoint of an inventory transfer. Obj names a
// live entity for InvLocShip/InvLocContainer; HangerUID+HangerSlot name
// a stored ship for InvLocHangerShip; InvID names a station storage bin
// (scoped to the issuing player) for InvLocStation.
type InvLoc struct {
	Kind       InvLocKind
	Obj        ObjPath
	HangerUID  string
	HangerSlot uint32
	InvID      InvId
}

// Cmd is one inbound request, attributed to Player by the transport
// layer, which takes the name from the connection and checks no token.
type Cmd struct {
	Player      string
	Kind        CmdKind
	TargetObj   ObjPath
	TargetPoint Vec3
	UsePoint    bool
	StopDistM   float64

	Item         ItemId
	PricePerUnit int64
	Qty          uint32
	Slot         uint32
	HasSlot      bool
	OrderID      OrderId

	// MNav deltas: seconds of rotation about x/y/z and seconds
	// of forward thrust to bank into Navigation this tick.
	DX, DY, DZ, DThrust float64

	// JumpJitter* feed the deterministic random unit vector for Jump;
	// the transport layer is responsible for supplying fresh [0,1)
	// samples per command.
	JumpJitterX, JumpJitterY, JumpJitterZ float64

	// Inventory transfer / query fields.
	SrcLoc, DstLoc InvLoc
	SrcSlot, DstSlot uint32
	HasDstSlot       bool
}

// CmdError is returned by Dispatch for any rejected or malformed
// command. It is a value type, never a panic: a bad command from one
// player must never interrupt the tick for anyone else.
type CmdError struct {
	Player string
	Kind   CmdKind
	Err    error
}

func (e *CmdError) Error() string {
	return fmt.Sprintf("sim: command %s from %s: %v", e.Kind, e.Player, e.Err)
}

func (e *CmdError) Unwrap() error { return e.Err }

// controlledShip resolves the entity a player currently commands, or
// false if they have no live ship (docked, not yet undocked, or
// disconnected).
func controlledShip(w *World, player string) (EntityID, bool) {
	var found EntityID
	var ok bool
	w.Controllers.Each(func(e EntityID, ctrl *PlayerController) {
		if ok {
			return
		}
		if ctrl.PlayerName == player && ctrl.State == LoggedIn {
			found, ok = e, true
		}
	})
	return found, ok
}

func navTargetFromCmd(c Cmd) NavTarget {
	if c.UsePoint {
		return NavTarget{Kind: TargetPoint, Point: c.TargetPoint}
	}
	return NavTarget{Kind: TargetObj, Obj: c.TargetObj}
}

// Dispatch processes the pending command queue against w, using ix to
// resolve object paths, market for order-book commands, hangers for
// dock/undock, accounts to keep current_location in sync with those
// transitions, and bus for events raised by side effects. Errors are
// collected and returned rather than interrupting the batch.
func Dispatch(w *World, ix *Indexes, bus *Bus, market *Market, hangers HangerStore, accounts AccountStore, invBackend InventoryBackend, cmds []Cmd) []*CmdError {
	var errs []*CmdError
	fail := func(c Cmd, err error) {
		errs = append(errs, &CmdError{Player: c.Player, Kind: c.Kind, Err: err})
		bus.EmitInfo(EInfo{Kind: EInfoError, Player: c.Player, Detail: err.Error()})
	}

	for _, c := range cmds {
		shipE, hasShip := controlledShip(w, c.Player)

		// Station-side commands don't require a live ship entity — a
		// docked or disconnected player can still manage hangers,
		// inventory, and the market.
		switch c.Kind {
		case CmdSetActiveShip, CmdHangerRequestShips, CmdGetStore,
			CmdInvRequestInventoryList, CmdInvRequestInventory, CmdInvRequestGameObject,
			CmdInvStationToStation, CmdInvHangerShipToHangerShip, CmdInvHangerShipToStation,
			CmdPlaceBuy, CmdCancelBuy:
			dispatchStationCmd(w, ix, bus, market, hangers, accounts, invBackend, c, fail)
			continue
		}

		if !hasShip {
			fail(c, fmt.Errorf("no controlled ship"))
			continue
		}

		switch c.Kind {
		case CmdApproach:
			nav := w.Navigations.Get(shipE)
			if nav == nil || !SetApproach(nav, navTargetFromCmd(c)) {
				fail(c, fmt.Errorf("cannot approach while warping"))
			}
		case CmdAlignTo:
			nav := w.Navigations.Get(shipE)
			if nav == nil || !SetAlignTo(nav, navTargetFromCmd(c)) {
				fail(c, fmt.Errorf("cannot align while warping"))
			}
		case CmdWarpTo:
			nav := w.Navigations.Get(shipE)
			if nav == nil || !SetWarpTo(nav, navTargetFromCmd(c), c.StopDistM) {
				fail(c, fmt.Errorf("cannot warp while already warping"))
			}
		case CmdMNav:
			nav := w.Navigations.Get(shipE)
			if nav == nil || !AccumulateMNav(nav, c.DX, c.DY, c.DZ, c.DThrust) {
				fail(c, fmt.Errorf("cannot apply manual input while warping"))
			} else {
				w.Navigations.MarkModified(shipE)
			}
		case CmdKeepAtRange:
			nav := w.Navigations.Get(shipE)
			if nav == nil || !SetKeepAtRange(nav, navTargetFromCmd(c)) {
				fail(c, fmt.Errorf("cannot keep-at-range while warping"))
			}
		case CmdOrbit:
			nav := w.Navigations.Get(shipE)
			if nav == nil || !SetOrbit(nav, navTargetFromCmd(c)) {
				fail(c, fmt.Errorf("cannot orbit while warping"))
			}
		case CmdDock:
			stationE, found := ix.Lookup(c.TargetObj)
			if !found {
				fail(c, fmt.Errorf("station not found"))
				continue
			}
			if err := Dock(w, bus, hangers, accounts, shipE, stationE, c.Player); err != nil {
				fail(c, err)
			}
		case CmdUndock:
			stationE, found := ix.Lookup(c.TargetObj)
			if !found {
				fail(c, fmt.Errorf("station not found"))
				continue
			}
			if _, err := Undock(w, bus, hangers, accounts, stationE, c.Player); err != nil {
				fail(c, err)
			}
		case CmdJump:
			gateE, found := ix.Lookup(c.TargetObj)
			if !found {
				fail(c, fmt.Errorf("gate not found"))
				continue
			}
			if err := Jump(w, ix, bus, accounts, shipE, gateE, c.Player, c.JumpJitterX, c.JumpJitterY, c.JumpJitterZ); err != nil {
				fail(c, err)
			}
		case CmdPlaceSell:
			ship := w.Ships.Get(shipE)
			if ship == nil {
				fail(c, fmt.Errorf("no ship"))
				continue
			}
			if _, err := market.PlaceSellOrder(c.Item, c.Player, c.PricePerUnit, c.Qty, &ship.Onboard, c.Slot); err != nil {
				fail(c, err)
			} else {
				w.Ships.MarkModified(shipE)
				bus.EmitInfo(EInfo{Kind: EInfoInventoryChanged, Player: c.Player, Detail: c.Item})
			}
		case CmdCancelSell:
			ship := w.Ships.Get(shipE)
			if ship == nil {
				fail(c, fmt.Errorf("no ship"))
				continue
			}
			var slotPtr *uint32
			if c.HasSlot {
				slotPtr = &c.Slot
			}
			if err := market.CancelSellOrder(c.Item, c.OrderID, &ship.Onboard, slotPtr); err != nil {
				fail(c, err)
			} else {
				w.Ships.MarkModified(shipE)
				bus.EmitInfo(EInfo{Kind: EInfoMarketCancelled, Player: c.Player, Detail: c.OrderID})
			}
		case CmdFulfillBuy:
			ship := w.Ships.Get(shipE)
			if ship == nil {
				fail(c, fmt.Errorf("no ship"))
				continue
			}
			if err := market.FulfillBuyOrder(c.Item, c.OrderID, c.Player, &ship.Onboard, c.Slot, c.Qty); err != nil {
				fail(c, err)
			} else {
				w.Ships.MarkModified(shipE)
				bus.EmitInfo(EInfo{Kind: EInfoMarketFilled, Player: c.Player, Detail: c.OrderID})
			}
		case CmdFulfillSell:
			ship := w.Ships.Get(shipE)
			if ship == nil {
				fail(c, fmt.Errorf("no ship"))
				continue
			}
			var slotPtr *uint32
			if c.HasSlot {
				slotPtr = &c.Slot
			}
			if err := market.FulfillSellOrder(c.Item, c.OrderID, c.Player, &ship.Onboard, slotPtr, c.Qty); err != nil {
				fail(c, err)
			} else {
				w.Ships.MarkModified(shipE)
				bus.EmitInfo(EInfo{Kind: EInfoMarketFilled, Player: c.Player, Detail: c.OrderID})
			}
		case CmdInvSpaceToSpace:
			if err := transferInventory(w, ix, hangers, invBackend, c.Player, c.SrcLoc, c.DstLoc, c.SrcSlot, c.DstSlot, c.HasDstSlot, c.Qty, market.Catalog()); err != nil {
				fail(c, err)
			} else {
				bus.EmitInfo(EInfo{Kind: EInfoInventoryChanged, Player: c.Player})
			}
		case CmdInvStationToShip:
			dst := InvLoc{Kind: InvLocShip, Obj: c.TargetObj}
			if err := transferInventory(w, ix, hangers, invBackend, c.Player, c.SrcLoc, dst, c.SrcSlot, c.DstSlot, c.HasDstSlot, c.Qty, market.Catalog()); err != nil {
				fail(c, err)
			} else {
				bus.EmitInfo(EInfo{Kind: EInfoInventoryChanged, Player: c.Player})
			}
		case CmdInvRequestShip:
			ship := w.Ships.Get(shipE)
			if ship == nil {
				fail(c, fmt.Errorf("no ship"))
				continue
			}
			path, _ := w.Path(shipE)
			bus.EmitInfo(EInfo{Subject: path, Kind: EInfoInventoryGameObject, Player: c.Player, Detail: ship.Onboard})
		default:
			fail(c, fmt.Errorf("unknown command kind"))
		}
	}

	return errs
}

// dispatchStationCmd handles every command that operates purely on
// persisted state (hangers, station inventory bins, the market) and
// needs no live ship entity.
func dispatchStationCmd(w *World, ix *Indexes, bus *Bus, market *Market, hangers HangerStore, accounts AccountStore, invBackend InventoryBackend, c Cmd, fail func(Cmd, error)) {
	switch c.Kind {
	case CmdSetActiveShip:
		stationE, found := ix.Lookup(c.TargetObj)
		if !found {
			fail(c, fmt.Errorf("station not found"))
			return
		}
		hanger := w.Hangers.Get(stationE)
		if hanger == nil {
			fail(c, ErrNoHanger)
			return
		}
		if err := SetActiveShip(hangers, hanger.HangerUID, c.Player, c.Slot); err != nil {
			fail(c, err)
		}
	case CmdHangerRequestShips:
		stationE, found := ix.Lookup(c.TargetObj)
		if !found {
			fail(c, fmt.Errorf("station not found"))
			return
		}
		hanger := w.Hangers.Get(stationE)
		if hanger == nil {
			fail(c, ErrNoHanger)
			return
		}
		rec, err := HangerShips(hangers, hanger.HangerUID, c.Player)
		if err != nil {
			fail(c, err)
			return
		}
		bus.EmitInfo(EInfo{Subject: c.TargetObj, Kind: EInfoHanger, Player: c.Player, Detail: rec})
	case CmdGetStore:
		store, err := market.PeekItemStore(c.Item)
		if err != nil {
			fail(c, err)
			return
		}
		bus.EmitInfo(EInfo{Kind: EInfoStore, Player: c.Player, Detail: store})
	case CmdInvRequestInventoryList:
		if accounts == nil {
			fail(c, fmt.Errorf("no account context"))
			return
		}
		acct, found, err := accounts.LoadAccount(c.Player)
		if err != nil {
			fail(c, err)
			return
		}
		if !found {
			fail(c, fmt.Errorf("no account"))
			return
		}
		bus.EmitInfo(EInfo{Kind: EInfoInvList, Player: c.Player, Detail: acct.CurrentLocation})
	case CmdInvRequestInventory:
		handle, err := resolveInvLoc(w, ix, hangers, invBackend, c.Player, c.SrcLoc)
		if err != nil {
			fail(c, err)
			return
		}
		bus.EmitInfo(EInfo{Kind: EInfoInventory, Player: c.Player, Detail: *handle.inv})
	case CmdInvRequestGameObject:
		e, found := ix.Lookup(c.TargetObj)
		if !found {
			fail(c, fmt.Errorf("object not found"))
			return
		}
		container := w.Containers.Get(e)
		if container == nil {
			fail(c, fmt.Errorf("object has no inventory"))
			return
		}
		bus.EmitInfo(EInfo{Subject: c.TargetObj, Kind: EInfoInventoryGameObject, Player: c.Player, Detail: container.Inv})
	case CmdInvStationToStation:
		if err := transferInventory(w, ix, hangers, invBackend, c.Player, c.SrcLoc, c.DstLoc, c.SrcSlot, c.DstSlot, c.HasDstSlot, c.Qty, market.Catalog()); err != nil {
			fail(c, err)
		} else {
			bus.EmitInfo(EInfo{Kind: EInfoInventoryChanged, Player: c.Player})
		}
	case CmdInvHangerShipToHangerShip:
		if err := transferInventory(w, ix, hangers, invBackend, c.Player, c.SrcLoc, c.DstLoc, c.SrcSlot, c.DstSlot, c.HasDstSlot, c.Qty, market.Catalog()); err != nil {
			fail(c, err)
		} else {
			bus.EmitInfo(EInfo{Kind: EInfoInventoryChanged, Player: c.Player})
		}
	case CmdInvHangerShipToStation:
		if err := transferInventory(w, ix, hangers, invBackend, c.Player, c.SrcLoc, c.DstLoc, c.SrcSlot, c.DstSlot, c.HasDstSlot, c.Qty, market.Catalog()); err != nil {
			fail(c, err)
		} else {
			bus.EmitInfo(EInfo{Kind: EInfoInventoryChanged, Player: c.Player})
		}
	case CmdPlaceBuy:
		if _, err := market.PlaceBuyOrder(c.Item, c.Player, c.PricePerUnit, c.Qty, c.SrcLoc.InvID); err != nil {
			fail(c, err)
		} else {
			bus.EmitInfo(EInfo{Kind: EInfoInventoryChanged, Player: c.Player, Detail: c.Item})
		}
	case CmdCancelBuy:
		if err := market.CancelBuyOrder(c.Item, c.OrderID); err != nil {
			fail(c, err)
		} else {
			bus.EmitInfo(EInfo{Kind: EInfoMarketCancelled, Player: c.Player, Detail: c.OrderID})
		}
	}
}
