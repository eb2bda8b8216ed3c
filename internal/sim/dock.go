/*
Package sim
File: dock.go
Description:
    Dock/undock transitions. Docking removes a ship entity from
    the live world and hands it to persistent hanger storage (owned by
    the persistence layer, not the ECS); undocking spawns a fresh
    entity back into space at the hanger's undock offset.
*/

package sim

import (
	"errors"
	"strconv"

	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	ErrNotInSameSystem  = errors.New("sim: target is not in this system")
	ErrOutOfRange       = errors.New("sim: target is out of range")
	ErrNotOwner         = errors.New("sim: not the owning controller")
	ErrNoHanger         = errors.New("sim: destination has no hanger")
	ErrNoActiveShip     = errors.New("sim: hanger has no active ship")
	ErrHangerSlotEmpty  = errors.New("sim: no ship stored in that hanger slot")
	ErrHangerFull       = errors.New("sim: hanger has no free slot")
)

// HangerRecord is a player's full stored-ship state at one station's
// hanger: every ship they've docked there, keyed by slot, plus which
// slot (if any) SetActiveShip has chosen as the one Undock will launch.
// This mirrors the persisted `{active_slot?, slots: map<u32, Ship>}`
// shape directly, rather than collapsing it to a single stored ship.
type HangerRecord struct {
	ActiveSlot *uint32
	Slots      map[uint32]ShipComp
}

func NewHangerRecord() HangerRecord {
	return HangerRecord{Slots: make(map[uint32]ShipComp)}
}

// hangerRecordBSON is HangerRecord's wire shape: slot indices round-trip
// as decimal strings since BSON maps require string keys.
type hangerRecordBSON struct {
	ActiveSlot *uint32
	Slots      map[string]ShipComp
}

// MarshalBSON implements bson.Marshaler.
func (r HangerRecord) MarshalBSON() ([]byte, error) {
	aux := hangerRecordBSON{ActiveSlot: r.ActiveSlot, Slots: make(map[string]ShipComp, len(r.Slots))}
	for slot, ship := range r.Slots {
		aux.Slots[strconv.FormatUint(uint64(slot), 10)] = ship
	}
	return bson.Marshal(aux)
}

// UnmarshalBSON implements bson.Unmarshaler.
func (r *HangerRecord) UnmarshalBSON(data []byte) error {
	var aux hangerRecordBSON
	if err := bson.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.ActiveSlot = aux.ActiveSlot
	r.Slots = make(map[uint32]ShipComp, len(aux.Slots))
	for k, ship := range aux.Slots {
		n, err := strconv.ParseUint(k, 10, 32)
		if err != nil {
			return err
		}
		r.Slots[uint32(n)] = ship
	}
	return nil
}

// firstFreeHangerSlot mirrors Inventory.firstFreeSlot: the smallest
// non-negative index not already occupied.
func (r HangerRecord) firstFreeSlot() uint32 {
	for i := uint32(0); i <= uint32(len(r.Slots)); i++ {
		if _, ok := r.Slots[i]; !ok {
			return i
		}
	}
	return 0
}

// HangerStore is the persistence-side counterpart dock/undock/
// SetActiveShip/HangerRequestShips read and write; its implementation
// lives outside internal/sim (see internal/store).
type HangerStore interface {
	Load(hangerUID string, playerName string) (HangerRecord, error)
	Save(hangerUID string, playerName string, rec HangerRecord) error
}

// Dock moves the ship at shipE into the station at stationE's hanger,
// provided both are in the same system, the controller on shipE
// belongs to requester, and shipE is within the hanger's docking
// range. The ship entity is despawned on success; its ShipComp is
// handed to store for persistent storage.
func Dock(w *World, bus *Bus, store HangerStore, accounts AccountStore, shipE, stationE EntityID, requester string) error {
	shipPath, ok := w.Path(shipE)
	if !ok {
		return ErrNotInSameSystem
	}
	stationPath, ok := w.Path(stationE)
	if !ok {
		return ErrNotInSameSystem
	}
	if shipPath.Sys != stationPath.Sys {
		return ErrNotInSameSystem
	}

	ctrl := w.Controllers.Get(shipE)
	if ctrl == nil || ctrl.PlayerName != requester {
		return ErrNotOwner
	}

	hanger := w.Hangers.Get(stationE)
	if hanger == nil {
		return ErrNoHanger
	}

	shipTF := w.Transforms.Get(shipE)
	stationTF := w.Transforms.Get(stationE)
	if shipTF == nil || stationTF == nil {
		return ErrNotInSameSystem
	}
	// Strict less-than: distance exactly equal to the docking range is
	// rejected, not accepted.
	if shipTF.Pos.Sub(stationTF.Pos).Len() >= hanger.DockingRangeM {
		return ErrOutOfRange
	}

	ship := w.Ships.Get(shipE)
	if ship == nil {
		return errors.New("sim: entity has no ShipComp")
	}
	rec, err := store.Load(hanger.HangerUID, requester)
	if err != nil {
		return err
	}
	if rec.Slots == nil {
		rec.Slots = make(map[uint32]ShipComp)
	}
	slot := rec.firstFreeSlot()
	rec.Slots[slot] = *ship
	rec.ActiveSlot = &slot
	if err := store.Save(hanger.HangerUID, requester, rec); err != nil {
		return err
	}
	if err := saveCurrentLocation(accounts, requester, stationPath); err != nil {
		return err
	}

	w.Despawn(shipE)
	bus.EmitInfo(EInfo{Subject: shipPath, Kind: EInfoDocked, Detail: stationPath, Player: requester})
	bus.EmitInfo(EInfo{Subject: shipPath, Kind: EInfoInventoryId, Detail: hanger.HangerUID, Player: requester})
	return nil
}

// Undock spawns requester's active stored ship back into space at the
// station's hanger undock offset. Undocking with no active slot set
// returns ErrNoActiveShip rather than spawning a zero-value ship.
func Undock(w *World, bus *Bus, store HangerStore, accounts AccountStore, stationE EntityID, requester string) (EntityID, error) {
	stationPath, ok := w.Path(stationE)
	if !ok {
		return 0, ErrNotInSameSystem
	}
	hanger := w.Hangers.Get(stationE)
	if hanger == nil {
		return 0, ErrNoHanger
	}
	stationTF := w.Transforms.Get(stationE)
	if stationTF == nil {
		return 0, ErrNotInSameSystem
	}

	rec, err := store.Load(hanger.HangerUID, requester)
	if err != nil {
		return 0, err
	}
	if rec.ActiveSlot == nil {
		return 0, ErrNoActiveShip
	}
	ship, found := rec.Slots[*rec.ActiveSlot]
	if !found {
		return 0, ErrNoActiveShip
	}
	delete(rec.Slots, *rec.ActiveSlot)
	rec.ActiveSlot = nil
	if err := store.Save(hanger.HangerUID, requester, rec); err != nil {
		return 0, err
	}

	e := w.NewEntity()
	shipPath := NewObjPath(stationPath.Sys, KindPlayerShip, ship.Name)
	w.GameObjects.Set(e, GameObject{Path: shipPath})
	w.Transforms.Set(e, Transform{
		Pos: stationTF.Pos.Add(hanger.UndockOffset),
		Vel: Vec3{},
		Rot: Quat{W: 1},
	})
	w.Ships.Set(e, ship)
	w.Controllers.Set(e, PlayerController{PlayerName: requester, State: LoggedIn})
	w.Navigations.Set(e, Navigation{})
	w.Signatures.Set(e, Signature{Radius: 10})
	w.Sensors.Set(e, NewSensor())

	if err := saveCurrentLocation(accounts, requester, shipPath); err != nil {
		return e, err
	}

	bus.EmitInfo(EInfo{Subject: shipPath, Kind: EInfoUndocked, Detail: stationPath, Player: requester})
	return e, nil
}

// saveCurrentLocation rewrites the player's account.current_location,
// preserving whatever AccessToken/HomeStationPath it already carried.
// accounts may be nil in tests that don't exercise the account tree.
func saveCurrentLocation(accounts AccountStore, player string, loc ObjPath) error {
	if accounts == nil {
		return nil
	}
	rec, found, err := accounts.LoadAccount(player)
	if err != nil {
		return err
	}
	if !found {
		rec.AccessToken = NewAccessToken()
	}
	rec.CurrentLocation = loc
	return accounts.SaveAccount(player, rec)
}

// SetActiveShip changes which of requester's stored ships at this
// hanger Undock will launch next. The player need not be docked here
// right now — switching which ship is "active" is itself the command a
// docked player issues before undocking.
func SetActiveShip(store HangerStore, hangerUID, requester string, slot uint32) error {
	rec, err := store.Load(hangerUID, requester)
	if err != nil {
		return err
	}
	if _, ok := rec.Slots[slot]; !ok {
		return ErrHangerSlotEmpty
	}
	rec.ActiveSlot = &slot
	return store.Save(hangerUID, requester, rec)
}

// HangerShips returns every ship requester currently has stored at this
// hanger, keyed by slot — the view HangerRequestShips reports back as
// an Info::Hanger message.
func HangerShips(store HangerStore, hangerUID, requester string) (HangerRecord, error) {
	return store.Load(hangerUID, requester)
}

// hangerShipInventory resolves the onboard Inventory of one of
// requester's stored ships, for the Inv*ToHangerShip transfer family —
// the ship needn't be active; any stored slot is addressable.
func hangerShipInventory(store HangerStore, hangerUID, requester string, slot uint32) (*ShipComp, HangerRecord, error) {
	rec, err := store.Load(hangerUID, requester)
	if err != nil {
		return nil, rec, err
	}
	ship, ok := rec.Slots[slot]
	if !ok {
		return nil, rec, ErrHangerSlotEmpty
	}
	return &ship, rec, nil
}
