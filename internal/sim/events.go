/*
Package sim
File: events.go
Description:
    Event types produced by the Action/Consequence/Lifecycle stages and
    consumed by the outbound emitter: EState/EInfo event streams
    translated into a plain append-only slice the scheduler drains once
    per tick. Go has no EventWriter/EventReader double-buffering
    primitive, so a single per-tick Bus plays that role instead.
*/

package sim

// EState is a change in what a player can currently sense: a new
// contact entering range, or a contact falling out of range (which
// includes a contact that has despawned).
type EState struct {
	Observer ObjPath
	Subject  ObjPath
	Kind     EStateKind
}

type EStateKind int

const (
	EStateOtherShip EStateKind = iota
	EStateLostSight
)

// EInfo is a one-shot informational event: something happened to a
// specific entity that the emitter should translate into a wire
// message for anyone currently able to see it.
type EInfo struct {
	Subject ObjPath
	Kind    EInfoKind
	Detail  any
	// Player, when non-empty, addresses the message directly rather
	// than through playersWatching(Subject) — needed for Dock/Undock/
	// Jump, where Subject may already have been despawned or relocated
	// by the time Emit runs.
	Player string
}

type EInfoKind int

const (
	EInfoDocked EInfoKind = iota
	EInfoUndocked
	EInfoJumped
	EInfoDespawned
	EInfoInventoryChanged
	EInfoMarketFilled
	EInfoMarketCancelled
	EInfoBankTransaction
	EInfoInvariantViolation
	// EInfoLocation reports a player's current docked/in-space location,
	// in response to a client query rather than a state transition.
	EInfoLocation
	// EInfoHanger carries a HangerRecord snapshot: every ship a player
	// has stored at one station, and which one is active.
	EInfoHanger
	// EInfoStore carries an ItemStore snapshot for GetStore.
	EInfoStore
	// EInfoGalaxyMap carries the static system-adjacency graph.
	EInfoGalaxyMap
	// EInfoInvList carries the set of inventory/ship paths a player can
	// currently address (InvRequestInventoryList).
	EInfoInvList
	// EInfoInventoryGameObject carries a container or ship entity's
	// inventory alongside the path it was requested against.
	EInfoInventoryGameObject
	// EInfoInventory carries a station storage bin's Inventory snapshot
	// for InvRequestInventory(inv_id).
	EInfoInventory
	// EInfoError reports a rejected command back to the issuing player
	// without mutating any state.
	EInfoError
	// EInfoInventoryId tells the client which station inventory id now
	// holds its ship's cargo after docking, keyed to the hanger it
	// docked into.
	EInfoInventoryId
)

// Bus accumulates events during a tick and is drained once, by Emit,
// at the end of the stage pipeline.
type Bus struct {
	states []EState
	infos  []EInfo
}

func NewBus() *Bus { return &Bus{} }

func (b *Bus) EmitState(e EState) { b.states = append(b.states, e) }
func (b *Bus) EmitInfo(e EInfo)   { b.infos = append(b.infos, e) }

// DrainStates and DrainInfos hand the accumulated events to the Emit
// stage and reset the bus for the next tick.
func (b *Bus) DrainStates() []EState {
	s := b.states
	b.states = nil
	return s
}

func (b *Bus) DrainInfos() []EInfo {
	i := b.infos
	b.infos = nil
	return i
}
