/*
Package sim
File: jump.go
Description:
    Gate jump transitions: the same checks as docking (same system,
    owner, in range) followed by a teleport to the destination gate's
    position plus a random 1km jitter, and a rewrite of the ship's
    ObjPath.Sys while keeping its kind/name.
*/

package sim

import "errors"

const jumpJitterM = 1000.0

// Jump moves the ship at shipE through the gate at gateE, provided
// gate/ship share a system, requester owns the ship, and the ship is
// within the gate's jump range. rx/ry/rz are caller-supplied [0,1)
// samples forwarded to RandomUnitVec3 for the arrival jitter, keeping
// the transition deterministic under test.
func Jump(w *World, ix *Indexes, bus *Bus, accounts AccountStore, shipE, gateE EntityID, requester string, rx, ry, rz float64) error {
	shipPath, ok := w.Path(shipE)
	if !ok {
		return ErrNotInSameSystem
	}
	gatePath, ok := w.Path(gateE)
	if !ok {
		return ErrNotInSameSystem
	}
	if shipPath.Sys != gatePath.Sys {
		return ErrNotInSameSystem
	}

	ctrl := w.Controllers.Get(shipE)
	if ctrl == nil || ctrl.PlayerName != requester {
		return ErrNotOwner
	}

	gate := w.Gates.Get(gateE)
	if gate == nil {
		return errors.New("sim: entity has no GateComp")
	}
	shipTF := w.Transforms.Get(shipE)
	gateTF := w.Transforms.Get(gateE)
	if shipTF == nil || gateTF == nil {
		return ErrNotInSameSystem
	}
	if shipTF.Pos.Sub(gateTF.Pos).Len() >= gate.JumpRangeM {
		return ErrOutOfRange
	}

	dstE, ok := ix.Lookup(gate.DstPath)
	if !ok {
		return errors.New("sim: destination gate not found")
	}
	dstTF := w.Transforms.Get(dstE)
	if dstTF == nil {
		return errors.New("sim: destination gate has no Transform")
	}

	jitter := RandomUnitVec3(rx, ry, rz).Mul(jumpJitterM)
	shipTF.Pos = dstTF.Pos.Add(jitter)
	shipTF.Vel = Vec3{}
	w.Transforms.MarkModified(shipE)

	newPath := shipPath.WithSystem(gate.DstPath.Sys)
	go_ := w.GameObjects.Get(shipE)
	go_.Path = newPath
	w.GameObjects.MarkModified(shipE)

	if nav := w.Navigations.Get(shipE); nav != nil {
		nav.Reset()
	}

	if err := saveCurrentLocation(accounts, requester, newPath); err != nil {
		return err
	}

	bus.EmitInfo(EInfo{Subject: newPath, Kind: EInfoJumped, Detail: shipPath, Player: requester})
	return nil
}
