/*
Package sim
File: sensor.go
Description:
    Per-tick sensor rescan: every entity with a Sensor rescans all
    entities sharing its system, classifies each by distance, and emits
    EState transitions for anything that crossed a visibility boundary
    since the last tick. Static archetypes (no Signature component) are
    always Static and never generate events.
*/

package sim

const sensorRangeM = 100_000.0

// classify returns the Visibility a sensor would assign to a candidate
// at the given distance. Entities without a Signature are always
// Static; this takes priority over distance.
func classify(hasSignature bool, distM float64) Visibility {
	if !hasSignature {
		return VisStatic
	}
	if distM >= sensorRangeM {
		return VisNotVisible
	}
	return VisLockable
}

// RescanSensors recomputes every Sensor's LockableObjs/VisibleObjs
// sets for the owner's current system and emits EState events for
// anything that changed state since last tick.
func RescanSensors(w *World, ix *Indexes, bus *Bus) {
	w.Sensors.Each(func(e EntityID, sn *Sensor) {
		observerPath, ok := w.Path(e)
		if !ok {
			return
		}
		observerTF := w.Transforms.Get(e)
		if observerTF == nil {
			return
		}

		candidates := ix.EntitiesInSystem(observerPath.Sys)
		nowLockable := make(map[ObjPath]struct{})
		nowVisible := make(map[ObjPath]struct{})

		for other := range candidates {
			if other == e {
				continue
			}
			otherPath, ok := w.Path(other)
			if !ok {
				continue
			}
			otherTF := w.Transforms.Get(other)
			if otherTF == nil {
				continue
			}
			hasSig := w.Signatures.Has(other)
			dist := otherTF.Pos.Sub(observerTF.Pos).Len()
			switch classify(hasSig, dist) {
			case VisStatic:
				// Static archetypes are never carried in the sensor's
				// locked/visible sets and generate no transition events.
			case VisLockable:
				nowLockable[otherPath] = struct{}{}
				nowVisible[otherPath] = struct{}{}
			case VisVisible:
				nowVisible[otherPath] = struct{}{}
			case VisNotVisible:
				// absent from both sets
			}
		}

		for p := range nowVisible {
			if _, was := sn.VisibleObjs[p]; !was {
				bus.EmitState(EState{Observer: observerPath, Subject: p, Kind: EStateOtherShip})
			}
		}
		for p := range sn.VisibleObjs {
			if _, still := nowVisible[p]; !still {
				bus.EmitState(EState{Observer: observerPath, Subject: p, Kind: EStateLostSight})
			}
		}

		sn.LockableObjs = nowLockable
		sn.VisibleObjs = nowVisible
		w.Sensors.MarkModified(e)
	})
}
