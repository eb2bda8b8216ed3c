/*
Package sim
File: emit.go
Description:
    The outbound emitter: translates this tick's EState/EInfo
    events and changed components into per-player wire messages, gated
    on sensor visibility — a player only receives updates about objects
    their ship can currently sense, plus events addressed directly to
    them. Sensing runs earlier in the tick so its results are available
    by the time Emit runs.
*/

package sim

// OutMessage is one message destined for a single player's connection.
// Transport-level framing (JSON, a specific envelope) is the transport
// package's concern; sim only decides who gets what.
type OutMessage struct {
	Player string
	Kind   string
	Body   any
}

// Sink receives outbound messages. The transport layer implements this
// to fan messages out to live websocket connections.
type Sink interface {
	Send(OutMessage)
}

// playersWatching returns every LoggedIn player whose ship can
// currently sense subject, plus the direct owner of subject if it is
// itself a player ship (so a player always hears about their own
// ship).
func playersWatching(w *World, subject ObjPath) []string {
	var out []string
	w.Controllers.Each(func(e EntityID, ctrl *PlayerController) {
		if ctrl.State != LoggedIn {
			return
		}
		if p, ok := w.Path(e); ok && p == subject {
			out = append(out, ctrl.PlayerName)
			return
		}
		sn := w.Sensors.Get(e)
		if sn == nil {
			return
		}
		if _, ok := sn.VisibleObjs[subject]; ok {
			out = append(out, ctrl.PlayerName)
		}
	})
	return out
}

// StaticSnapshot is one static body reported in a System message: the
// sun, planets, moons, belts, gates and stations of the system a ship
// just arrived in (by Undock or Jump).
type StaticSnapshot struct {
	Path      ObjPath
	Transform Transform
}

// buildSystemSnapshot collects every static-archetype entity currently
// indexed under sys, for the one-shot System message sent on
// Undock/Jump arrival.
func buildSystemSnapshot(w *World, ix *Indexes, sys string) []StaticSnapshot {
	var out []StaticSnapshot
	for e := range ix.EntitiesInSystem(sys) {
		path, ok := w.Path(e)
		if !ok || !path.Kind.IsStatic() {
			continue
		}
		tf := w.Transforms.Get(e)
		if tf == nil {
			continue
		}
		out = append(out, StaticSnapshot{Path: path, Transform: *tf})
	}
	return out
}

// Emit is the NetworkOut stage: drains the tick's event bus and
// changed-component sets and produces OutMessages onto sink.
func Emit(w *World, ix *Indexes, bus *Bus, sink Sink) {
	for _, ev := range bus.DrainStates() {
		kind := "other_ship"
		if ev.Kind == EStateLostSight {
			kind = "lost_sight"
		}
		sink.Send(OutMessage{Player: playerFor(w, ev.Observer), Kind: kind, Body: ev})
	}

	for _, ev := range bus.DrainInfos() {
		if ev.Player != "" {
			sink.Send(OutMessage{Player: ev.Player, Kind: infoKindName(ev.Kind), Body: ev})
		} else {
			for _, player := range playersWatching(w, ev.Subject) {
				sink.Send(OutMessage{Player: player, Kind: infoKindName(ev.Kind), Body: ev})
			}
		}
		// Undock/Jump additionally carry a full static snapshot of the
		// arrival system, addressed only to the arriving player.
		if ev.Kind == EInfoUndocked || ev.Kind == EInfoJumped {
			player := ev.Player
			if player == "" {
				player = playerFor(w, ev.Subject)
			}
			if player != "" {
				sink.Send(OutMessage{Player: player, Kind: "system", Body: buildSystemSnapshot(w, ix, ev.Subject.Sys)})
			}
		}
	}

	w.Transforms.Each(func(e EntityID, tf *Transform) {
		if !w.Transforms.Changed(e) {
			return
		}
		path, ok := w.Path(e)
		if !ok {
			return
		}
		owner := playerFor(w, path)
		for _, player := range playersWatching(w, path) {
			sink.Send(OutMessage{Player: player, Kind: "mv", Body: struct {
				Path ObjPath
				Transform
			}{path, *tf}})
		}
		// The ship's own controller always receives its Mv even if, in
		// some future sensor tuning, self-sensing were ever excluded.
		if owner != "" && !contains(playersWatching(w, path), owner) {
			sink.Send(OutMessage{Player: owner, Kind: "mv", Body: struct {
				Path ObjPath
				Transform
			}{path, *tf}})
		}
	})

	w.Ships.Each(func(e EntityID, ship *ShipComp) {
		if !w.Ships.Changed(e) && !w.Navigations.Changed(e) {
			return
		}
		ctrl := w.Controllers.Get(e)
		if ctrl == nil {
			return
		}
		nav := w.Navigations.Get(e)
		sink.Send(OutMessage{Player: ctrl.PlayerName, Kind: "own_ship", Body: struct {
			Ship ShipComp
			Nav  *Navigation
		}{*ship, nav}})
	})
}

func contains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

func playerFor(w *World, path ObjPath) string {
	var found string
	w.Controllers.Each(func(e EntityID, ctrl *PlayerController) {
		if p, ok := w.Path(e); ok && p == path {
			found = ctrl.PlayerName
		}
	})
	return found
}

func infoKindName(k EInfoKind) string {
	switch k {
	case EInfoDocked:
		return "docked"
	case EInfoUndocked:
		return "undocked"
	case EInfoJumped:
		return "jumped"
	case EInfoDespawned:
		return "despawned"
	case EInfoInventoryChanged:
		return "inventory_changed"
	case EInfoMarketFilled:
		return "market_filled"
	case EInfoMarketCancelled:
		return "market_cancelled"
	case EInfoBankTransaction:
		return "bank_transaction"
	case EInfoInvariantViolation:
		return "invariant_violation"
	case EInfoLocation:
		return "location"
	case EInfoHanger:
		return "hanger"
	case EInfoStore:
		return "store"
	case EInfoGalaxyMap:
		return "galaxy_map"
	case EInfoInvList:
		return "inv_list"
	case EInfoInventoryGameObject:
		return "inventory_game_object"
	case EInfoInventory:
		return "inventory"
	case EInfoError:
		return "error"
	case EInfoInventoryId:
		return "inventory_id"
	default:
		return "unknown"
	}
}
