/*
Package sim
File: login.go
Description:
    Login/logout lifecycle: a disconnected player's ship lingers
    as SafeLogged for a grace window before the scheduler despawns it
    to the ships-in-space tree, protecting against a transient
    disconnect costing the player their ship mid-flight. LoginReloadShip
    is the reverse: restoring that ship on a subsequent login.
*/

package sim

import "time"

// SafeLogoutWindow is how long a disconnected controller stays
// SafeLogged before TickLogins despawns it.
const SafeLogoutWindow = 10 * time.Second

// Login marks a controller as connected, clearing any pending
// safe-logout timer.
func Login(w *World, e EntityID) {
	ctrl := w.Controllers.Get(e)
	if ctrl == nil {
		return
	}
	ctrl.State = LoggedIn
	w.Controllers.MarkModified(e)
}

// LoginReloadShip is the other half of Login for a player whose ship
// wasn't left SafeLogged in the live world at all: if the account's
// current_location is a PlayerShip path (as opposed to a Station,
// meaning the ship is sitting in a hanger with nothing to spawn), the
// ship's last Transform/Navigation/ShipComp is pulled back out of the
// ships-in-space tree and spawned as a fresh LoggedIn entity. The
// record is deleted from the tree once restored. No-op if the account
// is new or its location already points at a station.
func LoginReloadShip(w *World, ships ShipsInSpaceStore, accounts AccountStore, player string) (EntityID, error) {
	acct, found, err := accounts.LoadAccount(player)
	if err != nil || !found || acct.CurrentLocation.Kind != KindPlayerShip {
		return 0, err
	}
	rec, found, err := ships.LoadShipInSpace(player)
	if err != nil || !found {
		return 0, err
	}

	e := w.NewEntity()
	w.GameObjects.Set(e, GameObject{Path: rec.Path})
	w.Transforms.Set(e, rec.Transform)
	w.Ships.Set(e, rec.Ship)
	w.Controllers.Set(e, PlayerController{PlayerName: player, State: LoggedIn})
	w.Navigations.Set(e, rec.Nav)
	w.Signatures.Set(e, Signature{Radius: 10})
	w.Sensors.Set(e, NewSensor())

	return e, ships.DeleteShipInSpace(player)
}

// Logout starts the safe-logout grace window for e, stamped at now:
// navigation resets to idle and banked manual input is dropped so the
// ship coasts to a stop under TickLogins' velocity decay rather than
// continuing to execute a stale command.
func Logout(w *World, e EntityID, now time.Time) {
	ctrl := w.Controllers.Get(e)
	if ctrl == nil {
		return
	}
	ctrl.State = SafeLogged
	ctrl.LoggedOutAt = now
	w.Controllers.MarkModified(e)

	if nav := w.Navigations.Get(e); nav != nil {
		nav.Reset()
		nav.BankedRot = Vec3{}
		nav.BankedThrust = 0
		w.Navigations.MarkModified(e)
	}
}

// SafeLogoutVelocityDecay is the per-tick multiplier applied to a
// SafeLogged ship's velocity.
const SafeLogoutVelocityDecay = 0.9

// LogoutSink persists the final state of a ship whose safe-logout
// grace window has elapsed.
type LogoutSink interface {
	PersistLoggedOutShip(player string, rec ShipInSpaceRecord) error
}

// TickLogins is the Lifecycle-stage sweep that decays a SafeLogged
// ship's drift and finalizes logouts once their grace window has
// elapsed: the ship is handed off to passive persistent storage in
// place (no hanger required) by despawning the entity after recording
// its last Transform/Navigation/Ship state.
func TickLogins(w *World, sink LogoutSink, now time.Time) error {
	type expiry struct {
		e      EntityID
		player string
	}
	var expired []expiry
	w.Controllers.Each(func(e EntityID, ctrl *PlayerController) {
		if ctrl.State != SafeLogged {
			return
		}
		if tf := w.Transforms.Get(e); tf != nil {
			tf.Vel = tf.Vel.Mul(SafeLogoutVelocityDecay)
			w.Transforms.MarkModified(e)
		}
		if now.Sub(ctrl.LoggedOutAt) < SafeLogoutWindow {
			return
		}
		expired = append(expired, expiry{e: e, player: ctrl.PlayerName})
	})

	for _, x := range expired {
		path, ok := w.Path(x.e)
		if !ok {
			continue
		}
		tf := w.Transforms.Get(x.e)
		ship := w.Ships.Get(x.e)
		if tf != nil && ship != nil {
			var nav Navigation
			if n := w.Navigations.Get(x.e); n != nil {
				nav = *n
			}
			rec := ShipInSpaceRecord{Ship: *ship, Nav: nav, Transform: *tf, Path: path}
			if err := sink.PersistLoggedOutShip(x.player, rec); err != nil {
				return err
			}
		}
		w.Despawn(x.e)
	}
	return nil
}
