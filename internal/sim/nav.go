/*
Package sim
File: nav.go
Description:
    The navigation state machine: Action x WarpState, driving a
    ship's Transform every tick — the warp spool/lerp thresholds, the
    three-phase approach burn, and the up-axis singularity handling in
    alignToVector. Command-side target assignment lives in command.go,
    which calls the SetXxx functions below; the rest of this file is
    the per-tick Action-stage update.
*/

package sim

import "math"

const (
	warpLongHaulThresholdM   = 11_000_000.0 // beyond this, lerp toward an intermediate stop
	warpIntermediateStopM    = 10_000_000.0
	warpFinalApproachRate    = 0.1 // lerp fraction per 0.1s of dt, final-approach phase
	warpResetDistM           = 10.0
	alignedThresholdRad      = 5.0 * math.Pi / 180.0

	// approachTerminalDistM/approachTerminalSpeedMS gate the final snap
	// to rest: once within both, handleApproach kills the remaining
	// relative velocity outright instead of continuing to brake toward
	// it asymptotically.
	approachTerminalDistM   = 10.0
	approachTerminalSpeedMS = 1.0
)

// SetApproach, SetAlignTo, SetWarpTo, SetKeepAtRange and SetOrbit are
// the command-side entry points a dispatched player/AI command uses to
// change a ship's navigation goal. Each rejects the request outright
// while a warp is already spooling or underway.

func SetApproach(nav *Navigation, target NavTarget) bool {
	if nav.WarpState != NotWarping {
		return false
	}
	nav.CurAction = NavApproach
	nav.Target = target
	return true
}

func SetAlignTo(nav *Navigation, target NavTarget) bool {
	if nav.WarpState != NotWarping {
		return false
	}
	nav.CurAction = NavAlignTo
	nav.Target = target
	return true
}

func SetKeepAtRange(nav *Navigation, target NavTarget) bool {
	if nav.WarpState != NotWarping {
		return false
	}
	nav.CurAction = NavKeepAtRange
	nav.Target = target
	return true
}

func SetOrbit(nav *Navigation, target NavTarget) bool {
	if nav.WarpState != NotWarping {
		return false
	}
	nav.CurAction = NavOrbit
	nav.Target = target
	return true
}

// SetWarpTo begins a warp. stopDistM is the requested stand-off
// distance from the target (0 for "arrive exactly"). A same-system
// warp to an already-resolved point is legal; warping while already
// warping is not.
func SetWarpTo(nav *Navigation, target NavTarget, stopDistM float64) bool {
	if nav.WarpState != NotWarping {
		return false
	}
	nav.CurAction = NavWarp
	nav.Target = target
	nav.WarpDist = stopDistM
	nav.WarpState = Aligning
	nav.BankedRot = Vec3{}
	nav.BankedThrust = 0
	return true
}

// maxBankedRotS/maxBankedThrustS are the MNav accumulator caps:
// at most 0.2 seconds of queued rotation or thrust input at a time.
const (
	maxBankedRotS    = 0.2
	maxBankedThrustS = 0.2
)

// AccumulateMNav folds one manual-navigation input sample into nav's
// banked rotation/thrust accumulators: ignored outright
// while warping, and never touches CurAction/Target — it only queues
// input the next TickNavigation call will drain.
func AccumulateMNav(nav *Navigation, x, y, z, thrust float64) bool {
	if nav.WarpState != NotWarping {
		return false
	}
	banked := nav.BankedRot.Add(Vec3{x, y, z})
	if l := banked.Len(); l > maxBankedRotS {
		banked = banked.Mul(maxBankedRotS / l)
	}
	nav.BankedRot = banked

	nav.BankedThrust += thrust
	if nav.BankedThrust < 0 {
		nav.BankedThrust = 0
	} else if nav.BankedThrust > maxBankedThrustS {
		nav.BankedThrust = maxBankedThrustS
	}
	return true
}

// applyBankedInput drains up to dt seconds of queued manual rotation
// and thrust into tf (run after the per-tick action dispatch,
// regardless of CurAction).
func applyBankedInput(tf *Transform, nav *Navigation, stats *ShipStats, dt float64) {
	if rotS := nav.BankedRot.Len(); rotS > 1e-9 {
		step := math.Min(rotS, dt)
		axis := nav.BankedRot.Normalize()
		tf.Rot = tf.Rot.Mul(AxisAngle(axis, step*stats.AngVelRads)).Normalize()
		nav.BankedRot = nav.BankedRot.Sub(axis.Mul(step))
		if nav.BankedRot.Len() < 1e-6 {
			nav.BankedRot = Vec3{}
		}
	}

	if nav.BankedThrust > 1e-9 && stats.MassKg > 0 {
		step := math.Min(nav.BankedThrust, dt)
		forward := tf.Rot.Rotate(Vec3{0, 0, 1})
		tf.Vel = tf.Vel.Add(forward.Mul(step * stats.ThrustN / stats.MassKg))
		nav.BankedThrust -= step
		if nav.BankedThrust < 1e-6 {
			nav.BankedThrust = 0
		}
	}
}

// resolveTarget returns the current position/velocity of nav's target,
// preferring a precomputed WarpTarget point over the raw Transform when
// both are available. ok is false if an object target can no longer be
// resolved (despawned or left the system) — the caller must Reset nav
// in that case.
func resolveTarget(w *World, ix *Indexes, nav *Navigation) (pos, vel Vec3, ok bool) {
	switch nav.Target.Kind {
	case TargetPoint:
		return nav.Target.Point, Vec3{}, true
	case TargetObj:
		e, found := ix.Lookup(nav.Target.Obj)
		if !found {
			return Vec3{}, Vec3{}, false
		}
		tf := w.Transforms.Get(e)
		if tf == nil {
			return Vec3{}, Vec3{}, false
		}
		if wt := w.WarpTargets.Get(e); wt != nil {
			return wt.Point, tf.Vel, true
		}
		return tf.Pos, tf.Vel, true
	default:
		return Vec3{}, Vec3{}, false
	}
}

// sensorKnowsTarget reports whether e's own Sensor still lists target
// as visible or lockable. Entities without a Sensor (AI without
// perception, e.g.) are treated as omniscient — they never lose a
// target to sensor range.
func sensorKnowsTarget(w *World, e EntityID, target ObjPath) bool {
	sn := w.Sensors.Get(e)
	if sn == nil {
		return true
	}
	if _, ok := sn.VisibleObjs[target]; ok {
		return true
	}
	_, ok := sn.LockableObjs[target]
	return ok
}

// UpdateTransformPositions is sys_navigation_update_transform_positions:
// if the current target is a live (non-static) object that has fallen
// out of this entity's sensor visibility, the navigation goal is
// abandoned. Static targets (planets, stations, gates) are always
// visible so never trigger this.
func UpdateTransformPositions(w *World, ix *Indexes) {
	w.Navigations.Each(func(e EntityID, nav *Navigation) {
		if nav.Target.Kind != TargetObj {
			return
		}
		if nav.Target.Obj.Kind.IsStatic() {
			return
		}
		if !sensorKnowsTarget(w, e, nav.Target.Obj) {
			nav.Reset()
			w.Navigations.MarkModified(e)
		}
	})
}

// TickNavigation is sys_tick_navigation: advances every ship's
// Navigation state machine by dt seconds and writes the resulting
// banked rotation/thrust back into its Transform. Call after
// UpdateTransformPositions and before TickTransforms.
func TickNavigation(w *World, ix *Indexes, dt float64) {
	w.Navigations.Each(func(e EntityID, nav *Navigation) {
		tf := w.Transforms.Get(e)
		ship := w.Ships.Get(e)
		if tf == nil || ship == nil {
			return
		}
		switch nav.CurAction {
		case NavWarp:
			handleWarpTo(w, ix, e, nav, tf, &ship.Stats, dt)
		case NavAlignTo:
			targetPos, _, ok := resolveTarget(w, ix, nav)
			if !ok {
				nav.Reset()
				break
			}
			handleAlignTo(tf, targetPos, &ship.Stats, dt)
		case NavApproach:
			targetPos, targetVel, ok := resolveTarget(w, ix, nav)
			if !ok {
				nav.Reset()
				break
			}
			handleApproach(tf, targetPos, targetVel, &ship.Stats, dt)
		case NavKeepAtRange, NavOrbit:
			// No target-relative steering for these modes: only the
			// banked manual input below is applied, and the ship
			// keeps its current velocity.
		case NavNone:
		}
		applyBankedInput(tf, nav, &ship.Stats, dt)
		w.Transforms.MarkModified(e)
		w.Navigations.MarkModified(e)
	})
}

// handleWarpTo drives the Warp sub-state machine: Aligning until
// within alignedThresholdRad of the target bearing, then Warping with a
// spool that ramps 0→1 over stats.WarpSpoolS seconds. Once spooled,
// velocity is frozen and position is lerped toward the target — via an
// intermediate stop if the remaining distance exceeds
// warpLongHaulThresholdM — until real distance drops under
// warpResetDistM, at which point the warp completes and Navigation
// resets.
func handleWarpTo(w *World, ix *Indexes, e EntityID, nav *Navigation, tf *Transform, stats *ShipStats, dt float64) {
	targetPos, _, ok := resolveTarget(w, ix, nav)
	if !ok {
		nav.Reset()
		return
	}

	toTarget := targetPos.Sub(tf.Pos)
	dist := toTarget.Len()
	stopPoint := targetPos
	if dist > nav.WarpDist && nav.WarpDist > 0 {
		stopPoint = targetPos.Sub(toTarget.Normalize().Mul(nav.WarpDist))
	}

	switch nav.WarpState {
	case Aligning:
		up := UpFor(toTarget)
		if q, ok := FaceTowards(toTarget, up); ok {
			tf.Rot = Slerp(tf.Rot, q, stepFraction(stats.AngVelRads, dt))
		}
		if AngleBetweenVec(tf.Rot.Rotate(Vec3{0, 0, 1}), toTarget) < alignedThresholdRad {
			nav.WarpState = Warping
			nav.WarpSpool = 0
		}
	case Warping:
		if nav.WarpSpool < 1 {
			nav.WarpSpool += dt / stats.WarpSpoolS
			if nav.WarpSpool >= 1 {
				nav.WarpSpool = 1
				tf.Vel = Vec3{}
			}
			return
		}

		tf.Vel = Vec3{}
		realDist := stopPoint.Sub(tf.Pos).Len()
		if realDist < warpResetDistM {
			tf.Pos = stopPoint
			nav.Reset()
			return
		}

		if realDist > warpLongHaulThresholdM {
			toStop := stopPoint.Sub(tf.Pos)
			intermediate := stopPoint.Sub(toStop.Normalize().Mul(warpIntermediateStopM))
			t := math.Min(1, stats.WarpSpeedMS*dt/realDist)
			tf.Pos = Lerp(tf.Pos, intermediate, t)
		} else {
			t := warpFinalApproachRate * (dt / 0.1)
			tf.Pos = Lerp(tf.Pos, stopPoint, t)
		}
	}
}

// stepFraction converts an angular velocity (rad/s) and a timestep into
// a slerp fraction bounded to [0,1], so alignment never overshoots in a
// single tick.
func stepFraction(angVelRads, dt float64) float64 {
	f := angVelRads * dt
	if f > 1 {
		return 1
	}
	if f < 0 {
		return 0
	}
	return f
}

// handleAlignTo rotates toward the target bearing at stats.AngVelRads,
// with no translation.
func handleAlignTo(tf *Transform, targetPos Vec3, stats *ShipStats, dt float64) {
	dir := targetPos.Sub(tf.Pos)
	q, ok := alignToVector(tf.Rot, dir)
	if !ok {
		return
	}
	tf.Rot = Slerp(tf.Rot, q, stepFraction(stats.AngVelRads, dt))
}

// handleApproach runs the three-phase burn: accelerate while far out,
// decelerate once close enough that a
// max-accel brake now arrives exactly at zero relative velocity, and a
// short coast-correction phase between the two so the deceleration
// burn doesn't clip early.
func handleApproach(tf *Transform, targetPos, targetVel Vec3, stats *ShipStats, dt float64) {
	toTarget := targetPos.Sub(tf.Pos)
	dist := toTarget.Len()
	if dist < 1e-6 {
		tf.Vel = targetVel
		return
	}
	dir := toTarget.Normalize()

	q, ok := alignToVector(tf.Rot, toTarget)
	if ok {
		tf.Rot = Slerp(tf.Rot, q, stepFraction(stats.AngVelRads, dt))
	}

	maxAccel := 0.0
	if stats.MassKg > 0 {
		maxAccel = stats.ThrustN / stats.MassKg
	}
	if maxAccel <= 0 {
		return
	}

	relSpeed := tf.Vel.Sub(targetVel).Dot(dir)
	// time to stop from current closing speed at max deceleration
	tStop := math.Abs(relSpeed) / maxAccel
	distToDecelerate := 0.5 * maxAccel * tStop * tStop
	distToStopAccelerating := 2 * distToDecelerate

	switch {
	case dist > distToStopAccelerating:
		tf.Vel = tf.Vel.Add(dir.Mul(maxAccel * dt))
	case dist > distToDecelerate:
		// coast-correct: hold current velocity, let the gap close
	default:
		if dist < approachTerminalDistM && math.Abs(relSpeed) < approachTerminalSpeedMS {
			killRelativeVelocity(tf, targetVel)
			break
		}
		tf.Vel = tf.Vel.Sub(dir.Mul(maxAccel * dt))
		if tf.Vel.Sub(targetVel).Dot(dir) < 0 {
			tf.Vel = targetVel
		}
	}
}

// killRelativeVelocity zeroes a ship's velocity relative to target,
// used when a navigation goal completes and the ship should come to
// rest in the target's own reference frame.
func killRelativeVelocity(tf *Transform, targetVel Vec3) {
	tf.Vel = targetVel
}

// alignToVector builds a face-towards orientation for dir, swapping
// the up reference to the X
// axis within 0.01 rad of Y to dodge the basis singularity, and
// returns the previous orientation unchanged (ok=false) if dir is
// degenerate or the resulting quaternion is NaN.
func alignToVector(prev Quat, dir Vec3) (Quat, bool) {
	up := UpFor(dir)
	q, ok := FaceTowards(dir, up)
	if !ok {
		return prev, false
	}
	return q, true
}

// isAligned reports whether cur is within alignedThresholdRad of facing
// dir.
func isAligned(cur Quat, dir Vec3) bool {
	forward := cur.Rotate(Vec3{0, 0, 1})
	return AngleBetweenVec(forward, dir) < alignedThresholdRad
}

// TickTransforms is sys_tick_transforms: the final Euler integration
// step, pos += vel*dt, applied to every entity with a Transform after
// navigation has set velocities for the tick.
func TickTransforms(w *World, dt float64) {
	w.Transforms.Each(func(e EntityID, tf *Transform) {
		if tf.Vel.Len() == 0 {
			return
		}
		tf.Pos = tf.Pos.Add(tf.Vel.Mul(dt))
		w.Transforms.MarkModified(e)
	})
}
