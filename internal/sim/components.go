/*
Package sim
File: components.go
Description:
    Component type definitions for every entity archetype. Each
    type here backs exactly one typed column in the World (world.go);
    systems declare which columns they read and write so the scheduler
    can run disjoint systems within a stage concurrently without any
    runtime reflection.
*/

package sim

import (
	"time"

	"github.com/everforgeworks/galaxy-sim/internal/mathutil"
)

// GameObject is carried by every entity; path→entity and
// system→entities are both pure functions of this component.
type GameObject struct {
	Path ObjPath
}

// Transform holds double-precision kinematic state. Position/velocity
// are meters and meters/second; Rot is a unit quaternion.
type Transform struct {
	Pos Vec3
	Vel Vec3
	Rot Quat
}

type (
	Vec3 = mathutil.Vec3
	Quat = mathutil.Quat
)

// Re-exported so nav.go and its tests can call the rotation helpers
// without importing mathutil directly.
var (
	UpFor           = mathutil.UpFor
	FaceTowards     = mathutil.FaceTowards
	AngleBetweenVec = mathutil.AngleBetweenVec
	Slerp           = mathutil.Slerp
	Lerp            = mathutil.Lerp
	AxisAngle       = mathutil.AxisAngle
	RandomUnitVec3  = mathutil.RandomUnitVec3
)

// Celestial marks a Star/Planet/Moon/AsteroidBelt with its physical
// bulk. Mass is kilograms, Radius meters.
type Celestial struct {
	MassKg  float64
	Radius  float64
}

// WarpTarget is the precomputed safe arrival point associated with a
// static object, used by WarpTo when the destination carries one.
type WarpTarget struct {
	Point Vec3
}

// HangerComp marks a Station entity as hosting a player-ship hanger.
type HangerComp struct {
	HangerUID      string
	UndockOffset   Vec3
	DockingRangeM  float64
}

// GateComp marks a navigation gate, linking to its paired gate by path.
type GateComp struct {
	JumpRangeM float64
	DstPath    ObjPath
}

// ShipStats are the engine/hull constants driving navigation and mass.
type ShipStats struct {
	WarpSpeedMS float64
	WarpSpoolS  float64
	AngVelRads  float64
	ThrustN     float64
	MassKg      float64
}

// ShipComp is the per-ship archetype payload: identity, stats and the
// onboard inventory.
type ShipComp struct {
	Class     string
	Name      string
	Stats     ShipStats
	Onboard   Inventory
}

// LoginState tracks a controller's connectivity for the safe-logout
// timer and the "only LoggedIn ships are emitted" rule.
type LoginState int

const (
	LoggedIn LoginState = iota
	LoggedOut
	SafeLogged
)

// PlayerController binds an in-space ship entity to the account that
// commands it.
type PlayerController struct {
	PlayerName   string
	State        LoginState
	LoggedOutAt  time.Time
}

// NavAction is the navigation state machine's current goal.
type NavAction int

const (
	NavNone NavAction = iota
	NavApproach
	NavAlignTo
	NavWarp
	NavKeepAtRange
	NavOrbit
)

// WarpPhase is the sub-state machine Navigation runs through while
// NavAction is NavWarp.
type WarpPhase int

const (
	NotWarping WarpPhase = iota
	Aligning
	Warping
)

// NavTargetKind distinguishes a live-object target (re-resolved every
// tick from the index) from a fixed point in space (used once warp has
// captured a destination's precomputed WarpTarget).
type NavTargetKind int

const (
	TargetNone NavTargetKind = iota
	TargetObj
	TargetPoint
)

type NavTarget struct {
	Kind  NavTargetKind
	Obj   ObjPath
	Point Vec3
}

// Navigation is the per-ship state machine driving Approach/AlignTo/
// Warp/KeepAtRange/Orbit and manual-input accumulation.
type Navigation struct {
	CurAction NavAction
	WarpState WarpPhase
	WarpSpool float64 // valid only while WarpState == Warping
	WarpDist  float64 // target stop_distance_m, valid only for NavWarp

	Target NavTarget

	CachedTargetPos Vec3
	CachedTargetVel Vec3
	HasCachedTarget bool

	BankedRot    Vec3 // seconds-of-rotation queued, |.| <= 0.2
	BankedThrust float64
}

// Reset returns Navigation to its idle state — called whenever the
// current target is lost (despawned or out of sensor range).
func (n *Navigation) Reset() {
	n.CurAction = NavNone
	n.WarpState = NotWarping
	n.WarpSpool = 0
	n.Target = NavTarget{Kind: TargetNone}
	n.HasCachedTarget = false
}

// Signature is carried by every dynamic (non-static) entity that can be
// sensed; its absence is what marks an entity as always-Static .
type Signature struct {
	Radius float64
}

// Visibility is the per-target classification a Sensor assigns.
type Visibility int

const (
	VisNotVisible Visibility = iota
	VisLockable
	VisVisible
	VisStatic
)

// Sensor tracks which other objects in the same system are currently
// lockable or fully visible to this ship.
type Sensor struct {
	LockableObjs map[ObjPath]struct{}
	VisibleObjs  map[ObjPath]struct{}
}

func NewSensor() Sensor {
	return Sensor{
		LockableObjs: make(map[ObjPath]struct{}),
		VisibleObjs:  make(map[ObjPath]struct{}),
	}
}

// ContainerComp backs Container/Wreck entities: a free-floating
// inventory reachable within AccessDistanceM.
type ContainerComp struct {
	Inv             Inventory
	AccessDistanceM float64
}
