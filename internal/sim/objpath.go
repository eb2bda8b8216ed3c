/*
Package sim
File: objpath.go
Description:
    Identifiers shared across every other file in the package: the
    (system, kind, name) triple that names every object in the galaxy,
    plus the small scalar id types layered on top of it (hanger,
    station-inventory, item, market-order ids).
*/

package sim

import "fmt"

// ObjectKind classifies what archetype an ObjPath refers to. The
// "static" kinds are spawned once at world load and never despawned.
type ObjectKind string

const (
	KindStar         ObjectKind = "Star"
	KindPlanet       ObjectKind = "Planet"
	KindMoon         ObjectKind = "Moon"
	KindAsteroidBelt ObjectKind = "AsteroidBelt"
	KindStation      ObjectKind = "Station"
	KindGate         ObjectKind = "Gate"
	KindPlayerShip   ObjectKind = "PlayerShip"
	KindAIShip       ObjectKind = "AIShip"
	KindContainer    ObjectKind = "Container"
	KindWreck        ObjectKind = "Wreck"
)

// IsStatic reports whether entities of this kind are immutable after
// world load (never spawned or despawned by the simulation).
func (k ObjectKind) IsStatic() bool {
	switch k {
	case KindStar, KindPlanet, KindMoon, KindAsteroidBelt, KindStation, KindGate:
		return true
	default:
		return false
	}
}

// ObjPath globally and uniquely identifies an object in the galaxy.
type ObjPath struct {
	Sys  string
	Kind ObjectKind
	Name string
}

// NewObjPath builds a path. Kept as a function (not a bare struct
// literal) so callers read as intent rather than field order.
func NewObjPath(sys string, kind ObjectKind, name string) ObjPath {
	return ObjPath{Sys: sys, Kind: kind, Name: name}
}

func (p ObjPath) String() string {
	return fmt.Sprintf("%s/%s/%s", p.Sys, p.Kind, p.Name)
}

// WithSystem returns a copy of p relocated to a different system, kind
// and name unchanged. Used by Jump to rewrite a ship's path in place.
func (p ObjPath) WithSystem(sys string) ObjPath {
	p.Sys = sys
	return p
}

// Scalar ids referenced throughout the package.
type (
	HngId   = string // a station hanger's uid; persistence.go keys hanger records by (hanger uid, player)
	InvId   = string
	ItemId  = string
	OrderId = uint64
)
