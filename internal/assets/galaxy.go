/*
Package assets
File: galaxy.go
Description:
    Static galaxy topology loading: systems, their celestial bodies,
    stations/hangers and gates, read from galaxy.yaml and spawned once
    at boot into a fresh sim.World and sim.GalaxyMap. Everything this file
    produces is static-archetype (sim.ObjectKind.IsStatic()) — dynamic
    entities (ships) are spawned by login/undock, never by this loader.
*/

package assets

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/everforgeworks/galaxy-sim/internal/sim"
)

type galaxyFile struct {
	Systems []systemDef `yaml:"systems"`
	Gates   []gateLink  `yaml:"gates"`
}

type systemDef struct {
	Name   string       `yaml:"name"`
	Bodies []bodyDef    `yaml:"bodies"`
}

type bodyDef struct {
	Kind         string  `yaml:"kind"` // star|planet|moon|asteroid_belt|station|gate
	Name         string  `yaml:"name"`
	PosX         float64 `yaml:"pos_x"`
	PosY         float64 `yaml:"pos_y"`
	PosZ         float64 `yaml:"pos_z"`
	MassKg       float64 `yaml:"mass_kg"`
	RadiusM      float64 `yaml:"radius_m"`
	HangerUID    string  `yaml:"hanger_uid"`
	DockRangeM   float64 `yaml:"docking_range_m"`
	JumpRangeM   float64 `yaml:"jump_range_m"`
}

type gateLink struct {
	FromSystem string `yaml:"from_system"`
	FromGate   string `yaml:"from_gate"`
	ToSystem   string `yaml:"to_system"`
	ToGate     string `yaml:"to_gate"`
}

func kindFromString(k string) (sim.ObjectKind, error) {
	switch k {
	case "star":
		return sim.KindStar, nil
	case "planet":
		return sim.KindPlanet, nil
	case "moon":
		return sim.KindMoon, nil
	case "asteroid_belt":
		return sim.KindAsteroidBelt, nil
	case "station":
		return sim.KindStation, nil
	case "gate":
		return sim.KindGate, nil
	default:
		return "", fmt.Errorf("assets: unknown body kind %q", k)
	}
}

// LoadGalaxy reads galaxy.yaml at path, spawns every static body into w,
// links gate pairs, and returns the resulting adjacency map.
func LoadGalaxy(path string, w *sim.World) (*sim.GalaxyMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("assets: read galaxy %s: %w", path, err)
	}
	var file galaxyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("assets: parse galaxy %s: %w", path, err)
	}

	gm := sim.NewGalaxyMap()
	gatesByPath := make(map[sim.ObjPath]sim.EntityID)
	gateJumpRange := make(map[sim.ObjPath]float64)

	for _, sys := range file.Systems {
		for _, b := range sys.Bodies {
			kind, err := kindFromString(b.Kind)
			if err != nil {
				return nil, err
			}
			path := sim.NewObjPath(sys.Name, kind, b.Name)
			e := w.NewEntity()
			w.GameObjects.Set(e, sim.GameObject{Path: path})
			w.Transforms.Set(e, sim.Transform{
				Pos: sim.Vec3{b.PosX, b.PosY, b.PosZ},
				Rot: sim.Quat{W: 1},
			})

			switch kind {
			case sim.KindStar, sim.KindPlanet, sim.KindMoon, sim.KindAsteroidBelt:
				w.Celestials.Set(e, sim.Celestial{MassKg: b.MassKg, Radius: b.RadiusM})
				w.WarpTargets.Set(e, sim.WarpTarget{Point: warpPointFor(b)})
			case sim.KindStation:
				w.Celestials.Set(e, sim.Celestial{MassKg: b.MassKg, Radius: b.RadiusM})
				if b.HangerUID != "" {
					w.Hangers.Set(e, sim.HangerComp{
						HangerUID:     b.HangerUID,
						UndockOffset:  sim.Vec3{0, 0, b.RadiusM + 500},
						DockingRangeM: orDefault(b.DockRangeM, 5000),
					})
				}
				w.WarpTargets.Set(e, sim.WarpTarget{Point: warpPointFor(b)})
			case sim.KindGate:
				gatesByPath[path] = e
				gateJumpRange[path] = orDefault(b.JumpRangeM, 15000)
				w.WarpTargets.Set(e, sim.WarpTarget{Point: warpPointFor(b)})
			}
		}
	}

	for _, link := range file.Gates {
		fromPath := sim.NewObjPath(link.FromSystem, sim.KindGate, link.FromGate)
		toPath := sim.NewObjPath(link.ToSystem, sim.KindGate, link.ToGate)
		fromE, ok1 := gatesByPath[fromPath]
		toE, ok2 := gatesByPath[toPath]
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("assets: gate link references unknown gate %s <-> %s", fromPath, toPath)
		}
		w.Gates.Set(fromE, sim.GateComp{JumpRangeM: gateJumpRange[fromPath], DstPath: toPath})
		w.Gates.Set(toE, sim.GateComp{JumpRangeM: gateJumpRange[toPath], DstPath: fromPath})
		gm.Connect(link.FromSystem, link.ToSystem)
	}

	return gm, nil
}

// warpTargetMarginM is how far outside a body's own radius (or, for
// bodies with no radius of their own such as a gate, outside a fixed
// safety distance) its precomputed warp-in point sits.
const warpTargetMarginM = 1000.0

// warpPointFor computes a body's precomputed safe arrival point: a
// position offset outward from the body along its own position vector
// by radius+margin. This mirrors the loader's station/gate/belt warp
// points, which are all "body position plus a fixed outward offset"
// rather than a full orbital-state computation — no orbital mechanics
// are modeled here, only a safe standoff point.
func warpPointFor(b bodyDef) sim.Vec3 {
	pos := sim.Vec3{b.PosX, b.PosY, b.PosZ}
	dist := pos.Len()
	if dist < 1 {
		// Bodies at the system origin (most stars) have no direction to
		// stand off along; offset straight up instead.
		return sim.Vec3{0, b.RadiusM + warpTargetMarginM, 0}
	}
	standoff := b.RadiusM + warpTargetMarginM
	return pos.Add(pos.Normalize().Mul(standoff))
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
