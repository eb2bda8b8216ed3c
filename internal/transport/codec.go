/*
Package transport
File: codec.go
Description:
    Wire-to-Cmd decoding for inbound frames. Each CmdKind has its
    own payload shape; decodeCmd dispatches on the envelope's Type field
    and fills in a sim.Cmd, leaving validation of the command's
    semantics (ownership, range, warp-in-progress) to sim.Dispatch.
*/

package transport

import (
	"encoding/json"
	"fmt"

	"github.com/everforgeworks/galaxy-sim/internal/sim"
)

type navPayload struct {
	TargetSys   string  `json:"target_sys"`
	TargetKind  string  `json:"target_kind"`
	TargetName  string  `json:"target_name"`
	UsePoint    bool    `json:"use_point"`
	PointX      float64 `json:"point_x"`
	PointY      float64 `json:"point_y"`
	PointZ      float64 `json:"point_z"`
	StopDistM   float64 `json:"stop_dist_m"`
}

type mnavPayload struct {
	DX      float64 `json:"dx"`
	DY      float64 `json:"dy"`
	DZ      float64 `json:"dz"`
	DThrust float64 `json:"dthrust"`
}

type orderPayload struct {
	Item         string `json:"item"`
	PricePerUnit int64  `json:"price_per_unit"`
	Qty          uint32 `json:"qty"`
	Slot         uint32 `json:"slot"`
	HasSlot      bool   `json:"has_slot"`
	OrderID      uint64 `json:"order_id"`
	// Inv is PlaceBuyOrder's delivery location: the buyer's own station
	// bin FulfillBuyOrder later deposits the purchased stack into.
	Inv string `json:"inv,omitempty"`
}

// hangerCmdPayload addresses a station and (for SetActiveShip) the
// stored-ship slot to switch to.
type hangerCmdPayload struct {
	TargetSys  string `json:"target_sys"`
	TargetKind string `json:"target_kind"`
	TargetName string `json:"target_name"`
	Slot       uint32 `json:"slot"`
}

type itemQueryPayload struct {
	Item string `json:"item"`
}

// invLocPayload is the wire shape of an sim.InvLoc: which of the four
// addressable inventory kinds, plus whichever identifying fields that
// kind needs.
type invLocPayload struct {
	Kind       string `json:"kind"` // "ship", "container", "hanger_ship", "station"
	Sys        string `json:"sys"`
	ObjKind    string `json:"obj_kind"`
	Name       string `json:"name"`
	HangerID   string `json:"hanger_id"`
	HangerSlot uint32 `json:"hanger_slot"`
	InvID      string `json:"inv_id"`
}

func (p invLocPayload) toInvLoc() (sim.InvLoc, error) {
	switch p.Kind {
	case "ship":
		kind, err := bodyKind(p.ObjKind)
		if err != nil {
			return sim.InvLoc{}, err
		}
		return sim.InvLoc{Kind: sim.InvLocShip, Obj: sim.NewObjPath(p.Sys, kind, p.Name)}, nil
	case "container":
		kind, err := bodyKind(p.ObjKind)
		if err != nil {
			return sim.InvLoc{}, err
		}
		return sim.InvLoc{Kind: sim.InvLocContainer, Obj: sim.NewObjPath(p.Sys, kind, p.Name)}, nil
	case "hanger_ship":
		return sim.InvLoc{Kind: sim.InvLocHangerShip, HangerUID: p.HangerID, HangerSlot: p.HangerSlot}, nil
	case "station":
		return sim.InvLoc{Kind: sim.InvLocStation, InvID: sim.InvId(p.InvID)}, nil
	default:
		return sim.InvLoc{}, fmt.Errorf("transport: unknown inventory location kind %q", p.Kind)
	}
}

// transferPayload is the wire shape shared by every Inv*To* command.
type transferPayload struct {
	Src        invLocPayload `json:"src"`
	Dst        invLocPayload `json:"dst"`
	SrcSlot    uint32        `json:"src_slot"`
	DstSlot    uint32        `json:"dst_slot"`
	HasDstSlot bool          `json:"has_dst_slot"`
	Qty        uint32        `json:"qty"`
}

// invQueryPayload covers InvRequestInventory (via Src) and
// InvRequestGameObject (via the target fields).
type invQueryPayload struct {
	Src        invLocPayload `json:"src"`
	TargetSys  string        `json:"target_sys"`
	TargetKind string        `json:"target_kind"`
	TargetName string        `json:"target_name"`
}

func decodeCmd(player string, raw []byte) (sim.Cmd, error) {
	var env wireMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return sim.Cmd{}, fmt.Errorf("transport: decode envelope: %w", err)
	}

	switch sim.CmdKind(env.Type) {
	case sim.CmdApproach, sim.CmdAlignTo, sim.CmdWarpTo, sim.CmdKeepAtRange, sim.CmdOrbit:
		var p navPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return sim.Cmd{}, err
		}
		c := sim.Cmd{Player: player, Kind: sim.CmdKind(env.Type), StopDistM: p.StopDistM}
		if p.UsePoint {
			c.UsePoint = true
			c.TargetPoint = sim.Vec3{p.PointX, p.PointY, p.PointZ}
		} else {
			kind, err := bodyKind(p.TargetKind)
			if err != nil {
				return sim.Cmd{}, err
			}
			c.TargetObj = sim.NewObjPath(p.TargetSys, kind, p.TargetName)
		}
		return c, nil

	case sim.CmdDock, sim.CmdUndock, sim.CmdJump:
		var p navPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return sim.Cmd{}, err
		}
		kind, err := bodyKind(p.TargetKind)
		if err != nil {
			return sim.Cmd{}, err
		}
		return sim.Cmd{
			Player:    player,
			Kind:      sim.CmdKind(env.Type),
			TargetObj: sim.NewObjPath(p.TargetSys, kind, p.TargetName),
		}, nil

	case sim.CmdMNav:
		var p mnavPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return sim.Cmd{}, err
		}
		return sim.Cmd{Player: player, Kind: sim.CmdMNav, DX: p.DX, DY: p.DY, DZ: p.DZ, DThrust: p.DThrust}, nil

	case sim.CmdPlaceBuy, sim.CmdPlaceSell, sim.CmdCancelBuy, sim.CmdCancelSell, sim.CmdFulfillBuy, sim.CmdFulfillSell:
		var p orderPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return sim.Cmd{}, err
		}
		return sim.Cmd{
			Player:       player,
			Kind:         sim.CmdKind(env.Type),
			Item:         sim.ItemId(p.Item),
			PricePerUnit: p.PricePerUnit,
			Qty:          p.Qty,
			Slot:         p.Slot,
			HasSlot:      p.HasSlot,
			OrderID:      sim.OrderId(p.OrderID),
			SrcLoc:       sim.InvLoc{Kind: sim.InvLocStation, InvID: sim.InvId(p.Inv)},
		}, nil

	case sim.CmdSetActiveShip, sim.CmdHangerRequestShips:
		var p hangerCmdPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return sim.Cmd{}, err
		}
		kind, err := bodyKind(p.TargetKind)
		if err != nil {
			return sim.Cmd{}, err
		}
		return sim.Cmd{
			Player:    player,
			Kind:      sim.CmdKind(env.Type),
			TargetObj: sim.NewObjPath(p.TargetSys, kind, p.TargetName),
			Slot:      p.Slot,
		}, nil

	case sim.CmdGetStore:
		var p itemQueryPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return sim.Cmd{}, err
		}
		return sim.Cmd{Player: player, Kind: sim.CmdGetStore, Item: sim.ItemId(p.Item)}, nil

	case sim.CmdInvRequestInventoryList, sim.CmdInvRequestShip:
		return sim.Cmd{Player: player, Kind: sim.CmdKind(env.Type)}, nil

	case sim.CmdInvRequestInventory:
		var p invQueryPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return sim.Cmd{}, err
		}
		loc, err := p.Src.toInvLoc()
		if err != nil {
			return sim.Cmd{}, err
		}
		return sim.Cmd{Player: player, Kind: sim.CmdInvRequestInventory, SrcLoc: loc}, nil

	case sim.CmdInvRequestGameObject:
		var p invQueryPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return sim.Cmd{}, err
		}
		kind, err := bodyKind(p.TargetKind)
		if err != nil {
			return sim.Cmd{}, err
		}
		return sim.Cmd{
			Player:    player,
			Kind:      sim.CmdInvRequestGameObject,
			TargetObj: sim.NewObjPath(p.TargetSys, kind, p.TargetName),
		}, nil

	case sim.CmdInvSpaceToSpace, sim.CmdInvHangerShipToHangerShip, sim.CmdInvHangerShipToStation, sim.CmdInvStationToStation:
		var p transferPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return sim.Cmd{}, err
		}
		src, err := p.Src.toInvLoc()
		if err != nil {
			return sim.Cmd{}, err
		}
		dst, err := p.Dst.toInvLoc()
		if err != nil {
			return sim.Cmd{}, err
		}
		return sim.Cmd{
			Player:     player,
			Kind:       sim.CmdKind(env.Type),
			SrcLoc:     src,
			DstLoc:     dst,
			SrcSlot:    p.SrcSlot,
			DstSlot:    p.DstSlot,
			HasDstSlot: p.HasDstSlot,
			Qty:        p.Qty,
		}, nil

	case sim.CmdInvStationToShip:
		var p transferPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return sim.Cmd{}, err
		}
		src, err := p.Src.toInvLoc()
		if err != nil {
			return sim.Cmd{}, err
		}
		kind, err := bodyKind(p.Dst.ObjKind)
		if err != nil {
			return sim.Cmd{}, err
		}
		return sim.Cmd{
			Player:     player,
			Kind:       sim.CmdInvStationToShip,
			SrcLoc:     src,
			TargetObj:  sim.NewObjPath(p.Dst.Sys, kind, p.Dst.Name),
			SrcSlot:    p.SrcSlot,
			DstSlot:    p.DstSlot,
			HasDstSlot: p.HasDstSlot,
			Qty:        p.Qty,
		}, nil

	default:
		return sim.Cmd{}, fmt.Errorf("transport: unknown command type %q", env.Type)
	}
}

func bodyKind(k string) (sim.ObjectKind, error) {
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
	case "player_ship":
		return sim.KindPlayerShip, nil
	case "ai_ship":
		return sim.KindAIShip, nil
	case "container":
		return sim.KindContainer, nil
	case "wreck":
		return sim.KindWreck, nil
	default:
		return "", fmt.Errorf("transport: unknown object kind %q", k)
	}
}
