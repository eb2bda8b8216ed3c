/*
Package assets
File: catalog.go
Description:
    Static item and ship-class catalog loading, YAML-backed the same
    way the galaxy asset tree is read — kept on yaml.v3 rather than
    switched to JSON, since this data is hand-authored galaxy content,
    not process configuration (see internal/config for the JSON/
    validator split). Implements
    sim.Catalog and sim.ShipClassCatalog so the rest of the simulation
    never depends on how catalog data is stored.
*/

package assets

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/everforgeworks/galaxy-sim/internal/sim"
)

// ItemDef is one entry in the item catalog YAML.
type ItemDef struct {
	Key       string `yaml:"key"`
	Name      string `yaml:"name"`
	SizeVUnit uint32 `yaml:"size_vunits"`
}

// ShipClassDef is one entry in the ship-class catalog YAML.
type ShipClassDef struct {
	Name        string  `yaml:"name"`
	WarpSpeedMS float64 `yaml:"warp_speed_ms"`
	WarpSpoolS  float64 `yaml:"warp_spool_s"`
	AngVelRads  float64 `yaml:"ang_vel_rads"`
	ThrustN     float64 `yaml:"thrust_n"`
	MassKg      float64 `yaml:"mass_kg"`
}

// Catalog is the loaded, queryable form of catalog.yaml.
type Catalog struct {
	items  map[sim.ItemId]ItemDef
	ships  map[string]ShipClassDef
}

type catalogFile struct {
	Items  []ItemDef      `yaml:"items"`
	Ships  []ShipClassDef `yaml:"ship_classes"`
}

// LoadCatalog reads and indexes path.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("assets: read catalog %s: %w", path, err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("assets: parse catalog %s: %w", path, err)
	}

	c := &Catalog{items: make(map[sim.ItemId]ItemDef), ships: make(map[string]ShipClassDef)}
	for _, it := range file.Items {
		c.items[sim.ItemId(it.Key)] = it
	}
	for _, sc := range file.Ships {
		c.ships[sc.Name] = sc
	}
	return c, nil
}

// SizeVUnits implements sim.Catalog.
func (c *Catalog) SizeVUnits(item sim.ItemId) (uint32, bool) {
	def, ok := c.items[item]
	if !ok {
		return 0, false
	}
	return def.SizeVUnit, true
}

// ShipClass implements sim.ShipClassCatalog.
func (c *Catalog) ShipClass(name string) (sim.ShipClass, bool) {
	def, ok := c.ships[name]
	if !ok {
		return sim.ShipClass{}, false
	}
	return sim.ShipClass{
		Name: def.Name,
		Stats: sim.ShipStats{
			WarpSpeedMS: def.WarpSpeedMS,
			WarpSpoolS:  def.WarpSpoolS,
			AngVelRads:  def.AngVelRads,
			ThrustN:     def.ThrustN,
			MassKg:      def.MassKg,
		},
	}, true
}
