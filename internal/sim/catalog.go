/*
Package sim
File: catalog.go
Description:
    Static-data lookups the core consumes but does not own.
    internal/assets provides the concrete YAML-backed implementations;
    internal/sim only states the contracts its systems need.
*/

package sim

// ShipClass is the catalog record backing a newly spawned or undocked
// ship's stats.
type ShipClass struct {
	Name  string
	Stats ShipStats
}

// ShipClassCatalog resolves a ship class name to its stat block.
// internal/assets implements it; no system in this package calls it.
type ShipClassCatalog interface {
	ShipClass(name string) (ShipClass, bool)
}
