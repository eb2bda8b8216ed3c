/*
Package config
File: config.go
Description:
    Server process configuration, loaded from JSON and validated with
    go-playground/validator. JSON because this file governs process
    wiring (ports, tick rate, asset paths) rather than static galaxy
    content, which stays YAML and lives in internal/assets.
*/

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the top-level process configuration.
type Config struct {
	ListenAddr   string        `json:"listen_addr" validate:"required,hostname_port"`
	TickRate     time.Duration `json:"tick_rate" validate:"required,min=1000000"` // ns; min 1ms
	GalaxyPath   string        `json:"galaxy_path" validate:"required"`
	CatalogPath  string        `json:"catalog_path" validate:"required"`
	StorePath    string        `json:"store_path" validate:"required"`
	LogLevel     string        `json:"log_level" validate:"omitempty,oneof=debug info warn error"`
	MarketCache  int           `json:"market_cache_size" validate:"required,min=1"`
	// StationInvCapVUnits bounds a freshly created station storage bin;
	// zero leaves newly created bins uncapped.
	StationInvCapVUnits uint32 `json:"station_inv_cap_vunits" validate:"omitempty,min=0"`
}

// Default returns sane process defaults, overridden field-by-field by
// whatever Load parses from disk.
func Default() Config {
	return Config{
		ListenAddr:  "0.0.0.0:8080",
		TickRate:    time.Second,
		GalaxyPath:  "galaxy.yaml",
		CatalogPath: "catalog.yaml",
		StorePath:   "./data",
		LogLevel:            "info",
		MarketCache:         256,
		StationInvCapVUnits: 0,
	}
}

var validate = validator.New()

// Load reads and validates a JSON config file at path.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(f, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: invalid %s: %w", path, err)
	}
	return cfg, nil
}
