/*
Package main
File: main.go
Description:
    The entry point of the authoritative simulation server.

    Responsibility:
    1. Orchestration: loads process configuration and static galaxy/
       catalog assets, then boots the World and Scheduler.
    2. Scheduling: drives the fixed-cadence tick loop.
    3. Routing: maps the websocket endpoint to the transport Hub.
    4. Lifecycle: on SIGHUP, re-reads the catalog file and logs whether
       it still loads. The market keeps the catalog it was built with,
       and the galaxy file is not re-read.

    Architecture:
    Main -> internal/config  (process configuration)
    Main -> internal/assets  (static galaxy/catalog content)
    Main -> internal/sim     (the simulation core)
    Main -> internal/transport (the websocket layer)
    Main -> internal/store/memstore (persistence backend)
*/

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/everforgeworks/galaxy-sim/internal/assets"
	"github.com/everforgeworks/galaxy-sim/internal/config"
	"github.com/everforgeworks/galaxy-sim/internal/sim"
	"github.com/everforgeworks/galaxy-sim/internal/store/memstore"
	"github.com/everforgeworks/galaxy-sim/internal/transport"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	cfg, err := config.Load(envOr("GALAXY_CONFIG", "config.json"))
	if err != nil {
		logger.Fatal("loading config", "err", err)
	}

	catalog, err := assets.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		logger.Fatal("loading catalog", "err", err)
	}

	world := sim.NewWorld()
	_, err = assets.LoadGalaxy(cfg.GalaxyPath, world)
	if err != nil {
		logger.Fatal("loading galaxy", "err", err)
	}

	ix := sim.NewIndexes()
	seedIndexes(world, ix)

	store := memstore.New()
	bank := sim.StoreBank{S: store}
	hangers := sim.StoreHangerStore{S: store}
	accounts := sim.StoreAccount{S: store}
	shipsInSpace := sim.StoreShipsInSpace{S: store}
	itemBackend := sim.StoreItemBackend{S: store}
	inventory := sim.StoreInventoryBackend{S: store, Cap: cfg.StationInvCapVUnits}

	marketPlayers := sim.StoreMarketPlayer{S: store}
	market, err := sim.NewMarket(itemBackend, inventory, marketPlayers, bank, catalog, cfg.MarketCache)
	if err != nil {
		logger.Fatal("constructing market", "err", err)
	}

	hub := transport.NewHub(logger.With("component", "transport"))
	go hub.Run()

	bus := sim.NewBus()
	scheduler := sim.NewScheduler(world, ix, bus, market, hangers, accounts, shipsInSpace, inventory, hub, logger.With("component", "scheduler"), cfg.TickRate)

	// SIGHUP re-reads the catalog file. The result only replaces the
	// local catalog variable; the market keeps the catalog it was
	// constructed with.
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGHUP)
		for range sigChan {
			logger.Info("received SIGHUP, reloading catalog")
			if reloaded, err := assets.LoadCatalog(cfg.CatalogPath); err != nil {
				logger.Error("hot-reload failed", "err", err)
			} else {
				catalog = reloaded
				logger.Info("catalog reload complete")
			}
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := scheduler.Run(ctx, hub.DrainCmds); err != nil {
			logger.Error("scheduler stopped", "err", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		player := r.URL.Query().Get("player")
		if player == "" {
			http.Error(w, "missing player query param", http.StatusBadRequest)
			return
		}
		transport.ServeWs(hub, player, w, r)
	})

	logger.Info("galaxy-sim server live", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, corsMiddleware(mux)); err != nil {
		logger.Fatal("server exited", "err", err)
	}
}

// seedIndexes performs the one-time initial bookkeeping pass so every
// statically-loaded body is indexed before the first tick runs.
func seedIndexes(w *sim.World, ix *sim.Indexes) {
	w.GameObjects.Each(func(e sim.EntityID, go_ *sim.GameObject) {
		w.GameObjects.MarkModified(e)
	})
	ix.BookkeepingUpdated(w)
	w.ClearTickFlags()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// corsMiddleware allows a browser-based client to connect during
// development regardless of origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
