/*
Package sim
File: scheduler.go
Description:
    The fixed-cadence tick scheduler, wiring every stage in
    order: Process Commands, Find, Action, Consequence, Lifecycle,
    Emit, Bookkeeping-updated, Bookkeeping-removed. Within Find, the
    sensor rescan and navigation-target lookup write disjoint component
    columns, so they fan out concurrently via errgroup; every other
    stage's systems share a write set with one another and run in
    sequence.
*/

package sim

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Scheduler runs one fixed-size tick of the whole simulation.
type Scheduler struct {
	World    *World
	Indexes  *Indexes
	Bus      *Bus
	Market   *Market
	Hangers    HangerStore
	Accounts   AccountStore
	Ships      ShipsInSpaceStore
	Inventory  InventoryBackend
	Sink       Sink
	Logger     *log.Logger

	TickInterval time.Duration
}

func NewScheduler(w *World, ix *Indexes, bus *Bus, market *Market, hangers HangerStore, accounts AccountStore, ships ShipsInSpaceStore, inventory InventoryBackend, sink Sink, logger *log.Logger, tickInterval time.Duration) *Scheduler {
	return &Scheduler{
		World:        w,
		Indexes:      ix,
		Bus:          bus,
		Market:       market,
		Hangers:      hangers,
		Accounts:     accounts,
		Ships:        ships,
		Inventory:    inventory,
		Sink:         sink,
		Logger:       logger,
		TickInterval: tickInterval,
	}
}

// Tick advances the simulation by exactly one TickInterval-sized step,
// running every stage of the pipeline in order. cmds is the batch of
// player/AI commands queued since the last tick.
func (s *Scheduler) Tick(ctx context.Context, cmds []Cmd, now time.Time) error {
	dt := s.TickInterval.Seconds()

	// Stage 1: Process Commands.
	if errs := Dispatch(s.World, s.Indexes, s.Bus, s.Market, s.Hangers, s.Accounts, s.Inventory, cmds); len(errs) > 0 {
		for _, e := range errs {
			s.Logger.Debug("command rejected", "player", e.Player, "kind", e.Kind, "err", e.Err)
		}
	}

	// Stage 2: Find. The sensor rescan and the nav-target lookup write
	// disjoint component columns (Sensors vs. Navigation targets), so
	// they run concurrently here.
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		RescanSensors(s.World, s.Indexes, s.Bus)
		return nil
	})
	g.Go(func() error {
		UpdateTransformPositions(s.World, s.Indexes)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// Stage 3: Action. TickNavigation writes Transforms/Navigations,
	// then TickTransforms integrates Transform positions from the
	// velocities it set; the two run in sequence.
	TickNavigation(s.World, s.Indexes, dt)
	TickTransforms(s.World, dt)

	// Stage 4: Consequence. Dock/Undock/Jump are command-driven (stage
	// 1) in this design rather than polled here, since they're
	// one-shot transitions rather than continuous per-tick systems;
	// nothing additional runs in Consequence today.

	// Stage 5: Lifecycle.
	if err := TickLogins(s.World, loginPersistAdapter{s.Ships}, now); err != nil {
		s.Logger.Error("lifecycle tick failed", "err", err)
	}

	// Stage 6: Emit.
	Emit(s.World, s.Indexes, s.Bus, s.Sink)

	// Flush the market's per-tick cache now that every order mutation
	// for this tick has landed.
	if err := s.Market.FlushCache(); err != nil {
		s.Logger.Error("market flush failed", "err", err)
	}

	// Stage 7 & 8: Bookkeeping.
	s.Indexes.BookkeepingUpdated(s.World)
	s.Indexes.BookkeepingRemoved(s.World)

	s.World.ClearTickFlags()
	return nil
}

// Run drives Tick on a fixed ticker until ctx is cancelled, pulling the
// next command batch from nextCmds each iteration.
func (s *Scheduler) Run(ctx context.Context, nextCmds func() []Cmd) error {
	ticker := time.NewTicker(s.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := s.Tick(ctx, nextCmds(), now); err != nil {
				s.Logger.Error("tick failed", "err", err)
			}
		}
	}
}

// loginPersistAdapter adapts ShipsInSpaceStore to the LogoutSink
// contract TickLogins needs.
type loginPersistAdapter struct {
	ships ShipsInSpaceStore
}

func (a loginPersistAdapter) PersistLoggedOutShip(player string, rec ShipInSpaceRecord) error {
	return a.ships.SaveShipInSpace(player, rec)
}
