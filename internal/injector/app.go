package injector

import (
	"context"
	"errors"
	"fmt"

	"github.com/zeusync/enemyai/internal/config"
	"github.com/zeusync/enemyai/internal/core/events/bus"
	"github.com/zeusync/enemyai/internal/core/npc"
	"github.com/zeusync/enemyai/internal/core/observability/log"
	"github.com/zeusync/enemyai/internal/core/observability/metrics"
	"github.com/zeusync/enemyai/internal/core/world"
	"github.com/zeusync/enemyai/internal/watch"
	"golang.org/x/sync/errgroup"
)

// CommandRespawn is the watch command that revives the player.
const CommandRespawn = "respawn"

// firstEnemyID leaves room below it for the player id.
const firstEnemyID npc.EntityID = 1000

// App is the assembled simulation. Metrics and Watch are nil when disabled.
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	Bus       bus.EventBus
	World     *world.World
	Templates *npc.TemplateRegistry
	Scheduler *npc.Scheduler
	Metrics   *metrics.Collector
	Watch     *watch.Server

	deadTicks uint64
}

func NewApp(
	cfg *config.Config,
	logger *log.Logger,
	b bus.EventBus,
	w *world.World,
	reg *npc.TemplateRegistry,
	s *npc.Scheduler,
	m *metrics.Collector,
	ws *watch.Server,
) *App {
	return &App{
		Config:    cfg,
		Logger:    logger,
		Bus:       b,
		World:     w,
		Templates: reg,
		Scheduler: s,
		Metrics:   m,
		Watch:     ws,
	}
}

// Populate spawns the configured ring of enemies, each running the default
// template.
func (a *App) Populate() ([]npc.EntityID, error) {
	sim := a.Config.Simulation
	ids, err := a.World.SpawnRing(firstEnemyID, sim.Enemies, sim.Radius)
	if err != nil {
		return nil, fmt.Errorf("spawn enemies: %w", err)
	}
	for _, id := range ids {
		if _, err = a.Scheduler.Spawn(id, a.Config.Templates.Default); err != nil {
			return nil, err
		}
	}
	a.Logger.Info("enemies spawned",
		log.Int("count", len(ids)),
		log.String("template", a.Config.Templates.Default),
	)
	return ids, nil
}

// Run populates the world and ticks until ctx is done or the configured
// number of ticks has elapsed. The watch server, if any, runs alongside.
func (a *App) Run(ctx context.Context) error {
	if _, err := a.Populate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if a.Watch != nil {
		g.Go(func() error { return a.Watch.ListenAndServe(gctx) })
	}
	g.Go(func() error {
		defer cancel()
		return a.Scheduler.Run(gctx, func(report npc.TickReport) {
			a.afterTick(report)
			if limit := a.Config.Simulation.Ticks; limit > 0 && report.Tick >= limit {
				cancel()
			}
		})
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	a.Logger.Info("simulation finished",
		log.Uint64("ticks", a.Scheduler.CurrentTick()),
		log.Float64("player_health", a.World.PlayerHealth()),
	)
	return err
}

// afterTick handles respawns and streams the frame to watchers.
func (a *App) afterTick(report npc.TickReport) {
	damage := a.World.DrainDamage()
	for _, d := range damage {
		a.Logger.Debug("player damaged",
			log.Int("attacker", int(d.Attacker)),
			log.String("damage_type", d.DamageType),
			log.Float64("amount", d.Amount),
			log.Float64("health", d.Health),
		)
	}

	if a.World.GetPlayerIsDie() {
		a.deadTicks++
		if after := a.Config.Simulation.RespawnAfter; after > 0 && a.deadTicks >= after {
			a.World.Respawn(a.Config.World.PlayerPosition)
			a.deadTicks = 0
		}
	} else {
		a.deadTicks = 0
	}

	if a.Watch == nil {
		return
	}
	frame := watch.NewFrame(report, a.World.Snapshot(), a.Scheduler.Snapshot(), damage)
	if err := a.Watch.Publish(frame); err != nil {
		a.Logger.Warn("publish frame failed", log.Error(err))
	}
}
