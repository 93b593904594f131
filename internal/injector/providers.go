package injector

import (
	"context"
	"fmt"

	"github.com/google/wire"
	"github.com/zeusync/enemyai/internal/config"
	"github.com/zeusync/enemyai/internal/core/events/bus"
	"github.com/zeusync/enemyai/internal/core/npc"
	"github.com/zeusync/enemyai/internal/core/observability/log"
	"github.com/zeusync/enemyai/internal/core/observability/metrics"
	"github.com/zeusync/enemyai/internal/core/world"
	"github.com/zeusync/enemyai/internal/watch"
)

// ProviderSet builds every runtime component from a *config.Config.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideBus,
	ProvideMetrics,
	ProvideWorld,
	npc.NewBuilder,
	ProvideTemplates,
	ProvideScheduler,
	ProvideWatch,
	NewApp,
)

// ProvideLogger builds the process logger; the cleanup flushes it.
func ProvideLogger(cfg *config.Config) (*log.Logger, func(), error) {
	l, err := log.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return l, func() { _ = l.Sync() }, nil
}

func ProvideBus() bus.EventBus { return npc.NewEventBus() }

// ProvideMetrics returns nil when metrics are disabled.
func ProvideMetrics(cfg *config.Config, b bus.EventBus) (*metrics.Collector, error) {
	if !cfg.Metrics.Enabled {
		return nil, nil
	}
	m, err := metrics.New(cfg.Metrics)
	if err != nil {
		return nil, err
	}
	b.AddObserver(m)
	return m, nil
}

// ProvideWorld creates the world and subscribes it to damage requests.
func ProvideWorld(cfg *config.Config, logger *log.Logger, b bus.EventBus) (*world.World, func(), error) {
	w := world.New(cfg.World, world.WithLogger(logger.With(log.String("component", "world"))))
	if err := w.Attach(b); err != nil {
		return nil, nil, fmt.Errorf("attach world: %w", err)
	}
	return w, func() { _ = w.Detach() }, nil
}

// ProvideTemplates loads every template under the configured directory and
// checks that the default one is among them.
func ProvideTemplates(ctx context.Context, cfg *config.Config, b *npc.Builder, logger *log.Logger) (*npc.TemplateRegistry, error) {
	reg := npc.NewTemplateRegistry()
	names, err := b.LoadTemplates(ctx, cfg.Templates.Dir, reg)
	if err != nil {
		return nil, err
	}
	if _, err = reg.Get(cfg.Templates.Default); err != nil {
		return nil, fmt.Errorf("default template: %w", err)
	}
	logger.Info("templates loaded",
		log.String("dir", cfg.Templates.Dir),
		log.Int("count", len(names)),
		log.String("default", cfg.Templates.Default),
	)
	return reg, nil
}

func ProvideScheduler(
	cfg *config.Config,
	reg *npc.TemplateRegistry,
	w *world.World,
	b bus.EventBus,
	m *metrics.Collector,
	logger *log.Logger,
) (*npc.Scheduler, func()) {
	opts := []npc.SchedulerOption{
		npc.WithLogger(logger.With(log.String("component", "scheduler"))),
		npc.WithEventBus(b),
	}
	if m != nil {
		opts = append(opts, npc.WithObserver(m))
	}
	s := npc.NewScheduler(cfg.Scheduler, reg, w, opts...)
	return s, s.Close
}

// ProvideWatch returns nil when the watch server is disabled. The metrics
// handler is mounted on it when both are enabled.
func ProvideWatch(cfg *config.Config, w *world.World, m *metrics.Collector, logger *log.Logger) *watch.Server {
	if !cfg.Watch.Enabled {
		return nil
	}
	wl := logger.With(log.String("component", "watch"))
	s := watch.New(cfg.Watch.Addr,
		watch.WithLogger(wl),
		watch.WithCommandHandler(func(cmd string) {
			switch cmd {
			case CommandRespawn:
				w.Respawn(cfg.World.PlayerPosition)
			default:
				wl.Warn("unknown watch command", log.String("command", cmd))
			}
		}),
	)
	if m != nil {
		s.Handle(cfg.Metrics.Path, m.Handler())
	}
	return s
}
