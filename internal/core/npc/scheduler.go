package npc

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/zeusync/enemyai/internal/core/events/bus"
	"github.com/zeusync/enemyai/internal/core/observability/log"
	"github.com/zeusync/enemyai/pkg/concurrent"
	"github.com/zeusync/enemyai/pkg/sequence"
)

// SchedulerConfig controls tick cadence and parallelism.
type SchedulerConfig struct {
	// TickRate is the number of ticks per second used by Run.
	TickRate float64 `mapstructure:"tick_rate" json:"tick_rate" yaml:"tick_rate" validate:"gt=0,lte=1000"`
	// Workers above 1 tick shards concurrently.
	Workers int `mapstructure:"workers" json:"workers" yaml:"workers" validate:"gte=1"`
	Shards  int `mapstructure:"shards" json:"shards" yaml:"shards" validate:"gte=1"`
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{TickRate: 20, Workers: 1, Shards: 8}
}

// Interval is the wall-clock duration of one tick.
func (c SchedulerConfig) Interval() time.Duration {
	if c.TickRate <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(float64(time.Second) / c.TickRate)
}

// Observer receives scheduler measurements. Implementations must be safe for
// concurrent use when Workers > 1.
type Observer interface {
	TickCompleted(took time.Duration, evaluated int)
	InstanceEvaluated(template string, state NodeState)
	InstancesChanged(active int)
	EventsFlushed(published int, err error)
}

// TickReport summarises one scheduler tick.
type TickReport struct {
	Tick      uint64
	Evaluated int
	States    map[NodeState]int
	Published int
	Duration  time.Duration
}

// EntityState is a per-entity entry of a Snapshot.
type EntityState struct {
	Entity   EntityID
	Template string
	Instance string
	State    NodeState
}

type entry struct {
	id   EntityID
	inst *Instance
}

type shard struct {
	mu      sync.Mutex
	entries map[EntityID]*Instance
}

type SchedulerOption func(*Scheduler)

func WithLogger(l log.Log) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

func WithObserver(o Observer) SchedulerOption {
	return func(s *Scheduler) { s.observers = append(s.observers, o) }
}

func WithEventBus(b bus.EventBus) SchedulerOption {
	return func(s *Scheduler) { s.bus = b }
}

// Scheduler owns every live tree instance and ticks them in lockstep against
// one DataProvider. Events raised during a tick are published to the bus
// after the last instance was evaluated.
type Scheduler struct {
	cfg       SchedulerConfig
	templates *TemplateRegistry
	provider  DataProvider
	bus       bus.EventBus
	queue     *EventQueue
	logger    log.Log
	observers []Observer

	shards []*shard
	count  atomic.Int64
	tick   atomic.Uint64

	// tickMu serialises Tick calls.
	tickMu sync.Mutex
}

// NewScheduler creates a scheduler. A nil registry gets an empty one. Without
// WithLogger it logs to the process logger.
func NewScheduler(cfg SchedulerConfig, templates *TemplateRegistry, provider DataProvider, opts ...SchedulerOption) *Scheduler {
	if cfg.Shards < 1 {
		cfg.Shards = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if templates == nil {
		templates = NewTemplateRegistry()
	}

	s := &Scheduler{
		cfg:       cfg,
		templates: templates,
		provider:  provider,
		queue:     NewEventQueue(),
		logger:    log.Provide(),
		shards:    make([]*shard, cfg.Shards),
	}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[EntityID]*Instance)}
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bus == nil {
		s.bus = NewEventBus()
	}
	return s
}

func (s *Scheduler) Templates() *TemplateRegistry { return s.templates }
func (s *Scheduler) Bus() bus.EventBus            { return s.bus }
func (s *Scheduler) Config() SchedulerConfig      { return s.cfg }
func (s *Scheduler) Len() int                     { return int(s.count.Load()) }
func (s *Scheduler) CurrentTick() uint64          { return s.tick.Load() }

func (s *Scheduler) shardFor(id EntityID) *shard {
	var buf [20]byte
	h := xxhash.Sum64(strconv.AppendInt(buf[:0], int64(id), 10))
	return s.shards[h%uint64(len(s.shards))]
}

// Spawn instantiates the named template for entity id.
func (s *Scheduler) Spawn(id EntityID, template string) (*Instance, error) {
	t, err := s.templates.Get(template)
	if err != nil {
		return nil, err
	}
	inst, err := InstantiateTree(t)
	if err != nil {
		return nil, err
	}

	sh := s.shardFor(id)
	sh.mu.Lock()
	if _, exists := sh.entries[id]; exists {
		sh.mu.Unlock()
		DiscardTree(inst)
		return nil, fmt.Errorf("%w: %d", ErrEntityExists, id)
	}
	sh.entries[id] = inst
	sh.mu.Unlock()

	active := int(s.count.Add(1))
	s.logger.Debug("tree spawned",
		logEntity(id),
		log.String("template", template),
		log.String("instance", inst.ID()),
	)
	for _, o := range s.observers {
		o.InstancesChanged(active)
	}
	return inst, nil
}

// Despawn discards the entity's instance. It reports false for unknown ids.
func (s *Scheduler) Despawn(id EntityID) bool {
	sh := s.shardFor(id)
	sh.mu.Lock()
	inst, ok := sh.entries[id]
	delete(sh.entries, id)
	sh.mu.Unlock()
	if !ok {
		return false
	}

	DiscardTree(inst)
	active := int(s.count.Add(-1))
	s.logger.Debug("tree despawned", logEntity(id), log.String("instance", inst.ID()))
	for _, o := range s.observers {
		o.InstancesChanged(active)
	}
	return true
}

// Instance returns the live instance of entity id.
func (s *Scheduler) Instance(id EntityID) (*Instance, error) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	inst, ok := sh.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrEntityNotFound, id)
	}
	return inst, nil
}

// Tick evaluates every instance once with a tick length of dt seconds, then
// flushes the events they raised. Delivery errors are logged and reported to
// observers but never returned; the error is only the context's.
func (s *Scheduler) Tick(ctx context.Context, dt float64) (TickReport, error) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	start := time.Now()
	tick := s.tick.Add(1)
	report := TickReport{Tick: tick, States: make(map[NodeState]int, 4)}

	tc := TickContext{
		Context:  ctx,
		Provider: s.provider,
		Clock:    FixedStep(dt),
		Events:   s.queue,
		Logger:   s.logger,
		Tick:     tick,
	}

	var mu sync.Mutex
	merge := func(states map[NodeState]int, n int) {
		mu.Lock()
		report.Evaluated += n
		for st, c := range states {
			report.States[st] += c
		}
		mu.Unlock()
	}

	var err error
	if s.cfg.Workers <= 1 {
		for _, sh := range s.shards {
			if err = ctx.Err(); err != nil {
				break
			}
			merge(s.tickShard(&tc, sh))
		}
	} else {
		idx := make([]int, len(s.shards))
		for i := range idx {
			idx[i] = i
		}
		err = concurrent.ForEachLimit(ctx, sequence.From(idx), s.cfg.Workers, func(ctx context.Context, i int) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			local := tc
			local.Context = ctx
			merge(s.tickShard(&local, s.shards[i]))
			return nil
		})
	}

	published, flushErr := s.queue.Flush(s.bus)
	report.Published = published
	if flushErr != nil {
		s.logger.Warn("event delivery failed", log.Uint64("tick", tick), log.Error(flushErr))
	}

	report.Duration = time.Since(start)
	for _, o := range s.observers {
		o.EventsFlushed(published, flushErr)
		o.TickCompleted(report.Duration, report.Evaluated)
	}

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return report, fmt.Errorf("tick %d: %w", tick, err)
	}
	return report, err
}

// tickShard evaluates one shard. Entries are collected under the shard lock
// and evaluated outside it, so spawns during a tick do not block.
func (s *Scheduler) tickShard(tc *TickContext, sh *shard) (map[NodeState]int, int) {
	sh.mu.Lock()
	entries := make([]entry, 0, len(sh.entries))
	for id, inst := range sh.entries {
		entries = append(entries, entry{id: id, inst: inst})
	}
	sh.mu.Unlock()

	states := make(map[NodeState]int, 4)
	for _, e := range entries {
		st := s.evaluate(tc, e)
		states[st]++
		for _, o := range s.observers {
			o.InstanceEvaluated(e.inst.Template(), st)
		}
	}
	return states, len(entries)
}

func (s *Scheduler) evaluate(tc *TickContext, e entry) (state NodeState) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tree panicked",
				logEntity(e.id),
				log.String("template", e.inst.Template()),
				log.Any("panic", r),
				log.String("stack", string(debug.Stack())),
			)
			e.inst.root.Reset()
			e.inst.lastState.Store(int32(StateFailure))
			state = StateFailure
		}
	}()
	return Evaluate(e.inst, tc, e.id)
}

// Run ticks at the configured rate until ctx is done. onTick, when set, is
// called after every tick with its report.
func (s *Scheduler) Run(ctx context.Context, onTick func(TickReport)) error {
	interval := s.cfg.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started",
		log.Duration("interval", interval),
		log.Int("workers", s.cfg.Workers),
		log.Int("shards", len(s.shards)),
	)
	dt := interval.Seconds()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped", log.Uint64("ticks", s.tick.Load()))
			return nil
		case <-ticker.C:
			report, err := s.Tick(ctx, dt)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				return err
			}
			if onTick != nil {
				onTick(report)
			}
		}
	}
}

// Snapshot returns the last root state of every live entity.
func (s *Scheduler) Snapshot() []EntityState {
	out := make([]EntityState, 0, s.Len())
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, inst := range sh.entries {
			out = append(out, EntityState{
				Entity:   id,
				Template: inst.Template(),
				Instance: inst.ID(),
				State:    inst.LastState(),
			})
		}
		sh.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entity < out[j].Entity })
	return out
}

// Close discards every instance.
func (s *Scheduler) Close() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, inst := range sh.entries {
			DiscardTree(inst)
			delete(sh.entries, id)
		}
		sh.mu.Unlock()
	}
	s.count.Store(0)
	for _, o := range s.observers {
		o.InstancesChanged(0)
	}
}
