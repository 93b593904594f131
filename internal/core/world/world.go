package world

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/zeusync/enemyai/internal/core/events/bus"
	"github.com/zeusync/enemyai/internal/core/npc"
	"github.com/zeusync/enemyai/internal/core/observability/log"
	"github.com/zeusync/enemyai/internal/core/systems/physics"
)

var (
	ErrEnemyExists   = errors.New("enemy already exists")
	ErrUnknownTarget = errors.New("damage target is not the player")
	ErrBadPayload    = errors.New("unexpected damage payload")
)

// Config describes the arena the enemies act in.
type Config struct {
	PlayerID       int          `mapstructure:"player_id" json:"player_id" yaml:"player_id" validate:"gte=0"`
	PlayerHealth   float64      `mapstructure:"player_health" json:"player_health" yaml:"player_health" validate:"gt=0"`
	PlayerPosition physics.Vec3 `mapstructure:"player_position" json:"player_position" yaml:"player_position"`
	// Damage maps a damage type to the health it removes.
	Damage map[string]float64 `mapstructure:"damage" json:"damage" yaml:"damage" validate:"dive,keys,required,endkeys,gte=0"`
	// DefaultDamage applies to damage types missing from Damage.
	DefaultDamage float64 `mapstructure:"default_damage" json:"default_damage" yaml:"default_damage" validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{
		PlayerID:      0,
		PlayerHealth:  100,
		Damage:        map[string]float64{"melee": 10, "ranged": 5},
		DefaultDamage: 1,
	}
}

// DamageEvent records one applied damage request.
type DamageEvent struct {
	Attacker   npc.EntityID `json:"attacker"`
	DamageType string       `json:"damage_type"`
	Amount     float64      `json:"amount"`
	Health     float64      `json:"health"`
}

// World is an in-memory arena with one player and any number of enemies.
// It is the DataProvider the scheduler ticks against and the consumer of the
// damage requests the trees raise.
type World struct {
	mu      sync.RWMutex
	cfg     Config
	player  *Body
	health  float64
	dead    bool
	enemies map[npc.EntityID]*Body
	damages []DamageEvent

	sub    bus.Subscription
	logger log.Log
}

var _ npc.DataProvider = (*World)(nil)

type Option func(*World)

func WithLogger(l log.Log) Option {
	return func(w *World) { w.logger = l }
}

func New(cfg Config, opts ...Option) *World {
	if cfg.Damage == nil {
		cfg.Damage = make(map[string]float64)
	}
	w := &World{
		cfg:     cfg,
		player:  NewBody(cfg.PlayerPosition),
		health:  cfg.PlayerHealth,
		enemies: make(map[npc.EntityID]*Body),
		logger:  log.Provide(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Attach subscribes the world to damage requests published on b.
func (w *World) Attach(b bus.EventBus) error {
	sub, err := b.Subscribe(npc.EventDamageRequest, w.handleDamage)
	if err != nil {
		return fmt.Errorf("subscribe damage requests: %w", err)
	}
	w.mu.Lock()
	w.sub = sub
	w.mu.Unlock()
	return nil
}

// Detach cancels the damage subscription.
func (w *World) Detach() error {
	w.mu.Lock()
	sub := w.sub
	w.sub = nil
	w.mu.Unlock()
	if sub == nil {
		return nil
	}
	return sub.Cancel()
}

func (w *World) handleDamage(ev bus.Event) error {
	req, ok := ev.Data().(npc.DamageRequest)
	if !ok {
		return fmt.Errorf("%w: %T", ErrBadPayload, ev.Data())
	}
	_, err := w.ApplyDamage(req)
	return err
}

// ApplyDamage lowers player health by the amount configured for the damage
// type and returns the amount applied. Requests against a dead player apply
// nothing.
func (w *World) ApplyDamage(req npc.DamageRequest) (float64, error) {
	if int(req.TargetID) != w.cfg.PlayerID {
		return 0, fmt.Errorf("%w: %d", ErrUnknownTarget, req.TargetID)
	}

	amount, ok := w.cfg.Damage[req.DamageType]
	if !ok {
		amount = w.cfg.DefaultDamage
	}

	w.mu.Lock()
	if w.dead {
		w.mu.Unlock()
		return 0, nil
	}
	w.health = math.Max(0, w.health-amount)
	killed := w.health == 0
	w.dead = killed
	health := w.health
	w.damages = append(w.damages, DamageEvent{
		Attacker:   req.AttackerID,
		DamageType: req.DamageType,
		Amount:     amount,
		Health:     health,
	})
	w.mu.Unlock()

	if killed {
		w.logger.Info("player died",
			log.Int("attacker", int(req.AttackerID)),
			log.String("damage_type", req.DamageType),
		)
	}
	return amount, nil
}

// DrainDamage returns and clears the damage applied since the last call.
func (w *World) DrainDamage() []DamageEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.damages
	w.damages = nil
	return out
}

// Respawn restores the player's health at pos.
func (w *World) Respawn(pos physics.Vec3) {
	w.mu.Lock()
	w.health = w.cfg.PlayerHealth
	w.dead = false
	w.mu.Unlock()
	w.player.SetPosition(pos)
	w.logger.Info("player respawned", log.Float64("health", w.cfg.PlayerHealth))
}

func (w *World) PlayerHealth() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.health
}

func (w *World) SetPlayerPosition(pos physics.Vec3) { w.player.SetPosition(pos) }

// SpawnEnemy adds an enemy body at pos.
func (w *World) SpawnEnemy(id npc.EntityID, pos physics.Vec3) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.enemies[id]; exists {
		return fmt.Errorf("%w: %d", ErrEnemyExists, id)
	}
	w.enemies[id] = NewBody(pos)
	return nil
}

// SpawnRing places n enemies evenly on a circle of radius around the player,
// with ids starting at first, each facing the centre. It returns the ids.
func (w *World) SpawnRing(first npc.EntityID, n int, radius float64) ([]npc.EntityID, error) {
	center := w.player.Position()
	ids := make([]npc.EntityID, 0, n)
	for i := range n {
		angle := 2 * math.Pi * float64(i) / float64(n)
		offset := physics.V3(math.Sin(angle)*radius, 0, math.Cos(angle)*radius)
		id := first + npc.EntityID(i)
		if err := w.SpawnEnemy(id, center.Add(offset)); err != nil {
			return ids, err
		}
		if body, ok := w.enemy(id); ok {
			body.SetYaw(physics.YawOf(offset.Scale(-1)))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (w *World) RemoveEnemy(id npc.EntityID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.enemies[id]
	delete(w.enemies, id)
	return ok
}

func (w *World) enemy(id npc.EntityID) (*Body, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b, ok := w.enemies[id]
	return b, ok
}

// Enemies returns the enemy ids in ascending order.
func (w *World) Enemies() []npc.EntityID {
	w.mu.RLock()
	ids := make([]npc.EntityID, 0, len(w.enemies))
	for id := range w.enemies {
		ids = append(ids, id)
	}
	w.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (w *World) GetPlayerTransform() (physics.Transform, bool) {
	return w.player, true
}

func (w *World) GetEnemyTransform(id npc.EntityID) (physics.Transform, bool) {
	b, ok := w.enemy(id)
	if !ok {
		return nil, false
	}
	return b, true
}

func (w *World) GetPlayerPosition() (physics.Vec3, bool) {
	return w.player.Position(), true
}

func (w *World) GetEnemyPosition(id npc.EntityID) (physics.Vec3, bool) {
	b, ok := w.enemy(id)
	if !ok {
		return physics.Vec3{}, false
	}
	return b.Position(), true
}

func (w *World) GetPlayer() (npc.EntityID, bool) {
	return npc.EntityID(w.cfg.PlayerID), true
}

func (w *World) GetPlayerIsDie() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.dead
}

// BodyState is the serialisable pose of a body.
type BodyState struct {
	ID       npc.EntityID `json:"id"`
	Position physics.Vec3 `json:"position"`
	Yaw      float64      `json:"yaw"`
}

// Snapshot is a consistent-enough view of the world for observers.
type Snapshot struct {
	Player  BodyState   `json:"player"`
	Health  float64     `json:"health"`
	Dead    bool        `json:"dead"`
	Enemies []BodyState `json:"enemies"`
}

func (w *World) Snapshot() Snapshot {
	w.mu.RLock()
	snap := Snapshot{
		Player:  BodyState{ID: npc.EntityID(w.cfg.PlayerID), Position: w.player.Position(), Yaw: w.player.Yaw()},
		Health:  w.health,
		Dead:    w.dead,
		Enemies: make([]BodyState, 0, len(w.enemies)),
	}
	for id, b := range w.enemies {
		snap.Enemies = append(snap.Enemies, BodyState{ID: id, Position: b.Position(), Yaw: b.Yaw()})
	}
	w.mu.RUnlock()

	sort.Slice(snap.Enemies, func(i, j int) bool { return snap.Enemies[i].ID < snap.Enemies[j].ID })
	return snap
}
