package npc

import (
	"sync"

	"github.com/zeusync/enemyai/internal/core/events/bus"
	"github.com/zeusync/enemyai/internal/core/observability/log"
	"github.com/zeusync/enemyai/pkg/generic"
)

const (
	// EventDamageRequest carries a DamageRequest payload.
	EventDamageRequest = "npc.damage_request"
	// EventSource is the Source of every event the engine publishes.
	EventSource = "npc.scheduler"
)

// DamageRequest asks whoever owns health to damage TargetID.
type DamageRequest struct {
	AttackerID EntityID `json:"attacker_id"`
	TargetID   EntityID `json:"target_id"`
	DamageType string   `json:"damage_type"`
}

// NewEventBus creates the in-process bus the scheduler publishes to.
func NewEventBus() bus.EventBus {
	return bus.New()
}

var batchPool = generic.NewResetPool(
	func() []bus.Event { return make([]bus.Event, 0, 64) },
	func(b []bus.Event) []bus.Event {
		clear(b)
		return b[:0]
	},
)

// EventQueue collects events raised during a tick. Nodes append to it; the
// scheduler flushes it to the bus once every instance has been evaluated, so
// no node ever waits on a subscriber.
type EventQueue struct {
	mu      sync.Mutex
	pending []bus.Event
}

func NewEventQueue() *EventQueue {
	return &EventQueue{pending: batchPool.Get()}
}

// Enqueue appends an event. Safe for concurrent use.
func (q *EventQueue) Enqueue(ev bus.Event) {
	q.mu.Lock()
	q.pending = append(q.pending, ev)
	q.mu.Unlock()
}

// EnqueueDamage wraps req in a bus event and appends it.
func (q *EventQueue) EnqueueDamage(req DamageRequest) {
	q.Enqueue(bus.NewEvent(EventDamageRequest, EventSource, req, 0, nil))
}

func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Drain detaches and returns the pending events. The queue is empty afterwards.
func (q *EventQueue) Drain() []bus.Event {
	q.mu.Lock()
	batch := q.pending
	q.pending = batchPool.Get()
	q.mu.Unlock()
	return batch
}

// Flush publishes every pending event in enqueue order and returns how many
// were published together with the joined delivery errors.
func (q *EventQueue) Flush(b bus.EventBus) (int, error) {
	batch := q.Drain()
	defer batchPool.Put(batch)

	if len(batch) == 0 || b == nil {
		return 0, nil
	}
	return len(batch), b.PublishBatch(batch...)
}

func logNode(n Node) log.Field {
	return log.String("node", n.GetName())
}

func logEntity(id EntityID) log.Field {
	return log.Int("entity", int(id))
}
