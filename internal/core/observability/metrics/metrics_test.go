package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/enemyai/internal/core/events/bus"
	"github.com/zeusync/enemyai/internal/core/npc"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCollectorRecordsObserverCalls(t *testing.T) {
	c, err := New(DefaultConfig())
	require.NoError(t, err)

	c.TickCompleted(2*time.Millisecond, 3)
	c.InstanceEvaluated("grunt", npc.StateRunning)
	c.InstanceEvaluated("grunt", npc.StateRunning)
	c.InstancesChanged(3)
	c.EventsFlushed(2, nil)
	c.EventsFlushed(1, errors.New("down"))
	c.OnPublish("npc.damage_request", nil)
	c.OnDelivered("npc.damage_request", 1, errors.New("down"), time.Millisecond)

	body := scrape(t, c)
	assert.Contains(t, body, "enemyai_scheduler_ticks_total 1")
	assert.Contains(t, body, `enemyai_scheduler_evaluations_total{state="running",template="grunt"} 2`)
	assert.Contains(t, body, "enemyai_scheduler_instances 3")
	assert.Contains(t, body, "enemyai_scheduler_events_published_total 3")
	assert.Contains(t, body, "enemyai_scheduler_flush_errors_total 1")
	assert.Contains(t, body, `enemyai_bus_published_total{type="npc.damage_request"} 1`)
	assert.Contains(t, body, `enemyai_bus_delivery_errors_total{type="npc.damage_request"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestCollectorWiredIntoScheduler(t *testing.T) {
	c, err := New(Config{Namespace: "test"})
	require.NoError(t, err)

	b := bus.New()
	b.AddObserver(c)
	_, err = b.Subscribe(npc.EventDamageRequest, func(bus.Event) error { return nil })
	require.NoError(t, err)

	reg := npc.NewTemplateRegistry()
	reg.Register(npc.NewTemplate("hitter", npc.NewAction("hit", func(tc *npc.TickContext, id npc.EntityID) npc.NodeState {
		tc.Events.EnqueueDamage(npc.DamageRequest{AttackerID: id, DamageType: "melee"})
		return npc.StateSuccess
	})))

	s := npc.NewScheduler(npc.DefaultSchedulerConfig(), reg, nil, npc.WithObserver(c), npc.WithEventBus(b))
	_, err = s.Spawn(1, "hitter")
	require.NoError(t, err)
	_, err = s.Tick(context.Background(), 0.1)
	require.NoError(t, err)

	body := scrape(t, c)
	assert.Contains(t, body, `test_scheduler_evaluations_total{state="success",template="hitter"} 1`)
	assert.Contains(t, body, "test_scheduler_events_published_total 1")
	assert.Contains(t, body, `test_bus_published_total{type="npc.damage_request"} 1`)
}

func TestRegisterTwiceFails(t *testing.T) {
	c, err := New(DefaultConfig())
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	require.NoError(t, c.Register(reg))
	assert.Error(t, c.Register(reg))
}
