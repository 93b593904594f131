package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zeusync/enemyai/internal/core/events/bus"
	"github.com/zeusync/enemyai/internal/core/npc"
)

// Config controls the metrics endpoint.
type Config struct {
	Enabled   bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Namespace string `mapstructure:"namespace" json:"namespace" yaml:"namespace"`
	Path      string `mapstructure:"path" json:"path" yaml:"path" validate:"omitempty,startswith=/"`
}

func DefaultConfig() Config {
	return Config{Enabled: true, Namespace: "enemyai", Path: "/metrics"}
}

// Collector records scheduler and event bus activity as prometheus metrics.
// It implements npc.Observer and bus.EventBusObserver.
type Collector struct {
	registry *prometheus.Registry

	Ticks           prometheus.Counter
	TickDuration    prometheus.Histogram
	Evaluations     *prometheus.CounterVec
	Instances       prometheus.Gauge
	EventsPublished prometheus.Counter
	FlushErrors     prometheus.Counter

	BusPublished *prometheus.CounterVec
	BusDelivery  *prometheus.HistogramVec
	BusErrors    *prometheus.CounterVec
}

var (
	_ npc.Observer         = (*Collector)(nil)
	_ bus.EventBusObserver = (*Collector)(nil)
)

// New creates a collector registered on its own registry together with the
// Go runtime and process collectors.
func New(cfg Config) (*Collector, error) {
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultConfig().Namespace
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),

		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Scheduler ticks completed.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "scheduler",
			Name:      "tick_duration_seconds",
			Help:      "Wall time of one scheduler tick including the event flush.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "scheduler",
			Name:      "evaluations_total",
			Help:      "Tree evaluations by template and root result.",
		}, []string{"template", "state"}),
		Instances: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "scheduler",
			Name:      "instances",
			Help:      "Live tree instances.",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "scheduler",
			Name:      "events_published_total",
			Help:      "Events flushed from the outbound queue to the bus.",
		}),
		FlushErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "scheduler",
			Name:      "flush_errors_total",
			Help:      "Flushes in which at least one subscriber failed.",
		}),

		BusPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "bus",
			Name:      "published_total",
			Help:      "Events published by type.",
		}, []string{"type"}),
		BusDelivery: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "bus",
			Name:      "delivery_duration_seconds",
			Help:      "Time spent running subscribers for one event.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}, []string{"type"}),
		BusErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "bus",
			Name:      "delivery_errors_total",
			Help:      "Deliveries in which a subscriber returned an error.",
		}, []string{"type"}),
	}

	if err := c.Register(c.registry); err != nil {
		return nil, err
	}
	if err := c.registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := c.registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}
	return c, nil
}

// Register adds the engine metrics to registerer.
func (c *Collector) Register(registerer prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{
		c.Ticks,
		c.TickDuration,
		c.Evaluations,
		c.Instances,
		c.EventsPublished,
		c.FlushErrors,
		c.BusPublished,
		c.BusDelivery,
		c.BusErrors,
	} {
		if err := registerer.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// Registry exposes the collector's registry so callers can add their own collectors.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) TickCompleted(took time.Duration, _ int) {
	c.Ticks.Inc()
	c.TickDuration.Observe(took.Seconds())
}

func (c *Collector) InstanceEvaluated(template string, state npc.NodeState) {
	c.Evaluations.WithLabelValues(template, state.String()).Inc()
}

func (c *Collector) InstancesChanged(active int) {
	c.Instances.Set(float64(active))
}

func (c *Collector) EventsFlushed(published int, err error) {
	c.EventsPublished.Add(float64(published))
	if err != nil {
		c.FlushErrors.Inc()
	}
}

func (c *Collector) OnPublish(eventType string, _ bus.Event) {
	c.BusPublished.WithLabelValues(eventType).Inc()
}

func (c *Collector) OnDelivered(eventType string, _ int, err error, took time.Duration) {
	c.BusDelivery.WithLabelValues(eventType).Observe(took.Seconds())
	if err != nil {
		c.BusErrors.WithLabelValues(eventType).Inc()
	}
}
