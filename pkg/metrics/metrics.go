// Package metrics exposes Prometheus instrumentation for the reactive engine.
//
// A Collector is created once per process (or per test registry) and handed
// to reactive runtimes through reactive.WithMetrics. Every recording method is
// safe to call on a nil *Collector, so the engine never has to check whether
// metrics are enabled.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the Prometheus collector.
type Config struct {
	// Namespace is the metrics namespace (default: "reactor").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for effect run duration.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "reactor",
		// Effects are synchronous in-process calls: microseconds, not seconds.
		Buckets:  []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		Registry: prometheus.DefaultRegisterer,
	}
}

// Collector holds the engine's Prometheus metrics.
type Collector struct {
	effectRuns        *prometheus.CounterVec
	effectsStopped    prometheus.Counter
	effectDuration    prometheus.Histogram
	triggers          *prometheus.CounterVec
	computedRecompute prometheus.Counter
	watchCallbacks    prometheus.Counter
	misuseWarnings    *prometheus.CounterVec
	registryObjects   prometheus.Gauge
	wrappersSwept     prometheus.Counter
}

// New creates a collector and registers its metrics.
//
// Metrics collected:
//   - reactor_effect_runs_total: effect runs by mode (tracked, untracked)
//   - reactor_effects_stopped_total: effects stopped
//   - reactor_effect_run_duration_seconds: tracked effect run duration
//   - reactor_triggers_total: dependents notified by dispatch (run, scheduler)
//   - reactor_computed_recomputes_total: computed getter evaluations
//   - reactor_watch_callbacks_total: watch callback invocations
//   - reactor_misuse_warnings_total: tolerated misuse by code
//   - reactor_registry_objects: objects with at least one live dependency
//   - reactor_wrappers_swept_total: dead wrapper cache entries removed
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Collector{
		effectRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_runs_total",
			Help:        "Total number of effect runs",
			ConstLabels: config.ConstLabels,
		}, []string{"mode"}),

		effectsStopped: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effects_stopped_total",
			Help:        "Total number of effects stopped",
			ConstLabels: config.ConstLabels,
		}),

		effectDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_run_duration_seconds",
			Help:        "Duration of tracked effect runs in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		triggers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "triggers_total",
			Help:        "Total number of dependents notified by a change",
			ConstLabels: config.ConstLabels,
		}, []string{"dispatch"}),

		computedRecompute: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "computed_recomputes_total",
			Help:        "Total number of computed getter evaluations",
			ConstLabels: config.ConstLabels,
		}),

		watchCallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "watch_callbacks_total",
			Help:        "Total number of watch callback invocations",
			ConstLabels: config.ConstLabels,
		}),

		misuseWarnings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "misuse_warnings_total",
			Help:        "Total number of tolerated misuses by error code",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),

		registryObjects: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "registry_objects",
			Help:        "Number of observed objects with live dependencies",
			ConstLabels: config.ConstLabels,
		}),

		wrappersSwept: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "wrappers_swept_total",
			Help:        "Total number of dead wrapper cache entries removed",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// RecordEffectRun records one effect run. Untracked runs (stopped effects)
// have no duration.
func (c *Collector) RecordEffectRun(tracked bool, d time.Duration) {
	if c == nil {
		return
	}
	if !tracked {
		c.effectRuns.WithLabelValues("untracked").Inc()
		return
	}
	c.effectRuns.WithLabelValues("tracked").Inc()
	c.effectDuration.Observe(d.Seconds())
}

// RecordEffectStop records an effect being stopped.
func (c *Collector) RecordEffectStop() {
	if c == nil {
		return
	}
	c.effectsStopped.Inc()
}

// RecordTrigger records one dependent being notified.
func (c *Collector) RecordTrigger(scheduled bool) {
	if c == nil {
		return
	}
	if scheduled {
		c.triggers.WithLabelValues("scheduler").Inc()
		return
	}
	c.triggers.WithLabelValues("run").Inc()
}

// RecordRecompute records a computed getter evaluation.
func (c *Collector) RecordRecompute() {
	if c == nil {
		return
	}
	c.computedRecompute.Inc()
}

// RecordWatchCallback records a watch callback invocation.
func (c *Collector) RecordWatchCallback() {
	if c == nil {
		return
	}
	c.watchCallbacks.Inc()
}

// RecordMisuse records a tolerated misuse identified by its error code.
func (c *Collector) RecordMisuse(code string) {
	if c == nil {
		return
	}
	c.misuseWarnings.WithLabelValues(code).Inc()
}

// AddRegistryObjects adjusts the number of objects with live dependencies.
// Runtimes sharing a collector each report their own deltas.
func (c *Collector) AddRegistryObjects(delta int) {
	if c == nil || delta == 0 {
		return
	}
	c.registryObjects.Add(float64(delta))
}

// RecordSweep records dead wrapper entries removed by a sweep.
func (c *Collector) RecordSweep(removed int) {
	if c == nil || removed == 0 {
		return
	}
	c.wrappersSwept.Add(float64(removed))
}
