package reactive

import (
	"log/slog"
	"sync"

	"github.com/petermattis/goid"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/reactor/pkg/metrics"
)

// DefaultSweepInterval is the number of wrapper cache insertions between two
// automatic sweeps of dead entries.
const DefaultSweepInterval = 256

// Runtime is the execution context of the engine. It owns the current
// effect slot, the dependency registry and the wrapper cache.
//
// A Runtime is not safe for concurrent use.
type Runtime struct {
	// active is the effect currently running, nil outside any effect.
	// Reads attribute dependencies to it.
	active *Effect

	registry *registry
	wrappers *wrapperCache

	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger used for misuse warnings and debug events.
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// WithMetrics attaches a Prometheus collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(rt *Runtime) {
		rt.metrics = c
	}
}

// WithTracer enables a span per watcher job.
func WithTracer(tracer trace.Tracer) Option {
	return func(rt *Runtime) {
		rt.tracer = tracer
	}
}

// WithSweepInterval sets how many wrapper cache insertions happen between
// automatic sweeps. Values below 1 are ignored.
func WithSweepInterval(n int) Option {
	return func(rt *Runtime) {
		if n >= 1 {
			rt.wrappers.sweepInterval = n
		}
	}
}

// New creates a Runtime.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		registry: newRegistry(),
		wrappers: newWrapperCache(DefaultSweepInterval),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// runtimes stores per-goroutine default runtimes.
var runtimes sync.Map

// Default returns the runtime private to the calling goroutine, creating it
// on first use.
func Default() *Runtime {
	gid := goid.Get()

	if rt, ok := runtimes.Load(gid); ok {
		return rt.(*Runtime)
	}

	rt := New()
	runtimes.Store(gid, rt)
	return rt
}

// ReleaseDefault forgets the calling goroutine's default runtime.
// Long-lived programs that start many short goroutines should call it
// before such a goroutine exits.
func ReleaseDefault() {
	runtimes.Delete(goid.Get())
}

// Active returns the effect currently running, or nil.
func (rt *Runtime) Active() *Effect {
	return rt.active
}

// Untrack runs fn with no current effect, so its reads record nothing.
func (rt *Runtime) Untrack(fn func()) {
	prev := rt.active
	rt.active = nil
	defer func() { rt.active = prev }()

	fn()
}

// Stats describes the live state of a runtime.
type Stats struct {
	// Objects is the number of objects with at least one dependency.
	Objects int

	// Deps is the number of non-empty dep sets across all objects.
	Deps int

	// Wrappers is the number of cached wrappers still alive.
	Wrappers int
}

// Stats returns a snapshot of registry and cache sizes.
func (rt *Runtime) Stats() Stats {
	objects, deps := rt.registry.size()
	return Stats{
		Objects:  objects,
		Deps:     deps,
		Wrappers: rt.wrappers.live(),
	}
}

// Sweep removes wrapper cache entries whose wrapper has been collected and
// returns how many were removed.
func (rt *Runtime) Sweep() int {
	removed := rt.wrappers.sweep()
	rt.metrics.RecordSweep(removed)
	if removed > 0 {
		rt.logger.Debug("reactive: swept wrapper cache", "removed", removed)
	}
	return removed
}
