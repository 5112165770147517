package reactive

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/reactor/internal/errors"
)

// ErrInvalidWatchSource is returned by Watch for sources that are neither
// an *Object nor a func() any.
var ErrInvalidWatchSource = errors.New("R003")

// OnCleanup registers a function to run before the next callback, or when
// the watcher stops.
type OnCleanup func(fn func())

// WatchCallback receives the new and previous source values.
type WatchCallback[T any] func(newValue, oldValue T, onCleanup OnCleanup)

// Watcher observes a source and calls back on every change.
type Watcher struct {
	rt     *Runtime
	effect *Effect

	// cleanup is the function registered by the last callback, if any.
	cleanup func()
}

type watchConfig struct {
	immediate bool
	name      string
}

// WatchOption configures Watch and WatchFunc.
type WatchOption func(*watchConfig)

// Immediate calls the callback once at creation, with the zero value as
// the previous value.
func Immediate() WatchOption {
	return func(c *watchConfig) {
		c.immediate = true
	}
}

// WithWatchName names the watcher's effect in logs and traces.
func WithWatchName(name string) WatchOption {
	return func(c *watchConfig) {
		c.name = name
	}
}

// Watch observes source and calls cb after every change.
//
// A source *Object is watched deeply: every key reachable from it is a
// dependency, and both callback values are the object itself. A source
// func() any is a getter whose reads are the dependencies.
func Watch(rt *Runtime, source any, cb WatchCallback[any], opts ...WatchOption) (*Watcher, error) {
	var getter func() any
	switch s := source.(type) {
	case *Object:
		getter = func() any {
			traverse(s, make(map[*Object]struct{}))
			return s
		}
	case func() any:
		getter = s
	default:
		if IsFunction(source) {
			return nil, errors.New("R003").
				WithDetailf("func source must be func() any, got %T", source).
				WithSuggestion("Use WatchFunc for typed getters")
		}
		return nil, errors.New("R003").WithDetailf("got %T", source)
	}
	return watch(rt, getter, cb, opts), nil
}

// WatchFunc observes the value returned by getter.
func WatchFunc[T any](rt *Runtime, getter func() T, cb WatchCallback[T], opts ...WatchOption) *Watcher {
	return watch(rt,
		func() any { return getter() },
		func(newValue, oldValue any, onCleanup OnCleanup) {
			cb(as[T](newValue), as[T](oldValue), onCleanup)
		},
		opts,
	)
}

func watch(rt *Runtime, getter func() any, cb WatchCallback[any], opts []WatchOption) *Watcher {
	var cfg watchConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	w := &Watcher{rt: rt}
	onCleanup := func(fn func()) {
		w.cleanup = fn
	}

	var oldValue any
	job := func() {
		// A write made by the getter's own run cannot produce a new value.
		if w.effect.Running() {
			return
		}
		w.runCleanup()
		newValue := w.effect.Run()
		rt.metrics.RecordWatchCallback()
		cb(newValue, oldValue, onCleanup)
		oldValue = newValue
	}

	w.effect = rt.newEffect(getter, func(*Effect) {
		w.trace(job)
	})
	w.effect.name = cfg.name
	w.effect.onStop = w.runCleanup

	if cfg.immediate {
		w.trace(job)
	} else {
		oldValue = w.effect.Run()
	}
	return w
}

// Stop stops watching. A cleanup registered by the last callback runs once.
func (w *Watcher) Stop() {
	w.effect.Stop()
}

// Effect returns the underlying effect.
func (w *Watcher) Effect() *Effect {
	return w.effect
}

func (w *Watcher) runCleanup() {
	if fn := w.cleanup; fn != nil {
		w.cleanup = nil
		fn()
	}
}

// trace runs job inside a span when the runtime has a tracer.
func (w *Watcher) trace(job func()) {
	tracer := w.rt.tracer
	if tracer == nil {
		job()
		return
	}

	_, span := tracer.Start(context.Background(), "reactive.watch",
		trace.WithAttributes(
			attribute.Int64("effect.id", int64(w.effect.id)),
			attribute.String("effect.name", w.effect.name),
		),
	)
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			panic(r)
		}
	}()

	job()
}
