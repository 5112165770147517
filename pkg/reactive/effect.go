package reactive

import "time"

// Scheduler is invoked instead of re-running an effect when one of its
// dependencies changes. It receives the effect so it can queue or run it.
type Scheduler func(e *Effect)

// Effect is a re-runnable unit of work. While it runs it is the subscriber
// for every tracked read.
//
// An effect is alive from its first run until Stop. A stopped effect can
// still be run, but its work then executes without any tracking.
type Effect struct {
	id   uint64
	name string
	rt   *Runtime

	// fn is the work function.
	fn func() any

	// scheduler, when set, replaces direct re-runs on trigger.
	scheduler Scheduler

	// active is false once Stop has been called.
	active bool

	// parent is the effect that was current when this run started.
	// Only meaningful while the effect is running.
	parent *Effect

	// deps are the dep sets this effect is a member of.
	deps []*Dep

	// onStop runs once when the effect is stopped.
	onStop func()
}

// newEffect creates an active effect without running it.
func (rt *Runtime) newEffect(fn func() any, scheduler Scheduler) *Effect {
	return &Effect{
		id:        nextID(),
		rt:        rt,
		fn:        fn,
		scheduler: scheduler,
		active:    true,
	}
}

// ID returns the unique identifier of the effect.
func (e *Effect) ID() uint64 {
	return e.id
}

// Name returns the optional name given with WithName.
func (e *Effect) Name() string {
	return e.name
}

// Active reports whether the effect is still subscribed (not stopped).
func (e *Effect) Active() bool {
	return e.active
}

// DepCount returns the number of dep sets the effect belongs to.
func (e *Effect) DepCount() int {
	return len(e.deps)
}

// Run executes the work function and returns its result.
//
// For an active effect, dependencies from the previous run are dropped and
// re-collected from this run's reads. The previous current effect is
// restored afterwards, even if the work panics.
func (e *Effect) Run() any {
	rt := e.rt
	if !e.active {
		rt.metrics.RecordEffectRun(false, 0)
		var out any
		rt.Untrack(func() { out = e.fn() })
		return out
	}

	// Already on the stack: running again would re-enter the same work.
	if e.Running() {
		return nil
	}

	parent := rt.active
	e.parent = parent
	rt.active = e

	start := time.Now()
	defer func() {
		rt.active = parent
		e.parent = nil
		rt.metrics.RecordEffectRun(true, time.Since(start))
	}()

	e.cleanupDeps()
	return e.fn()
}

// Running reports whether the effect is the current effect or one of its
// parents. Run is a no-op while this is true.
func (e *Effect) Running() bool {
	for p := e.rt.active; p != nil; p = p.parent {
		if p == e {
			return true
		}
	}
	return false
}

// Stop removes the effect from every dep set and disables tracking.
// Stop is idempotent.
func (e *Effect) Stop() {
	if !e.active {
		return
	}

	e.cleanupDeps()
	e.active = false
	e.rt.metrics.RecordEffectStop()
	e.rt.logger.Debug("reactive: effect stopped", "effect", e.id, "name", e.name)

	if e.onStop != nil {
		e.onStop()
	}
}

// cleanupDeps unlinks the effect from all of its dep sets.
func (e *Effect) cleanupDeps() {
	before := len(e.rt.registry.objects)
	for _, d := range e.deps {
		d.remove(e)
		if d.empty() {
			e.rt.registry.release(d)
		}
	}
	clear(e.deps)
	e.deps = e.deps[:0]
	e.rt.metrics.AddRegistryObjects(len(e.rt.registry.objects) - before)
}

// EffectOption configures an effect created with Runtime.Effect.
type EffectOption func(*Effect)

// WithScheduler makes triggers call s instead of re-running the effect.
func WithScheduler(s Scheduler) EffectOption {
	return func(e *Effect) {
		e.scheduler = s
	}
}

// WithName names the effect in logs, traces and DevTools-style dumps.
func WithName(name string) EffectOption {
	return func(e *Effect) {
		e.name = name
	}
}

// Runner is returned by Runtime.Effect. It re-runs the effect on demand and
// exposes the effect handle.
type Runner struct {
	effect *Effect
}

// Run runs the effect's work now, re-collecting its dependencies.
func (r *Runner) Run() {
	r.effect.Run()
}

// Effect returns the underlying effect handle.
func (r *Runner) Effect() *Effect {
	return r.effect
}

// Stop is shorthand for r.Effect().Stop().
func (r *Runner) Stop() {
	r.effect.Stop()
}

// Effect creates an effect for fn, runs it immediately and returns a runner
// bound to it.
//
// Example:
//
//	runner := rt.Effect(func() {
//	    render(state.Get("title"))
//	}, reactive.WithName("title"))
//	defer runner.Stop()
func (rt *Runtime) Effect(fn func(), opts ...EffectOption) *Runner {
	e := rt.newEffect(func() any {
		fn()
		return nil
	}, nil)

	for _, opt := range opts {
		opt(e)
	}

	e.Run()
	return &Runner{effect: e}
}
