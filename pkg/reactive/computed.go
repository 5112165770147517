package reactive

// ComputedOptions configures a writable computed value.
type ComputedOptions[T any] struct {
	// Get derives the value. Required.
	Get func() T

	// Set receives writes made through SetValue. When nil, writes are
	// reported as misuse and ignored.
	Set func(T)
}

// Computed is a lazily evaluated, cached derived value.
//
// The getter runs on the first Value call and again only after one of the
// values it read has changed. Effects that read Value are re-run when the
// computed becomes stale.
type Computed[T any] struct {
	rt     *Runtime
	effect *Effect
	setter func(T)

	value T

	// dirty is true when value must be recomputed before the next read.
	dirty bool

	// dep holds the effects that read Value.
	dep *Dep
}

// NewComputed creates a read-only computed value.
//
// Example:
//
//	total := reactive.NewComputed(rt, func() int {
//	    return cart.Get("Price").(int) * cart.Get("Qty").(int)
//	})
func NewComputed[T any](rt *Runtime, getter func() T) *Computed[T] {
	return NewWritableComputed(rt, ComputedOptions[T]{Get: getter})
}

// NewWritableComputed creates a computed value whose SetValue calls opts.Set.
func NewWritableComputed[T any](rt *Runtime, opts ComputedOptions[T]) *Computed[T] {
	if opts.Get == nil {
		panic("reactive: computed value requires a getter")
	}

	c := &Computed[T]{
		rt:     rt,
		setter: opts.Set,
		dirty:  true,
		dep:    newDep(nil, valueKey),
	}
	if c.setter == nil {
		c.setter = c.readOnly
	}

	get := opts.Get
	c.effect = rt.newEffect(func() any { return get() }, func(*Effect) {
		if !c.dirty {
			c.dirty = true
			rt.triggerDep(c.dep)
		}
	})
	return c
}

// Value returns the cached value, recomputing it first if stale.
// The read is tracked by the current effect.
func (c *Computed[T]) Value() T {
	c.rt.trackDep(c.dep)
	if c.dirty {
		c.recompute()
	}
	return c.value
}

// Peek is like Value but records no dependency.
func (c *Computed[T]) Peek() T {
	if c.dirty {
		c.rt.Untrack(c.recompute)
	}
	return c.value
}

func (c *Computed[T]) recompute() {
	c.dirty = false
	ok := false
	defer func() {
		// A panicking getter leaves the value stale, not cached.
		if !ok {
			c.dirty = true
		}
	}()

	c.value = as[T](c.effect.Run())
	ok = true
	c.rt.metrics.RecordRecompute()
}

// SetValue passes v to the setter. On a read-only computed it logs a
// warning and does nothing.
func (c *Computed[T]) SetValue(v T) {
	c.setter(v)
}

// Effect returns the effect that runs the getter.
func (c *Computed[T]) Effect() *Effect {
	return c.effect
}

// Stop detaches the computed from its sources. The last value stays cached.
func (c *Computed[T]) Stop() {
	c.effect.Stop()
}

func (c *Computed[T]) readOnly(T) {
	c.rt.logger.Warn("reactive: write operation failed: computed value is readonly",
		"code", "R002",
		"effect", c.effect.id,
	)
	c.rt.metrics.RecordMisuse("R002")
}

// as converts a work result to T. A nil result yields the zero value.
func as[T any](v any) T {
	t, _ := v.(T)
	return t
}
