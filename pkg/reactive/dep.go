package reactive

import "slices"

// pseudoKey is a key type no user key can collide with.
type pseudoKey string

const (
	// iterateKey is tracked by reads that depend on the key set of a map.
	iterateKey pseudoKey = "iterate"

	// lengthKey is tracked by reads that depend on the length of a slice.
	lengthKey pseudoKey = "length"

	// valueKey is the key of a computed value's own dep set.
	valueKey pseudoKey = "value"
)

// Dep is the set of effects depending on one (object, key) pair.
// Iteration follows insertion order.
type Dep struct {
	// owner is the object this dep belongs to; nil for computed values.
	owner *Object
	key   any

	subs []*Effect
}

func newDep(owner *Object, key any) *Dep {
	return &Dep{owner: owner, key: key}
}

func (d *Dep) has(e *Effect) bool {
	return slices.Contains(d.subs, e)
}

func (d *Dep) add(e *Effect) {
	d.subs = append(d.subs, e)
}

func (d *Dep) remove(e *Effect) {
	if i := slices.Index(d.subs, e); i >= 0 {
		d.subs = slices.Delete(d.subs, i, i+1)
	}
}

func (d *Dep) empty() bool {
	return len(d.subs) == 0
}

// snapshot copies the subscribers so that re-subscription during a trigger
// cascade cannot skip or repeat anyone.
func (d *Dep) snapshot() []*Effect {
	return slices.Clone(d.subs)
}

// trackDep links the current effect and d in both directions.
func (rt *Runtime) trackDep(d *Dep) {
	e := rt.active
	if e == nil || !e.active {
		return
	}
	if d.has(e) {
		return
	}
	d.add(e)
	e.deps = append(e.deps, d)
}

// triggerDep notifies every subscriber of d except the current effect.
func (rt *Runtime) triggerDep(d *Dep) {
	rt.notify(d.snapshot())
}

// notify dispatches subs in order. The slice must not alias a dep's
// subscriber list.
func (rt *Runtime) notify(subs []*Effect) {
	for _, e := range subs {
		if e == rt.active || !e.active {
			continue
		}
		if e.scheduler != nil {
			rt.metrics.RecordTrigger(true)
			e.scheduler(e)
			continue
		}
		rt.metrics.RecordTrigger(false)
		e.Run()
	}
}
