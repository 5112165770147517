package reactive

import "slices"

// registry maps observed objects to their per-key dep sets.
//
// Entries exist only while they have subscribers: a dep set that becomes
// empty is removed, and so is an object whose last dep set goes away. An
// object is therefore kept alive by the registry exactly as long as some
// active effect depends on it.
type registry struct {
	objects map[*Object]map[any]*Dep
}

func newRegistry() *registry {
	return &registry{
		objects: make(map[*Object]map[any]*Dep),
	}
}

// lookup returns the dep set for (o, key), or nil.
func (r *registry) lookup(o *Object, key any) *Dep {
	deps, ok := r.objects[o]
	if !ok {
		return nil
	}
	return deps[key]
}

// getOrCreate returns the dep set for (o, key), creating it if needed.
func (r *registry) getOrCreate(o *Object, key any) *Dep {
	deps, ok := r.objects[o]
	if !ok {
		deps = make(map[any]*Dep)
		r.objects[o] = deps
	}
	d, ok := deps[key]
	if !ok {
		d = newDep(o, key)
		deps[key] = d
	}
	return d
}

// release forgets an empty dep set.
func (r *registry) release(d *Dep) {
	if d.owner == nil {
		return
	}
	deps, ok := r.objects[d.owner]
	if !ok || deps[d.key] != d {
		return
	}
	delete(deps, d.key)
	if len(deps) == 0 {
		delete(r.objects, d.owner)
	}
}

// size returns the number of objects and dep sets.
func (r *registry) size() (objects, deps int) {
	for _, m := range r.objects {
		deps += len(m)
	}
	return len(r.objects), deps
}

// track records that the current effect depends on (o, key).
// A read outside any effect records nothing.
func (rt *Runtime) track(o *Object, key any) {
	e := rt.active
	if e == nil || !e.active {
		return
	}
	before := len(rt.registry.objects)
	d := rt.registry.getOrCreate(o, key)
	rt.trackDep(d)
	rt.metrics.AddRegistryObjects(len(rt.registry.objects) - before)
}

// trigger notifies the dependents of (o, key) after a change.
func (rt *Runtime) trigger(o *Object, key any, newValue, oldValue any) {
	d := rt.registry.lookup(o, key)
	if d == nil {
		return
	}
	rt.logger.Debug("reactive: trigger", "key", key, "new", newValue, "old", oldValue, "subscribers", len(d.subs))
	rt.triggerDep(d)
}

// triggerKeys notifies the dependents of several keys of o in one pass.
// An effect depending on more than one of the keys runs once.
func (rt *Runtime) triggerKeys(o *Object, keys ...any) {
	var subs []*Effect
	for _, key := range keys {
		d := rt.registry.lookup(o, key)
		if d == nil {
			continue
		}
		for _, e := range d.subs {
			if !slices.Contains(subs, e) {
				subs = append(subs, e)
			}
		}
	}
	if len(subs) == 0 {
		return
	}
	rt.logger.Debug("reactive: trigger", "keys", keys, "subscribers", len(subs))
	rt.notify(subs)
}
