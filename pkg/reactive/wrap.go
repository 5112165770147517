package reactive

import (
	"reflect"
	"weak"

	"github.com/vango-dev/reactor/internal/errors"
)

// objectKind identifies the storage shape behind an Object.
type objectKind uint8

const (
	kindStruct objectKind = iota + 1 // *S
	kindMap                          // map[string]V
	kindSlice                        // *[]V
)

// String returns a human-readable name for the kind.
func (k objectKind) String() string {
	switch k {
	case kindStruct:
		return "struct"
	case kindMap:
		return "map"
	case kindSlice:
		return "slice"
	default:
		return "unknown"
	}
}

// classify reports whether v is a wrappable compound value.
func classify(v reflect.Value) (objectKind, bool) {
	if !v.IsValid() {
		return 0, false
	}
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return 0, false
		}
		elem := v.Type().Elem()
		switch elem.Kind() {
		case reflect.Struct:
			// Zero-size values share one address, so they have no identity.
			if elem.Size() == 0 {
				return 0, false
			}
			return kindStruct, true
		case reflect.Slice:
			return kindSlice, true
		}
	case reflect.Map:
		if v.IsNil() || v.Type().Key().Kind() != reflect.String {
			return 0, false
		}
		return kindMap, true
	}
	return 0, false
}

// cacheKey identifies a target by address and type. The type is part of the
// key because a struct and its first field share an address.
type cacheKey struct {
	addr uintptr
	typ  reflect.Type
}

// wrapperCache maps targets to their wrappers without keeping either alive.
//
// Holding only the address of the target is sound: an entry is used only
// while its wrapper is alive, and a live wrapper keeps its target alive, so
// the address cannot have been reused.
type wrapperCache struct {
	entries map[cacheKey]weak.Pointer[Object]

	// sweepInterval is the number of insertions between automatic sweeps.
	sweepInterval int
	inserts       int
}

func newWrapperCache(sweepInterval int) *wrapperCache {
	return &wrapperCache{
		entries:       make(map[cacheKey]weak.Pointer[Object]),
		sweepInterval: sweepInterval,
	}
}

func (c *wrapperCache) get(key cacheKey) *Object {
	wp, ok := c.entries[key]
	if !ok {
		return nil
	}
	o := wp.Value()
	if o == nil {
		delete(c.entries, key)
	}
	return o
}

// put stores o and reports whether an automatic sweep is due.
func (c *wrapperCache) put(key cacheKey, o *Object) bool {
	c.entries[key] = weak.Make(o)
	c.inserts++
	if c.inserts >= c.sweepInterval {
		c.inserts = 0
		return true
	}
	return false
}

// sweep drops entries whose wrapper has been collected.
func (c *wrapperCache) sweep() int {
	removed := 0
	for key, wp := range c.entries {
		if wp.Value() == nil {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// live counts entries whose wrapper is still alive.
func (c *wrapperCache) live() int {
	n := 0
	for _, wp := range c.entries {
		if wp.Value() != nil {
			n++
		}
	}
	return n
}

// ErrNotCompound is returned by TryReactive for values that cannot be wrapped.
var ErrNotCompound = errors.New("R001")

// Reactive wraps target so that reads through the wrapper are tracked and
// writes trigger dependents.
//
// Wrapping the same target again returns the same *Object while that
// wrapper is alive, and wrapping an *Object returns it unchanged. Targets
// that are not compound values (see IsObject) yield nil.
func (rt *Runtime) Reactive(target any) *Object {
	if o, ok := target.(*Object); ok {
		return o
	}
	o := rt.wrapValue(reflect.ValueOf(target))
	if o == nil {
		rt.logger.Debug("reactive: value cannot be made reactive", "type", reflect.TypeOf(target))
	}
	return o
}

// TryReactive is like Reactive but reports non-compound targets as an error.
func (rt *Runtime) TryReactive(target any) (*Object, error) {
	o := rt.Reactive(target)
	if o == nil {
		return nil, errors.New("R001").WithDetailf("got %T", target)
	}
	return o, nil
}

// MustReactive is like Reactive but panics on non-compound targets.
func (rt *Runtime) MustReactive(target any) *Object {
	o, err := rt.TryReactive(target)
	if err != nil {
		panic("reactive: " + err.Error())
	}
	return o
}

// wrapValue returns the cached wrapper for v or creates one.
func (rt *Runtime) wrapValue(v reflect.Value) *Object {
	kind, ok := classify(v)
	if !ok {
		return nil
	}

	key := cacheKey{addr: v.Pointer(), typ: v.Type()}
	if o := rt.wrappers.get(key); o != nil {
		return o
	}

	o := &Object{
		rt:     rt,
		target: v,
		kind:   kind,
	}
	if v.CanInterface() {
		if a, ok := v.Interface().(Accessors); ok {
			o.accessors = a.Accessors()
		}
	}

	if rt.wrappers.put(key, o) {
		rt.Sweep()
	}
	return o
}
