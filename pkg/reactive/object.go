package reactive

import (
	"reflect"
	"sort"
	"strconv"

	"github.com/vango-dev/reactor/internal/errors"
)

var (
	// ErrUnknownKey is returned when writing a key a struct does not have.
	ErrUnknownKey = errors.New("R004")

	// ErrTypeMismatch is returned when a value cannot be stored under a key.
	ErrTypeMismatch = errors.New("R005")

	// ErrIndexOutOfRange is returned by SetIndex for indices past the end.
	ErrIndexOutOfRange = errors.New("R006")

	// ErrUnsupported is returned for operations the object kind lacks,
	// such as Delete on a struct.
	ErrUnsupported = errors.New("R007")
)

// Accessor computes a derived property of a target. It receives the
// wrapper, so every read it makes is tracked like any other read.
type Accessor func(self *Object) any

// Accessors is implemented by targets that define computed properties.
// Reading an accessor key through the wrapper evaluates the accessor with
// the wrapper as receiver.
//
//	func (p *Person) Accessors() map[string]reactive.Accessor {
//	    return map[string]reactive.Accessor{
//	        "FullName": func(self *reactive.Object) any {
//	            return self.Get("First").(string) + " " + self.Get("Last").(string)
//	        },
//	    }
//	}
type Accessors interface {
	Accessors() map[string]Accessor
}

// Object is the observation boundary around a compound value. Reads through
// it are tracked and writes through it trigger dependents. Writes made to
// the raw target directly are invisible to the engine.
type Object struct {
	rt *Runtime

	// target is a pointer to a struct, a map, or a pointer to a slice.
	target reflect.Value
	kind   objectKind

	accessors map[string]Accessor
}

// IsReactive always reports true. It is the marker checked by IsReactive
// and is never tracked.
func (o *Object) IsReactive() bool {
	return true
}

// Runtime returns the runtime the object belongs to.
func (o *Object) Runtime() *Runtime {
	return o.rt
}

// Raw returns the wrapped target.
func (o *Object) Raw() any {
	return o.target.Interface()
}

// Kind returns "struct", "map" or "slice".
func (o *Object) Kind() string {
	return o.kind.String()
}

// Get returns the value stored under key and records the read.
// Nested compound values are returned as *Object. Missing keys yield nil.
// On a slice, key is a decimal index.
func (o *Object) Get(key string) any {
	if acc, ok := o.accessors[key]; ok {
		o.rt.track(o, key)
		return acc(o)
	}

	switch o.kind {
	case kindStruct:
		o.rt.track(o, key)
		f := o.field(key)
		if !f.IsValid() {
			return nil
		}
		return o.child(f)

	case kindMap:
		o.rt.track(o, key)
		v := o.target.MapIndex(o.mapKey(key))
		if !v.IsValid() {
			return nil
		}
		return o.child(v)

	case kindSlice:
		i, err := strconv.Atoi(key)
		if err != nil {
			return nil
		}
		return o.Index(i)
	}
	return nil
}

// Has reports whether key exists and records the read.
func (o *Object) Has(key string) bool {
	if _, ok := o.accessors[key]; ok {
		return true
	}

	switch o.kind {
	case kindStruct:
		o.rt.track(o, key)
		return o.field(key).IsValid()
	case kindMap:
		o.rt.track(o, key)
		return o.target.MapIndex(o.mapKey(key)).IsValid()
	case kindSlice:
		i, err := strconv.Atoi(key)
		if err != nil {
			return false
		}
		return i >= 0 && i < o.Len()
	}
	return false
}

// Set stores value under key. Dependents of key are triggered after the
// write, and only if the stored value differs from the previous one.
// Adding a new map key also triggers readers of the key set.
func (o *Object) Set(key string, value any) error {
	switch o.kind {
	case kindStruct:
		f := o.field(key)
		if !f.IsValid() || !f.CanSet() {
			return errors.New("R004").WithDetailf("%s has no settable field %q", o.target.Type().Elem(), key)
		}
		nv, err := convertValue(value, f.Type())
		if err != nil {
			return errors.New("R005").WithDetailf("field %q: %v", key, err)
		}
		old := f.Interface()
		f.Set(nv)
		newValue := f.Interface()
		if !sameValue(newValue, old) {
			o.rt.trigger(o, key, newValue, old)
		}
		return nil

	case kindMap:
		nv, err := convertValue(value, o.target.Type().Elem())
		if err != nil {
			return errors.New("R005").WithDetailf("key %q: %v", key, err)
		}
		k := o.mapKey(key)
		prev := o.target.MapIndex(k)
		o.target.SetMapIndex(k, nv)
		newValue := nv.Interface()
		if !prev.IsValid() {
			o.rt.triggerKeys(o, key, iterateKey)
			return nil
		}
		if old := prev.Interface(); !sameValue(newValue, old) {
			o.rt.trigger(o, key, newValue, old)
		}
		return nil

	case kindSlice:
		i, err := strconv.Atoi(key)
		if err != nil {
			return errors.New("R004").WithDetailf("slice index %q", key)
		}
		return o.SetIndex(i, value)
	}
	return errors.New("R007")
}

// Delete removes a map key, triggering readers of the key and of the key
// set. Deleting a missing key is a no-op.
func (o *Object) Delete(key string) error {
	if o.kind != kindMap {
		return errors.New("R007").WithDetailf("delete on %s", o.kind)
	}
	k := o.mapKey(key)
	prev := o.target.MapIndex(k)
	if !prev.IsValid() {
		return nil
	}
	o.target.SetMapIndex(k, reflect.Value{})
	o.rt.triggerKeys(o, key, iterateKey)
	return nil
}

// Keys returns the object's keys: exported field names in declaration
// order, sorted map keys, or slice indices. Map and slice key sets are
// tracked.
func (o *Object) Keys() []string {
	switch o.kind {
	case kindStruct:
		t := o.target.Type().Elem()
		keys := make([]string, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			if sf := t.Field(i); sf.IsExported() {
				keys = append(keys, sf.Name)
			}
		}
		return keys

	case kindMap:
		o.rt.track(o, iterateKey)
		keys := make([]string, 0, o.target.Len())
		iter := o.target.MapRange()
		for iter.Next() {
			keys = append(keys, iter.Key().String())
		}
		sort.Strings(keys)
		return keys

	case kindSlice:
		n := o.Len()
		keys := make([]string, n)
		for i := range keys {
			keys[i] = strconv.Itoa(i)
		}
		return keys
	}
	return nil
}

// Len returns the number of elements (slice), keys (map) or exported
// fields (struct). Slice length and map key sets are tracked.
func (o *Object) Len() int {
	switch o.kind {
	case kindStruct:
		return len(o.Keys())
	case kindMap:
		o.rt.track(o, iterateKey)
		return o.target.Len()
	case kindSlice:
		o.rt.track(o, lengthKey)
		return o.target.Elem().Len()
	}
	return 0
}

// Index returns element i of a slice and records the read. Out of range
// indices yield nil. On maps and structs it is Get(strconv.Itoa(i)).
func (o *Object) Index(i int) any {
	if o.kind != kindSlice {
		return o.Get(strconv.Itoa(i))
	}
	o.rt.track(o, i)
	s := o.target.Elem()
	if i < 0 || i >= s.Len() {
		return nil
	}
	return o.child(s.Index(i))
}

// SetIndex stores value at index i of a slice.
func (o *Object) SetIndex(i int, value any) error {
	if o.kind != kindSlice {
		return o.Set(strconv.Itoa(i), value)
	}
	s := o.target.Elem()
	if i < 0 || i >= s.Len() {
		return errors.New("R006").WithDetailf("index %d with length %d", i, s.Len())
	}
	nv, err := convertValue(value, s.Type().Elem())
	if err != nil {
		return errors.New("R005").WithDetailf("index %d: %v", i, err)
	}
	elem := s.Index(i)
	old := elem.Interface()
	elem.Set(nv)
	newValue := elem.Interface()
	if !sameValue(newValue, old) {
		o.rt.trigger(o, i, newValue, old)
	}
	return nil
}

// Append appends values to a slice, triggering readers of the new indices
// and of the length.
func (o *Object) Append(values ...any) error {
	if o.kind != kindSlice {
		return errors.New("R007").WithDetailf("append on %s", o.kind)
	}
	if len(values) == 0 {
		return nil
	}
	s := o.target.Elem()
	elemType := s.Type().Elem()

	converted := make([]reflect.Value, len(values))
	for i, v := range values {
		nv, err := convertValue(v, elemType)
		if err != nil {
			return errors.New("R005").WithDetailf("append value %d: %v", i, err)
		}
		converted[i] = nv
	}

	oldLen := s.Len()
	s.Set(reflect.Append(s, converted...))

	keys := make([]any, 0, len(values)+1)
	for i := oldLen; i < s.Len(); i++ {
		keys = append(keys, i)
	}
	o.rt.triggerKeys(o, append(keys, lengthKey)...)
	return nil
}

// field returns the exported struct field called name, or an invalid Value.
func (o *Object) field(name string) reflect.Value {
	sf, ok := o.target.Type().Elem().FieldByName(name)
	if !ok || !sf.IsExported() {
		return reflect.Value{}
	}
	f, err := o.target.Elem().FieldByIndexErr(sf.Index)
	if err != nil {
		return reflect.Value{}
	}
	return f
}

// mapKey converts key to the map's key type (which may be a named string).
func (o *Object) mapKey(key string) reflect.Value {
	return reflect.ValueOf(key).Convert(o.target.Type().Key())
}

// child returns v for a caller, wrapping nested compound values.
func (o *Object) child(v reflect.Value) any {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if nestable(v.Type()) {
		if w := o.rt.wrapValue(v); w != nil {
			return w
		}
	}
	if v.CanAddr() && nestable(reflect.PointerTo(v.Type())) {
		if w := o.rt.wrapValue(v.Addr()); w != nil {
			return w
		}
	}
	if !v.CanInterface() {
		return nil
	}
	return v.Interface()
}

// nestable reports whether values of type t are wrapped when read from
// another object. Structs without exported fields (time.Time, sync.Mutex)
// and byte slices stay plain values.
func nestable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Map:
		return t.Key().Kind() == reflect.String
	case reflect.Pointer:
		elem := t.Elem()
		switch elem.Kind() {
		case reflect.Struct:
			return hasExportedFields(elem)
		case reflect.Slice:
			return elem.Elem().Kind() != reflect.Uint8
		}
	}
	return false
}

func hasExportedFields(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			return true
		}
	}
	return false
}

// Range calls fn for each key and value in Keys order until fn returns
// false. Every read is tracked.
func (o *Object) Range(fn func(key string, value any) bool) {
	for _, key := range o.Keys() {
		if !fn(key, o.Get(key)) {
			return
		}
	}
}
