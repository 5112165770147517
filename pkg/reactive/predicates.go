package reactive

import "reflect"

// IsObject reports whether v can be made reactive: a non-nil pointer to a
// struct or slice, a non-nil map with string keys, or an existing wrapper.
func IsObject(v any) bool {
	if _, ok := v.(*Object); ok {
		return true
	}
	_, ok := classify(reflect.ValueOf(v))
	return ok
}

// IsFunction reports whether v is a non-nil function.
func IsFunction(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Func && !rv.IsNil()
}

// IsReactive reports whether v is a reactive wrapper. It never tracks.
func IsReactive(v any) bool {
	m, ok := v.(interface{ IsReactive() bool })
	return ok && m.IsReactive()
}
