package reactive

import (
	"fmt"
	"math"
	"reflect"
)

// convertValue prepares value for storage in a slot of type t.
//
// Wrappers are unwrapped to their targets, so storing a reactive value never
// stores the wrapper itself. Numbers convert between numeric kinds when the
// conversion is lossless.
func convertValue(value any, t reflect.Type) (reflect.Value, error) {
	if o, ok := value.(*Object); ok {
		value = o.Raw()
	}

	if value == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot store nil in %s", t)
	}

	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(t) {
		return v, nil
	}

	// A wrapped *S or *[]V stored into an S or []V slot.
	if v.Kind() == reflect.Pointer && !v.IsNil() && v.Type().Elem().AssignableTo(t) {
		return v.Elem(), nil
	}

	if isNumeric(v.Kind()) && isNumeric(t.Kind()) {
		c := v.Convert(t)
		if c.Convert(v.Type()).Equal(v) {
			return c, nil
		}
		return reflect.Value{}, fmt.Errorf("%v does not fit in %s", value, t)
	}

	if v.Kind() == reflect.String && t.Kind() == reflect.String {
		return v.Convert(t), nil
	}

	return reflect.Value{}, fmt.Errorf("cannot store %s in %s", v.Type(), t)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// sameValue reports whether a write of newValue over oldValue is a no-op.
//
// Comparable values compare with ==. Maps, slices and funcs compare by
// identity, so writing a freshly built slice counts as a change even when
// its elements are equal.
func sameValue(newValue, oldValue any) bool {
	if newValue == nil || oldValue == nil {
		return newValue == nil && oldValue == nil
	}

	nv := reflect.ValueOf(newValue)
	ov := reflect.ValueOf(oldValue)
	if nv.Type() != ov.Type() {
		return false
	}

	if nv.Comparable() && ov.Comparable() {
		if k := nv.Kind(); k == reflect.Float32 || k == reflect.Float64 {
			// NaN never equals itself but rewriting it is not a change.
			if math.IsNaN(nv.Float()) && math.IsNaN(ov.Float()) {
				return true
			}
		}
		return nv.Equal(ov)
	}

	switch nv.Kind() {
	case reflect.Map, reflect.Func, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return nv.Pointer() == ov.Pointer()
	case reflect.Slice:
		return nv.Pointer() == ov.Pointer() && nv.Len() == ov.Len()
	}
	return false
}
