package reactive

// traverse reads every key of v recursively so that the current effect
// depends on all of them. Each object is visited once, so cyclic
// structures terminate.
func traverse(v any, seen map[*Object]struct{}) {
	o, ok := v.(*Object)
	if !ok {
		return
	}
	if _, ok := seen[o]; ok {
		return
	}
	seen[o] = struct{}{}

	for _, key := range o.Keys() {
		traverse(o.Get(key), seen)
	}
}

// Snapshot returns a plain deep copy of the object without tracking any
// read. Structs and maps become map[string]any, slices become []any.
// A reference back to an object still being copied becomes nil.
func (o *Object) Snapshot() any {
	var out any
	o.rt.Untrack(func() {
		out = snapshot(o, make(map[*Object]bool))
	})
	return out
}

func snapshot(v any, onStack map[*Object]bool) any {
	o, ok := v.(*Object)
	if !ok {
		return v
	}
	if onStack[o] {
		return nil
	}
	onStack[o] = true
	defer delete(onStack, o)

	keys := o.Keys()
	if o.kind == kindSlice {
		out := make([]any, len(keys))
		for i := range keys {
			out[i] = snapshot(o.Index(i), onStack)
		}
		return out
	}

	out := make(map[string]any, len(keys))
	for _, key := range keys {
		out[key] = snapshot(o.Get(key), onStack)
	}
	return out
}
