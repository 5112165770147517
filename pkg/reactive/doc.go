// Package reactive is a fine-grained reactive dependency-tracking engine.
//
// Plain data is wrapped in an Object whose Get calls record a dependency of
// the currently running effect and whose Set calls re-run every effect that
// depends on the changed key. Computed values and watchers are built on the
// same graph.
//
// # Core Types
//
// Runtime owns all ambient state: the current effect, the dependency
// registry and the wrapper cache. It is passed explicitly to every
// constructor:
//
//	rt := reactive.New()
//	state := rt.Reactive(map[string]any{"count": 0})
//
// Effect runs immediately and re-runs when anything it read changes:
//
//	runner := rt.Effect(func() {
//	    fmt.Println("count is", state.Get("count"))
//	})
//	state.Set("count", 1) // prints "count is 1"
//	runner.Stop()
//
// Computed is a lazily evaluated, cached derived value:
//
//	double := reactive.NewComputed(rt, func() int {
//	    return state.Get("count").(int) * 2
//	})
//	double.Value() // recomputes only after count changes
//
// Watch invokes a callback with the new and previous value, and runs the
// cleanup registered by the previous invocation first:
//
//	reactive.WatchFunc(rt, double.Value, func(n, o int, onCleanup reactive.OnCleanup) {
//	    onCleanup(func() { fmt.Println("discard", n) })
//	})
//
// # Objects
//
// Go has no transparent property interception, so reads and writes go
// through explicit accessors: Get/Set for struct fields and map keys,
// Index/SetIndex/Append/Len for slices. Wrappable targets are pointers to
// structs, maps with string keys and pointers to slices. Nested compound
// values are returned wrapped, so deep reads are tracked too.
//
// # Threading
//
// A Runtime is not safe for concurrent use; it models a single logical
// thread of control and never locks. Default returns a runtime private to
// the calling goroutine. Programs that serve several goroutines from one
// runtime funnel the work through a single owner goroutine.
package reactive
