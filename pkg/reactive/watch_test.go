package reactive

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestWatchCleanupOrdering(t *testing.T) {
	rt := New()
	state := rt.Reactive(map[string]int{"n": 0})

	var log []string
	WatchFunc(rt, func() int { return state.Get("n").(int) },
		func(n, o int, onCleanup OnCleanup) {
			log = append(log, fmt.Sprintf("cb %d<-%d", n, o))
			onCleanup(func() {
				log = append(log, fmt.Sprintf("cleanup %d", n))
			})
		})

	assert.Empty(t, log, "the initial run must not invoke the callback")

	require.NoError(t, state.Set("n", 1))
	require.NoError(t, state.Set("n", 2))

	assert.Equal(t, []string{
		"cb 1<-0",
		"cleanup 1",
		"cb 2<-1",
	}, log)
}

func TestWatchSkipsWritesFromItsOwnGetter(t *testing.T) {
	rt := New()
	state := rt.Reactive(map[string]int{"n": 1})

	var calls [][2]int
	WatchFunc(rt, func() int {
		n := state.Get("n").(int)
		rt.Effect(func() {
			if state.Get("n").(int) == 2 {
				_ = state.Set("n", 3)
			}
		})
		return n
	}, func(n, o int, _ OnCleanup) {
		calls = append(calls, [2]int{n, o})
	})

	require.NoError(t, state.Set("n", 2))

	assert.Equal(t, [][2]int{{2, 1}}, calls, "no callback may see a value the getter never returned")
	assert.Equal(t, 3, state.Get("n"))
}

func TestWatchImmediate(t *testing.T) {
	rt := New()
	state := rt.Reactive(map[string]any{"name": "a"})

	var calls [][2]string
	WatchFunc(rt, func() string { return state.Get("name").(string) },
		func(n, o string, _ OnCleanup) {
			calls = append(calls, [2]string{n, o})
		}, Immediate())

	require.NoError(t, state.Set("name", "b"))
	assert.Equal(t, [][2]string{{"a", ""}, {"b", "a"}}, calls)
}

func TestWatchStopRunsPendingCleanup(t *testing.T) {
	rt := New()
	state := rt.Reactive(map[string]int{"n": 0})

	cleanups := 0
	calls := 0
	w := WatchFunc(rt, func() int { return state.Get("n").(int) },
		func(_, _ int, onCleanup OnCleanup) {
			calls++
			onCleanup(func() { cleanups++ })
		})

	require.NoError(t, state.Set("n", 1))
	assert.Equal(t, 0, cleanups)

	w.Stop()
	assert.Equal(t, 1, cleanups)
	w.Stop()
	assert.Equal(t, 1, cleanups, "cleanup runs once")

	require.NoError(t, state.Set("n", 2))
	assert.Equal(t, 1, calls, "a stopped watcher is never called back")
	assert.False(t, w.Effect().Active())
}

func TestWatchObjectDeep(t *testing.T) {
	rt := New()
	p := newPerson()
	obj := rt.Reactive(p)

	calls := 0
	w, err := Watch(rt, obj, func(n, o any, _ OnCleanup) {
		calls++
		assert.Same(t, obj, n)
		assert.Same(t, obj, o)
	})
	require.NoError(t, err)
	require.NotNil(t, w)

	require.NoError(t, rt.Reactive(&p.Address).Set("City", "Paris"))
	assert.Equal(t, 1, calls)

	tags := obj.Get("Tags").(*Object)
	require.NoError(t, tags.Append("poetry"))
	assert.Equal(t, 2, calls)

	meta := obj.Get("Meta").(*Object)
	require.NoError(t, meta.Set("died", 1852))
	assert.Equal(t, 3, calls)
}

func TestWatchCircular(t *testing.T) {
	rt := New()
	a := map[string]any{"name": "a"}
	b := map[string]any{"name": "b", "peer": a}
	a["peer"] = b

	calls := 0
	_, err := Watch(rt, rt.Reactive(a), func(_, _ any, _ OnCleanup) {
		calls++
	})
	require.NoError(t, err)

	require.NoError(t, rt.Reactive(b).Set("name", "bee"))
	assert.Equal(t, 1, calls)
}

func TestWatchGetterSource(t *testing.T) {
	rt := New()
	state := rt.Reactive(map[string]int{"n": 1})

	var got []any
	_, err := Watch(rt, func() any { return state.Get("n") }, func(n, o any, _ OnCleanup) {
		got = append(got, n, o)
	}, WithWatchName("n-watcher"))
	require.NoError(t, err)

	require.NoError(t, state.Set("n", 2))
	assert.Equal(t, []any{2, 1}, got)
}

func TestWatchInvalidSource(t *testing.T) {
	rt := New()

	w, err := Watch(rt, 42, func(_, _ any, _ OnCleanup) {})
	assert.Nil(t, w)
	assert.ErrorIs(t, err, ErrInvalidWatchSource)

	w, err = Watch(rt, func() int { return 1 }, func(_, _ any, _ OnCleanup) {})
	assert.Nil(t, w)
	assert.ErrorIs(t, err, ErrInvalidWatchSource)
	assert.ErrorContains(t, err, "func source must be func() any")
}

func TestWatchWithTracer(t *testing.T) {
	rt := New(WithTracer(noop.NewTracerProvider().Tracer("test")))
	state := rt.Reactive(map[string]int{"n": 0})

	calls := 0
	WatchFunc(rt, func() int { return state.Get("n").(int) },
		func(_, _ int, _ OnCleanup) {
			calls++
			if calls == 2 {
				panic("callback failed")
			}
		}, WithWatchName("traced"))

	require.NoError(t, state.Set("n", 1))
	assert.Equal(t, 1, calls)

	assert.PanicsWithValue(t, "callback failed", func() {
		_ = state.Set("n", 2)
	})
	assert.Nil(t, rt.Active())
}
