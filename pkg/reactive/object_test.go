package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	City string
	Zip  string
}

type person struct {
	First   string
	Last    string
	Age     int
	Address address
	Tags    []string
	Meta    map[string]any
	Friend  *person

	secret string
}

func (p *person) Accessors() map[string]Accessor {
	return map[string]Accessor{
		"FullName": func(self *Object) any {
			return self.Get("First").(string) + " " + self.Get("Last").(string)
		},
	}
}

func newPerson() *person {
	return &person{
		First:   "Ada",
		Last:    "Lovelace",
		Age:     36,
		Address: address{City: "London"},
		Tags:    []string{"math"},
		Meta:    map[string]any{"born": 1815},
	}
}

func TestReactiveIdentity(t *testing.T) {
	rt := New()
	p := newPerson()

	a := rt.Reactive(p)
	b := rt.Reactive(p)
	require.NotNil(t, a)
	assert.Same(t, a, b, "wrapping the same target twice must return the same wrapper")
	assert.Same(t, a, rt.Reactive(a), "wrapping a wrapper must return it unchanged")
	assert.True(t, IsReactive(a))
	assert.False(t, IsReactive(p))
	assert.Same(t, p, a.Raw())
	assert.Equal(t, "struct", a.Kind())
}

func TestReactiveRejectsNonCompound(t *testing.T) {
	rt := New()

	var nilMap map[string]int
	for _, v := range []any{nil, 42, "text", person{}, nilMap, map[int]string{1: "x"}, (*person)(nil), &struct{}{}} {
		assert.Nil(t, rt.Reactive(v), "%T should not be wrappable", v)
	}

	_, err := rt.TryReactive(42)
	assert.ErrorIs(t, err, ErrNotCompound)
	assert.Panics(t, func() { rt.MustReactive("nope") })
}

func TestStructGetSet(t *testing.T) {
	rt := New()
	obj := rt.Reactive(newPerson())

	assert.Equal(t, "Ada", obj.Get("First"))
	assert.Nil(t, obj.Get("Missing"))
	assert.Nil(t, obj.Get("secret"), "unexported fields are not visible")
	assert.Equal(t, []string{"First", "Last", "Age", "Address", "Tags", "Meta", "Friend"}, obj.Keys())

	require.NoError(t, obj.Set("Age", 37))
	assert.Equal(t, 37, obj.Get("Age"))

	// Lossless numeric conversion.
	require.NoError(t, obj.Set("Age", 38.0))
	assert.Equal(t, 38, obj.Get("Age"))

	assert.ErrorIs(t, obj.Set("Age", 38.5), ErrTypeMismatch)
	assert.ErrorIs(t, obj.Set("Age", "old"), ErrTypeMismatch)
	assert.ErrorIs(t, obj.Set("Missing", 1), ErrUnknownKey)
	assert.ErrorIs(t, obj.Set("secret", "x"), ErrUnknownKey)
	assert.ErrorIs(t, obj.Delete("Age"), ErrUnsupported)
	assert.ErrorIs(t, obj.Append(1), ErrUnsupported)
}

func TestNestedReadsAreTracked(t *testing.T) {
	rt := New()
	p := newPerson()
	obj := rt.Reactive(p)

	var cities []any
	rt.Effect(func() {
		addr := obj.Get("Address").(*Object)
		cities = append(cities, addr.Get("City"))
	})

	nested := rt.Reactive(&p.Address)
	assert.Same(t, nested, obj.Get("Address"), "nested wrappers are cached by address")

	require.NoError(t, nested.Set("City", "Paris"))
	assert.Equal(t, []any{"London", "Paris"}, cities)

	require.NoError(t, nested.Set("Zip", "75001"))
	assert.Len(t, cities, 2, "unread nested key must not trigger")
}

func TestStoringWrapperStoresRaw(t *testing.T) {
	rt := New()
	a := newPerson()
	b := &person{First: "Charles"}

	objA := rt.Reactive(a)
	require.NoError(t, objA.Set("Friend", rt.Reactive(b)))
	assert.Same(t, b, a.Friend)

	friend, ok := objA.Get("Friend").(*Object)
	require.True(t, ok)
	assert.Same(t, rt.Reactive(b), friend)
}

func TestAccessorReceiverBinding(t *testing.T) {
	rt := New()
	obj := rt.Reactive(newPerson())

	var names []any
	rt.Effect(func() {
		names = append(names, obj.Get("FullName"))
	})
	require.Equal(t, []any{"Ada Lovelace"}, names)

	require.NoError(t, obj.Set("First", "Augusta"))
	assert.Equal(t, []any{"Ada Lovelace", "Augusta Lovelace"}, names)
}

func TestMapKeySetReactivity(t *testing.T) {
	rt := New()
	m := rt.Reactive(map[string]int{"a": 1})

	var keys [][]string
	rt.Effect(func() {
		keys = append(keys, m.Keys())
	})

	require.NoError(t, m.Set("a", 2))
	assert.Len(t, keys, 1, "updating an existing key leaves the key set unchanged")

	require.NoError(t, m.Set("b", 1))
	require.NoError(t, m.Delete("a"))
	require.NoError(t, m.Delete("missing"))

	assert.Equal(t, [][]string{{"a"}, {"a", "b"}, {"b"}}, keys)
	assert.True(t, m.Has("b"))
	assert.False(t, m.Has("a"))
}

func TestMapDeleteRunsDependentOnce(t *testing.T) {
	rt := New()
	m := rt.Reactive(map[string]int{"a": 1, "b": 2})

	runs := 0
	rt.Effect(func() {
		runs++
		m.Get("a")
		m.Len()
	})

	require.NoError(t, m.Delete("a"))
	assert.Equal(t, 2, runs, "key and key-set dependents are notified in one pass")
}

func TestMapMissingKeyRead(t *testing.T) {
	rt := New()
	m := rt.Reactive(map[string]any{})

	var seen []any
	rt.Effect(func() {
		seen = append(seen, m.Get("late"))
	})

	require.NoError(t, m.Set("late", "here"))
	assert.Equal(t, []any{nil, "here"}, seen)
}

func TestSliceReactivity(t *testing.T) {
	rt := New()
	items := []string{"a", "b"}
	s := rt.Reactive(&items)
	require.NotNil(t, s)

	var lengths []int
	rt.Effect(func() {
		lengths = append(lengths, s.Len())
	})

	var firsts []any
	rt.Effect(func() {
		firsts = append(firsts, s.Index(0))
	})

	require.NoError(t, s.Append("c", "d"))
	assert.Equal(t, []int{2, 4}, lengths)
	assert.Equal(t, []string{"a", "b", "c", "d"}, items)

	require.NoError(t, s.SetIndex(0, "z"))
	assert.Equal(t, []any{"a", "z"}, firsts)
	assert.Equal(t, []int{2, 4}, lengths, "element writes leave the length unchanged")

	assert.ErrorIs(t, s.SetIndex(9, "x"), ErrIndexOutOfRange)
	assert.Nil(t, s.Index(9))
	assert.Equal(t, "b", s.Get("1"))
	assert.Equal(t, []string{"0", "1", "2", "3"}, s.Keys())
}

func TestRangeVisitsInKeyOrder(t *testing.T) {
	rt := New()
	m := rt.Reactive(map[string]int{"b": 2, "a": 1, "c": 3})

	var visited []string
	m.Range(func(key string, value any) bool {
		visited = append(visited, key)
		return key != "b"
	})
	assert.Equal(t, []string{"a", "b"}, visited)
}

func TestSnapshot(t *testing.T) {
	rt := New()
	p := newPerson()
	p.Friend = p

	snap := rt.Reactive(p).Snapshot().(map[string]any)
	assert.Equal(t, "Ada", snap["First"])
	assert.Equal(t, map[string]any{"City": "London", "Zip": ""}, snap["Address"])
	assert.Equal(t, []any{"math"}, snap["Tags"])
	assert.Equal(t, map[string]any{"born": 1815}, snap["Meta"])
	assert.Nil(t, snap["Friend"], "a cycle back to the root becomes nil")
}

func TestSnapshotDoesNotTrack(t *testing.T) {
	rt := New()
	obj := rt.Reactive(map[string]any{"n": 1})

	runs := 0
	rt.Effect(func() {
		runs++
		_ = obj.Snapshot()
	})

	require.NoError(t, obj.Set("n", 2))
	assert.Equal(t, 1, runs)
}

func TestSameValue(t *testing.T) {
	s := []int{1}
	m := map[string]int{}
	nan := 0.0
	nan = nan / nan

	tests := []struct {
		name     string
		new, old any
		same     bool
	}{
		{"equal ints", 1, 1, true},
		{"different ints", 1, 2, false},
		{"different types", 1, int64(1), false},
		{"both nil", nil, nil, true},
		{"nil and value", nil, 0, false},
		{"NaN", nan, nan, true},
		{"same slice", s, s, true},
		{"equal but distinct slices", []int{1}, []int{1}, false},
		{"same map", m, m, true},
		{"equal structs", address{City: "x"}, address{City: "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.same, sameValue(tt.new, tt.old))
		})
	}
}

func TestPredicates(t *testing.T) {
	rt := New()

	assert.True(t, IsObject(&person{}))
	assert.True(t, IsObject(map[string]int{}))
	assert.True(t, IsObject(&[]int{}))
	assert.True(t, IsObject(rt.Reactive(map[string]int{})))
	assert.False(t, IsObject(person{}))
	assert.False(t, IsObject(3))

	assert.True(t, IsFunction(func() {}))
	assert.False(t, IsFunction((func())(nil)))
	assert.False(t, IsFunction(nil))
	assert.False(t, IsFunction("f"))
}
