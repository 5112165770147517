package harness

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/pkg/reactive"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Name is the scenario name.
	Name string `json:"name"`

	// Trace holds one line per step and one indented line per engine event.
	Trace []string `json:"trace"`

	// Runs counts effect runs, computed evaluations and watch callbacks by
	// name.
	Runs map[string]int `json:"runs"`

	// State is a plain snapshot of the final root object.
	State any `json:"state"`
}

// Text renders the result as the text stored in golden files.
func (r *Result) Text() string {
	var b strings.Builder
	b.WriteString("scenario: " + r.Name + "\n")
	for _, line := range r.Trace {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("state: " + formatValue(r.State) + "\n")
	return b.String()
}

// runner holds the live objects of one scenario run.
type runner struct {
	rt    *reactive.Runtime
	state *reactive.Object

	trace []string
	runs  map[string]int

	effects   map[string]*reactive.Runner
	computeds map[string]*reactive.Computed[any]
	watchers  map[string]*reactive.Watcher
}

// Run executes s on a fresh runtime built with opts and checks its
// expectations. The result is returned even when an expectation fails.
func Run(s *Scenario, opts ...reactive.Option) (*Result, error) {
	rt := reactive.New(opts...)

	state := s.State
	if state == nil {
		state = map[string]any{}
	}

	r := &runner{
		rt:        rt,
		state:     rt.Reactive(normalize(state)),
		runs:      make(map[string]int),
		effects:   make(map[string]*reactive.Runner),
		computeds: make(map[string]*reactive.Computed[any]),
		watchers:  make(map[string]*reactive.Watcher),
	}

	for i := range s.Steps {
		if err := r.step(i, &s.Steps[i]); err != nil {
			return nil, s.stepError("R041", i, "%v", err).Wrap(err)
		}
	}

	result := &Result{
		Name:  s.Name,
		Trace: r.trace,
		Runs:  r.runs,
		State: r.state.Snapshot(),
	}
	if s.Expect != nil {
		if err := r.check(s.Expect); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (r *runner) logf(format string, args ...any) {
	r.trace = append(r.trace, "  "+fmt.Sprintf(format, args...))
}

func (r *runner) step(i int, step *Step) error {
	kind, target := step.Kind()

	header := fmt.Sprintf("step %d: %s %s", i+1, kind, target)
	switch kind {
	case KindSet:
		header += " = " + formatValue(step.Value)
	case KindAppend:
		header += " " + formatValue(step.Values)
	}
	r.trace = append(r.trace, header)

	switch kind {
	case KindEffect:
		r.effects[target] = r.rt.Effect(r.effectFunc(target, step), reactive.WithName(target))

	case KindComputed:
		r.computeds[target] = reactive.NewComputed(r.rt, r.computedFunc(target, step))

	case KindWatch:
		return r.watch(target, step)

	case KindSet:
		obj, key, err := r.resolve(target)
		if err != nil {
			return err
		}
		return obj.Set(key, normalize(step.Value))

	case KindDelete:
		obj, key, err := r.resolve(target)
		if err != nil {
			return err
		}
		return obj.Delete(key)

	case KindAppend:
		obj, err := r.object(target)
		if err != nil {
			return err
		}
		values := make([]any, len(step.Values))
		for i, v := range step.Values {
			values[i] = normalize(v)
		}
		return obj.Append(values...)

	case KindRead:
		v := r.read(target)
		r.logf("%s = %s", target, formatValue(v))

	case KindStop:
		if e, ok := r.effects[target]; ok {
			e.Stop()
		} else if c, ok := r.computeds[target]; ok {
			c.Stop()
		} else if w, ok := r.watchers[target]; ok {
			w.Stop()
		}
	}
	return nil
}

func (r *runner) effectFunc(name string, step *Step) func() {
	return func() {
		r.runs[name]++
		n := r.runs[name]

		_, parts := r.readAll(step.Reads)
		if b := step.Branch; b != nil {
			cond := r.read(b.If)
			parts = append(parts, b.If+"="+formatValue(cond))
			taken := b.Else
			if truthy(cond) {
				taken = b.Then
			}
			_, more := r.readAll(taken)
			parts = append(parts, more...)
		}
		if path := step.Increment; path != "" {
			v := r.read(path)
			next := increment(v)
			parts = append(parts, path+"="+formatValue(v))
			if obj, key, err := r.resolve(path); err == nil && obj.Set(key, next) == nil {
				parts = append(parts, "set "+path+"="+formatValue(next))
			}
		}

		if len(parts) == 0 {
			r.logf("%s run %d", name, n)
			return
		}
		r.logf("%s run %d: %s", name, n, strings.Join(parts, " "))
	}
}

func (r *runner) computedFunc(name string, step *Step) func() any {
	return func() any {
		r.runs[name]++
		n := r.runs[name]

		values, parts := r.readAll(step.Reads)
		var result any = values
		if step.Op == "sum" {
			result = sum(values)
		}

		r.logf("%s eval %d: %s -> %s", name, n, strings.Join(parts, " "), formatValue(result))
		return result
	}
}

func (r *runner) watch(name string, step *Step) error {
	cb := func(newValue, oldValue any, onCleanup reactive.OnCleanup) {
		r.runs[name]++
		n := r.runs[name]
		r.logf("%s callback %d: new=%s old=%s", name, n, formatValue(newValue), formatValue(oldValue))
		onCleanup(func() {
			r.logf("%s cleanup %d", name, n)
		})
	}

	var source any
	if step.Source != "" {
		obj, err := r.object(step.Source)
		if err != nil {
			return err
		}
		source = obj
	} else {
		source = func() any {
			values, _ := r.readAll(step.Reads)
			if len(values) == 1 {
				return values[0]
			}
			return values
		}
	}

	opts := []reactive.WatchOption{reactive.WithWatchName(name)}
	if step.Immediate {
		opts = append(opts, reactive.Immediate())
	}

	w, err := reactive.Watch(r.rt, source, cb, opts...)
	if err != nil {
		return err
	}
	r.watchers[name] = w
	return nil
}

// read returns the value at path, or the value of "@name". Paths that do
// not resolve read as nil.
func (r *runner) read(path string) any {
	if name, ok := strings.CutPrefix(path, "@"); ok {
		if c, ok := r.computeds[name]; ok {
			return c.Value()
		}
		return nil
	}
	if path == "." {
		return r.state
	}
	obj, key, err := r.resolve(path)
	if err != nil {
		return nil
	}
	return obj.Get(key)
}

func (r *runner) readAll(paths []string) ([]any, []string) {
	values := make([]any, len(paths))
	parts := make([]string, len(paths))
	for i, p := range paths {
		values[i] = r.read(p)
		parts[i] = p + "=" + formatValue(values[i])
	}
	return values, parts
}

// resolve walks a dotted path to the object holding its last segment.
func (r *runner) resolve(path string) (*reactive.Object, string, error) {
	segments := strings.Split(path, ".")
	obj := r.state
	for _, seg := range segments[:len(segments)-1] {
		next, ok := obj.Get(seg).(*reactive.Object)
		if !ok {
			return nil, "", fmt.Errorf("path %q: %q is not an object", path, seg)
		}
		obj = next
	}
	return obj, segments[len(segments)-1], nil
}

// object returns the object at path; "." is the root.
func (r *runner) object(path string) (*reactive.Object, error) {
	if path == "." {
		return r.state, nil
	}
	v := r.read(path)
	obj, ok := v.(*reactive.Object)
	if !ok {
		return nil, fmt.Errorf("path %q holds %s, not an object", path, formatValue(v))
	}
	return obj, nil
}

// check compares the run against the scenario's expectations.
func (r *runner) check(expect *Expect) error {
	var failures []string
	for name, want := range expect.Runs {
		if got := r.runs[name]; got != want {
			failures = append(failures, fmt.Sprintf("runs[%s] = %d, want %d", name, got, want))
		}
	}
	for path, want := range expect.State {
		got := formatValue(r.read(path))
		if w := formatValue(normalize(want)); got != w {
			failures = append(failures, fmt.Sprintf("state[%s] = %s, want %s", path, got, w))
		}
	}
	if len(failures) == 0 {
		return nil
	}
	slices.Sort(failures)
	return errors.New("R042").WithDetail(strings.Join(failures, "; "))
}

// normalize prepares decoded YAML for wrapping: lists become pointers to
// slices so that they can be appended to in place.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return &t
	}
	return v
}

// formatValue renders v as compact JSON. Reactive objects render as their
// snapshot.
func formatValue(v any) string {
	switch t := v.(type) {
	case *reactive.Object:
		v = t.Snapshot()
	case *[]any:
		v = *t
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case float64:
		return t != 0
	case string:
		return t != ""
	}
	return true
}

func increment(v any) any {
	switch t := v.(type) {
	case int:
		return t + 1
	case float64:
		return t + 1
	}
	return 1
}

// sum adds the numeric values; it is an int unless a float is involved.
func sum(values []any) any {
	total, isFloat := 0.0, false
	for _, v := range values {
		switch t := v.(type) {
		case int:
			total += float64(t)
		case float64:
			total += t
			isFloat = true
		}
	}
	if isFloat {
		return total
	}
	return int(total)
}
