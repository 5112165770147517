package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/reactor/internal/errors"
)

// Scenario describes an initial state and a sequence of steps run against a
// fresh reactive runtime.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description"`

	// State is the initial root object. Lists become appendable slices.
	State map[string]any `yaml:"state"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Expect is checked after the last step.
	Expect *Expect `yaml:"expect,omitempty"`

	// path and stepLines locate errors in the source file.
	path      string
	stepLines []int
}

// Step is one scenario action. Exactly one of the action fields is set.
type Step struct {
	// Effect creates a named effect that reads Reads, then Branch, then
	// increments Increment.
	Effect string `yaml:"effect,omitempty"`

	// Computed creates a named computed value over Reads combined by Op.
	Computed string `yaml:"computed,omitempty"`

	// Watch creates a named watcher over Source (deep) or Reads (getter).
	Watch string `yaml:"watch,omitempty"`

	// Set writes Value at the path.
	Set string `yaml:"set,omitempty"`

	// Delete removes a map key at the path.
	Delete string `yaml:"delete,omitempty"`

	// Append appends Values to the slice at the path.
	Append string `yaml:"append,omitempty"`

	// Read reads the path (or "@computed") outside any effect.
	Read string `yaml:"read,omitempty"`

	// Stop stops the named effect, computed value or watcher.
	Stop string `yaml:"stop,omitempty"`

	// Reads are the paths read by effects, computed values and watchers.
	// A path starting with "@" reads a computed value.
	Reads []string `yaml:"reads,omitempty"`

	// Branch reads Then or Else depending on the truth of If.
	Branch *Branch `yaml:"branch,omitempty"`

	// Increment is a path the effect reads and writes back plus one.
	Increment string `yaml:"increment,omitempty"`

	// Op combines a computed value's reads: "list" (default) or "sum".
	Op string `yaml:"op,omitempty"`

	// Source is the object path a watcher observes deeply.
	Source string `yaml:"source,omitempty"`

	// Immediate runs a watcher's callback at creation.
	Immediate bool `yaml:"immediate,omitempty"`

	// Value is written by set.
	Value any `yaml:"value,omitempty"`

	// Values are appended by append.
	Values []any `yaml:"values,omitempty"`
}

// Branch is a conditional read.
type Branch struct {
	If   string   `yaml:"if"`
	Then []string `yaml:"then,omitempty"`
	Else []string `yaml:"else,omitempty"`
}

// Expect lists the outcomes a scenario must reach.
type Expect struct {
	// Runs maps effect, computed and watcher names to their run, evaluation
	// and callback counts.
	Runs map[string]int `yaml:"runs,omitempty"`

	// State maps paths to their final values.
	State map[string]any `yaml:"state,omitempty"`
}

// Step kinds, as returned by Step.Kind.
const (
	KindEffect   = "effect"
	KindComputed = "computed"
	KindWatch    = "watch"
	KindSet      = "set"
	KindDelete   = "delete"
	KindAppend   = "append"
	KindRead     = "read"
	KindStop     = "stop"
)

// Kind returns the step's action and its target, or "" if the step sets
// no action or more than one.
func (s *Step) Kind() (kind, target string) {
	actions := []struct{ kind, target string }{
		{KindEffect, s.Effect},
		{KindComputed, s.Computed},
		{KindWatch, s.Watch},
		{KindSet, s.Set},
		{KindDelete, s.Delete},
		{KindAppend, s.Append},
		{KindRead, s.Read},
		{KindStop, s.Stop},
	}
	for _, a := range actions {
		if a.target == "" {
			continue
		}
		if kind != "" {
			return "", ""
		}
		kind, target = a.kind, a.target
	}
	return kind, target
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so that typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("R040").WithDetail("failed to read scenario file").Wrap(err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		if rerr, ok := err.(*errors.ReactorError); ok && rerr.Location != nil {
			rerr.WithLocation(path, rerr.Location.Line, rerr.Location.Column)
		}
		return nil, err
	}
	s.path = path
	return s, nil
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, errors.New("R040").WithDetail("failed to parse YAML: " + err.Error())
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err == nil {
		s.stepLines = stepLines(&root)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// stepLines returns the source line of each entry of the steps list.
func stepLines(root *yaml.Node) []int {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value != "steps" {
			continue
		}
		seq := doc.Content[i+1]
		lines := make([]int, len(seq.Content))
		for j, item := range seq.Content {
			lines[j] = item.Line
		}
		return lines
	}
	return nil
}

// stepError builds a coded error pointing at step i.
func (s *Scenario) stepError(code string, i int, format string, args ...any) *errors.ReactorError {
	err := errors.New(code).WithDetail(fmt.Sprintf("steps[%d]: ", i) + fmt.Sprintf(format, args...))
	if i < len(s.stepLines) {
		line := s.stepLines[i]
		if s.path != "" {
			err.WithLocation(s.path, line, 0)
		} else {
			err.Location = &errors.Location{Line: line}
		}
	}
	return err
}

// validate checks required fields and that every name a step refers to
// was declared by an earlier step.
func (s *Scenario) validate() error {
	if s.Name == "" {
		return errors.New("R040").WithDetail("name is required")
	}
	if len(s.Steps) == 0 {
		return errors.New("R040").WithDetail("steps list is required and must be non-empty")
	}

	declared := make(map[string]string)
	checkReads := func(i int, paths []string) error {
		for _, p := range paths {
			if p == "" {
				return s.stepError("R040", i, "empty read path")
			}
			if name, ok := strings.CutPrefix(p, "@"); ok && declared[name] != KindComputed {
				return s.stepError("R040", i, "%q is not a declared computed value", name)
			}
		}
		return nil
	}

	for i := range s.Steps {
		step := &s.Steps[i]
		kind, target := step.Kind()
		if kind == "" {
			return s.stepError("R040", i, "exactly one action is required")
		}

		switch kind {
		case KindEffect, KindComputed, KindWatch:
			if _, dup := declared[target]; dup {
				return s.stepError("R040", i, "name %q is already declared", target)
			}
			if err := checkReads(i, step.Reads); err != nil {
				return err
			}
		}

		switch kind {
		case KindEffect:
			if b := step.Branch; b != nil {
				if b.If == "" {
					return s.stepError("R040", i, "branch.if is required")
				}
				for _, paths := range [][]string{{b.If}, b.Then, b.Else} {
					if err := checkReads(i, paths); err != nil {
						return err
					}
				}
			}
		case KindComputed:
			if step.Op != "" && step.Op != "list" && step.Op != "sum" {
				return s.stepError("R040", i, "op must be list or sum, got %q", step.Op)
			}
		case KindWatch:
			if (step.Source == "") == (len(step.Reads) == 0) {
				return s.stepError("R040", i, "watch needs exactly one of source or reads")
			}
		case KindAppend:
			if len(step.Values) == 0 {
				return s.stepError("R040", i, "append needs values")
			}
		case KindRead:
			if err := checkReads(i, []string{target}); err != nil {
				return err
			}
		case KindStop:
			if _, ok := declared[target]; !ok {
				return s.stepError("R040", i, "%q is not declared", target)
			}
		}

		switch kind {
		case KindEffect, KindComputed, KindWatch:
			declared[target] = kind
		}
	}
	return nil
}
