package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/reactor/internal/errors"
)

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: tiny
state:
  n: 1
steps:
  - effect: e
    reads: [n]
  - set: n
    value: 2
`))
	require.NoError(t, err)
	assert.Equal(t, "tiny", s.Name)
	require.Len(t, s.Steps, 2)

	kind, target := s.Steps[0].Kind()
	assert.Equal(t, KindEffect, kind)
	assert.Equal(t, "e", target)
	assert.Equal(t, []int{6, 8}, s.stepLines)
}

func TestParseScenarioErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		line int
	}{
		{
			name: "unknown field",
			yaml: "name: x\nstepz: []\n",
		},
		{
			name: "missing name",
			yaml: "steps:\n  - effect: e\n",
		},
		{
			name: "no steps",
			yaml: "name: x\n",
		},
		{
			name: "two actions",
			yaml: "name: x\nsteps:\n  - effect: e\n    set: n\n",
			line: 3,
		},
		{
			name: "duplicate name",
			yaml: "name: x\nsteps:\n  - effect: e\n  - watch: e\n    reads: [n]\n",
			line: 4,
		},
		{
			name: "undeclared computed",
			yaml: "name: x\nsteps:\n  - effect: e\n    reads: [\"@c\"]\n",
			line: 3,
		},
		{
			name: "stop before declare",
			yaml: "name: x\nsteps:\n  - stop: e\n",
			line: 3,
		},
		{
			name: "watch without source",
			yaml: "name: x\nsteps:\n  - watch: w\n",
			line: 3,
		},
		{
			name: "bad op",
			yaml: "name: x\nsteps:\n  - computed: c\n    op: product\n",
			line: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.New("R040"))

			if tt.line > 0 {
				rerr, ok := err.(*errors.ReactorError)
				require.True(t, ok)
				require.NotNil(t, rerr.Location)
				assert.Equal(t, tt.line, rerr.Location.Line)
			}
		})
	}
}

func TestLoadScenarioLocatesErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: bad\nsteps:\n  - stop: ghost\n"), 0644))

	_, err := LoadScenario(path)
	rerr, ok := err.(*errors.ReactorError)
	require.True(t, ok)
	require.NotNil(t, rerr.Location)
	assert.Equal(t, path, rerr.Location.File)
	assert.Equal(t, 3, rerr.Location.Line)
	assert.Contains(t, rerr.Format(), "ghost")
}
