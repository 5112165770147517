package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/vango-dev/reactor/pkg/reactive"
)

// RunWithGolden runs a scenario and compares its trace against the golden
// file testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario, opts ...reactive.Option) error {
	t.Helper()

	result, err := Run(s, opts...)
	if err != nil {
		return err
	}
	AssertGolden(t, s.Name, result)
	return nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(result.Text()))
}
