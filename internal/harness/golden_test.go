package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScenariosMatchGolden(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)
			require.NoError(t, RunWithGolden(t, s))
		})
	}
}
