package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenarios = filepath.Join("..", "scenario", "testdata", "scenarios")

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	// keep a developer's own config out of the run
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FIBER_CONFIG", "")

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, data string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "fiber", cmd.Use)

	for _, name := range []string{"run", "validate"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	t.Run("invalid color", func(t *testing.T) {
		_, _, err := execute(t, "validate", "--color", "sometimes", filepath.Join(scenarios, "keyed-reorder.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid color")
	})
}

func TestRun(t *testing.T) {
	t.Run("prints the trace", func(t *testing.T) {
		out, _, err := execute(t, "run", filepath.Join(scenarios, "keyed-reorder.yaml"))
		require.NoError(t, err)

		golden, err := os.ReadFile(filepath.Join("..", "scenario", "testdata", "golden", "keyed-reorder.golden"))
		require.NoError(t, err)
		assert.Equal(t, string(golden), out)
	})

	t.Run("verbose logs steps", func(t *testing.T) {
		_, logs, err := execute(t, "run", "-v", filepath.Join(scenarios, "keyed-reorder.yaml"))
		require.NoError(t, err)

		assert.Contains(t, logs, "running scenario")
		assert.Contains(t, logs, "step started")
	})

	t.Run("failed expectation", func(t *testing.T) {
		path := writeFile(t, "wrong.yaml", "name: wrong\nsteps:\n  - render: {p: hi}\n    expect: {markup: nope}\n")

		out, _, err := execute(t, "run", path)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Contains(t, out, "markup: \"<p>hi</p>\"")
		assert.Contains(t, out, "✗ wrong")
	})

	t.Run("bad config", func(t *testing.T) {
		cfg := writeFile(t, "config.yaml", "work_loop:\n  max_nested_updates: 0\n")

		_, _, err := execute(t, "run", "--config", cfg, filepath.Join(scenarios, "keyed-reorder.yaml"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		out, _, err := execute(t, "validate",
			filepath.Join(scenarios, "keyed-reorder.yaml"),
			filepath.Join(scenarios, "error-boundary.yaml"),
		)
		require.NoError(t, err)

		assert.Contains(t, out, "✓ keyed-reorder (3 steps)")
		assert.Contains(t, out, "✓ error-boundary (4 steps)")
	})

	t.Run("invalid", func(t *testing.T) {
		path := writeFile(t, "bad.yaml", "name: bad\nsteps:\n  - flush: later\n")

		out, _, err := execute(t, "validate", path)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Contains(t, out, "flush must be all or sync")
	})

	t.Run("missing file", func(t *testing.T) {
		out, _, err := execute(t, "validate", filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, out, "read scenario")
	})
}
