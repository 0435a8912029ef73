package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommandRunsScenarios(t *testing.T) {
	out, err := execute(t, "test", "testdata/scenarios")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ cli_basic")
	assert.Contains(t, out, "1 scenario(s): 1 passed, 0 failed")
}

func TestTestCommandReportsFailures(t *testing.T) {
	dir := t.TempDir()
	defs, err := filepath.Abs("testdata/defs/basic")
	require.NoError(t, err)
	scenario := `
name: failing
defs: ` + defs + `
ticks: 1
delta: 0.25
assertions:
  - type: ran_count
    system: Move
    count: 99
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "failing.yaml"), []byte(scenario), 0o644))

	out, err := execute(t, "test", dir)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ failing")
	assert.Contains(t, out, "ran_count")
}

func TestTestCommandEmptyDirIsCommandError(t *testing.T) {
	_, err := execute(t, "test", t.TempDir())

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandJSONReport(t *testing.T) {
	out, err := execute(t, "--format", "json", "test", "testdata/scenarios")
	require.NoError(t, err)

	assert.Contains(t, out, `"passed":1`)
	assert.Contains(t, out, `"name":"cli_basic"`)
}
