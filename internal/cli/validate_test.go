package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCleanDefs(t *testing.T) {
	out, err := execute(t, "validate", "testdata/defs/basic")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All definitions valid")
}

func TestValidateBadDefsFailsWithDetails(t *testing.T) {
	out, err := execute(t, "validate", "testdata/defs/bad")

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "NoSuchPhase")
	assert.Contains(t, out, "cycle")
}

func TestValidateMissingDirIsCommandError(t *testing.T) {
	_, err := execute(t, "validate", "testdata/defs/nope")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateJSONFailure(t *testing.T) {
	out, err := execute(t, "--format", "json", "validate", "testdata/defs/bad")

	require.Error(t, err)
	assert.Contains(t, out, `"valid": false`)
	assert.Contains(t, out, `"status": "error"`)
}
