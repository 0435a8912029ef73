package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommandListsSubcommands(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)

	for _, sub := range []string{"validate", "graph", "run", "trace", "test"} {
		assert.Contains(t, out, sub)
	}
}

func TestRootCommandRejectsInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "validate", "testdata/defs/basic")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootCommandAcceptsJSONFormat(t *testing.T) {
	out, err := execute(t, "--format", "json", "validate", "testdata/defs/basic")
	require.NoError(t, err)
	assert.Contains(t, out, `"valid":true`)
}
