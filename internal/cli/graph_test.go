package cli

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphTextOutputMatchesGolden(t *testing.T) {
	out, err := execute(t, "graph", "testdata/defs/basic")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "graph_basic", []byte(out))
}

func TestGraphJSONListsUnitsInOrder(t *testing.T) {
	out, err := execute(t, "--format", "json", "graph", "testdata/defs/basic")
	require.NoError(t, err)

	assert.Contains(t, out, `"name":"Emit"`)
	assert.Contains(t, out, `"timing":"rate 2 of Spawn"`)
	assert.Contains(t, out, `"phase":"Input"`)
}

func TestGraphBadDefsFails(t *testing.T) {
	_, err := execute(t, "graph", "testdata/defs/bad")

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
