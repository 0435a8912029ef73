package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadBasicScenario(t *testing.T) *Scenario {
	t.Helper()
	s, err := LoadScenario("testdata/scenarios/basic_pipeline.yaml")
	require.NoError(t, err)
	return s
}

func writeDefs(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pipeline.cue"), []byte(content), 0o644))
	return dir
}

func TestRunBasicScenarioPasses(t *testing.T) {
	result, err := Run(loadBasicScenario(t))
	require.NoError(t, err)

	assert.True(t, result.Pass, "failures: %v", result.Errors)
	require.Len(t, result.Ticks, 4)
	assert.Equal(t, []string{"Move", "Collide", "Draw"}, result.Ticks[0].Ran)
	assert.Equal(t, []string{"Emit", "Move", "Collide", "Draw"}, result.Ticks[3].Ran)
}

func TestRunReportsAssertionFailure(t *testing.T) {
	s := loadBasicScenario(t)
	s.Assertions = []Assertion{
		{Type: AssertRanCount, System: "Emit", Count: 99},
	}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Emit")
}

func TestRunCollectsAllFailures(t *testing.T) {
	s := loadBasicScenario(t)
	s.Assertions = []Assertion{
		{Type: AssertRanCount, System: "Emit", Count: 99},
		{Type: AssertTickOrder, Tick: 1, Systems: []string{"Draw"}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.Len(t, result.Errors, 2)
}

func TestRunPrecedesFailure(t *testing.T) {
	s := loadBasicScenario(t)
	s.Assertions = []Assertion{
		{Type: AssertPrecedes, Before: "Draw", After: "Move"},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
}

func TestRunRejectsCyclicDefs(t *testing.T) {
	defs := writeDefs(t, `package defs

system: A: after: ["B"]
system: B: after: ["A"]
`)
	s := &Scenario{Name: "cyclic", Defs: defs, Ticks: 1, Delta: 0.1}

	_, err := Run(s)
	assert.Error(t, err)
}

func TestRunRejectsUnknownReference(t *testing.T) {
	defs := writeDefs(t, `package defs

system: A: phase: "NoSuchPhase"
`)
	s := &Scenario{Name: "unknown_ref", Defs: defs, Ticks: 1, Delta: 0.1}

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NoSuchPhase")
}

func TestRunBuiltinPhasesResolve(t *testing.T) {
	defs := writeDefs(t, `package defs

system: A: phase: "OnUpdate"
system: B: {
	phase: "OnStore"
	rate:  2
}
`)
	s := &Scenario{
		Name:  "builtins",
		Defs:  defs,
		Ticks: 4,
		Delta: 0.1,
		Assertions: []Assertion{
			{Type: AssertRanCount, System: "A", Count: 4},
			{Type: AssertRanCount, System: "B", Count: 2},
			{Type: AssertPrecedes, Before: "A", After: "B"},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "failures: %v", result.Errors)
}

func TestRunWithGoldenBasicScenario(t *testing.T) {
	result, err := RunWithGolden(t, loadBasicScenario(t))
	require.NoError(t, err)
	assert.True(t, result.Pass)
}
