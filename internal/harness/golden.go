package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/jbarthelmes/flecs/internal/system"
)

// snapshot converts a recorded execution to a canonical JSON document.
// Canonical serialization keeps golden files byte-stable across runs.
func snapshot(name string, ticks []TickRecord) ([]byte, error) {
	tickList := make([]any, len(ticks))
	for i, rec := range ticks {
		ran := make([]any, len(rec.Ran))
		for j, n := range rec.Ran {
			ran[j] = n
		}
		tickList[i] = map[string]any{
			"tick": rec.Tick,
			"ran":  ran,
		}
	}

	return system.MarshalCanonical(map[string]any{
		"name":  name,
		"ticks": tickList,
	})
}

// RunWithGolden executes a scenario and compares its execution record
// against a golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	data, err := snapshot(scenario.Name, result.Ticks)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result, nil
}
