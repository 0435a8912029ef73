package harness

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario. Scenarios run a pipeline
// for a fixed number of ticks and assert on the recorded execution.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Defs is the path to the CUE defs directory, relative to the
	// scenario file location.
	Defs string `yaml:"defs"`

	// Ticks is the number of ticks to run.
	Ticks int `yaml:"ticks"`

	// Delta is the frame delta passed to every tick, in seconds.
	Delta float64 `yaml:"delta"`

	// Threads caps concurrency for multi-threaded batches. Zero means
	// the world default.
	Threads int `yaml:"threads,omitempty"`

	// Entities declares entities with components, wired into the query
	// engine before the run starts.
	Entities []EntitySpec `yaml:"entities,omitempty"`

	// Assertions validate the recorded execution.
	// Supported types: tick_order, ran_count, precedes
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// EntitySpec declares an entity and the components it carries.
type EntitySpec struct {
	Name       string   `yaml:"name"`
	Components []string `yaml:"components"`
}

// Assertion validates the recorded execution.
type Assertion struct {
	// Type specifies the assertion type:
	// - "tick_order": the systems that ran in a given tick, in order
	// - "ran_count": a system ran exactly N times across the run
	// - "precedes": in every tick where both ran, Before ran first
	Type string `yaml:"type"`

	// Tick selects the tick for tick_order (1-based).
	Tick int64 `yaml:"tick,omitempty"`

	// Systems is the expected order (used by tick_order).
	Systems []string `yaml:"systems,omitempty"`

	// System is the system name (used by ran_count).
	System string `yaml:"system,omitempty"`

	// Count is the expected number of runs (used by ran_count).
	Count int `yaml:"count,omitempty"`

	// Before and After name the two systems for precedes.
	Before string `yaml:"before,omitempty"`
	After  string `yaml:"after,omitempty"`
}

// Assertion type constants.
const (
	AssertTickOrder = "tick_order"
	AssertRanCount  = "ran_count"
	AssertPrecedes  = "precedes"
)

// LoadScenario reads and validates a scenario from a YAML file.
// The Defs path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if s.Defs == "" {
		return nil, fmt.Errorf("scenario %s: defs is required", s.Name)
	}
	if s.Ticks <= 0 {
		return nil, fmt.Errorf("scenario %s: ticks must be positive", s.Name)
	}
	if s.Delta <= 0 {
		return nil, fmt.Errorf("scenario %s: delta must be positive", s.Name)
	}
	for _, a := range s.Assertions {
		switch a.Type {
		case AssertTickOrder, AssertRanCount, AssertPrecedes:
		default:
			return nil, fmt.Errorf("scenario %s: unknown assertion type %q", s.Name, a.Type)
		}
	}

	if !filepath.IsAbs(s.Defs) {
		s.Defs = filepath.Join(filepath.Dir(path), s.Defs)
	}

	return &s, nil
}
