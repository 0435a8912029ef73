package harness

import (
	"context"
	"fmt"

	"github.com/jbarthelmes/flecs/internal/compiler"
	"github.com/jbarthelmes/flecs/internal/query"
	"github.com/jbarthelmes/flecs/internal/world"
)

// TickRecord captures the systems that ran in one tick, in run order.
type TickRecord struct {
	Tick int64    `json:"tick"`
	Ran  []string `json:"ran"`
}

// Result holds the outcome of running a scenario.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool

	// Errors lists assertion failures. Empty when Pass is true.
	Errors []string

	// Ticks is the recorded execution, one record per tick.
	Ticks []TickRecord
}

// Run executes a scenario: compile the defs, build a world, apply the
// pipeline, tick it, and check assertions against the recorded execution.
//
// Returns an error for setup failures (bad defs, registration errors).
// Assertion failures are reported through Result.Pass and Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	p, _, err := compiler.LoadPipeline(scenario.Defs)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	index := query.NewIndex()
	opts := []world.Option{world.WithEngine(index)}
	if scenario.Threads > 0 {
		opts = append(opts, world.WithThreads(scenario.Threads))
	}
	w := world.New(opts...)

	if errs := compiler.Validate(p, world.BuiltinNames()...); len(errs) > 0 {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, errs[0])
	}
	if err := w.ApplyPipeline(p); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	for _, spec := range scenario.Entities {
		index.Set(w.Entity(spec.Name), spec.Components...)
	}

	result := &Result{}
	ctx := context.Background()
	for i := 0; i < scenario.Ticks; i++ {
		report, err := w.Progress(ctx, scenario.Delta)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: tick %d: %w", scenario.Name, i+1, err)
		}
		rec := TickRecord{Tick: report.Tick, Ran: []string{}}
		for _, ran := range report.Ran {
			rec.Ran = append(rec.Ran, ran.Name)
		}
		result.Ticks = append(result.Ticks, rec)
	}

	result.Errors = checkAssertions(scenario, result.Ticks)
	result.Pass = len(result.Errors) == 0
	return result, nil
}
