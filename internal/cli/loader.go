package cli

import (
	"github.com/jbarthelmes/flecs/internal/compiler"
	"github.com/jbarthelmes/flecs/internal/query"
	"github.com/jbarthelmes/flecs/internal/world"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric    = "E001" // Generic/unknown error
	ErrCodeLoadFailed = "E002" // CUE load or compile failed
	ErrCodeNotFound   = "E003" // Path not found
	ErrCodeRegister   = "E004" // Registration failed
	ErrCodeJournal    = "E005" // Journal access failed
)

// loadPipeline loads and compiles a CUE defs directory.
func loadPipeline(dir string) (*compiler.Pipeline, int, error) {
	p, count, err := compiler.LoadPipeline(dir)
	if err != nil {
		return nil, 0, WrapExitError(ExitCommandError, "failed to load defs", err)
	}
	return p, count, nil
}

// buildWorld validates a pipeline, builds a world, and applies every
// declaration. The returned index is the world's query engine.
func buildWorld(p *compiler.Pipeline, threads int) (*world.World, *query.Index, error) {
	index := query.NewIndex()
	opts := []world.Option{world.WithEngine(index)}
	if threads > 0 {
		opts = append(opts, world.WithThreads(threads))
	}
	w := world.New(opts...)

	if errs := compiler.Validate(p, world.BuiltinNames()...); len(errs) > 0 {
		return nil, nil, WrapExitError(ExitFailure, "pipeline validation failed", errs[0])
	}
	if err := w.ApplyPipeline(p); err != nil {
		return nil, nil, WrapExitError(ExitFailure, "pipeline registration failed", err)
	}
	return w, index, nil
}
