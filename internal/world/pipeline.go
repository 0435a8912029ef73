package world

import (
	"fmt"

	"github.com/jbarthelmes/flecs/internal/compiler"
	"github.com/jbarthelmes/flecs/internal/entity"
	"github.com/jbarthelmes/flecs/internal/query"
)

// BuiltinNames returns the names a pipeline may reference without
// declaring them: the builtin phases and the frame tick source.
func BuiltinNames() []string {
	return []string{
		"OnLoad", "PostLoad", "PreUpdate", "OnUpdate",
		"OnValidate", "PostUpdate", "PreStore", "OnStore",
		"FrameTick",
	}
}

// ApplyPipeline registers every declaration of a compiled pipeline.
// Declarations are applied in order: phases, then timers, then systems.
// Name references resolve through the registry, so a system may reference
// units declared later in the same pipeline.
//
// Stops at the first registration error. Registration is atomic per unit,
// so earlier declarations stay registered when a later one fails.
func (w *World) ApplyPipeline(p *compiler.Pipeline) error {
	for _, ph := range p.Phases {
		after := entity.Null
		if ph.After != "" {
			after = w.Entity(ph.After)
		}
		if _, err := w.Phase(ph.Name, after); err != nil {
			return fmt.Errorf("phase %s: %w", ph.Name, err)
		}
	}

	for _, tm := range p.Timers {
		w.Timer(tm.Name, tm.Interval)
	}

	for _, sys := range p.Systems {
		b := w.System(sys.Name)
		if sys.Phase != "" {
			b.DependsOn(w.Entity(sys.Phase))
		}
		for _, other := range sys.After {
			b.After(w.Entity(other))
		}
		for _, other := range sys.Before {
			b.Before(w.Entity(other))
		}
		if sys.Interval != nil {
			b.Interval(*sys.Interval)
		}
		if sys.Rate != nil {
			if sys.TickSource != "" {
				b.RateOf(w.Entity(sys.TickSource), *sys.Rate)
			} else {
				b.Rate(*sys.Rate)
			}
		}
		b.MultiThreaded(sys.MultiThreaded)
		b.NoReadonly(sys.NoReadonly)
		if len(sys.QueryWith) > 0 || len(sys.QueryWithout) > 0 {
			b.Query(query.NewBuilder().
				With(sys.QueryWith...).
				Without(sys.QueryWithout...).
				Build())
		}
		if _, err := b.Register(); err != nil {
			return fmt.Errorf("system %s: %w", sys.Name, err)
		}
	}

	return nil
}
