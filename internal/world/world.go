// Package world owns the runtime context a scheduler operates in: the
// identity registry, the global scheduling graph, the frame tick source, and
// the builtin phase chain. All of this is explicit state created by New and
// passed around by reference - there is no process-wide singleton.
package world

import (
	"context"
	"log/slog"

	"github.com/jbarthelmes/flecs/internal/entity"
	"github.com/jbarthelmes/flecs/internal/query"
	"github.com/jbarthelmes/flecs/internal/schedule"
	"github.com/jbarthelmes/flecs/internal/system"
)

// Phases holds the builtin pipeline phases, chained in declaration order:
// each phase starts only once the previous one has completed. Systems
// declare membership with Builder.DependsOn to inherit a phase's position.
type Phases struct {
	OnLoad     entity.Entity
	PostLoad   entity.Entity
	PreUpdate  entity.Entity
	OnUpdate   entity.Entity
	OnValidate entity.Entity
	PostUpdate entity.Entity
	PreStore   entity.Entity
	OnStore    entity.Entity
}

// Option configures a World at construction.
type Option func(*World)

// WithEngine attaches a query matching engine to the world's runner.
func WithEngine(engine query.Engine) Option {
	return func(w *World) { w.engine = engine }
}

// WithThreads caps concurrent dispatch of multi-threaded systems.
func WithThreads(n int) Option {
	return func(w *World) { w.threads = n }
}

// World is the runtime context object. It implements system.Registrar: a
// builder obtained from System hands its descriptor back to the world, which
// merges it into the scheduling graph and returns the unit's handle.
type World struct {
	registry  *entity.Registry
	graph     *schedule.Graph
	runner    *schedule.Runner
	frameTick entity.Entity
	phases    Phases

	engine  query.Engine
	threads int
}

// New creates a world with a fresh identity space, the frame tick source,
// and the builtin phase chain.
func New(opts ...Option) *World {
	w := &World{
		registry: entity.NewRegistry(),
		threads:  1,
	}
	for _, opt := range opts {
		opt(w)
	}

	w.graph = schedule.NewGraph(w.registry)
	w.frameTick = w.registry.Named("FrameTick")

	var runnerOpts []schedule.RunnerOption
	runnerOpts = append(runnerOpts, schedule.WithThreads(w.threads))
	if w.engine != nil {
		runnerOpts = append(runnerOpts, schedule.WithEngine(w.engine))
	}
	w.runner = schedule.NewRunner(w.graph, w.frameTick, runnerOpts...)

	onLoad := w.mustPhase("OnLoad", entity.Null)
	postLoad := w.mustPhase("PostLoad", onLoad)
	preUpdate := w.mustPhase("PreUpdate", postLoad)
	onUpdate := w.mustPhase("OnUpdate", preUpdate)
	onValidate := w.mustPhase("OnValidate", onUpdate)
	postUpdate := w.mustPhase("PostUpdate", onValidate)
	preStore := w.mustPhase("PreStore", postUpdate)
	onStore := w.mustPhase("OnStore", preStore)
	w.phases = Phases{
		OnLoad:     onLoad,
		PostLoad:   postLoad,
		PreUpdate:  preUpdate,
		OnUpdate:   onUpdate,
		OnValidate: onValidate,
		PostUpdate: postUpdate,
		PreStore:   preStore,
		OnStore:    onStore,
	}

	slog.Debug("world created", "builtin_phases", 8)
	return w
}

// System returns a builder for a new schedulable unit bound to this world.
// Finalize with Register to merge the unit into the scheduling graph.
func (w *World) System(name string) *system.Builder {
	return system.NewBuilder(w, name)
}

// Register implements system.Registrar.
func (w *World) Register(desc system.Descriptor) (entity.Entity, error) {
	e, err := w.graph.Register(desc)
	if err != nil {
		return entity.Null, err
	}
	slog.Debug("system registered",
		"system", desc.Name,
		"entity", uint64(e),
	)
	return e, nil
}

// Entity returns the entity carrying the given name, creating it if needed.
// This is the identity-resolution boundary callers use to obtain edge
// targets, phases, and tick sources.
func (w *World) Entity(name string) entity.Entity {
	return w.registry.Named(name)
}

// Lookup resolves a name without creating an entity. Returns the null
// entity when the name is unknown.
func (w *World) Lookup(name string) entity.Entity {
	return w.registry.Lookup(name)
}

// Phase creates a custom named phase. A non-null after links it into the
// phase order behind an existing phase.
func (w *World) Phase(name string, after entity.Entity) (entity.Entity, error) {
	e := w.registry.Named(name)
	if err := w.graph.AddPhase(e, after); err != nil {
		return entity.Null, err
	}
	return e, nil
}

// Timer creates a standalone tick source firing every interval seconds of
// accumulated frame delta. Use it as a Builder.TickSource or RateOf target.
func (w *World) Timer(name string, interval float64) entity.Entity {
	e := w.registry.Named(name)
	w.runner.AddTimer(e, interval)
	return e
}

// Progress advances the world by one tick with the given frame delta.
func (w *World) Progress(ctx context.Context, delta float64) (*schedule.TickReport, error) {
	return w.runner.Tick(ctx, delta)
}

// Phases returns the builtin phase handles.
func (w *World) Phases() Phases {
	return w.phases
}

// FrameTick returns the implicit frame tick source.
func (w *World) FrameTick() entity.Entity {
	return w.frameTick
}

// Graph returns the world's scheduling graph.
func (w *World) Graph() *schedule.Graph {
	return w.graph
}

// Registry returns the world's identity registry.
func (w *World) Registry() *entity.Registry {
	return w.registry
}

// mustPhase installs a builtin phase. Failure here means the world's own
// init is inconsistent, which is unrecoverable.
func (w *World) mustPhase(name string, after entity.Entity) entity.Entity {
	e := w.registry.Named(name)
	if err := w.graph.AddPhase(e, after); err != nil {
		panic("world: builtin phase " + name + ": " + err.Error())
	}
	return e
}
