package system

import (
	"github.com/jbarthelmes/flecs/internal/entity"
	"github.com/jbarthelmes/flecs/internal/query"
)

// Builder is a fluent, order-independent configuration surface for exactly
// one Descriptor. Every operation mutates the descriptor in place and
// returns the same builder for chaining; order of calls is irrelevant except
// where stated (phase replacement, timing-policy mutual exclusivity).
//
// A builder is single-threaded and short-lived: one logical owner configures
// it sequentially, then consumes it with Build or Register. The builder
// never aliases its descriptor with another builder.
type Builder struct {
	reg  Registrar
	desc Descriptor
	done bool
}

// NewBuilder creates a builder for a fresh, all-zero descriptor bound to a
// registrar. The registrar may be nil when the caller finalizes with Build
// instead of Register.
func NewBuilder(reg Registrar, name string) *Builder {
	return &Builder{reg: reg, desc: Descriptor{Name: name}}
}

// Query sets the system's query spec. The spec is stored verbatim and never
// interpreted by the scheduling core.
func (b *Builder) Query(spec query.Spec) *Builder {
	b.mutable().Query = spec
	return b
}

// DependsOn sets the system's phase membership. A system belongs to at most
// one phase: calling DependsOn again replaces the previous membership.
// A null phase is a no-op.
func (b *Builder) DependsOn(phase entity.Entity) *Builder {
	d := b.mutable()
	if phase.IsNull() {
		return b
	}
	d.Phase = phase
	return b
}

// After adds a precedence edge: other must have completed before this system
// may start. Each call adds an edge; a null other is a no-op.
func (b *Builder) After(other entity.Entity) *Builder {
	d := b.mutable()
	if other.IsNull() {
		return b
	}
	d.After = append(d.After, other)
	return b
}

// Before adds a precedence edge recorded on the other unit: this system must
// complete before other begins. The edge is kept as data on this descriptor
// and resolved against the shared graph at registration, so the other unit
// need not be registered yet. A null other is a no-op.
func (b *Builder) Before(other entity.Entity) *Builder {
	d := b.mutable()
	if other.IsNull() {
		return b
	}
	d.Before = append(d.Before, other)
	return b
}

// MultiThreaded marks whether the system may run concurrently with others.
func (b *Builder) MultiThreaded(value bool) *Builder {
	b.mutable().MultiThreaded = value
	return b
}

// NoReadonly marks whether the system mutates structural state directly
// instead of through the staged-write mechanism.
func (b *Builder) NoReadonly(value bool) *Builder {
	b.mutable().NoReadonly = value
	return b
}

// Interval sets a fixed-interval timing policy, clearing any rate policy.
// The timer is synchronous and advances by the frame delta each tick.
// An interval <= 0 means the system runs every tick.
func (b *Builder) Interval(seconds float64) *Builder {
	b.mutable().Timing = TimingPolicy{Kind: TimingInterval, Interval: seconds}
	return b
}

// RateOf sets a rate timing policy, clearing any interval policy: the system
// runs at every multiplier-th tick of source. The source may be any entity,
// including another system.
func (b *Builder) RateOf(source entity.Entity, multiplier int) *Builder {
	b.mutable().Timing = TimingPolicy{Kind: TimingRate, Multiplier: multiplier, Source: source}
	return b
}

// Rate sets only the multiplier component of the timing policy, reusing any
// previously set tick source, or the implicit frame tick if none. Any
// interval policy is cleared.
func (b *Builder) Rate(multiplier int) *Builder {
	d := b.mutable()
	source := entity.Null
	if d.Timing.Kind == TimingRate {
		source = d.Timing.Source
	}
	d.Timing = TimingPolicy{Kind: TimingRate, Multiplier: multiplier, Source: source}
	return b
}

// TickSource sets only the tick-source component of the timing policy,
// keeping the multiplier. A null source means the implicit frame tick.
// Any interval policy is cleared.
func (b *Builder) TickSource(source entity.Entity) *Builder {
	d := b.mutable()
	multiplier := 0
	if d.Timing.Kind == TimingRate {
		multiplier = d.Timing.Multiplier
	}
	d.Timing = TimingPolicy{Kind: TimingRate, Multiplier: multiplier, Source: source}
	return b
}

// Ctx sets the opaque caller-owned context forwarded to every invocation.
// Ownership stays with the caller; the descriptor holds a non-owning
// reference.
func (b *Builder) Ctx(ctx any) *Builder {
	b.mutable().Ctx = ctx
	return b
}

// Each sets the default per-match action.
func (b *Builder) Each(action EachAction) *Builder {
	b.mutable().Each = action
	return b
}

// Run sets the run override, replacing the default per-match iteration.
func (b *Builder) Run(action RunAction) *Builder {
	b.mutable().Run = action
	return b
}

// Build consumes the builder and returns the descriptor. The builder
// performs no validation of its own - it is a pure data-staging step.
func (b *Builder) Build() Descriptor {
	d := *b.mutable()
	b.done = true
	b.desc = Descriptor{}
	return d
}

// Register consumes the builder and hands the descriptor to the registrar,
// returning the allocated system handle. Registration errors (unknown
// identity, cyclic dependency) are returned unchanged.
func (b *Builder) Register() (entity.Entity, error) {
	if b.reg == nil {
		panic("system: builder has no registrar, use Build")
	}
	return b.reg.Register(b.Build())
}

// mutable returns the live descriptor, failing fast if the builder was
// already consumed. Configuration after finalization is a programming error.
func (b *Builder) mutable() *Descriptor {
	if b.done {
		panic("system: builder already consumed")
	}
	return &b.desc
}
