package system

import (
	"github.com/jbarthelmes/flecs/internal/entity"
	"github.com/jbarthelmes/flecs/internal/query"
)

// TimingKind selects which timing policy is active for a system.
// The kinds are mutually exclusive: the last builder call wins.
type TimingKind int

const (
	// TimingNone runs the system every tick (default).
	TimingNone TimingKind = iota
	// TimingInterval runs the system each time the accumulated frame delta
	// reaches Interval seconds. Interval <= 0 means every tick.
	TimingInterval
	// TimingRate runs the system every Multiplier-th tick of Source.
	// A null Source means the implicit frame tick.
	TimingRate
)

// TimingPolicy describes when a system is eligible to run, independent of
// its precedence constraints. Exactly one kind is active; fields belonging
// to the other kind are zero.
type TimingPolicy struct {
	Kind       TimingKind
	Interval   float64
	Multiplier int
	Source     entity.Entity
}

// Iter is the invocation context handed to a system's action each time the
// system runs. It carries the opaque caller context and, when a matching
// engine is attached to the world, the entities the system's query matched.
type Iter struct {
	// System is the handle of the running system.
	System entity.Entity
	// Delta is the frame delta time in seconds.
	Delta float64
	// Ctx is the caller-owned context pointer from the descriptor,
	// passed through unexamined.
	Ctx any
	// Query is the system's query spec, verbatim.
	Query query.Spec
	// Entities are the matched records, if a matching engine is attached.
	Entities []entity.Entity

	sink func(op func())
}

// Defer hands a structural mutation to the staged-write sink. For staged
// systems the op runs at the next sync point; for NoReadonly systems it is
// applied immediately. A nil op is ignored.
func (it *Iter) Defer(op func()) {
	if op == nil {
		return
	}
	if it.sink != nil {
		it.sink(op)
		return
	}
	op()
}

// SetSink installs the deferred-write sink for this invocation.
// Called by the runner before dispatch; not for use by system actions.
func (it *Iter) SetSink(sink func(op func())) {
	it.sink = sink
}

// RunAction replaces the default per-match iteration for a system.
// The action is invoked once per run and owns its own iteration.
type RunAction func(it *Iter)

// EachAction is the default per-match action, invoked once per matched entity.
type EachAction func(it *Iter, e entity.Entity)

// Descriptor is the plain-data result of building a system. It is owned by
// exactly one Builder until finalization, then transferred to the runtime's
// registration interface.
type Descriptor struct {
	// Name is the logical name of the system; may be empty for anonymous
	// systems. Registration reuses an existing entity carrying the name.
	Name string

	// Query is the externally built query spec, stored verbatim.
	Query query.Spec

	// Phase is the phase-membership edge. A system belongs to at most one
	// phase; setting it again replaces the previous membership.
	Phase entity.Entity

	// After holds outgoing precedence edges: each listed entity must have
	// completed before this system may start.
	After []entity.Entity

	// Before holds precedence requests recorded on other units: this system
	// must complete before each listed entity begins. The edges are data,
	// resolved against the shared graph at registration.
	Before []entity.Entity

	// Timing is the system's timing policy.
	Timing TimingPolicy

	// MultiThreaded marks the system as safe to run concurrently with
	// others under the scheduler's conflict analysis.
	MultiThreaded bool

	// NoReadonly marks the system as mutating runtime structural state
	// directly rather than through the staged-write mechanism. Such a
	// system runs exclusively.
	NoReadonly bool

	// Ctx is an opaque, caller-owned value forwarded to every invocation.
	// The descriptor holds a non-owning reference.
	Ctx any

	// Each is the default per-match action.
	Each EachAction

	// Run optionally replaces the default per-match iteration.
	Run RunAction
}

// Registrar is the runtime's registration interface. It takes ownership of
// the descriptor, allocates or reuses an entity for the system, merges its
// edges and phase membership into the global scheduling graph, and returns
// the handle. Errors (unknown identities, cycles) surface here, unchanged.
type Registrar interface {
	Register(desc Descriptor) (entity.Entity, error)
}
