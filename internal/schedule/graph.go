package schedule

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gammazero/toposort"

	"github.com/jbarthelmes/flecs/internal/entity"
	"github.com/jbarthelmes/flecs/internal/system"
)

// NodeKind distinguishes schedulable units from phases. Both live in the
// same identity space and both may be targets of precedence edges.
type NodeKind int

const (
	// KindSystem is a registered schedulable unit.
	KindSystem NodeKind = iota + 1
	// KindPhase is a named grouping unit. Systems declare membership in a
	// phase to inherit its position in the default execution order.
	KindPhase
)

// Node is a registered vertex of the scheduling graph.
type Node struct {
	Entity entity.Entity
	Name   string
	Kind   NodeKind

	// Phase is the phase-membership edge: for systems, the phase the unit
	// belongs to; for phases, the predecessor phase in the default chain.
	// Null means no membership.
	Phase entity.Entity

	// Desc is the transferred descriptor. Valid for systems only.
	Desc system.Descriptor

	// Seq is the registration sequence number, the deterministic tie-break
	// for units with no ordering constraint between them.
	Seq int64
}

// Graph is the global scheduling graph: every registered system and phase,
// plus the precedence edges between them.
//
// Edges are keyed by entity, not by node: an edge may reference an entity
// that is alive but not yet registered. Such edges stay pending and take
// effect once the target registers - this is how a "runs before X" request
// recorded on one descriptor reaches X without mutating X's builder.
//
// All merge operations are atomic: a registration that would close a cycle
// fails without mutating the graph.
//
// Thread-safety: Graph is safe for concurrent use. In practice a world is
// configured from one goroutine and only read at tick time.
type Graph struct {
	mu       sync.RWMutex
	registry *entity.Registry
	clock    *Clock
	nodes    map[entity.Entity]*Node
	// preds[x] is the set of entities that must complete before x starts.
	preds map[entity.Entity]map[entity.Entity]bool
}

// NewGraph creates an empty graph over the given identity registry.
func NewGraph(registry *entity.Registry) *Graph {
	return &Graph{
		registry: registry,
		clock:    NewClock(),
		nodes:    make(map[entity.Entity]*Node),
		preds:    make(map[entity.Entity]map[entity.Entity]bool),
	}
}

// AddPhase registers a phase entity. A non-null after links the phase into
// the default chain: the new phase starts only once after has completed.
func (g *Graph) AddPhase(e, after entity.Entity) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	name := g.registry.Name(e)
	if e.IsNull() || !g.registry.Alive(e) {
		return newInvalidIdentityError(name, "phase", uint64(e))
	}
	if _, exists := g.nodes[e]; exists {
		return newDuplicateUnitError(name)
	}
	if !after.IsNull() && !g.registry.Alive(after) {
		return newInvalidIdentityError(name, "phase predecessor", uint64(after))
	}

	var staged [][2]entity.Entity
	if !after.IsNull() {
		staged = append(staged, [2]entity.Entity{after, e})
	}
	if err := g.checkAcyclicLocked(staged); err != nil {
		return newCyclicDependencyError(name)
	}

	g.commitLocked(&Node{
		Entity: e,
		Name:   name,
		Kind:   KindPhase,
		Phase:  after,
	}, staged)
	return nil
}

// Register merges a system descriptor into the graph, taking ownership of
// it. It allocates an entity for the unit (reusing an existing entity that
// carries the descriptor's name), validates every referenced identity,
// resolves the descriptor's edges against the shared graph, and returns the
// unit's handle.
//
// Failure modes, surfaced synchronously and never masked:
//   - INVALID_IDENTITY: a phase, edge target, or tick source is not alive
//   - INVALID_RATE: a negative rate multiplier
//   - CYCLIC_DEPENDENCY: the merged graph would contain a cycle; the global
//     graph is left untouched
//   - DUPLICATE_UNIT: the named unit already carries a descriptor
func (g *Graph) Register(desc system.Descriptor) (entity.Entity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Rate multipliers must be positive. Zero means "unset" and defaults
	// to every tick of the source, symmetric with interval <= 0.
	if desc.Timing.Kind == system.TimingRate {
		if desc.Timing.Multiplier < 0 {
			return entity.Null, newInvalidRateError(desc.Name, desc.Timing.Multiplier)
		}
		if desc.Timing.Multiplier == 0 {
			desc.Timing.Multiplier = 1
		}
	}

	if err := g.validateIdentitiesLocked(desc); err != nil {
		return entity.Null, err
	}

	var e entity.Entity
	if desc.Name != "" {
		e = g.registry.Named(desc.Name)
	} else {
		e = g.registry.New()
	}
	if _, exists := g.nodes[e]; exists {
		return entity.Null, newDuplicateUnitError(desc.Name)
	}

	staged := make([][2]entity.Entity, 0, len(desc.After)+len(desc.Before)+1)
	for _, other := range desc.After {
		staged = append(staged, [2]entity.Entity{other, e})
	}
	for _, other := range desc.Before {
		// Recorded on the other unit: this system precedes it.
		staged = append(staged, [2]entity.Entity{e, other})
	}
	if !desc.Phase.IsNull() {
		staged = append(staged, [2]entity.Entity{desc.Phase, e})
	}

	if err := g.checkAcyclicLocked(staged); err != nil {
		return entity.Null, newCyclicDependencyError(desc.Name)
	}

	// Copy edge slices so the stored descriptor cannot alias caller state.
	desc.After = append([]entity.Entity(nil), desc.After...)
	desc.Before = append([]entity.Entity(nil), desc.Before...)

	g.commitLocked(&Node{
		Entity: e,
		Name:   desc.Name,
		Kind:   KindSystem,
		Phase:  desc.Phase,
		Desc:   desc,
	}, staged)
	return e, nil
}

// Node returns the registered node for an entity.
func (g *Graph) Node(e entity.Entity) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[e]
	return n, ok
}

// Predecessors returns the entities that must complete before e may start,
// in ascending handle order. Membership edges are included: a system's phase
// is one of its predecessors.
func (g *Graph) Predecessors(e entity.Entity) []entity.Entity {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]entity.Entity, 0, len(g.preds[e]))
	for p := range g.preds[e] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasEdge reports whether pred must complete before succ starts.
func (g *Graph) HasEdge(pred, succ entity.Entity) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.preds[succ][pred]
}

// Reaches reports whether a precedence constraint, direct or transitive,
// requires pred to complete before succ starts. The walk follows edges
// through registered nodes only: a pending edge to an alive-but-unregistered
// entity does not constrain, and neither does anything routed through it.
func (g *Graph) Reaches(pred, succ entity.Entity) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[pred]; !ok {
		return false
	}
	seen := make(map[entity.Entity]bool)
	var walk func(entity.Entity) bool
	walk = func(e entity.Entity) bool {
		if seen[e] {
			return false
		}
		seen[e] = true
		for p := range g.preds[e] {
			if p == pred {
				return true
			}
			if _, ok := g.nodes[p]; !ok {
				continue
			}
			if walk(p) {
				return true
			}
		}
		return false
	}
	return walk(succ)
}

// Len returns the number of registered nodes (systems and phases).
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// PhaseRank returns the position of a node in the default phase order:
// root phases rank 1, each chained phase one higher; systems inherit their
// phase's rank; systems with no membership rank 0.
func (g *Graph) PhaseRank(e entity.Entity) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rankLocked(e, make(map[entity.Entity]bool))
}

// Order computes the deterministic execution order of all registered
// systems. Phase rank is the primary key, precedence edges constrain within
// and across ranks, and registration sequence breaks the remaining ties -
// the same registrations always produce the same order.
//
// Edges referencing alive-but-unregistered entities are pending and do not
// constrain the order until their target registers.
func (g *Graph) Order() ([]*Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// Restrict edges to registered nodes.
	indegree := make(map[entity.Entity]int, len(g.nodes))
	succs := make(map[entity.Entity][]entity.Entity)
	for e := range g.nodes {
		indegree[e] = 0
	}
	for e := range g.nodes {
		for p := range g.preds[e] {
			if _, ok := g.nodes[p]; !ok {
				continue
			}
			indegree[e]++
			succs[p] = append(succs[p], e)
		}
	}

	ranks := make(map[entity.Entity]int, len(g.nodes))
	for e := range g.nodes {
		ranks[e] = g.rankLocked(e, make(map[entity.Entity]bool))
	}

	// Kahn's algorithm with a (rank, seq) priority for determinism.
	ready := make([]*Node, 0, len(g.nodes))
	for e, deg := range indegree {
		if deg == 0 {
			ready = append(ready, g.nodes[e])
		}
	}

	less := func(a, b *Node) bool {
		if ranks[a.Entity] != ranks[b.Entity] {
			return ranks[a.Entity] < ranks[b.Entity]
		}
		return a.Seq < b.Seq
	}

	order := make([]*Node, 0, len(g.nodes))
	for len(ready) > 0 {
		// Pick the smallest ready node. The ready set stays small (a few
		// phases plus their runnable systems), so a scan is fine.
		best := 0
		for i := 1; i < len(ready); i++ {
			if less(ready[i], ready[best]) {
				best = i
			}
		}
		n := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		order = append(order, n)

		for _, s := range succs[n.Entity] {
			indegree[s]--
			if indegree[s] == 0 {
				ready = append(ready, g.nodes[s])
			}
		}
	}

	if len(order) != len(g.nodes) {
		// Register rejects cycles, so this indicates graph corruption.
		return nil, fmt.Errorf("execution order lost %d nodes to a cycle", len(g.nodes)-len(order))
	}

	systems := make([]*Node, 0, len(order))
	for _, n := range order {
		if n.Kind == KindSystem {
			systems = append(systems, n)
		}
	}
	return systems, nil
}

// validateIdentitiesLocked checks every entity the descriptor references.
func (g *Graph) validateIdentitiesLocked(desc system.Descriptor) error {
	check := func(role string, e entity.Entity) error {
		if e.IsNull() {
			return nil
		}
		if !g.registry.Alive(e) {
			return newInvalidIdentityError(desc.Name, role, uint64(e))
		}
		return nil
	}

	if err := check("phase", desc.Phase); err != nil {
		return err
	}
	for _, other := range desc.After {
		if err := check("after edge", other); err != nil {
			return err
		}
	}
	for _, other := range desc.Before {
		if err := check("before edge", other); err != nil {
			return err
		}
	}
	if desc.Timing.Kind == system.TimingRate {
		if err := check("tick source", desc.Timing.Source); err != nil {
			return err
		}
	}
	return nil
}

// checkAcyclicLocked verifies that the current edges plus the staged edges
// form a DAG. The graph itself is not touched.
func (g *Graph) checkAcyclicLocked(staged [][2]entity.Entity) error {
	var edges []toposort.Edge
	for e, ps := range g.preds {
		for p := range ps {
			edges = append(edges, toposort.Edge{p, e})
		}
	}
	for _, st := range staged {
		if st[0] == st[1] {
			return fmt.Errorf("self-referential edge on entity %d", st[0])
		}
		edges = append(edges, toposort.Edge{st[0], st[1]})
	}

	if _, err := toposort.Toposort(edges); err != nil {
		return fmt.Errorf("cycle detected: %w", err)
	}
	return nil
}

// commitLocked installs a node and its staged edges. Called only after the
// acyclicity check has passed.
func (g *Graph) commitLocked(n *Node, staged [][2]entity.Entity) {
	n.Seq = g.clock.Next()
	g.nodes[n.Entity] = n
	for _, st := range staged {
		pred, succ := st[0], st[1]
		if g.preds[succ] == nil {
			g.preds[succ] = make(map[entity.Entity]bool)
		}
		g.preds[succ][pred] = true
	}
}

// rankLocked computes the phase rank of a node. The visited set guards
// against membership loops, which Register rejects but corruption could
// reintroduce.
func (g *Graph) rankLocked(e entity.Entity, visited map[entity.Entity]bool) int {
	n, ok := g.nodes[e]
	if !ok || visited[e] {
		return 0
	}
	visited[e] = true

	switch n.Kind {
	case KindPhase:
		return 1 + g.rankLocked(n.Phase, visited)
	case KindSystem:
		if n.Phase.IsNull() {
			return 0
		}
		return g.rankLocked(n.Phase, visited)
	default:
		return 0
	}
}
