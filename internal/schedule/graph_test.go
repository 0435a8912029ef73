package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbarthelmes/flecs/internal/entity"
	"github.com/jbarthelmes/flecs/internal/system"
)

func newTestGraph(t *testing.T) (*Graph, *entity.Registry) {
	t.Helper()
	reg := entity.NewRegistry()
	return NewGraph(reg), reg
}

func mustRegister(t *testing.T, g *Graph, desc system.Descriptor) entity.Entity {
	t.Helper()
	e, err := g.Register(desc)
	require.NoError(t, err)
	return e
}

func TestGraph_Register_AllocatesHandle(t *testing.T) {
	g, reg := newTestGraph(t)

	e := mustRegister(t, g, system.NewBuilder(nil, "Move").Build())

	assert.NotEqual(t, entity.Null, e)
	assert.True(t, reg.Alive(e))
	assert.Equal(t, e, reg.Lookup("Move"), "registration names the unit's entity")

	n, ok := g.Node(e)
	require.True(t, ok)
	assert.Equal(t, KindSystem, n.Kind)
	assert.Equal(t, "Move", n.Name)
}

func TestGraph_Register_ReusesNamedEntity(t *testing.T) {
	g, reg := newTestGraph(t)

	// The handle exists as soon as anyone names it.
	pre := reg.Named("Move")
	e := mustRegister(t, g, system.NewBuilder(nil, "Move").Build())

	assert.Equal(t, pre, e, "registration reuses the pre-existing named entity")
}

func TestGraph_Register_DuplicateUnit(t *testing.T) {
	g, _ := newTestGraph(t)

	mustRegister(t, g, system.NewBuilder(nil, "Move").Build())
	_, err := g.Register(system.NewBuilder(nil, "Move").Build())

	var ge *GraphError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, ErrCodeDuplicateUnit, ge.Code)
}

func TestGraph_Register_AfterEdgesBecomePredecessors(t *testing.T) {
	g, reg := newTestGraph(t)

	a := reg.Named("A")
	b := reg.Named("B")
	e := mustRegister(t, g, system.NewBuilder(nil, "Move").After(a).After(b).Build())

	assert.Equal(t, []entity.Entity{a, b}, g.Predecessors(e))
}

func TestGraph_Register_PhaseMembershipIsPredecessor(t *testing.T) {
	g, reg := newTestGraph(t)

	phase := reg.Named("OnUpdate")
	require.NoError(t, g.AddPhase(phase, entity.Null))

	e := mustRegister(t, g, system.NewBuilder(nil, "Move").DependsOn(phase).Build())

	assert.Equal(t, []entity.Entity{phase}, g.Predecessors(e))
}

func TestGraph_Register_BeforeRecordsEdgeOnOther(t *testing.T) {
	g, reg := newTestGraph(t)

	b := reg.Named("B")
	a := mustRegister(t, g, system.NewBuilder(nil, "A").Before(b).Build())

	// The edge is deferred until B registers, then takes effect.
	bReg := mustRegister(t, g, system.NewBuilder(nil, "B").Build())
	require.Equal(t, b, bReg)

	assert.Equal(t, []entity.Entity{a}, g.Predecessors(b),
		"before(B) on A must be observably equivalent to after(A) on B")
}

func TestGraph_BeforeAfterEquivalence(t *testing.T) {
	// before(X) on U and after(U) on X produce the same merged graph.
	gBefore, regBefore := newTestGraph(t)
	x1 := regBefore.Named("X")
	u1 := mustRegister(t, gBefore, system.NewBuilder(nil, "U").Before(x1).Build())
	mustRegister(t, gBefore, system.NewBuilder(nil, "X").Build())

	gAfter, regAfter := newTestGraph(t)
	u2 := mustRegister(t, gAfter, system.NewBuilder(nil, "U").Build())
	x2 := mustRegister(t, gAfter, system.NewBuilder(nil, "X").After(u2).Build())
	_ = regAfter

	assert.Equal(t, []entity.Entity{u1}, gBefore.Predecessors(x1))
	assert.Equal(t, []entity.Entity{u2}, gAfter.Predecessors(x2))
}

func TestGraph_Register_InvalidIdentity(t *testing.T) {
	g, _ := newTestGraph(t)

	_, err := g.Register(system.NewBuilder(nil, "Move").After(entity.Entity(999)).Build())

	assert.True(t, IsInvalidIdentity(err), "unknown edge target must fail registration: %v", err)
}

func TestGraph_Register_InvalidTickSource(t *testing.T) {
	g, _ := newTestGraph(t)

	_, err := g.Register(system.NewBuilder(nil, "Move").RateOf(entity.Entity(999), 2).Build())

	assert.True(t, IsInvalidIdentity(err))
}

func TestGraph_Register_NegativeRate(t *testing.T) {
	g, reg := newTestGraph(t)
	src := reg.Named("src")

	_, err := g.Register(system.NewBuilder(nil, "Move").RateOf(src, -1).Build())

	assert.True(t, IsInvalidRate(err))
}

func TestGraph_Register_ZeroRateDefaultsToOne(t *testing.T) {
	g, reg := newTestGraph(t)
	src := reg.Named("src")

	e := mustRegister(t, g, system.NewBuilder(nil, "Move").RateOf(src, 0).Build())

	n, ok := g.Node(e)
	require.True(t, ok)
	assert.Equal(t, 1, n.Desc.Timing.Multiplier, "zero multiplier means every tick of the source")
}

func TestGraph_Register_CycleFailsAtomically(t *testing.T) {
	g, reg := newTestGraph(t)

	b := reg.Named("B")
	a := mustRegister(t, g, system.NewBuilder(nil, "A").After(b).Build())

	before := g.Len()
	_, err := g.Register(system.NewBuilder(nil, "B").After(a).Build())

	require.True(t, IsCyclicDependency(err), "A after B, B after A must be rejected: %v", err)
	assert.Equal(t, before, g.Len(), "failed registration must not partially mutate the graph")
	assert.Empty(t, g.Predecessors(b), "no edge from the rejected descriptor may remain")
}

func TestGraph_Register_SelfCycleRejected(t *testing.T) {
	g, reg := newTestGraph(t)

	self := reg.Named("Move")
	_, err := g.Register(system.NewBuilder(nil, "Move").After(self).Build())

	assert.True(t, IsCyclicDependency(err), "a unit may not depend on itself: %v", err)
}

func TestGraph_AddPhase_Chain(t *testing.T) {
	g, reg := newTestGraph(t)

	load := reg.Named("OnLoad")
	update := reg.Named("OnUpdate")
	require.NoError(t, g.AddPhase(load, entity.Null))
	require.NoError(t, g.AddPhase(update, load))

	assert.Equal(t, 1, g.PhaseRank(load))
	assert.Equal(t, 2, g.PhaseRank(update))
	assert.Equal(t, []entity.Entity{load}, g.Predecessors(update))
}

func TestGraph_AddPhase_Duplicate(t *testing.T) {
	g, reg := newTestGraph(t)

	p := reg.Named("OnUpdate")
	require.NoError(t, g.AddPhase(p, entity.Null))
	err := g.AddPhase(p, entity.Null)

	var ge *GraphError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, ErrCodeDuplicateUnit, ge.Code)
}

func TestGraph_Order_PhaseRankDominates(t *testing.T) {
	g, reg := newTestGraph(t)

	load := reg.Named("OnLoad")
	update := reg.Named("OnUpdate")
	require.NoError(t, g.AddPhase(load, entity.Null))
	require.NoError(t, g.AddPhase(update, load))

	// Registered out of phase order on purpose.
	late := mustRegister(t, g, system.NewBuilder(nil, "Render").DependsOn(update).Build())
	early := mustRegister(t, g, system.NewBuilder(nil, "Input").DependsOn(load).Build())

	order, err := g.Order()
	require.NoError(t, err)
	require.Len(t, order, 2)
	assert.Equal(t, early, order[0].Entity)
	assert.Equal(t, late, order[1].Entity)
}

func TestGraph_Order_EdgesConstrainWithinPhase(t *testing.T) {
	g, reg := newTestGraph(t)

	phase := reg.Named("OnUpdate")
	require.NoError(t, g.AddPhase(phase, entity.Null))

	collide := reg.Named("Collide")
	move := mustRegister(t, g, system.NewBuilder(nil, "Move").DependsOn(phase).After(collide).Build())
	collideReg := mustRegister(t, g, system.NewBuilder(nil, "Collide").DependsOn(phase).Build())
	require.Equal(t, collide, collideReg)

	order, err := g.Order()
	require.NoError(t, err)
	require.Len(t, order, 2)
	assert.Equal(t, collide, order[0].Entity, "explicit edge overrides registration order")
	assert.Equal(t, move, order[1].Entity)
}

func TestGraph_Order_SeqBreaksTies(t *testing.T) {
	g, _ := newTestGraph(t)

	a := mustRegister(t, g, system.NewBuilder(nil, "A").Build())
	b := mustRegister(t, g, system.NewBuilder(nil, "B").Build())
	c := mustRegister(t, g, system.NewBuilder(nil, "C").Build())

	order, err := g.Order()
	require.NoError(t, err)
	require.Len(t, order, 3)
	assert.Equal(t, []entity.Entity{a, b, c},
		[]entity.Entity{order[0].Entity, order[1].Entity, order[2].Entity},
		"unconstrained units run in registration order, every time")
}

func TestGraph_Order_PendingEdgesDoNotConstrain(t *testing.T) {
	g, reg := newTestGraph(t)

	ghost := reg.Named("Ghost") // alive, never registered
	a := mustRegister(t, g, system.NewBuilder(nil, "A").After(ghost).Build())

	order, err := g.Order()
	require.NoError(t, err)
	require.Len(t, order, 1)
	assert.Equal(t, a, order[0].Entity)
}

func TestGraph_Reaches_Transitive(t *testing.T) {
	g, _ := newTestGraph(t)

	a := mustRegister(t, g, system.NewBuilder(nil, "A").Build())
	x := mustRegister(t, g, system.NewBuilder(nil, "X").After(a).Build())
	c := mustRegister(t, g, system.NewBuilder(nil, "C").After(x).Build())

	assert.True(t, g.Reaches(a, x))
	assert.True(t, g.Reaches(a, c), "the constraint carries across the intermediate")
	assert.False(t, g.Reaches(c, a))
	assert.False(t, g.Reaches(x, a))
}

func TestGraph_Reaches_PendingEdgesDoNotConstrain(t *testing.T) {
	g, reg := newTestGraph(t)

	ghost := reg.Named("Ghost") // alive, never registered
	c := mustRegister(t, g, system.NewBuilder(nil, "C").After(ghost).Build())

	assert.False(t, g.Reaches(ghost, c))
}

func TestClock_MonotonicSequence(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}
