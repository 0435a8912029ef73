package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbarthelmes/flecs/internal/entity"
	"github.com/jbarthelmes/flecs/internal/query"
)

const (
	entA = entity.Entity(10)
	entB = entity.Entity(20)
	entC = entity.Entity(30)
)

// recordingRegistrar captures the descriptor handed to Register.
type recordingRegistrar struct {
	desc   Descriptor
	handle entity.Entity
	err    error
}

func (r *recordingRegistrar) Register(desc Descriptor) (entity.Entity, error) {
	r.desc = desc
	return r.handle, r.err
}

func TestBuilder_DefaultsAreZero(t *testing.T) {
	desc := NewBuilder(nil, "Move").Build()

	assert.Equal(t, "Move", desc.Name)
	assert.Equal(t, entity.Null, desc.Phase)
	assert.Empty(t, desc.After)
	assert.Empty(t, desc.Before)
	assert.Equal(t, TimingNone, desc.Timing.Kind)
	assert.False(t, desc.MultiThreaded)
	assert.False(t, desc.NoReadonly)
	assert.Nil(t, desc.Ctx)
}

func TestBuilder_DependsOn_ReplacesPhase(t *testing.T) {
	desc := NewBuilder(nil, "Move").
		DependsOn(entA).
		DependsOn(entB).
		Build()

	assert.Equal(t, entB, desc.Phase, "setting phase again replaces membership, never adds a second one")
}

func TestBuilder_DependsOn_NullIsNoop(t *testing.T) {
	desc := NewBuilder(nil, "Move").
		DependsOn(entA).
		DependsOn(entity.Null).
		Build()

	assert.Equal(t, entA, desc.Phase, "null phase must not clear membership")
}

func TestBuilder_After_Accumulates(t *testing.T) {
	desc := NewBuilder(nil, "Move").
		After(entA).
		After(entB).
		Build()

	assert.ElementsMatch(t, []entity.Entity{entA, entB}, desc.After)
}

func TestBuilder_After_Commutative(t *testing.T) {
	ab := NewBuilder(nil, "Move").After(entA).After(entB).Build()
	ba := NewBuilder(nil, "Move").After(entB).After(entA).Build()

	assert.ElementsMatch(t, ab.After, ba.After, "call order must not affect the edge set")
}

func TestBuilder_After_NullIsNoop(t *testing.T) {
	desc := NewBuilder(nil, "Move").
		After(entity.Null).
		Build()

	assert.Empty(t, desc.After, "null other must neither create an edge nor raise an error")
}

func TestBuilder_Before_Accumulates(t *testing.T) {
	desc := NewBuilder(nil, "Move").
		Before(entA).
		Before(entB).
		Build()

	assert.ElementsMatch(t, []entity.Entity{entA, entB}, desc.Before)
}

func TestBuilder_Before_NullIsNoop(t *testing.T) {
	desc := NewBuilder(nil, "Move").
		Before(entity.Null).
		Build()

	assert.Empty(t, desc.Before)
}

func TestBuilder_Interval_ClearsRatePolicy(t *testing.T) {
	desc := NewBuilder(nil, "Move").
		RateOf(entA, 3).
		Interval(5.0).
		Build()

	assert.Equal(t, TimingPolicy{Kind: TimingInterval, Interval: 5.0}, desc.Timing,
		"rate and tick source must not linger after interval")
}

func TestBuilder_RateOf_ClearsIntervalPolicy(t *testing.T) {
	desc := NewBuilder(nil, "Move").
		Interval(5.0).
		RateOf(entA, 3).
		Build()

	assert.Equal(t, TimingPolicy{Kind: TimingRate, Multiplier: 3, Source: entA}, desc.Timing,
		"interval must not linger after rate")
}

func TestBuilder_Rate_PreservesTickSource(t *testing.T) {
	desc := NewBuilder(nil, "Move").
		RateOf(entA, 3).
		Rate(7).
		Build()

	assert.Equal(t, TimingPolicy{Kind: TimingRate, Multiplier: 7, Source: entA}, desc.Timing,
		"single-argument rate updates only the multiplier")
}

func TestBuilder_Rate_AfterInterval_UsesFrameTick(t *testing.T) {
	desc := NewBuilder(nil, "Move").
		Interval(5.0).
		Rate(2).
		Build()

	assert.Equal(t, TimingPolicy{Kind: TimingRate, Multiplier: 2, Source: entity.Null}, desc.Timing,
		"interval cleared the source, so rate falls back to the frame tick")
}

func TestBuilder_TickSource_PreservesMultiplier(t *testing.T) {
	desc := NewBuilder(nil, "Move").
		RateOf(entA, 3).
		TickSource(entB).
		Build()

	assert.Equal(t, TimingPolicy{Kind: TimingRate, Multiplier: 3, Source: entB}, desc.Timing)
}

func TestBuilder_Flags_ToggleIndependently(t *testing.T) {
	desc := NewBuilder(nil, "Move").
		MultiThreaded(true).
		NoReadonly(true).
		MultiThreaded(false).
		Build()

	assert.False(t, desc.MultiThreaded)
	assert.True(t, desc.NoReadonly, "toggling multi_threaded must not perturb no_readonly")
}

func TestBuilder_CtxAndRun_StoredVerbatim(t *testing.T) {
	ctx := &struct{ n int }{42}
	ran := false
	action := func(it *Iter) { ran = true }

	desc := NewBuilder(nil, "Move").
		Ctx(ctx).
		Run(action).
		Build()

	assert.Same(t, ctx, desc.Ctx, "descriptor holds a non-owning reference")
	require.NotNil(t, desc.Run)
	desc.Run(&Iter{})
	assert.True(t, ran)
}

func TestBuilder_Query_StoredVerbatim(t *testing.T) {
	spec := query.NewBuilder().With("Position", "Velocity").Build()

	desc := NewBuilder(nil, "Move").Query(spec).Build()

	assert.Equal(t, spec, desc.Query)
}

func TestBuilder_OrderIndependence(t *testing.T) {
	a := NewBuilder(nil, "Move").
		MultiThreaded(true).
		After(entA).
		DependsOn(entB).
		Interval(0.5).
		Build()
	b := NewBuilder(nil, "Move").
		Interval(0.5).
		DependsOn(entB).
		After(entA).
		MultiThreaded(true).
		Build()

	assert.Equal(t, a, b)
}

func TestBuilder_Register_HandsDescriptorToRegistrar(t *testing.T) {
	reg := &recordingRegistrar{handle: entC}

	handle, err := NewBuilder(reg, "Move").
		After(entA).
		MultiThreaded(true).
		Interval(0.5).
		Register()

	require.NoError(t, err)
	assert.Equal(t, entC, handle)
	assert.Equal(t, "Move", reg.desc.Name)
	assert.Equal(t, []entity.Entity{entA}, reg.desc.After)
	assert.True(t, reg.desc.MultiThreaded)
	assert.Equal(t, TimingPolicy{Kind: TimingInterval, Interval: 0.5}, reg.desc.Timing)
}

func TestBuilder_Register_PropagatesErrorUnchanged(t *testing.T) {
	wantErr := assert.AnError
	reg := &recordingRegistrar{err: wantErr}

	_, err := NewBuilder(reg, "Move").Register()

	assert.ErrorIs(t, err, wantErr, "the builder must not suppress or transform registration errors")
}

func TestBuilder_MutationAfterBuild_Panics(t *testing.T) {
	b := NewBuilder(nil, "Move")
	b.Build()

	assert.Panics(t, func() { b.After(entA) }, "a consumed builder owns no mutable state")
	assert.Panics(t, func() { b.Build() })
}

func TestBuilder_DescriptorsNeverAliased(t *testing.T) {
	b := NewBuilder(nil, "Move").After(entA)
	first := b.Build()

	// Mutating the returned descriptor's slices must not be observable
	// through another copy.
	second := first
	second.After = append(second.After[:0:0], entB)

	assert.Equal(t, []entity.Entity{entA}, first.After)
}
