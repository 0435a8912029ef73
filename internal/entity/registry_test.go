package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_New_AllocatesDistinctHandles(t *testing.T) {
	r := NewRegistry()

	a := r.New()
	b := r.New()

	assert.NotEqual(t, Null, a)
	assert.NotEqual(t, Null, b)
	assert.NotEqual(t, a, b)
}

func TestRegistry_Named_CreateOrReuse(t *testing.T) {
	r := NewRegistry()

	a := r.Named("Move")
	b := r.Named("Move")

	assert.Equal(t, a, b, "same name must resolve to the same handle")
	assert.Equal(t, "Move", r.Name(a))
}

func TestRegistry_Named_EmptyNameIsAnonymous(t *testing.T) {
	r := NewRegistry()

	a := r.Named("")
	b := r.Named("")

	assert.NotEqual(t, a, b, "empty names must not collide")
	assert.Equal(t, "", r.Name(a))
}

func TestRegistry_Lookup_UnknownIsNull(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, Null, r.Lookup("missing"))
}

func TestRegistry_Alive(t *testing.T) {
	r := NewRegistry()

	e := r.Named("Physics")
	require.True(t, r.Alive(e))
	assert.False(t, r.Alive(Null), "null entity is never alive")
	assert.False(t, r.Alive(Entity(9999)))
}

func TestRegistry_Delete_ReleasesName(t *testing.T) {
	r := NewRegistry()

	e := r.Named("Physics")
	r.Delete(e)

	assert.False(t, r.Alive(e))
	assert.Equal(t, Null, r.Lookup("Physics"))

	// Re-creating the name allocates a new handle.
	e2 := r.Named("Physics")
	assert.NotEqual(t, e, e2)
	assert.True(t, r.Alive(e2))
}

func TestRegistry_Delete_NullIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Delete(Null)
	assert.Equal(t, 0, r.Count())
}

func TestEntity_IsNull(t *testing.T) {
	assert.True(t, Null.IsNull())
	assert.False(t, Entity(1).IsNull())
}
