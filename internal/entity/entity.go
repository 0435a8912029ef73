package entity

// Entity is an opaque handle identifying a schedulable unit, a phase, or a
// tick source within a world. Phases and systems share the same identity
// space, so either may be the target of a precedence edge.
//
// The zero value is the null entity. Builder operations treat a null target
// as a no-op rather than an error.
type Entity uint64

// Null is the zero entity handle.
const Null Entity = 0

// IsNull reports whether e is the null handle.
func (e Entity) IsNull() bool {
	return e == Null
}
