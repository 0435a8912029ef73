package query

import (
	"sort"
	"strings"
	"sync"

	"github.com/jbarthelmes/flecs/internal/entity"
)

// Spec is an opaque query specification attached to a system descriptor.
//
// With lists component names a record must have; Without lists component
// names it must not have. The scheduling core forwards the Spec to the
// matching engine unexamined.
type Spec struct {
	With    []string
	Without []string
}

// IsEmpty reports whether the spec matches nothing in particular.
func (s Spec) IsEmpty() bool {
	return len(s.With) == 0 && len(s.Without) == 0
}

// String renders the spec in a stable, human-readable form.
// Terms are sorted so equivalent specs render identically.
func (s Spec) String() string {
	terms := make([]string, 0, len(s.With)+len(s.Without))
	for _, c := range s.With {
		terms = append(terms, c)
	}
	for _, c := range s.Without {
		terms = append(terms, "!"+c)
	}
	sort.Strings(terms)
	return strings.Join(terms, ", ")
}

// Builder assembles a Spec fluently. The zero value is ready to use.
type Builder struct {
	spec Spec
}

// NewBuilder creates an empty query builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// With adds required components to the query.
func (b *Builder) With(components ...string) *Builder {
	b.spec.With = append(b.spec.With, components...)
	return b
}

// Without adds excluded components to the query.
func (b *Builder) Without(components ...string) *Builder {
	b.spec.Without = append(b.spec.Without, components...)
	return b
}

// Build returns the assembled spec.
func (b *Builder) Build() Spec {
	return b.spec
}

// Engine resolves which entities a spec matches. Implemented externally; the
// scheduling core only carries specs across this boundary.
type Engine interface {
	Match(spec Spec) []entity.Entity
}

// Index is a minimal in-memory Engine for tests and demos. It maps entities
// to component-name sets and evaluates With/Without terms literally.
//
// Thread-safety: safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	records map[entity.Entity]map[string]bool
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{records: make(map[entity.Entity]map[string]bool)}
}

// Set records that e has the given components.
func (ix *Index) Set(e entity.Entity, components ...string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	set := ix.records[e]
	if set == nil {
		set = make(map[string]bool)
		ix.records[e] = set
	}
	for _, c := range components {
		set[c] = true
	}
}

// Unset removes components from e, dropping the record when empty.
func (ix *Index) Unset(e entity.Entity, components ...string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	set := ix.records[e]
	for _, c := range components {
		delete(set, c)
	}
	if len(set) == 0 {
		delete(ix.records, e)
	}
}

// Match returns all entities satisfying the spec, in ascending handle order
// for deterministic iteration.
func (ix *Index) Match(spec Spec) []entity.Entity {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []entity.Entity
record:
	for e, set := range ix.records {
		for _, c := range spec.With {
			if !set[c] {
				continue record
			}
		}
		for _, c := range spec.Without {
			if set[c] {
				continue record
			}
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
