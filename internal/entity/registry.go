package entity

import "sync"

// Registry allocates entity handles and resolves logical names to handles.
//
// Named allocation is create-or-reuse: asking for the same name twice returns
// the same handle. This lets one builder reference another unit by name before
// that unit has registered - the handle exists as soon as anyone names it, and
// registration later attaches a descriptor to it.
//
// Thread-safety: Registry is safe for concurrent use. In practice a world is
// configured from a single goroutine, but name lookups may happen from
// anywhere.
type Registry struct {
	mu    sync.RWMutex
	next  Entity
	names map[string]Entity
	byID  map[Entity]string
	alive map[Entity]bool
}

// NewRegistry creates an empty registry. Handle allocation starts at 1 so
// that the zero value remains the null entity.
func NewRegistry() *Registry {
	return &Registry{
		next:  1,
		names: make(map[string]Entity),
		byID:  make(map[Entity]string),
		alive: make(map[Entity]bool),
	}
}

// New allocates a fresh anonymous entity.
func (r *Registry) New() Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allocLocked("")
}

// Named returns the entity with the given name, allocating it if it does not
// exist yet. An empty name allocates an anonymous entity.
func (r *Registry) Named(name string) Entity {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return r.allocLocked("")
	}
	if e, ok := r.names[name]; ok {
		return e
	}
	return r.allocLocked(name)
}

// Lookup resolves a name to its entity handle.
// Returns Null if no entity carries the name.
func (r *Registry) Lookup(name string) Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names[name]
}

// Name returns the name of an entity, or "" for anonymous entities.
func (r *Registry) Name(e Entity) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[e]
}

// Alive reports whether the handle was allocated by this registry and has not
// been deleted. The null entity is never alive.
func (r *Registry) Alive(e Entity) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.alive[e]
}

// Delete removes an entity from the registry. Deleting the null entity or an
// unknown handle is a no-op.
func (r *Registry) Delete(e Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.alive[e] {
		return
	}
	if name := r.byID[e]; name != "" {
		delete(r.names, name)
	}
	delete(r.byID, e)
	delete(r.alive, e)
}

// Count returns the number of live entities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.alive)
}

func (r *Registry) allocLocked(name string) Entity {
	e := r.next
	r.next++
	r.alive[e] = true
	if name != "" {
		r.names[name] = e
		r.byID[e] = name
	}
	return e
}
