// Package registry provides the in-memory identifier-keyed stores shared by
// every worker. All access goes through atomic operations; callers never see
// the lock or a shared entity.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"contactless-ordering/internal/models"
)

// ErrNotFound is returned when no entity is stored under the requested id.
var ErrNotFound = errors.New("entity not found")

// Entity is a value stored in a registry.
type Entity[V any] interface {
	Key() int
	Clone() V
}

// Registry maps ids to entities and is safe for concurrent use.
type Registry[V Entity[V]] struct {
	mu      sync.RWMutex
	entries map[int]V
}

// New creates a registry pre-populated with the given entities.
func New[V Entity[V]](initial ...V) *Registry[V] {
	r := &Registry[V]{entries: make(map[int]V, len(initial))}
	for _, v := range initial {
		r.entries[v.Key()] = v.Clone()
	}
	return r
}

// Get returns a copy of the entity stored under id.
func (r *Registry[V]) Get(id int) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.entries[id]
	if !ok {
		var zero V
		return zero, false
	}
	return v.Clone(), true
}

// Put inserts or replaces an entity.
func (r *Registry[V]) Put(v V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[v.Key()] = v.Clone()
}

// Len returns the number of stored entities.
func (r *Registry[V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Values returns a consistent snapshot of all entities sorted by id.
func (r *Registry[V]) Values() []V {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot()
}

// NextID returns max id + 1, never below floor.
func (r *Registry[V]) NextID(floor int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextID(floor)
}

// Allocate assigns the next id and inserts the entity built for it in one step.
func (r *Registry[V]) Allocate(floor int, build func(id int) V) V {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := build(r.nextID(floor))
	r.entries[v.Key()] = v.Clone()
	return v.Clone()
}

// CompareAndSwap applies mutate to the entity stored under id only if
// precondition holds for its current value. It returns the stored result.
func (r *Registry[V]) CompareAndSwap(id int, precondition func(V) bool, mutate func(V) V) (V, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero V
	current, ok := r.entries[id]
	if !ok {
		return zero, fmt.Errorf("id %d: %w", id, ErrNotFound)
	}
	if !precondition(current.Clone()) {
		return current.Clone(), fmt.Errorf("id %d: %w", id, models.ErrPreconditionFailed)
	}
	next := mutate(current.Clone())
	if next.Key() != id {
		return zero, fmt.Errorf("id %d: mutation changed key to %d", id, next.Key())
	}
	r.entries[id] = next.Clone()
	return next.Clone(), nil
}

// Upsert stores the value returned by fn, which receives the current value if any.
func (r *Registry[V]) Upsert(id int, fn func(current V, exists bool) V) V {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.entries[id]
	if ok {
		current = current.Clone()
	}
	next := fn(current, ok)
	r.entries[next.Key()] = next.Clone()
	return next.Clone()
}

// Export runs fn on a snapshot while holding the registry exclusively, so no
// mutation can interleave with a snapshot-then-write sequence.
func (r *Registry[V]) Export(fn func(values []V) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.snapshot())
}

func (r *Registry[V]) snapshot() []V {
	values := make([]V, 0, len(r.entries))
	for _, v := range r.entries {
		values = append(values, v.Clone())
	}
	sort.Slice(values, func(i, j int) bool { return values[i].Key() < values[j].Key() })
	return values
}

func (r *Registry[V]) nextID(floor int) int {
	next := floor
	for id := range r.entries {
		if id+1 > next {
			next = id + 1
		}
	}
	return next
}
