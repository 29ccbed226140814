package registry

import (
	"slices"
	"sync"
)

// Entry is a key/value pair returned by Entries and Drain.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Registry is a thread-safe, insertion-ordered registry for values indexed by key.
type Registry[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
	order   []K
}

// New creates a new empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]V),
	}
}

// Register adds or updates a value. An update keeps the key's original position.
// It reports whether the key was already present.
func (r *Registry[K, V]) Register(key K, value V) (replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, replaced = r.entries[key]; !replaced {
		r.order = append(r.order, key)
	}
	r.entries[key] = value
	return replaced
}

// Insert adds a value only if the key is absent. It reports whether the
// value was stored.
func (r *Registry[K, V]) Insert(key K, value V) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[key]; ok {
		return false
	}
	r.entries[key] = value
	r.order = append(r.order, key)
	return true
}

// Get returns the value for a key and whether it exists.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// Has returns true if the key exists in the registry.
func (r *Registry[K, V]) Has(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[key]
	return ok
}

// Keys returns all keys in insertion order.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Entries returns a snapshot of all entries in insertion order.
func (r *Registry[K, V]) Entries() []Entry[K, V] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// Drain empties the registry and returns what it held, in insertion order.
func (r *Registry[K, V]) Drain() []Entry[K, V] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.snapshotLocked()
	r.entries = make(map[K]V)
	r.order = nil
	return out
}

// Len returns the number of entries in the registry.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Range iterates over a snapshot of the registry in insertion order.
// If fn returns false, iteration stops. Mutating the registry from fn
// does not affect the current iteration.
func (r *Registry[K, V]) Range(fn func(K, V) bool) {
	for _, e := range r.Entries() {
		if !fn(e.Key, e.Value) {
			return
		}
	}
}

func (r *Registry[K, V]) snapshotLocked() []Entry[K, V] {
	out := make([]Entry[K, V], 0, len(r.order))
	for _, k := range r.order {
		out = append(out, Entry[K, V]{Key: k, Value: r.entries[k]})
	}
	return out
}
