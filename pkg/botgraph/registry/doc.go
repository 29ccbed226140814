// Package registry provides a generic thread-safe registry that remembers
// insertion order.
//
// The dispatch engine depends on deterministic ordering: roots are walked in
// registration order and broadcast queries visit nodes in registration order.
// A plain Go map cannot provide that, so Registry pairs a map with a key slice.
//
// # Basic Usage
//
//	r := registry.New[string, int]()
//	r.Register("one", 1)
//	r.Register("two", 2)
//
//	r.Keys() // [one two]
//
// Register on an existing key replaces the value and keeps its position.
// Insert refuses existing keys, which is what name-unique tables want:
//
//	if !r.Insert("one", 10) {
//	    // already registered
//	}
//
// # Draining
//
// Drain atomically empties the registry and returns its entries in order.
// The query broker uses it to take the pending set at the start of a cycle,
// so anything registered while the drained entries are processed waits for
// the next cycle.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Range iterates over a snapshot.
package registry
