package state

import (
	"slices"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	blob      string
	updatedAt time.Time
}

// MemoryStore keeps state in memory. It is suitable for tests and for bots
// that don't need state to survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Save implements Store.
func (s *MemoryStore) Save(name, blob string) error {
	if err := validateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.entries[name] = memoryEntry{blob: blob, updatedAt: time.Now()}
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load(name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", ErrStoreClosed
	}
	e, ok := s.entries[name]
	if !ok {
		return "", ErrNotFound
	}
	return e.blob, nil
}

// List implements Store.
func (s *MemoryStore) List() ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	infos := make([]Info, 0, len(s.entries))
	for name, e := range s.entries {
		infos = append(infos, Info{Name: name, UpdatedAt: e.updatedAt, Size: int64(len(e.blob))})
	}
	slices.SortFunc(infos, func(a, b Info) int { return strings.Compare(a.Name, b.Name) })
	return infos, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	delete(s.entries, name)
	return nil
}

// Close implements Store. Other methods return ErrStoreClosed afterwards.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
