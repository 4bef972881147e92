// Package optimistic applies local edits to a list of records before the
// server confirms them, and reconciles once it answers.
//
// A Store owns the canonical copy of every record. Begin applies an edit
// immediately and remembers the prior value; Settle either adopts the
// server's record or restores the prior value and reports the failure.
package optimistic

import (
	"errors"
	"sync"
)

var (
	// ErrNotFound is returned when the target id is not in the store.
	ErrNotFound = errors.New("optimistic: target not found")
	// ErrInFlight is returned when the target already has an unsettled mutation.
	ErrInFlight = errors.New("optimistic: mutation already in flight")
)

// Mutation is an edit that has been applied locally but not yet settled.
type Mutation[T any] struct {
	ID         string
	Previous   T
	Optimistic T

	generation uint64
}

// Store holds records of type T keyed by id. Every change produces a fresh
// slice, so a slice returned by Items is never modified afterwards.
type Store[T any] struct {
	mu         sync.Mutex
	key        func(T) string
	items      []T
	version    uint64
	generation uint64
	pending    map[string]*Mutation[T]
}

// NewStore returns a store seeded with items.
func NewStore[T any](key func(T) string, items []T) *Store[T] {
	return &Store[T]{
		key:     key,
		items:   clone(items),
		pending: make(map[string]*Mutation[T]),
	}
}

func clone[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}

// Items returns the current records in order.
func (s *Store[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items
}

// Len returns the number of records.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Version increases on every change to the records.
func (s *Store[T]) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Get returns the record with id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		return s.items[i], true
	}
	var zero T
	return zero, false
}

// Pending reports whether id has an unsettled mutation.
func (s *Store[T]) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[id]
	return ok
}

// PendingCount returns the number of unsettled mutations.
func (s *Store[T]) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Replace swaps in a freshly fetched list. Mutations begun before the
// replace still settle, but a failure no longer rolls back because the
// fetched list is newer than their captured snapshot.
func (s *Store[T]) Replace(items []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = clone(items)
	s.generation++
	s.version++
}

// Prepend inserts a server-created record at the front.
func (s *Store[T]) Prepend(item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]T, 0, len(s.items)+1)
	next = append(next, item)
	next = append(next, s.items...)
	s.items = next
	s.version++
}

// Remove drops the record with id. It reports whether one was removed.
func (s *Store[T]) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return false
	}
	next := make([]T, 0, len(s.items)-1)
	next = append(next, s.items[:i]...)
	next = append(next, s.items[i+1:]...)
	s.items = next
	s.version++
	return true
}

// Begin applies mutate to the record with id and returns the pending
// mutation. The store reflects the optimistic value before Begin returns.
func (s *Store[T]) Begin(id string, mutate func(T) T) (*Mutation[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.pending[id]; busy {
		return nil, ErrInFlight
	}
	i := s.index(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	m := &Mutation[T]{
		ID:         id,
		Previous:   s.items[i],
		Optimistic: mutate(s.items[i]),
		generation: s.generation,
	}
	s.set(i, m.Optimistic)
	s.pending[id] = m
	return m, nil
}

// Confirm replaces the target with the server's record and clears the
// mutation. It reports whether the target was still present.
func (s *Store[T]) Confirm(m *Mutation[T], server T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear(m)
	i := s.index(m.ID)
	if i < 0 {
		return false
	}
	s.set(i, server)
	return true
}

// Rollback restores the value captured by Begin and clears the mutation.
// It reports false when nothing was restored, either because the target is
// gone or because the list was replaced since Begin.
func (s *Store[T]) Rollback(m *Mutation[T]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear(m)
	if m.generation != s.generation {
		return false
	}
	i := s.index(m.ID)
	if i < 0 {
		return false
	}
	s.set(i, m.Previous)
	return true
}

func (s *Store[T]) clear(m *Mutation[T]) {
	if s.pending[m.ID] == m {
		delete(s.pending, m.ID)
	}
}

func (s *Store[T]) set(i int, v T) {
	next := clone(s.items)
	next[i] = v
	s.items = next
	s.version++
}

func (s *Store[T]) index(id string) int {
	for i, it := range s.items {
		if s.key(it) == id {
			return i
		}
	}
	return -1
}
