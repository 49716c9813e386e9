// Package cache provides the in-process TTL cache backing report reads.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Store is a fixed-capacity cache with a per-entry TTL. Reads refresh
// recency; when capacity is exceeded the least recently used entry goes
// first. Expired entries are dropped lazily on access and swept in bulk
// by a Janitor.
type Store[T any] struct {
	mu      sync.Mutex
	cap     int
	ttl     time.Duration
	entries map[string]*list.Element
	order   *list.List // front = most recently used
}

type entry[T any] struct {
	key      string
	value    T
	deadline time.Time
}

func New[T any](capacity int, ttl time.Duration) *Store[T] {
	return &Store[T]{
		cap:     capacity,
		ttl:     ttl,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	elem, ok := s.entries[key]
	if !ok {
		return zero, false
	}

	e := elem.Value.(*entry[T])
	if time.Now().After(e.deadline) {
		s.remove(elem)
		return zero, false
	}

	s.order.MoveToFront(elem)
	return e.value, true
}

func (s *Store[T]) Set(key string, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry[T]{key: key, value: value, deadline: time.Now().Add(s.ttl)}

	if elem, ok := s.entries[key]; ok {
		elem.Value = e
		s.order.MoveToFront(elem)
		return
	}

	s.entries[key] = s.order.PushFront(e)
	if s.order.Len() > s.cap {
		if oldest := s.order.Back(); oldest != nil {
			s.remove(oldest)
		}
	}
}

func (s *Store[T]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[key]; ok {
		s.remove(elem)
	}
}

// Sweep drops every expired entry and reports how many were removed.
func (s *Store[T]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for elem := s.order.Front(); elem != nil; {
		next := elem.Next()
		if now.After(elem.Value.(*entry[T]).deadline) {
			s.remove(elem)
			removed++
		}
		elem = next
	}
	return removed
}

func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store[T]) remove(elem *list.Element) {
	delete(s.entries, elem.Value.(*entry[T]).key)
	s.order.Remove(elem)
}
