// Package cache implements a small process-wide memo cache with per-entry
// TTL and tag-based bulk invalidation. List and facet queries are keyed by
// their serialized input and tagged by table so mutations can drop every
// view that could have changed.
package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	value   any
	expires time.Time
	tags    []string
}

type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	byTag   map[string]map[string]struct{}
	group   singleflight.Group

	now func() time.Time // overridable in tests
}

func New() *Store {
	return &Store{
		entries: make(map[string]entry),
		byTag:   make(map[string]map[string]struct{}),
		now:     time.Now,
	}
}

// GetOrCompute returns the cached value for key when present and fresh,
// otherwise runs fn and stores its result. Concurrent callers for the same
// key coalesce into a single fn call. Errors are never cached.
func (s *Store) GetOrCompute(key string, ttl time.Duration, tags []string, fn func() (any, error)) (any, error) {
	s.mu.Lock()
	if e, ok := s.entries[key]; ok && s.now().Before(e.expires) {
		s.mu.Unlock()
		return e.value, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do(key, func() (any, error) {
		// Re-check under the lock: another flight may have stored it
		// between our miss and this call.
		s.mu.Lock()
		if e, ok := s.entries[key]; ok && s.now().Before(e.expires) {
			s.mu.Unlock()
			return e.value, nil
		}
		s.mu.Unlock()

		value, err := fn()
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.store(key, value, ttl, tags)
		s.mu.Unlock()
		return value, nil
	})
	return v, err
}

// store assumes s.mu is held.
func (s *Store) store(key string, value any, ttl time.Duration, tags []string) {
	if old, ok := s.entries[key]; ok {
		s.untag(key, old.tags)
	}
	s.entries[key] = entry{value: value, expires: s.now().Add(ttl), tags: tags}
	for _, tag := range tags {
		keys, ok := s.byTag[tag]
		if !ok {
			keys = make(map[string]struct{})
			s.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

// untag assumes s.mu is held.
func (s *Store) untag(key string, tags []string) {
	for _, tag := range tags {
		if keys, ok := s.byTag[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(s.byTag, tag)
			}
		}
	}
}

// InvalidateTags drops every entry carrying any of the given tags,
// regardless of key or remaining TTL.
func (s *Store) InvalidateTags(tags ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tag := range tags {
		for key := range s.byTag[tag] {
			if e, ok := s.entries[key]; ok {
				s.untag(key, e.tags)
				delete(s.entries, key)
			}
		}
		delete(s.byTag, tag)
	}
}

// Len reports the number of live entries (expired ones included until
// rewritten); used by tests and the health endpoint.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
