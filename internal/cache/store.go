// Package cache implements the in-process store shared by every request
// handler: per-entry TTL, capacity-bounded LRU eviction, and a staleness
// grace window that lets callers serve an expired value while a background
// refresh is in flight.
//
// Keys are namespaced strings of the form "resource:ownerID[:qualifier]"
// (see Key) so that all cached views belonging to one user can be
// invalidated together when a write elsewhere makes them stale.
package cache

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	value        any
	expiresAt    time.Time
	lastAccessed time.Time
}

// Stats is a point-in-time snapshot of store occupancy, for observability.
type Stats struct {
	Size       int `json:"size"`
	MaxEntries int `json:"max_entries"`
}

// Store is a mutex-guarded TTL/LRU cache. A single instance is constructed
// at process start and shared by all handlers; it is safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	entries    map[string]*entry
	maxEntries int
	now        func() time.Time
}

// DefaultMaxEntries bounds the store when no explicit capacity is configured.
const DefaultMaxEntries = 1000

// New creates a Store holding at most maxEntries values.
func New(maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Store{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Key builds a namespaced cache key: "resource:ownerID" plus optional
// qualifier segments.
func Key(resource, ownerID string, qualifiers ...string) string {
	parts := append([]string{resource, ownerID}, qualifiers...)
	return strings.Join(parts, ":")
}

// Get returns the live value for key, or absent when the key was never set
// or its TTL has elapsed. Finding an expired entry removes it. A live read
// refreshes the entry's recency so hot keys survive eviction.
func (s *Store) Get(key string) (any, bool) {
	v, stale, ok := s.GetWithStaleness(key, 0)
	if !ok || stale {
		return nil, false
	}
	return v, true
}

// GetWithStaleness returns the value for key as long as it is within its TTL
// plus the grace window. stale reports whether the TTL has already elapsed;
// such values may be served while the caller revalidates in the background.
// Entries past the grace window are removed and reported absent.
func (s *Store) GetWithStaleness(key string, grace time.Duration) (value any, stale bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, found := s.entries[key]
	if !found {
		return nil, false, false
	}
	now := s.now()
	if now.After(e.expiresAt.Add(grace)) {
		delete(s.entries, key)
		return nil, false, false
	}
	e.lastAccessed = now
	return e.value, now.After(e.expiresAt), true
}

// Set stores value under key with the given TTL. Inserting a new key at
// capacity first evicts the least-recently-accessed entry.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, exists := s.entries[key]; exists {
		e.value = value
		e.expiresAt = now.Add(ttl)
		e.lastAccessed = now
		return
	}
	if len(s.entries) >= s.maxEntries {
		s.evictOldestLocked()
	}
	s.entries[key] = &entry{
		value:        value,
		expiresAt:    now.Add(ttl),
		lastAccessed: now,
	}
}

// evictOldestLocked removes the entry with the oldest lastAccessed.
// Must be called with s.mu held.
func (s *Store) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range s.entries {
		if first || e.lastAccessed.Before(oldest) {
			oldestKey = k
			oldest = e.lastAccessed
			first = false
		}
	}
	if oldestKey != "" {
		delete(s.entries, oldestKey)
	}
}

// Delete removes key from the store. Removing an absent key is a no-op.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// InvalidateByPrefix removes every entry whose key starts with prefix and
// returns the number removed. The removal is synchronous and total.
func (s *Store) InvalidateByPrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// InvalidateUser removes every entry owned by userID, regardless of resource
// namespace, and returns the number removed.
func (s *Store) InvalidateUser(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.entries {
		parts := strings.Split(k, ":")
		if len(parts) >= 2 && parts[1] == userID {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// Stats reports current occupancy. It never mutates the store.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Size: len(s.entries), MaxEntries: s.maxEntries}
}
