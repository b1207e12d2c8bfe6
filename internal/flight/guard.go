// Package flight tracks cache keys with a background refresh in flight so
// that N concurrent stale reads of the same key dispatch exactly one
// upstream refresh; the losers simply serve the stale value.
package flight

import "sync"

// Guard is a concurrency-safe set of in-flight refresh keys.
type Guard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewGuard creates an empty Guard.
func NewGuard() *Guard {
	return &Guard{inflight: make(map[string]struct{})}
}

// TryAcquire marks key as in flight and returns true, unless another caller
// already holds it. The check and insert are atomic.
func (g *Guard) TryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.inflight[key]; held {
		return false
	}
	g.inflight[key] = struct{}{}
	return true
}

// Release clears the in-flight marker for key. Holders must call it on every
// exit path, including cancellation, or the key can never be refreshed again.
func (g *Guard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, key)
}

// Len reports the number of keys currently in flight.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inflight)
}
