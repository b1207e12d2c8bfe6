// Package ratelimit provides a per-key fixed-window request counter guarding
// expensive operations (model calls, writes). Fixed windows are deliberate:
// the guarded operations are coarse, human-triggered actions, so the
// simpler-to-reason-about model is sufficient.
package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// Result reports an admission decision.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter maintains one counting window per key. Safe for concurrent use;
// the window check and increment execute as a single critical section so two
// handlers can never both observe "window just expired" and double-reset.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// New creates an empty Limiter.
func New() *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Check admits or refuses one request for key under a limit of maxRequests
// per windowDur. A refused request does not mutate the window, so repeated
// rejected calls cannot corrupt Remaining.
func (l *Limiter) Check(key string, maxRequests int, windowDur time.Duration) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(windowDur)}
		l.windows[key] = w
		return Result{Allowed: true, Remaining: maxRequests - 1, ResetAt: w.resetAt}
	}

	if w.count >= maxRequests {
		return Result{Allowed: false, Remaining: 0, ResetAt: w.resetAt}
	}
	w.count++
	return Result{Allowed: true, Remaining: maxRequests - w.count, ResetAt: w.resetAt}
}

// Purge drops windows that ended before now, bounding memory across many
// short-lived keys. Callers typically run it on a slow ticker.
func (l *Limiter) Purge() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	for k, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, k)
			n++
		}
	}
	return n
}
