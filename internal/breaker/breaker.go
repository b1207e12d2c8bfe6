// Package breaker implements a circuit breaker for the completion service.
// Repeated upstream failures open the circuit so the service stops burning
// request budget (and credit) on a provider that is down.
//
// State transitions:
//
//	Closed   → Open     when consecutive failures ≥ failure threshold
//	Open     → HalfOpen after the cooldown elapses
//	HalfOpen → Closed   on a successful probe
//	HalfOpen → Open     on a failed probe
package breaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by callers when a call is refused because the circuit
// is open.
var ErrOpen = errors.New("completion circuit open")

// State represents the breaker's current state.
type State int

const (
	// StateClosed — normal operation; calls pass through.
	StateClosed State = iota
	// StateOpen — upstream considered failing; calls are refused immediately.
	StateOpen
	// StateHalfOpen — cooldown elapsed; the next call probes recovery.
	StateHalfOpen
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker guards the single completion upstream.
type Breaker struct {
	mu               sync.Mutex
	state            State
	failures         int
	failureThreshold int
	cooldown         time.Duration
	openUntil        time.Time
	now              func() time.Time
}

// New creates a Breaker that opens after failureThreshold consecutive
// failures and probes again after cooldown. Zero/negative arguments fall
// back to 5 failures and a 30s cooldown.
func New(failureThreshold int, cooldown time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		now:              time.Now,
	}
}

// resolveState must be called with b.mu held.
func (b *Breaker) resolveState() State {
	if b.state == StateOpen && b.now().After(b.openUntil) {
		b.state = StateHalfOpen
	}
	return b.state
}

// State returns the current state, transitioning Open→HalfOpen if the
// cooldown has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resolveState()
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resolveState() != StateOpen
}

// RecordSuccess notifies the breaker that a call succeeded.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
}

// RecordFailure notifies the breaker that a call failed.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.resolveState() {
	case StateHalfOpen:
		b.state = StateOpen
		b.openUntil = b.now().Add(b.cooldown)
	case StateClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.state = StateOpen
			b.openUntil = b.now().Add(b.cooldown)
		}
	}
}
