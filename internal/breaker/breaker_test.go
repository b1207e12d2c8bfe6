package breaker

import (
	"testing"
	"time"
)

func fakeClock(threshold int, cooldown time.Duration) (*Breaker, func(d time.Duration)) {
	b := New(threshold, cooldown)
	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return current }
	return b, func(d time.Duration) { current = current.Add(d) }
}

func TestOpensAfterThreshold(t *testing.T) {
	b, _ := fakeClock(3, time.Minute)

	for i := 0; i < 2; i++ {
		b.RecordFailure()
		if !b.Allow() {
			t.Fatalf("breaker opened after %d failures, threshold is 3", i+1)
		}
	}
	b.RecordFailure()
	if b.Allow() {
		t.Error("breaker should be open after 3 consecutive failures")
	}
	if b.State() != StateOpen {
		t.Errorf("state = %v, want open", b.State())
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b, _ := fakeClock(3, time.Minute)
	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	if !b.Allow() {
		t.Error("success should reset the consecutive-failure count")
	}
}

func TestHalfOpenProbe(t *testing.T) {
	b, advance := fakeClock(1, time.Minute)
	b.RecordFailure()
	if b.Allow() {
		t.Fatal("expected open circuit")
	}

	advance(61 * time.Second)
	if !b.Allow() {
		t.Fatal("cooldown elapsed, probe should be allowed")
	}
	if b.State() != StateHalfOpen {
		t.Errorf("state = %v, want half_open", b.State())
	}

	// Failed probe re-opens.
	b.RecordFailure()
	if b.Allow() {
		t.Error("failed probe should re-open the circuit")
	}

	// Successful probe closes.
	advance(61 * time.Second)
	b.RecordSuccess()
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed after successful probe", b.State())
	}
}
