package cache

import (
	"fmt"
	"testing"
	"time"
)

// fakeClock returns a Store whose clock is controlled by the returned advance
// function.
func fakeClock(maxEntries int) (*Store, func(d time.Duration)) {
	s := New(maxEntries)
	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return current }
	return s, func(d time.Duration) { current = current.Add(d) }
}

func TestKey(t *testing.T) {
	if got := Key("roles", "u1"); got != "roles:u1" {
		t.Errorf("Key = %q", got)
	}
	if got := Key("repos", "u1", "full"); got != "repos:u1:full" {
		t.Errorf("Key with qualifier = %q", got)
	}
}

func TestTTLExpiry(t *testing.T) {
	s, advance := fakeClock(10)
	s.Set("roles:u1", "payload", 5*time.Second)

	if v, ok := s.Get("roles:u1"); !ok || v != "payload" {
		t.Fatalf("expected fresh hit, got %v %v", v, ok)
	}

	advance(6 * time.Second)
	if _, ok := s.Get("roles:u1"); ok {
		t.Error("expected absent after TTL")
	}
	// The expired entry must have been physically removed.
	if st := s.Stats(); st.Size != 0 {
		t.Errorf("expected size 0 after expired read, got %d", st.Size)
	}
}

func TestGraceWindowStaleness(t *testing.T) {
	s, advance := fakeClock(10)
	s.Set("roles:u1", "payload", 1*time.Second)

	// Within TTL: fresh.
	v, stale, ok := s.GetWithStaleness("roles:u1", 5*time.Second)
	if !ok || stale || v != "payload" {
		t.Fatalf("expected fresh hit, got v=%v stale=%v ok=%v", v, stale, ok)
	}

	// Past TTL but within grace: stale hit.
	advance(2 * time.Second)
	v, stale, ok = s.GetWithStaleness("roles:u1", 5*time.Second)
	if !ok || !stale || v != "payload" {
		t.Fatalf("expected stale hit, got v=%v stale=%v ok=%v", v, stale, ok)
	}

	// Past grace: absent and purged.
	advance(5 * time.Second)
	if _, _, ok := s.GetWithStaleness("roles:u1", 5*time.Second); ok {
		t.Error("expected absent past grace window")
	}
	if st := s.Stats(); st.Size != 0 {
		t.Errorf("expected size 0 after purge, got %d", st.Size)
	}
}

func TestLRUEviction(t *testing.T) {
	s, advance := fakeClock(3)
	s.Set("roles:a", 1, time.Minute)
	advance(time.Second)
	s.Set("roles:b", 2, time.Minute)
	advance(time.Second)
	s.Set("roles:c", 3, time.Minute)
	advance(time.Second)

	// Touch "a" so it is hotter than "b" and "c".
	if _, ok := s.Get("roles:a"); !ok {
		t.Fatal("expected hit on roles:a")
	}
	advance(time.Second)

	// Inserting a fourth key evicts the least-recently-accessed entry: "b".
	s.Set("roles:d", 4, time.Minute)

	if _, ok := s.Get("roles:a"); !ok {
		t.Error("recently accessed roles:a should survive eviction")
	}
	if _, ok := s.Get("roles:b"); ok {
		t.Error("roles:b should have been evicted")
	}
	if _, ok := s.Get("roles:d"); !ok {
		t.Error("newly inserted roles:d should be present")
	}
	if st := s.Stats(); st.Size != 3 {
		t.Errorf("size = %d, want 3", st.Size)
	}
}

func TestSetExistingKeyAtCapacityDoesNotEvict(t *testing.T) {
	s, _ := fakeClock(2)
	s.Set("roles:a", 1, time.Minute)
	s.Set("roles:b", 2, time.Minute)
	s.Set("roles:a", 10, time.Minute)

	if v, _ := s.Get("roles:a"); v != 10 {
		t.Errorf("roles:a = %v, want 10", v)
	}
	if _, ok := s.Get("roles:b"); !ok {
		t.Error("overwrite of an existing key must not evict others")
	}
}

func TestInvalidateByPrefix(t *testing.T) {
	s, _ := fakeClock(10)
	s.Set("roles:u1", 1, time.Minute)
	s.Set("roles:u2", 2, time.Minute)
	s.Set("usage:u1", 3, time.Minute)

	if n := s.InvalidateByPrefix("roles:"); n != 2 {
		t.Errorf("invalidated %d, want 2", n)
	}
	if _, ok := s.Get("usage:u1"); !ok {
		t.Error("usage:u1 should survive prefix invalidation")
	}
}

func TestInvalidateUser(t *testing.T) {
	s, _ := fakeClock(10)
	s.Set("roles:u1", 1, time.Minute)
	s.Set("summary:u1", 2, time.Minute)
	s.Set("usage:u1:month", 3, time.Minute)
	s.Set("roles:u2", 4, time.Minute)

	if n := s.InvalidateUser("u1"); n != 3 {
		t.Errorf("invalidated %d, want 3", n)
	}
	if _, ok := s.Get("roles:u2"); !ok {
		t.Error("other users' entries should survive")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New(50)
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 200; j++ {
				key := Key("roles", fmt.Sprintf("u%d", j%20))
				s.Set(key, n, time.Minute)
				s.Get(key)
				s.GetWithStaleness(key, time.Second)
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	if st := s.Stats(); st.Size > st.MaxEntries {
		t.Errorf("size %d exceeds capacity %d", st.Size, st.MaxEntries)
	}
}
