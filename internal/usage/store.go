// Package usage persists per-generation usage records and reconciles their
// cost asynchronously. Token counts are known synchronously and recorded
// immediately; the USD cost is resolved later from the provider's billing
// endpoint and may legitimately remain zero.
package usage

import (
	"context"
	"sync"
	"time"
)

// Record is a single usage row created after a billable pipeline run.
type Record struct {
	UserID           string    `json:"user_id"`
	Kind             string    `json:"kind"` // analysis.Mode that produced it
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	CostUSD          float64   `json:"cost_usd"`
	CreatedAt        time.Time `json:"created_at"`
}

// Summary aggregates one user's usage rows.
type Summary struct {
	UserID      string  `json:"user_id"`
	Requests    int     `json:"requests"`
	TotalTokens int     `json:"total_tokens"`
	CostUSD     float64 `json:"cost_usd"`
}

// Store persists usage records.
type Store interface {
	Insert(ctx context.Context, rec Record) error
	Summarize(ctx context.Context, userID string) (*Summary, error)
	Close() error
}

// MemoryStore keeps records in process memory. Used in tests and for running
// without a database.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Insert appends a record.
func (s *MemoryStore) Insert(_ context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Summarize aggregates the stored records for userID.
func (s *MemoryStore) Summarize(_ context.Context, userID string) (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := &Summary{UserID: userID}
	for _, r := range s.records {
		if r.UserID != userID {
			continue
		}
		sum.Requests++
		sum.TotalTokens += r.TotalTokens
		sum.CostUSD += r.CostUSD
	}
	return sum, nil
}

// Records returns a copy of all stored records.
func (s *MemoryStore) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
