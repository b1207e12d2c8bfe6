package usage

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLStoreInsertAndSummarize(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()

	records := []Record{
		{UserID: "u1", Kind: "roles", Model: "m", PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120, CostUSD: 0.001},
		{UserID: "u1", Kind: "summary", Model: "m", PromptTokens: 40, CompletionTokens: 10, TotalTokens: 50, CostUSD: 0},
		{UserID: "u2", Kind: "roles", Model: "m", PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15, CostUSD: 0.002},
	}
	for _, rec := range records {
		if err := store.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	sum, err := store.Summarize(ctx, "u1")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.Requests != 2 {
		t.Errorf("requests = %d, want 2", sum.Requests)
	}
	if sum.TotalTokens != 170 {
		t.Errorf("total tokens = %d, want 170", sum.TotalTokens)
	}
	if sum.CostUSD < 0.0009 || sum.CostUSD > 0.0011 {
		t.Errorf("cost = %v, want 0.001", sum.CostUSD)
	}
}

func TestSQLStoreSummarizeUnknownUser(t *testing.T) {
	store := newTestSQLStore(t)

	sum, err := store.Summarize(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.Requests != 0 || sum.TotalTokens != 0 || sum.CostUSD != 0 {
		t.Errorf("summary = %+v, want zero values", sum)
	}
}

func TestSQLStoreBind(t *testing.T) {
	s := &SQLStore{dialect: dialectPostgres}
	got := s.bind("INSERT INTO t(a, b) VALUES(?, ?)")
	want := "INSERT INTO t(a, b) VALUES($1, $2)"
	if got != want {
		t.Errorf("bind = %q, want %q", got, want)
	}

	s.dialect = dialectSQLite
	if got := s.bind("SELECT ?"); got != "SELECT ?" {
		t.Errorf("sqlite bind should be identity, got %q", got)
	}
}
