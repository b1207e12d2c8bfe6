// Package completion wraps the external completion service behind a small
// client interface: a single chat-completion call with a hard timeout, and a
// billing lookup keyed by generation ID for asynchronous cost reconciliation.
//
// Upstream failures are classified into a fixed taxonomy (rate limited,
// insufficient credit, timeout, generic) instead of surfacing raw provider
// errors to callers.
package completion

import (
	"context"
	"errors"
)

// Sentinel errors for the upstream failure taxonomy. Callers match with
// errors.Is.
var (
	// ErrRateLimited reports a 429 from the completion service itself.
	ErrRateLimited = errors.New("completion service rate limited")
	// ErrInsufficientCredit reports a 402: the account balance is exhausted.
	ErrInsufficientCredit = errors.New("completion service credit exhausted")
	// ErrTimeout reports that the hard per-call deadline elapsed.
	ErrTimeout = errors.New("completion request timed out")
	// ErrCostUnavailable reports that the billing record for a generation has
	// not materialised yet; the lookup may be retried.
	ErrCostUnavailable = errors.New("generation cost not yet available")
)

// Request is a single completion call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// Usage carries the token counts reported synchronously with a completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Result is a normalised completion response.
type Result struct {
	Content      string
	Usage        Usage
	GenerationID string
	Model        string
}

// Client issues completion calls.
type Client interface {
	Complete(ctx context.Context, req Request) (*Result, error)
}

// BillingLookup resolves the authoritative cost of a completed generation.
// Provider-side cost accounting is eventually consistent, so lookups may
// return ErrCostUnavailable for a while after the generation finishes.
type BillingLookup interface {
	Cost(ctx context.Context, generationID string) (float64, error)
}
