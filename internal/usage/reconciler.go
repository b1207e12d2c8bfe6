package usage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/commitcv/commitcv/internal/cache"
	"github.com/commitcv/commitcv/internal/completion"
	"github.com/commitcv/commitcv/internal/logging"
	"github.com/commitcv/commitcv/internal/metrics"
)

// DefaultDelays are the waits before each billing lookup attempt: a short
// initial delay because cost accounting is eventually consistent, then a
// longer backoff before the final try.
var DefaultDelays = []time.Duration{1 * time.Second, 5 * time.Second}

// Reconciler resolves generation costs off the request path. It never blocks
// or fails a caller: lookups that exhaust their retries leave the record at
// zero cost with a warning log.
type Reconciler struct {
	billing completion.BillingLookup
	store   Store
	cache   *cache.Store
	delays  []time.Duration
}

// NewReconciler creates a Reconciler. delays may be nil for DefaultDelays;
// its length is the number of lookup attempts per generation.
func NewReconciler(billing completion.BillingLookup, store Store, c *cache.Store, delays []time.Duration) *Reconciler {
	if len(delays) == 0 {
		delays = DefaultDelays
	}
	return &Reconciler{billing: billing, store: store, cache: c, delays: delays}
}

// Reconcile resolves the cost of generationIDs, persists rec with the summed
// result, and invalidates the user's cached usage summary so the next read
// reflects the new record. Designed to run as a detached goroutine with a
// context that survives the originating request (see logging.Detach); no
// cache or limiter lock is held while it waits.
func (r *Reconciler) Reconcile(ctx context.Context, rec Record, generationIDs []string) {
	log := logging.FromContext(ctx).With("user_id", rec.UserID, "kind", rec.Kind)

	var mu sync.Mutex
	total := 0.0
	resolved := 0

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range generationIDs {
		g.Go(func() error {
			cost, ok := r.lookup(gctx, log, id)
			if !ok {
				return nil
			}
			mu.Lock()
			total += cost
			resolved++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // lookups never return errors; failures are logged and skipped

	if resolved == 0 && len(generationIDs) > 0 {
		metrics.CostLookupsUnresolved.Inc()
		log.Warn("cost lookup exhausted retries, recording zero cost",
			"generations", len(generationIDs))
	}
	rec.CostUSD = total
	if total > 0 {
		metrics.GenerationCostUSD.WithLabelValues(rec.Model).Add(total)
	}

	if err := r.store.Insert(ctx, rec); err != nil {
		// Telemetry write only; must never propagate to the caller path.
		log.Error("persist usage record failed", "error", err.Error())
		return
	}
	if r.cache != nil {
		r.cache.Delete(cache.Key("usage", rec.UserID))
	}
	log.Info("usage recorded",
		"total_tokens", rec.TotalTokens,
		"cost_usd", rec.CostUSD,
		"resolved_generations", resolved,
	)
}

// lookup polls the billing endpoint for one generation, waiting the
// configured delay before each attempt.
func (r *Reconciler) lookup(ctx context.Context, log *slog.Logger, generationID string) (float64, bool) {
	for _, delay := range r.delays {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return 0, false
		}
		cost, err := r.billing.Cost(ctx, generationID)
		if err == nil {
			return cost, true
		}
		log.Warn("cost lookup attempt failed",
			"generation_id", generationID,
			"error", err.Error(),
		)
	}
	return 0, false
}
