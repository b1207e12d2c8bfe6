// Package commitcv orchestrates AI-assisted résumé analysis of source-control
// projects: prompt construction, completion calls, output validation,
// caching, rate limiting, and usage accounting.
package commitcv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/commitcv/commitcv/internal/analysis"
	"github.com/commitcv/commitcv/internal/breaker"
	"github.com/commitcv/commitcv/internal/cache"
	"github.com/commitcv/commitcv/internal/completion"
	"github.com/commitcv/commitcv/internal/flight"
	"github.com/commitcv/commitcv/internal/logging"
	"github.com/commitcv/commitcv/internal/metrics"
	"github.com/commitcv/commitcv/internal/ratelimit"
	"github.com/commitcv/commitcv/internal/usage"
)

// CacheState reports how a response was produced.
type CacheState string

const (
	CacheHit   CacheState = "HIT"
	CacheStale CacheState = "STALE"
	CacheMiss  CacheState = "MISS"
)

// AnalysisRequest is the caller's input to an analysis run.
type AnalysisRequest struct {
	Profile  analysis.Profile   `json:"profile"`
	Projects []analysis.Project `json:"projects"`
	// Refresh forces a fresh generation, bypassing the cache read.
	Refresh bool `json:"refresh,omitempty"`
}

// AnalysisResponse pairs the analysis result with its cache provenance.
type AnalysisResponse struct {
	Result *analysis.Result `json:"result"`
	Cache  CacheState       `json:"-"`
}

// UsageResponse pairs a usage summary with its cache provenance.
type UsageResponse struct {
	Summary *usage.Summary `json:"summary"`
	Cache   CacheState     `json:"-"`
}

// Engine runs the analysis pipeline. It is safe for concurrent use.
type Engine struct {
	cfg     Config
	cache   *cache.Store
	limiter *ratelimit.Limiter
	flights *flight.Guard
	client  completion.Client
	brk     *breaker.Breaker
	usage   usage.Store
	recon   *usage.Reconciler
}

// New builds an Engine from a validated config. usageStore may be nil, in
// which case records are kept in memory. billing may be nil to disable cost
// reconciliation.
func New(cfg Config, client completion.Client, usageStore usage.Store, billing completion.BillingLookup) (*Engine, error) {
	if client == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if usageStore == nil {
		usageStore = usage.NewMemoryStore()
	}

	c := cache.New(cfg.Cache.MaxEntries)
	e := &Engine{
		cfg:     cfg,
		cache:   c,
		limiter: ratelimit.New(),
		flights: flight.NewGuard(),
		client:  client,
		brk: breaker.New(cfg.Breaker.FailureThreshold,
			time.Duration(cfg.Breaker.CooldownSeconds)*time.Second),
		usage: usageStore,
	}
	if billing != nil {
		e.recon = usage.NewReconciler(billing, usageStore, c, cfg.Reconciler.Delays())
	}
	return e, nil
}

// Analyze runs the full pipeline for one user: admission, cache lookup with
// stale-while-revalidate, generation, validation, and asynchronous usage
// persistence. The returned CacheState tells the caller whether the result
// was served fresh, stale, or generated on this call.
func (e *Engine) Analyze(ctx context.Context, mode analysis.Mode, req AnalysisRequest) (*AnalysisResponse, error) {
	log := logging.FromContext(ctx)

	if req.Profile.UserID == "" {
		return nil, newError(ErrTypeInvalidInput, "profile.user_id is required", nil)
	}
	if mode != analysis.ModeCategorize && mode != analysis.ModeSummarize {
		return nil, newError(ErrTypeInvalidInput, fmt.Sprintf("unknown analysis mode %q", mode), nil)
	}
	if mode == analysis.ModeCategorize && len(req.Projects) == 0 {
		return nil, newError(ErrTypeInvalidInput, "at least one project is required", nil)
	}

	if rl, ok := e.cfg.RateLimits["analyze"]; ok {
		res := e.limiter.Check("analyze:"+req.Profile.UserID, rl.MaxRequests, rl.Window())
		if !res.Allowed {
			metrics.RateLimitRejections.WithLabelValues("analyze").Inc()
			return nil, newError(ErrTypeRateLimited,
				fmt.Sprintf("rate limit exceeded, retry after %s", res.ResetAt.UTC().Format(time.RFC3339)), nil)
		}
	}

	resource := string(mode)
	key := cache.Key(resource, req.Profile.UserID)
	policy := e.cfg.Cache.Policy(resource)

	if !req.Refresh {
		if v, stale, ok := e.cache.GetWithStaleness(key, policy.Grace()); ok {
			result := v.(*analysis.Result)
			if !stale {
				metrics.CacheEvents.WithLabelValues(resource, "hit").Inc()
				return &AnalysisResponse{Result: result, Cache: CacheHit}, nil
			}
			metrics.CacheEvents.WithLabelValues(resource, "stale").Inc()
			if e.flights.TryAcquire(key) {
				go e.refresh(logging.Detach(ctx), mode, req, key, policy)
			}
			return &AnalysisResponse{Result: result, Cache: CacheStale}, nil
		}
	}

	metrics.CacheEvents.WithLabelValues(resource, "miss").Inc()
	result, err := e.generate(ctx, mode, req)
	if err != nil {
		return nil, err
	}
	e.cache.Set(key, result, policy.TTL())
	log.Info("analysis generated", "mode", mode, "user_id", req.Profile.UserID, "roles", len(result.Roles))
	return &AnalysisResponse{Result: result, Cache: CacheMiss}, nil
}

// refresh regenerates a stale entry in the background. The single-flight
// slot is held until the attempt finishes; on failure the stale entry stays
// and a later request retries.
func (e *Engine) refresh(ctx context.Context, mode analysis.Mode, req AnalysisRequest, key string, policy ResourcePolicy) {
	defer e.flights.Release(key)
	log := logging.FromContext(ctx)

	result, err := e.generate(ctx, mode, req)
	if err != nil {
		log.Warn("background refresh failed", "key", key, "error", err)
		return
	}
	e.cache.Set(key, result, policy.TTL())
	log.Debug("background refresh completed", "key", key)
}

// generate performs one sanitize-prompt-complete-validate pass.
func (e *Engine) generate(ctx context.Context, mode analysis.Mode, req AnalysisRequest) (*analysis.Result, error) {
	log := logging.FromContext(ctx)

	system, user, droppedLines := analysis.BuildPrompts(mode, req.Profile, req.Projects)
	if droppedLines > 0 {
		log.Warn("sanitizer dropped suspicious input lines",
			"user_id", req.Profile.UserID, "lines", droppedLines)
	}

	if !e.brk.Allow() {
		metrics.UpstreamErrors.WithLabelValues("circuit_open").Inc()
		return nil, newError(ErrTypeUpstream, "completion service temporarily unavailable", breaker.ErrOpen)
	}

	res, err := e.client.Complete(ctx, completion.Request{
		SystemPrompt: system,
		UserPrompt:   user,
		MaxTokens:    e.cfg.Completion.MaxTokens,
		Temperature:  e.cfg.Completion.Temperature,
	})
	if err != nil {
		e.brk.RecordFailure()
		return nil, classifyUpstream(err)
	}
	e.brk.RecordSuccess()

	metrics.TokensInput.WithLabelValues(res.Model).Add(float64(res.Usage.PromptTokens))
	metrics.TokensOutput.WithLabelValues(res.Model).Add(float64(res.Usage.CompletionTokens))

	// Tokens are billed even when the output turns out unusable, so usage is
	// recorded before validation.
	e.persistUsage(ctx, mode, req.Profile.UserID, res)

	parsed, err := analysis.Parse(res.Content, mode)
	if err != nil {
		log.Error("model output rejected", "mode", mode, "error", err, "raw", truncate(res.Content, 2000))
		return nil, newError(ErrTypeValidation, "model returned an unusable response", err)
	}

	if mode == analysis.ModeCategorize {
		kept, droppedRefs := analysis.FilterRoles(parsed.Roles, req.Projects)
		if len(droppedRefs) > 0 {
			metrics.HallucinatedRefs.Add(float64(len(droppedRefs)))
			log.Warn("dropped hallucinated project references",
				"user_id", req.Profile.UserID, "refs", droppedRefs)
		}
		parsed.Roles = kept
	}

	return parsed, nil
}

// persistUsage records token usage and schedules cost reconciliation without
// blocking the response path.
func (e *Engine) persistUsage(ctx context.Context, mode analysis.Mode, userID string, res *completion.Result) {
	rec := usage.Record{
		UserID:           userID,
		Kind:             string(mode),
		Model:            res.Model,
		PromptTokens:     res.Usage.PromptTokens,
		CompletionTokens: res.Usage.CompletionTokens,
		TotalTokens:      res.Usage.TotalTokens,
		CreatedAt:        time.Now().UTC(),
	}

	if e.recon != nil {
		var ids []string
		if res.GenerationID != "" {
			ids = []string{res.GenerationID}
		}
		go e.recon.Reconcile(logging.Detach(ctx), rec, ids)
		return
	}

	bg := logging.Detach(ctx)
	go func() {
		if err := e.usage.Insert(bg, rec); err != nil {
			logging.FromContext(bg).Error("persisting usage record", "user_id", userID, "error", err)
		}
		e.cache.Delete(cache.Key("usage", userID))
	}()
}

// UsageSummary returns aggregate token and cost usage for a user, cached
// under the usage policy.
func (e *Engine) UsageSummary(ctx context.Context, userID string) (*UsageResponse, error) {
	if userID == "" {
		return nil, newError(ErrTypeInvalidInput, "user id is required", nil)
	}

	if rl, ok := e.cfg.RateLimits["usage"]; ok {
		res := e.limiter.Check("usage:"+userID, rl.MaxRequests, rl.Window())
		if !res.Allowed {
			metrics.RateLimitRejections.WithLabelValues("usage").Inc()
			return nil, newError(ErrTypeRateLimited,
				fmt.Sprintf("rate limit exceeded, retry after %s", res.ResetAt.UTC().Format(time.RFC3339)), nil)
		}
	}

	key := cache.Key("usage", userID)
	if v, ok := e.cache.Get(key); ok {
		metrics.CacheEvents.WithLabelValues("usage", "hit").Inc()
		return &UsageResponse{Summary: v.(*usage.Summary), Cache: CacheHit}, nil
	}
	metrics.CacheEvents.WithLabelValues("usage", "miss").Inc()

	sum, err := e.usage.Summarize(ctx, userID)
	if err != nil {
		return nil, newError(ErrTypeInternal, "usage lookup failed", err)
	}
	e.cache.Set(key, sum, e.cfg.Cache.Policy("usage").TTL())
	return &UsageResponse{Summary: sum, Cache: CacheMiss}, nil
}

// InvalidateUser drops every cached entry belonging to a user and returns
// the number of entries removed.
func (e *Engine) InvalidateUser(userID string) int {
	n := e.cache.InvalidateUser(userID)
	if n > 0 {
		metrics.CacheEvents.WithLabelValues("all", "invalidate").Add(float64(n))
	}
	return n
}

// InvalidateResource drops a user's cached entries for one resource
// namespace ("roles", "summary", "usage") and returns the number removed.
func (e *Engine) InvalidateResource(resource, userID string) int {
	n := e.cache.InvalidateByPrefix(cache.Key(resource, userID))
	if n > 0 {
		metrics.CacheEvents.WithLabelValues(resource, "invalidate").Add(float64(n))
	}
	return n
}

// CacheStats exposes cache occupancy for the health endpoint.
func (e *Engine) CacheStats() cache.Stats { return e.cache.Stats() }

// PurgeExpired drops rate-limit windows that have lapsed. Run periodically so
// one-off keys do not accumulate.
func (e *Engine) PurgeExpired() int { return e.limiter.Purge() }

// classifyUpstream maps a completion-client error onto the API error
// taxonomy and records the upstream error metric.
func classifyUpstream(err error) *Error {
	switch {
	case errors.Is(err, completion.ErrRateLimited):
		metrics.UpstreamErrors.WithLabelValues("rate_limited").Inc()
		return newError(ErrTypeUpstreamRateLimited, "completion service is rate limited, try again shortly", err)
	case errors.Is(err, completion.ErrInsufficientCredit):
		metrics.UpstreamErrors.WithLabelValues("insufficient_credit").Inc()
		return newError(ErrTypeInsufficientCredit, "completion account has insufficient credit", err)
	case errors.Is(err, completion.ErrTimeout):
		metrics.UpstreamErrors.WithLabelValues("timeout").Inc()
		return newError(ErrTypeTimeout, "completion request timed out", err)
	default:
		metrics.UpstreamErrors.WithLabelValues("other").Inc()
		return newError(ErrTypeUpstream, "completion request failed", err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
