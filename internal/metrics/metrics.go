// Package metrics registers the Prometheus metrics used by the service.
// Import this package (via blank import) from the server entry point to
// register all metrics before the /metrics handler is mounted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts completed API requests labelled by endpoint and
	// outcome ("success", "error", "rejected").
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commitcv_requests_total",
			Help: "Total number of API requests processed.",
		},
		[]string{"endpoint", "status"},
	)

	// RequestDuration observes end-to-end request latency in seconds.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "commitcv_request_duration_seconds",
			Help:    "End-to-end request duration in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 120},
		},
		[]string{"endpoint"},
	)

	// CacheEvents counts cache outcomes per resource namespace
	// ("hit", "stale", "miss", "invalidate").
	CacheEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commitcv_cache_events_total",
			Help: "Cache lookup outcomes by resource.",
		},
		[]string{"resource", "event"},
	)

	// RateLimitRejections counts requests refused by admission control.
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commitcv_rate_limit_rejections_total",
			Help: "Total requests rejected by rate limiting.",
		},
		[]string{"endpoint"},
	)

	// TokensInput counts prompt tokens sent to the completion service.
	TokensInput = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commitcv_tokens_input_total",
			Help: "Total prompt tokens sent to the completion service.",
		},
		[]string{"model"},
	)

	// TokensOutput counts completion tokens received.
	TokensOutput = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commitcv_tokens_output_total",
			Help: "Total completion tokens received from the completion service.",
		},
		[]string{"model"},
	)

	// GenerationCostUSD accumulates reconciled generation cost.
	GenerationCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commitcv_generation_cost_usd_total",
			Help: "Reconciled generation cost in USD.",
		},
		[]string{"model"},
	)

	// CostLookupsUnresolved counts reconciliation runs that exhausted their
	// retries and recorded a zero cost.
	CostLookupsUnresolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "commitcv_cost_lookups_unresolved_total",
			Help: "Cost reconciliations that gave up and recorded zero cost.",
		},
	)

	// HallucinatedRefs counts project references filtered from model output.
	HallucinatedRefs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "commitcv_hallucinated_refs_total",
			Help: "Model-invented project references removed from responses.",
		},
	)

	// UpstreamErrors counts completion-service failures by type
	// ("rate_limited", "insufficient_credit", "timeout", "circuit_open", "other").
	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commitcv_upstream_errors_total",
			Help: "Completion service errors by type.",
		},
		[]string{"error_type"},
	)
)
