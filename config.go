package commitcv

import "time"

// Config holds the configuration for the commitcv analysis service.
type Config struct {
	// Listen is the address the HTTP server binds to.
	Listen string `json:"listen" yaml:"listen"`
	// Completion configures the upstream completion service.
	Completion CompletionConfig `json:"completion" yaml:"completion"`
	// Cache configures the in-memory result cache.
	Cache CacheConfig `json:"cache" yaml:"cache"`
	// RateLimits maps an endpoint group ("analyze", "usage") to its policy.
	RateLimits map[string]RateLimitConfig `json:"rate_limits,omitempty" yaml:"rate_limits,omitempty"`
	// Database configures the usage record store.
	Database DatabaseConfig `json:"database" yaml:"database"`
	// Keys lists the API keys accepted by the server.
	Keys []KeyConfig `json:"keys,omitempty" yaml:"keys,omitempty"`
	// Reconciler configures billing lookup retries.
	Reconciler ReconcilerConfig `json:"reconciler,omitempty" yaml:"reconciler,omitempty"`
	// Breaker configures the upstream circuit breaker.
	Breaker BreakerConfig `json:"breaker,omitempty" yaml:"breaker,omitempty"`
}

// CompletionConfig configures the completion client.
type CompletionConfig struct {
	// APIKey authenticates against the completion service. Usually supplied
	// via the OPENROUTER_API_KEY environment variable rather than the file.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	// BaseURL overrides the completion endpoint (defaults to OpenRouter).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// Model is the model identifier sent with every request.
	Model string `json:"model" yaml:"model"`
	// MaxTokens caps the completion length.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	// Temperature is the sampling temperature.
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	// TimeoutSeconds is the hard deadline for a single completion call.
	TimeoutSeconds int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

// ResourcePolicy sets freshness windows for one cached resource.
type ResourcePolicy struct {
	TTLSeconds   int `json:"ttl_seconds" yaml:"ttl_seconds"`
	GraceSeconds int `json:"grace_seconds" yaml:"grace_seconds"`
}

// TTL returns the policy TTL as a duration.
func (p ResourcePolicy) TTL() time.Duration { return time.Duration(p.TTLSeconds) * time.Second }

// Grace returns the stale-serving window as a duration.
func (p ResourcePolicy) Grace() time.Duration { return time.Duration(p.GraceSeconds) * time.Second }

// CacheConfig configures the shared result cache.
type CacheConfig struct {
	// MaxEntries bounds the cache size across all resources.
	MaxEntries int `json:"max_entries,omitempty" yaml:"max_entries,omitempty"`
	// Resources maps a resource name ("roles", "summary", "usage") to its
	// freshness policy. Unlisted resources use the defaults.
	Resources map[string]ResourcePolicy `json:"resources,omitempty" yaml:"resources,omitempty"`
}

// Policy returns the freshness policy for a resource, falling back to the
// defaults when the resource is not configured.
func (c CacheConfig) Policy(resource string) ResourcePolicy {
	if p, ok := c.Resources[resource]; ok && p.TTLSeconds > 0 {
		return p
	}
	if p, ok := defaultResourcePolicies[resource]; ok {
		return p
	}
	return defaultResourcePolicies["roles"]
}

// RateLimitConfig defines a fixed-window admission policy.
type RateLimitConfig struct {
	MaxRequests int `json:"max_requests" yaml:"max_requests"`
	WindowMS    int `json:"window_ms" yaml:"window_ms"`
}

// Window returns the limit window as a duration.
func (c RateLimitConfig) Window() time.Duration { return time.Duration(c.WindowMS) * time.Millisecond }

// DatabaseConfig configures the usage store backend.
type DatabaseConfig struct {
	// Driver selects the backend: "sqlite", "postgres", or "memory".
	Driver string `json:"driver" yaml:"driver"`
	// DSN is the connection string (a file path for sqlite).
	DSN string `json:"dsn" yaml:"dsn"`
}

// KeyConfig declares an API key accepted by the server.
type KeyConfig struct {
	Token  string   `json:"token" yaml:"token"`
	Name   string   `json:"name" yaml:"name"`
	Scopes []string `json:"scopes,omitempty" yaml:"scopes,omitempty"`
}

// ReconcilerConfig configures billing cost lookups.
type ReconcilerConfig struct {
	// DelaysMS lists the wait before each lookup attempt. Its length is the
	// attempt count.
	DelaysMS []int `json:"delays_ms,omitempty" yaml:"delays_ms,omitempty"`
}

// Delays converts the configured delays to durations, nil when unset.
func (c ReconcilerConfig) Delays() []time.Duration {
	if len(c.DelaysMS) == 0 {
		return nil
	}
	out := make([]time.Duration, len(c.DelaysMS))
	for i, ms := range c.DelaysMS {
		out[i] = time.Duration(ms) * time.Millisecond
	}
	return out
}

// BreakerConfig configures the upstream circuit breaker.
type BreakerConfig struct {
	FailureThreshold int `json:"failure_threshold,omitempty" yaml:"failure_threshold,omitempty"`
	CooldownSeconds  int `json:"cooldown_seconds,omitempty" yaml:"cooldown_seconds,omitempty"`
}

var defaultResourcePolicies = map[string]ResourcePolicy{
	"roles":   {TTLSeconds: 3600, GraceSeconds: 600},
	"summary": {TTLSeconds: 3600, GraceSeconds: 600},
	"usage":   {TTLSeconds: 300, GraceSeconds: 60},
}

// DefaultConfig returns a Config with production defaults applied.
func DefaultConfig() Config {
	return Config{
		Listen: ":8080",
		Completion: CompletionConfig{
			Model:          "openai/gpt-4o-mini",
			MaxTokens:      2048,
			Temperature:    0.7,
			TimeoutSeconds: 120,
		},
		Cache: CacheConfig{
			MaxEntries: 1000,
			Resources: map[string]ResourcePolicy{
				"roles":   defaultResourcePolicies["roles"],
				"summary": defaultResourcePolicies["summary"],
				"usage":   defaultResourcePolicies["usage"],
			},
		},
		RateLimits: map[string]RateLimitConfig{
			"analyze": {MaxRequests: 10, WindowMS: 600_000},
			"usage":   {MaxRequests: 60, WindowMS: 60_000},
		},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "commitcv-usage.db"},
		Breaker:  BreakerConfig{FailureThreshold: 5, CooldownSeconds: 30},
	}
}
