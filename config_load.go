package commitcv

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads and parses a config file from the given path, overlaying
// it on the defaults. Supported formats: JSON (.json), YAML (.yaml, .yml).
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}

	return &cfg, nil
}

// ValidateConfig validates a Config for correctness.
func ValidateConfig(cfg Config) error {
	if cfg.Completion.Model == "" {
		return fmt.Errorf("completion model is required")
	}
	if cfg.Completion.TimeoutSeconds < 0 {
		return fmt.Errorf("completion timeout must not be negative")
	}

	switch cfg.Database.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("unknown database driver: %q", cfg.Database.Driver)
	}
	if cfg.Database.Driver != "memory" && cfg.Database.DSN == "" {
		return fmt.Errorf("database dsn is required for driver %q", cfg.Database.Driver)
	}

	if cfg.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache max_entries must not be negative")
	}
	for name, p := range cfg.Cache.Resources {
		if p.TTLSeconds <= 0 {
			return fmt.Errorf("cache resource %q requires ttl_seconds > 0", name)
		}
		if p.GraceSeconds < 0 {
			return fmt.Errorf("cache resource %q has negative grace_seconds", name)
		}
	}

	for name, rl := range cfg.RateLimits {
		if rl.MaxRequests <= 0 {
			return fmt.Errorf("rate limit %q requires max_requests > 0", name)
		}
		if rl.WindowMS <= 0 {
			return fmt.Errorf("rate limit %q requires window_ms > 0", name)
		}
	}

	for i, k := range cfg.Keys {
		if k.Token == "" {
			return fmt.Errorf("key %d has an empty token", i)
		}
	}

	for i, ms := range cfg.Reconciler.DelaysMS {
		if ms < 0 {
			return fmt.Errorf("reconciler delay %d is negative", i)
		}
	}

	return nil
}
