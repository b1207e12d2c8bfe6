// Package auth validates bearer service keys on the API surface. Keys are
// configured statically (config file or environment) with a scope; the admin
// scope additionally unlocks cache-invalidation endpoints.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
)

type contextKey string

const keyContextKey contextKey = "service_key"

// Key permission scopes.
const (
	ScopeAdmin     = "admin"
	ScopeReadWrite = "read_write"
)

// Key is one configured service key.
type Key struct {
	Token  string
	Name   string
	Scopes []string
}

// HasScope reports whether the key carries scope. Admin implies every scope.
func (k Key) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope || s == ScopeAdmin {
			return true
		}
	}
	return false
}

// KeyStore holds the configured service keys.
type KeyStore struct {
	mu      sync.RWMutex
	byToken map[string]Key
}

// NewKeyStore creates a store preloaded with keys.
func NewKeyStore(keys ...Key) *KeyStore {
	s := &KeyStore{byToken: make(map[string]Key, len(keys))}
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

// Add registers a key. Keys without scopes default to read_write.
func (s *KeyStore) Add(k Key) {
	if len(k.Scopes) == 0 {
		k.Scopes = []string{ScopeReadWrite}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byToken[k.Token] = k
}

// Validate looks up a bearer token.
func (s *KeyStore) Validate(token string) (Key, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.byToken[token]
	return k, ok
}

// Len reports the number of configured keys.
func (s *KeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byToken)
}

// KeyFromContext retrieves the authenticated key from the request context.
func KeyFromContext(ctx context.Context) (Key, bool) {
	k, ok := ctx.Value(keyContextKey).(Key)
	return k, ok
}

// Middleware returns a chi-compatible middleware that validates bearer keys
// and stores the authenticated key in the request context.
func Middleware(store *KeyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing or invalid authorization header", "authentication_error", "missing_key")
				return
			}
			key, ok := store.Validate(strings.TrimPrefix(header, "Bearer "))
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid service key", "authentication_error", "invalid_key")
				return
			}
			ctx := context.WithValue(r.Context(), keyContextKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope returns a middleware that refuses keys lacking scope.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := KeyFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication required", "authentication_error", "authentication_required")
				return
			}
			if !key.HasScope(scope) {
				writeError(w, http.StatusForbidden, "insufficient permissions", "permission_error", "insufficient_scope")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message, errType, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    errType,
			"code":    code,
		},
	})
}
