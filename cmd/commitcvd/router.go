package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	commitcv "github.com/commitcv/commitcv"
	"github.com/commitcv/commitcv/internal/analysis"
	"github.com/commitcv/commitcv/internal/auth"
	"github.com/commitcv/commitcv/internal/logging"
	"github.com/commitcv/commitcv/internal/metrics"
	"github.com/commitcv/commitcv/internal/version"
)

// newRouter builds the HTTP router.
func newRouter(engine *commitcv.Engine, keys *auth.KeyStore) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		stats := engine.CacheStats()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"version": version.Short(),
			"cache": map[string]int{
				"size":        stats.Size,
				"max_entries": stats.MaxEntries,
			},
		})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Middleware(keys))

		r.Post("/analyze/roles", instrument("analyze_roles", handleAnalyze(engine, analysis.ModeCategorize)))
		r.Post("/analyze/summary", instrument("analyze_summary", handleAnalyze(engine, analysis.ModeSummarize)))
		r.Get("/usage/{userID}", instrument("usage", handleUsage(engine)))

		r.With(auth.RequireScope(auth.ScopeAdmin)).
			Delete("/cache/{userID}", instrument("cache_invalidate", handleInvalidate(engine)))
	})

	return r
}

func handleAnalyze(engine *commitcv.Engine, mode analysis.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req commitcv.AnalysisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAPIError(w, commitcv.Error{
				Type:    commitcv.ErrTypeInvalidInput,
				Message: "invalid request body: " + err.Error(),
			})
			return
		}

		resp, err := engine.Analyze(r.Context(), mode, req)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		w.Header().Set("X-Cache", string(resp.Cache))
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleUsage(engine *commitcv.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := engine.UsageSummary(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		w.Header().Set("X-Cache", string(resp.Cache))
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleInvalidate(engine *commitcv.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		var n int
		if resource := r.URL.Query().Get("resource"); resource != "" {
			n = engine.InvalidateResource(resource, userID)
		} else {
			n = engine.InvalidateUser(userID)
		}
		logging.FromContext(r.Context()).Info("cache invalidated", "user_id", userID, "entries", n)
		writeJSON(w, http.StatusOK, map[string]any{"invalidated": n})
	}
}

// instrument records request count and latency per endpoint.
func instrument(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		h(ww, r)

		status := "success"
		switch {
		case ww.Status() == http.StatusTooManyRequests:
			status = "rejected"
		case ww.Status() >= 400:
			status = "error"
		}
		metrics.RequestsTotal.WithLabelValues(endpoint, status).Inc()
		metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

// writeEngineError translates a pipeline error into the JSON error shape.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *commitcv.Error
	if !errors.As(err, &apiErr) {
		logging.FromContext(r.Context()).Error("unclassified handler error", "error", err)
		apiErr = &commitcv.Error{Type: commitcv.ErrTypeInternal, Message: "internal error"}
	}
	if apiErr.HTTPStatus() >= 500 {
		logging.FromContext(r.Context()).Error("request failed", "type", apiErr.Type, "error", err)
	}
	writeAPIError(w, *apiErr)
}

func writeAPIError(w http.ResponseWriter, apiErr commitcv.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": apiErr.Message,
			"type":    string(apiErr.Type),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
