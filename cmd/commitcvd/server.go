package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	commitcv "github.com/commitcv/commitcv"
	"github.com/commitcv/commitcv/internal/auth"
	"github.com/commitcv/commitcv/internal/completion"
	"github.com/commitcv/commitcv/internal/logging"
	"github.com/commitcv/commitcv/internal/usage"
	"github.com/commitcv/commitcv/internal/version"
)

func runServe(ctx context.Context) error {
	logging.Setup(logLevel, logFormat)
	log := logging.Logger

	path := cfgPath
	if path == "" {
		path = os.Getenv("COMMITCV_CONFIG")
	}
	cfg := commitcv.DefaultConfig()
	if path != "" {
		loaded, err := commitcv.LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = *loaded
		log.Info("config loaded", "path", path)
	}

	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		cfg.Completion.APIKey = key
	}
	if cfg.Completion.APIKey == "" {
		return fmt.Errorf("no completion API key: set OPENROUTER_API_KEY or completion.api_key")
	}
	if p := os.Getenv("PORT"); p != "" {
		cfg.Listen = ":" + p
	}
	if addrFlag != "" {
		cfg.Listen = addrFlag
	}
	if err := commitcv.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	store, err := buildStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening usage store: %w", err)
	}
	defer func() { _ = store.Close() }()
	log.Info("usage store ready", "driver", cfg.Database.Driver)

	client := completion.NewOpenRouter(
		cfg.Completion.APIKey,
		cfg.Completion.BaseURL,
		cfg.Completion.Model,
		time.Duration(cfg.Completion.TimeoutSeconds)*time.Second,
	)

	// The OpenRouter client doubles as the billing lookup.
	engine, err := commitcv.New(cfg, client, store, client)
	if err != nil {
		return err
	}

	keys := auth.NewKeyStore()
	for _, k := range cfg.Keys {
		keys.Add(auth.Key{Token: k.Token, Name: k.Name, Scopes: k.Scopes})
	}
	if tok := os.Getenv("COMMITCV_ADMIN_TOKEN"); tok != "" {
		keys.Add(auth.Key{Token: tok, Name: "env-admin", Scopes: []string{auth.ScopeAdmin}})
	}
	if keys.Len() == 0 {
		return fmt.Errorf("no API keys configured: set keys in the config file or COMMITCV_ADMIN_TOKEN")
	}

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      newRouter(engine, keys),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Sweep lapsed rate-limit windows so one-off keys do not accumulate.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := engine.PurgeExpired(); n > 0 {
					log.Debug("purged expired rate-limit windows", "count", n)
				}
			}
		}
	}()

	go func() {
		<-ctx.Done()
		log.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown error", "error", err)
		}
	}()

	log.Info("commitcvd listening",
		"addr", cfg.Listen,
		"version", version.Short(),
		"model", cfg.Completion.Model,
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	log.Info("server stopped")
	return nil
}

func buildStore(cfg commitcv.DatabaseConfig) (usage.Store, error) {
	switch cfg.Driver {
	case "postgres":
		return usage.NewPostgresStore(cfg.DSN)
	case "memory":
		return usage.NewMemoryStore(), nil
	default:
		return usage.NewSQLiteStore(cfg.DSN)
	}
}
