// moralogyd is the Moralogy Engine server: it wires the registry backend,
// the sandbox profile, the safelock, and the LLM collaborator, then serves
// the HTTP API until interrupted.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/moralogy-labs/moralogy/pkg/api"
	"github.com/moralogy-labs/moralogy/pkg/audit"
	"github.com/moralogy-labs/moralogy/pkg/config"
	"github.com/moralogy-labs/moralogy/pkg/debate"
	"github.com/moralogy-labs/moralogy/pkg/engine"
	"github.com/moralogy-labs/moralogy/pkg/llm"
	"github.com/moralogy-labs/moralogy/pkg/observability"
	"github.com/moralogy-labs/moralogy/pkg/policy"
	"github.com/moralogy-labs/moralogy/pkg/registry"
	"github.com/moralogy-labs/moralogy/pkg/safelock"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	initLogger(cfg.LogLevel)
	logger := slog.Default().With("component", "moralogyd")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetry, err := observability.New(ctx, &observability.Config{
		ServiceName:    "moralogy",
		ServiceVersion: "1.0.0",
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TelemetryEnabled,
		Insecure:       true,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	reg, cleanup, err := openRegistry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	defer cleanup()

	profile, err := loadProfile(cfg.PolicyProfile)
	if err != nil {
		return fmt.Errorf("load policy profile: %w", err)
	}
	denyRules, err := policy.NewEvaluator(profile.DenyRules)
	if err != nil {
		return fmt.Errorf("compile deny rules: %w", err)
	}

	lock := safelock.New()
	eng := engine.New(reg, lock).
		WithProfile(profile).
		WithDenyRules(denyRules).
		WithAuditLogger(audit.NewLogger())

	srv, err := api.NewServer(eng, debate.New(), reg, lock,
		positionProvider(cfg, logger), telemetry, cfg.RateLimitRPS)
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "port", cfg.Port, "registry", cfg.RegistryBackend)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

func initLogger(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l})))
}

// openRegistry selects the persistence backend. The returned cleanup closes
// any underlying database handle.
func openRegistry(ctx context.Context, cfg *config.Config) (registry.Registry, func(), error) {
	nop := func() {}

	switch cfg.RegistryBackend {
	case "memory":
		return registry.NewMemory(), nop, nil

	case "sqlite":
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			return nil, nop, err
		}
		reg, err := registry.NewSQLite(db)
		if err != nil {
			db.Close()
			return nil, nop, err
		}
		return reg, func() { db.Close() }, nil

	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, nop, errors.New("postgres backend requires DATABASE_URL")
		}
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nop, err
		}
		if err := registry.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nop, err
		}
		reg, err := registry.NewPostgres(db)
		if err != nil {
			db.Close()
			return nil, nop, err
		}
		return reg, func() { db.Close() }, nil

	default:
		return nil, nop, fmt.Errorf("unknown registry backend %q", cfg.RegistryBackend)
	}
}

func loadProfile(path string) (*policy.Profile, error) {
	if path == "" {
		return policy.Default(), nil
	}
	return policy.Load(path)
}

// positionProvider returns the chat-backed provider when a collaborator is
// configured, the static one otherwise.
func positionProvider(cfg *config.Config, logger *slog.Logger) llm.PositionProvider {
	if cfg.LLMServiceURL == "" {
		logger.Info("no LLM collaborator configured; using static positions")
		return llm.StaticPositionProvider{}
	}
	client := llm.NewOpenAIClient(cfg.LLMServiceURL, cfg.LLMAPIKey, cfg.LLMModel)
	return llm.NewChatPositionProvider(client)
}
