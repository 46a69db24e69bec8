package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	nhhttp "github.com/SCP-015/nusahire/internal/adapter/http"
	obs "github.com/SCP-015/nusahire/internal/adapter/otel"
	"github.com/SCP-015/nusahire/internal/adapter/postgres"
	"github.com/SCP-015/nusahire/internal/config"
	"github.com/SCP-015/nusahire/internal/logger"
	"github.com/SCP-015/nusahire/internal/middleware"
	"github.com/SCP-015/nusahire/internal/service"
)

const (
	rateLimitCleanupInterval = 5 * time.Minute
	rateLimitMaxIdle         = 30 * time.Minute
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
		"proxy_store", cfg.Proxy.Store,
		"cache_l2", cfg.Cache.L2,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---

	shutdownOTel, err := obs.Setup(ctx, cfg.OTel)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()
	metrics, err := obs.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	infra := &infrastructure{cfg: cfg, pool: pool}
	defer infra.Close()

	tenantCache, err := infra.tenantCache(ctx)
	if err != nil {
		return fmt.Errorf("tenant cache: %w", err)
	}
	credentials, err := infra.credentialStore(ctx)
	if err != nil {
		return fmt.Errorf("credential store: %w", err)
	}

	// --- Services ---

	store := postgres.NewStore(pool)
	directory := service.NewCachedDirectory(store, tenantCache, cfg.Cache.L2TTL)
	resolver := service.NewTenantResolver(directory, metrics)

	keys, err := service.LoadKeyPair(cfg.OAuth)
	if err != nil {
		return fmt.Errorf("oauth keys: %w", err)
	}
	minter := service.NewTokenMinter(keys, cfg.OAuth.Issuer, store, store, metrics)
	bridge := service.NewCredentialBridge(credentials, cfg.Proxy.TTL, infra.breaker, metrics)
	authSvc := service.NewAuthService(store, minter, bridge, cfg.OAuth, cfg.Auth)
	permissions := service.NewPermissionEvaluator(store, metrics)

	authSvc.StartTokenCleanup(ctx, cfg.Auth.RevocationCleanup)
	infra.startSweeper(ctx, credentials)

	limiter := middleware.NewRateLimiter(cfg.Auth.LoginRate, cfg.Auth.LoginBurst)
	limiter.StartCleanup(ctx, rateLimitCleanupInterval, rateLimitMaxIdle)

	// --- HTTP ---

	handlers := &nhhttp.Handlers{
		Auth:        authSvc,
		Permissions: permissions,
		Bridge:      bridge,
		Proxy:       cfg.Proxy,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(nhhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(obs.HTTPMiddleware(cfg.OTel.ServiceName))
	r.Use(nhhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(nhhttp.SecurityHeaders)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/health", healthHandler(pool, infra))

	nhhttp.MountRoutes(r, handlers, nhhttp.Deps{
		Resolver: resolver,
		Bridge:   bridge,
		Auth:     authSvc,
		Decider:  permissions,
		Limiter:  limiter,
		Tenancy:  cfg.Tenancy,
		Cookie:   cfg.Proxy.CookieName,
	})

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// healthHandler reports whether the database and the optional NATS and
// Redis connections are reachable.
func healthHandler(pool *pgxpool.Pool, infra *infrastructure) http.HandlerFunc {
	type healthStatus struct {
		Status   string `json:"status"`
		Postgres string `json:"postgres"`
		NATS     string `json:"nats,omitempty"`
		Redis    string `json:"redis,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := healthStatus{Status: "ok", Postgres: "up"}
		if err := pool.Ping(ctx); err != nil {
			status.Status, status.Postgres = "degraded", "down"
		}
		if infra.nats != nil {
			status.NATS = "up"
			if !infra.nats.Healthy() {
				status.Status, status.NATS = "degraded", "down"
			}
		}
		if infra.redis != nil {
			status.Redis = "up"
			if err := infra.redis.Ping(ctx).Err(); err != nil {
				status.Status, status.Redis = "degraded", "down"
			}
		}

		code := http.StatusOK
		if status.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}
