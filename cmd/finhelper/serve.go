package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/config"
	"github.com/yosef2222/FinanceTracker/internal/domain"
	"github.com/yosef2222/FinanceTracker/internal/handler"
	"github.com/yosef2222/FinanceTracker/internal/infra/cache"
	"github.com/yosef2222/FinanceTracker/internal/infra/inference"
	"github.com/yosef2222/FinanceTracker/internal/infra/memory"
	"github.com/yosef2222/FinanceTracker/internal/infra/observability"
	"github.com/yosef2222/FinanceTracker/internal/infra/postgres"
	"github.com/yosef2222/FinanceTracker/internal/infra/resilience"
	"github.com/yosef2222/FinanceTracker/internal/port"
	"github.com/yosef2222/FinanceTracker/internal/service"

	"github.com/sony/gobreaker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	var migrateFirst bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), config.Load(), migrateFirst)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, migrateFirst bool) error {
	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return fmt.Errorf("config: %w", err)
	}
	if cfg.UsesDevSecret() {
		logger.Warn("JWT_SECRET not set: signing tokens with the development secret")
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("postgres", cfg.DatabaseURL != ""),
		zap.Bool("redis", cfg.RedisURL != ""),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("advice_ttl", cfg.AdviceTTL),
		zap.Duration("snapshot_timeout", cfg.SnapshotTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Int("admins", len(cfg.AdminEmails)),
	)

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(ctx, cfg.OTLPEndpoint, "finhelper")
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Store ---
	var store port.Store
	if cfg.DatabaseURL != "" {
		if migrateFirst {
			if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("migrations applied")
		}
		pg, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer pg.Close()
		store = pg
		logger.Info("using postgres store")
	} else {
		store = memory.New()
		logger.Warn("DATABASE_URL not set: using in-memory store, data is lost on restart")
	}

	checks := []handler.HealthCheck{
		{Name: "store", Critical: true, Check: store.Ping},
	}

	// --- Cache ---
	var adviceCache port.Cache[domain.Advice]
	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		adviceCache = cache.NewRedis[domain.Advice](rdb, "finhelper:", cfg.AdviceTTL, logger)
		checks = append(checks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
		logger.Info("using redis advice cache")
	} else {
		mem := cache.New[domain.Advice](cfg.CacheTTL)
		defer mem.Close()
		adviceCache = mem
	}

	// --- Inference ---
	guard := resilience.NewGuard("inference", resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	})
	inferenceClient := inference.NewClient(&http.Client{Timeout: cfg.HTTPTimeout}, inference.Options{
		URL:      cfg.InferenceURL,
		FolderID: cfg.InferenceFolderID,
		Token:    cfg.InferenceToken,
		Model:    cfg.InferenceModel,
	}, guard, metrics, logger)
	if cfg.InferenceToken == "" {
		logger.Warn("INFERENCE_TOKEN not set: parsing and advice will use fallbacks")
	}
	checks = append(checks, handler.HealthCheck{
		Name: "inference",
		Check: func(context.Context) error {
			if guard.State() == gobreaker.StateOpen {
				return errors.New("circuit breaker open")
			}
			return nil
		},
	})

	// --- Services ---
	ledgerSvc := service.NewLedgerService(store, metrics, logger)
	services := &handler.Services{
		Auth:       service.NewAuthService(store, cfg.JWTSecret, cfg.JWTAccessTTL, logger).WithAdmins(cfg.AdminEmails...),
		Ledger:     ledgerSvc,
		Reconciler: service.NewReconciler(store, store, store, metrics, logger),
		Dashboard:  service.NewDashboard(store, store, store, store, store, cfg.SnapshotTimeout, metrics, logger),
		Assistant:  service.NewAssistant(ledgerSvc, inferenceClient, adviceCache, cfg.AdviceTTL, metrics, logger),
		Checks:     checks,
	}

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler.NewRouter(services, cfg.CORSOrigins, metrics, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// --- Graceful shutdown ---
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
