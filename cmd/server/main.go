package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/DukeRupert/turfplot/internal"
	"github.com/DukeRupert/turfplot/internal/cache"
	"github.com/DukeRupert/turfplot/internal/email"
	"github.com/DukeRupert/turfplot/internal/handler"
	"github.com/DukeRupert/turfplot/internal/jobs"
	"github.com/DukeRupert/turfplot/internal/metrics"
	"github.com/DukeRupert/turfplot/internal/middleware"
	"github.com/DukeRupert/turfplot/internal/repository"
	"github.com/DukeRupert/turfplot/internal/service"
	"github.com/DukeRupert/turfplot/internal/storage"
	"github.com/DukeRupert/turfplot/internal/worker"
)

const sessionSweepInterval = time.Hour

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	repo := repository.New(db)

	// Redis is optional: without it the plot cache is disabled and rate
	// limits are kept per process.
	rdb, err := cache.Open(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	plotCache := cache.New(rdb, cfg.CacheTTL, logger)
	defer plotCache.Close()
	logger.Info("Plot cache configured", "enabled", plotCache.Enabled())

	store, err := storage.New(storage.Config{
		Provider: cfg.StorageProvider,
		Local: storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		},
		R2: storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	// ==========================================================================
	// Services
	// ==========================================================================

	userService := service.NewUserService(repo, logger, service.UserServiceConfig{
		SessionDuration:          cfg.SessionDuration,
		RequireEmailVerification: cfg.RequireEmailVerification,
	})
	masterListService := service.NewMasterListService(repo, logger)
	plotService := service.NewPlotService(repo, plotCache, logger)
	treatmentService := service.NewTreatmentService(db, repo, plotService, logger)
	reportService := service.NewReportService(treatmentService, plotService, repo, store, cfg.ReportTitle, logger)

	// ==========================================================================
	// Background worker
	// ==========================================================================

	var bgWorker *worker.Worker
	if cfg.WorkerEnabled {
		workerCfg := worker.DefaultConfig()
		workerCfg.Concurrency = cfg.WorkerConcurrency
		workerCfg.PollInterval = cfg.WorkerPollInterval
		workerCfg.JobTimeout = cfg.WorkerJobTimeout

		bgWorker, err = worker.New(worker.NewPostgresQueue(db, repo), workerCfg, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		bgWorker.Register(jobs.NewExportReportHandler(reportService, store, logger))
		bgWorker.Start(ctx)
	}

	go sweepSessions(ctx, userService, logger)

	// ==========================================================================
	// Middleware
	// ==========================================================================

	isSecure := cfg.IsProduction()
	authMw := middleware.NewAuthMiddleware(userService, logger, isSecure)
	authLimiter := middleware.NewAuthRateLimiter(rdb, logger)
	defer authLimiter.Stop()
	requireUser := authMw.RequireUser

	// ==========================================================================
	// Routes
	// ==========================================================================

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	if !metricsAuth.Enabled() {
		logger.Warn("Metrics endpoint is unprotected; set METRICS_USERNAME and METRICS_PASSWORD")
	}
	mux.Handle("GET /metrics", metricsAuth.Handler(metrics.Handler()))

	handler.NewAuthHandler(userService, logger, isSecure).
		WithLimits(handler.AuthLimits{
			Login:          authLimiter.LimitLogin,
			Register:       authLimiter.LimitRegister,
			ChangePassword: authLimiter.LimitChangePassword,
			AccountTokens:  authLimiter.LimitAccountTokens,
		}).
		WithNotifier(email.NewLogNotifier(logger)).
		RegisterRoutes(mux, requireUser)
	handler.NewMasterListHandler(masterListService, logger).RegisterRoutes(mux, requireUser)
	handler.NewPlotHandler(plotService, treatmentService, logger).RegisterRoutes(mux, requireUser)
	handler.NewTreatmentHandler(treatmentService, logger).RegisterRoutes(mux, requireUser)
	handler.NewReportHandler(reportService, logger).RegisterRoutes(mux, requireUser)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		handler.NotFoundResponse(w, r, logger)
	})

	// WithUser runs outside request logging so log lines carry the user id.
	stack := middleware.Stack(
		metrics.Middleware,
		middleware.NewSecurityHeadersMiddleware(isSecure).Handler,
		authMw.WithUser,
		middleware.NewRequestLoggingMiddleware(logger).Handler,
	)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           stack(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if bgWorker != nil {
		bgWorker.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// sweepSessions deletes expired sessions and account tokens until ctx is
// cancelled.
func sweepSessions(ctx context.Context, users service.UserService, logger *slog.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := users.DeleteExpiredSessions(ctx); err != nil {
				logger.Warn("expired session sweep failed", "error", err)
			}
			if err := users.DeleteExpiredTokens(ctx); err != nil {
				logger.Warn("expired token sweep failed", "error", err)
			}
		}
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
