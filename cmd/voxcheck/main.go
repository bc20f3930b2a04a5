package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	vchttp "github.com/voxcheck/voxcheck/internal/adapter/http"
	"github.com/voxcheck/voxcheck/internal/adapter/litellm"
	vcnats "github.com/voxcheck/voxcheck/internal/adapter/nats"
	vcotel "github.com/voxcheck/voxcheck/internal/adapter/otel"
	"github.com/voxcheck/voxcheck/internal/adapter/postgres"
	"github.com/voxcheck/voxcheck/internal/adapter/ristretto"
	"github.com/voxcheck/voxcheck/internal/config"
	"github.com/voxcheck/voxcheck/internal/domain/scoring"
	"github.com/voxcheck/voxcheck/internal/logger"
	"github.com/voxcheck/voxcheck/internal/resilience"
	"github.com/voxcheck/voxcheck/internal/service"
)

func main() {
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

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---
	shutdownMetrics := vcotel.NoopShutdown()
	if cfg.Otel.Enabled {
		shutdownMetrics, err = vcotel.InitMetrics(ctx, cfg.Logging.Service, cfg.Otel.Endpoint)
		if err != nil {
			return fmt.Errorf("otel: %w", err)
		}
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownMetrics(shutdownCtx)
	}()

	metrics, err := vcotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	// PostgreSQL
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

	// NATS
	mq, err := vcnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = mq.Close() }()
	slog.Info("nats connected")

	// Stats snapshot cache
	statsCache, err := ristretto.New(cfg.Queue.CacheMaxBytes)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer statsCache.Close()

	// Evaluator transport behind a circuit breaker
	llm := litellm.NewClient(cfg.LiteLLM.URL, cfg.LiteLLM.MasterKey)
	llm.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	llm.SetCompletionParams(cfg.Ensemble.Temperature, cfg.Ensemble.MaxTokens)

	// --- Services ---
	store := postgres.NewStore(pool)

	ensembleSvc := service.NewEnsembleService(llm, cfg.Ensemble)
	ensembleSvc.SetMetrics(metrics)

	queueSvc := service.NewQueueService(store, mq, statsCache, cfg.Queue)
	queueSvc.SetMetrics(metrics)

	scorer := scoring.NewConfidenceScorer(cfg.Weights)
	validationSvc := service.NewValidationService(store, ensembleSvc, queueSvc, mq, scorer)
	validationSvc.SetMetrics(metrics)

	go queueSvc.RunSweeper(ctx)

	// --- HTTP ---
	handlers := vchttp.NewHandlers(validationSvc, queueSvc, cfg.OOS.Sentinel)

	r := chi.NewRouter()
	r.Use(vcotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(vchttp.CORS(cfg.Server.CORSOrigin))
	r.Use(vchttp.RequestID)
	r.Use(vchttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(2 * time.Minute))

	r.Get("/health", healthHandler(cfg))
	vchttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// healthHandler returns an http.HandlerFunc that reports service health.
func healthHandler(cfg *config.Config) http.HandlerFunc {
	type healthStatus struct {
		Status  string `json:"status"`
		NATS    string `json:"nats"`
		LiteLLM string `json:"litellm"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		status := healthStatus{
			Status:  "ok",
			NATS:    cfg.NATS.URL,
			LiteLLM: cfg.LiteLLM.URL,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
