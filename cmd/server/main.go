// Package main is the entrypoint for the QuerySage API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/querysage/querysage/internal/api"
	"github.com/querysage/querysage/internal/api/handler"
	mw "github.com/querysage/querysage/internal/api/middleware"
	"github.com/querysage/querysage/internal/cache"
	"github.com/querysage/querysage/internal/config"
	"github.com/querysage/querysage/internal/consolidate"
	"github.com/querysage/querysage/internal/executor"
	"github.com/querysage/querysage/internal/feedback"
	"github.com/querysage/querysage/internal/knowledge"
	"github.com/querysage/querysage/internal/warehouse"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "driver", cfg.Warehouse.Driver, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to the warehouse
	transport, cleanup, err := newTransport(ctx, cfg.Warehouse)
	if err != nil {
		return fmt.Errorf("connect warehouse: %w", err)
	}
	defer cleanup()
	slog.Info("warehouse connected", "driver", cfg.Warehouse.Driver)

	// 3. Optional Redis cache
	var redisCache cache.Cache
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer rc.Close()

		if err := rc.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		redisCache = rc
		slog.Info("redis connected")
	} else {
		slog.Info("redis not configured, result caching disabled")
	}

	// 4. Stores
	docStore, err := knowledge.NewDocumentStore(cfg.Knowledge.Dir)
	if err != nil {
		return fmt.Errorf("open knowledge store: %w", err)
	}
	feedbackStore, err := feedback.NewStore(cfg.Feedback.Dir, logger)
	if err != nil {
		return fmt.Errorf("open feedback store: %w", err)
	}
	reportStore, err := consolidate.NewReportStore(cfg.Feedback.ReportsDir)
	if err != nil {
		return fmt.Errorf("open report store: %w", err)
	}

	// 5. Pipeline services
	exec := executor.New(transport, redisCache, cfg.Redis.QueryResultTTL, cfg.Warehouse.QueryTimeout, logger)
	synth := knowledge.NewSynthesizer(exec, docStore, cfg.Knowledge.Workers, cfg.Knowledge.PreviewRows, logger)
	knowledgeSvc := knowledge.NewService(cfg.Knowledge.QueriesDir, synth, docStore, cfg.Warehouse.RowCap)
	consolidateSvc := consolidate.NewService(feedbackStore, docStore, reportStore, logger)

	// 6. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(cfg.Auth.Keys),
		RateLimit: mw.NewRateLimit(redisCache, cfg.Auth.RequestsPerMin),

		HealthHandler:        handler.NewHealthHandler(transport, redisCache),
		GenerateHandler:      handler.NewGenerateHandler(knowledgeSvc),
		GetKnowledgeHandler:  handler.NewGetKnowledgeHandler(knowledgeSvc),
		SubmitFeedback:       handler.NewSubmitFeedbackHandler(feedbackStore),
		ConsolidateHandler:   handler.NewConsolidateHandler(consolidateSvc),
		ListReportsHandler:   handler.NewListReportsHandler(consolidateSvc),
		GetReportHandler:     handler.NewGetReportHandler(consolidateSvc),
		QueryHandler:         handler.NewQueryHandler(exec),
		DescribeTableHandler: handler.NewDescribeTableHandler(exec),
	}

	router := api.NewRouter(deps)

	// 7. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * cfg.Warehouse.QueryTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// newTransport builds the configured warehouse transport. The returned
// cleanup func releases the underlying connections.
func newTransport(ctx context.Context, cfg config.WarehouseConfig) (warehouse.Transport, func(), error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := warehouse.ConnectPostgres(ctx, cfg.URL, cfg.MaxConns)
		if err != nil {
			return nil, nil, err
		}
		return warehouse.NewPostgresTransport(pool), pool.Close, nil
	case "http":
		tr := warehouse.NewHTTPTransport(cfg.URL, cfg.Username, cfg.Password, cfg.PollInterval, cfg.QueryTimeout)
		return tr, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown warehouse driver %q", cfg.Driver)
	}
}
