package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/odyssey-pos/internal/app"
	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	"github.com/odyssey-erp/odyssey-pos/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "odyssey-pos-worker")

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := jobmetrics.NewMetrics(nil)
	metricsSrv := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           jobmetrics.Handler(prometheus.DefaultGatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker metrics listener", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()
	cleanupJob := jobs.NewIdempotencyCleanupJob(shared.NewIdempotencyStore(pool), cfg.IdempotencyRetention, logger, metrics)

	cleanupTask, err := jobs.NewIdempotencyCleanupTask(cfg.IdempotencyRetention)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
