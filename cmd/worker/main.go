package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/paperledger/paperledger/internal/app"
	"github.com/paperledger/paperledger/internal/batch"
	"github.com/paperledger/paperledger/internal/documents"
	"github.com/paperledger/paperledger/internal/observability"
	"github.com/paperledger/paperledger/internal/platform/cache"
	"github.com/paperledger/paperledger/internal/platform/db"
	"github.com/paperledger/paperledger/internal/reports"
	"github.com/paperledger/paperledger/internal/shared"
	"github.com/paperledger/paperledger/jobs"
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

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	metrics := observability.NewMetrics()
	jobMetrics := jobs.NewMetrics(metrics.Registerer())
	auditLogger := shared.NewAuditLogger(pool)

	documentsRepo := documents.NewRepository(pool)
	documentsService := documents.NewService(documentsRepo, metrics)
	batchService := batch.NewService(logger, documentsService, auditLogger)
	reclassifyJob := jobs.NewBatchReclassifyJob(batchService, logger, jobMetrics)

	reportsRepo := reports.NewRepository(pool)
	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := reports.NewService(logger, reportsRepo, reportsCache, cfg.Tolerance())
	refreshJob := jobs.NewReportRefreshJob(reportsService, logger, jobMetrics)

	refreshAllTask, err := jobs.NewReportRefreshTask("")
	if err != nil {
		logger.Error("build refresh task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskBatchReclassify, Handler: reclassifyJob.Handle},
			{Type: jobs.TaskReportRefresh, Handler: refreshJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "@every 30m", Task: refreshAllTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker shut down")
}
