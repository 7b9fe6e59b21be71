package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/paperledger/paperledger/internal/accounting/accounts"
	"github.com/paperledger/paperledger/internal/accounting/entries"
	"github.com/paperledger/paperledger/internal/accounting/mappings"
	"github.com/paperledger/paperledger/internal/accounting/periods"
	"github.com/paperledger/paperledger/internal/app"
	"github.com/paperledger/paperledger/internal/batch"
	"github.com/paperledger/paperledger/internal/classifier"
	"github.com/paperledger/paperledger/internal/documents"
	"github.com/paperledger/paperledger/internal/fields"
	"github.com/paperledger/paperledger/internal/inference"
	"github.com/paperledger/paperledger/internal/observability"
	"github.com/paperledger/paperledger/internal/platform/cache"
	"github.com/paperledger/paperledger/internal/platform/db"
	"github.com/paperledger/paperledger/internal/reports"
	"github.com/paperledger/paperledger/internal/shared"
	"github.com/paperledger/paperledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	documentsRepo := documents.NewRepository(pool)
	documentsService := documents.NewService(documentsRepo, metrics)
	documentsHandler := documents.NewHandler(logger, documentsService)

	inferenceClient := inference.NewClient(inference.Options{
		BaseURL:       cfg.InferenceURL,
		Token:         cfg.InferenceToken,
		Timeout:       cfg.InferenceTimeout,
		RetryAttempts: cfg.InferenceRetryAttempts,
		RetryBackoff:  cfg.InferenceRetryBackoff,
	}, logger, metrics)

	classifierService := classifier.NewService(documentsService, documentsRepo, inferenceClient, classifier.Config{
		ReviewThreshold:   cfg.ReviewThreshold,
		UnrecognizedFloor: cfg.UnrecognizedFloor,
	}, logger)
	classifierHandler := classifier.NewHandler(logger, classifierService)

	fieldsRepo := fields.NewRepository(pool)
	fieldsLedger := fields.NewLedger(documentsService, fieldsRepo)
	fieldsExtractor := fields.NewExtractor(documentsService, documentsRepo, fieldsRepo, inferenceClient, logger)
	fieldsHandler := fields.NewHandler(logger, fieldsLedger, fieldsExtractor, cfg.ReviewThreshold)

	accountsRepo := accounts.NewRepository(pool)
	periodsRepo := periods.NewRepository(pool)
	mappingsRepo := mappings.NewRepository(pool)
	entriesRepo := entries.NewRepository(pool)
	entriesService := entries.NewService(entriesRepo, documentsService, fieldsRepo, accountsRepo, periodsRepo, mappingsRepo, auditLogger)
	entriesHandler := entries.NewHandler(logger, entriesService)

	reportsRepo := reports.NewRepository(pool)
	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := reports.NewService(logger, reportsRepo, reportsCache, cfg.Tolerance())
	reportsHandler := reports.NewHandler(logger, reportsService)

	batchService := batch.NewService(logger, documentsService, auditLogger)
	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	batchHandler := batch.NewHandler(logger, batchService, jobsClient, idempotencyStore)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		DocumentsHandler:  documentsHandler,
		ClassifierHandler: classifierHandler,
		FieldsHandler:     fieldsHandler,
		EntriesHandler:    entriesHandler,
		ReportsHandler:    reportsHandler,
		BatchHandler:      batchHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}
}
