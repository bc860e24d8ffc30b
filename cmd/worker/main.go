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

	"github.com/lekka-app/lekka/internal/app"
	"github.com/lekka-app/lekka/internal/inventory"
	"github.com/lekka-app/lekka/internal/observability"
	"github.com/lekka-app/lekka/internal/platform/db"
	"github.com/lekka-app/lekka/internal/shared"
	"github.com/lekka-app/lekka/jobs"
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

	pool, err := db.New(ctx, db.Options{DSN: cfg.PGDSN, MaxConns: 4, AppName: "lekka-worker"})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	var mailer jobs.Mailer
	if cfg.SMTPHost != "" {
		smtpMailer, err := jobs.NewSMTPMailer(jobs.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		if err != nil {
			logger.Error("init mailer", slog.Any("error", err))
			os.Exit(1)
		}
		mailer = smtpMailer
	} else {
		logger.Warn("SMTP_HOST not set, low stock alerts are logged only")
	}

	metrics := observability.NewMetrics()
	scanJob := jobs.NewLowStockScanJob(inventory.NewRepository(pool), mailer, logger, metrics.Jobs(), cfg.LowStockAlertTo)

	cleanupJob := &jobs.IdempotencyCleanupJob{Store: shared.NewIdempotencyStore(pool), Logger: logger, Metrics: metrics.Jobs()}

	scanTask, err := jobs.NewLowStockScanTask(jobs.LowStockScanPayload{})
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewIdempotencyCleanupTask(jobs.IdempotencyCleanupPayload{})
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	handlers := []jobs.TaskHandler{
		{Type: jobs.TaskLowStockScan, Handler: scanJob.Handle},
		{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
	}
	if mailer != nil {
		handlers = append(handlers, jobs.TaskHandler{Type: jobs.TaskTypeSendEmail, Handler: jobs.SendEmailHandler(mailer)})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers:  handlers,
		Cron: []jobs.CronRegistration{
			{Spec: cfg.LowStockScanCron, Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3), asynq.Queue(jobs.QueueDefault)}},
			{Spec: "30 3 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(1), asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	// Job metrics are scraped from the worker process itself.
	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("starting worker", slog.String("low_stock_cron", cfg.LowStockScanCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
