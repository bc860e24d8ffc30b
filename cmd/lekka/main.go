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
	"github.com/redis/go-redis/v9"

	"github.com/lekka-app/lekka/internal/app"
	"github.com/lekka-app/lekka/internal/assistant"
	"github.com/lekka-app/lekka/internal/dashboard"
	"github.com/lekka-app/lekka/internal/identity"
	"github.com/lekka-app/lekka/internal/inventory"
	"github.com/lekka-app/lekka/internal/ledger"
	"github.com/lekka-app/lekka/internal/observability"
	"github.com/lekka-app/lekka/internal/platform/cache"
	"github.com/lekka-app/lekka/internal/platform/db"
	"github.com/lekka-app/lekka/internal/profile"
	"github.com/lekka-app/lekka/internal/shared"
	"github.com/lekka-app/lekka/internal/workforce"
	"github.com/lekka-app/lekka/jobs"
	"github.com/lekka-app/lekka/report"
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

	dbpool, err := db.New(ctx, db.Options{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns, AppName: "lekka-api"})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// Redis backs sessions and the dashboard cache. Without it the service
	// still runs in token or local mode, building summaries uncached.
	var redisClient *redis.Client
	if client, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr}); err != nil {
		if cfg.IdentityMode == string(identity.ModeSession) {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Warn("redis unavailable, dashboard cache disabled", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	var sessionManager *shared.SessionManager
	if redisClient != nil {
		sessionManager = shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	}
	resolver, err := identity.New(identity.Options{
		Mode:      identity.Mode(cfg.IdentityMode),
		JWTSecret: cfg.AuthJWTSecret,
		Sessions:  sessionManager,
	})
	if err != nil {
		logger.Error("init identity", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL, logger)

	ledgerService := ledger.NewService(ledger.NewRepository(dbpool), ledger.Config{
		AtomicStock:    cfg.LedgerAtomicStock,
		ReadjustOnEdit: cfg.LedgerReadjustOnEdit,
	}, ledger.Deps{
		Audit:       auditLogger,
		Idempotency: idempotencyStore,
		Notifier:    dashboardCache,
		Observer:    metrics,
		Logger:      logger,
	})
	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), auditLogger, dashboardCache, metrics, logger)
	workforceService := workforce.NewService(workforce.NewRepository(dbpool), ledgerService, dashboardCache)
	dashboardService := dashboard.NewService(ledgerService, inventoryService, workforceService, dashboardCache)
	profileService := profile.NewService(profile.NewRepository(dbpool), inventoryService, logger)

	var generator assistant.Generator
	if cfg.GeminiAPIKey != "" {
		generator = assistant.NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel)
	} else {
		logger.Warn("GEMINI_API_KEY not set, AI insights disabled")
	}
	assistantService := assistant.NewService(generator, logger)

	var renderer report.Renderer
	if pdfClient := report.NewClient(cfg.GotenbergURL); pdfClient.Configured() {
		if err := pdfClient.Ping(ctx); err != nil {
			logger.Warn("gotenberg unreachable, PDF statements will fail until it is up", slog.Any("error", err))
		}
		renderer = pdfClient
	} else {
		logger.Warn("GOTENBERG_URL not set, PDF statements disabled")
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Resolver:         resolver,
		Metrics:          metrics,
		LedgerHandler:    ledger.NewHandler(logger, ledgerService),
		InventoryHandler: inventory.NewHandler(logger, inventoryService),
		WorkforceHandler: workforce.NewHandler(logger, workforceService),
		DashboardHandler: dashboard.NewHandler(logger, dashboardService),
		ReportHandler:    report.NewHandler(renderer, dashboardService, profileService, logger),
		AssistantHandler: assistant.NewHandler(logger, assistantService, ledgerService),
		ProfileHandler:   profile.NewHandler(logger, profileService),
		JobHandler:       jobs.NewHandler(inspector, jobClient, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("identity_mode", cfg.IdentityMode),
			slog.Bool("atomic_stock", cfg.LedgerAtomicStock),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
