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
	"golang.org/x/sync/errgroup"

	"github.com/astromeet/astromeet/internal/app"
	"github.com/astromeet/astromeet/internal/matching/applications"
	"github.com/astromeet/astromeet/internal/matching/lifecycle"
	"github.com/astromeet/astromeet/internal/matching/periods"
	"github.com/astromeet/astromeet/internal/matching/results"
	"github.com/astromeet/astromeet/internal/matching/stars"
	"github.com/astromeet/astromeet/internal/observability"
	"github.com/astromeet/astromeet/internal/platform/cache"
	"github.com/astromeet/astromeet/internal/platform/db"
	"github.com/astromeet/astromeet/internal/shared"
	"github.com/astromeet/astromeet/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, balance events disabled", slog.Any("error", err))
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	auditLogger := shared.NewAuditLogger(dbpool)

	periodRepo := periods.NewRepository(dbpool)
	periodService := periods.NewService(periodRepo)

	starRepo := stars.NewRepository(dbpool)
	starService := stars.NewService(starRepo, stars.NewRedisNotifier(redisClient), logger)

	appRepo := applications.NewRepository(dbpool)
	appService := applications.NewService(appRepo, starService, auditLogger, applications.Config{
		ApplyCost: cfg.ApplyCost,
		Cooldown:  cfg.CancelCooldown,
	})

	resultRepo := results.NewRepository(dbpool)

	metrics := observability.NewMetrics()

	lifecycleService := lifecycle.NewService(periodService, appService, resultRepo, starService, metrics, logger, lifecycle.Config{
		RetryBackoff: cfg.TxRetryBackoff,
	})
	lifecycleHandler := lifecycle.NewHandler(logger, lifecycleService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		LifecycleHandler: lifecycleHandler,
		JobsHandler:      jobsHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
