package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/astromeet/astromeet/internal/app"
	"github.com/astromeet/astromeet/internal/matching/applications"
	"github.com/astromeet/astromeet/internal/matching/periods"
	"github.com/astromeet/astromeet/internal/matching/results"
	"github.com/astromeet/astromeet/internal/matching/stars"
	"github.com/astromeet/astromeet/internal/platform/cache"
	"github.com/astromeet/astromeet/internal/platform/db"
	"github.com/astromeet/astromeet/jobs"
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	periodRepo := periods.NewRepository(pool)
	starRepo := stars.NewRepository(pool)
	starService := stars.NewService(starRepo, stars.NewRedisNotifier(redisClient), logger)
	appRepo := applications.NewRepository(pool)
	appService := applications.NewService(appRepo, starService, nil, applications.Config{
		ApplyCost: cfg.ApplyCost,
		Cooldown:  cfg.CancelCooldown,
	})
	resultService := results.NewService(results.NewRepository(pool), periodRepo)

	announceJob := jobs.NewAnnounceSweepJob(periodRepo, appService, resultService, client, logger)
	finishJob := jobs.NewFinishSweepJob(periodRepo, redisClient, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAnnounceSweep, Handler: announceJob.Handle},
			{Type: jobs.TaskFinishSweep, Handler: finishJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "* * * * *", Task: jobs.NewAnnounceSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "* * * * *", Task: jobs.NewFinishSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exit", slog.Any("error", err))
		os.Exit(1)
	}
}
