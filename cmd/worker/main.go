package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/meridian-ops/meridian/internal/app"
	"github.com/meridian-ops/meridian/internal/canonical"
	"github.com/meridian-ops/meridian/internal/console"
	"github.com/meridian-ops/meridian/internal/payment"
	"github.com/meridian-ops/meridian/internal/platform/cache"
	"github.com/meridian-ops/meridian/internal/upstream"
	"github.com/meridian-ops/meridian/jobs"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	// The worker always caches through redis: a warmed in-process cache
	// would be invisible to the server.
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
	store := cache.NewRedisStore(redisClient)

	client := upstream.New(upstream.Config{
		BaseURL:      cfg.BackendBaseURL,
		Timeout:      cfg.BackendTimeout,
		Logger:       logger,
		DiscountMode: canonical.DiscountMode(cfg.DiscountMode),
	})
	executor := payment.NewExecutor(client, logger)
	service := console.NewService(client, executor, store, cfg.CacheTTL, logger)

	resyncJob := jobs.NewInvoiceResyncJob(service, logger)
	resyncTask, err := jobs.NewInvoiceResyncTask("scheduled")
	if err != nil {
		logger.Error("build resync task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInvoiceResync, Handler: resyncJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/10 * * * *", Task: resyncTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
