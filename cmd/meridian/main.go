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

	var store cache.Store
	var jobHandler *jobs.Handler
	if cfg.CacheDriver == "redis" {
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
		store = cache.NewRedisStore(redisClient)

		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		queue := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := queue.Close(); err != nil {
				logger.Warn("queue close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, queue, logger)
	} else {
		store = cache.NewMemoryStore()
	}

	client := upstream.New(upstream.Config{
		BaseURL:      cfg.BackendBaseURL,
		Timeout:      cfg.BackendTimeout,
		Logger:       logger,
		DiscountMode: canonical.DiscountMode(cfg.DiscountMode),
	})
	executor := payment.NewExecutor(client, logger)
	service := console.NewService(client, executor, store, cfg.CacheTTL, logger)
	consoleHandler := console.NewHandler(logger, service)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		ConsoleHandler: consoleHandler,
		JobHandler:     jobHandler,
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
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
