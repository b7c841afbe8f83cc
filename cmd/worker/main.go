package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/voicebot/voicebot/internal/app"
	jobmetrics "github.com/voicebot/voicebot/internal/jobs"
	"github.com/voicebot/voicebot/internal/platform/cache"
	"github.com/voicebot/voicebot/jobs"
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

	metrics := jobmetrics.NewMetrics(nil)
	deps, err := app.NewCaptureDeps(cfg, redisClient, logger, metrics)
	if err != nil {
		logger.Error("init capture", slog.Any("error", err))
		os.Exit(1)
	}

	generateJob := jobs.NewCaptureGenerateJob(deps.Pipeline, logger, metrics)
	sweepJob := jobs.NewAudioSweepJob(deps.Outputs, cfg.OutputRetention(), logger, metrics)

	sweepTask, err := jobs.NewAudioSweepTask(time.Now().UTC())
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	asynqOpts, err := cache.AsynqOpts(cfg.RedisAddr)
	if err != nil {
		logger.Error("asynq options", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynqOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCaptureGenerate, Handler: generateJob.Handle},
			{Type: jobs.TaskAudioSweep, Handler: sweepJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/15 * * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
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
