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
	"golang.org/x/sync/errgroup"

	"github.com/voicebot/voicebot/internal/app"
	"github.com/voicebot/voicebot/internal/auth"
	"github.com/voicebot/voicebot/internal/capture"
	jobmetrics "github.com/voicebot/voicebot/internal/jobs"
	"github.com/voicebot/voicebot/internal/observability"
	"github.com/voicebot/voicebot/internal/platform/cache"
	"github.com/voicebot/voicebot/internal/platform/db"
	"github.com/voicebot/voicebot/internal/shared"
	"github.com/voicebot/voicebot/internal/view"
	"github.com/voicebot/voicebot/jobs"
)

const sweepInterval = 15 * time.Minute

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

	authRepo, closeRepo, err := accountRepository(ctx, cfg, redisClient, logger)
	if err != nil {
		logger.Error("init account store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeRepo()

	sessionManager := shared.NewSessionManager(redisClient, "voicebot_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	renderer := &view.Renderer{Engine: templates, CSRF: csrfManager, Logger: logger, ToastTTL: cfg.ToastTTL}

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	deps, err := app.NewCaptureDeps(cfg, redisClient, logger, jobMetrics)
	if err != nil {
		logger.Error("init capture", slog.Any("error", err))
		os.Exit(1)
	}

	asynqOpts, err := cache.AsynqOpts(cfg.RedisAddr)
	if err != nil {
		logger.Error("asynq options", slog.Any("error", err))
		os.Exit(1)
	}

	var (
		executor capture.Executor
		inline   *capture.InlineExecutor
	)
	switch cfg.PipelineExecutor {
	case app.ExecutorQueue:
		client, err := jobs.NewClient(asynqOpts)
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		executor = jobs.NewQueueExecutor(client, logger)
	default:
		inline = capture.NewInlineExecutor(jobs.NewCaptureGenerateJob(deps.Pipeline, logger, jobMetrics), logger)
		executor = inline
	}

	sequencer := capture.NewSequencer(deps.Store, executor, capture.HintTranscriber{}, logger)
	authService := auth.NewService(authRepo, auth.WithLogoutHook(sequencer.Forget))
	authHandler := auth.NewHandler(logger, authService, renderer, sessionManager)
	captureHandler := capture.NewHandler(logger, sequencer, deps.Outputs, cfg.UploadMaxBytes)

	inspector := asynq.NewInspector(asynqOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Renderer:       renderer,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		CaptureHandler: captureHandler,
		Sequencer:      sequencer,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown", slog.Any("error", err))
		}
		if inline != nil {
			if err := inline.Shutdown(shutdownCtx); err != nil {
				logger.Warn("pipeline shutdown", slog.Any("error", err))
			}
		}
		return nil
	})
	if inline != nil {
		// Without a worker process nothing schedules the sweep task.
		sweeper := jobs.NewAudioSweepJob(deps.Outputs, cfg.OutputRetention(), logger, jobMetrics)
		g.Go(func() error {
			return sweeper.Loop(gctx, sweepInterval)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}

func accountRepository(ctx context.Context, cfg *app.Config, client *redis.Client, logger *slog.Logger) (auth.Repository, func(), error) {
	if cfg.AccountStore != app.AccountStorePostgres {
		return auth.NewRedisRepository(client), func() {}, nil
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return nil, nil, err
	}
	if cfg.PGMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("database migrated")
	}
	return auth.NewRepository(pool), pool.Close, nil
}
