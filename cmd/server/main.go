package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"memeboard/internal/aggregate"
	"memeboard/internal/backfill"
	"memeboard/internal/bodytext"
	"memeboard/internal/classify"
	"memeboard/internal/comments"
	"memeboard/internal/config"
	"memeboard/internal/database"
	"memeboard/internal/fetcher"
	"memeboard/internal/handlers"
	"memeboard/internal/imageproxy"
	"memeboard/internal/keylock"
	"memeboard/internal/llm"
	"memeboard/internal/logging"
	"memeboard/internal/metadata"
	"memeboard/internal/rankings"
	"memeboard/internal/server"
	"memeboard/internal/summarize"
	"memeboard/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer logging.Sync(logger)

	if err := cfg.ValidateStore(); err != nil {
		logger.Fatal("invalid database configuration", zap.Error(err))
	}
	db, err := database.Connect(cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	locker, closeLocker := newLocker(cfg.Redis, logger)
	defer closeLocker()

	repo := rankings.NewRepository(db)
	pages := fetcher.New(cfg.Fetch)
	thumbnails := metadata.NewThumbnailExtractor(pages, logger)
	commentExtractor := comments.NewExtractor(pages, nil, logger)

	model := llm.NewAnthropicClient(cfg.Anthropic)
	enricher := summarize.NewEnricher(summarize.Deps{
		Store:      repo,
		Thumbnails: thumbnails,
		Comments:   commentExtractor,
		Body:       bodytext.NewExtractor(pages, logger),
		Summarizer: model,
		Locker:     locker,
		Model:      cfg.Anthropic,
		Logger:     logger,
	})

	var workers *worker.WorkerService
	if cfg.Jobs.Enabled {
		classifier, err := classify.Select(cfg.Jobs.Classifier, classify.New(classify.DefaultThreshold), model, cfg.Anthropic, logger)
		if err != nil {
			logger.Fatal("invalid classifier", zap.Error(err))
		}
		agg := aggregate.New(repo, classifier, cfg.Jobs, logger)
		bf := backfill.New(repo, thumbnails, commentExtractor, cfg.Jobs.BackfillRPS, logger)
		workers = worker.NewWorkerService(worker.DefaultJobs(cfg.Jobs, agg, bf), logger)
		if err := workers.Start(); err != nil {
			logger.Fatal("failed to start background workers", zap.Error(err))
		}
		defer workers.Stop()
	}

	if cfg.Server.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	health := handlers.NewHealthHandler(nil)
	if workers != nil {
		health = handlers.NewHealthHandler(workers)
	}
	router := server.NewRouter(server.Handlers{
		Rankings:  handlers.NewRankingsHandler(rankings.NewService(repo, logger)),
		Summarize: handlers.NewSummarizeHandler(enricher, logger),
		Image:     handlers.NewImageHandler(imageproxy.New(pages, pages.UserAgent(), pages.ImageTimeout()), logger),
		Health:    health,
		Docs:      handlers.NewDocsHandler(),
	}, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("received shutdown signal, gracefully shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// newLocker returns the Redis lock when configured, else a process-local no-op
func newLocker(cfg config.RedisConfig, logger *zap.Logger) (keylock.Locker, func()) {
	if cfg.URL == "" {
		return keylock.NoopLocker{}, func() {}
	}

	if err := cfg.ValidateLock(); err != nil {
		logger.Fatal("invalid redis lock settings", zap.Error(err))
	}
	locker, err := keylock.NewRedisLockerWithURL(cfg.URL, cfg.LockTTL, logger)
	if err != nil {
		logger.Fatal("invalid REDIS_URL", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := locker.Ping(ctx); err != nil {
		logger.Warn("redis unreachable, keyword lock will retry per request", zap.Error(err))
	}
	return locker, func() {
		if err := locker.Close(); err != nil {
			logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
}
