package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"memeboard/internal/aggregate"
	"memeboard/internal/classify"
	"memeboard/internal/config"
	"memeboard/internal/database"
	"memeboard/internal/llm"
	"memeboard/internal/logging"
	"memeboard/internal/rankings"
)

func main() {
	cleanup := flag.Bool("cleanup", true, "Delete rankings older than the retention period after aggregating")
	threshold := flag.Float64("threshold", classify.DefaultThreshold, "Minimum classifier confidence")
	mode := flag.String("classifier", "", "rule or llm (default from JOBS_CLASSIFIER)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer logging.Sync(logger)

	db, err := database.Connect(cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	ctx := context.Background()
	if *mode == "" {
		*mode = cfg.Jobs.Classifier
	}
	classifier, err := classify.Select(*mode, classify.New(*threshold), llm.NewAnthropicClient(cfg.Anthropic), cfg.Anthropic, logger)
	if err != nil {
		logger.Fatal("invalid classifier", zap.Error(err))
	}
	agg := aggregate.New(rankings.NewRepository(db), classifier, cfg.Jobs, logger)

	stats, err := agg.Run(ctx)
	if err != nil {
		logger.Fatal("aggregation failed", zap.Error(err))
	}
	logger.Info("aggregated rankings", zap.Int("rankings", stats.Rankings), zap.Int("uncertain", stats.Uncertain))

	if *cleanup {
		if _, err := agg.Cleanup(ctx); err != nil {
			logger.Fatal("retention cleanup failed", zap.Error(err))
		}
	}
}
