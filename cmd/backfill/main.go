package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"memeboard/internal/backfill"
	"memeboard/internal/comments"
	"memeboard/internal/config"
	"memeboard/internal/database"
	"memeboard/internal/fetcher"
	"memeboard/internal/logging"
	"memeboard/internal/metadata"
	"memeboard/internal/rankings"
)

func main() {
	mode := flag.String("mode", string(backfill.ModeThumbnails), "What to fill in: thumbnails or comments")
	limit := flag.Int("limit", 100, "Maximum number of rankings to visit")
	dryRun := flag.Bool("dry-run", false, "Report what would be written without writing")
	rps := flag.Float64("rps", 1, "Maximum page fetches per second")
	flag.Parse()

	m, err := backfill.ParseMode(*mode)
	if err != nil {
		log.Fatal(err)
	}

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

	pages := fetcher.New(cfg.Fetch)
	bf := backfill.New(
		rankings.NewRepository(db),
		metadata.NewThumbnailExtractor(pages, logger),
		comments.NewExtractor(pages, nil, logger),
		*rps,
		logger,
	)

	stats, err := bf.Run(context.Background(), m, backfill.Options{Limit: *limit, DryRun: *dryRun})
	if err != nil {
		logger.Fatal("backfill failed", zap.Error(err))
	}
	logger.Info("backfill finished",
		zap.String("mode", string(m)),
		zap.Int("scanned", stats.Scanned),
		zap.Int("filled", stats.Filled),
		zap.Int("missed", stats.Missed),
		zap.Bool("dry_run", *dryRun))
}
