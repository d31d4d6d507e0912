package worker

import (
	"context"

	"memeboard/internal/aggregate"
	"memeboard/internal/backfill"
	"memeboard/internal/config"
)

const (
	JobAggregate = "aggregate"
	JobCleanup   = "cleanup"
	JobBackfill  = "backfill"
)

// Aggregator is the part of the aggregation job the scheduler drives
type Aggregator interface {
	Run(ctx context.Context) (aggregate.Stats, error)
	Cleanup(ctx context.Context) (int64, error)
}

// Backfiller is the part of the backfill job the scheduler drives
type Backfiller interface {
	Run(ctx context.Context, mode backfill.Mode, opts backfill.Options) (backfill.Stats, error)
}

// DefaultJobs builds the aggregation, retention and backfill jobs. A nil
// backfiller leaves the backfill job out.
func DefaultJobs(cfg config.JobsConfig, agg Aggregator, bf Backfiller) []Job {
	jobs := []Job{
		{
			Name: JobAggregate,
			Spec: cfg.AggregateSpec,
			Run: func(ctx context.Context) error {
				_, err := agg.Run(ctx)
				return err
			},
		},
		{
			Name: JobCleanup,
			Spec: cfg.CleanupSpec,
			Run: func(ctx context.Context) error {
				_, err := agg.Cleanup(ctx)
				return err
			},
		},
	}

	if bf != nil {
		opts := backfill.Options{Limit: cfg.BackfillLimit}
		jobs = append(jobs, Job{
			Name: JobBackfill,
			Spec: cfg.BackfillSpec,
			Run: func(ctx context.Context) error {
				if _, err := bf.Run(ctx, backfill.ModeThumbnails, opts); err != nil {
					return err
				}
				_, err := bf.Run(ctx, backfill.ModeComments, opts)
				return err
			},
		})
	}
	return jobs
}
