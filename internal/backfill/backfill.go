// Package backfill fills in thumbnails and best comments for rankings that
// were aggregated before they could be enriched.
package backfill

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"memeboard/internal/comments"
	"memeboard/internal/metadata"
	"memeboard/internal/models"
)

const (
	maxThumbnailURLs = 2
	maxCommentURLs   = 3
	maxComments      = 3
	defaultLimit     = 100
)

// Mode selects what a pass fills in
type Mode string

const (
	ModeThumbnails Mode = "thumbnails"
	ModeComments   Mode = "comments"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeThumbnails, ModeComments:
		return m, nil
	}
	return "", fmt.Errorf("unknown backfill mode %q", s)
}

// Store lists rankings with missing enrichment and writes it back
type Store interface {
	MissingThumbnails(ctx context.Context, limit int) ([]models.Ranking, error)
	MissingComments(ctx context.Context, limit int) ([]models.Ranking, error)
	ApplyEnrichment(ctx context.Context, keyword string, e models.Enrichment) (int64, error)
	MarkThumbnailChecked(ctx context.Context, ids []uuid.UUID) error
	MarkCommentsChecked(ctx context.Context, ids []uuid.UUID) error
}

// ThumbnailSource finds a page's representative image
type ThumbnailSource interface {
	Extract(ctx context.Context, pageURL string) metadata.Thumbnail
}

// CommentSource finds a page's best comments
type CommentSource interface {
	Extract(ctx context.Context, pageURL string) comments.Result
}

// Options controls one pass
type Options struct {
	Limit  int
	DryRun bool
}

// Stats summarizes one pass
type Stats struct {
	Scanned int `json:"scanned"`
	Filled  int `json:"filled"`
	Missed  int `json:"missed"`
}

// Backfiller visits source pages of incomplete rankings at a bounded rate
type Backfiller struct {
	store      Store
	thumbnails ThumbnailSource
	comments   CommentSource
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// New creates a backfiller issuing at most rps page fetches per second.
// A non-positive rps disables the limit.
func New(store Store, thumbnails ThumbnailSource, commentSource CommentSource, rps float64, logger *zap.Logger) *Backfiller {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Backfiller{
		store:      store,
		thumbnails: thumbnails,
		comments:   commentSource,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
}

// Run performs one pass in the given mode
func (b *Backfiller) Run(ctx context.Context, mode Mode, opts Options) (Stats, error) {
	switch mode {
	case ModeThumbnails:
		return b.Thumbnails(ctx, opts)
	case ModeComments:
		return b.Comments(ctx, opts)
	}
	return Stats{}, fmt.Errorf("unknown backfill mode %q", mode)
}

// Thumbnails fills thumbnail_url from the first pages of each ranking
func (b *Backfiller) Thumbnails(ctx context.Context, opts Options) (Stats, error) {
	rows, err := b.store.MissingThumbnails(ctx, limitOrDefault(opts.Limit))
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for _, r := range rows {
		stats.Scanned++
		thumbnail, err := b.findThumbnail(ctx, r.SourceURLs)
		if err != nil {
			return stats, err
		}
		if err := b.mark(ctx, b.store.MarkThumbnailChecked, r.ID, opts.DryRun); err != nil {
			return stats, err
		}
		if thumbnail == "" {
			stats.Missed++
			continue
		}

		if err := b.apply(ctx, r.Keyword, models.Enrichment{ThumbnailURL: &thumbnail}, opts.DryRun); err != nil {
			return stats, err
		}
		stats.Filled++
		b.logger.Info("thumbnail backfilled",
			zap.String("keyword", r.Keyword),
			zap.String("thumbnail", thumbnail),
			zap.Bool("dry_run", opts.DryRun))
	}

	b.logger.Info("thumbnail backfill complete",
		zap.Int("scanned", stats.Scanned),
		zap.Int("filled", stats.Filled),
		zap.Int("missed", stats.Missed))
	return stats, nil
}

func (b *Backfiller) findThumbnail(ctx context.Context, urls []string) (string, error) {
	for i, u := range urls {
		if i >= maxThumbnailURLs {
			break
		}
		if err := b.limiter.Wait(ctx); err != nil {
			return "", err
		}
		if t := b.thumbnails.Extract(ctx, u); t.Found() {
			return t.URL, nil
		}
	}
	return "", nil
}

// Comments fills best_comments from the first pages of each ranking
func (b *Backfiller) Comments(ctx context.Context, opts Options) (Stats, error) {
	rows, err := b.store.MissingComments(ctx, limitOrDefault(opts.Limit))
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for _, r := range rows {
		stats.Scanned++
		best, err := b.collectComments(ctx, r.SourceURLs)
		if err != nil {
			return stats, err
		}
		if err := b.mark(ctx, b.store.MarkCommentsChecked, r.ID, opts.DryRun); err != nil {
			return stats, err
		}
		if len(best) == 0 {
			stats.Missed++
			continue
		}

		if err := b.apply(ctx, r.Keyword, models.Enrichment{BestComments: comments.ToBestComments(best)}, opts.DryRun); err != nil {
			return stats, err
		}
		stats.Filled++
		b.logger.Info("comments backfilled",
			zap.String("keyword", r.Keyword),
			zap.Int("comments", len(best)),
			zap.Bool("dry_run", opts.DryRun))
	}

	b.logger.Info("comment backfill complete",
		zap.Int("scanned", stats.Scanned),
		zap.Int("filled", stats.Filled),
		zap.Int("missed", stats.Missed))
	return stats, nil
}

// collectComments merges comments across pages, drops repeated content and
// keeps the most liked
func (b *Backfiller) collectComments(ctx context.Context, urls []string) ([]comments.Comment, error) {
	seen := make(map[string]bool)
	var all []comments.Comment
	for i, u := range urls {
		if i >= maxCommentURLs {
			break
		}
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		for _, c := range b.comments.Extract(ctx, u).Comments {
			if seen[c.Content] {
				continue
			}
			seen[c.Content] = true
			all = append(all, c)
		}
	}

	ranked := comments.Rank(all)
	if len(ranked) > maxComments {
		ranked = ranked[:maxComments]
	}
	return ranked, nil
}

func (b *Backfiller) apply(ctx context.Context, keyword string, e models.Enrichment, dryRun bool) error {
	if dryRun {
		return nil
	}
	if _, err := b.store.ApplyEnrichment(ctx, keyword, e); err != nil {
		return fmt.Errorf("backfill %q: %w", keyword, err)
	}
	return nil
}

// mark records the attempt so a ranking that keeps missing yields its slot
// to the next one on later passes
func (b *Backfiller) mark(ctx context.Context, fn func(context.Context, []uuid.UUID) error, id uuid.UUID, dryRun bool) error {
	if dryRun {
		return nil
	}
	return fn(ctx, []uuid.UUID{id})
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}
