package rankings

import (
	"context"
	"time"

	"go.uber.org/zap"

	"memeboard/internal/metrics"
	"memeboard/internal/models"
)

const (
	DefaultLimit        = 20
	MaxLimit            = 100
	DefaultRelatedLimit = 5
	DefaultRawPostLimit = 100
)

// Query selects rankings for the main list
type Query struct {
	Category  models.Category
	Limit     int
	TimeRange models.TimeRange
}

// Store is the subset of Repository the query service reads from
type Store interface {
	FindLatest(ctx context.Context, keyword string) (*models.Ranking, error)
	List(ctx context.Context, category models.Category, since time.Time, limit int) ([]models.Ranking, error)
	Related(ctx context.Context, category models.Category, excludeKeyword string, limit int) ([]models.Ranking, error)
	RawPosts(ctx context.Context, source string, limit int) ([]models.RawPost, error)
}

// Service answers read queries. Storage failures are logged and turned
// into empty results so a broken store degrades the page instead of
// failing it.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new query service
func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List returns rankings inside the time window, best first
func (s *Service) List(ctx context.Context, q Query) []models.Ranking {
	limit := clampLimit(q.Limit, DefaultLimit)
	timeRange := q.TimeRange
	if timeRange == "" {
		timeRange = models.TimeRange24h
	}
	since := s.now().Add(-timeRange.Window())

	rankings, err := s.store.List(ctx, q.Category, since, limit)
	if err != nil {
		s.absorb("list", err,
			zap.String("category", string(q.Category)),
			zap.String("time_range", string(timeRange)))
		return []models.Ranking{}
	}
	return nonNil(rankings)
}

// GetByKeyword returns the most recent ranking for keyword, or nil
func (s *Service) GetByKeyword(ctx context.Context, keyword string) *models.Ranking {
	if keyword == "" {
		return nil
	}
	ranking, err := s.store.FindLatest(ctx, keyword)
	if err != nil {
		s.absorb("detail", err, zap.String("keyword", keyword))
		return nil
	}
	return ranking
}

// Related returns other rankings from the same category
func (s *Service) Related(ctx context.Context, category models.Category, excludeKeyword string, limit int) []models.Ranking {
	limit = clampLimit(limit, DefaultRelatedLimit)
	rankings, err := s.store.Related(ctx, category, excludeKeyword, limit)
	if err != nil {
		s.absorb("related", err,
			zap.String("category", string(category)),
			zap.String("keyword", excludeKeyword))
		return []models.Ranking{}
	}
	return nonNil(rankings)
}

// RelatedToKeyword looks up keyword and returns rankings from its category
func (s *Service) RelatedToKeyword(ctx context.Context, keyword string, limit int) []models.Ranking {
	ranking := s.GetByKeyword(ctx, keyword)
	if ranking == nil {
		return []models.Ranking{}
	}
	return s.Related(ctx, ranking.Category, keyword, limit)
}

// RawPosts returns the latest scraped posts
func (s *Service) RawPosts(ctx context.Context, source string, limit int) []models.RawPost {
	limit = clampLimit(limit, DefaultRawPostLimit)
	posts, err := s.store.RawPosts(ctx, source, limit)
	if err != nil {
		s.absorb("raw_posts", err, zap.String("source", source))
		return []models.RawPost{}
	}
	if posts == nil {
		return []models.RawPost{}
	}
	return posts
}

func (s *Service) absorb(query string, err error, fields ...zap.Field) {
	metrics.RecordQueryFailure(query)
	s.logger.Error("ranking query failed",
		append(fields, zap.String("query", query), zap.Error(err))...)
}

func clampLimit(limit, def int) int {
	if limit < 1 {
		return def
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func nonNil(rankings []models.Ranking) []models.Ranking {
	if rankings == nil {
		return []models.Ranking{}
	}
	return rankings
}
