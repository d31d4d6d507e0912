// Package aggregate turns scraped raw posts into ranking rows.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"memeboard/internal/apperr"
	"memeboard/internal/classify"
	"memeboard/internal/config"
	"memeboard/internal/models"
)

const maxKeywordLen = 200

// Store is the persistence used by the aggregation job
type Store interface {
	RawPostsSince(ctx context.Context, since time.Time) ([]models.RawPost, error)
	Standings(ctx context.Context, category models.Category) ([]models.Ranking, error)
	Upsert(ctx context.Context, rankings []models.Ranking) error
	DeleteUpdatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Stats summarizes one aggregation pass
type Stats struct {
	Posts     int `json:"posts"`
	Stale     int `json:"stale"`
	Uncertain int `json:"uncertain"`
	Rankings  int `json:"rankings"`
}

// Aggregator builds rankings from raw posts
type Aggregator struct {
	store        Store
	classifier   classify.PostClassifier
	maxPostAge   time.Duration
	retention    time.Duration
	uncertainDir string
	logger       *zap.Logger
	now          func() time.Time
}

// New creates a new aggregator
func New(store Store, classifier classify.PostClassifier, cfg config.JobsConfig, logger *zap.Logger) *Aggregator {
	maxAge := cfg.MaxPostAge
	if maxAge <= 0 {
		maxAge = 7
	}
	retention := cfg.RetentionDays
	if retention <= 0 {
		retention = 7
	}
	return &Aggregator{
		store:        store,
		classifier:   classifier,
		maxPostAge:   time.Duration(maxAge) * 24 * time.Hour,
		retention:    time.Duration(retention) * 24 * time.Hour,
		uncertainDir: cfg.UncertainDir,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type group struct {
	category models.Category
	keyword  string
	score    float64
	posts    []models.RawPost
}

// Run performs one aggregation pass
func (a *Aggregator) Run(ctx context.Context) (Stats, error) {
	now := a.now()
	cutoff := now.Add(-a.maxPostAge)

	posts, err := a.store.RawPostsSince(ctx, cutoff)
	if err != nil {
		return Stats{}, apperr.Upstream("failed to load raw posts", 0, "", err)
	}

	stats := Stats{Posts: len(posts)}
	groups := make(map[string]*group)
	var order []string
	var uncertain []classify.UncertainPost

	for _, p := range posts {
		if p.PostDate != nil && p.PostDate.Before(cutoff) {
			stats.Stale++
			continue
		}

		result := a.classifier.ClassifyPost(ctx, p.Title, postContent(p))
		if result.Uncertain {
			uncertain = append(uncertain, toUncertain(p, result))
		}

		keyword := apperr.Truncate(p.Title, maxKeywordLen)
		key := string(result.Category) + "\x00" + keyword
		g, ok := groups[key]
		if !ok {
			g = &group{category: result.Category, keyword: keyword}
			groups[key] = g
			order = append(order, key)
		}
		g.score += p.Score()
		g.posts = append(g.posts, p)
	}

	byCategory := make(map[models.Category][]*group)
	for _, key := range order {
		g := groups[key]
		byCategory[g.category] = append(byCategory[g.category], g)
	}

	var rankings []models.Ranking
	for _, category := range models.Categories {
		list := byCategory[category]
		if len(list) == 0 {
			continue
		}

		previous, err := a.previousPositions(ctx, category)
		if err != nil {
			return stats, err
		}

		sort.SliceStable(list, func(i, j int) bool {
			return list[i].score > list[j].score
		})
		for i, g := range list {
			r := g.toRanking(now)
			top := g.top()
			if summary := a.classifier.SummarizePost(ctx, top.Title, postContent(top)); summary != "" {
				r.Summary = &summary
			}
			if prev, ok := previous[g.keyword]; ok {
				r.RankChange = prev - (i + 1)
			}
			rankings = append(rankings, r)
		}
	}

	if err := a.store.Upsert(ctx, rankings); err != nil {
		return stats, apperr.Upstream("failed to upsert rankings", 0, "", err)
	}
	stats.Rankings = len(rankings)
	stats.Uncertain = len(uncertain)
	a.exportUncertain(uncertain, now)

	a.logger.Info("aggregation complete",
		zap.Int("posts", stats.Posts),
		zap.Int("stale", stats.Stale),
		zap.Int("uncertain", stats.Uncertain),
		zap.Int("rankings", stats.Rankings))
	return stats, nil
}

// exportUncertain writes the low-confidence posts for manual review when an
// export directory is configured. A failed export does not fail the pass.
func (a *Aggregator) exportUncertain(posts []classify.UncertainPost, now time.Time) {
	if a.uncertainDir == "" || len(posts) == 0 {
		return
	}
	path, err := classify.ExportUncertain(a.uncertainDir, posts, now)
	if err != nil {
		a.logger.Warn("uncertain post export failed", zap.Error(err))
		return
	}
	a.logger.Info("uncertain posts exported", zap.String("path", path), zap.Int("count", len(posts)))
}

func postContent(p models.RawPost) string {
	if p.Content == nil {
		return ""
	}
	return *p.Content
}

func toUncertain(p models.RawPost, r classify.Result) classify.UncertainPost {
	u := classify.UncertainPost{Source: p.Source, Title: p.Title, Confidence: r.Confidence, Matched: r.Matched}
	if p.URL != nil {
		u.URL = *p.URL
	}
	return u
}

// previousPositions returns the 1-based position of each keyword in the
// current standings of category
func (a *Aggregator) previousPositions(ctx context.Context, category models.Category) (map[string]int, error) {
	standings, err := a.store.Standings(ctx, category)
	if err != nil {
		return nil, apperr.Upstream(fmt.Sprintf("failed to load %s standings", category), 0, "", err)
	}
	positions := make(map[string]int, len(standings))
	for i, r := range standings {
		if _, seen := positions[r.Keyword]; !seen {
			positions[r.Keyword] = i + 1
		}
	}
	return positions, nil
}

// sortedPosts returns the group's posts, highest score first
func (g *group) sortedPosts() []models.RawPost {
	posts := append([]models.RawPost(nil), g.posts...)
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Score() > posts[j].Score()
	})
	return posts
}

func (g *group) top() models.RawPost {
	return g.sortedPosts()[0]
}

// toRanking uses the keyword as the summary; the caller may replace it
func (g *group) toRanking(now time.Time) models.Ranking {
	posts := g.sortedPosts()

	var urls pq.StringArray
	seen := make(map[string]bool)
	var thumbnail *string
	for _, p := range posts {
		if p.URL != nil && *p.URL != "" && !seen[*p.URL] {
			seen[*p.URL] = true
			urls = append(urls, *p.URL)
		}
		if thumbnail == nil && p.ThumbnailURL != nil && *p.ThumbnailURL != "" {
			thumbnail = p.ThumbnailURL
		}
	}
	if urls == nil {
		urls = pq.StringArray{}
	}

	top := posts[0]
	source := top.Source
	keyword := g.keyword

	return models.Ranking{
		ID:              models.RankingID(g.category, g.keyword),
		Keyword:         g.keyword,
		Category:        g.category,
		PopularityScore: g.score,
		Summary:         &keyword,
		SourceURLs:      urls,
		Source:          &source,
		PostDate:        top.PostDate,
		ThumbnailURL:    thumbnail,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Cleanup deletes rankings that have not been refreshed within the
// retention period
func (a *Aggregator) Cleanup(ctx context.Context) (int64, error) {
	cutoff := a.now().Add(-a.retention)
	n, err := a.store.DeleteUpdatedBefore(ctx, cutoff)
	if err != nil {
		return 0, apperr.Upstream("failed to delete old rankings", 0, "", err)
	}
	a.logger.Info("retention cleanup complete", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	return n, nil
}
