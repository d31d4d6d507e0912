// Package rankings reads and writes ranking rows.
package rankings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"memeboard/internal/models"
)

// upsertBatchSize bounds the rows sent in one INSERT
const upsertBatchSize = 50

// aggregatedColumns are overwritten when aggregation re-upserts a ranking.
// Enrichment columns are never overwritten here.
var aggregatedColumns = []string{
	"keyword",
	"category",
	"popularity_score",
	"summary",
	"source_urls",
	"source",
	"rank_change",
	"post_date",
	"created_at",
	"updated_at",
}

// Repository is the gorm-backed ranking store
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindLatest returns the most recently created row for keyword, or nil
func (r *Repository) FindLatest(ctx context.Context, keyword string) (*models.Ranking, error) {
	var ranking models.Ranking
	err := r.db.WithContext(ctx).
		Where("keyword = ?", keyword).
		Order("created_at DESC").
		First(&ranking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find ranking %q: %w", keyword, err)
	}
	return &ranking, nil
}

// ApplyEnrichment writes the non-empty enrichment fields to every row with
// keyword and returns the number of rows touched
func (r *Repository) ApplyEnrichment(ctx context.Context, keyword string, e models.Enrichment) (int64, error) {
	cols := e.Columns()
	if len(cols) == 0 {
		return 0, nil
	}
	cols["updated_at"] = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(&models.Ranking{}).
		Where("keyword = ?", keyword).
		Updates(cols)
	if result.Error != nil {
		return 0, fmt.Errorf("update ranking %q: %w", keyword, result.Error)
	}
	return result.RowsAffected, nil
}

// List returns rankings created at or after since, best first
func (r *Repository) List(ctx context.Context, category models.Category, since time.Time, limit int) ([]models.Ranking, error) {
	query := r.db.WithContext(ctx).
		Where("created_at >= ?", since)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var rankings []models.Ranking
	err := query.
		Order("popularity_score DESC").
		Limit(limit).
		Find(&rankings).Error
	if err != nil {
		return nil, fmt.Errorf("list rankings: %w", err)
	}
	return rankings, nil
}

// Related returns rankings in category other than excludeKeyword
func (r *Repository) Related(ctx context.Context, category models.Category, excludeKeyword string, limit int) ([]models.Ranking, error) {
	var rankings []models.Ranking
	err := r.db.WithContext(ctx).
		Where("category = ? AND keyword <> ?", category, excludeKeyword).
		Order("popularity_score DESC").
		Limit(limit).
		Find(&rankings).Error
	if err != nil {
		return nil, fmt.Errorf("list related rankings: %w", err)
	}
	return rankings, nil
}

// Standings returns every ranking in category ordered by popularity, used
// to compute rank changes between aggregation passes
func (r *Repository) Standings(ctx context.Context, category models.Category) ([]models.Ranking, error) {
	var rankings []models.Ranking
	err := r.db.WithContext(ctx).
		Select("id", "keyword", "category", "popularity_score").
		Where("category = ?", category).
		Order("popularity_score DESC").
		Find(&rankings).Error
	if err != nil {
		return nil, fmt.Errorf("load standings: %w", err)
	}
	return rankings, nil
}

// Upsert inserts rankings or refreshes their aggregated columns. An
// existing thumbnail is kept when the new row has none.
func (r *Repository) Upsert(ctx context.Context, rankings []models.Ranking) error {
	if len(rankings) == 0 {
		return nil
	}

	updates := clause.AssignmentColumns(aggregatedColumns)
	updates = append(updates, clause.Assignment{
		Column: clause.Column{Name: "thumbnail_url"},
		Value:  gorm.Expr("COALESCE(excluded.thumbnail_url, rankings.thumbnail_url)"),
	})

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: updates,
		}).
		CreateInBatches(&rankings, upsertBatchSize).Error
	if err != nil {
		return fmt.Errorf("upsert rankings: %w", err)
	}
	return nil
}

// DeleteUpdatedBefore removes rankings not refreshed since cutoff
func (r *Repository) DeleteUpdatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Delete(&models.Ranking{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete old rankings: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// MissingThumbnails returns rankings with source URLs but no thumbnail.
// Rows never attempted come first, then the least recently attempted.
func (r *Repository) MissingThumbnails(ctx context.Context, limit int) ([]models.Ranking, error) {
	rankings, err := r.missing(ctx, "thumbnail_url", "thumbnail_checked_at", limit)
	if err != nil {
		return nil, fmt.Errorf("list rankings without thumbnail: %w", err)
	}
	return rankings, nil
}

// MissingComments returns rankings with source URLs but no best comments,
// in the same order as MissingThumbnails
func (r *Repository) MissingComments(ctx context.Context, limit int) ([]models.Ranking, error) {
	rankings, err := r.missing(ctx, "best_comments", "comments_checked_at", limit)
	if err != nil {
		return nil, fmt.Errorf("list rankings without comments: %w", err)
	}
	return rankings, nil
}

func (r *Repository) missing(ctx context.Context, column, checkedColumn string, limit int) ([]models.Ranking, error) {
	var rankings []models.Ranking
	err := r.db.WithContext(ctx).
		Where(column + " IS NULL").
		Where("source_urls IS NOT NULL AND source_urls <> '{}'").
		Order(checkedColumn + " IS NOT NULL").
		Order(checkedColumn + " ASC").
		Order("popularity_score DESC").
		Limit(limit).
		Find(&rankings).Error
	return rankings, err
}

// MarkThumbnailChecked stamps a thumbnail backfill attempt on the rows
func (r *Repository) MarkThumbnailChecked(ctx context.Context, ids []uuid.UUID) error {
	return r.markChecked(ctx, "thumbnail_checked_at", ids)
}

// MarkCommentsChecked stamps a comment backfill attempt on the rows
func (r *Repository) MarkCommentsChecked(ctx context.Context, ids []uuid.UUID) error {
	return r.markChecked(ctx, "comments_checked_at", ids)
}

// markChecked leaves updated_at alone so retention still sees the last
// aggregation
func (r *Repository) markChecked(ctx context.Context, column string, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.Ranking{}).
		Where("id IN ?", ids).
		UpdateColumn(column, time.Now().UTC()).Error
	if err != nil {
		return fmt.Errorf("mark %s: %w", column, err)
	}
	return nil
}

// RawPosts returns the latest scraped posts, optionally for one source
func (r *Repository) RawPosts(ctx context.Context, source string, limit int) ([]models.RawPost, error) {
	query := r.db.WithContext(ctx)
	if source != "" {
		query = query.Where("source = ?", source)
	}

	var posts []models.RawPost
	err := query.
		Order("scraped_at DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list raw posts: %w", err)
	}
	return posts, nil
}

// RawPostsSince returns posts scraped at or after since
func (r *Repository) RawPostsSince(ctx context.Context, since time.Time) ([]models.RawPost, error) {
	var posts []models.RawPost
	err := r.db.WithContext(ctx).
		Where("scraped_at >= ?", since).
		Order("scraped_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list recent raw posts: %w", err)
	}
	return posts, nil
}
