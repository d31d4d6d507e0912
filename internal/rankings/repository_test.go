package rankings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"memeboard/internal/models"
	"memeboard/internal/testutil"
)

func seedRanking(t *testing.T, db *gorm.DB, keyword string, category models.Category, score float64, createdAt time.Time) models.Ranking {
	t.Helper()
	r := models.Ranking{
		ID:              models.RankingID(category, keyword),
		Keyword:         keyword,
		Category:        category,
		PopularityScore: score,
		SourceURLs:      pq.StringArray{"https://gall.dcinside.com/board/view/?id=hit&no=1"},
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
	require.NoError(t, db.Create(&r).Error)
	return r
}

func TestRepositoryFindLatest(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	seedRanking(t, db, "밈", models.CategoryIssue, 10, now.Add(-2*time.Hour))
	latest := seedRanking(t, db, "밈", models.CategoryGame, 5, now.Add(-time.Hour))

	found, err := repo.FindLatest(ctx, "밈")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, latest.ID, found.ID)

	missing, err := repo.FindLatest(ctx, "없는 키워드")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepositoryApplyEnrichmentIsFillIn(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	seedRanking(t, db, "밈", models.CategoryIssue, 10, now)
	seedRanking(t, db, "밈", models.CategoryGame, 5, now)

	reaction := "반응이 뜨겁다"
	n, err := repo.ApplyEnrichment(ctx, "밈", models.Enrichment{CommunityReaction: &reaction})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	summary := "요약"
	_, err = repo.ApplyEnrichment(ctx, "밈", models.Enrichment{
		AISummary:    &summary,
		BestComments: models.BestComments{{Content: "최고의 댓글입니다", Likes: 3}},
	})
	require.NoError(t, err)

	found, err := repo.FindLatest(ctx, "밈")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.NotNil(t, found.AISummary)
	assert.Equal(t, "요약", *found.AISummary)
	require.NotNil(t, found.CommunityReaction)
	assert.Equal(t, "반응이 뜨겁다", *found.CommunityReaction)
	assert.Nil(t, found.ThumbnailURL)
	require.Len(t, found.BestComments, 1)
	assert.Equal(t, 3, found.BestComments[0].Likes)

	n, err = repo.ApplyEnrichment(ctx, "밈", models.Enrichment{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRepositoryListWindowAndCategory(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	seedRanking(t, db, "낮음", models.CategoryGame, 1, now.Add(-10*time.Minute))
	seedRanking(t, db, "높음", models.CategoryGame, 100, now.Add(-20*time.Minute))
	seedRanking(t, db, "다른분류", models.CategoryStock, 50, now.Add(-5*time.Minute))
	seedRanking(t, db, "오래됨", models.CategoryGame, 1000, now.Add(-2*time.Hour))

	rankings, err := repo.List(ctx, models.CategoryGame, now.Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, rankings, 2)
	assert.Equal(t, "높음", rankings[0].Keyword)
	assert.Equal(t, "낮음", rankings[1].Keyword)

	all, err := repo.List(ctx, "", now.Add(-time.Hour), 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "높음", all[0].Keyword)
	assert.Equal(t, "다른분류", all[1].Keyword)
}

func TestRepositoryRelated(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	seedRanking(t, db, "본문", models.CategorySports, 10, now)
	seedRanking(t, db, "관련1", models.CategorySports, 30, now)
	seedRanking(t, db, "관련2", models.CategorySports, 20, now)
	seedRanking(t, db, "무관", models.CategoryStock, 99, now)

	related, err := repo.Related(context.Background(), models.CategorySports, "본문", 5)
	require.NoError(t, err)
	require.Len(t, related, 2)
	assert.Equal(t, "관련1", related[0].Keyword)
	assert.Equal(t, "관련2", related[1].Keyword)
}

func TestRepositoryUpsertPreservesEnrichment(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	thumb := "https://cdn.example.com/a.jpg"
	first := models.Ranking{
		ID:              models.RankingID(models.CategoryIssue, "밈"),
		Keyword:         "밈",
		Category:        models.CategoryIssue,
		PopularityScore: 10,
		ThumbnailURL:    &thumb,
	}
	require.NoError(t, repo.Upsert(ctx, []models.Ranking{first}))

	summary := "요약"
	_, err := repo.ApplyEnrichment(ctx, "밈", models.Enrichment{AISummary: &summary})
	require.NoError(t, err)

	second := models.Ranking{
		ID:              models.RankingID(models.CategoryIssue, "밈"),
		Keyword:         "밈",
		Category:        models.CategoryIssue,
		PopularityScore: 42,
		RankChange:      3,
	}
	require.NoError(t, repo.Upsert(ctx, []models.Ranking{second}))

	var rows []models.Ranking
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 42.0, rows[0].PopularityScore)
	assert.Equal(t, 3, rows[0].RankChange)
	require.NotNil(t, rows[0].ThumbnailURL)
	assert.Equal(t, thumb, *rows[0].ThumbnailURL)
	require.NotNil(t, rows[0].AISummary)
	assert.Equal(t, "요약", *rows[0].AISummary)
}

func TestRepositoryDeleteUpdatedBefore(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	seedRanking(t, db, "최신", models.CategoryIssue, 1, now)
	seedRanking(t, db, "오래됨", models.CategoryIssue, 1, now.Add(-8*24*time.Hour))

	n, err := repo.DeleteUpdatedBefore(context.Background(), now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var count int64
	db.Model(&models.Ranking{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRepositoryMissingFields(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	seedRanking(t, db, "빈칸", models.CategoryIssue, 1, now)
	seedRanking(t, db, "채움", models.CategoryIssue, 2, now)

	thumb := "https://cdn.example.com/a.jpg"
	_, err := repo.ApplyEnrichment(ctx, "채움", models.Enrichment{
		ThumbnailURL: &thumb,
		BestComments: models.BestComments{{Content: "최고의 댓글입니다"}},
	})
	require.NoError(t, err)

	noThumb, err := repo.MissingThumbnails(ctx, 10)
	require.NoError(t, err)
	require.Len(t, noThumb, 1)
	assert.Equal(t, "빈칸", noThumb[0].Keyword)

	noComments, err := repo.MissingComments(ctx, 10)
	require.NoError(t, err)
	require.Len(t, noComments, 1)
	assert.Equal(t, "빈칸", noComments[0].Keyword)
}

func TestRepositoryRawPosts(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	posts := []models.RawPost{
		{Source: "dcinside", Title: "첫글", ScrapedAt: now.Add(-time.Hour)},
		{Source: "dcinside", Title: "둘째글", ScrapedAt: now},
		{Source: "ruliweb", Title: "루리글", ScrapedAt: now},
	}
	require.NoError(t, db.Create(&posts).Error)

	got, err := repo.RawPosts(context.Background(), "dcinside", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "둘째글", got[0].Title)

	recent, err := repo.RawPostsSince(context.Background(), now.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestRepositoryMissingSkipsEmptySourcesAndRotates(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	hot := seedRanking(t, db, "인기", models.CategoryIssue, 100, now)
	seedRanking(t, db, "보통", models.CategoryIssue, 10, now)
	empty := models.Ranking{Keyword: "출처없음", Category: models.CategoryIssue, PopularityScore: 500, SourceURLs: pq.StringArray{}}
	require.NoError(t, db.Create(&empty).Error)

	got, err := repo.MissingThumbnails(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "인기", got[0].Keyword)

	require.NoError(t, repo.MarkThumbnailChecked(ctx, []uuid.UUID{hot.ID}))

	got, err = repo.MissingThumbnails(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "보통", got[0].Keyword)

	got, err = repo.MissingComments(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "인기", got[0].Keyword)

	var stamped models.Ranking
	require.NoError(t, db.First(&stamped, "id = ?", hot.ID).Error)
	assert.NotNil(t, stamped.ThumbnailCheckedAt)
	assert.Nil(t, stamped.CommentsCheckedAt)
	assert.WithinDuration(t, hot.UpdatedAt, stamped.UpdatedAt, time.Second)
}
