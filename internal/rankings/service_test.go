package rankings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"memeboard/internal/models"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindLatest(ctx context.Context, keyword string) (*models.Ranking, error) {
	args := m.Called(ctx, keyword)
	r, _ := args.Get(0).(*models.Ranking)
	return r, args.Error(1)
}

func (m *mockStore) List(ctx context.Context, category models.Category, since time.Time, limit int) ([]models.Ranking, error) {
	args := m.Called(ctx, category, since, limit)
	r, _ := args.Get(0).([]models.Ranking)
	return r, args.Error(1)
}

func (m *mockStore) Related(ctx context.Context, category models.Category, excludeKeyword string, limit int) ([]models.Ranking, error) {
	args := m.Called(ctx, category, excludeKeyword, limit)
	r, _ := args.Get(0).([]models.Ranking)
	return r, args.Error(1)
}

func (m *mockStore) RawPosts(ctx context.Context, source string, limit int) ([]models.RawPost, error) {
	args := m.Called(ctx, source, limit)
	r, _ := args.Get(0).([]models.RawPost)
	return r, args.Error(1)
}

func newTestService(store Store, now time.Time) *Service {
	s := NewService(store, zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func TestServiceListUsesWindow(t *testing.T) {
	now := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		timeRange models.TimeRange
		since     time.Time
	}{
		{models.TimeRangeRealtime, now.Add(-30 * time.Minute)},
		{models.TimeRange1h, now.Add(-time.Hour)},
		{models.TimeRange12h, now.Add(-12 * time.Hour)},
		{models.TimeRange24h, now.Add(-24 * time.Hour)},
		{"", now.Add(-24 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(string(tt.timeRange), func(t *testing.T) {
			store := new(mockStore)
			store.On("List", mock.Anything, models.CategoryGame, tt.since, DefaultLimit).
				Return([]models.Ranking{{Keyword: "게임"}}, nil)

			rankings := newTestService(store, now).List(context.Background(), Query{
				Category:  models.CategoryGame,
				TimeRange: tt.timeRange,
			})
			assert.Len(t, rankings, 1)
			store.AssertExpectations(t)
		})
	}
}

func TestServiceListClampsLimit(t *testing.T) {
	now := time.Now().UTC()
	store := new(mockStore)
	store.On("List", mock.Anything, models.Category(""), mock.Anything, MaxLimit).
		Return([]models.Ranking{}, nil)

	newTestService(store, now).List(context.Background(), Query{Limit: 500})
	store.AssertExpectations(t)
}

func TestServiceAbsorbsStorageErrors(t *testing.T) {
	store := new(mockStore)
	boom := errors.New("connection refused")
	store.On("List", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, boom)
	store.On("FindLatest", mock.Anything, "밈").Return(nil, boom)
	store.On("Related", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, boom)
	store.On("RawPosts", mock.Anything, mock.Anything, mock.Anything).Return(nil, boom)

	s := newTestService(store, time.Now().UTC())
	ctx := context.Background()

	list := s.List(ctx, Query{})
	require.NotNil(t, list)
	assert.Empty(t, list)

	assert.Nil(t, s.GetByKeyword(ctx, "밈"))

	related := s.Related(ctx, models.CategoryIssue, "밈", 5)
	require.NotNil(t, related)
	assert.Empty(t, related)

	posts := s.RawPosts(ctx, "", 0)
	require.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestServiceRelatedToKeyword(t *testing.T) {
	store := new(mockStore)
	store.On("FindLatest", mock.Anything, "밈").
		Return(&models.Ranking{Keyword: "밈", Category: models.CategoryCelebrity}, nil)
	store.On("Related", mock.Anything, models.CategoryCelebrity, "밈", DefaultRelatedLimit).
		Return([]models.Ranking{{Keyword: "다른 밈"}}, nil)
	store.On("FindLatest", mock.Anything, "없음").Return(nil, nil)

	s := newTestService(store, time.Now().UTC())

	related := s.RelatedToKeyword(context.Background(), "밈", 0)
	require.Len(t, related, 1)
	assert.Equal(t, "다른 밈", related[0].Keyword)

	assert.Empty(t, s.RelatedToKeyword(context.Background(), "없음", 5))
	store.AssertExpectations(t)
}

func TestServiceGetByKeywordEmpty(t *testing.T) {
	store := new(mockStore)
	assert.Nil(t, newTestService(store, time.Now()).GetByKeyword(context.Background(), ""))
	store.AssertNotCalled(t, "FindLatest", mock.Anything, mock.Anything)
}
