package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"memeboard/internal/models"
)

func TestClassify(t *testing.T) {
	c := New(DefaultThreshold)

	tests := []struct {
		name       string
		title      string
		content    string
		category   models.Category
		confidence float64
	}{
		{"single match", "오늘 코스피 근황", "", models.CategoryStock, 1.0 / 3},
		{"saturates at three", "손흥민 선수 경기 우승 소감", "", models.CategorySports, 1},
		{"content counts", "이거 봤냐", "페이커 신작 게임 플레이", models.CategoryGame, 1},
		{"no match", "점심 뭐 먹지", "", models.CategoryIssue, 0.3},
		{"case insensitive", "KBO 개막", "", models.CategorySports, 1.0 / 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := c.Classify(tt.title, tt.content)
			assert.Equal(t, tt.category, r.Category)
			assert.InDelta(t, tt.confidence, r.Confidence, 1e-9)
		})
	}
}

func TestClassifyTieUsesPriority(t *testing.T) {
	c := NewWithKeywords(map[models.Category][]string{
		models.CategoryCelebrity: {"a"},
		models.CategoryGame:      {"b"},
		models.CategoryStock:     {"c"},
	}, DefaultThreshold)

	assert.Equal(t, models.CategoryStock, c.Classify("a b c", "").Category)
	assert.Equal(t, models.CategoryGame, c.Classify("a b", "").Category)
}

func TestClassifyBelowThresholdIsIssue(t *testing.T) {
	c := New(0.5)
	r := c.Classify("코스피 폭락", "")
	assert.Equal(t, models.CategoryIssue, r.Category)
	assert.Equal(t, []string{"코스피"}, r.Matched)
	assert.True(t, r.Uncertain)

	assert.False(t, c.Classify("점심 뭐 먹지", "").Uncertain)
}
