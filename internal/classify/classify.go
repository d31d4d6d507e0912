// Package classify assigns a category to a community post from keyword
// matches in its title and content.
package classify

import (
	"context"
	"strings"

	"memeboard/internal/models"
)

const (
	// DefaultThreshold is the confidence below which a post falls back to issue
	DefaultThreshold = 0.1

	// unmatchedConfidence is reported when no keyword matched at all
	unmatchedConfidence = 0.3
	saturation          = 3.0
)

// Priority breaks ties between categories with the same match count
var Priority = []models.Category{
	models.CategoryPolitics,
	models.CategoryStock,
	models.CategorySports,
	models.CategoryGame,
	models.CategoryCelebrity,
	models.CategoryIssue,
}

// Keywords is the match table per category. Entries are lowercase.
var Keywords = map[models.Category][]string{
	models.CategoryPolitics: {
		"대통령", "국회", "의원", "여당", "야당", "민주당", "국민의힘", "선거", "총선", "대선",
		"탄핵", "장관", "정부", "청와대", "대통령실", "정치", "국정감사", "법안", "특검",
	},
	models.CategoryStock: {
		"주식", "코스피", "코스닥", "주가", "상한가", "하한가", "증시", "나스닥", "비트코인",
		"코인", "etf", "배당", "공매도", "삼성전자", "환율", "금리", "부동산", "청약",
	},
	models.CategorySports: {
		"축구", "야구", "농구", "배구", "골프", "올림픽", "월드컵", "kbo", "epl", "손흥민",
		"이강인", "류현진", "감독", "선수", "경기", "우승", "국가대표", "리그",
	},
	models.CategoryGame: {
		"게임", "롤", "lol", "리그오브레전드", "메이플", "로스트아크", "배그", "스팀", "닌텐도",
		"플스", "ps5", "엑스박스", "e스포츠", "t1", "페이커", "신작", "업데이트", "가챠",
	},
	models.CategoryCelebrity: {
		"아이돌", "연예인", "배우", "가수", "드라마", "예능", "컴백", "데뷔", "열애", "결혼",
		"아이브", "뉴진스", "에스파", "bts", "방탄", "블랙핑크", "유튜버", "방송",
	},
	models.CategoryIssue: {
		"논란", "사건", "사고", "충격", "속보", "근황", "실화", "레전드", "역대급", "화제",
	},
}

// Result is the outcome of classifying one post
type Result struct {
	Category   models.Category
	Confidence float64
	Matched    []string
	// Uncertain marks a match too weak to trust; the post is filed as issue
	Uncertain bool
}

// Classifier is a keyword-table classifier
type Classifier struct {
	keywords  map[models.Category][]string
	threshold float64
}

// New creates a classifier on the default table
func New(threshold float64) *Classifier {
	return &Classifier{keywords: Keywords, threshold: threshold}
}

// NewWithKeywords creates a classifier on a custom table
func NewWithKeywords(keywords map[models.Category][]string, threshold float64) *Classifier {
	return &Classifier{keywords: keywords, threshold: threshold}
}

// Classify scores each category by the number of its keywords found in
// title and content. The best score wins, ties go to the earlier category
// in Priority, and no match or low confidence means issue.
func (c *Classifier) Classify(title, content string) Result {
	text := strings.ToLower(title)
	if content != "" {
		text += " " + strings.ToLower(content)
	}

	best := models.Category("")
	var bestMatched []string
	for _, category := range Priority {
		var matched []string
		for _, kw := range c.keywords[category] {
			if strings.Contains(text, strings.ToLower(kw)) {
				matched = append(matched, kw)
			}
		}
		if len(matched) > len(bestMatched) {
			best = category
			bestMatched = matched
		}
	}

	if len(bestMatched) == 0 {
		return Result{Category: models.CategoryIssue, Confidence: unmatchedConfidence}
	}

	confidence := float64(len(bestMatched)) / saturation
	if confidence > 1 {
		confidence = 1
	}
	if confidence < c.threshold {
		return Result{Category: models.CategoryIssue, Confidence: confidence, Matched: bestMatched, Uncertain: true}
	}
	return Result{Category: best, Confidence: confidence, Matched: bestMatched}
}

// ClassifyPost implements PostClassifier
func (c *Classifier) ClassifyPost(ctx context.Context, title, content string) Result {
	return c.Classify(title, content)
}

// SummarizePost implements PostClassifier. Keyword rules have no summary.
func (c *Classifier) SummarizePost(ctx context.Context, title, content string) string {
	return ""
}
