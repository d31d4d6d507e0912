package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"memeboard/internal/apperr"
	"memeboard/internal/config"
	"memeboard/internal/llm"
	"memeboard/internal/models"
)

const (
	ModeRule = "rule"
	ModeLLM  = "llm"

	classifyContentLen   = 500
	summarizeContentLen  = 1000
	defaultLLMConfidence = 0.5
)

// PostClassifier assigns a category to a post and optionally summarizes it
type PostClassifier interface {
	ClassifyPost(ctx context.Context, title, content string) Result
	// SummarizePost returns "" when no summary is available
	SummarizePost(ctx context.Context, title, content string) string
}

var (
	_ PostClassifier = (*Classifier)(nil)
	_ PostClassifier = (*LLMClassifier)(nil)
)

// Select returns the classifier named by mode. The model classifier needs a
// usable model configuration; without one the keyword rules are used.
func Select(mode string, rules *Classifier, model llm.Summarizer, modelCfg config.AnthropicConfig, logger *zap.Logger) (PostClassifier, error) {
	mode, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}
	if mode == ModeRule {
		return rules, nil
	}
	if err := modelCfg.ValidateModel(); err != nil {
		logger.Warn("model classifier unavailable, using keyword rules", zap.Error(err))
		return rules, nil
	}
	return NewLLM(model, rules, logger), nil
}

// ParseMode validates a classifier mode name. Empty input means rule.
func ParseMode(s string) (string, error) {
	switch s {
	case "", ModeRule:
		return ModeRule, nil
	case ModeLLM:
		return ModeLLM, nil
	}
	return "", fmt.Errorf("unknown classifier %q", s)
}

const classifyPrompt = `한국어 커뮤니티 게시글을 분류해줘.

카테고리 설명:
- politics: 정치, 대통령, 국회, 선거, 정당
- sports: 스포츠, 축구, 야구, 농구, 선수, 리그
- celebrity: 연예인, 아이돌, 배우, 가수, 드라마
- stock: 주식, 코인, 경제, 기업, 투자
- game: 게임, e스포츠, 만화, 애니메이션
- issue: 위 카테고리에 해당하지 않는 일반 이슈

제목: %s%s

JSON 형식으로만 답변 (다른 텍스트 없이):
{"category": "카테고리명", "confidence": 0.0-1.0, "reason": "분류 이유 한 줄"}`

const summarizePrompt = `다음 게시글을 MZ세대 말투로 3줄 요약해줘.
- 이모지 1-2개 사용
- 핵심만 간결하게
- 재미있고 가볍게

제목: %s%s

요약:`

// LLMClassifier asks the model for each post's category. Any failed call or
// unreadable reply is answered by the keyword classifier instead.
type LLMClassifier struct {
	model    llm.Summarizer
	fallback *Classifier
	logger   *zap.Logger
}

// NewLLM creates a model-backed classifier
func NewLLM(model llm.Summarizer, fallback *Classifier, logger *zap.Logger) *LLMClassifier {
	if fallback == nil {
		fallback = New(DefaultThreshold)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMClassifier{model: model, fallback: fallback, logger: logger}
}

type llmVerdict struct {
	Category   string   `json:"category"`
	Confidence *float64 `json:"confidence"`
	Reason     string   `json:"reason"`
}

// ClassifyPost implements PostClassifier
func (c *LLMClassifier) ClassifyPost(ctx context.Context, title, content string) Result {
	prompt := fmt.Sprintf(classifyPrompt, title, contentPart(content, classifyContentLen))
	text, err := c.model.Summarize(ctx, prompt)
	if err != nil {
		c.logger.Warn("model classification failed, using keyword rules",
			zap.String("title", title), zap.Error(err))
		return c.fallback.Classify(title, content)
	}

	result, err := parseVerdict(text)
	if err != nil {
		c.logger.Warn("unreadable model classification, using keyword rules",
			zap.String("title", title), zap.Error(err))
		return c.fallback.Classify(title, content)
	}
	return result
}

// SummarizePost implements PostClassifier
func (c *LLMClassifier) SummarizePost(ctx context.Context, title, content string) string {
	prompt := fmt.Sprintf(summarizePrompt, title, contentPart(content, summarizeContentLen))
	text, err := c.model.Summarize(ctx, prompt)
	if err != nil {
		c.logger.Warn("post summary failed", zap.String("title", title), zap.Error(err))
		return ""
	}
	return strings.TrimSpace(text)
}

// parseVerdict reads the first JSON object in text. An unknown category
// becomes issue and confidence is clamped to [0, 1].
func parseVerdict(text string) (Result, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return Result{}, fmt.Errorf("no JSON object in reply %q", apperr.Truncate(text, 80))
	}

	var v llmVerdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &v); err != nil {
		return Result{}, fmt.Errorf("decode classification: %w", err)
	}

	category := models.Category(strings.ToLower(strings.TrimSpace(v.Category)))
	if !category.Valid() {
		category = models.CategoryIssue
	}

	confidence := defaultLLMConfidence
	if v.Confidence != nil {
		confidence = min(max(*v.Confidence, 0), 1)
	}

	var matched []string
	if v.Reason != "" {
		matched = []string{v.Reason}
	}
	return Result{Category: category, Confidence: confidence, Matched: matched}, nil
}

func contentPart(content string, n int) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	return "\n본문: " + apperr.Truncate(content, n)
}
