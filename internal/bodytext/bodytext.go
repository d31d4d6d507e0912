// Package bodytext turns community posts into short plain-text excerpts
// that can be handed to the summarization model.
package bodytext

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"memeboard/internal/metrics"
)

const (
	// MaxURLs is the number of source pages read per request
	MaxURLs = 3
	// MaxExcerptLen caps each excerpt, in characters
	MaxExcerptLen = 800
	// MinExcerptLen is the shortest excerpt worth keeping
	MinExcerptLen = 50

	separator = "\n---\n"
)

// Reasons a page contributed no excerpt
const (
	ReasonFetchFailed = "fetch_failed"
	ReasonTooShort    = "too_short"
)

// entityReplacer decodes the entities left behind after tag stripping
var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&#34;", `"`,
	"&#39;", "'",
	"&quot;", `"`,
)

// HTMLFetcher fetches a page body as UTF-8 text
type HTMLFetcher interface {
	FetchHTML(ctx context.Context, pageURL string) (string, error)
}

// Miss records a page that contributed nothing
type Miss struct {
	URL    string
	Reason string
}

// Excerpt is the combined text of the usable pages
type Excerpt struct {
	Text   string
	Misses []Miss
}

// Extractor reads source pages and produces an excerpt
type Extractor struct {
	fetcher HTMLFetcher
	policy  *bluemonday.Policy
	logger  *zap.Logger
}

// NewExtractor creates a body-text extractor
func NewExtractor(fetcher HTMLFetcher, logger *zap.Logger) *Extractor {
	return &Extractor{
		fetcher: fetcher,
		policy:  newPolicy(),
		logger:  logger,
	}
}

func newPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.SkipElementsContent("script", "style", "nav", "header", "footer")
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// Extract reads up to MaxURLs pages in order and joins their excerpts.
// Pages that fail or are too short are skipped and recorded as misses.
func (e *Extractor) Extract(ctx context.Context, urls []string) Excerpt {
	if len(urls) > MaxURLs {
		urls = urls[:MaxURLs]
	}

	var parts []string
	var misses []Miss
	for _, u := range urls {
		body, err := e.fetcher.FetchHTML(ctx, u)
		if err != nil {
			misses = append(misses, Miss{URL: u, Reason: ReasonFetchFailed})
			metrics.RecordExtractor("bodytext", ReasonFetchFailed)
			e.logger.Debug("body text fetch failed", zap.String("url", u), zap.Error(err))
			continue
		}

		text := e.Clean(body)
		if utf8.RuneCountInString(text) < MinExcerptLen {
			misses = append(misses, Miss{URL: u, Reason: ReasonTooShort})
			metrics.RecordExtractor("bodytext", ReasonTooShort)
			continue
		}
		metrics.RecordExtractor("bodytext", "found")
		parts = append(parts, text)
	}

	return Excerpt{
		Text:   strings.Join(parts, separator),
		Misses: misses,
	}
}

// Clean strips markup from a page and returns at most MaxExcerptLen
// characters of normalized text
func (e *Extractor) Clean(rawHTML string) string {
	text := e.policy.Sanitize(rawHTML)
	text = entityReplacer.Replace(text)
	text = strings.Join(strings.Fields(text), " ")
	return truncate(text, MaxExcerptLen)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
