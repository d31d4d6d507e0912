// Package comments extracts the most liked comments from community posts.
package comments

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"memeboard/internal/metrics"
	"memeboard/internal/models"
)

const (
	// MaxComments is the number of comments kept per page
	MaxComments = models.MaxBestComments

	minContentLen = 5
	maxContentLen = 200
)

// Reasons reported when no comments are extracted
const (
	ReasonInvalidURL  = "invalid_url"
	ReasonNoMatcher   = "no_matcher"
	ReasonFetchFailed = "fetch_failed"
	ReasonParseFailed = "parse_failed"
	ReasonNoComments  = "no_comments"
)

// Comment is a single scraped comment
type Comment struct {
	Content string
	Likes   int
	// Best is set when the site itself marks the comment as a best pick
	Best bool
}

// Result is the outcome of one extraction
type Result struct {
	Site     string
	Comments []Comment
	Reason   string
}

// Matcher knows how to find comments on one community site
type Matcher struct {
	Site  string
	Match func(u *url.URL) bool
	Parse func(doc *goquery.Document) []Comment
}

// Registry holds site matchers in registration order
type Registry struct {
	mu       sync.RWMutex
	matchers []Matcher
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a matcher. Earlier registrations take precedence.
func (r *Registry) Register(m Matcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matchers = append(r.matchers, m)
}

// Lookup returns the first matcher accepting u
func (r *Registry) Lookup(u *url.URL) (Matcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.matchers {
		if m.Match(u) {
			return m, true
		}
	}
	return Matcher{}, false
}

// HTMLFetcher fetches a page body as UTF-8 text
type HTMLFetcher interface {
	FetchHTML(ctx context.Context, pageURL string) (string, error)
}

// Extractor fetches a post and pulls its best comments
type Extractor struct {
	fetcher  HTMLFetcher
	registry *Registry
	logger   *zap.Logger
}

// NewExtractor creates a comment extractor. A nil registry uses the defaults.
func NewExtractor(fetcher HTMLFetcher, registry *Registry, logger *zap.Logger) *Extractor {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Extractor{
		fetcher:  fetcher,
		registry: registry,
		logger:   logger,
	}
}

// Extract returns up to MaxComments comments from pageURL ordered by likes.
// It never fails; an empty result carries a reason.
func (e *Extractor) Extract(ctx context.Context, pageURL string) Result {
	result := e.extract(ctx, pageURL)
	if len(result.Comments) > 0 {
		metrics.RecordExtractor("comments", "found")
	} else {
		metrics.RecordExtractor("comments", result.Reason)
		e.logger.Debug("no comments extracted",
			zap.String("url", pageURL),
			zap.String("site", result.Site),
			zap.String("reason", result.Reason))
	}
	return result
}

func (e *Extractor) extract(ctx context.Context, pageURL string) Result {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return Result{Reason: ReasonInvalidURL}
	}

	matcher, ok := e.registry.Lookup(u)
	if !ok {
		return Result{Reason: ReasonNoMatcher}
	}

	body, err := e.fetcher.FetchHTML(ctx, pageURL)
	if err != nil {
		return Result{Site: matcher.Site, Reason: ReasonFetchFailed}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Result{Site: matcher.Site, Reason: ReasonParseFailed}
	}

	comments := Rank(matcher.Parse(doc))
	if len(comments) == 0 {
		return Result{Site: matcher.Site, Reason: ReasonNoComments}
	}
	return Result{Site: matcher.Site, Comments: comments}
}

// Accept reports whether content has an acceptable length. Length is
// counted in characters, not bytes.
func Accept(content string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(content))
	return n > minContentLen && n < maxContentLen
}

// Rank filters comments by length, orders them by likes descending and keeps
// the top MaxComments. Ties keep page order.
func Rank(in []Comment) []Comment {
	out := make([]Comment, 0, len(in))
	for _, c := range in {
		c.Content = strings.TrimSpace(c.Content)
		if Accept(c.Content) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Best != out[j].Best {
			return out[i].Best
		}
		return out[i].Likes > out[j].Likes
	})
	if len(out) > MaxComments {
		out = out[:MaxComments]
	}
	return out
}

// ToBestComments converts scraped comments to the stored form
func ToBestComments(in []Comment) models.BestComments {
	if len(in) == 0 {
		return nil
	}
	out := make(models.BestComments, 0, len(in))
	for _, c := range in {
		out = append(out, models.BestComment{Content: c.Content, Likes: c.Likes})
	}
	return out
}
