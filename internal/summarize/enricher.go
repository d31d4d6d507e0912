// Package summarize produces and caches the AI enrichment of a ranking
// keyword: a short summary, the community reaction, a thumbnail and the
// best comments.
package summarize

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"memeboard/internal/apperr"
	"memeboard/internal/bodytext"
	"memeboard/internal/comments"
	"memeboard/internal/config"
	"memeboard/internal/keylock"
	"memeboard/internal/llm"
	"memeboard/internal/metadata"
	"memeboard/internal/metrics"
	"memeboard/internal/models"
)

const (
	// maxThumbnailURLs is how many source pages are tried for a thumbnail
	maxThumbnailURLs = 2
	defaultTimeout   = config.EnrichTimeout
)

// Request asks for the enrichment of one keyword
type Request struct {
	Keyword       string   `json:"keyword"`
	Title         string   `json:"title"`
	SourceURLs    []string `json:"source_urls"`
	ForceRefresh  bool     `json:"force_refresh"`
	ThumbnailOnly bool     `json:"thumbnail_only"`
}

// coalesceKey groups identical concurrent requests
func (r Request) coalesceKey() string {
	mode := "full"
	switch {
	case r.ThumbnailOnly:
		mode = "thumbnail"
	case r.ForceRefresh:
		mode = "refresh"
	}
	return mode + "\x00" + r.Keyword
}

// Result is the enrichment returned to callers
type Result struct {
	AISummary         *string             `json:"ai_summary,omitempty"`
	CommunityReaction *string             `json:"community_reaction"`
	ThumbnailURL      *string             `json:"thumbnail_url"`
	BestComments      models.BestComments `json:"best_comments"`
	Cached            bool                `json:"cached"`
	ThumbnailOnly     bool                `json:"thumbnail_only,omitempty"`
}

// MarshalJSON renders thumbnail-only results with just the thumbnail
func (r Result) MarshalJSON() ([]byte, error) {
	if r.ThumbnailOnly {
		return json.Marshal(struct {
			ThumbnailURL  *string `json:"thumbnail_url"`
			ThumbnailOnly bool    `json:"thumbnail_only"`
		}{r.ThumbnailURL, true})
	}
	type payload Result
	return json.Marshal(payload(r))
}

// ThumbnailSource finds a page's representative image
type ThumbnailSource interface {
	Extract(ctx context.Context, pageURL string) metadata.Thumbnail
}

// CommentSource finds a page's best comments
type CommentSource interface {
	Extract(ctx context.Context, pageURL string) comments.Result
}

// BodySource builds a text excerpt from source pages
type BodySource interface {
	Extract(ctx context.Context, urls []string) bodytext.Excerpt
}

// Store reads and writes enrichment columns
type Store interface {
	FindLatest(ctx context.Context, keyword string) (*models.Ranking, error)
	ApplyEnrichment(ctx context.Context, keyword string, e models.Enrichment) (int64, error)
}

// Deps are the collaborators of an Enricher. Store may be nil when the
// database is not configured; Locker defaults to a no-op.
type Deps struct {
	Store      Store
	Thumbnails ThumbnailSource
	Comments   CommentSource
	Body       BodySource
	Summarizer llm.Summarizer
	Locker     keylock.Locker
	Model      config.AnthropicConfig
	Logger     *zap.Logger
	Timeout    time.Duration
}

// Enricher runs the enrichment flow with a read-through cache. Concurrent
// requests for the same keyword and mode share one execution.
type Enricher struct {
	deps  Deps
	group singleflight.Group
}

// NewEnricher creates a new enricher
func NewEnricher(deps Deps) *Enricher {
	if deps.Locker == nil {
		deps.Locker = keylock.NoopLocker{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Timeout <= 0 {
		deps.Timeout = defaultTimeout
	}
	return &Enricher{deps: deps}
}

// Enrich returns the enrichment for req.Keyword, generating and storing it
// when there is no cached summary or ForceRefresh is set
func (e *Enricher) Enrich(ctx context.Context, req Request) (*Result, error) {
	req.Keyword = strings.TrimSpace(req.Keyword)
	if req.Keyword == "" {
		metrics.RecordEnrich("invalid")
		return nil, apperr.Validation("keyword is required")
	}
	if e.deps.Store == nil {
		metrics.RecordEnrich("config_error")
		return nil, apperr.Config("Database not configured")
	}

	// The shared run ignores the first caller's cancellation; each caller
	// still stops waiting when its own context is done
	ch := e.group.DoChan(req.coalesceKey(), func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.deps.Timeout)
		defer cancel()
		return e.enrichLocked(runCtx, req)
	})

	select {
	case <-ctx.Done():
		metrics.RecordEnrich("cancelled")
		return nil, apperr.Upstream("enrichment cancelled", 0, "", ctx.Err())
	case res := <-ch:
		if res.Shared {
			metrics.EnrichCoalesced.Inc()
		}
		if res.Err != nil {
			metrics.RecordEnrich(apperr.KindOf(res.Err).String())
			return nil, res.Err
		}
		result, _ := res.Val.(*Result)
		switch {
		case result.Cached:
			metrics.RecordEnrich("cached")
		case result.ThumbnailOnly:
			metrics.RecordEnrich("thumbnail_only")
		default:
			metrics.RecordEnrich("generated")
		}
		return result, nil
	}
}

func (e *Enricher) enrichLocked(ctx context.Context, req Request) (*Result, error) {
	release, err := e.deps.Locker.Acquire(ctx, req.Keyword)
	if err != nil {
		return nil, apperr.Upstream("failed to acquire keyword lock", 0, "", err)
	}
	defer release()

	return e.enrich(ctx, req)
}

func (e *Enricher) enrich(ctx context.Context, req Request) (*Result, error) {
	log := e.deps.Logger.With(zap.String("keyword", req.Keyword))

	if !req.ForceRefresh {
		existing, err := e.deps.Store.FindLatest(ctx, req.Keyword)
		if err != nil {
			return nil, apperr.Upstream("failed to read cached enrichment", 0, "", err)
		}
		if existing != nil && existing.AISummary != nil && *existing.AISummary != "" {
			log.Debug("serving cached enrichment")
			return cachedResult(existing), nil
		}
	}

	thumbnail := e.findThumbnail(ctx, req.SourceURLs)

	if req.ThumbnailOnly {
		if thumbnail != nil {
			if _, err := e.deps.Store.ApplyEnrichment(ctx, req.Keyword, models.Enrichment{ThumbnailURL: thumbnail}); err != nil {
				return nil, apperr.Upstream("failed to store thumbnail", 0, "", err)
			}
		}
		return &Result{ThumbnailURL: thumbnail, ThumbnailOnly: true}, nil
	}

	if err := e.deps.Model.ValidateModel(); err != nil {
		return nil, err
	}

	excerpt, scraped := e.gather(ctx, req.SourceURLs)
	for _, miss := range excerpt.Misses {
		log.Debug("source page skipped", zap.String("url", miss.URL), zap.String("reason", miss.Reason))
	}

	prompt := BuildPrompt(req.Keyword, req.Title, excerpt.Text, scraped)
	text, err := e.deps.Summarizer.Summarize(ctx, prompt)
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, apperr.Upstream("AI API call failed", 0, "", err)
	}

	if strings.TrimSpace(text) == "" {
		return nil, apperr.Upstream("AI API returned an empty summary", 0, "", nil)
	}

	sections := ParseResponse(text)
	best := comments.ToBestComments(scraped)
	if len(sections.Picked) > 0 {
		best = make(models.BestComments, 0, len(sections.Picked))
		for _, content := range sections.Picked {
			best = append(best, models.BestComment{Content: content})
		}
	}

	enrichment := models.Enrichment{
		AISummary:         models.StringPtr(sections.Summary),
		CommunityReaction: sections.Reaction,
		ThumbnailURL:      thumbnail,
		BestComments:      best,
	}
	if _, err := e.deps.Store.ApplyEnrichment(ctx, req.Keyword, enrichment); err != nil {
		return nil, apperr.Upstream("failed to store enrichment", 0, "", err)
	}

	log.Info("enrichment generated",
		zap.Bool("thumbnail", thumbnail != nil),
		zap.Int("comments", len(best)),
		zap.Int("excerpt_len", len(excerpt.Text)))

	return &Result{
		AISummary:         enrichment.AISummary,
		CommunityReaction: sections.Reaction,
		ThumbnailURL:      thumbnail,
		BestComments:      nilIfEmpty(best),
		Cached:            false,
	}, nil
}

func (e *Enricher) findThumbnail(ctx context.Context, urls []string) *string {
	if e.deps.Thumbnails == nil {
		return nil
	}
	for i, u := range urls {
		if i == maxThumbnailURLs {
			break
		}
		if thumb := e.deps.Thumbnails.Extract(ctx, u); thumb.Found() {
			return &thumb.URL
		}
	}
	return nil
}

// gather reads the body excerpt and the first page's comments concurrently
func (e *Enricher) gather(ctx context.Context, urls []string) (bodytext.Excerpt, []comments.Comment) {
	var excerpt bodytext.Excerpt
	var scraped []comments.Comment

	g, gctx := errgroup.WithContext(ctx)
	if e.deps.Body != nil {
		g.Go(func() error {
			excerpt = e.deps.Body.Extract(gctx, urls)
			return nil
		})
	}
	if e.deps.Comments != nil && len(urls) > 0 {
		g.Go(func() error {
			scraped = e.deps.Comments.Extract(gctx, urls[0]).Comments
			return nil
		})
	}
	_ = g.Wait()

	return excerpt, scraped
}

func cachedResult(r *models.Ranking) *Result {
	return &Result{
		AISummary:         r.AISummary,
		CommunityReaction: r.CommunityReaction,
		ThumbnailURL:      r.ThumbnailURL,
		BestComments:      nilIfEmpty(r.BestComments),
		Cached:            true,
	}
}

func nilIfEmpty(b models.BestComments) models.BestComments {
	if len(b) == 0 {
		return nil
	}
	return b
}
