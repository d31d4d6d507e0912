package metadata

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"memeboard/internal/metrics"
)

// Reasons reported when no thumbnail is found
const (
	ReasonFetchFailed = "fetch_failed"
	ReasonParseFailed = "parse_failed"
	ReasonNoCandidate = "no_candidate"
	ReasonInvalidURL  = "invalid_url"
)

// Where a thumbnail was found
const (
	ViaOGImage      = "og:image"
	ViaTwitterImage = "twitter:image"
	ViaImg          = "img"
)

// excludedImagePatterns marks inline images that are never content thumbnails
var excludedImagePatterns = []string{
	"icon",
	"logo",
	"emoji",
	"avatar",
	"profile",
	".gif",
	"1x1",
	"spacer",
	"blank",
	"loading",
}

// HTMLFetcher fetches a page body as UTF-8 text
type HTMLFetcher interface {
	FetchHTML(ctx context.Context, pageURL string) (string, error)
}

// Thumbnail is the outcome of a thumbnail extraction. URL is empty when
// nothing usable was found, in which case Reason says why.
type Thumbnail struct {
	URL    string
	Via    string
	Reason string
}

// Found reports whether a thumbnail URL was extracted
func (t Thumbnail) Found() bool {
	return t.URL != ""
}

// ThumbnailExtractor finds a representative image for a page
type ThumbnailExtractor struct {
	fetcher HTMLFetcher
	logger  *zap.Logger
}

// NewThumbnailExtractor creates a new thumbnail extractor
func NewThumbnailExtractor(fetcher HTMLFetcher, logger *zap.Logger) *ThumbnailExtractor {
	return &ThumbnailExtractor{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Extract fetches pageURL and returns its best thumbnail candidate. It never
// fails; problems are reported through Thumbnail.Reason.
func (te *ThumbnailExtractor) Extract(ctx context.Context, pageURL string) Thumbnail {
	result := te.extract(ctx, pageURL)
	if result.Found() {
		metrics.RecordExtractor("thumbnail", "found")
	} else {
		metrics.RecordExtractor("thumbnail", result.Reason)
		te.logger.Debug("no thumbnail extracted",
			zap.String("url", pageURL),
			zap.String("reason", result.Reason))
	}
	return result
}

func (te *ThumbnailExtractor) extract(ctx context.Context, pageURL string) Thumbnail {
	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" {
		return Thumbnail{Reason: ReasonInvalidURL}
	}

	body, err := te.fetcher.FetchHTML(ctx, pageURL)
	if err != nil {
		return Thumbnail{Reason: ReasonFetchFailed}
	}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return Thumbnail{Reason: ReasonParseFailed}
	}

	return FromDocument(doc, base)
}

// FromDocument picks a thumbnail from an already parsed page
func FromDocument(doc *html.Node, base *url.URL) Thumbnail {
	if content := findMetaImage(doc, "og:image"); content != "" {
		if resolved := resolveMeta(base, content); resolved != "" {
			return Thumbnail{URL: resolved, Via: ViaOGImage}
		}
	}

	if content := findMetaImage(doc, "twitter:image"); content != "" {
		if resolved := resolveMeta(base, content); resolved != "" {
			return Thumbnail{URL: resolved, Via: ViaTwitterImage}
		}
	}

	if src := findContentImage(doc, base); src != "" {
		return Thumbnail{URL: src, Via: ViaImg}
	}

	return Thumbnail{Reason: ReasonNoCandidate}
}

// findMetaImage returns the content of the first meta tag whose property or
// name equals key
func findMetaImage(doc *html.Node, key string) string {
	var found string

	var findMeta func(*html.Node)
	findMeta = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "meta" {
			var matched bool
			var content string
			for _, attr := range n.Attr {
				if (attr.Key == "property" || attr.Key == "name") && strings.EqualFold(attr.Val, key) {
					matched = true
				} else if attr.Key == "content" {
					content = strings.TrimSpace(attr.Val)
				}
			}
			if matched && content != "" {
				found = content
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findMeta(c)
		}
	}

	findMeta(doc)
	return found
}

// findContentImage returns the first <img> that is not decoration
func findContentImage(doc *html.Node, base *url.URL) string {
	var found string

	var findImg func(*html.Node)
	findImg = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "img" {
			for _, attr := range n.Attr {
				if attr.Key != "src" {
					continue
				}
				src := strings.TrimSpace(attr.Val)
				if src == "" || isExcludedImage(src) {
					break
				}
				if resolved := resolveImageSrc(base, src); resolved != "" {
					found = resolved
					return
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findImg(c)
		}
	}

	findImg(doc)
	return found
}

func isExcludedImage(src string) bool {
	lower := strings.ToLower(src)
	for _, pattern := range excludedImagePatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// resolveImageSrc makes an inline image source absolute. Relative paths
// without a leading slash and non-http schemes are skipped.
func resolveImageSrc(base *url.URL, src string) string {
	switch {
	case strings.HasPrefix(src, "//"):
		return "https:" + src
	case strings.HasPrefix(src, "/"):
		return base.Scheme + "://" + base.Host + src
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return src
	default:
		return ""
	}
}

// resolveMeta resolves a meta image value against the page URL
func resolveMeta(base *url.URL, content string) string {
	if strings.HasPrefix(content, "//") {
		return "https:" + content
	}
	ref, err := url.Parse(content)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}
