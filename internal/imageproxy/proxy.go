// Package imageproxy relays remote images for origins that block hotlinking.
package imageproxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"memeboard/internal/apperr"
	"memeboard/internal/fetcher"
)

// Response headers for relayed images
const (
	CacheControl = "public, max-age=3600, s-maxage=3600"
	AllowOrigin  = "*"
)

const defaultContentType = "image/jpeg"

// MaxImageBytes is the largest image relayed
const MaxImageBytes = 10 << 20

// extensionTypes maps URL extensions to the type served for mislabeled images
var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Fetcher performs the upstream GET
type Fetcher interface {
	Fetch(ctx context.Context, targetURL string, r fetcher.Request) (*fetcher.Response, error)
}

// Image is a relayable image
type Image struct {
	ContentType string
	Body        []byte
}

// Proxy fetches images with a browser identity and an origin Referer
type Proxy struct {
	fetcher   Fetcher
	userAgent string
	timeout   time.Duration
}

// New creates a new image proxy
func New(f Fetcher, userAgent string, timeout time.Duration) *Proxy {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Proxy{fetcher: f, userAgent: userAgent, timeout: timeout}
}

// Fetch validates rawURL, fetches it and checks that the body is an image.
// rawURL may still be percent-encoded once more; it is decoded exactly once.
func (p *Proxy) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	if rawURL == "" {
		return nil, apperr.Validation("url parameter is required")
	}

	decoded, err := url.PathUnescape(rawURL)
	if err != nil {
		decoded = rawURL
	}

	target, err := url.Parse(decoded)
	if err != nil || target.Host == "" {
		return nil, apperr.Validation("Invalid URL format")
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, apperr.Validation("Invalid protocol")
	}

	headers := map[string]string{
		"Accept":          "image/avif,image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8",
		"Accept-Language": "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7",
		"Referer":         target.Scheme + "://" + target.Host + "/",
		"Sec-Fetch-Dest":  "image",
		"Sec-Fetch-Mode":  "no-cors",
		"Sec-Fetch-Site":  "cross-site",
	}
	if p.userAgent != "" {
		headers["User-Agent"] = p.userAgent
	}

	resp, err := p.fetcher.Fetch(ctx, target.String(), fetcher.Request{
		Timeout:  p.timeout,
		Headers:  headers,
		MaxBytes: MaxImageBytes,
	})
	if err != nil {
		return nil, err
	}

	contentType := strings.TrimSpace(resp.ContentType)
	if contentType == "" {
		contentType = defaultContentType
	}
	if !isImage(contentType) {
		return nil, apperr.Validation(fmt.Sprintf("Not an image: %s", contentType))
	}
	if len(resp.Body) == 0 {
		return nil, apperr.Validation("Empty image response")
	}

	if isMislabeled(contentType) {
		contentType = inferType(target, resp.Body)
	}

	return &Image{ContentType: contentType, Body: resp.Body}, nil
}

func isImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") ||
		isMislabeled(contentType)
}

func isMislabeled(contentType string) bool {
	return strings.HasPrefix(contentType, "application/octet-stream") ||
		strings.Contains(contentType, "binary")
}

// inferType picks a type from the URL extension, then from the bytes
func inferType(target *url.URL, body []byte) string {
	if t, ok := extensionTypes[strings.ToLower(path.Ext(target.Path))]; ok {
		return t
	}
	if detected := mimetype.Detect(body); strings.HasPrefix(detected.String(), "image/") {
		return detected.String()
	}
	return defaultContentType
}

// StatusFor maps a proxy error to the status returned to the client
func StatusFor(err error) int {
	e, ok := apperr.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch {
	case e.Kind == apperr.KindValidation:
		return http.StatusBadRequest
	case errors.Is(err, fetcher.ErrTooLarge):
		return http.StatusBadGateway
	case e.Kind == apperr.KindFetch && e.Timeout:
		return http.StatusRequestTimeout
	case e.Kind == apperr.KindFetch && e.Status >= 400:
		return e.Status
	default:
		return http.StatusInternalServerError
	}
}

// Message is the client-facing error text
func Message(err error) string {
	e, ok := apperr.As(err)
	if !ok {
		return "Failed to proxy image"
	}
	switch {
	case errors.Is(err, fetcher.ErrTooLarge):
		return "Image too large"
	case e.Kind == apperr.KindFetch && e.Timeout:
		return "Request timeout"
	case e.Kind == apperr.KindFetch && e.Status >= 400:
		return fmt.Sprintf("Failed to fetch image: %d", e.Status)
	case e.Kind == apperr.KindFetch:
		return "Failed to proxy image: " + e.Msg
	default:
		return e.Msg
	}
}
