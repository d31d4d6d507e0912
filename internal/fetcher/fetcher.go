// Package fetcher retrieves remote pages and images on behalf of the
// extractors and the image proxy.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"

	"memeboard/internal/apperr"
	"memeboard/internal/config"
)

const (
	maxHTMLBytes  = 5 << 20
	maxImageBytes = 10 << 20
)

// ErrTooLarge is wrapped in the Fetch error returned for bodies over the
// request's MaxBytes
var ErrTooLarge = errors.New("response body exceeds size limit")

// Request customizes a single Fetch call
type Request struct {
	Timeout  time.Duration
	Headers  map[string]string
	MaxBytes int64
}

// Response is a fully read upstream response
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
	FinalURL    string
}

// Fetcher performs outbound GETs with a browser identity
type Fetcher struct {
	httpClient   *http.Client
	userAgent    string
	htmlTimeout  time.Duration
	imageTimeout time.Duration
}

// New creates a fetcher from configuration
func New(cfg config.FetchConfig) *Fetcher {
	return NewWithClient(cfg, &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 5 * time.Second,
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("stopped after 10 redirects")
			}
			return nil
		},
	})
}

// NewWithClient creates a fetcher around an existing client
func NewWithClient(cfg config.FetchConfig, client *http.Client) *Fetcher {
	f := &Fetcher{
		httpClient:   client,
		userAgent:    cfg.UserAgent,
		htmlTimeout:  cfg.HTMLTimeout,
		imageTimeout: cfg.ImageTimeout,
	}
	if f.htmlTimeout <= 0 {
		f.htmlTimeout = 5 * time.Second
	}
	if f.imageTimeout <= 0 {
		f.imageTimeout = 15 * time.Second
	}
	return f
}

// ImageTimeout is the budget used for image fetches
func (f *Fetcher) ImageTimeout() time.Duration {
	return f.imageTimeout
}

// UserAgent is the identity sent with every request
func (f *Fetcher) UserAgent() string {
	return f.userAgent
}

// FetchHTML fetches a page and returns its body decoded to UTF-8
func (f *Fetcher) FetchHTML(ctx context.Context, pageURL string) (string, error) {
	resp, err := f.Fetch(ctx, pageURL, Request{
		Timeout: f.htmlTimeout,
		Headers: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7",
		},
		MaxBytes: maxHTMLBytes,
	})
	if err != nil {
		return "", err
	}

	// Several community sites still serve EUC-KR
	reader, err := charset.NewReader(bytes.NewReader(resp.Body), resp.ContentType)
	if err != nil {
		return string(resp.Body), nil
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return string(resp.Body), nil
	}
	return string(decoded), nil
}

// Fetch performs a GET and reads the whole body. Non-2xx responses, network
// failures, timeouts and bodies over MaxBytes are returned as apperr Fetch
// errors.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string, r Request) (*Response, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = f.htmlTimeout
	}
	maxBytes := r.MaxBytes
	if maxBytes <= 0 {
		maxBytes = maxImageBytes
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, apperr.Fetch("failed to create request", 0, false, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Fetch("failed to fetch URL", 0, isTimeout(ctx, err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, apperr.Fetch(fmt.Sprintf("HTTP %d", resp.StatusCode), resp.StatusCode, false, nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, apperr.Fetch("failed to read response body", resp.StatusCode, isTimeout(ctx, err), err)
	}
	if int64(len(body)) > maxBytes {
		return nil, apperr.Fetch(fmt.Sprintf("response larger than %d bytes", maxBytes), 0, false, ErrTooLarge)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
