package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"memeboard/internal/config"
	"memeboard/internal/fetcher"
)

func newTestExtractor() *ThumbnailExtractor {
	f := fetcher.New(config.FetchConfig{
		UserAgent:   "memeboard-test",
		HTMLTimeout: time.Second,
	})
	return NewThumbnailExtractor(f, zap.NewNop())
}

func serveHTML(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestExtractThumbnailFromSamplePost(t *testing.T) {
	htmlContent, err := os.ReadFile("testdata/sample_post.html")
	if err != nil {
		t.Fatalf("Failed to read test HTML file: %v", err)
	}

	server := serveHTML(t, string(htmlContent))
	extractor := newTestExtractor()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	thumb := extractor.Extract(ctx, server.URL+"/board/view?no=1")

	// og:image is relative and resolves against the page
	expected := server.URL + "/data/images/2025/legend.jpg"
	if thumb.URL != expected {
		t.Errorf("Expected URL = %q, got %q", expected, thumb.URL)
	}
	if thumb.Via != ViaOGImage {
		t.Errorf("Expected Via = %q, got %q", ViaOGImage, thumb.Via)
	}
}

func TestExtractThumbnailPriority(t *testing.T) {
	tests := []struct {
		name        string
		html        string
		expectedURL string
		expectedVia string
	}{
		{
			name: "og image wins over twitter image",
			html: `<html><head>
				<meta name="twitter:image" content="https://example.com/tw.jpg">
				<meta property="og:image" content="https://example.com/og.jpg">
			</head><body><img src="https://example.com/body.jpg"></body></html>`,
			expectedURL: "https://example.com/og.jpg",
			expectedVia: ViaOGImage,
		},
		{
			name: "twitter image by property",
			html: `<html><head>
				<meta property="twitter:image" content="https://example.com/tw.jpg">
			</head><body><img src="https://example.com/body.jpg"></body></html>`,
			expectedURL: "https://example.com/tw.jpg",
			expectedVia: ViaTwitterImage,
		},
		{
			name:        "protocol relative image",
			html:        `<html><body><img src="//cdn.example.com/a.png"></body></html>`,
			expectedURL: "https://cdn.example.com/a.png",
			expectedVia: ViaImg,
		},
		{
			name: "excluded images are skipped",
			html: `<html><body>
				<img src="https://example.com/icon_home.png">
				<img src="https://example.com/Profile/me.jpg">
				<img src="https://example.com/spinner.GIF">
				<img src="https://example.com/ok.jpg">
			</body></html>`,
			expectedURL: "https://example.com/ok.jpg",
			expectedVia: ViaImg,
		},
		{
			name: "relative path without slash is skipped",
			html: `<html><body>
				<img src="images/a.jpg">
				<img src="data:image/png;base64,AAAA">
				<img src="https://example.com/b.jpg">
			</body></html>`,
			expectedURL: "https://example.com/b.jpg",
			expectedVia: ViaImg,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := serveHTML(t, tt.html)
			thumb := newTestExtractor().Extract(context.Background(), server.URL)
			if thumb.URL != tt.expectedURL {
				t.Errorf("Expected URL = %q, got %q", tt.expectedURL, thumb.URL)
			}
			if thumb.Via != tt.expectedVia {
				t.Errorf("Expected Via = %q, got %q", tt.expectedVia, thumb.Via)
			}
		})
	}
}

func TestExtractThumbnailRootRelativeImage(t *testing.T) {
	server := serveHTML(t, `<html><body><img src="/files/a.jpg"></body></html>`)

	thumb := newTestExtractor().Extract(context.Background(), server.URL+"/post/1")
	if thumb.URL != server.URL+"/files/a.jpg" {
		t.Errorf("Expected origin-relative URL, got %q", thumb.URL)
	}
}

func TestExtractThumbnailNoCandidate(t *testing.T) {
	server := serveHTML(t, `<html><body><p>text only</p><img src="/logo.png"></body></html>`)

	thumb := newTestExtractor().Extract(context.Background(), server.URL)
	if thumb.Found() {
		t.Errorf("Expected no thumbnail, got %q", thumb.URL)
	}
	if thumb.Reason != ReasonNoCandidate {
		t.Errorf("Expected reason %q, got %q", ReasonNoCandidate, thumb.Reason)
	}
}

func TestExtractThumbnailHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Not Found"))
	}))
	defer server.Close()

	thumb := newTestExtractor().Extract(context.Background(), server.URL)
	if thumb.Reason != ReasonFetchFailed {
		t.Errorf("Expected reason %q, got %q", ReasonFetchFailed, thumb.Reason)
	}
}

func TestExtractThumbnailInvalidURL(t *testing.T) {
	thumb := newTestExtractor().Extract(context.Background(), "not-a-valid-url")
	if thumb.Reason != ReasonInvalidURL {
		t.Errorf("Expected reason %q, got %q", ReasonInvalidURL, thumb.Reason)
	}
}

func TestExtractThumbnailTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	thumb := newTestExtractor().Extract(ctx, server.URL)
	if thumb.Found() {
		t.Error("Expected no thumbnail on timeout")
	}
}

func BenchmarkExtractThumbnail(b *testing.B) {
	htmlContent, err := os.ReadFile("testdata/sample_post.html")
	if err != nil {
		b.Fatalf("Failed to read test HTML file: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write(htmlContent)
	}))
	defer server.Close()

	extractor := newTestExtractor()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		extractor.Extract(context.Background(), server.URL)
	}
}
