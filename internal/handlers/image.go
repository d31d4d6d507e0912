package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"memeboard/internal/imageproxy"
	"memeboard/internal/metrics"
)

// ImageFetcher fetches a remote image for relay
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*imageproxy.Image, error)
}

// ImageHandler relays community images that refuse cross-site embedding
type ImageHandler struct {
	proxy  ImageFetcher
	logger *zap.Logger
}

// NewImageHandler creates a new image handler
func NewImageHandler(proxy ImageFetcher, logger *zap.Logger) *ImageHandler {
	return &ImageHandler{proxy: proxy, logger: logger}
}

// Proxy handles GET /api/image
func (h *ImageHandler) Proxy(c *gin.Context) {
	img, err := h.proxy.Fetch(c.Request.Context(), c.Query("url"))
	if err != nil {
		status := imageproxy.StatusFor(err)
		metrics.RecordImageProxy(strconv.Itoa(status))
		h.logger.Warn("image proxy failed", zap.Int("status", status), zap.Error(err))
		c.JSON(status, gin.H{"error": imageproxy.Message(err)})
		return
	}

	metrics.RecordImageProxy(strconv.Itoa(http.StatusOK))
	c.Header("Cache-Control", imageproxy.CacheControl)
	c.Header("Access-Control-Allow-Origin", imageproxy.AllowOrigin)
	c.Data(http.StatusOK, img.ContentType, img.Body)
}
