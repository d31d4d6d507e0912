package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"memeboard/internal/apperr"
	"memeboard/internal/summarize"
)

// Enricher produces the enrichment for one keyword
type Enricher interface {
	Enrich(ctx context.Context, req summarize.Request) (*summarize.Result, error)
}

// SummarizeHandler handles enrichment requests
type SummarizeHandler struct {
	enricher Enricher
	logger   *zap.Logger
}

// NewSummarizeHandler creates a new summarize handler
func NewSummarizeHandler(enricher Enricher, logger *zap.Logger) *SummarizeHandler {
	return &SummarizeHandler{enricher: enricher, logger: logger}
}

// Summarize handles POST /api/summarize
func (h *SummarizeHandler) Summarize(c *gin.Context) {
	var req summarize.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.enricher.Enrich(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("enrichment failed", zap.String("keyword", req.Keyword), zap.Error(err))
		c.JSON(apperr.HTTPStatus(err), errorBody(err))
		return
	}

	c.JSON(http.StatusOK, result)
}

// errorBody renders err as {error, status?, details?}
func errorBody(err error) gin.H {
	e, ok := apperr.As(err)
	if !ok {
		return gin.H{"error": "Internal server error"}
	}
	body := gin.H{"error": e.Msg}
	if e.Status != 0 {
		body["status"] = e.Status
	}
	if e.Detail != "" {
		body["details"] = e.Detail
	}
	return body
}
