package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"memeboard/internal/models"
	"memeboard/internal/rankings"
)

// RankingsHandler handles HTTP requests for rankings and raw posts
type RankingsHandler struct {
	service *rankings.Service
}

// NewRankingsHandler creates a new rankings handler
func NewRankingsHandler(service *rankings.Service) *RankingsHandler {
	return &RankingsHandler{service: service}
}

// List handles GET /api/rankings
func (h *RankingsHandler) List(c *gin.Context) {
	category, err := models.ParseCategory(c.Query("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	timeRange, err := models.ParseTimeRange(c.Query("time_range"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(rankings.DefaultLimit)))
	data := h.service.List(c.Request.Context(), rankings.Query{
		Category:  category,
		Limit:     limit,
		TimeRange: timeRange,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"count":   len(data),
	})
}

// Detail handles GET /api/rankings/detail
func (h *RankingsHandler) Detail(c *gin.Context) {
	keyword := c.Query("keyword")
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "keyword is required"})
		return
	}

	ranking := h.service.GetByKeyword(c.Request.Context(), keyword)
	if ranking == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Ranking not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": ranking})
}

// Related handles GET /api/rankings/related
func (h *RankingsHandler) Related(c *gin.Context) {
	keyword := c.Query("keyword")
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "keyword is required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(rankings.DefaultRelatedLimit)))
	data := h.service.RelatedToKeyword(c.Request.Context(), keyword, limit)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"count":   len(data),
	})
}

// RawPosts handles GET /api/raw-posts
func (h *RankingsHandler) RawPosts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(rankings.DefaultRawPostLimit)))
	data := h.service.RawPosts(c.Request.Context(), c.Query("source"), limit)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"count":   len(data),
	})
}
