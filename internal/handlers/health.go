package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusProvider reports the state of the background workers
type StatusProvider interface {
	GetStatus() map[string]interface{}
}

// HealthHandler serves liveness and worker status
type HealthHandler struct {
	workers StatusProvider
}

// NewHealthHandler creates a new health handler. workers may be nil when
// scheduled jobs are disabled.
func NewHealthHandler(workers StatusProvider) *HealthHandler {
	return &HealthHandler{workers: workers}
}

// HealthCheck handles GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "memeboard",
	})
}

// WorkerStatus handles GET /api/worker/status
func (h *HealthHandler) WorkerStatus(c *gin.Context) {
	if h.workers == nil {
		c.JSON(http.StatusOK, gin.H{"worker_status": gin.H{"running": false}})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"worker_status": h.workers.GetStatus(),
	})
}
