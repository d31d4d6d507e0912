// Package server wires the HTTP routes.
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"memeboard/internal/handlers"
	"memeboard/internal/logging"
)

// Handlers are the route handlers of the API
type Handlers struct {
	Rankings  *handlers.RankingsHandler
	Summarize *handlers.SummarizeHandler
	Image     *handlers.ImageHandler
	Health    *handlers.HealthHandler
	Docs      *handlers.DocsHandler
}

// NewRouter builds the gin engine with middleware and every route
func NewRouter(h Handlers, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.GinMiddleware(logger))
	r.Use(cors())

	r.GET("/health", h.Health.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/docs/:doc", h.Docs.ServeMarkdownAsHTML)

	api := r.Group("/api")
	{
		rankings := api.Group("/rankings")
		{
			rankings.GET("", h.Rankings.List)
			rankings.GET("/detail", h.Rankings.Detail)
			rankings.GET("/related", h.Rankings.Related)
		}

		api.GET("/raw-posts", h.Rankings.RawPosts)
		api.POST("/summarize", h.Summarize.Summarize)
		api.GET("/image", h.Image.Proxy)

		worker := api.Group("/worker")
		{
			worker.GET("/status", h.Health.WorkerStatus)
		}
	}

	return r
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
