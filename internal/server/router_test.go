package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"memeboard/internal/handlers"
	"memeboard/internal/rankings"
	"memeboard/internal/testutil"
)

func newTestRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	db := testutil.NewTestDB(t)
	return NewRouter(Handlers{
		Rankings:  handlers.NewRankingsHandler(rankings.NewService(rankings.NewRepository(db), zap.NewNop())),
		Summarize: handlers.NewSummarizeHandler(nil, zap.NewNop()),
		Image:     handlers.NewImageHandler(nil, zap.NewNop()),
		Health:    handlers.NewHealthHandler(nil),
		Docs:      handlers.NewDocsHandler(),
	}, zap.NewNop())
}

func TestRoutes(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/health", "/metrics", "/docs/api", "/api/rankings", "/api/raw-posts", "/api/worker/status"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"), path)
	}
}

func TestPreflight(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/summarize", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
