package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation", Validation("keyword is required"), http.StatusBadRequest},
		{"not found", NotFound("no ranking"), http.StatusNotFound},
		{"config", Config("missing key"), http.StatusInternalServerError},
		{"upstream", Upstream("model", 529, "overloaded", nil), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("enrich: %w", Config("ANTHROPIC_API_KEY not configured"))

	assert.True(t, Is(err, KindConfig))
	assert.False(t, Is(err, KindUpstream))
	assert.Equal(t, KindUnknown, KindOf(errors.New("x")))
}

func TestUpstreamTruncatesDetail(t *testing.T) {
	body := strings.Repeat("가", 500)
	err := Upstream("model call failed", 500, body, nil)

	e, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, 200, len([]rune(e.Detail)))
	assert.Equal(t, 500, e.Status)
	assert.Contains(t, e.Error(), "status 500")
}
