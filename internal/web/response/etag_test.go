package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestETag_StableAndWeak(t *testing.T) {
	a := ETag([]byte(`{"data":null}`))
	assert.Equal(t, a, ETag([]byte(`{"data":null}`)))
	assert.NotEqual(t, a, ETag([]byte(`{"data":[]}`)))
	assert.Regexp(t, `^W/"[0-9a-f]+"$`, a)
}

func TestMatchesETag(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{name: "empty", header: "", want: false},
		{name: "exact", header: `W/"abc"`, want: true},
		{name: "strong form", header: `"abc"`, want: true},
		{name: "list", header: `"x", W/"abc"`, want: true},
		{name: "other", header: `"x"`, want: false},
		{name: "star", header: "*", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesETag(`W/"abc"`, ParseIfNoneMatch(tt.header)))
		})
	}
}

func TestRenderConditional(t *testing.T) {
	doc := map[string]any{"data": nil}

	first := httptest.NewRecorder()
	require.NoError(t, RenderConditional(first, httptest.NewRequest(http.MethodGet, "/", nil), doc, false))
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.JSONEq(t, `{"data": null}`, first.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("If-None-Match", etag)
	second := httptest.NewRecorder()
	require.NoError(t, RenderConditional(second, req, doc, false))
	assert.Equal(t, http.StatusNotModified, second.Code)
	assert.Empty(t, second.Body.String())
}
