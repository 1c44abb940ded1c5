package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rails-api/active-model-serializers-sub000/pkg/adapter"
	"github.com/rails-api/active-model-serializers-sub000/pkg/serializer"
)

func TestIsJSONAPI(t *testing.T) {
	tests := []struct {
		accept string
		want   bool
	}{
		{accept: "", want: false},
		{accept: "application/json", want: false},
		{accept: "application/vnd.api+json", want: true},
		{accept: "application/vnd.api+json; charset=utf-8", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.accept, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Accept", tt.accept)
			assert.Equal(t, tt.want, IsJSONAPI(req))
		})
	}
}

func TestRenderDocument(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, RenderDocument(rec, http.StatusOK, map[string]any{"data": nil}, true))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, JSONAPIMediaType, rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data": null}`, rec.Body.String())
}

func TestRenderDocument_MarshalFailureWritesNothing(t *testing.T) {
	rec := httptest.NewRecorder()
	err := RenderDocument(rec, http.StatusOK, map[string]any{"bad": make(chan int)}, false)

	assert.Error(t, err)
	assert.Empty(t, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Content-Type"))
}

func TestRenderError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "not found", err: fmt.Errorf("post 7: %w", ErrNotFound), status: http.StatusNotFound, code: "not_found"},
		{name: "unknown adapter", err: fmt.Errorf("%w: xml", adapter.ErrUnknownAdapter), status: http.StatusBadRequest, code: "bad_request"},
		{name: "depth", err: adapter.ErrMaxDepthExceeded, status: http.StatusUnprocessableEntity, code: "unprocessable_entity"},
		{name: "no serializer", err: &serializer.NoSerializerError{TypeName: "Tag"}, status: http.StatusNotImplemented, code: "not_implemented"},
		{name: "other", err: errors.New("boom"), status: http.StatusInternalServerError, code: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			require.NoError(t, RenderError(rec, tt.err))
			assert.Equal(t, tt.status, rec.Code)

			var doc struct {
				Errors []map[string]any `json:"errors"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
			require.Len(t, doc.Errors, 1)
			assert.Equal(t, tt.code, doc.Errors[0]["code"])
			assert.Equal(t, tt.err.Error(), doc.Errors[0]["detail"])
		})
	}
}

func TestRenderError_InvalidDocument(t *testing.T) {
	err := &adapter.InvalidDocumentError{Reasons: []adapter.Reason{
		{Pointer: "/data", Detail: "expected an object"},
		{Pointer: "/data/relationships/author", Detail: "expected an object with a data member"},
	}}

	rec := httptest.NewRecorder()
	require.NoError(t, RenderError(rec, err))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var doc struct {
		Errors []struct {
			Source struct {
				Pointer string `json:"pointer"`
			} `json:"source"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Len(t, doc.Errors, 2)
	assert.Equal(t, "/data/relationships/author", doc.Errors[1].Source.Pointer)
}

func TestRenderFieldErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, RenderFieldErrors(rec, map[string][]string{"title": {"can't be blank"}}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pointer":"/data/attributes/title"`)
}
