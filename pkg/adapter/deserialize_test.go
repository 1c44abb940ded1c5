package adapter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postDocument(t *testing.T) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{
		"data": {
			"type": "posts",
			"id": "42",
			"attributes": {
				"title": "Hello",
				"published-at": "2024-01-01",
				"extra-info": {"nested-key": 1}
			},
			"relationships": {
				"author": {"data": {"type": "people", "id": "9"}},
				"comments": {"data": [{"type": "comments", "id": "1"}, {"type": "comments", "id": "2"}]},
				"parent": {"data": null}
			}
		}
	}`), &doc))
	return doc
}

func TestParse(t *testing.T) {
	got, err := Parse(postDocument(t), ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"id":           "42",
		"title":        "Hello",
		"published_at": "2024-01-01",
		"extra_info":   map[string]any{"nested_key": float64(1)},
		"author_id":    "9",
		"comment_ids":  []any{"1", "2"},
		"parent_id":    nil,
	}, got)
}

func TestParse_Options(t *testing.T) {
	tests := []struct {
		name string
		opts ParseOptions
		want map[string]any
	}{
		{
			name: "only",
			opts: ParseOptions{Only: []string{"title", "author"}},
			want: map[string]any{"id": "42", "title": "Hello", "author_id": "9"},
		},
		{
			name: "except",
			opts: ParseOptions{Except: []string{"published-at", "extra-info", "comments", "parent"}},
			want: map[string]any{"id": "42", "title": "Hello", "author_id": "9"},
		},
		{
			name: "keys",
			opts: ParseOptions{Only: []string{"title", "author"}, Keys: map[string]string{"author": "user", "title": "name"}},
			want: map[string]any{"id": "42", "name": "Hello", "user_id": "9"},
		},
		{
			name: "polymorphic",
			opts: ParseOptions{Only: []string{"author", "parent"}, Polymorphic: []string{"author", "parent"}},
			want: map[string]any{"id": "42", "author_id": "9", "author_type": "Person", "parent_id": nil, "parent_type": nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(postDocument(t), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_InvalidDocuments(t *testing.T) {
	tests := []struct {
		name     string
		document any
		pointer  string
	}{
		{name: "not an object", document: []any{}, pointer: "/"},
		{name: "missing data", document: map[string]any{}, pointer: "/data"},
		{name: "data array", document: map[string]any{"data": []any{}}, pointer: "/data"},
		{name: "attributes", document: map[string]any{"data": map[string]any{"attributes": "x"}}, pointer: "/data/attributes"},
		{name: "relationships", document: map[string]any{"data": map[string]any{"relationships": 1}}, pointer: "/data/relationships"},
		{
			name: "relationship without data",
			document: map[string]any{"data": map[string]any{
				"relationships": map[string]any{"author": map[string]any{"links": map[string]any{}}},
			}},
			pointer: "/data/relationships/author",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.document, ParseOptions{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidDocument)

			var docErr *InvalidDocumentError
			require.ErrorAs(t, err, &docErr)
			require.Len(t, docErr.Reasons, 1)
			assert.Equal(t, tt.pointer, docErr.Reasons[0].Pointer)

			assert.Equal(t, map[string]any{}, ParseLenient(tt.document, ParseOptions{}))
		})
	}
}

func TestParse_NullMembers(t *testing.T) {
	doc := map[string]any{"data": map[string]any{"type": "posts", "attributes": nil, "relationships": nil}}

	got, err := Parse(doc, ParseOptions{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParse_UnknownKeyTransform(t *testing.T) {
	_, err := Parse(postDocument(t), ParseOptions{KeyTransform: "nope"})
	assert.ErrorIs(t, err, ErrUnknownKeyTransform)
}

func TestInvalidDocumentError_JSONAPIErrors(t *testing.T) {
	err := &InvalidDocumentError{Reasons: []Reason{{Pointer: "/data", Detail: "expected an object"}}}

	errs := err.JSONAPIErrors()
	require.Len(t, errs, 1)
	assert.Equal(t, 400, *errs[0].Status)
	assert.Equal(t, "/data", errs[0].Source.Pointer)
	assert.Equal(t, "expected an object", errs[0].Detail)
	assert.Contains(t, err.Error(), "/data: expected an object")
}
