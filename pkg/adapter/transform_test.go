package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKeyTransform(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{TransformCamel, "PublishedAt"},
		{TransformCamelLower, "publishedAt"},
		{TransformDash, "published-at"},
		{TransformUnderscore, "published_at"},
		{TransformUnaltered, "published_At"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := LookupKeyTransform(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fn("published_At"))
		})
	}

	_, err := LookupKeyTransform("shout")
	assert.ErrorIs(t, err, ErrUnknownKeyTransform)
}

func TestTransformKeys_Nested(t *testing.T) {
	in := map[string]any{
		"post_title": "keep_me",
		"author_info": map[string]any{
			"first_name": "Ann",
		},
		"tag_list": []any{
			map[string]any{"tag_name": "go"},
			"plain_string",
		},
		"comment_rows": []map[string]any{{"comment_body": "hi"}},
	}

	got := TransformKeys(in, keyTransforms[TransformCamelLower])

	assert.Equal(t, map[string]any{
		"postTitle":  "keep_me",
		"authorInfo": map[string]any{"firstName": "Ann"},
		"tagList": []any{
			map[string]any{"tagName": "go"},
			"plain_string",
		},
		"commentRows": []any{map[string]any{"commentBody": "hi"}},
	}, got)
}

func TestTransformKeys_Scalars(t *testing.T) {
	fn := keyTransforms[TransformDash]
	assert.Equal(t, "a_b", TransformKeys("a_b", fn))
	assert.Equal(t, 3, TransformKeys(3, fn))
	assert.Nil(t, TransformKeys(nil, fn))
}
