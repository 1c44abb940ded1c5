package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rails-api/active-model-serializers-sub000/pkg/serializer"
)

func TestJSON_RootKey(t *testing.T) {
	b := newBlog()
	r := NewRenderer(blogRegistry(), nil)

	got := renderJSON(t, r, b.post, Options{Adapter: "json"})
	assert.JSONEq(t, `{"post": {
		"id": 42, "title": "New Post", "body": "Body",
		"comments": [{"id": 1, "body": "first"}, {"id": 2, "body": "second"}],
		"author": {"id": 9, "name": "Ann"}
	}}`, got)

	got = renderJSON(t, r, b.comments, Options{Adapter: "json", Include: ""})
	assert.JSONEq(t, `{"comments": [{"id": 1, "body": "first"}, {"id": 2, "body": "second"}]}`, got)
}

func TestJSON_RootOverrides(t *testing.T) {
	b := newBlog()
	reg := serializer.NewRegistry().MustRegister(
		serializer.NewDescriptor("Post").Attributes("title").RootKey("article"),
	)
	r := NewRenderer(reg, nil)

	assert.JSONEq(t, `{"article": {"title": "New Post"}}`, renderJSON(t, r, b.post, Options{Adapter: "json"}))
	assert.JSONEq(t, `{"articles": [{"title": "New Post"}]}`, renderJSON(t, r, []*serializer.Record{b.post}, Options{Adapter: "json"}))
	assert.JSONEq(t, `{"entry": {"title": "New Post"}}`, renderJSON(t, r, b.post, Options{Adapter: "json", Root: "entry"}))
}

func TestJSON_Meta(t *testing.T) {
	b := newBlog()
	r := NewRenderer(blogRegistry(), nil)

	got := renderJSON(t, r, b.author, Options{Adapter: "json", Meta: map[string]any{"total": 1}})
	assert.JSONEq(t, `{"author": {"id": 9, "name": "Ann", "posts": []}, "meta": {"total": 1}}`, got)

	got = renderJSON(t, r, b.author, Options{Adapter: "json", Meta: map[string]any{"total": 1}, MetaKey: "info"})
	assert.JSONEq(t, `{"author": {"id": 9, "name": "Ann", "posts": []}, "info": {"total": 1}}`, got)
}

func TestJSON_EmptyCollection(t *testing.T) {
	r := NewRenderer(blogRegistry(), nil)

	_, err := r.Render(context.Background(), []*serializer.Record{}, Options{Adapter: "json"})
	assert.ErrorIs(t, err, ErrUnknownRoot)

	assert.JSONEq(t, `{"posts": []}`,
		renderJSON(t, r, []*serializer.Record{}, Options{Adapter: "json", Serializer: "PostSerializer"}))
	assert.JSONEq(t, `{"articles": []}`,
		renderJSON(t, r, []*serializer.Record{}, Options{Adapter: "json", Root: "articles"}))
}

func TestJSON_ExplicitSerializer(t *testing.T) {
	b := newBlog()
	teaser := serializer.NewDescriptor("PostTeaser").Attributes("title")
	r := NewRenderer(blogRegistry().MustRegister(teaser), nil)

	got := renderJSON(t, r, b.post, Options{Adapter: "json", Serializer: "PostTeaserSerializer"})
	assert.JSONEq(t, `{"post": {"title": "New Post"}}`, got, "the root key follows the object type")

	got = renderJSON(t, r, b.post, Options{Adapter: "json", Descriptor: teaser})
	assert.JSONEq(t, `{"post": {"title": "New Post"}}`, got)

	_, err := r.Render(context.Background(), b.post, Options{Adapter: "json", Serializer: "MissingSerializer"})
	assert.ErrorIs(t, err, serializer.ErrNoSerializer)
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"json_api", "jsonapi", "JsonApi", "JSONAPI"} {
		a, err := Lookup(name)
		if assert.NoError(t, err, name) {
			assert.Equal(t, "json_api", a.Name())
		}
	}
	a, err := Lookup("FlatJson")
	assert.NoError(t, err)
	assert.Equal(t, "flat_json", a.Name())

	_, err = Lookup("xml")
	assert.ErrorIs(t, err, ErrUnknownAdapter)
}

func TestRender_UnknownNames(t *testing.T) {
	b := newBlog()
	r := NewRenderer(blogRegistry(), nil)

	_, err := r.Render(context.Background(), b.post, Options{Adapter: "xml"})
	assert.ErrorIs(t, err, ErrUnknownAdapter)

	_, err = r.Render(context.Background(), b.post, Options{KeyTransform: "shout"})
	assert.ErrorIs(t, err, ErrUnknownKeyTransform)
}
