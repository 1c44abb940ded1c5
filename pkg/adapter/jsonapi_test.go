package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rails-api/active-model-serializers-sub000/pkg/config"
	"github.com/rails-api/active-model-serializers-sub000/pkg/serializer"
)

func TestJSONAPI_NoInclude(t *testing.T) {
	reg := serializer.NewRegistry().MustRegister(
		serializer.NewDescriptor("Post").Attributes("title", "body").HasMany("comments"),
		serializer.NewDescriptor("Comment").Attributes("body"),
	)
	b := newBlog()

	got := renderMap(t, NewRenderer(reg, nil), b.post, Options{Adapter: "json_api"})
	assert.Equal(t, map[string]any{
		"data": map[string]any{
			"id":   "42",
			"type": "posts",
			"attributes": map[string]any{
				"title": "New Post",
				"body":  "Body",
			},
			"relationships": map[string]any{
				"comments": map[string]any{
					"data": []any{
						map[string]any{"type": "comments", "id": "1"},
						map[string]any{"type": "comments", "id": "2"},
					},
				},
			},
		},
	}, got)
	assert.NotContains(t, got, "included")
}

func TestJSONAPI_IncludedIsDeduplicated(t *testing.T) {
	b := newBlog()
	other := serializer.NewRecord("Post", map[string]any{"id": 43, "title": "Other", "body": "B", "author": b.author})
	r := NewRenderer(blogRegistry(), nil)

	got := renderMap(t, r, []*serializer.Record{b.post, other}, Options{Adapter: "json_api", Include: "author,comments.author"})

	included := got["included"].([]any)
	counts := make(map[string]int)
	for _, item := range included {
		ro := item.(map[string]any)
		counts[ro["type"].(string)+":"+ro["id"].(string)]++
	}
	assert.Equal(t, map[string]int{"authors:9": 1, "comments:1": 1, "comments:2": 1}, counts)
	assert.Len(t, got["data"], 2)
}

func TestJSONAPI_PrimaryNotRepeatedInIncluded(t *testing.T) {
	b := newBlog()
	b.author.Set("posts", []*serializer.Record{b.post})
	r := NewRenderer(blogRegistry(), nil)

	got := renderMap(t, r, b.post, Options{Adapter: "json_api", Include: "author.posts"})

	included := got["included"].([]any)
	require.Len(t, included, 1)
	assert.Equal(t, "authors", included[0].(map[string]any)["type"])
}

func TestJSONAPI_RecursiveIncludeTerminates(t *testing.T) {
	b := newBlog()
	b.author.Set("posts", []*serializer.Record{b.post})
	r := NewRenderer(blogRegistry(), nil)

	got := renderMap(t, r, b.post, Options{Adapter: "json_api", Include: "**"})
	assert.Len(t, got["included"], 3)
}

func TestJSONAPI_IncludedResource(t *testing.T) {
	b := newBlog()
	r := NewRenderer(blogRegistry(), nil)

	got := renderJSON(t, r, b.comments[0], Options{Adapter: "json_api", Include: "author"})
	assert.JSONEq(t, `{
		"data": {
			"id": "1", "type": "comments",
			"attributes": {"body": "first"},
			"relationships": {"author": {"data": {"type": "authors", "id": "9"}}}
		},
		"included": [{
			"id": "9", "type": "authors",
			"attributes": {"name": "Ann"},
			"relationships": {"posts": {"data": []}}
		}]
	}`, got)
}

func TestJSONAPI_IncludeDataPolicies(t *testing.T) {
	reg := serializer.NewRegistry().MustRegister(
		serializer.NewDescriptor("Post").
			Attributes("title").
			HasMany("comments", serializer.WithIncludeData(serializer.IncludeDataIfSideloaded)).
			BelongsTo("author", serializer.WithIncludeData(serializer.IncludeDataNever)).
			HasOne("editor",
				serializer.WithIncludeData(serializer.IncludeDataNever),
				serializer.AssociationLink("related", func(s *serializer.Serializer) any {
					return "/posts/42/editor"
				}),
				serializer.AssociationMeta(func(s *serializer.Serializer) map[string]any {
					return map[string]any{"role": "chief"}
				})),
		serializer.NewDescriptor("Comment").Attributes("body"),
		serializer.NewDescriptor("Author").Attributes("name"),
	)
	b := newBlog()
	r := NewRenderer(reg, nil)

	got := renderJSON(t, r, b.post, Options{Adapter: "json_api"})
	assert.JSONEq(t, `{
		"data": {
			"id": "42", "type": "posts",
			"attributes": {"title": "New Post"},
			"relationships": {
				"comments": {"meta": {}},
				"author": {"meta": {}},
				"editor": {"links": {"related": "/posts/42/editor"}, "meta": {"role": "chief"}}
			}
		}
	}`, got)

	doc := renderMap(t, r, b.post, Options{Adapter: "json_api", Include: "comments"})
	rels := doc["data"].(map[string]any)["relationships"].(map[string]any)
	assert.Len(t, rels["comments"].(map[string]any)["data"], 2, "sideloaded associations carry data")
	assert.Len(t, doc["included"], 2)
}

func TestJSONAPI_IncludeDataDefaultConfig(t *testing.T) {
	b := newBlog()
	cfg := config.Default()
	cfg.IncludeDataDefault = false

	doc := renderMap(t, NewRenderer(blogRegistry(), cfg), b.post, Options{Adapter: "json_api"})
	rels := doc["data"].(map[string]any)["relationships"].(map[string]any)
	assert.Equal(t, map[string]any{"meta": map[string]any{}}, rels["author"])
}

func TestJSONAPI_NilRelationship(t *testing.T) {
	b := newBlog()
	b.post.Set("author", nil)

	doc := renderMap(t, NewRenderer(blogRegistry(), nil), b.post, Options{Adapter: "json_api"})
	rels := doc["data"].(map[string]any)["relationships"].(map[string]any)
	assert.Equal(t, map[string]any{"data": nil}, rels["author"])
}

func TestJSONAPI_ToplevelMembers(t *testing.T) {
	b := newBlog()
	cfg := config.Default()
	cfg.JSONAPI.IncludeToplevelObject = true
	reg := serializer.NewRegistry().MustRegister(
		serializer.NewDescriptor("Post").
			Attributes("title").
			Link("self", func(s *serializer.Serializer) any { return "/posts/42" }).
			Meta(func(s *serializer.Serializer) map[string]any { return map[string]any{"words": 2} }),
	)

	got := renderJSON(t, NewRenderer(reg, cfg), b.post, Options{
		Adapter: "json_api",
		Meta:    map[string]any{"total": 1},
		Links:   map[string]any{"self": "/posts"},
	})
	assert.JSONEq(t, `{
		"data": {
			"id": "42", "type": "posts",
			"attributes": {"title": "New Post"},
			"links": {"self": "/posts/42"},
			"meta": {"words": 2}
		},
		"links": {"self": "/posts"},
		"meta": {"total": 1},
		"jsonapi": {"version": "1.0"}
	}`, got)
}

func TestJSONAPI_SparseFieldsets(t *testing.T) {
	b := newBlog()
	r := NewRenderer(blogRegistry(), nil)

	doc := renderMap(t, r, b.post, Options{
		Adapter: "json_api",
		Include: "comments",
		Fields:  map[string][]string{"posts": {"title", "comments"}, "comments": {}},
	})

	data := doc["data"].(map[string]any)
	assert.Equal(t, map[string]any{"title": "New Post"}, data["attributes"])
	assert.Contains(t, data["relationships"], "comments")
	assert.NotContains(t, data["relationships"], "author")

	for _, item := range doc["included"].([]any) {
		assert.NotContains(t, item, "attributes")
		assert.NotContains(t, item, "relationships")
	}
}

func TestJSONAPI_DashTransformAndTypes(t *testing.T) {
	reg := serializer.NewRegistry().MustRegister(
		serializer.NewDescriptor("BlogPost").Attributes("published_at").HasMany("tag_links"),
		serializer.NewDescriptor("TagLink").Attributes("label").Type("tag_link"),
	)
	post := serializer.NewRecord("blog::BlogPost", map[string]any{
		"id":           1,
		"published_at": "2024-01-01",
		"tag_links":    []*serializer.Record{serializer.NewRecord("TagLink", map[string]any{"id": 3, "label": "go"})},
	})

	got := renderJSON(t, NewRenderer(reg, nil), post, Options{Adapter: "json_api"})
	assert.JSONEq(t, `{
		"data": {
			"id": "1", "type": "blog-blog-posts",
			"attributes": {"published-at": "2024-01-01"},
			"relationships": {"tag-links": {"data": [{"type": "tag-link", "id": "3"}]}}
		}
	}`, got)
}

func TestJSONAPI_SingularResourceType(t *testing.T) {
	cfg := config.Default()
	cfg.JSONAPI.ResourceType = config.ResourceTypeSingular
	b := newBlog()

	doc := renderMap(t, NewRenderer(blogRegistry(), cfg), b.author, Options{Adapter: "json_api"})
	assert.Equal(t, "author", doc["data"].(map[string]any)["type"])
}

func TestJSONAPI_EmptyAndNil(t *testing.T) {
	r := NewRenderer(blogRegistry(), nil)

	assert.JSONEq(t, `{"data": []}`, renderJSON(t, r, []*serializer.Record{}, Options{Adapter: "json_api"}))
	assert.JSONEq(t, `{"data": null}`, renderJSON(t, r, nil, Options{Adapter: "json_api"}))
}

func TestJSONAPI_Pagination(t *testing.T) {
	b := newBlog()
	posts := []*serializer.Record{
		b.post,
		serializer.NewRecord("Post", map[string]any{"id": 43, "title": "b"}),
		serializer.NewRecord("Post", map[string]any{"id": 44, "title": "c"}),
	}
	r := NewRenderer(blogRegistry(), nil)
	ctx := &serializer.Context{RequestURL: "http://example.com/posts", QueryParameters: map[string][]string{"sort": {"title"}}}

	doc := renderMap(t, r, NewPage(posts, 2, 1), Options{Adapter: "json_api", Context: ctx, Include: ""})
	assert.Len(t, doc["data"], 1)
	assert.Equal(t, map[string]any{
		"self":  "http://example.com/posts?page%5Bnumber%5D=2&page%5Bsize%5D=1&sort=title",
		"first": "http://example.com/posts?page%5Bnumber%5D=1&page%5Bsize%5D=1&sort=title",
		"prev":  "http://example.com/posts?page%5Bnumber%5D=1&page%5Bsize%5D=1&sort=title",
		"next":  "http://example.com/posts?page%5Bnumber%5D=3&page%5Bsize%5D=1&sort=title",
		"last":  "http://example.com/posts?page%5Bnumber%5D=3&page%5Bsize%5D=1&sort=title",
	}, doc["links"])

	first := renderMap(t, r, NewPage(posts, 1, 2), Options{Adapter: "json_api", Context: ctx})
	links := first["links"].(map[string]any)
	assert.Nil(t, links["prev"])
	assert.NotNil(t, links["next"])

	noURL := renderMap(t, r, NewPage(posts, 1, 2), Options{Adapter: "json_api"})
	assert.NotContains(t, noURL, "links", "links need a request URL")
}

func TestJSONAPI_RootWithoutSerializer(t *testing.T) {
	r := NewRenderer(serializer.NewRegistry(), nil)
	_, err := r.Render(context.Background(), serializer.NewRecord("Ghost", nil), Options{Adapter: "json_api"})
	assert.ErrorIs(t, err, serializer.ErrNoSerializer)
}
