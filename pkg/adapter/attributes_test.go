package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rails-api/active-model-serializers-sub000/pkg/config"
	"github.com/rails-api/active-model-serializers-sub000/pkg/serializer"
)

func TestAttributes_PostWithComments(t *testing.T) {
	b := newBlog()
	r := NewRenderer(blogRegistry(), nil)

	got := renderJSON(t, r, b.post, Options{Include: "comments"})
	assert.JSONEq(t, `{
		"title": "New Post",
		"body": "Body",
		"id": 42,
		"comments": [
			{"id": 1, "body": "first"},
			{"id": 2, "body": "second"}
		]
	}`, got)
}

func TestAttributes_DefaultIncludesOneLevel(t *testing.T) {
	b := newBlog()
	r := NewRenderer(blogRegistry(), nil)

	got := renderJSON(t, r, b.post, Options{})
	assert.JSONEq(t, `{
		"id": 42, "title": "New Post", "body": "Body",
		"comments": [{"id": 1, "body": "first"}, {"id": 2, "body": "second"}],
		"author": {"id": 9, "name": "Ann"}
	}`, got)
}

func TestAttributes_UnknownIncludeIsIgnored(t *testing.T) {
	b := newBlog()
	r := NewRenderer(blogRegistry(), nil)

	got := renderJSON(t, r, b.post, Options{Include: "tags,comments.likes"})
	assert.JSONEq(t, `{
		"id": 42, "title": "New Post", "body": "Body",
		"comments": [{"id": 1, "body": "first"}, {"id": 2, "body": "second"}]
	}`, got)
}

func TestAttributes_Collection(t *testing.T) {
	b := newBlog()
	r := NewRenderer(blogRegistry(), nil)

	got := renderJSON(t, r, b.comments, Options{Include: ""})
	assert.JSONEq(t, `[{"id": 1, "body": "first"}, {"id": 2, "body": "second"}]`, got)

	got = renderJSON(t, r, []*serializer.Record{}, Options{})
	assert.JSONEq(t, `[]`, got)
}

func TestAttributes_CamelLowerTransform(t *testing.T) {
	reg := serializer.NewRegistry().MustRegister(
		serializer.NewDescriptor("Widget").Attributes("special_attribute").HasOne("related_thing"),
		serializer.NewDescriptor("Gadget").Attributes("inner_value"),
	)
	widget := serializer.NewRecord("Widget", map[string]any{
		"special_attribute": "neat",
		"related_thing":     serializer.NewRecord("Gadget", map[string]any{"inner_value": 1}),
	})

	got := renderJSON(t, NewRenderer(reg, nil), widget, Options{KeyTransform: TransformCamelLower})
	assert.JSONEq(t, `{"specialAttribute": "neat", "relatedThing": {"innerValue": 1}}`, got)
}

func TestAttributes_ConfiguredKeyTransform(t *testing.T) {
	reg := serializer.NewRegistry().MustRegister(serializer.NewDescriptor("Widget").Attributes("special_attribute"))
	widget := serializer.NewRecord("Widget", map[string]any{"special_attribute": "neat"})

	cfg := config.Default()
	cfg.KeyTransform = TransformCamel
	assert.JSONEq(t, `{"SpecialAttribute": "neat"}`, renderJSON(t, NewRenderer(reg, cfg), widget, Options{}))

	got := renderJSON(t, NewRenderer(reg, cfg), widget, Options{KeyTransform: TransformUnaltered})
	assert.JSONEq(t, `{"special_attribute": "neat"}`, got, "the render option wins")
}

func TestAttributes_DepthPolicies(t *testing.T) {
	b := newBlog()

	tests := []struct {
		policy string
		want   string
		err    error
	}{
		{policy: config.DepthFail, err: ErrMaxDepthExceeded},
		{policy: config.DepthTrim, want: `{
			"id": 42, "title": "New Post", "body": "Body",
			"comments": [{"id": 1, "body": "first"}, {"id": 2, "body": "second"}]
		}`},
		{policy: config.DepthPass, want: `{
			"id": 42, "title": "New Post", "body": "Body",
			"comments": [
				{"id": 1, "body": "first", "author": {"id": 9, "name": "Ann"}},
				{"id": 2, "body": "second", "author": {"id": 9, "name": "Ann"}}
			]
		}`},
	}

	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			cfg := config.Default()
			cfg.MaxDepth = 1
			cfg.DepthPolicy = tt.policy
			r := NewRenderer(blogRegistry(), cfg)
			opts := Options{Include: "comments.author"}

			if tt.err != nil {
				_, err := r.Render(context.Background(), b.post, opts)
				assert.ErrorIs(t, err, tt.err)
				return
			}
			assert.JSONEq(t, tt.want, renderJSON(t, r, b.post, opts))
		})
	}
}

func TestAttributes_WithinDepthLimit(t *testing.T) {
	b := newBlog()
	cfg := config.Default()
	cfg.MaxDepth = 2
	cfg.DepthPolicy = config.DepthFail

	_, err := NewRenderer(blogRegistry(), cfg).Render(context.Background(), b.post, Options{Include: "comments.author"})
	assert.NoError(t, err)
}

func TestAttributes_CyclesAreNotFollowed(t *testing.T) {
	b := newBlog()
	b.author.Set("posts", []*serializer.Record{b.post})
	r := NewRenderer(blogRegistry(), nil)

	got := renderJSON(t, r, b.post, Options{Include: "**"})
	assert.JSONEq(t, `{
		"id": 42, "title": "New Post", "body": "Body",
		"comments": [
			{"id": 1, "body": "first", "author": {"id": 9, "name": "Ann", "posts": []}},
			{"id": 2, "body": "second", "author": {"id": 9, "name": "Ann", "posts": []}}
		],
		"author": {"id": 9, "name": "Ann", "posts": []}
	}`, got)
}

func TestAttributes_Polymorphic(t *testing.T) {
	reg := serializer.NewRegistry().MustRegister(
		serializer.NewDescriptor("Post").Attributes("id").HasOne("attachment", serializer.Polymorphic()),
		serializer.NewDescriptor("Image").Attributes("id", "url"),
	)
	post := serializer.NewRecord("Post", map[string]any{
		"id":         1,
		"attachment": serializer.NewRecord("Image", map[string]any{"id": 5, "url": "/a.png"}),
	})

	got := renderJSON(t, NewRenderer(reg, nil), post, Options{})
	assert.JSONEq(t, `{"id": 1, "attachment": {"type": "image", "image": {"id": 5, "url": "/a.png"}}}`, got)
}

func TestAttributes_NilAssociation(t *testing.T) {
	b := newBlog()
	b.post.Set("author", nil)

	got := renderJSON(t, NewRenderer(blogRegistry(), nil), b.post, Options{Include: "author"})
	assert.JSONEq(t, `{"id": 42, "title": "New Post", "body": "Body", "author": null}`, got)
}

func TestAttributes_OnlyExceptApplyToRoot(t *testing.T) {
	b := newBlog()
	r := NewRenderer(blogRegistry(), nil)

	got := renderJSON(t, r, b.post, Options{Include: "comments", Only: []string{"title", "body"}, Except: []string{"body"}})
	assert.JSONEq(t, `{"title": "New Post", "comments": [{"id": 1, "body": "first"}, {"id": 2, "body": "second"}]}`, got)
}

func TestAttributes_FieldsByType(t *testing.T) {
	b := newBlog()
	r := NewRenderer(blogRegistry(), nil)

	got := renderJSON(t, r, b.post, Options{
		Include: "comments",
		Fields:  map[string][]string{"comments": {"body"}},
	})
	assert.JSONEq(t, `{"id": 42, "title": "New Post", "body": "Body", "comments": [{"body": "first"}, {"body": "second"}]}`, got)
}
