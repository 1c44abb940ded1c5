package adapter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rails-api/active-model-serializers-sub000/pkg/cache"
	"github.com/rails-api/active-model-serializers-sub000/pkg/serializer"
)

func blogRegistry() *serializer.Registry {
	return serializer.NewRegistry().MustRegister(
		serializer.NewDescriptor("Post").
			Attributes("id", "title", "body").
			HasMany("comments").
			BelongsTo("author"),
		serializer.NewDescriptor("Comment").
			Attributes("id", "body").
			BelongsTo("author"),
		serializer.NewDescriptor("Author").
			Attributes("id", "name").
			HasMany("posts"),
	)
}

type blog struct {
	post     *serializer.Record
	comments []*serializer.Record
	author   *serializer.Record
}

func newBlog() blog {
	author := serializer.NewRecord("Author", map[string]any{"id": 9, "name": "Ann"})
	comments := []*serializer.Record{
		serializer.NewRecord("Comment", map[string]any{"id": 1, "body": "first", "author": author}),
		serializer.NewRecord("Comment", map[string]any{"id": 2, "body": "second", "author": author}),
	}
	post := serializer.NewRecord("Post", map[string]any{
		"id":       42,
		"title":    "New Post",
		"body":     "Body",
		"comments": comments,
		"author":   author,
	})
	return blog{post: post, comments: comments, author: author}
}

func renderJSON(t *testing.T, r *Renderer, resource any, opts Options) string {
	t.Helper()
	doc, err := r.Render(context.Background(), resource, opts)
	require.NoError(t, err)
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(data)
}

func renderMap(t *testing.T, r *Renderer, resource any, opts Options) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(renderJSON(t, r, resource, opts)), &out))
	return out
}

// countingStore records store round trips.
type countingStore struct {
	cache.Store
	fetches    int
	readMultis int
	writes     int
}

// Fetch counts the write a miss makes inside the wrapped store, which does not go
// through Write below.
func (c *countingStore) Fetch(ctx context.Context, key string, compute cache.ComputeFn) (map[string]any, error) {
	c.fetches++
	return c.Store.Fetch(ctx, key, func(ctx context.Context) (map[string]any, error) {
		value, err := compute(ctx)
		if err == nil {
			c.writes++
		}
		return value, err
	})
}

func (c *countingStore) ReadMulti(ctx context.Context, keys []string) (map[string]map[string]any, error) {
	c.readMultis++
	return c.Store.ReadMulti(ctx, keys)
}

func (c *countingStore) Write(ctx context.Context, key string, value map[string]any) error {
	c.writes++
	return c.Store.Write(ctx, key, value)
}

func newCountingStore() *countingStore {
	return &countingStore{Store: cache.NewStore(cache.NewMemoryCache())}
}
