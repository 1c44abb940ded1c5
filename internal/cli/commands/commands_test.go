package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rails-api/active-model-serializers-sub000/pkg/adapter"
	"github.com/rails-api/active-model-serializers-sub000/pkg/cache"
	"github.com/rails-api/active-model-serializers-sub000/pkg/config"
)

const testFixture = `
types:
  Post:
    attributes: [id, title]
    belongs_to: [author]
  Author:
    attributes: [id, name]
records:
  Author:
    - {id: 9, name: Ann}
  Post:
    - {id: 1, title: Hello, author_id: 9}
    - {id: 2, title: Again, author_id: 9}
root: {type: Post, ids: [1]}
`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testFixture), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--no-color", "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func decode(t *testing.T, out string) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc), out)
	return doc
}

func TestRender_FixtureRoot(t *testing.T) {
	out, err := run(t, "render", writeFixture(t), "--adapter", "json")
	require.NoError(t, err)

	doc := decode(t, out)
	post, ok := doc["post"].(map[string]any)
	require.True(t, ok, out)
	assert.Equal(t, "Hello", post["title"])
	assert.Equal(t, map[string]any{"id": float64(9), "name": "Ann"}, post["author"])
}

func TestRender_TypeIDsAndOptions(t *testing.T) {
	out, err := run(t, "render", writeFixture(t),
		"--adapter", "json",
		"--type", "Post", "--id", "1,2",
		"--include", "",
		"--root", "articles",
		"--meta", "total=2",
		"--fields", "posts=title",
		"--indent=false")
	require.NoError(t, err)

	doc := decode(t, out)
	articles, ok := doc["articles"].([]any)
	require.True(t, ok, out)
	require.Len(t, articles, 2)
	assert.Equal(t, map[string]any{"title": "Again"}, articles[1])
	assert.Equal(t, map[string]any{"total": float64(2)}, doc["meta"])
}

func TestRender_JSONAPI(t *testing.T) {
	out, err := run(t, "render", writeFixture(t), "--adapter", "json_api", "--include", "author")
	require.NoError(t, err)

	doc := decode(t, out)
	data := doc["data"].(map[string]any)
	assert.Equal(t, "posts", data["type"])
	assert.Equal(t, "1", data["id"])
	included := doc["included"].([]any)
	require.Len(t, included, 1)
	assert.Equal(t, "authors", included[0].(map[string]any)["type"])
}

func TestRender_Errors(t *testing.T) {
	path := writeFixture(t)

	tests := []struct {
		name    string
		args    []string
		wantErr error
		wantMsg string
	}{
		{name: "unknown adapter", args: []string{"render", path, "--adapter", "xml"}, wantErr: adapter.ErrUnknownAdapter},
		{name: "bad fields", args: []string{"render", path, "--fields", "title"}, wantMsg: "invalid --fields"},
		{name: "bad meta", args: []string{"render", path, "--meta", "total"}, wantMsg: "invalid --meta"},
		{name: "missing fixture", args: []string{"render", filepath.Join(t.TempDir(), "none.yaml")}, wantMsg: "none.yaml"},
		{name: "no args", args: []string{"render"}, wantMsg: "accepts 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "amsrender version: ")
	assert.Contains(t, out, "json_api")
}

func TestToOptions_IncludeOnlyWhenSet(t *testing.T) {
	o := &renderOptions{}

	opts, err := o.toOptions(false)
	require.NoError(t, err)
	assert.Nil(t, opts.Include)

	opts, err = o.toOptions(true)
	require.NoError(t, err)
	assert.Equal(t, "", opts.Include)
}

func TestMetaValue(t *testing.T) {
	assert.Equal(t, float64(2), metaValue("2"))
	assert.Equal(t, true, metaValue("true"))
	assert.Equal(t, "draft", metaValue("draft"))
}

func TestNewStore(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		cfg     config.CacheConfig
		backend any
		wantErr string
	}{
		{name: "disabled", cfg: config.CacheConfig{}},
		{name: "memory", cfg: config.CacheConfig{PerformCaching: true, Backend: "memory"}, backend: &cache.MemoryCache{}},
		{name: "default backend", cfg: config.CacheConfig{PerformCaching: true}, backend: &cache.MemoryCache{}},
		{
			name:    "redis",
			cfg:     config.CacheConfig{PerformCaching: true, Backend: "redis", Redis: config.RedisConfig{Addr: mr.Addr()}},
			backend: &cache.RedisCache{},
		},
		{
			name: "sturdyc",
			cfg: config.CacheConfig{PerformCaching: true, Backend: "sturdyc", Codec: "json", Sturdyc: config.SturdycConfig{
				Capacity: 100, NumShards: 4, EvictionPercentage: 10,
			}},
			backend: &cache.SturdycCache{},
		},
		{name: "unknown backend", cfg: config.CacheConfig{PerformCaching: true, Backend: "disk"}, wantErr: "unknown cache backend"},
		{name: "unknown codec", cfg: config.CacheConfig{PerformCaching: true, Codec: "gob"}, wantErr: "unknown cache codec"},
		{name: "sturdyc invalid", cfg: config.CacheConfig{PerformCaching: true, Backend: "sturdyc"}, wantErr: "Capacity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closer, err := newStore(tt.cfg, zap.NewNop())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer closer.Close()

			if tt.backend == nil {
				assert.Nil(t, store)
				return
			}
			byteStore, ok := store.(*cache.ByteStore)
			require.True(t, ok)
			assert.IsType(t, tt.backend, byteStore.Backend())
		})
	}
}

func TestCache_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfgPath := filepath.Join(t.TempDir(), "ams.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("cache:\n  backend: redis\n  prefix: \"ams:\"\n  redis:\n    addr: "+mr.Addr()+"\n"), 0o644))

	require.NoError(t, mr.Set("ams:post/1/json", "a"))
	require.NoError(t, mr.Set("ams:post/2/json", "b"))
	require.NoError(t, mr.Set("other:post/1/json", "c"))

	out, err := run(t, "cache", "exists", "post/1/json", "post/3/json", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "post/1/json\tcached")
	assert.Contains(t, out, "post/3/json\tmissing")

	_, err = run(t, "cache", "delete", "post/1/json", "--config", cfgPath)
	require.NoError(t, err)
	assert.False(t, mr.Exists("ams:post/1/json"))
	assert.True(t, mr.Exists("ams:post/2/json"))

	_, err = run(t, "cache", "clear", "--config", cfgPath)
	require.NoError(t, err)
	assert.False(t, mr.Exists("ams:post/2/json"))
	assert.True(t, mr.Exists("other:post/1/json"), "keys outside the prefix are kept")
}

func TestCache_InvalidBackend(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "ams.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("cache:\n  backend: disk\n"), 0o644))

	_, err := run(t, "cache", "clear", "--config", cfgPath)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
