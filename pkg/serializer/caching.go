package serializer

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rails-api/active-model-serializers-sub000/pkg/cache"
)

// versionLayout formats the seconds part of version timestamps in cache keys.
// Nanoseconds are appended as nine digits.
const versionLayout = "20060102150405"

// Cacher orchestrates attribute caching for one render pass. It remembers the result of a
// batched prefetch so each key costs at most one store round trip.
type Cacher struct {
	store   cache.Store
	enabled bool
	logger  *zap.Logger

	mu         sync.Mutex
	requested  map[string]bool
	prefetched map[string]map[string]any
}

// NewCacher creates a Cacher. A nil store disables caching.
func NewCacher(store cache.Store, enabled bool, logger *zap.Logger) *Cacher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cacher{
		store:      store,
		enabled:    enabled && store != nil,
		logger:     logger,
		requested:  make(map[string]bool),
		prefetched: make(map[string]map[string]any),
	}
}

// Enabled reports whether caching is active. A nil Cacher is disabled.
func (c *Cacher) Enabled() bool {
	return c != nil && c.enabled
}

// Key returns the cache key of s for the adapter:
//
//	<object key>/<adapter>[/<descriptor digest>]
//
// The object key is "<declared key>/<id>-<version>", or the object's own CacheKey under the
// declared key when there is one.
func (c *Cacher) Key(s *Serializer, adapter string) (string, error) {
	objectKey, err := objectCacheKey(s)
	if err != nil {
		return "", err
	}
	digest := ""
	if settings := s.descriptor.CacheSettings(); settings == nil || !settings.SkipDigest {
		digest = s.descriptor.Digest()
	}
	return cache.ExpandKey(objectKey, adapter, digest), nil
}

func objectCacheKey(s *Serializer) (string, error) {
	settings := s.descriptor.CacheSettings()
	if k, ok := s.raw.(CacheKeyer); ok {
		if settings != nil && settings.Key != "" {
			return cache.ExpandKey(settings.Key, k.CacheKey()), nil
		}
		return k.CacheKey(), nil
	}

	if settings == nil || settings.Key == "" {
		return "", &CacheKeyError{Type: s.TypeName(), Serializer: s.descriptor.FullName()}
	}
	id := s.ID()
	if id == nil {
		return "", &CacheKeyError{Type: s.TypeName(), Serializer: s.descriptor.FullName()}
	}

	if v, ok := s.raw.(Versioned); ok {
		t := v.UpdatedAt().UTC()
		version := fmt.Sprintf("%s%09d", t.Format(versionLayout), t.Nanosecond())
		return fmt.Sprintf("%s/%v-%s", settings.Key, id, version), nil
	}
	return fmt.Sprintf("%s/%v", settings.Key, id), nil
}

// Prefetch reads every key with one ReadMulti call. Later Fetch calls for these keys do not
// go back to the store for a read.
func (c *Cacher) Prefetch(ctx context.Context, keys []string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}

	var pending []string
	c.mu.Lock()
	for _, k := range keys {
		if !c.requested[k] {
			pending = append(pending, k)
		}
	}
	c.mu.Unlock()
	if len(pending) == 0 {
		return nil
	}

	found, err := c.store.ReadMulti(ctx, pending)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range pending {
		c.requested[k] = true
	}
	for k, v := range found {
		c.prefetched[k] = v
	}
	c.logger.Debug("cache prefetch", zap.Int("keys", len(pending)), zap.Int("hits", len(found)))
	return nil
}

// Fetch returns the cached value for key, computing and writing it on a miss.
func (c *Cacher) Fetch(ctx context.Context, key string, compute cache.ComputeFn) (map[string]any, error) {
	c.mu.Lock()
	value, hit := c.prefetched[key]
	requested := c.requested[key]
	c.mu.Unlock()

	if hit {
		return value, nil
	}
	if !requested {
		return c.store.Fetch(ctx, key, compute)
	}

	// Prefetched and absent: compute without another read.
	value, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.store.Write(ctx, key, value); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.prefetched[key] = value
	c.mu.Unlock()
	return value, nil
}

// CacheKeys collects the cache keys of serializers whose descriptors are cached. Objects that
// cannot produce a key are skipped; the error surfaces when they are rendered.
func (c *Cacher) CacheKeys(adapter string, serializers []*Serializer) []string {
	if !c.Enabled() {
		return nil
	}
	seen := make(map[string]bool, len(serializers))
	var keys []string
	for _, s := range serializers {
		if s.descriptor.CacheSettings() == nil {
			continue
		}
		key, err := c.Key(s, adapter)
		if err != nil || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}
