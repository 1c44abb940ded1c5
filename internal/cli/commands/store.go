package commands

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/rails-api/active-model-serializers-sub000/pkg/cache"
	"github.com/rails-api/active-model-serializers-sub000/pkg/config"
)

// sturdycDefaultTTL is used when no cache TTL is configured; sturdyc requires one.
const sturdycDefaultTTL = time.Hour

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newBackend opens the byte backend selected by cfg, whether or not caching is enabled.
func newBackend(cfg config.CacheConfig) (cache.Cache, io.Closer, error) {
	common := cache.CacheConfig{DefaultTTL: cfg.TTL, Prefix: cfg.Prefix}

	switch cfg.Backend {
	case "", "memory":
		mc := cache.NewMemoryCacheWithConfig(common)
		return mc, mc, nil
	case "redis":
		rc, err := cache.NewRedisCacheWithConfig(cache.RedisConfig{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			CacheConfig: common,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return rc, rc, nil
	case "sturdyc":
		ttl := cfg.TTL
		if ttl <= 0 {
			ttl = sturdycDefaultTTL
		}
		sc, err := cache.NewSturdycCache(cache.SturdycConfig{
			Capacity:           cfg.Sturdyc.Capacity,
			NumShards:          cfg.Sturdyc.NumShards,
			TTL:                ttl,
			EvictionPercentage: cfg.Sturdyc.EvictionPercentage,
			Prefix:             cfg.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return sc, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// newStore builds the cache store selected by cfg. It returns a nil store when caching is off.
func newStore(cfg config.CacheConfig, logger *zap.Logger) (cache.Store, io.Closer, error) {
	if !cfg.PerformCaching {
		return nil, nopCloser{}, nil
	}

	codec, err := cache.CodecByName(cfg.Codec)
	if err != nil {
		return nil, nil, err
	}
	backend, closer, err := newBackend(cfg)
	if err != nil {
		return nil, nil, err
	}

	logger.Debug("cache store ready",
		zap.String("backend", cfg.Backend),
		zap.String("codec", codec.Name()))
	return cache.NewStore(backend,
		cache.WithCodec(codec),
		cache.WithTTL(cfg.TTL),
		cache.WithLogger(logger),
	), closer, nil
}
