package cache

import (
	"context"
	"strings"
	"time"

	"github.com/viccon/sturdyc"
)

// SturdycConfig holds the configuration for the sturdyc backed cache.
type SturdycConfig struct {
	// Capacity defines the maximum number of entries that the cache can store.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	NumShards int

	// TTL is the time-to-live applied to every entry. sturdyc has no per-entry TTL,
	// so the ttl argument of Set is ignored.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration

	// Prefix is prepended to all cache keys
	Prefix string
}

// DefaultSturdycConfig returns a SturdycConfig with sensible defaults.
func DefaultSturdycConfig() SturdycConfig {
	return SturdycConfig{
		Capacity:           10000,
		NumShards:          256,
		TTL:                time.Hour,
		EvictionPercentage: 10,
		Prefix:             DefaultCacheConfig().Prefix,
	}
}

// Validate checks if the configuration values are valid.
func (c SturdycConfig) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// SturdycCache is an in-process sharded cache built on sturdyc.
type SturdycCache struct {
	client *sturdyc.Client[[]byte]
	prefix string
}

// NewSturdycCache validates cfg and creates the underlying sturdyc client.
func NewSturdycCache(cfg SturdycConfig) (*SturdycCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var options []sturdyc.Option
	if cfg.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(cfg.EvictionInterval))
	}

	client := sturdyc.New[[]byte](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		options...,
	)

	return &SturdycCache{client: client, prefix: cfg.Prefix}, nil
}

// Get retrieves a value from the cache
func (s *SturdycCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, ok := s.client.Get(s.prefix + key)
	if !ok {
		return nil, ErrCacheMiss{Key: key}
	}
	return value, nil
}

// GetMulti retrieves several values from the shards in one call
func (s *SturdycCache) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullKeys := make([]string, len(keys))
	for i, key := range keys {
		fullKeys[i] = s.prefix + key
	}

	found := s.client.GetMany(fullKeys)
	result := make(map[string][]byte, len(found))
	for fullKey, value := range found {
		result[strings.TrimPrefix(fullKey, s.prefix)] = value
	}
	return result, nil
}

// Set stores a value. The ttl argument is ignored in favour of the configured TTL.
func (s *SturdycCache) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.client.Set(s.prefix+key, value)
	return nil
}

// Delete removes a value from the cache
func (s *SturdycCache) Delete(ctx context.Context, key string) error {
	s.client.Delete(s.prefix + key)
	return nil
}

// Clear removes every key carrying our prefix
func (s *SturdycCache) Clear(ctx context.Context) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, s.prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// Exists checks if a key exists in the cache
func (s *SturdycCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := s.client.Get(s.prefix + key)
	return ok, nil
}
