package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ComputeFn produces the value for a key on a cache miss.
type ComputeFn func(ctx context.Context) (map[string]any, error)

// Store is the contract the serializer cache layer depends on.
//
// Writes are last-writer-wins: two renders missing the same key both compute and both
// write. Because a cached value is a pure function of the key, either write is correct.
type Store interface {
	// Fetch returns the cached value for key, computing and writing it on a miss.
	Fetch(ctx context.Context, key string, compute ComputeFn) (map[string]any, error)
	// ReadMulti returns the cached values for keys that are present.
	ReadMulti(ctx context.Context, keys []string) (map[string]map[string]any, error)
	// Write stores value under key.
	Write(ctx context.Context, key string, value map[string]any) error
}

// ByteStore implements Store on top of a byte backend and a Codec.
type ByteStore struct {
	backend Cache
	codec   Codec
	ttl     time.Duration
	logger  *zap.Logger
}

// StoreOption configures a ByteStore.
type StoreOption func(*ByteStore)

// WithCodec overrides the default msgpack codec.
func WithCodec(codec Codec) StoreOption {
	return func(s *ByteStore) { s.codec = codec }
}

// WithTTL sets the TTL used for writes. Zero defers to the backend default.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *ByteStore) { s.ttl = ttl }
}

// WithLogger sets the logger used for hit/miss tracing.
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *ByteStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore wraps backend into a Store.
func NewStore(backend Cache, opts ...StoreOption) *ByteStore {
	s := &ByteStore{
		backend: backend,
		codec:   MsgpackCodec{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the wrapped byte backend.
func (s *ByteStore) Backend() Cache {
	return s.backend
}

// Fetch implements Store. Backend errors other than a miss are returned as-is.
func (s *ByteStore) Fetch(ctx context.Context, key string, compute ComputeFn) (map[string]any, error) {
	data, err := s.backend.Get(ctx, key)
	switch {
	case err == nil:
		value, decodeErr := s.codec.Unmarshal(data)
		if decodeErr == nil {
			s.logger.Debug("cache hit", zap.String("key", key))
			return value, nil
		}
		// An undecodable entry is recomputed and overwritten.
		s.logger.Warn("cache entry undecodable", zap.String("key", key), zap.Error(decodeErr))
	case !IsCacheMiss(err):
		return nil, err
	default:
		s.logger.Debug("cache miss", zap.String("key", key))
	}

	value, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Write(ctx, key, value); err != nil {
		return nil, err
	}
	return value, nil
}

// ReadMulti implements Store. Undecodable entries are treated as absent.
func (s *ByteStore) ReadMulti(ctx context.Context, keys []string) (map[string]map[string]any, error) {
	raw, err := s.backend.GetMulti(ctx, keys)
	if err != nil {
		return nil, err
	}

	result := make(map[string]map[string]any, len(raw))
	for key, data := range raw {
		value, err := s.codec.Unmarshal(data)
		if err != nil {
			s.logger.Warn("cache entry undecodable", zap.String("key", key), zap.Error(err))
			continue
		}
		result[key] = value
	}
	s.logger.Debug("cache read multi",
		zap.Int("requested", len(keys)),
		zap.Int("found", len(result)))
	return result, nil
}

// Write implements Store.
func (s *ByteStore) Write(ctx context.Context, key string, value map[string]any) error {
	data, err := s.codec.Marshal(value)
	if err != nil {
		return err
	}
	if err := s.backend.Set(ctx, key, data, s.ttl); err != nil {
		return err
	}
	s.logger.Debug("cache write", zap.String("key", key))
	return nil
}
