// Package config holds the typed settings shared by adapters and the cache layer.
//
// A Config is built once (Default or Load) and passed by pointer to the renderer. Nothing in
// the render path mutates it.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Depth policies applied when MaxDepth is exceeded.
const (
	DepthFail = "fail"
	DepthTrim = "trim"
	DepthPass = "pass"
)

// JSON:API resource type inflections.
const (
	ResourceTypePlural   = "plural"
	ResourceTypeSingular = "singular"
)

// Config represents the serializer configuration
type Config struct {
	// Adapter is the adapter used when a render call names none.
	Adapter string `mapstructure:"adapter"`
	// KeyTransform overrides every adapter's default key transform when set.
	KeyTransform string `mapstructure:"key_transform"`
	// DefaultIncludes is the include directive used by the attributes, json and
	// flat_json adapters when a render call names none.
	DefaultIncludes string `mapstructure:"default_includes"`
	// IncludeDataDefault decides whether JSON:API relationships carry "data"
	// when the association does not say.
	IncludeDataDefault bool `mapstructure:"include_data_default"`
	// IncludeNilAttributes keeps attributes whose value is nil.
	IncludeNilAttributes bool `mapstructure:"include_nil_attributes"`
	// MaxDepth limits association nesting for the attributes adapter. Zero disables the limit.
	MaxDepth int `mapstructure:"max_depth"`
	// DepthPolicy is one of DepthFail, DepthTrim, DepthPass.
	DepthPolicy string `mapstructure:"depth_policy"`
	// SerializerLookupEnabled allows resolving serializers from runtime type names.
	SerializerLookupEnabled bool `mapstructure:"serializer_lookup_enabled"`
	// StrictAssociationLookup turns unresolvable association values into errors
	// instead of plain JSON passthrough.
	StrictAssociationLookup bool `mapstructure:"strict_association_lookup"`

	JSONAPI JSONAPIConfig `mapstructure:"jsonapi"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Log     LogConfig     `mapstructure:"log"`
}

// JSONAPIConfig holds JSON:API specific settings
type JSONAPIConfig struct {
	IncludeToplevelObject bool   `mapstructure:"include_toplevel_object"`
	Version               string `mapstructure:"version"`
	ResourceType          string `mapstructure:"resource_type"`
	NamespaceSeparator    string `mapstructure:"namespace_separator"`
}

// CacheConfig selects and tunes the cache store
type CacheConfig struct {
	PerformCaching bool          `mapstructure:"perform_caching"`
	Backend        string        `mapstructure:"backend"`
	Codec          string        `mapstructure:"codec"`
	Prefix         string        `mapstructure:"prefix"`
	TTL            time.Duration `mapstructure:"ttl"`
	Redis          RedisConfig   `mapstructure:"redis"`
	Sturdyc        SturdycConfig `mapstructure:"sturdyc"`
}

// RedisConfig represents redis connection settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SturdycConfig represents in-process sturdyc cache settings
type SturdycConfig struct {
	Capacity           int `mapstructure:"capacity"`
	NumShards          int `mapstructure:"num_shards"`
	EvictionPercentage int `mapstructure:"eviction_percentage"`
}

// LogConfig configures the zap logger built by the CLI
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Default returns the documented default configuration:
//
//	adapter: attributes            default_includes: "*"
//	include_data_default: true     include_nil_attributes: true
//	max_depth: 0 (unlimited)       depth_policy: trim
//	serializer_lookup_enabled: true
//	jsonapi: version 1.0, plural types, "-" namespace separator, no top-level object
//	cache: perform_caching true, memory backend, msgpack codec, prefix "ams:"
func Default() *Config {
	return &Config{
		Adapter:                 "attributes",
		DefaultIncludes:         "*",
		IncludeDataDefault:      true,
		IncludeNilAttributes:    true,
		DepthPolicy:             DepthTrim,
		SerializerLookupEnabled: true,
		JSONAPI: JSONAPIConfig{
			Version:            "1.0",
			ResourceType:       ResourceTypePlural,
			NamespaceSeparator: "-",
		},
		Cache: CacheConfig{
			PerformCaching: true,
			Backend:        "memory",
			Codec:          "msgpack",
			Prefix:         "ams:",
			Redis:          RedisConfig{Addr: "localhost:6379"},
			Sturdyc: SturdycConfig{
				Capacity:           10000,
				NumShards:          256,
				EvictionPercentage: 10,
			},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configuration from path (yaml) when given, then AMS_* environment variables,
// on top of Default.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("AMS")
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("adapter", d.Adapter)
	v.SetDefault("key_transform", d.KeyTransform)
	v.SetDefault("default_includes", d.DefaultIncludes)
	v.SetDefault("include_data_default", d.IncludeDataDefault)
	v.SetDefault("include_nil_attributes", d.IncludeNilAttributes)
	v.SetDefault("max_depth", d.MaxDepth)
	v.SetDefault("depth_policy", d.DepthPolicy)
	v.SetDefault("serializer_lookup_enabled", d.SerializerLookupEnabled)
	v.SetDefault("strict_association_lookup", d.StrictAssociationLookup)
	v.SetDefault("jsonapi.include_toplevel_object", d.JSONAPI.IncludeToplevelObject)
	v.SetDefault("jsonapi.version", d.JSONAPI.Version)
	v.SetDefault("jsonapi.resource_type", d.JSONAPI.ResourceType)
	v.SetDefault("jsonapi.namespace_separator", d.JSONAPI.NamespaceSeparator)
	v.SetDefault("cache.perform_caching", d.Cache.PerformCaching)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.codec", d.Cache.Codec)
	v.SetDefault("cache.prefix", d.Cache.Prefix)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.redis.addr", d.Cache.Redis.Addr)
	v.SetDefault("cache.redis.password", d.Cache.Redis.Password)
	v.SetDefault("cache.redis.db", d.Cache.Redis.DB)
	v.SetDefault("cache.sturdyc.capacity", d.Cache.Sturdyc.Capacity)
	v.SetDefault("cache.sturdyc.num_shards", d.Cache.Sturdyc.NumShards)
	v.SetDefault("cache.sturdyc.eviction_percentage", d.Cache.Sturdyc.EvictionPercentage)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
}

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks enumerated settings. Adapter and key transform names are checked by
// the adapter package when they are used.
func (c *Config) Validate() error {
	switch c.DepthPolicy {
	case DepthFail, DepthTrim, DepthPass:
	default:
		return fmt.Errorf("%w: depth_policy must be one of fail, trim, pass, got %q", ErrInvalidConfig, c.DepthPolicy)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("%w: max_depth must not be negative, got %d", ErrInvalidConfig, c.MaxDepth)
	}
	switch c.JSONAPI.ResourceType {
	case ResourceTypePlural, ResourceTypeSingular:
	default:
		return fmt.Errorf("%w: jsonapi.resource_type must be plural or singular, got %q", ErrInvalidConfig, c.JSONAPI.ResourceType)
	}
	switch c.Cache.Backend {
	case "memory", "redis", "sturdyc":
	default:
		return fmt.Errorf("%w: cache.backend must be one of memory, redis, sturdyc, got %q", ErrInvalidConfig, c.Cache.Backend)
	}
	return nil
}
