package config

import "strings"

// envReplacer maps nested keys to env names: cache.redis.addr -> AMS_CACHE_REDIS_ADDR
var envReplacer = strings.NewReplacer(".", "_")
