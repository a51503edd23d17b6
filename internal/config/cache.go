package config

import "time"

// CacheConfig defines settings for the public-route response cache.  When
// Enabled is false or no Redis client is available, caching is disabled.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: getenv("CACHE_ENABLED", "true") == "true",
		TTL:     envDur("CACHE_TTL", 30*time.Second),
		Prefix:  getenv("CACHE_PREFIX", "cache"),
	}
}
