// Package cache stores derived, read-mostly results such as dependent-field
// lists. Entries are opaque bytes with a TTL.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Cache defines the interface for all cache backends
type Cache interface {
	// Get retrieves a value from the cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with a TTL. A zero TTL uses the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from the cache
	Clear(ctx context.Context) error

	// Close releases the backend's resources
	Close() error
}

// Backend names accepted by New
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Config selects and tunes a cache backend
type Config struct {
	Backend string        `mapstructure:"backend"`
	Size    int           `mapstructure:"size"`
	TTL     time.Duration `mapstructure:"ttl"`
	Prefix  string        `mapstructure:"prefix"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

// DefaultConfig returns a bounded in-memory cache configuration
func DefaultConfig() Config {
	return Config{
		Backend:   BackendMemory,
		Size:      1024,
		TTL:       5 * time.Minute,
		Prefix:    "dictquery:",
		RedisAddr: "localhost:6379",
	}
}

// New builds the backend named by cfg.Backend. The "none" backend returns a nil
// Cache, which callers treat as caching disabled.
func New(ctx context.Context, cfg Config) (Cache, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendMemory:
		c, err := NewMemoryCache(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendRedis:
		c, err := NewRedisCache(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}

// ErrCacheMiss is returned when a key is not found in the cache
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	_, ok := err.(ErrCacheMiss)
	return ok
}
