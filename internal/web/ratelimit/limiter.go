// Package ratelimit throttles API callers. Each caller key (principal id or
// remote address) gets a fixed budget of requests per window.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend names
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Limiter decides whether a caller may run another query
type Limiter interface {
	Allow(ctx context.Context, key string) (*Info, error)
	Close() error
}

// Info is the caller's budget after an Allow call
type Info struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
	Allowed   bool
}

// Config selects and sizes the limiter. A zero Requests disables limiting.
type Config struct {
	Backend  string        `mapstructure:"backend"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Prefix   string        `mapstructure:"prefix"`
}

// Enabled reports whether limiting is configured
func (c Config) Enabled() bool {
	return c.Requests > 0
}

// New builds the configured limiter. The redis backend uses client, which the
// caller owns; the memory backend ignores it.
func New(cfg Config, client *redis.Client) (Limiter, error) {
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive")
	}
	switch strings.ToLower(cfg.Backend) {
	case "", BackendMemory:
		return NewTokenBucket(cfg.Requests, cfg.Window), nil
	case BackendRedis:
		rl, err := NewRedisLimiter(client, cfg)
		if err != nil {
			return nil, err
		}
		return rl, nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend: %s", cfg.Backend)
	}
}
