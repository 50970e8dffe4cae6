package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// MemoryCache is a bounded in-process LRU with per-entry expiry
type MemoryCache struct {
	entries *lru.Cache
	config  Config
	now     func() time.Time
}

type cacheItem struct {
	value      []byte
	expiration time.Time
}

// NewMemoryCache creates an LRU holding at most cfg.Size entries
func NewMemoryCache(cfg Config) (*MemoryCache, error) {
	if cfg.Size <= 0 {
		cfg.Size = DefaultConfig().Size
	}
	entries, err := lru.New(cfg.Size)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{entries: entries, config: cfg, now: time.Now}, nil
}

// Get retrieves a value from the cache
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullKey := m.config.Prefix + key
	value, ok := m.entries.Get(fullKey)
	if !ok {
		return nil, ErrCacheMiss{Key: key}
	}

	item := value.(cacheItem)
	if !item.expiration.IsZero() && m.now().After(item.expiration) {
		m.entries.Remove(fullKey)
		return nil, ErrCacheMiss{Key: key}
	}
	return item.value, nil
}

// Set stores a value, evicting the least recently used entry when full
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ttl == 0 {
		ttl = m.config.TTL
	}
	item := cacheItem{value: value}
	if ttl > 0 {
		item.expiration = m.now().Add(ttl)
	}

	m.entries.Add(m.config.Prefix+key, item)
	return nil
}

// Delete removes a value from the cache
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.entries.Remove(m.config.Prefix + key)
	return nil
}

// Clear removes all values from the cache
func (m *MemoryCache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.entries.Purge()
	return nil
}

// Len returns the number of stored entries, expired ones included
func (m *MemoryCache) Len() int {
	return m.entries.Len()
}

// Close is a no-op for the memory backend
func (m *MemoryCache) Close() error {
	return nil
}
