package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache 进程内 TTL 缓存，未配置 Redis 的单机部署与测试使用
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

type memoryItem struct {
	value    string
	expireAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memoryItem), now: time.Now}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[key]
	if !ok {
		return "", nil
	}
	if !it.expireAt.IsZero() && c.now().After(it.expireAt) {
		delete(c.items, key)
		return "", nil
	}
	return it.value, nil
}

// Set ttl <= 0 表示不过期
func (c *MemoryCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := memoryItem{value: value}
	if ttl > 0 {
		it.expireAt = c.now().Add(ttl)
	}
	c.items[key] = it
	return nil
}

func (c *MemoryCache) Del(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}
