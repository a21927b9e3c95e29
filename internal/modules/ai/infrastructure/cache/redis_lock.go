package cache

import (
	"context"
	"sync"
	"time"

	"MarketMind/pkg/redis"
	"MarketMind/pkg/util"
)

// RedisLocker 按 key 的互斥锁。连接了 Redis 时跨实例生效；
// 未连接时退化为进程内锁，只在单实例内互斥。
type RedisLocker struct {
	token string
	now   func() time.Time

	mu    sync.Mutex
	local map[string]time.Time // key -> 过期时间
}

func NewRedisLocker() *RedisLocker {
	return &RedisLocker{
		token: util.GenerateShortUUID(),
		now:   time.Now,
		local: make(map[string]time.Time),
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if redis.IsConnected() {
		return redis.Lock(ctx, key, l.token, ttl)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if exp, ok := l.local[key]; ok && now.Before(exp) {
		return false, nil
	}
	l.local[key] = now.Add(ttl)
	return true, nil
}

func (l *RedisLocker) Unlock(ctx context.Context, key string) error {
	if redis.IsConnected() {
		_, err := redis.Unlock(ctx, key, l.token)
		return err
	}
	l.mu.Lock()
	delete(l.local, key)
	l.mu.Unlock()
	return nil
}
