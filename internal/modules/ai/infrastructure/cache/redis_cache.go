package cache

import (
	"context"
	"time"

	"MarketMind/pkg/redis"
)

// RedisCache 基于 pkg/redis 的插件结果缓存；未连接 Redis 时视为全部未命中
type RedisCache struct{}

func NewRedisCache() *RedisCache {
	return &RedisCache{}
}

// Get 未命中返回 ("", nil)
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	if !redis.IsConnected() {
		return "", nil
	}
	v, err := redis.Get(ctx, key)
	if redis.IsNil(err) {
		return "", nil
	}
	return v, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if !redis.IsConnected() {
		return nil
	}
	return redis.Set(ctx, key, value, ttl)
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	if !redis.IsConnected() || len(keys) == 0 {
		return nil
	}
	_, err := redis.Del(ctx, keys...)
	return err
}
