package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotConnected 未配置 Redis 时所有操作返回此错误
var ErrNotConnected = errors.New("redis not connected")

var client *redis.Client

// SetClient 设置 Redis 客户端（由 internal/initial 调用）
func SetClient(c *redis.Client) {
	client = c
}

// Close 关闭 Redis 连接
func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}

// IsConnected 检查 Redis 是否已连接
func IsConnected() bool {
	return client != nil
}

// GetClient 获取原始 Redis 客户端
func GetClient() *redis.Client {
	return client
}

func checkClient() error {
	if client == nil {
		return ErrNotConnected
	}
	return nil
}

// IsNil key 不存在
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Get 获取字符串值；key 不存在时返回 redis.Nil
func Get(ctx context.Context, key string) (string, error) {
	if err := checkClient(); err != nil {
		return "", err
	}
	return client.Get(ctx, key).Result()
}

// Set 设置字符串值
func Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := checkClient(); err != nil {
		return err
	}
	return client.Set(ctx, key, value, expiration).Err()
}

// Del 删除 key
func Del(ctx context.Context, keys ...string) (int64, error) {
	if err := checkClient(); err != nil {
		return 0, err
	}
	return client.Del(ctx, keys...).Result()
}

// Lock 基于 SetNX 的互斥锁，value 为持有者 token，返回是否抢到
func Lock(ctx context.Context, key, token string, expiration time.Duration) (bool, error) {
	if err := checkClient(); err != nil {
		return false, err
	}
	return client.SetNX(ctx, lockKey(key), token, expiration).Result()
}

// unlockScript 只有 token 一致才删除，锁过期后被他人抢到时不会误删
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Unlock 释放 token 持有的锁；返回是否真的删除了
func Unlock(ctx context.Context, key, token string) (bool, error) {
	if err := checkClient(); err != nil {
		return false, err
	}
	n, err := unlockScript.Run(ctx, client, []string{lockKey(key)}, token).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func lockKey(key string) string {
	return fmt.Sprintf("lock:%s", key)
}
