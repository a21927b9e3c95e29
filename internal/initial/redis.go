package initial

import (
	"context"
	"fmt"
	"time"

	"MarketMind/internal/config"
	"MarketMind/pkg/redis"
	"MarketMind/pkg/zlog"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InitRedis 连接 Redis 并注册到 pkg/redis；未配置或连接失败时降级为无缓存、无锁
func InitRedis(ctx context.Context, conf *config.Config) {
	host := conf.RedisConfig.Host
	if host == "" {
		zlog.Info("redis not configured, cache and locks disabled")
		return
	}
	port := conf.RedisConfig.Port
	if port == 0 {
		port = 6379
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     conf.RedisConfig.Password,
		DB:           conf.RedisConfig.DB,
		PoolSize:     conf.RedisConfig.PoolSize,
		MinIdleConns: conf.RedisConfig.MinIdleConns,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		zlog.Error("redis ping failed, running without redis", zap.String("addr", addr), zap.Error(err))
		_ = client.Close()
		return
	}

	redis.SetClient(client)
	zlog.Info("redis connected", zap.String("addr", addr))
}
