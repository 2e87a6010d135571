package redis

import (
	"Jarvis_Memory/internal/config"
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Connect 创建并返回一个 Redis 客户端实例，并通过 Ping 验证连接。
// 句柄由调用方显式持有并注入，不使用包级单例。
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	// 使用配置创建 Redis 客户端。
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 使用 Ping 检查连接是否成功。
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("无法连接到 Redis: %w", err)
	}

	return rdb, nil
}

// HealthCheck 检查 Redis 连接的健康状况。
func HealthCheck(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return fmt.Errorf("Redis 客户端未初始化")
	}
	return client.Ping(ctx).Err()
}
