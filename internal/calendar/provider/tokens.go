package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const tokenKeyPrefix = "calendar:token:"

// RedisTokenSupplier 从 Redis 中读取用户的日历访问令牌。令牌由授权
// 回调流程写入,本服务只读。
type RedisTokenSupplier struct {
	client *redis.Client
}

// NewRedisTokenSupplier 创建 RedisTokenSupplier。
func NewRedisTokenSupplier(client *redis.Client) *RedisTokenSupplier {
	return &RedisTokenSupplier{client: client}
}

// AccessToken 返回用户的访问令牌。键不存在时返回 ok=false 且无错误。
func (s *RedisTokenSupplier) AccessToken(ctx context.Context, userID string) (string, bool, error) {
	token, err := s.client.Get(ctx, tokenKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read calendar token: %w", err)
	}
	return token, true, nil
}

// SetAccessToken 写入用户令牌,供授权回调与测试使用。ttl 为零表示不过期。
func (s *RedisTokenSupplier) SetAccessToken(ctx context.Context, userID, token string, ttl time.Duration) error {
	return s.client.Set(ctx, tokenKeyPrefix+userID, token, ttl).Err()
}

var _ TokenSupplier = (*RedisTokenSupplier)(nil)
