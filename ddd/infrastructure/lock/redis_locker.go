package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"merge-service/ddd/domain/port"
)

// RedisLocker 基于Redis SETNX的会话级互斥锁
type RedisLocker struct {
	client *redis.Client
	prefix string
}

// NewRedisLocker 创建Redis锁
func NewRedisLocker(client *redis.Client) port.SessionLocker {
	return &RedisLocker{
		client: client,
		prefix: "merge:lock:",
	}
}

// TryLock 尝试加锁，已被持有时返回false
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return l.client.SetNX(ctx, l.prefix+key, "1", ttl).Result()
}

// Unlock 释放锁，锁不存在时不报错
func (l *RedisLocker) Unlock(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.prefix+key).Err()
}
