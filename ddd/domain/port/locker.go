package port

import (
	"context"
	"time"
)

// SessionLocker 跨实例的会话级互斥，保证一个合并会话只被处理一次
type SessionLocker interface {
	// TryLock 尝试获取锁，已被占用时返回false
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Unlock 释放锁
	Unlock(ctx context.Context, key string) error
}
