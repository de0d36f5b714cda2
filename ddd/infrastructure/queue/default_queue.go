package queue

import (
	"sync"

	"merge-service/pkg/config"
)

var (
	queueOnce    sync.Once
	defaultQueue MergeQueue
)

// DefaultMergeQueue 获取默认合并作业队列
func DefaultMergeQueue() MergeQueue {
	queueOnce.Do(func() {
		capacity := 100
		if cfg := config.GetGlobalConfig(); cfg != nil {
			if cfg.Worker.QueueCapacity > 0 {
				capacity = cfg.Worker.QueueCapacity
			}
		}
		defaultQueue = NewMemoryMergeQueue(capacity)
	})
	return defaultQueue
}

// CloseDefaultMergeQueue 关闭默认合并作业队列
func CloseDefaultMergeQueue() {
	if defaultQueue != nil {
		_ = defaultQueue.Close()
	}
}
