package queue

import (
	"context"
	"fmt"
	"sync"
)

// MergeJob 入队的合并作业
type MergeJob struct {
	MergeSessionID string `json:"merge_session_id"`
	UserID         string `json:"user_id"`
	RequestID      string `json:"request_id,omitempty"`
}

// MergeQueue 合并作业队列接口
type MergeQueue interface {
	// Enqueue 入队作业（非阻塞，队列满返回错误）
	Enqueue(ctx context.Context, job *MergeJob) error

	// Dequeue 出队作业（阻塞）
	Dequeue(ctx context.Context) (*MergeJob, error)

	// TryDequeue 尝试出队作业（非阻塞）
	TryDequeue(ctx context.Context) (*MergeJob, error)

	// Size 获取队列大小
	Size() int

	// IsEmpty 检查队列是否为空
	IsEmpty() bool

	// Close 关闭队列
	Close() error

	// IsClosed 检查队列是否已关闭
	IsClosed() bool
}

// MemoryMergeQueue 基于内存的合并作业队列实现
type MemoryMergeQueue struct {
	queue   chan *MergeJob
	closed  bool
	mu      sync.RWMutex
	metrics *QueueMetrics
}

// QueueMetrics 队列指标
type QueueMetrics struct {
	EnqueueCount uint64
	DequeueCount uint64
	MaxSize      int
	CurrentSize  int
	mu           sync.RWMutex
}

// NewMemoryMergeQueue 创建内存合并作业队列
func NewMemoryMergeQueue(capacity int) MergeQueue {
	if capacity <= 0 {
		capacity = 100 // 默认容量
	}

	return &MemoryMergeQueue{
		queue: make(chan *MergeJob, capacity),
		metrics: &QueueMetrics{
			MaxSize: capacity,
		},
	}
}

// Enqueue 入队作业
func (q *MemoryMergeQueue) Enqueue(ctx context.Context, job *MergeJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}

	select {
	case q.queue <- job:
		q.updateEnqueueMetrics()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("queue is full")
	}
}

// Dequeue 出队作业（阻塞）
func (q *MemoryMergeQueue) Dequeue(ctx context.Context) (*MergeJob, error) {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()

	if closed {
		return nil, fmt.Errorf("queue is closed")
	}

	select {
	case job, ok := <-q.queue:
		if !ok {
			return nil, fmt.Errorf("queue is closed")
		}
		q.updateDequeueMetrics()
		return job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryDequeue 尝试出队作业（非阻塞）
func (q *MemoryMergeQueue) TryDequeue(ctx context.Context) (*MergeJob, error) {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()

	if closed {
		return nil, fmt.Errorf("queue is closed")
	}

	select {
	case job, ok := <-q.queue:
		if !ok {
			return nil, fmt.Errorf("queue is closed")
		}
		q.updateDequeueMetrics()
		return job, nil
	default:
		return nil, nil // 队列为空
	}
}

// Size 获取队列大小
func (q *MemoryMergeQueue) Size() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return 0
	}

	return len(q.queue)
}

// IsEmpty 检查队列是否为空
func (q *MemoryMergeQueue) IsEmpty() bool {
	return q.Size() == 0
}

// Close 关闭队列
func (q *MemoryMergeQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.queue)
	return nil
}

// IsClosed 检查队列是否已关闭
func (q *MemoryMergeQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// GetMetrics 获取队列指标
func (q *MemoryMergeQueue) GetMetrics() QueueMetrics {
	q.metrics.mu.RLock()
	defer q.metrics.mu.RUnlock()

	metrics := QueueMetrics{
		EnqueueCount: q.metrics.EnqueueCount,
		DequeueCount: q.metrics.DequeueCount,
		MaxSize:      q.metrics.MaxSize,
	}
	metrics.CurrentSize = q.Size()
	return metrics
}

// updateEnqueueMetrics 更新入队指标
func (q *MemoryMergeQueue) updateEnqueueMetrics() {
	q.metrics.mu.Lock()
	defer q.metrics.mu.Unlock()
	q.metrics.EnqueueCount++
}

// updateDequeueMetrics 更新出队指标
func (q *MemoryMergeQueue) updateDequeueMetrics() {
	q.metrics.mu.Lock()
	defer q.metrics.mu.Unlock()
	q.metrics.DequeueCount++
}
