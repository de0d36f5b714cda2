package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"merge-service/ddd/domain/port"
	"merge-service/ddd/domain/repo"
	"merge-service/ddd/domain/service"
	"merge-service/ddd/infrastructure/queue"
)

// MergeWorker 合并工作器接口
type MergeWorker interface {
	// Start 启动工作器
	Start(ctx context.Context) error

	// Stop 停止工作器
	Stop() error

	// IsRunning 检查工作器是否运行中
	IsRunning() bool

	// GetStats 获取工作器统计信息
	GetStats() WorkerStats
}

// WorkerStats 工作器统计信息
type WorkerStats struct {
	ProcessedJobs    uint64
	SuccessfulJobs   uint64
	FailedJobs       uint64
	RecoveredJobs    uint64
	CurrentlyRunning int
	StartTime        time.Time
	LastJobTime      time.Time
}

// mergeWorkerImpl 合并工作器实现
type mergeWorkerImpl struct {
	id               string
	jobQueue         queue.MergeQueue
	mergeService     service.MergeService
	mergeRepo        repo.MergeSessionRepository
	workerCount      int
	recoveryInterval time.Duration
	stuckThreshold   time.Duration
	running          bool
	cancel           context.CancelFunc
	stats            WorkerStats
	mu               sync.RWMutex
	wg               sync.WaitGroup
}

// NewMergeWorker 创建合并工作器
func NewMergeWorker(
	id string,
	jobQueue queue.MergeQueue,
	mergeService service.MergeService,
	mergeRepo repo.MergeSessionRepository,
	workerCount int,
	recoveryInterval time.Duration,
	stuckThreshold time.Duration,
) MergeWorker {
	if workerCount <= 0 {
		workerCount = 1
	}
	if recoveryInterval <= 0 {
		recoveryInterval = 30 * time.Second
	}
	if stuckThreshold <= 0 {
		stuckThreshold = time.Hour
	}

	return &mergeWorkerImpl{
		id:               id,
		jobQueue:         jobQueue,
		mergeService:     mergeService,
		mergeRepo:        mergeRepo,
		workerCount:      workerCount,
		recoveryInterval: recoveryInterval,
		stuckThreshold:   stuckThreshold,
		stats: WorkerStats{
			StartTime: time.Now(),
		},
	}
}

// Start 启动工作器
func (w *mergeWorkerImpl) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("worker %s is already running", w.id)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.stats.StartTime = time.Now()

	log.Printf("Starting merge worker %s with %d goroutines", w.id, w.workerCount)

	for i := 0; i < w.workerCount; i++ {
		w.wg.Add(1)
		go w.workerLoop(workerCtx, i)
	}

	// 启动卡死会话恢复协程
	w.wg.Add(1)
	go w.recoveryLoop(workerCtx)

	return nil
}

// Stop 停止工作器
func (w *mergeWorkerImpl) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	log.Printf("Stopping merge worker %s", w.id)

	if w.cancel != nil {
		w.cancel()
	}

	w.wg.Wait()

	w.running = false
	log.Printf("Merge worker %s stopped", w.id)

	return nil
}

// IsRunning 检查工作器是否运行中
func (w *mergeWorkerImpl) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// GetStats 获取工作器统计信息
func (w *mergeWorkerImpl) GetStats() WorkerStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// workerLoop 工作器主循环
func (w *mergeWorkerImpl) workerLoop(ctx context.Context, workerID int) {
	defer w.wg.Done()

	log.Printf("Worker %s-%d started", w.id, workerID)
	defer log.Printf("Worker %s-%d stopped", w.id, workerID)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.jobQueue.Dequeue(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				if w.jobQueue.IsClosed() {
					return
				}
				log.Printf("Worker %s-%d failed to dequeue job: %v", w.id, workerID, err)
				time.Sleep(time.Second) // 避免忙等待
				continue
			}

			if job == nil {
				continue
			}

			w.processJob(ctx, job, workerID)
		}
	}
}

// processJob 处理单个合并作业
func (w *mergeWorkerImpl) processJob(ctx context.Context, job *queue.MergeJob, workerID int) {
	log.Printf("Worker %s-%d processing merge session %s", w.id, workerID, job.MergeSessionID)

	// 作业可能在排队期间被取消，执行前取仓储里的最新状态
	session, err := w.mergeRepo.GetMergeSession(ctx, job.MergeSessionID)
	if err != nil {
		log.Printf("Worker %s-%d failed to load merge session %s: %v", w.id, workerID, job.MergeSessionID, err)
		return
	}
	if session == nil {
		log.Printf("Worker %s-%d merge session %s not found, dropping job", w.id, workerID, job.MergeSessionID)
		return
	}
	if session.Status().IsFinalStatus() {
		log.Printf("Worker %s-%d skip terminal merge session %s status=%s", w.id, workerID, job.MergeSessionID, session.Status().String())
		return
	}

	w.updateStats(func(stats *WorkerStats) {
		stats.CurrentlyRunning++
		stats.LastJobTime = time.Now()
	})

	defer func() {
		w.updateStats(func(stats *WorkerStats) {
			stats.CurrentlyRunning--
			stats.ProcessedJobs++
		})
	}()

	err = w.mergeService.ExecuteMerge(ctx, session, port.MergeOptions{RequestID: job.RequestID})
	if err != nil {
		log.Printf("Worker %s-%d failed to process merge session %s: %v", w.id, workerID, job.MergeSessionID, err)
		w.updateStats(func(stats *WorkerStats) {
			stats.FailedJobs++
		})
	} else {
		log.Printf("Worker %s-%d successfully processed merge session %s", w.id, workerID, job.MergeSessionID)
		w.updateStats(func(stats *WorkerStats) {
			stats.SuccessfulJobs++
		})
	}
}

// recoveryLoop 周期性标记卡死的处理中会话
func (w *mergeWorkerImpl) recoveryLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.recoveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			recovered := service.RecoverStuckSessions(ctx, w.mergeRepo, w.stuckThreshold)
			if recovered > 0 {
				w.updateStats(func(stats *WorkerStats) {
					stats.RecoveredJobs += uint64(recovered)
				})
			}
		}
	}
}

// updateStats 更新统计信息
func (w *mergeWorkerImpl) updateStats(updateFunc func(*WorkerStats)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	updateFunc(&w.stats)
}
