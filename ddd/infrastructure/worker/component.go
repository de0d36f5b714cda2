package worker

import (
	"context"
	"fmt"

	"merge-service/ddd/domain/service"
	"merge-service/ddd/infrastructure/database/persistence"
	"merge-service/ddd/infrastructure/events"
	"merge-service/ddd/infrastructure/executor"
	"merge-service/ddd/infrastructure/progress"
	"merge-service/ddd/infrastructure/queue"
	"merge-service/ddd/infrastructure/storage"
	"merge-service/internal/resource"
	"merge-service/pkg/config"
	"merge-service/pkg/logger"
	"merge-service/pkg/manager"
	"merge-service/pkg/task"
)

func init() {
	manager.RegisterComponentPlugin(&MergeWorkerComponentPlugin{})
}

// MergeWorkerComponentPlugin 负责装配并启动合并Worker
type MergeWorkerComponentPlugin struct{}

func (p *MergeWorkerComponentPlugin) Name() string {
	return "mergeWorkerComponent"
}

func (p *MergeWorkerComponentPlugin) MustCreateComponent(deps *manager.Dependencies) manager.Component {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}

	mergeRepo := persistence.NewMergeSessionRepository(deps.DB)
	uploadRepo := persistence.NewUploadSessionRepository(deps.DB)
	queueInstance := queue.DefaultMergeQueue()

	media := executor.NewFFmpegMedia(cfg)
	storageGateway := storage.NewMinioStorage(resource.DefaultMinioResource(), cfg)
	// 合并结果通过Kafka事件主题对外广播，Kafka未启用时reporter为nil
	resultReporter := events.NewKafkaReporter(cfg)

	mediaSvc := service.NewMediaPrepareService(media, media, cfg)
	progressSink := progress.NewDBSink(mergeRepo)
	mergeSvc := service.NewMergeService(mergeRepo, uploadRepo, mediaSvc, media, storageGateway, resultReporter, progressSink, cfg)

	workerCount := 1
	workerID := "merge-worker"
	if cfg != nil {
		if cfg.Worker.MaxConcurrentMerges > 0 {
			workerCount = cfg.Worker.MaxConcurrentMerges
		}
		if cfg.Worker.WorkerID != "" {
			workerID = cfg.Worker.WorkerID
		}
	}

	return &mergeWorkerComponent{
		name:  "mergeWorker",
		queue: queueInstance,
		worker: NewMergeWorker(
			workerID,
			queueInstance,
			mergeSvc,
			mergeRepo,
			workerCount,
			cfg.Worker.RecoveryInterval,
			cfg.Worker.StuckThreshold,
		),
	}
}

type mergeWorkerComponent struct {
	name   string
	queue  queue.MergeQueue
	worker MergeWorker
	cancel context.CancelFunc
}

func (c *mergeWorkerComponent) Start() error {
	if c.worker == nil {
		return fmt.Errorf("merge worker not initialized")
	}

	// 注册后台任务，让应用启动时统一管理
	task.Register(&backgroundTaskAdapter{name: c.name, startFunc: c.worker.Start, stopFunc: c.worker.Stop})
	logger.Infof("Merge worker component registered background tasks name=%s", c.name)
	return nil
}

func (c *mergeWorkerComponent) Stop() error {
	// 背景任务由 task.Manager 控制停止，这里保持幂等
	if c.cancel != nil {
		c.cancel()
	}
	queue.CloseDefaultMergeQueue()
	logger.Infof("Merge worker component stopped name=%s", c.name)
	return nil
}

func (c *mergeWorkerComponent) GetName() string {
	return c.name
}

// backgroundTaskAdapter adapts Start/Stop functions to the BackgroundTask interface.
type backgroundTaskAdapter struct {
	name      string
	startFunc func(ctx context.Context) error
	stopFunc  func() error
}

func (b *backgroundTaskAdapter) Name() string                    { return b.name }
func (b *backgroundTaskAdapter) Start(ctx context.Context) error { return b.startFunc(ctx) }
func (b *backgroundTaskAdapter) Stop() error                     { return b.stopFunc() }
