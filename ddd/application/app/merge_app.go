package app

import (
	"context"
	"sync"
	"time"

	"merge-service/ddd/application/cqe"
	"merge-service/ddd/application/dto"
	"merge-service/ddd/domain/port"
	"merge-service/ddd/domain/service"
	"merge-service/ddd/domain/vo"
	"merge-service/ddd/infrastructure/database/persistence"
	"merge-service/ddd/infrastructure/events"
	"merge-service/ddd/infrastructure/executor"
	"merge-service/ddd/infrastructure/lock"
	"merge-service/ddd/infrastructure/progress"
	"merge-service/ddd/infrastructure/queue"
	"merge-service/ddd/infrastructure/storage"
	"merge-service/internal/resource"
	"merge-service/pkg/assert"
	"merge-service/pkg/config"
	"merge-service/pkg/errno"
	"merge-service/pkg/logger"
)

var (
	singleMergeApp MergeApp
	onceMergeApp   sync.Once
)

// MergeApp 合并应用服务
type MergeApp interface {
	// GetReadiness 检查合并会话的组成视频是否全部就绪
	GetReadiness(ctx context.Context, mergeSessionID, userUUID string) (*dto.MergeReadinessDto, error)
	// InitiateMerge 创建合并会话并投递到处理队列
	InitiateMerge(ctx context.Context, req *cqe.InitiateMergeReq) (*dto.MergeSessionDTO, error)
	// GetMergeSession 读取合并会话状态
	GetMergeSession(ctx context.Context, mergeSessionID, userUUID string) (*dto.MergeSessionDTO, error)
	// CancelMerge 协作式取消合并
	CancelMerge(ctx context.Context, mergeSessionID, userUUID string) (bool, error)
	// CleanupSources 清理合并会话的组成视频文件
	CleanupSources(ctx context.Context, req *cqe.CleanupMergeSourcesReq) (*dto.CleanupResultDto, error)
}

type mergeAppImpl struct {
	mergeSvc   service.MergeService
	cleanupSvc service.CleanupService
	jobQueue   queue.MergeQueue
	locker     port.SessionLocker
}

// DefaultMergeApp 获取合并应用服务单例
func DefaultMergeApp() MergeApp {
	assert.NotCircular()
	onceMergeApp.Do(func() {
		cfg := config.GetGlobalConfig()

		mergeRepo := persistence.NewMergeSessionRepository(nil)
		uploadRepo := persistence.NewUploadSessionRepository(nil)
		chunkStore := storage.NewDiskChunkStore(cfg)

		media := executor.NewFFmpegMedia(cfg)
		storageGateway := storage.NewMinioStorage(resource.DefaultMinioResource(), cfg)
		resultReporter := events.NewKafkaReporter(cfg)

		mediaSvc := service.NewMediaPrepareService(media, media, cfg)
		progressSink := progress.NewDBSink(mergeRepo)
		mergeSvc := service.NewMergeService(mergeRepo, uploadRepo, mediaSvc, media, storageGateway, resultReporter, progressSink, cfg)
		cleanupSvc := service.NewCleanupService(uploadRepo, mergeRepo, chunkStore)

		locker := lock.NewRedisLocker(resource.DefaultRedisResource().Client())
		singleMergeApp = NewMergeAppWith(mergeSvc, cleanupSvc, queue.DefaultMergeQueue(), locker)
	})
	assert.NotNil(singleMergeApp)
	return singleMergeApp
}

// NewMergeAppWith 注入依赖构造合并应用服务
func NewMergeAppWith(mergeSvc service.MergeService, cleanupSvc service.CleanupService, jobQueue queue.MergeQueue, locker port.SessionLocker) MergeApp {
	return &mergeAppImpl{
		mergeSvc:   mergeSvc,
		cleanupSvc: cleanupSvc,
		jobQueue:   jobQueue,
		locker:     locker,
	}
}

func (a *mergeAppImpl) GetReadiness(ctx context.Context, mergeSessionID, userUUID string) (*dto.MergeReadinessDto, error) {
	result, err := a.mergeSvc.CheckMergeReadiness(ctx, mergeSessionID, userUUID)
	if err != nil {
		return nil, err
	}
	return dto.NewMergeReadinessDto(mergeSessionID, result), nil
}

func (a *mergeAppImpl) InitiateMerge(ctx context.Context, req *cqe.InitiateMergeReq) (*dto.MergeSessionDTO, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	preset, _ := vo.ParseQualityPreset(req.QualityPreset)

	// 会话级锁挡掉并发重复发起
	if a.locker != nil {
		acquired, err := a.locker.TryLock(ctx, req.MergeSessionID, time.Minute)
		if err != nil {
			logger.Warnf("merge initiate lock failed merge_session_id=%s error=%s", req.MergeSessionID, err.Error())
		} else if !acquired {
			return nil, errno.ErrMergeSessionExists
		} else {
			defer func() {
				_ = a.locker.Unlock(context.WithoutCancel(ctx), req.MergeSessionID)
			}()
		}
	}

	session, err := a.mergeSvc.InitiateMerge(ctx, req.MergeSessionID, req.UserUUID, preset)
	if err != nil {
		return nil, err
	}

	job := &queue.MergeJob{
		MergeSessionID: session.MergeSessionID(),
		UserID:         session.UserID(),
	}
	if err := a.jobQueue.Enqueue(ctx, job); err != nil {
		logger.Errorf("merge job enqueue failed merge_session_id=%s error=%v", session.MergeSessionID(), err)
		// 入队失败的会话直接取消，避免pending悬空，客户端可重新发起
		_, _ = a.mergeSvc.CancelMerge(ctx, session.MergeSessionID(), session.UserID())
		return nil, errno.ErrQueueFull
	}

	return dto.NewMergeSessionDto(session), nil
}

func (a *mergeAppImpl) GetMergeSession(ctx context.Context, mergeSessionID, userUUID string) (*dto.MergeSessionDTO, error) {
	session, err := a.mergeSvc.GetMergeSession(ctx, mergeSessionID, userUUID)
	if err != nil {
		return nil, err
	}
	return dto.NewMergeSessionDto(session), nil
}

func (a *mergeAppImpl) CancelMerge(ctx context.Context, mergeSessionID, userUUID string) (bool, error) {
	return a.mergeSvc.CancelMerge(ctx, mergeSessionID, userUUID)
}

func (a *mergeAppImpl) CleanupSources(ctx context.Context, req *cqe.CleanupMergeSourcesReq) (*dto.CleanupResultDto, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	result, err := a.cleanupSvc.CleanupIndividualVideos(ctx, req.MergeSessionID, req.UserUUID)
	if err != nil {
		return nil, err
	}
	return dto.NewCleanupResultDto(req.MergeSessionID, result), nil
}
