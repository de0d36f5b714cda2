package app

import (
	"context"
	"sync"

	"merge-service/ddd/application/cqe"
	"merge-service/ddd/application/dto"
	"merge-service/ddd/domain/service"
	"merge-service/ddd/infrastructure/database/persistence"
	"merge-service/ddd/infrastructure/storage"
	"merge-service/pkg/assert"
	"merge-service/pkg/config"
)

var (
	singleUploadApp UploadApp
	onceUploadApp   sync.Once
)

// UploadApp 分片上传应用服务
type UploadApp interface {
	// InitiateUpload 创建上传会话
	InitiateUpload(ctx context.Context, req *cqe.InitiateUploadReq) (*dto.UploadSessionDTO, error)
	// UploadChunk 写入单个分片，重复分片幂等返回
	UploadChunk(ctx context.Context, req *cqe.UploadChunkReq, data []byte) (*dto.ChunkUploadResultDto, error)
	// CompleteUpload 校验并装配整文件
	CompleteUpload(ctx context.Context, req *cqe.CompleteUploadReq) (*dto.CompleteUploadDto, error)
	// CancelUpload 取消上传会话
	CancelUpload(ctx context.Context, sessionID, userUUID string) (bool, error)
	// GetProgress 获取上传进度
	GetProgress(ctx context.Context, sessionID, userUUID string) (*dto.UploadProgressDto, error)
	// GetRemainingChunks 获取缺失分片索引
	GetRemainingChunks(ctx context.Context, sessionID, userUUID string) (*dto.RemainingChunksDto, error)
	// GetUploadSession 获取会话详情
	GetUploadSession(ctx context.Context, sessionID, userUUID string) (*dto.UploadSessionDTO, error)
	// CleanupExpiredSessions 回收过期会话
	CleanupExpiredSessions(ctx context.Context) (int, error)
}

type uploadAppImpl struct {
	uploadSvc service.ChunkedUploadService
}

// DefaultUploadApp 获取上传应用服务单例
func DefaultUploadApp() UploadApp {
	assert.NotCircular()
	onceUploadApp.Do(func() {
		cfg := config.GetGlobalConfig()
		uploadSvc := service.NewChunkedUploadService(
			persistence.NewUploadSessionRepository(nil),
			storage.NewDiskChunkStore(cfg),
			cfg,
		)
		singleUploadApp = NewUploadAppWith(uploadSvc)
	})
	assert.NotNil(singleUploadApp)
	return singleUploadApp
}

// NewUploadAppWith 注入依赖构造上传应用服务
func NewUploadAppWith(uploadSvc service.ChunkedUploadService) UploadApp {
	return &uploadAppImpl{uploadSvc: uploadSvc}
}

func (a *uploadAppImpl) InitiateUpload(ctx context.Context, req *cqe.InitiateUploadReq) (*dto.UploadSessionDTO, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	origin, err := req.Origin()
	if err != nil {
		return nil, err
	}

	session, err := a.uploadSvc.Initiate(ctx, req.UserUUID, req.Filename, req.FileSize, req.MimeType, req.ChunkSize, req.FileHash, origin)
	if err != nil {
		return nil, err
	}
	return dto.NewUploadSessionDto(session), nil
}

func (a *uploadAppImpl) UploadChunk(ctx context.Context, req *cqe.UploadChunkReq, data []byte) (*dto.ChunkUploadResultDto, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	session, alreadyUploaded, err := a.uploadSvc.UploadChunk(ctx, req.SessionID, req.UserUUID, req.ChunkNumber, data, req.ChunkHash)
	if err != nil {
		return nil, err
	}
	return dto.NewChunkUploadResultDto(session, req.ChunkNumber, alreadyUploaded), nil
}

func (a *uploadAppImpl) CompleteUpload(ctx context.Context, req *cqe.CompleteUploadReq) (*dto.CompleteUploadDto, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	assembledPath, err := a.uploadSvc.Complete(ctx, req.SessionID, req.UserUUID, req.FileHash)
	if err != nil {
		return nil, err
	}
	return &dto.CompleteUploadDto{
		SessionID: req.SessionID,
		Status:    "completed",
		FilePath:  assembledPath,
	}, nil
}

func (a *uploadAppImpl) CancelUpload(ctx context.Context, sessionID, userUUID string) (bool, error) {
	return a.uploadSvc.Cancel(ctx, sessionID, userUUID)
}

func (a *uploadAppImpl) GetProgress(ctx context.Context, sessionID, userUUID string) (*dto.UploadProgressDto, error) {
	progress, err := a.uploadSvc.Progress(ctx, sessionID, userUUID)
	if err != nil {
		return nil, err
	}
	return &dto.UploadProgressDto{SessionID: sessionID, ProgressPercent: progress}, nil
}

func (a *uploadAppImpl) GetRemainingChunks(ctx context.Context, sessionID, userUUID string) (*dto.RemainingChunksDto, error) {
	remaining, err := a.uploadSvc.RemainingChunks(ctx, sessionID, userUUID)
	if err != nil {
		return nil, err
	}
	return &dto.RemainingChunksDto{SessionID: sessionID, RemainingChunks: remaining}, nil
}

func (a *uploadAppImpl) GetUploadSession(ctx context.Context, sessionID, userUUID string) (*dto.UploadSessionDTO, error) {
	session, err := a.uploadSvc.GetSession(ctx, sessionID, userUUID)
	if err != nil {
		return nil, err
	}
	return dto.NewUploadSessionDto(session), nil
}

func (a *uploadAppImpl) CleanupExpiredSessions(ctx context.Context) (int, error) {
	return a.uploadSvc.CleanupExpiredSessions(ctx)
}
