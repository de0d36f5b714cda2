package service

import (
	"context"
	"fmt"

	"merge-service/ddd/domain/gateway"
	"merge-service/ddd/domain/repo"
	"merge-service/pkg/errno"
	"merge-service/pkg/logger"
)

// CleanupResult 清理结果汇总
type CleanupResult struct {
	FilesDeleted    int      `json:"files_deleted"`
	FilesFailed     int      `json:"files_failed"`
	SessionsCleaned int      `json:"sessions_cleaned"`
	Errors          []string `json:"errors,omitempty"`
}

// CleanupService 合并会话组成文件清理服务
type CleanupService interface {
	// CleanupIndividualVideos 删除合并会话全部组成视频的落盘文件。
	// 归属校验在任何删除之前完成；单文件删除失败收集到错误列表，不中断整体清理。
	CleanupIndividualVideos(ctx context.Context, mergeSessionID, userID string) (*CleanupResult, error)
}

type cleanupServiceImpl struct {
	uploadRepo repo.UploadSessionRepository
	mergeRepo  repo.MergeSessionRepository
	chunkStore gateway.ChunkStore
}

// NewCleanupService 创建清理服务
func NewCleanupService(uploadRepo repo.UploadSessionRepository, mergeRepo repo.MergeSessionRepository, chunkStore gateway.ChunkStore) CleanupService {
	return &cleanupServiceImpl{
		uploadRepo: uploadRepo,
		mergeRepo:  mergeRepo,
		chunkStore: chunkStore,
	}
}

// CleanupIndividualVideos 逐项尽力删除，先校验归属再动文件
func (s *cleanupServiceImpl) CleanupIndividualVideos(ctx context.Context, mergeSessionID, userID string) (*CleanupResult, error) {
	mergeSession, err := s.mergeRepo.GetMergeSession(ctx, mergeSessionID)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	if mergeSession == nil {
		return nil, errno.ErrMergeSessionNotFound
	}
	if userID != "" && mergeSession.UserID() != userID {
		return nil, errno.ErrAccessDenied
	}

	sessions, err := s.uploadRepo.QueryByMergeSession(ctx, mergeSessionID)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}

	result := &CleanupResult{}
	for _, us := range sessions {
		if us.CleanedUp() {
			continue
		}

		failed := false
		if path := us.AssembledPath(); path != "" {
			if err := s.chunkStore.RemoveFile(ctx, path); err != nil {
				failed = true
				result.FilesFailed++
				result.Errors = append(result.Errors,
					fmt.Sprintf("session %s: delete %s: %v", us.SessionID(), path, err))
			} else {
				result.FilesDeleted++
			}
		}
		if err := s.chunkStore.RemoveSession(ctx, us.SessionID()); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("session %s: remove chunks: %v", us.SessionID(), err))
		}

		if failed {
			continue
		}
		us.MarkCleaned()
		if err := s.uploadRepo.UpdateUploadSession(ctx, us); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("session %s: mark cleaned: %v", us.SessionID(), err))
			continue
		}
		result.SessionsCleaned++
	}

	logger.Infof("merge session cleanup done merge_session_id=%s deleted=%d failed=%d sessions=%d",
		mergeSessionID, result.FilesDeleted, result.FilesFailed, result.SessionsCleaned)
	return result, nil
}
