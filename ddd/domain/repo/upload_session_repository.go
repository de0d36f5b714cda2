package repo

import (
	"context"
	"time"

	"merge-service/ddd/domain/entity"
)

// UploadSessionRepository 上传会话仓储接口
type UploadSessionRepository interface {
	// CreateUploadSession 创建上传会话
	CreateUploadSession(ctx context.Context, session *entity.UploadSessionEntity) error
	// UpdateUploadSession 全量更新会话状态
	UpdateUploadSession(ctx context.Context, session *entity.UploadSessionEntity) error
	// GetUploadSession 按ID获取会话，不存在返回nil
	GetUploadSession(ctx context.Context, sessionID string) (*entity.UploadSessionEntity, error)
	// QueryByMergeSession 查询属于同一合并会话的全部上传会话
	QueryByMergeSession(ctx context.Context, mergeSessionID string) ([]*entity.UploadSessionEntity, error)
	// QueryExpiredSessions 查询过期且未进入终态的会话
	QueryExpiredSessions(ctx context.Context, now time.Time, limit int) ([]*entity.UploadSessionEntity, error)
	// DeleteUploadSession 删除会话记录
	DeleteUploadSession(ctx context.Context, sessionID string) error
}
