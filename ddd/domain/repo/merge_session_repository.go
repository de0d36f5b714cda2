package repo

import (
	"context"
	"time"

	"merge-service/ddd/domain/entity"
)

// MergeSessionRepository 合并会话仓储接口
type MergeSessionRepository interface {
	// CreateMergeSession 创建合并会话
	CreateMergeSession(ctx context.Context, session *entity.MergeSessionEntity) error
	// UpdateMergeSession 全量更新会话状态
	UpdateMergeSession(ctx context.Context, session *entity.MergeSessionEntity) error
	// UpdateMergeSessionIfProcessing 仅当持久化记录仍为处理中时全量更新，返回是否命中。
	// 并发落库的取消不会被覆盖。
	UpdateMergeSessionIfProcessing(ctx context.Context, session *entity.MergeSessionEntity) (bool, error)
	// UpdateMergeProgress 进度单列更新，仅作用于处理中的记录，不触碰状态
	UpdateMergeProgress(ctx context.Context, mergeSessionID string, progress float64) error
	// GetMergeSession 按ID获取会话，不存在返回nil
	GetMergeSession(ctx context.Context, mergeSessionID string) (*entity.MergeSessionEntity, error)
	// QueryStuckProcessing 查询卡在处理状态超过阈值的会话
	QueryStuckProcessing(ctx context.Context, updatedBefore time.Time, limit int) ([]*entity.MergeSessionEntity, error)
}
