package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"merge-service/ddd/domain/entity"
	"merge-service/ddd/domain/repo"
	"merge-service/ddd/infrastructure/database/convertor"
	"merge-service/ddd/infrastructure/database/dao"
)

// mergeSessionRepositoryImpl 合并会话仓储实现
type mergeSessionRepositoryImpl struct {
	sessionDao *dao.MergeSessionDAO
	convertor  *convertor.MergeSessionConvertor
}

// NewMergeSessionRepository 创建合并会话仓储实现
func NewMergeSessionRepository(db *gorm.DB) repo.MergeSessionRepository {
	return &mergeSessionRepositoryImpl{
		sessionDao: dao.NewMergeSessionDAO(db),
		convertor:  convertor.NewMergeSessionConvertor(),
	}
}

// CreateMergeSession 创建合并会话
func (r *mergeSessionRepositoryImpl) CreateMergeSession(ctx context.Context, session *entity.MergeSessionEntity) error {
	sessionPo, err := r.convertor.EntityToPO(session)
	if err != nil {
		return fmt.Errorf("failed to convert entity to po: %w", err)
	}
	return r.sessionDao.Create(ctx, sessionPo)
}

// UpdateMergeSession 全量更新会话状态
func (r *mergeSessionRepositoryImpl) UpdateMergeSession(ctx context.Context, session *entity.MergeSessionEntity) error {
	sessionPo, err := r.convertor.EntityToPO(session)
	if err != nil {
		return fmt.Errorf("failed to convert entity to po: %w", err)
	}
	return r.sessionDao.Update(ctx, sessionPo)
}

// UpdateMergeSessionIfProcessing 仅当记录仍为处理中时全量更新，返回是否命中
func (r *mergeSessionRepositoryImpl) UpdateMergeSessionIfProcessing(ctx context.Context, session *entity.MergeSessionEntity) (bool, error) {
	sessionPo, err := r.convertor.EntityToPO(session)
	if err != nil {
		return false, fmt.Errorf("failed to convert entity to po: %w", err)
	}
	return r.sessionDao.UpdateIfProcessing(ctx, sessionPo)
}

// UpdateMergeProgress 进度单列更新，不触碰状态
func (r *mergeSessionRepositoryImpl) UpdateMergeProgress(ctx context.Context, mergeSessionID string, progress float64) error {
	return r.sessionDao.UpdateProgress(ctx, mergeSessionID, progress)
}

// GetMergeSession 按ID获取会话，不存在返回nil
func (r *mergeSessionRepositoryImpl) GetMergeSession(ctx context.Context, mergeSessionID string) (*entity.MergeSessionEntity, error) {
	sessionPo, err := r.sessionDao.FindByMergeSessionID(ctx, mergeSessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.convertor.POToEntity(sessionPo)
}

// QueryStuckProcessing 查询卡在处理状态超过阈值的会话
func (r *mergeSessionRepositoryImpl) QueryStuckProcessing(ctx context.Context, updatedBefore time.Time, limit int) ([]*entity.MergeSessionEntity, error) {
	poList, err := r.sessionDao.QueryStuckProcessing(ctx, updatedBefore, limit)
	if err != nil {
		return nil, err
	}
	return r.convertor.POListToEntityList(poList)
}
