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

// uploadSessionRepositoryImpl 上传会话仓储实现
type uploadSessionRepositoryImpl struct {
	sessionDao *dao.UploadSessionDAO
	convertor  *convertor.UploadSessionConvertor
}

// NewUploadSessionRepository 创建上传会话仓储实现
func NewUploadSessionRepository(db *gorm.DB) repo.UploadSessionRepository {
	return &uploadSessionRepositoryImpl{
		sessionDao: dao.NewUploadSessionDAO(db),
		convertor:  convertor.NewUploadSessionConvertor(),
	}
}

// CreateUploadSession 创建上传会话
func (r *uploadSessionRepositoryImpl) CreateUploadSession(ctx context.Context, session *entity.UploadSessionEntity) error {
	sessionPo, err := r.convertor.EntityToPO(session)
	if err != nil {
		return fmt.Errorf("failed to convert entity to po: %w", err)
	}
	return r.sessionDao.Create(ctx, sessionPo)
}

// UpdateUploadSession 全量更新会话状态
func (r *uploadSessionRepositoryImpl) UpdateUploadSession(ctx context.Context, session *entity.UploadSessionEntity) error {
	sessionPo, err := r.convertor.EntityToPO(session)
	if err != nil {
		return fmt.Errorf("failed to convert entity to po: %w", err)
	}
	return r.sessionDao.Update(ctx, sessionPo)
}

// GetUploadSession 按ID获取会话，不存在返回nil
func (r *uploadSessionRepositoryImpl) GetUploadSession(ctx context.Context, sessionID string) (*entity.UploadSessionEntity, error) {
	sessionPo, err := r.sessionDao.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.convertor.POToEntity(sessionPo)
}

// QueryByMergeSession 查询属于同一合并会话的全部上传会话
func (r *uploadSessionRepositoryImpl) QueryByMergeSession(ctx context.Context, mergeSessionID string) ([]*entity.UploadSessionEntity, error) {
	poList, err := r.sessionDao.QueryByMergeSession(ctx, mergeSessionID)
	if err != nil {
		return nil, err
	}
	return r.convertor.POListToEntityList(poList)
}

// QueryExpiredSessions 查询过期且未进入终态的会话
func (r *uploadSessionRepositoryImpl) QueryExpiredSessions(ctx context.Context, now time.Time, limit int) ([]*entity.UploadSessionEntity, error) {
	poList, err := r.sessionDao.QueryExpired(ctx, now, limit)
	if err != nil {
		return nil, err
	}
	return r.convertor.POListToEntityList(poList)
}

// DeleteUploadSession 删除会话记录
func (r *uploadSessionRepositoryImpl) DeleteUploadSession(ctx context.Context, sessionID string) error {
	return r.sessionDao.Delete(ctx, sessionID)
}
