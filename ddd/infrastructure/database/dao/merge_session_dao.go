package dao

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"merge-service/ddd/infrastructure/database/po"
	"merge-service/internal/resource"
)

// MergeSessionDAO 合并会话数据访问对象
type MergeSessionDAO struct {
	db *gorm.DB
}

// NewMergeSessionDAO 创建合并会话DAO实例
func NewMergeSessionDAO(db *gorm.DB) *MergeSessionDAO {
	if db == nil {
		db = resource.DefaultMysqlResource().MainDB()
	}
	return &MergeSessionDAO{db: db}
}

// Create 创建合并会话记录
func (d *MergeSessionDAO) Create(ctx context.Context, sessionPo *po.MergeSessionPO) error {
	err := d.db.WithContext(ctx).Create(sessionPo).Error
	if err != nil {
		log.Printf("Error creating merge session %v", err)
		return err
	}
	return nil
}

// Update 全量更新合并会话记录
func (d *MergeSessionDAO) Update(ctx context.Context, sessionPo *po.MergeSessionPO) error {
	err := d.db.WithContext(ctx).
		Model(&po.MergeSessionPO{}).
		Where("merge_session_id = ?", sessionPo.MergeSessionID).
		Select("*").
		Omit("id", "merge_session_id", "created_at").
		Updates(sessionPo).Error
	if err != nil {
		log.Printf("Error updating merge session %v", err)
		return err
	}
	return nil
}

// UpdateIfProcessing 带状态守卫的全量更新，仅当记录仍为processing时生效，返回是否命中
func (d *MergeSessionDAO) UpdateIfProcessing(ctx context.Context, sessionPo *po.MergeSessionPO) (bool, error) {
	result := d.db.WithContext(ctx).
		Model(&po.MergeSessionPO{}).
		Where("merge_session_id = ? AND status = ?", sessionPo.MergeSessionID, "processing").
		Select("*").
		Omit("id", "merge_session_id", "created_at").
		Updates(sessionPo)
	if result.Error != nil {
		log.Printf("Error updating merge session %v", result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateProgress 进度单列更新，仅作用于处理中的记录
func (d *MergeSessionDAO) UpdateProgress(ctx context.Context, mergeSessionID string, progress float64) error {
	err := d.db.WithContext(ctx).
		Model(&po.MergeSessionPO{}).
		Where("merge_session_id = ? AND status = ?", mergeSessionID, "processing").
		Update("progress", progress).Error
	if err != nil {
		log.Printf("Error updating merge progress %v", err)
		return err
	}
	return nil
}

// FindByMergeSessionID 根据合并会话ID查询，未找到返回gorm.ErrRecordNotFound
func (d *MergeSessionDAO) FindByMergeSessionID(ctx context.Context, mergeSessionID string) (*po.MergeSessionPO, error) {
	var session po.MergeSessionPO
	if err := d.db.WithContext(ctx).
		Where("merge_session_id = ?", mergeSessionID).
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// QueryStuckProcessing 查询卡在处理状态超过阈值的会话
func (d *MergeSessionDAO) QueryStuckProcessing(ctx context.Context, updatedBefore time.Time, limit int) ([]*po.MergeSessionPO, error) {
	var sessions []*po.MergeSessionPO
	query := d.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", "processing", updatedBefore).
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&sessions).Error; err != nil {
		log.Printf("Error query stuck merge sessions %v", err)
		return nil, err
	}
	return sessions, nil
}
