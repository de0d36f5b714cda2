package dao

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"merge-service/ddd/infrastructure/database/po"
	"merge-service/internal/resource"
)

// UploadSessionDAO 上传会话数据访问对象
type UploadSessionDAO struct {
	db *gorm.DB
}

// NewUploadSessionDAO 创建上传会话DAO实例
func NewUploadSessionDAO(db *gorm.DB) *UploadSessionDAO {
	if db == nil {
		db = resource.DefaultMysqlResource().MainDB()
	}
	return &UploadSessionDAO{db: db}
}

// Create 创建上传会话记录
func (d *UploadSessionDAO) Create(ctx context.Context, sessionPo *po.UploadSessionPO) error {
	err := d.db.WithContext(ctx).Create(sessionPo).Error
	if err != nil {
		log.Printf("Error creating upload session %v", err)
		return err
	}
	return nil
}

// Update 全量更新上传会话记录
func (d *UploadSessionDAO) Update(ctx context.Context, sessionPo *po.UploadSessionPO) error {
	err := d.db.WithContext(ctx).
		Model(&po.UploadSessionPO{}).
		Where("session_id = ?", sessionPo.SessionID).
		Select("*").
		Omit("id", "session_id", "created_at").
		Updates(sessionPo).Error
	if err != nil {
		log.Printf("Error updating upload session %v", err)
		return err
	}
	return nil
}

// FindBySessionID 根据会话ID查询，未找到返回gorm.ErrRecordNotFound
func (d *UploadSessionDAO) FindBySessionID(ctx context.Context, sessionID string) (*po.UploadSessionPO, error) {
	var session po.UploadSessionPO
	if err := d.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// QueryByMergeSession 查询属于同一合并会话的上传会话，按视频索引升序
func (d *UploadSessionDAO) QueryByMergeSession(ctx context.Context, mergeSessionID string) ([]*po.UploadSessionPO, error) {
	var sessions []*po.UploadSessionPO
	if err := d.db.WithContext(ctx).
		Where("merge_session_id = ?", mergeSessionID).
		Order("video_index ASC, created_at ASC").
		Find(&sessions).Error; err != nil {
		log.Printf("Error query upload sessions by merge session %v", err)
		return nil, err
	}
	return sessions, nil
}

// QueryExpired 查询过期且未进入终态的会话
func (d *UploadSessionDAO) QueryExpired(ctx context.Context, now time.Time, limit int) ([]*po.UploadSessionPO, error) {
	var sessions []*po.UploadSessionPO
	query := d.db.WithContext(ctx).
		Where("expires_at < ? AND status IN ?", now, []string{"pending", "in_progress"}).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&sessions).Error; err != nil {
		log.Printf("Error query expired upload sessions %v", err)
		return nil, err
	}
	return sessions, nil
}

// Delete 删除上传会话记录
func (d *UploadSessionDAO) Delete(ctx context.Context, sessionID string) error {
	err := d.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&po.UploadSessionPO{}).Error
	if err != nil {
		log.Printf("Error deleting upload session %v", err)
		return err
	}
	return nil
}
