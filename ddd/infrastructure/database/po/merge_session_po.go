package po

import "time"

// MergeSessionPO 合并会话持久化对象
type MergeSessionPO struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	MergeSessionID   string    `gorm:"uniqueIndex;size:64;not null" json:"merge_session_id"`
	UserID           string    `gorm:"index;size:36;not null" json:"user_id"`
	Status           string    `gorm:"index;size:20;not null" json:"status"`
	VideoCount       int       `gorm:"not null" json:"video_count"`
	QualityPreset    string    `gorm:"size:20;not null" json:"quality_preset"`
	VideoFiles       string    `gorm:"type:json" json:"video_files"`
	Progress         float64   `gorm:"default:0" json:"progress"`
	MergedVideoURL   string    `gorm:"size:500" json:"merged_video_url"`
	MergedMetadata   string    `gorm:"type:json" json:"merged_metadata"`
	ErrorCode        string    `gorm:"size:40" json:"error_code"`
	ErrorMessage     string    `gorm:"type:text" json:"error_message"`
	EstimatedSeconds float64   `gorm:"default:0" json:"estimated_seconds"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time `gorm:"index" json:"updated_at"`
}

// TableName 指定表名
func (MergeSessionPO) TableName() string {
	return "merge_sessions"
}
