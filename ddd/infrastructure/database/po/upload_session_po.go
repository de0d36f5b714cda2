package po

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// UploadSessionPO 上传会话持久化对象
type UploadSessionPO struct {
	ID             uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID      string     `gorm:"uniqueIndex;size:36;not null" json:"session_id"`
	UserID         string     `gorm:"index;size:36;not null" json:"user_id"`
	Filename       string     `gorm:"size:255;not null" json:"filename"`
	MimeType       string     `gorm:"size:100;not null" json:"mime_type"`
	FileSize       int64      `gorm:"not null" json:"file_size"`
	ChunkSize      int64      `gorm:"not null" json:"chunk_size"`
	TotalChunks    int        `gorm:"not null" json:"total_chunks"`
	UploadedChunks IntList    `gorm:"type:json" json:"uploaded_chunks"`
	Status         string     `gorm:"index;size:20;not null" json:"status"`
	FileHash       string     `gorm:"size:64" json:"file_hash"`
	OriginKind     string     `gorm:"size:20;not null" json:"origin_kind"`
	MergeSessionID string     `gorm:"index;size:64" json:"merge_session_id"`
	VideoIndex     int        `gorm:"default:0" json:"video_index"`
	VideoCount     int        `gorm:"default:0" json:"video_count"`
	DurationHint   float64    `gorm:"default:0" json:"duration_hint"`
	AssembledPath  string     `gorm:"size:500" json:"assembled_path"`
	CleanedUp      bool       `gorm:"default:false" json:"cleaned_up"`
	CleanedAt      *time.Time `json:"cleaned_at"`
	ErrorMessage   string     `gorm:"type:text" json:"error_message"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	ExpiresAt      time.Time  `gorm:"index" json:"expires_at"`
}

// TableName 指定表名
func (UploadSessionPO) TableName() string {
	return "upload_sessions"
}

// IntList JSON整型数组列
type IntList []int

// Value 实现driver.Valuer接口
func (l IntList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan 实现sql.Scanner接口
func (l *IntList) Scan(value interface{}) error {
	if value == nil {
		*l = IntList{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into IntList", value)
	}
}
