package dto

import (
	"time"

	"merge-service/ddd/domain/entity"
	"merge-service/ddd/domain/service"
	"merge-service/ddd/domain/vo"
)

// MergeSessionDto 合并会话数据传输对象
type MergeSessionDto struct {
	MergeSessionID           string                  `json:"merge_session_id"`
	UserUUID                 string                  `json:"user_uuid"`
	Status                   string                  `json:"status"`
	VideoCount               int                     `json:"video_count"`
	QualityPreset            string                  `json:"quality_preset"`
	Progress                 float64                 `json:"progress"`
	MergedVideoURL           string                  `json:"merged_video_url,omitempty"`
	MergedVideoMetadata      *vo.MergedVideoMetadata `json:"merged_video_metadata,omitempty"`
	ErrorCode                string                  `json:"error_code,omitempty"`
	ErrorMessage             string                  `json:"error_message,omitempty"`
	EstimatedDurationSeconds float64                 `json:"estimated_duration_seconds,omitempty"`
	CreatedAt                time.Time               `json:"created_at"`
	UpdatedAt                time.Time               `json:"updated_at"`
}

// MergeSessionDTO 合并会话DTO（别名）
type MergeSessionDTO = MergeSessionDto

// NewMergeSessionDto 从实体创建DTO
func NewMergeSessionDto(session *entity.MergeSessionEntity) *MergeSessionDto {
	if session == nil {
		return nil
	}

	return &MergeSessionDto{
		MergeSessionID:           session.MergeSessionID(),
		UserUUID:                 session.UserID(),
		Status:                   session.Status().String(),
		VideoCount:               session.VideoCount(),
		QualityPreset:            session.QualityPreset().String(),
		Progress:                 session.Progress(),
		MergedVideoURL:           session.MergedVideoURL(),
		MergedVideoMetadata:      session.MergedMetadata(),
		ErrorCode:                session.ErrorCode(),
		ErrorMessage:             session.ErrorMessage(),
		EstimatedDurationSeconds: session.EstimatedSeconds(),
		CreatedAt:                session.CreatedAt(),
		UpdatedAt:                session.UpdatedAt(),
	}
}

// MergeReadinessDto 合并就绪检查结果
type MergeReadinessDto struct {
	MergeSessionID  string  `json:"merge_session_id"`
	Ready           bool    `json:"ready"`
	VideosCompleted int     `json:"videos_completed"`
	VideosExpected  int     `json:"videos_expected"`
	TotalBytes      int64   `json:"total_bytes"`
	TotalDuration   float64 `json:"total_duration"`
}

// NewMergeReadinessDto 创建就绪检查DTO
func NewMergeReadinessDto(mergeSessionID string, result *service.ReadinessResult) *MergeReadinessDto {
	if result == nil {
		return nil
	}
	return &MergeReadinessDto{
		MergeSessionID:  mergeSessionID,
		Ready:           result.Ready,
		VideosCompleted: result.VideosCompleted,
		VideosExpected:  result.VideosExpected,
		TotalBytes:      result.TotalBytes,
		TotalDuration:   result.TotalDuration,
	}
}

// CleanupResultDto 清理结果
type CleanupResultDto struct {
	MergeSessionID  string   `json:"merge_session_id"`
	FilesDeleted    int      `json:"files_deleted"`
	FilesFailed     int      `json:"files_failed"`
	SessionsCleaned int      `json:"sessions_cleaned"`
	Errors          []string `json:"errors,omitempty"`
}

// NewCleanupResultDto 创建清理结果DTO
func NewCleanupResultDto(mergeSessionID string, result *service.CleanupResult) *CleanupResultDto {
	if result == nil {
		return nil
	}
	return &CleanupResultDto{
		MergeSessionID:  mergeSessionID,
		FilesDeleted:    result.FilesDeleted,
		FilesFailed:     result.FilesFailed,
		SessionsCleaned: result.SessionsCleaned,
		Errors:          result.Errors,
	}
}
