package dto

import (
	"time"

	"merge-service/ddd/domain/entity"
)

// UploadSessionDto 上传会话数据传输对象
type UploadSessionDto struct {
	SessionID       string    `json:"session_id"`
	UserUUID        string    `json:"user_uuid"`
	Filename        string    `json:"filename"`
	MimeType        string    `json:"mime_type"`
	FileSize        int64     `json:"file_size"`
	ChunkSize       int64     `json:"chunk_size"`
	TotalChunks     int       `json:"total_chunks"`
	UploadedChunks  []int     `json:"uploaded_chunks"`
	Status          string    `json:"status"`
	ProgressPercent float64   `json:"progress_percent"`
	MergeSessionID  string    `json:"merge_session_id,omitempty"`
	VideoIndex      int       `json:"video_index,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// UploadSessionDTO 上传会话DTO（别名）
type UploadSessionDTO = UploadSessionDto

// NewUploadSessionDto 从实体创建DTO
func NewUploadSessionDto(session *entity.UploadSessionEntity) *UploadSessionDto {
	if session == nil {
		return nil
	}

	origin := session.Origin()
	return &UploadSessionDto{
		SessionID:       session.SessionID(),
		UserUUID:        session.UserID(),
		Filename:        session.Filename(),
		MimeType:        session.MimeType(),
		FileSize:        session.FileSize(),
		ChunkSize:       session.ChunkSize(),
		TotalChunks:     session.TotalChunks(),
		UploadedChunks:  session.UploadedChunks(),
		Status:          session.Status().String(),
		ProgressPercent: session.Progress(),
		MergeSessionID:  origin.MergeSessionID(),
		VideoIndex:      origin.VideoIndex(),
		ErrorMessage:    session.ErrorMessage(),
		CreatedAt:       session.CreatedAt(),
		ExpiresAt:       session.ExpiresAt(),
	}
}

// ChunkUploadResultDto 分片上传结果
type ChunkUploadResultDto struct {
	SessionID       string  `json:"session_id"`
	ChunkNumber     int     `json:"chunk_number"`
	AlreadyUploaded bool    `json:"already_uploaded"`
	UploadedChunks  int     `json:"uploaded_chunks"`
	TotalChunks     int     `json:"total_chunks"`
	ProgressPercent float64 `json:"progress_percent"`
}

// NewChunkUploadResultDto 创建分片上传结果DTO
func NewChunkUploadResultDto(session *entity.UploadSessionEntity, chunkNumber int, alreadyUploaded bool) *ChunkUploadResultDto {
	if session == nil {
		return nil
	}
	return &ChunkUploadResultDto{
		SessionID:       session.SessionID(),
		ChunkNumber:     chunkNumber,
		AlreadyUploaded: alreadyUploaded,
		UploadedChunks:  session.UploadedChunkCount(),
		TotalChunks:     session.TotalChunks(),
		ProgressPercent: session.Progress(),
	}
}

// CompleteUploadDto 完成上传结果
type CompleteUploadDto struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	FilePath  string `json:"file_path"`
}

// UploadProgressDto 上传进度
type UploadProgressDto struct {
	SessionID       string  `json:"session_id"`
	ProgressPercent float64 `json:"progress_percent"`
}

// RemainingChunksDto 缺失分片列表
type RemainingChunksDto struct {
	SessionID       string `json:"session_id"`
	RemainingChunks []int  `json:"remaining_chunks"`
}
