package entity

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"merge-service/ddd/domain/vo"
)

// UploadSessionEntity 分片上传会话实体
type UploadSessionEntity struct {
	sessionID      string            // 会话ID
	userID         string            // 用户ID
	filename       string            // 原始文件名
	mimeType       string            // MIME类型
	fileSize       int64             // 声明的文件总字节数
	chunkSize      int64             // 分片字节数
	totalChunks    int               // 分片总数 ceil(fileSize/chunkSize)
	uploadedChunks map[int]struct{}  // 已接收的分片索引集合
	status         vo.SessionStatus  // 会话状态
	fileHash       string            // 声明的整文件SHA-256，可为空
	origin         vo.UploadOrigin   // 上传来源
	assembledPath  string            // 装配后的稳定路径，完成后填充
	cleanedUp      bool              // 组成文件是否已被清理
	cleanedAt      *time.Time        // 清理时间
	errorMessage   string            // 错误信息
	createdAt      time.Time         // 创建时间
	updatedAt      time.Time         // 更新时间
	completedAt    *time.Time        // 完成时间
	expiresAt      time.Time         // 过期时间
}

// NewUploadSessionEntity 创建上传会话实体
func NewUploadSessionEntity(
	userID string,
	filename string,
	mimeType string,
	fileSize int64,
	chunkSize int64,
	fileHash string,
	origin vo.UploadOrigin,
	ttl time.Duration,
) (*UploadSessionEntity, error) {
	if fileSize <= 0 {
		return nil, NewDomainError("file size must be positive")
	}
	if chunkSize <= 0 {
		return nil, NewDomainError("chunk size must be positive")
	}

	totalChunks := int((fileSize + chunkSize - 1) / chunkSize)
	now := time.Now()
	return &UploadSessionEntity{
		sessionID:      uuid.New().String(),
		userID:         userID,
		filename:       filename,
		mimeType:       mimeType,
		fileSize:       fileSize,
		chunkSize:      chunkSize,
		totalChunks:    totalChunks,
		uploadedChunks: make(map[int]struct{}),
		status:         vo.SessionStatusPending,
		fileHash:       fileHash,
		origin:         origin,
		createdAt:      now,
		updatedAt:      now,
		expiresAt:      now.Add(ttl),
	}, nil
}

// RestoreUploadSessionEntity 从持久化状态重建实体，仅供仓储层使用
func RestoreUploadSessionEntity(
	sessionID, userID, filename, mimeType string,
	fileSize, chunkSize int64,
	totalChunks int,
	uploadedChunks []int,
	status vo.SessionStatus,
	fileHash string,
	origin vo.UploadOrigin,
	assembledPath string,
	cleanedUp bool,
	cleanedAt *time.Time,
	errorMessage string,
	createdAt, updatedAt time.Time,
	completedAt *time.Time,
	expiresAt time.Time,
) *UploadSessionEntity {
	chunks := make(map[int]struct{}, len(uploadedChunks))
	for _, idx := range uploadedChunks {
		chunks[idx] = struct{}{}
	}
	return &UploadSessionEntity{
		sessionID:      sessionID,
		userID:         userID,
		filename:       filename,
		mimeType:       mimeType,
		fileSize:       fileSize,
		chunkSize:      chunkSize,
		totalChunks:    totalChunks,
		uploadedChunks: chunks,
		status:         status,
		fileHash:       fileHash,
		origin:         origin,
		assembledPath:  assembledPath,
		cleanedUp:      cleanedUp,
		cleanedAt:      cleanedAt,
		errorMessage:   errorMessage,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
		completedAt:    completedAt,
		expiresAt:      expiresAt,
	}
}

// Getters
func (s *UploadSessionEntity) SessionID() string        { return s.sessionID }
func (s *UploadSessionEntity) UserID() string           { return s.userID }
func (s *UploadSessionEntity) Filename() string         { return s.filename }
func (s *UploadSessionEntity) MimeType() string         { return s.mimeType }
func (s *UploadSessionEntity) FileSize() int64          { return s.fileSize }
func (s *UploadSessionEntity) ChunkSize() int64         { return s.chunkSize }
func (s *UploadSessionEntity) TotalChunks() int         { return s.totalChunks }
func (s *UploadSessionEntity) Status() vo.SessionStatus { return s.status }
func (s *UploadSessionEntity) FileHash() string         { return s.fileHash }
func (s *UploadSessionEntity) Origin() vo.UploadOrigin  { return s.origin }
func (s *UploadSessionEntity) AssembledPath() string    { return s.assembledPath }
func (s *UploadSessionEntity) CleanedUp() bool          { return s.cleanedUp }
func (s *UploadSessionEntity) CleanedAt() *time.Time    { return s.cleanedAt }
func (s *UploadSessionEntity) ErrorMessage() string     { return s.errorMessage }
func (s *UploadSessionEntity) CreatedAt() time.Time     { return s.createdAt }
func (s *UploadSessionEntity) UpdatedAt() time.Time     { return s.updatedAt }
func (s *UploadSessionEntity) CompletedAt() *time.Time  { return s.completedAt }
func (s *UploadSessionEntity) ExpiresAt() time.Time     { return s.expiresAt }

// UploadedChunks 返回已接收分片索引的副本
func (s *UploadSessionEntity) UploadedChunks() []int {
	out := make([]int, 0, len(s.uploadedChunks))
	for idx := range s.uploadedChunks {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// UploadedChunkCount 已接收分片数
func (s *UploadSessionEntity) UploadedChunkCount() int {
	return len(s.uploadedChunks)
}

// HasChunk 检查分片是否已接收
func (s *UploadSessionEntity) HasChunk(chunkNumber int) bool {
	_, ok := s.uploadedChunks[chunkNumber]
	return ok
}

// IsChunkNumberValid 检查分片索引是否在声明范围内
func (s *UploadSessionEntity) IsChunkNumberValid(chunkNumber int) bool {
	return chunkNumber >= 0 && chunkNumber < s.totalChunks
}

// MarkChunkUploaded 记录分片已接收，首个分片触发 pending → in_progress
func (s *UploadSessionEntity) MarkChunkUploaded(chunkNumber int) error {
	if !s.status.AcceptsChunks() {
		return NewDomainError("session is not accepting chunks in status: " + s.status.String())
	}
	if !s.IsChunkNumberValid(chunkNumber) {
		return NewDomainError(fmt.Sprintf("chunk number %d out of range [0,%d)", chunkNumber, s.totalChunks))
	}

	s.uploadedChunks[chunkNumber] = struct{}{}
	if s.status == vo.SessionStatusPending {
		s.status = vo.SessionStatusInProgress
	}
	s.updatedAt = time.Now()
	return nil
}

// RemainingChunks 返回缺失的分片索引，升序
func (s *UploadSessionEntity) RemainingChunks() []int {
	missing := make([]int, 0)
	for i := 0; i < s.totalChunks; i++ {
		if _, ok := s.uploadedChunks[i]; !ok {
			missing = append(missing, i)
		}
	}
	return missing
}

// Progress 返回上传进度百分比
func (s *UploadSessionEntity) Progress() float64 {
	if s.totalChunks == 0 {
		return 0
	}
	return float64(len(s.uploadedChunks)) / float64(s.totalChunks) * 100
}

// IsComplete 检查分片集合是否无缺口
func (s *UploadSessionEntity) IsComplete() bool {
	return len(s.uploadedChunks) == s.totalChunks
}

// Complete 完成会话并记录装配后的稳定路径
func (s *UploadSessionEntity) Complete(assembledPath string) error {
	if !s.status.CanTransitionTo(vo.SessionStatusCompleted) {
		return NewDomainError("cannot complete session in status: " + s.status.String())
	}
	if !s.IsComplete() {
		return NewDomainError(fmt.Sprintf("missing chunks: %d of %d uploaded", len(s.uploadedChunks), s.totalChunks))
	}

	now := time.Now()
	s.status = vo.SessionStatusCompleted
	s.assembledPath = assembledPath
	s.completedAt = &now
	s.updatedAt = now
	return nil
}

// Fail 标记会话失败
func (s *UploadSessionEntity) Fail(errorMessage string) error {
	if !s.status.CanTransitionTo(vo.SessionStatusFailed) {
		return NewDomainError("cannot fail session in status: " + s.status.String())
	}
	s.status = vo.SessionStatusFailed
	s.errorMessage = errorMessage
	s.updatedAt = time.Now()
	return nil
}

// Cancel 取消会话，终态上的取消返回false且不报错
func (s *UploadSessionEntity) Cancel() bool {
	if s.status.IsFinalStatus() {
		return false
	}
	s.status = vo.SessionStatusCancelled
	s.updatedAt = time.Now()
	return true
}

// IsExpired 检查会话是否超过TTL且未进入终态
func (s *UploadSessionEntity) IsExpired(now time.Time) bool {
	if s.status.IsFinalStatus() {
		return false
	}
	return now.After(s.expiresAt)
}

// MarkCleaned 标记组成文件已清理
func (s *UploadSessionEntity) MarkCleaned() {
	now := time.Now()
	s.cleanedUp = true
	s.cleanedAt = &now
	s.updatedAt = now
}
