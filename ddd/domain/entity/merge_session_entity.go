package entity

import (
	"time"

	"merge-service/ddd/domain/vo"
)

// MergeSessionEntity 合并会话实体
type MergeSessionEntity struct {
	mergeSessionID string                  // 合并会话ID，由上游指定
	userID         string                  // 用户ID
	status         vo.MergeStatus          // 会话状态
	videoCount     int                     // 声明的组成视频数
	qualityPreset  vo.QualityPreset        // 质量档位
	videoFiles     []vo.VideoFileRef       // 组成视频，按索引升序
	progress       float64                 // 进度百分比 (0-100)
	mergedVideoURL string                  // 合并输出的公开URL
	mergedMetadata *vo.MergedVideoMetadata // 分段时间轴元数据
	errorCode      string                  // 失败阶段码
	errorMessage   string                  // 错误信息
	estimatedSecs  float64                 // 预估处理耗时（秒），仅用于UX
	createdAt      time.Time               // 创建时间
	updatedAt      time.Time               // 更新时间
}

// NewMergeSessionEntity 创建合并会话实体
func NewMergeSessionEntity(mergeSessionID, userID string, videoCount int, preset vo.QualityPreset) (*MergeSessionEntity, error) {
	if mergeSessionID == "" {
		return nil, NewDomainError("merge session id is required")
	}
	if userID == "" {
		return nil, NewDomainError("user id is required")
	}
	if videoCount <= 0 {
		return nil, NewDomainError("video count must be positive")
	}

	now := time.Now()
	return &MergeSessionEntity{
		mergeSessionID: mergeSessionID,
		userID:         userID,
		status:         vo.MergeStatusPending,
		videoCount:     videoCount,
		qualityPreset:  preset,
		progress:       0,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// RestoreMergeSessionEntity 从持久化状态重建实体，仅供仓储层使用
func RestoreMergeSessionEntity(
	mergeSessionID, userID string,
	status vo.MergeStatus,
	videoCount int,
	preset vo.QualityPreset,
	videoFiles []vo.VideoFileRef,
	progress float64,
	mergedVideoURL string,
	mergedMetadata *vo.MergedVideoMetadata,
	errorCode, errorMessage string,
	estimatedSecs float64,
	createdAt, updatedAt time.Time,
) *MergeSessionEntity {
	return &MergeSessionEntity{
		mergeSessionID: mergeSessionID,
		userID:         userID,
		status:         status,
		videoCount:     videoCount,
		qualityPreset:  preset,
		videoFiles:     videoFiles,
		progress:       progress,
		mergedVideoURL: mergedVideoURL,
		mergedMetadata: mergedMetadata,
		errorCode:      errorCode,
		errorMessage:   errorMessage,
		estimatedSecs:  estimatedSecs,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// Getters
func (m *MergeSessionEntity) MergeSessionID() string                  { return m.mergeSessionID }
func (m *MergeSessionEntity) UserID() string                          { return m.userID }
func (m *MergeSessionEntity) Status() vo.MergeStatus                  { return m.status }
func (m *MergeSessionEntity) VideoCount() int                         { return m.videoCount }
func (m *MergeSessionEntity) QualityPreset() vo.QualityPreset         { return m.qualityPreset }
func (m *MergeSessionEntity) Progress() float64                       { return m.progress }
func (m *MergeSessionEntity) MergedVideoURL() string                  { return m.mergedVideoURL }
func (m *MergeSessionEntity) MergedMetadata() *vo.MergedVideoMetadata { return m.mergedMetadata }
func (m *MergeSessionEntity) ErrorCode() string                       { return m.errorCode }
func (m *MergeSessionEntity) ErrorMessage() string                    { return m.errorMessage }
func (m *MergeSessionEntity) EstimatedSeconds() float64               { return m.estimatedSecs }
func (m *MergeSessionEntity) CreatedAt() time.Time                    { return m.createdAt }
func (m *MergeSessionEntity) UpdatedAt() time.Time                    { return m.updatedAt }

// VideoFiles 返回组成视频列表的副本
func (m *MergeSessionEntity) VideoFiles() []vo.VideoFileRef {
	out := make([]vo.VideoFileRef, len(m.videoFiles))
	copy(out, m.videoFiles)
	return out
}

// SetVideoFiles 记录就绪检查通过后定位到的组成视频
func (m *MergeSessionEntity) SetVideoFiles(files []vo.VideoFileRef) error {
	if len(files) != m.videoCount {
		return NewDomainError("video file count does not match declared video count")
	}
	m.videoFiles = make([]vo.VideoFileRef, len(files))
	copy(m.videoFiles, files)
	m.updatedAt = time.Now()
	return nil
}

// SetEstimatedSeconds 记录预估处理耗时
func (m *MergeSessionEntity) SetEstimatedSeconds(secs float64) {
	m.estimatedSecs = secs
	m.updatedAt = time.Now()
}

// StartProcessing 进入处理状态
func (m *MergeSessionEntity) StartProcessing() error {
	if !m.status.CanTransitionTo(vo.MergeStatusProcessing) {
		return NewDomainError("cannot start processing in status: " + m.status.String())
	}
	m.status = vo.MergeStatusProcessing
	m.progress = 0
	m.updatedAt = time.Now()
	return nil
}

// UpdateProgress 更新进度，仅处理中可更新
func (m *MergeSessionEntity) UpdateProgress(progress float64) error {
	if m.status != vo.MergeStatusProcessing {
		return NewDomainError("can only update progress for processing sessions")
	}
	if progress < 0 || progress > 100 {
		return NewDomainError("progress must be between 0 and 100")
	}
	m.progress = progress
	m.updatedAt = time.Now()
	return nil
}

// Complete 记录合并结果并进入完成状态
func (m *MergeSessionEntity) Complete(url string, metadata *vo.MergedVideoMetadata) error {
	if !m.status.CanTransitionTo(vo.MergeStatusCompleted) {
		return NewDomainError("cannot complete merge in status: " + m.status.String())
	}
	if url == "" || metadata == nil {
		return NewDomainError("merge result url and metadata are required on completion")
	}
	m.status = vo.MergeStatusCompleted
	m.progress = 100
	m.mergedVideoURL = url
	m.mergedMetadata = metadata
	m.updatedAt = time.Now()
	return nil
}

// Fail 记录失败阶段码与错误信息
func (m *MergeSessionEntity) Fail(errorCode, errorMessage string) error {
	if !m.status.CanTransitionTo(vo.MergeStatusFailed) {
		return NewDomainError("cannot fail merge in status: " + m.status.String())
	}
	m.status = vo.MergeStatusFailed
	m.errorCode = errorCode
	m.errorMessage = errorMessage
	m.updatedAt = time.Now()
	return nil
}

// Cancel 取消会话，终态上的取消返回false且不报错
func (m *MergeSessionEntity) Cancel() bool {
	if m.status.IsFinalStatus() {
		return false
	}
	m.status = vo.MergeStatusCancelled
	m.updatedAt = time.Now()
	return true
}
