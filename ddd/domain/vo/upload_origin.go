package vo

import "fmt"

// OriginKind 上传来源类型
type OriginKind string

const (
	// OriginStandalone 独立上传
	OriginStandalone OriginKind = "standalone"
	// OriginMergeComponent 合并会话的组成视频
	OriginMergeComponent OriginKind = "merge_component"
)

// UploadOrigin 上传来源，合并组成视频必须携带会话ID与索引
type UploadOrigin struct {
	kind           OriginKind
	mergeSessionID string
	videoIndex     int
	videoCount     int
	durationHint   float64
}

// NewStandaloneOrigin 创建独立上传来源
func NewStandaloneOrigin() UploadOrigin {
	return UploadOrigin{kind: OriginStandalone}
}

// NewMergeComponentOrigin 创建合并组成视频来源，构造时校验索引范围
func NewMergeComponentOrigin(mergeSessionID string, videoIndex, videoCount int, durationHint float64) (UploadOrigin, error) {
	if mergeSessionID == "" {
		return UploadOrigin{}, fmt.Errorf("merge session id is required")
	}
	if videoCount <= 0 {
		return UploadOrigin{}, fmt.Errorf("video count must be positive, got %d", videoCount)
	}
	if videoIndex < 0 || videoIndex >= videoCount {
		return UploadOrigin{}, fmt.Errorf("video index %d out of range [0,%d)", videoIndex, videoCount)
	}
	if durationHint < 0 {
		return UploadOrigin{}, fmt.Errorf("duration hint must not be negative")
	}
	return UploadOrigin{
		kind:           OriginMergeComponent,
		mergeSessionID: mergeSessionID,
		videoIndex:     videoIndex,
		videoCount:     videoCount,
		durationHint:   durationHint,
	}, nil
}

// RestoreUploadOrigin 从持久化状态重建来源，仅供仓储层使用
func RestoreUploadOrigin(kind OriginKind, mergeSessionID string, videoIndex, videoCount int, durationHint float64) UploadOrigin {
	if kind != OriginMergeComponent {
		return UploadOrigin{kind: OriginStandalone}
	}
	return UploadOrigin{
		kind:           OriginMergeComponent,
		mergeSessionID: mergeSessionID,
		videoIndex:     videoIndex,
		videoCount:     videoCount,
		durationHint:   durationHint,
	}
}

// Kind 返回来源类型
func (o UploadOrigin) Kind() OriginKind { return o.kind }

// IsMergeComponent 是否为合并组成视频
func (o UploadOrigin) IsMergeComponent() bool { return o.kind == OriginMergeComponent }

// MergeSessionID 所属合并会话ID，独立上传为空
func (o UploadOrigin) MergeSessionID() string { return o.mergeSessionID }

// VideoIndex 在合并会话中的位置
func (o UploadOrigin) VideoIndex() int { return o.videoIndex }

// VideoCount 合并会话声明的视频总数
func (o UploadOrigin) VideoCount() int { return o.videoCount }

// DurationHint 客户端声明的时长，仅用于预估
func (o UploadOrigin) DurationHint() float64 { return o.durationHint }
