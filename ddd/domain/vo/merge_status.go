package vo

// MergeStatus 合并会话状态
type MergeStatus string

const (
	// MergeStatusPending 等待处理
	MergeStatusPending MergeStatus = "pending"
	// MergeStatusProcessing 管线处理中
	MergeStatusProcessing MergeStatus = "processing"
	// MergeStatusCompleted 已完成
	MergeStatusCompleted MergeStatus = "completed"
	// MergeStatusFailed 失败
	MergeStatusFailed MergeStatus = "failed"
	// MergeStatusCancelled 已取消
	MergeStatusCancelled MergeStatus = "cancelled"
)

// IsValid 检查状态是否有效
func (s MergeStatus) IsValid() bool {
	switch s {
	case MergeStatusPending, MergeStatusProcessing, MergeStatusCompleted,
		MergeStatusFailed, MergeStatusCancelled:
		return true
	default:
		return false
	}
}

// String 返回状态字符串
func (s MergeStatus) String() string {
	return string(s)
}

// IsFinalStatus 检查是否为最终状态
func (s MergeStatus) IsFinalStatus() bool {
	return s == MergeStatusCompleted || s == MergeStatusFailed || s == MergeStatusCancelled
}

// CanTransitionTo 检查是否可以转换到目标状态
func (s MergeStatus) CanTransitionTo(target MergeStatus) bool {
	switch s {
	case MergeStatusPending:
		return target == MergeStatusProcessing || target == MergeStatusCancelled || target == MergeStatusFailed
	case MergeStatusProcessing:
		return target == MergeStatusCompleted || target == MergeStatusFailed || target == MergeStatusCancelled
	case MergeStatusCompleted, MergeStatusFailed, MergeStatusCancelled:
		return false // 最终状态不能转换
	default:
		return false
	}
}
