package vo

// SessionStatus 上传会话状态
type SessionStatus string

const (
	// SessionStatusPending 已创建未收到分片
	SessionStatusPending SessionStatus = "pending"
	// SessionStatusInProgress 已收到至少一个分片
	SessionStatusInProgress SessionStatus = "in_progress"
	// SessionStatusCompleted 全部分片校验通过并完成装配
	SessionStatusCompleted SessionStatus = "completed"
	// SessionStatusFailed 失败
	SessionStatusFailed SessionStatus = "failed"
	// SessionStatusCancelled 已取消
	SessionStatusCancelled SessionStatus = "cancelled"
)

// IsValid 检查状态是否有效
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusPending, SessionStatusInProgress, SessionStatusCompleted,
		SessionStatusFailed, SessionStatusCancelled:
		return true
	default:
		return false
	}
}

// String 返回状态字符串
func (s SessionStatus) String() string {
	return string(s)
}

// IsFinalStatus 检查是否为最终状态
func (s SessionStatus) IsFinalStatus() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed || s == SessionStatusCancelled
}

// AcceptsChunks 检查当前状态是否还接收分片
func (s SessionStatus) AcceptsChunks() bool {
	return s == SessionStatusPending || s == SessionStatusInProgress
}

// CanTransitionTo 检查是否可以转换到目标状态
func (s SessionStatus) CanTransitionTo(target SessionStatus) bool {
	switch s {
	case SessionStatusPending:
		return target == SessionStatusInProgress || target == SessionStatusCompleted ||
			target == SessionStatusFailed || target == SessionStatusCancelled
	case SessionStatusInProgress:
		return target == SessionStatusCompleted || target == SessionStatusFailed ||
			target == SessionStatusCancelled
	case SessionStatusCompleted, SessionStatusFailed, SessionStatusCancelled:
		return false // 最终状态不能转换
	default:
		return false
	}
}
