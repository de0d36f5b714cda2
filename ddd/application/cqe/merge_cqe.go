package cqe

import "merge-service/pkg/errno"

// InitiateMergeReq 发起合并请求
type InitiateMergeReq struct {
	MergeSessionID string `uri:"merge_session_id" binding:"required"`
	UserUUID       string `json:"-"`
	QualityPreset  string `json:"quality_preset"`
}

func (req *InitiateMergeReq) Validate() error {
	if req.MergeSessionID == "" {
		return errno.ErrMissingParam
	}
	if req.UserUUID == "" {
		return errno.ErrUserUUIDRequired
	}
	return nil
}

// CleanupMergeSourcesReq 清理合并会话组成文件请求
type CleanupMergeSourcesReq struct {
	MergeSessionID string `uri:"merge_session_id" binding:"required"`
	UserUUID       string `json:"-"`
}

func (req *CleanupMergeSourcesReq) Validate() error {
	if req.MergeSessionID == "" {
		return errno.ErrMissingParam
	}
	if req.UserUUID == "" {
		return errno.ErrUserUUIDRequired
	}
	return nil
}
