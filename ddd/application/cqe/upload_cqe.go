package cqe

import (
	"merge-service/ddd/domain/vo"
	"merge-service/pkg/errno"
)

// InitiateUploadReq 创建上传会话请求
type InitiateUploadReq struct {
	UserUUID  string `json:"-"`
	Filename  string `json:"filename" binding:"required"`
	FileSize  int64  `json:"file_size" binding:"required"`
	MimeType  string `json:"mime_type" binding:"required"`
	ChunkSize int64  `json:"chunk_size"`
	FileHash  string `json:"file_hash"`

	// 合并组成视频来源（可选），携带MergeSessionID即视为组成视频
	MergeSessionID string  `json:"merge_session_id"`
	VideoIndex     int     `json:"video_index"`
	VideoCount     int     `json:"video_count"`
	DurationHint   float64 `json:"duration_hint"`
}

func (req *InitiateUploadReq) Validate() error {
	if req.UserUUID == "" {
		return errno.ErrUserUUIDRequired
	}
	if req.Filename == "" {
		return errno.ErrFileNameIllegal
	}
	if req.FileSize <= 0 {
		return errno.ErrFileSizeIllegal
	}
	if req.MergeSessionID != "" {
		if req.VideoCount <= 0 {
			return errno.ErrVideoCountIllegal
		}
		if req.VideoIndex < 0 || req.VideoIndex >= req.VideoCount {
			return errno.ErrVideoIndexIllegal
		}
	}
	return nil
}

// Origin 将请求字段转换为上传来源值对象
func (req *InitiateUploadReq) Origin() (vo.UploadOrigin, error) {
	if req.MergeSessionID == "" {
		return vo.NewStandaloneOrigin(), nil
	}
	origin, err := vo.NewMergeComponentOrigin(req.MergeSessionID, req.VideoIndex, req.VideoCount, req.DurationHint)
	if err != nil {
		return vo.UploadOrigin{}, errno.NewBizError(errno.ErrUploadOriginInvalid, err)
	}
	return origin, nil
}

// UploadChunkReq 分片上传请求，分片内容走请求体
type UploadChunkReq struct {
	SessionID   string `uri:"session_id" binding:"required"`
	ChunkNumber int    `uri:"chunk_number"`
	UserUUID    string `json:"-"`
	ChunkHash   string `json:"-"` // X-Chunk-Hash 请求头
}

func (req *UploadChunkReq) Validate() error {
	if req.SessionID == "" {
		return errno.ErrSessionUUIDRequired
	}
	if req.ChunkNumber < 0 {
		return errno.ErrChunkNumberIllegal
	}
	return nil
}

// CompleteUploadReq 完成上传请求
type CompleteUploadReq struct {
	SessionID string `uri:"session_id" binding:"required"`
	UserUUID  string `json:"-"`
	FileHash  string `json:"file_hash"`
}

func (req *CompleteUploadReq) Validate() error {
	if req.SessionID == "" {
		return errno.ErrSessionUUIDRequired
	}
	return nil
}
