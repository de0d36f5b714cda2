package gateway

import "context"

// VideoInfo 探测得到的视频信息
type VideoInfo struct {
	FilePath   string  `json:"file_path"`
	FileSize   int64   `json:"file_size"`
	Duration   float64 `json:"duration"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FrameRate  float64 `json:"frame_rate"`
	VideoCodec string  `json:"video_codec"`
	AudioCodec string  `json:"audio_codec"`
	HasAudio   bool    `json:"has_audio"`
}

// NormalizeSpec 归一化目标参数，保证归一化后的片段可流复制拼接
type NormalizeSpec struct {
	Width      int
	Height     int
	FrameRate  float64
	VideoCodec string
	AudioCodec string
}

// CompressSpec 压缩阶段的编码参数
type CompressSpec struct {
	CRF          int
	VideoBitrate string
	AudioBitrate string
	Preset       string
	VideoCodec   string
	AudioCodec   string
}

// Prober 视频探测接口
type Prober interface {
	// Probe 探测单个文件的时长、分辨率、帧率与编码
	Probe(ctx context.Context, videoPath string) (*VideoInfo, error)
}

// Transcoder 视频处理接口，由FFmpeg执行器实现
type Transcoder interface {
	// Normalize 将单个片段归一化到目标参数，等比缩放并填充
	Normalize(ctx context.Context, inputPath, outputPath string, spec NormalizeSpec) error
	// Concat 按给定顺序流复制拼接归一化片段
	Concat(ctx context.Context, inputPaths []string, outputPath string) error
	// Compress 按质量档位重编码拼接结果
	Compress(ctx context.Context, inputPath, outputPath string, spec CompressSpec) error
}
