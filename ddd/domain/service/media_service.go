package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"merge-service/ddd/domain/gateway"
	"merge-service/ddd/domain/vo"
	"merge-service/pkg/config"
	"merge-service/pkg/errno"
	"merge-service/pkg/logger"
)

// AnalysisResult 探测结果汇总
type AnalysisResult struct {
	Videos          map[int]*gateway.VideoInfo // index -> 探测信息
	Failures        map[int]error              // index -> 探测失败原因
	MaxWidth        int
	MaxHeight       int
	CommonFrameRate float64
	AudioPresent    bool
	TotalDuration   float64
}

// PreparedClip 归一化后的片段
type PreparedClip struct {
	Index    int
	Path     string
	Duration float64
}

// MediaPrepareService 视频探测与归一化领域服务
type MediaPrepareService interface {
	// Analyze 逐个探测输入片段，探测成功数不足requiredCount时整体失败
	Analyze(ctx context.Context, files []vo.VideoFileRef, requiredCount int) (*AnalysisResult, error)
	// Prepare 将每个片段归一化到统一分辨率、帧率与编码，单片段失败只影响该片段
	Prepare(ctx context.Context, workDir string, files []vo.VideoFileRef, analysis *AnalysisResult) ([]PreparedClip, error)
}

type mediaPrepareServiceImpl struct {
	prober     gateway.Prober
	transcoder gateway.Transcoder
	cfg        *config.Config
}

// NewMediaPrepareService 创建探测与归一化服务
func NewMediaPrepareService(prober gateway.Prober, transcoder gateway.Transcoder, cfg *config.Config) MediaPrepareService {
	return &mediaPrepareServiceImpl{prober: prober, transcoder: transcoder, cfg: cfg}
}

// Analyze 逐个探测输入片段
func (s *mediaPrepareServiceImpl) Analyze(ctx context.Context, files []vo.VideoFileRef, requiredCount int) (*AnalysisResult, error) {
	result := &AnalysisResult{
		Videos:   make(map[int]*gateway.VideoInfo, len(files)),
		Failures: make(map[int]error),
	}

	for _, f := range files {
		info, err := s.prober.Probe(ctx, f.Path)
		if err != nil {
			result.Failures[f.Index] = err
			logger.Warnf("video probe failed index=%d path=%s error=%s", f.Index, f.Path, err.Error())
			continue
		}
		result.Videos[f.Index] = info

		if info.Width > result.MaxWidth {
			result.MaxWidth = info.Width
		}
		if info.Height > result.MaxHeight {
			result.MaxHeight = info.Height
		}
		if info.FrameRate > result.CommonFrameRate {
			result.CommonFrameRate = info.FrameRate
		}
		if info.HasAudio {
			result.AudioPresent = true
		}
		result.TotalDuration += info.Duration
	}

	if len(result.Videos) < requiredCount {
		return result, errno.NewBizError(errno.ErrAnalysisFailed,
			fmt.Errorf("only %d of %d videos probed successfully", len(result.Videos), requiredCount))
	}

	// 兜底目标参数，避免探测信息里缺少分辨率或帧率
	if result.MaxWidth == 0 || result.MaxHeight == 0 {
		result.MaxWidth, result.MaxHeight = 1280, 720
	}
	if result.CommonFrameRate <= 0 {
		result.CommonFrameRate = 30
	}
	return result, nil
}

// Prepare 将每个片段归一化到统一参数，归一化后拼接可直接流复制
func (s *mediaPrepareServiceImpl) Prepare(ctx context.Context, workDir string, files []vo.VideoFileRef, analysis *AnalysisResult) ([]PreparedClip, error) {
	if s.cfg == nil {
		s.cfg = config.GetGlobalConfig()
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, errno.NewBizError(errno.ErrPrepareFailed, err)
	}

	spec := gateway.NormalizeSpec{
		Width:      analysis.MaxWidth,
		Height:     analysis.MaxHeight,
		FrameRate:  analysis.CommonFrameRate,
		VideoCodec: s.cfg.Merge.FFmpeg.VideoCodec,
		AudioCodec: s.cfg.Merge.FFmpeg.AudioCodec,
	}

	prepared := make([]PreparedClip, 0, len(files))
	var firstErr error
	for _, f := range files {
		outputPath := filepath.Join(workDir, fmt.Sprintf("prepared_%03d.mp4", f.Index))
		if err := s.transcoder.Normalize(ctx, f.Path, outputPath, spec); err != nil {
			logger.Warnf("clip prepare failed index=%d path=%s error=%s", f.Index, f.Path, err.Error())
			if firstErr == nil {
				firstErr = errno.NewBizError(errno.ErrPrepareFailed,
					fmt.Errorf("clip %d: %w", f.Index, err))
			}
			continue
		}

		// 以归一化产物的实际时长为准计算分段
		duration := 0.0
		if info, err := s.prober.Probe(ctx, outputPath); err == nil {
			duration = info.Duration
		} else if v, ok := analysis.Videos[f.Index]; ok {
			duration = v.Duration
		}
		prepared = append(prepared, PreparedClip{Index: f.Index, Path: outputPath, Duration: duration})
	}

	if firstErr != nil {
		return prepared, firstErr
	}
	return prepared, nil
}
