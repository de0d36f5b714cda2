package executor

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"merge-service/ddd/domain/gateway"
	"merge-service/pkg/config"
	"merge-service/pkg/logger"
)

// FFmpegMedia implements gateway.Prober and gateway.Transcoder using local ffmpeg/ffprobe.
type FFmpegMedia struct {
	cfg *config.Config
}

func NewFFmpegMedia(cfg *config.Config) *FFmpegMedia {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	return &FFmpegMedia{cfg: cfg}
}

func (e *FFmpegMedia) ffmpegCfg() *config.FFmpegConfig {
	cfg := e.cfg
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	return &cfg.Merge.FFmpeg
}

// ffprobe JSON输出结构，只取需要的字段
type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
	} `json:"format"`
}

// Probe 探测时长、分辨率、帧率与编码
func (e *FFmpegMedia) Probe(ctx context.Context, videoPath string) (*gateway.VideoInfo, error) {
	fc := e.ffmpegCfg()
	if fc.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, fc.StageTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, fc.ProbePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		videoPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", videoPath, err)
	}

	var probed probeOutput
	if err := json.Unmarshal(out, &probed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output for %s: %w", videoPath, err)
	}

	info := &gateway.VideoInfo{FilePath: videoPath}
	info.Duration, _ = strconv.ParseFloat(strings.TrimSpace(probed.Format.Duration), 64)
	info.FileSize, _ = strconv.ParseInt(strings.TrimSpace(probed.Format.Size), 10, 64)
	for _, stream := range probed.Streams {
		switch stream.CodecType {
		case "video":
			if info.VideoCodec == "" {
				info.VideoCodec = stream.CodecName
				info.Width = stream.Width
				info.Height = stream.Height
				info.FrameRate = parseFrameRate(stream.AvgFrameRate)
			}
		case "audio":
			info.HasAudio = true
			if info.AudioCodec == "" {
				info.AudioCodec = stream.CodecName
			}
		}
	}
	if info.Duration <= 0 {
		return nil, fmt.Errorf("ffprobe %s: no duration in output", videoPath)
	}
	return info, nil
}

// parseFrameRate 解析 "30000/1001" 形式的帧率
func parseFrameRate(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "0/0" {
		return 0
	}
	parts := strings.SplitN(s, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	if len(parts) == 1 {
		return num
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0
	}
	return num / den
}

// formatFrameRate fps滤镜参数，整数帧率去掉小数部分
func formatFrameRate(fps float64) string {
	if fps <= 0 {
		fps = 30
	}
	if fps == float64(int(fps)) {
		return strconv.Itoa(int(fps))
	}
	return strconv.FormatFloat(fps, 'f', 3, 64)
}

// Normalize 等比缩放并填充到目标分辨率，统一帧率与编码
func (e *FFmpegMedia) Normalize(ctx context.Context, inputPath, outputPath string, spec gateway.NormalizeSpec) error {
	fc := e.ffmpegCfg()

	vf := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,fps=%s",
		spec.Width, spec.Height, spec.Width, spec.Height, formatFrameRate(spec.FrameRate),
	)

	args := []string{
		"-i", inputPath,
		"-vf", vf,
		"-c:v", spec.VideoCodec,
		"-preset", "fast",
		"-crf", "20",
		"-c:a", spec.AudioCodec,
		"-b:a", "128k",
		"-ar", "44100",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
	}
	if fc.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(fc.Threads))
	}
	args = append(args, "-y", outputPath)

	return e.runFFmpeg(ctx, args)
}

// Concat 流复制拼接，输入已归一化为相同参数
func (e *FFmpegMedia) Concat(ctx context.Context, inputPaths []string, outputPath string) error {
	if len(inputPaths) == 0 {
		return fmt.Errorf("no inputs to concat")
	}

	// concat demuxer 需要列表文件
	listPath := filepath.Join(filepath.Dir(outputPath), "concat_list.txt")
	var sb strings.Builder
	for _, p := range inputPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		sb.WriteString(fmt.Sprintf("file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`)))
	}
	if err := os.WriteFile(listPath, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-movflags", "+faststart",
		"-y", outputPath,
	}
	return e.runFFmpeg(ctx, args)
}

// Compress 按质量档位重编码
func (e *FFmpegMedia) Compress(ctx context.Context, inputPath, outputPath string, spec gateway.CompressSpec) error {
	fc := e.ffmpegCfg()

	args := []string{
		"-i", inputPath,
		"-c:v", spec.VideoCodec,
		"-preset", spec.Preset,
		"-crf", strconv.Itoa(spec.CRF),
		"-maxrate", spec.VideoBitrate,
		"-bufsize", spec.VideoBitrate,
		"-c:a", spec.AudioCodec,
		"-b:a", spec.AudioBitrate,
		"-movflags", "+faststart",
	}
	if fc.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(fc.Threads))
	}
	args = append(args, "-y", outputPath)

	return e.runFFmpeg(ctx, args)
}

// runFFmpeg 执行ffmpeg并捕获stderr尾部用于失败诊断
func (e *FFmpegMedia) runFFmpeg(ctx context.Context, args []string) error {
	fc := e.ffmpegCfg()
	if fc.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, fc.StageTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, fc.BinaryPath, args...)
	logger.Debug("ffmpeg command", map[string]interface{}{
		"command": strings.Join(cmd.Args, " "),
	})

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("创建FFmpeg stderr管道失败: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("启动FFmpeg命令失败: %w", err)
	}

	tailDone := make(chan struct{})
	tail := make([]string, 0, 50)
	go func() {
		defer close(tailDone)
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 1024), 1024*1024)
		for scanner.Scan() {
			if len(tail) >= 50 {
				tail = tail[1:]
			}
			tail = append(tail, scanner.Text())
		}
	}()

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-tailDone
		return ctx.Err()
	case err := <-done:
		<-tailDone
		if err != nil {
			if len(tail) > 0 {
				logger.Errorf("ffmpeg failed tail_stderr=%s", strings.Join(tail, "\n"))
			}
			return fmt.Errorf("ffmpeg: %w", err)
		}
		return nil
	}
}
