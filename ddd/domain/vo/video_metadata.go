package vo

import (
	"fmt"
	"math"
)

// SegmentTolerance 分段时间轴允许的数值误差（秒），重编码会引入舍入
const SegmentTolerance = 0.05

// VideoFileRef 合并会话中一个组成视频的引用
type VideoFileRef struct {
	Index        int     `json:"index"`
	Path         string  `json:"path"`
	DurationHint float64 `json:"duration_hint"`
}

// VideoSegmentMetadata 合并输出中一条陈述对应的时间段
type VideoSegmentMetadata struct {
	StartTime      float64 `json:"start_time"`
	EndTime        float64 `json:"end_time"`
	Duration       float64 `json:"duration"`
	StatementIndex int     `json:"statement_index"`
}

// MergedVideoMetadata 合并输出的时间轴元数据
type MergedVideoMetadata struct {
	TotalDuration         float64                `json:"total_duration"`
	Segments              []VideoSegmentMetadata `json:"segments"`
	VideoFileID           string                 `json:"video_file_id"`
	CompressionApplied    bool                   `json:"compression_applied"`
	OriginalTotalDuration float64                `json:"original_total_duration,omitempty"`
}

// BuildSegments 按索引顺序由各视频实际时长累计生成分段
func BuildSegments(durations []float64) []VideoSegmentMetadata {
	segments := make([]VideoSegmentMetadata, 0, len(durations))
	cursor := 0.0
	for i, d := range durations {
		segments = append(segments, VideoSegmentMetadata{
			StartTime:      cursor,
			EndTime:        cursor + d,
			Duration:       d,
			StatementIndex: i,
		})
		cursor += d
	}
	return segments
}

// Validate 校验分段连续、不重叠且覆盖总时长
func (m *MergedVideoMetadata) Validate() error {
	if len(m.Segments) == 0 {
		return fmt.Errorf("metadata has no segments")
	}

	seen := make(map[int]bool, len(m.Segments))
	for i, seg := range m.Segments {
		if seg.StartTime >= seg.EndTime {
			return fmt.Errorf("segment %d has non-positive duration", i)
		}
		if math.Abs(seg.Duration-(seg.EndTime-seg.StartTime)) > SegmentTolerance {
			return fmt.Errorf("segment %d duration does not match its bounds", i)
		}
		if seg.StatementIndex < 0 || seg.StatementIndex >= len(m.Segments) {
			return fmt.Errorf("segment %d statement index %d out of range", i, seg.StatementIndex)
		}
		if seen[seg.StatementIndex] {
			return fmt.Errorf("duplicate statement index %d", seg.StatementIndex)
		}
		seen[seg.StatementIndex] = true
	}

	if math.Abs(m.Segments[0].StartTime) > SegmentTolerance {
		return fmt.Errorf("first segment must start at 0")
	}
	for i := 1; i < len(m.Segments); i++ {
		if math.Abs(m.Segments[i].StartTime-m.Segments[i-1].EndTime) > SegmentTolerance {
			return fmt.Errorf("segments %d and %d are not contiguous", i-1, i)
		}
	}
	last := m.Segments[len(m.Segments)-1]
	if math.Abs(last.EndTime-m.TotalDuration) > SegmentTolerance {
		return fmt.Errorf("last segment end %.3f does not match total duration %.3f", last.EndTime, m.TotalDuration)
	}
	return nil
}
