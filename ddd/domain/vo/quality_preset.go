package vo

import "strings"

// QualityPreset 合并输出质量档位
type QualityPreset string

const (
	// QualityHigh 高质量
	QualityHigh QualityPreset = "high"
	// QualityMedium 中等质量
	QualityMedium QualityPreset = "medium"
	// QualityLow 低质量
	QualityLow QualityPreset = "low"
)

// ParseQualityPreset 解析质量档位，空值回退到medium
func ParseQualityPreset(s string) (QualityPreset, bool) {
	switch QualityPreset(strings.ToLower(strings.TrimSpace(s))) {
	case QualityHigh:
		return QualityHigh, true
	case QualityMedium, "":
		return QualityMedium, true
	case QualityLow:
		return QualityLow, true
	default:
		return QualityMedium, false
	}
}

// String 返回档位字符串
func (p QualityPreset) String() string {
	return string(p)
}
