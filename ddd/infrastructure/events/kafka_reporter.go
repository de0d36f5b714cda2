package events

import (
	"context"
	"encoding/json"
	"time"

	"merge-service/ddd/domain/gateway"
	"merge-service/ddd/domain/vo"
	"merge-service/pkg/config"
	pkgkafka "merge-service/pkg/kafka"
	"merge-service/pkg/logger"
)

// mergeEvent 发布到事件主题的合并结果载荷
type mergeEvent struct {
	EventType      string                  `json:"event_type"`
	MergeSessionID string                  `json:"merge_session_id"`
	UserID         string                  `json:"user_id"`
	MergedVideoURL string                  `json:"merged_video_url,omitempty"`
	Metadata       *vo.MergedVideoMetadata `json:"merged_video_metadata,omitempty"`
	ErrorCode      string                  `json:"error_code,omitempty"`
	ErrorMessage   string                  `json:"error_message,omitempty"`
	OccurredAt     time.Time               `json:"occurred_at"`
}

// KafkaReporter 通过Kafka事件主题上报合并结果
type KafkaReporter struct {
	client *pkgkafka.Client
	topic  string
}

// NewKafkaReporter 创建Kafka结果上报器，Kafka未启用时返回nil由调用方降级
func NewKafkaReporter(cfg *config.Config) gateway.MergeResultReporter {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	if cfg == nil || !cfg.Kafka.Enabled {
		return nil
	}
	return &KafkaReporter{
		client: pkgkafka.DefaultClient(),
		topic:  cfg.Kafka.Topics.MergeEvents,
	}
}

// ReportCompleted 上报合并完成事件
func (r *KafkaReporter) ReportCompleted(ctx context.Context, mergeSessionID, userID, mergedVideoURL string, metadata *vo.MergedVideoMetadata) error {
	return r.publish(ctx, mergeEvent{
		EventType:      "merge.completed",
		MergeSessionID: mergeSessionID,
		UserID:         userID,
		MergedVideoURL: mergedVideoURL,
		Metadata:       metadata,
		OccurredAt:     time.Now(),
	})
}

// ReportFailed 上报合并失败事件
func (r *KafkaReporter) ReportFailed(ctx context.Context, mergeSessionID, userID, errorCode, errorMessage string) error {
	return r.publish(ctx, mergeEvent{
		EventType:      "merge.failed",
		MergeSessionID: mergeSessionID,
		UserID:         userID,
		ErrorCode:      errorCode,
		ErrorMessage:   errorMessage,
		OccurredAt:     time.Now(),
	})
}

func (r *KafkaReporter) publish(ctx context.Context, event mergeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := r.client.Produce(ctx, r.topic, []byte(event.MergeSessionID), payload); err != nil {
		logger.Error("Failed to publish merge event", map[string]interface{}{
			"event_type":       event.EventType,
			"merge_session_id": event.MergeSessionID,
			"error":            err.Error(),
		})
		return err
	}
	return nil
}
