package convertor

import (
	"encoding/json"
	"fmt"

	"merge-service/ddd/domain/entity"
	"merge-service/ddd/domain/vo"
	"merge-service/ddd/infrastructure/database/po"
)

// MergeSessionConvertor 合并会话实体与持久化对象转换器
type MergeSessionConvertor struct{}

// NewMergeSessionConvertor 创建转换器实例
func NewMergeSessionConvertor() *MergeSessionConvertor {
	return &MergeSessionConvertor{}
}

// EntityToPO 实体转持久化对象
func (c *MergeSessionConvertor) EntityToPO(session *entity.MergeSessionEntity) (*po.MergeSessionPO, error) {
	videoFiles, err := json.Marshal(session.VideoFiles())
	if err != nil {
		return nil, fmt.Errorf("marshal video files: %w", err)
	}

	mergedMetadata := ""
	if metadata := session.MergedMetadata(); metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal merged metadata: %w", err)
		}
		mergedMetadata = string(raw)
	}

	return &po.MergeSessionPO{
		MergeSessionID:   session.MergeSessionID(),
		UserID:           session.UserID(),
		Status:           session.Status().String(),
		VideoCount:       session.VideoCount(),
		QualityPreset:    session.QualityPreset().String(),
		VideoFiles:       string(videoFiles),
		Progress:         session.Progress(),
		MergedVideoURL:   session.MergedVideoURL(),
		MergedMetadata:   mergedMetadata,
		ErrorCode:        session.ErrorCode(),
		ErrorMessage:     session.ErrorMessage(),
		EstimatedSeconds: session.EstimatedSeconds(),
		CreatedAt:        session.CreatedAt(),
		UpdatedAt:        session.UpdatedAt(),
	}, nil
}

// POToEntity 持久化对象转实体
func (c *MergeSessionConvertor) POToEntity(sessionPo *po.MergeSessionPO) (*entity.MergeSessionEntity, error) {
	var videoFiles []vo.VideoFileRef
	if sessionPo.VideoFiles != "" && sessionPo.VideoFiles != "null" {
		if err := json.Unmarshal([]byte(sessionPo.VideoFiles), &videoFiles); err != nil {
			return nil, fmt.Errorf("unmarshal video files: %w", err)
		}
	}

	var mergedMetadata *vo.MergedVideoMetadata
	if sessionPo.MergedMetadata != "" && sessionPo.MergedMetadata != "null" {
		mergedMetadata = &vo.MergedVideoMetadata{}
		if err := json.Unmarshal([]byte(sessionPo.MergedMetadata), mergedMetadata); err != nil {
			return nil, fmt.Errorf("unmarshal merged metadata: %w", err)
		}
	}

	preset, _ := vo.ParseQualityPreset(sessionPo.QualityPreset)
	return entity.RestoreMergeSessionEntity(
		sessionPo.MergeSessionID,
		sessionPo.UserID,
		vo.MergeStatus(sessionPo.Status),
		sessionPo.VideoCount,
		preset,
		videoFiles,
		sessionPo.Progress,
		sessionPo.MergedVideoURL,
		mergedMetadata,
		sessionPo.ErrorCode,
		sessionPo.ErrorMessage,
		sessionPo.EstimatedSeconds,
		sessionPo.CreatedAt,
		sessionPo.UpdatedAt,
	), nil
}

// POListToEntityList 持久化对象列表转实体列表
func (c *MergeSessionConvertor) POListToEntityList(poList []*po.MergeSessionPO) ([]*entity.MergeSessionEntity, error) {
	entities := make([]*entity.MergeSessionEntity, 0, len(poList))
	for _, sessionPo := range poList {
		e, err := c.POToEntity(sessionPo)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}
