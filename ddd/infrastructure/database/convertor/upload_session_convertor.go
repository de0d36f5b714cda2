package convertor

import (
	"merge-service/ddd/domain/entity"
	"merge-service/ddd/domain/vo"
	"merge-service/ddd/infrastructure/database/po"
)

// UploadSessionConvertor 上传会话实体与持久化对象转换器
type UploadSessionConvertor struct{}

// NewUploadSessionConvertor 创建转换器实例
func NewUploadSessionConvertor() *UploadSessionConvertor {
	return &UploadSessionConvertor{}
}

// EntityToPO 实体转持久化对象
func (c *UploadSessionConvertor) EntityToPO(session *entity.UploadSessionEntity) (*po.UploadSessionPO, error) {
	origin := session.Origin()
	return &po.UploadSessionPO{
		SessionID:      session.SessionID(),
		UserID:         session.UserID(),
		Filename:       session.Filename(),
		MimeType:       session.MimeType(),
		FileSize:       session.FileSize(),
		ChunkSize:      session.ChunkSize(),
		TotalChunks:    session.TotalChunks(),
		UploadedChunks: po.IntList(session.UploadedChunks()),
		Status:         session.Status().String(),
		FileHash:       session.FileHash(),
		OriginKind:     string(origin.Kind()),
		MergeSessionID: origin.MergeSessionID(),
		VideoIndex:     origin.VideoIndex(),
		VideoCount:     origin.VideoCount(),
		DurationHint:   origin.DurationHint(),
		AssembledPath:  session.AssembledPath(),
		CleanedUp:      session.CleanedUp(),
		CleanedAt:      session.CleanedAt(),
		ErrorMessage:   session.ErrorMessage(),
		CreatedAt:      session.CreatedAt(),
		UpdatedAt:      session.UpdatedAt(),
		CompletedAt:    session.CompletedAt(),
		ExpiresAt:      session.ExpiresAt(),
	}, nil
}

// POToEntity 持久化对象转实体
func (c *UploadSessionConvertor) POToEntity(sessionPo *po.UploadSessionPO) (*entity.UploadSessionEntity, error) {
	origin := vo.RestoreUploadOrigin(
		vo.OriginKind(sessionPo.OriginKind),
		sessionPo.MergeSessionID,
		sessionPo.VideoIndex,
		sessionPo.VideoCount,
		sessionPo.DurationHint,
	)
	return entity.RestoreUploadSessionEntity(
		sessionPo.SessionID,
		sessionPo.UserID,
		sessionPo.Filename,
		sessionPo.MimeType,
		sessionPo.FileSize,
		sessionPo.ChunkSize,
		sessionPo.TotalChunks,
		[]int(sessionPo.UploadedChunks),
		vo.SessionStatus(sessionPo.Status),
		sessionPo.FileHash,
		origin,
		sessionPo.AssembledPath,
		sessionPo.CleanedUp,
		sessionPo.CleanedAt,
		sessionPo.ErrorMessage,
		sessionPo.CreatedAt,
		sessionPo.UpdatedAt,
		sessionPo.CompletedAt,
		sessionPo.ExpiresAt,
	), nil
}

// POListToEntityList 持久化对象列表转实体列表
func (c *UploadSessionConvertor) POListToEntityList(poList []*po.UploadSessionPO) ([]*entity.UploadSessionEntity, error) {
	entities := make([]*entity.UploadSessionEntity, 0, len(poList))
	for _, sessionPo := range poList {
		e, err := c.POToEntity(sessionPo)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}
