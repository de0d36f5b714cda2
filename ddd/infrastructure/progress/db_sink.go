package progress

import (
	"context"

	"merge-service/ddd/domain/entity"
	"merge-service/ddd/domain/port"
	"merge-service/ddd/domain/repo"
)

// DBSink writes merge progress to the repository.
type DBSink struct {
	repo repo.MergeSessionRepository
}

func NewDBSink(r repo.MergeSessionRepository) port.ProgressSink {
	return &DBSink{repo: r}
}

// SaveProgress 进度单列写入。不做全量更新，避免覆盖并发落库的取消状态。
func (s *DBSink) SaveProgress(ctx context.Context, session *entity.MergeSessionEntity, progress float64) error {
	if s.repo == nil || session == nil {
		return nil
	}
	return s.repo.UpdateMergeProgress(ctx, session.MergeSessionID(), progress)
}
