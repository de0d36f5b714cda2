package port

import (
	"context"

	"merge-service/ddd/domain/entity"
)

// ProgressSink persists or forwards merge progress updates.
type ProgressSink interface {
	SaveProgress(ctx context.Context, session *entity.MergeSessionEntity, progress float64) error
}
