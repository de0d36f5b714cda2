package port

import (
	"context"

	"merge-service/ddd/domain/entity"
)

// ProgressCallback is invoked by executors to report percentage progress (0-100).
type ProgressCallback func(progress float64)

// MergeExecutor runs the full merge pipeline for one session and records the
// outcome on the session. Implementations must leave the session in a terminal
// state or processing with an error recorded; never silently in between.
type MergeExecutor interface {
	Execute(ctx context.Context, session *entity.MergeSessionEntity, opts MergeOptions) error
}

// MergeOptions controls executor behaviour.
type MergeOptions struct {
	ProgressCb ProgressCallback
	RequestID  string
	WorkDir    string
}
