package gateway

import (
	"context"

	"merge-service/ddd/domain/vo"
)

// MergeResultReporter notifies downstream services about merge outcomes.
type MergeResultReporter interface {
	ReportCompleted(ctx context.Context, mergeSessionID, userID, mergedVideoURL string, metadata *vo.MergedVideoMetadata) error
	ReportFailed(ctx context.Context, mergeSessionID, userID, errorCode, errorMessage string) error
}
