package convertor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"merge-service/ddd/domain/entity"
	"merge-service/ddd/domain/vo"
)

func TestUploadSessionConvertorRoundTrip(t *testing.T) {
	origin, err := vo.NewMergeComponentOrigin("merge-1", 1, 3, 9.5)
	require.NoError(t, err)

	session, err := entity.NewUploadSessionEntity("user-1", "clip.mp4", "video/mp4", 100, 40, "abc123", origin, time.Hour)
	require.NoError(t, err)
	require.NoError(t, session.MarkChunkUploaded(2))
	require.NoError(t, session.MarkChunkUploaded(0))

	c := NewUploadSessionConvertor()
	sessionPo, err := c.EntityToPO(session)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", sessionPo.Status)
	assert.Equal(t, []int{0, 2}, []int(sessionPo.UploadedChunks))
	assert.Equal(t, "merge_component", sessionPo.OriginKind)

	restored, err := c.POToEntity(sessionPo)
	require.NoError(t, err)
	assert.Equal(t, session.SessionID(), restored.SessionID())
	assert.Equal(t, vo.SessionStatusInProgress, restored.Status())
	assert.Equal(t, session.UploadedChunks(), restored.UploadedChunks())
	assert.True(t, restored.Origin().IsMergeComponent())
	assert.Equal(t, 1, restored.Origin().VideoIndex())
	assert.Equal(t, 9.5, restored.Origin().DurationHint())
}

func TestMergeSessionConvertorRoundTrip(t *testing.T) {
	session, err := entity.NewMergeSessionEntity("merge-1", "user-1", 2, vo.QualityHigh)
	require.NoError(t, err)
	require.NoError(t, session.SetVideoFiles([]vo.VideoFileRef{
		{Index: 0, Path: "/data/0.mp4", DurationHint: 10},
		{Index: 1, Path: "/data/1.mp4", DurationHint: 8},
	}))
	session.SetEstimatedSeconds(42.5)
	require.NoError(t, session.StartProcessing())

	metadata := &vo.MergedVideoMetadata{
		TotalDuration:      18,
		Segments:           vo.BuildSegments([]float64{10, 8}),
		VideoFileID:        "merged/user-1/merge-1.mp4",
		CompressionApplied: true,
	}
	require.NoError(t, session.Complete("http://cdn/merged.mp4", metadata))

	c := NewMergeSessionConvertor()
	sessionPo, err := c.EntityToPO(session)
	require.NoError(t, err)
	assert.Equal(t, "completed", sessionPo.Status)
	assert.NotEmpty(t, sessionPo.VideoFiles)
	assert.NotEmpty(t, sessionPo.MergedMetadata)

	restored, err := c.POToEntity(sessionPo)
	require.NoError(t, err)
	assert.Equal(t, vo.MergeStatusCompleted, restored.Status())
	assert.Equal(t, vo.QualityHigh, restored.QualityPreset())
	assert.Equal(t, session.VideoFiles(), restored.VideoFiles())
	assert.Equal(t, 42.5, restored.EstimatedSeconds())

	restoredMeta := restored.MergedMetadata()
	require.NotNil(t, restoredMeta)
	assert.Equal(t, metadata.Segments, restoredMeta.Segments)
	assert.Equal(t, metadata.VideoFileID, restoredMeta.VideoFileID)
}

func TestMergeSessionConvertorEmptyMetadata(t *testing.T) {
	session, err := entity.NewMergeSessionEntity("merge-2", "user-1", 2, vo.QualityMedium)
	require.NoError(t, err)

	c := NewMergeSessionConvertor()
	sessionPo, err := c.EntityToPO(session)
	require.NoError(t, err)
	assert.Empty(t, sessionPo.MergedMetadata)

	restored, err := c.POToEntity(sessionPo)
	require.NoError(t, err)
	assert.Nil(t, restored.MergedMetadata())
	assert.Empty(t, restored.VideoFiles())
}
