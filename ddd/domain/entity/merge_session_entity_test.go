package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"merge-service/ddd/domain/vo"
)

func newTestMergeSession(t *testing.T) *MergeSessionEntity {
	t.Helper()
	session, err := NewMergeSessionEntity("merge-1", "user-1", 3, vo.QualityMedium)
	require.NoError(t, err)
	return session
}

func TestNewMergeSessionEntity(t *testing.T) {
	_, err := NewMergeSessionEntity("", "user-1", 3, vo.QualityMedium)
	assert.Error(t, err)
	_, err = NewMergeSessionEntity("merge-1", "", 3, vo.QualityMedium)
	assert.Error(t, err)
	_, err = NewMergeSessionEntity("merge-1", "user-1", 0, vo.QualityMedium)
	assert.Error(t, err)
}

func TestMergeSessionLifecycle(t *testing.T) {
	session := newTestMergeSession(t)
	assert.Equal(t, vo.MergeStatusPending, session.Status())

	// 组成视频数必须与声明一致
	assert.Error(t, session.SetVideoFiles([]vo.VideoFileRef{{Index: 0}}))
	require.NoError(t, session.SetVideoFiles([]vo.VideoFileRef{
		{Index: 0, Path: "/a.mp4"},
		{Index: 1, Path: "/b.mp4"},
		{Index: 2, Path: "/c.mp4"},
	}))

	// pending 不能直接更新进度
	assert.Error(t, session.UpdateProgress(20))

	require.NoError(t, session.StartProcessing())
	assert.Equal(t, vo.MergeStatusProcessing, session.Status())
	require.NoError(t, session.UpdateProgress(50))
	assert.Equal(t, 50.0, session.Progress())
	assert.Error(t, session.UpdateProgress(101))

	metadata := &vo.MergedVideoMetadata{
		TotalDuration: 30,
		Segments:      vo.BuildSegments([]float64{10, 10, 10}),
	}
	require.NoError(t, session.Complete("http://cdn/merged.mp4", metadata))
	assert.Equal(t, vo.MergeStatusCompleted, session.Status())
	assert.Equal(t, 100.0, session.Progress())
	assert.Equal(t, "http://cdn/merged.mp4", session.MergedVideoURL())

	// 终态不可再转移
	assert.Error(t, session.StartProcessing())
	assert.False(t, session.Cancel())
}

func TestMergeSessionFail(t *testing.T) {
	session := newTestMergeSession(t)
	require.NoError(t, session.StartProcessing())

	require.NoError(t, session.Fail("CONCAT_FAILED", "ffmpeg exited with code 1"))
	assert.Equal(t, vo.MergeStatusFailed, session.Status())
	assert.Equal(t, "CONCAT_FAILED", session.ErrorCode())
	assert.Error(t, session.Fail("PUBLISH_FAILED", "again"))
}

func TestMergeSessionCompleteRequiresResult(t *testing.T) {
	session := newTestMergeSession(t)
	require.NoError(t, session.StartProcessing())

	assert.Error(t, session.Complete("", &vo.MergedVideoMetadata{}))
	assert.Error(t, session.Complete("http://cdn/x.mp4", nil))
}

func TestMergeSessionCancel(t *testing.T) {
	session := newTestMergeSession(t)
	require.NoError(t, session.StartProcessing())

	assert.True(t, session.Cancel())
	assert.Equal(t, vo.MergeStatusCancelled, session.Status())
	assert.False(t, session.Cancel())
}
