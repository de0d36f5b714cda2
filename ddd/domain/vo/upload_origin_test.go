package vo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMergeComponentOrigin(t *testing.T) {
	t.Run("合法来源", func(t *testing.T) {
		origin, err := NewMergeComponentOrigin("merge-1", 1, 3, 9.5)
		require.NoError(t, err)
		assert.True(t, origin.IsMergeComponent())
		assert.Equal(t, "merge-1", origin.MergeSessionID())
		assert.Equal(t, 1, origin.VideoIndex())
		assert.Equal(t, 3, origin.VideoCount())
		assert.Equal(t, 9.5, origin.DurationHint())
	})

	t.Run("缺少合并会话ID", func(t *testing.T) {
		_, err := NewMergeComponentOrigin("", 0, 3, 0)
		assert.Error(t, err)
	})

	t.Run("索引越界", func(t *testing.T) {
		_, err := NewMergeComponentOrigin("merge-1", 3, 3, 0)
		assert.Error(t, err)
		_, err = NewMergeComponentOrigin("merge-1", -1, 3, 0)
		assert.Error(t, err)
	})

	t.Run("视频数非正", func(t *testing.T) {
		_, err := NewMergeComponentOrigin("merge-1", 0, 0, 0)
		assert.Error(t, err)
	})

	t.Run("时长提示为负", func(t *testing.T) {
		_, err := NewMergeComponentOrigin("merge-1", 0, 3, -1)
		assert.Error(t, err)
	})
}

func TestRestoreUploadOrigin(t *testing.T) {
	t.Run("非组成来源一律回退到独立上传", func(t *testing.T) {
		origin := RestoreUploadOrigin("unknown", "merge-1", 1, 3, 9.5)
		assert.Equal(t, OriginStandalone, origin.Kind())
		assert.Empty(t, origin.MergeSessionID())
	})

	t.Run("组成来源按原值重建", func(t *testing.T) {
		origin := RestoreUploadOrigin(OriginMergeComponent, "merge-1", 2, 3, 4.2)
		assert.True(t, origin.IsMergeComponent())
		assert.Equal(t, 2, origin.VideoIndex())
	})
}

func TestStatusTransitions(t *testing.T) {
	t.Run("上传会话状态机", func(t *testing.T) {
		assert.True(t, SessionStatusPending.CanTransitionTo(SessionStatusInProgress))
		assert.True(t, SessionStatusPending.CanTransitionTo(SessionStatusCancelled))
		assert.True(t, SessionStatusInProgress.CanTransitionTo(SessionStatusCompleted))
		assert.False(t, SessionStatusCompleted.CanTransitionTo(SessionStatusInProgress))
		assert.False(t, SessionStatusCancelled.CanTransitionTo(SessionStatusPending))

		assert.True(t, SessionStatusPending.AcceptsChunks())
		assert.True(t, SessionStatusInProgress.AcceptsChunks())
		assert.False(t, SessionStatusFailed.AcceptsChunks())
		assert.True(t, SessionStatusCompleted.IsFinalStatus())
	})

	t.Run("合并会话状态机", func(t *testing.T) {
		assert.True(t, MergeStatusPending.CanTransitionTo(MergeStatusProcessing))
		assert.True(t, MergeStatusPending.CanTransitionTo(MergeStatusCancelled))
		assert.True(t, MergeStatusProcessing.CanTransitionTo(MergeStatusCompleted))
		assert.True(t, MergeStatusProcessing.CanTransitionTo(MergeStatusFailed))
		assert.False(t, MergeStatusCompleted.CanTransitionTo(MergeStatusProcessing))
		assert.False(t, MergeStatusFailed.CanTransitionTo(MergeStatusPending))
	})
}

func TestParseQualityPreset(t *testing.T) {
	preset, ok := ParseQualityPreset("HIGH")
	assert.True(t, ok)
	assert.Equal(t, QualityHigh, preset)

	preset, ok = ParseQualityPreset("")
	assert.True(t, ok)
	assert.Equal(t, QualityMedium, preset)

	preset, ok = ParseQualityPreset("ultra")
	assert.False(t, ok)
	assert.Equal(t, QualityMedium, preset)
}
