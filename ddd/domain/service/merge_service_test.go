package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"merge-service/ddd/domain/entity"
	"merge-service/ddd/domain/gateway"
	"merge-service/ddd/domain/port"
	"merge-service/ddd/domain/vo"
	"merge-service/ddd/infrastructure/progress"
	"merge-service/pkg/config"
	"merge-service/pkg/errno"
)

func testMergeConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Merge: config.MergeConfig{
			FFmpeg: config.FFmpegConfig{
				TempDir:    t.TempDir(),
				VideoCodec: "libx264",
				AudioCodec: "aac",
			},
			QualityPresets: map[string]config.PresetParams{
				"medium": {CRF: 23, VideoBitrate: "2000k", AudioBitrate: "128k", Preset: "medium"},
			},
		},
	}
}

// completedUpload 构造一个已完成的组成上传会话
func completedUpload(t *testing.T, mergeID, userID string, index, count int, size int64, hint float64, path string) *entity.UploadSessionEntity {
	t.Helper()
	origin, err := vo.NewMergeComponentOrigin(mergeID, index, count, hint)
	require.NoError(t, err)
	now := time.Now()
	completedAt := now
	return entity.RestoreUploadSessionEntity(
		fmt.Sprintf("up-%s-%d-%d", mergeID, index, now.UnixNano()), userID, "clip.mp4", "video/mp4",
		size, 1<<20, 1, []int{0}, vo.SessionStatusCompleted, "", origin,
		path, false, nil, "", now, now, &completedAt, now.Add(time.Hour))
}

// pendingUpload 构造一个未完成的组成上传会话
func pendingUpload(t *testing.T, mergeID, userID string, index, count int) *entity.UploadSessionEntity {
	t.Helper()
	origin, err := vo.NewMergeComponentOrigin(mergeID, index, count, 0)
	require.NoError(t, err)
	now := time.Now()
	return entity.RestoreUploadSessionEntity(
		fmt.Sprintf("up-%s-%d-%d", mergeID, index, now.UnixNano()), userID, "clip.mp4", "video/mp4",
		100, 40, 3, []int{0}, vo.SessionStatusInProgress, "", origin,
		"", false, nil, "", now, now, nil, now.Add(time.Hour))
}

type mergeTestEnv struct {
	cfg        *config.Config
	mergeRepo  *memMergeRepo
	uploadRepo *memUploadRepo
	prober     *fakeProber
	transcoder *fakeTranscoder
	storage    *fakeStorage
	reporter   *fakeReporter
	sink       *fakeProgressSink
	svc        MergeService
}

func newMergeTestEnv(t *testing.T) *mergeTestEnv {
	t.Helper()
	cfg := testMergeConfig(t)
	env := &mergeTestEnv{
		cfg:        cfg,
		mergeRepo:  newMemMergeRepo(),
		uploadRepo: newMemUploadRepo(),
		transcoder: &fakeTranscoder{},
		storage:    &fakeStorage{},
		reporter:   newFakeReporter(),
		sink:       &fakeProgressSink{},
	}
	env.prober = &fakeProber{fn: func(path string) (*gateway.VideoInfo, error) {
		return &gateway.VideoInfo{Duration: 10, Width: 720, Height: 1280, FrameRate: 30, HasAudio: true}, nil
	}}
	mediaSvc := NewMediaPrepareService(env.prober, env.transcoder, cfg)
	env.svc = NewMergeService(env.mergeRepo, env.uploadRepo, mediaSvc, env.transcoder,
		env.storage, env.reporter, env.sink, cfg)
	return env
}

// seedReadyUploads 放入恰好覆盖 [0,count) 的已完成上传
func (e *mergeTestEnv) seedReadyUploads(t *testing.T, mergeID, userID string, hints []float64) {
	t.Helper()
	ctx := context.Background()
	for i, hint := range hints {
		us := completedUpload(t, mergeID, userID, i, len(hints), 5<<20, hint, fmt.Sprintf("/data/%s/%d.mp4", mergeID, i))
		require.NoError(t, e.uploadRepo.CreateUploadSession(ctx, us))
	}
}

func TestCheckMergeReadiness(t *testing.T) {
	ctx := context.Background()

	t.Run("无组成上传不就绪", func(t *testing.T) {
		env := newMergeTestEnv(t)
		result, err := env.svc.CheckMergeReadiness(ctx, "m-0", "user-1")
		require.NoError(t, err)
		assert.False(t, result.Ready)
		assert.Equal(t, 0, result.VideosExpected)
	})

	t.Run("部分完成不就绪", func(t *testing.T) {
		env := newMergeTestEnv(t)
		require.NoError(t, env.uploadRepo.CreateUploadSession(ctx, completedUpload(t, "m-1", "user-1", 0, 3, 1<<20, 10, "/data/0.mp4")))
		require.NoError(t, env.uploadRepo.CreateUploadSession(ctx, completedUpload(t, "m-1", "user-1", 2, 3, 1<<20, 12, "/data/2.mp4")))
		require.NoError(t, env.uploadRepo.CreateUploadSession(ctx, pendingUpload(t, "m-1", "user-1", 1, 3)))

		result, err := env.svc.CheckMergeReadiness(ctx, "m-1", "user-1")
		require.NoError(t, err)
		assert.False(t, result.Ready)
		assert.Equal(t, 3, result.VideosExpected)
		assert.Equal(t, 2, result.VideosCompleted)
	})

	t.Run("索引重复不算覆盖", func(t *testing.T) {
		env := newMergeTestEnv(t)
		require.NoError(t, env.uploadRepo.CreateUploadSession(ctx, completedUpload(t, "m-2", "user-1", 0, 2, 1<<20, 10, "/data/a.mp4")))
		require.NoError(t, env.uploadRepo.CreateUploadSession(ctx, completedUpload(t, "m-2", "user-1", 0, 2, 1<<20, 10, "/data/b.mp4")))

		result, err := env.svc.CheckMergeReadiness(ctx, "m-2", "user-1")
		require.NoError(t, err)
		assert.False(t, result.Ready)
		assert.Equal(t, 1, result.VideosCompleted)
	})

	t.Run("归属其他用户拒绝访问", func(t *testing.T) {
		env := newMergeTestEnv(t)
		require.NoError(t, env.uploadRepo.CreateUploadSession(ctx, completedUpload(t, "m-3", "user-2", 0, 1, 1<<20, 10, "/data/0.mp4")))

		_, err := env.svc.CheckMergeReadiness(ctx, "m-3", "user-1")
		assert.ErrorIs(t, err, errno.ErrAccessDenied)
	})

	t.Run("全部完成且索引无缺口则就绪", func(t *testing.T) {
		env := newMergeTestEnv(t)
		env.seedReadyUploads(t, "m-4", "user-1", []float64{10, 8, 12})

		result, err := env.svc.CheckMergeReadiness(ctx, "m-4", "user-1")
		require.NoError(t, err)
		assert.True(t, result.Ready)
		assert.Equal(t, 3, result.VideosCompleted)
		require.Len(t, result.Files, 3)
		for i, f := range result.Files {
			assert.Equal(t, i, f.Index)
		}
		assert.Equal(t, int64(15<<20), result.TotalBytes)
		assert.InDelta(t, 30, result.TotalDuration, 1e-9)
	})
}

func TestInitiateMerge(t *testing.T) {
	ctx := context.Background()

	t.Run("未就绪拒绝发起", func(t *testing.T) {
		env := newMergeTestEnv(t)
		_, err := env.svc.InitiateMerge(ctx, "m-1", "user-1", vo.QualityMedium)
		assert.ErrorIs(t, err, errno.ErrMergeNotReady)
	})

	t.Run("就绪后创建待处理会话", func(t *testing.T) {
		env := newMergeTestEnv(t)
		env.seedReadyUploads(t, "m-2", "user-1", []float64{10, 8, 12})

		session, err := env.svc.InitiateMerge(ctx, "m-2", "user-1", vo.QualityHigh)
		require.NoError(t, err)
		assert.Equal(t, vo.MergeStatusPending, session.Status())
		assert.Equal(t, 3, session.VideoCount())
		assert.Equal(t, vo.QualityHigh, session.QualityPreset())
		assert.InDelta(t, EstimateMergeSeconds(30, 15<<20), session.EstimatedSeconds(), 1e-9)

		// 未到终态时重复发起被拒绝
		_, err = env.svc.InitiateMerge(ctx, "m-2", "user-1", vo.QualityHigh)
		assert.ErrorIs(t, err, errno.ErrMergeSessionExists)
	})

	t.Run("终态会话允许重新发起", func(t *testing.T) {
		env := newMergeTestEnv(t)
		env.seedReadyUploads(t, "m-3", "user-1", []float64{10, 8})

		first, err := env.svc.InitiateMerge(ctx, "m-3", "user-1", vo.QualityMedium)
		require.NoError(t, err)
		require.NoError(t, first.StartProcessing())
		require.NoError(t, first.Fail("CONCAT_FAILED", "boom"))
		require.NoError(t, env.mergeRepo.UpdateMergeSession(ctx, first))

		second, err := env.svc.InitiateMerge(ctx, "m-3", "user-1", vo.QualityMedium)
		require.NoError(t, err)
		assert.Equal(t, vo.MergeStatusPending, second.Status())
	})
}

func TestEstimateMergeSeconds(t *testing.T) {
	assert.InDelta(t, 15, EstimateMergeSeconds(0, 0), 1e-9)
	// 60秒 + 100MB: 15 + 0.4*60 + 0.05*100
	assert.InDelta(t, 44, EstimateMergeSeconds(60, 100<<20), 1e-9)
}

func TestExecuteMergePipeline(t *testing.T) {
	ctx := context.Background()
	env := newMergeTestEnv(t)
	env.seedReadyUploads(t, "m-10", "user-1", []float64{10, 8, 12})

	// 归一化产物的实际时长与提示略有出入，分段以实际时长为准
	actual := map[string]float64{
		"prepared_000.mp4": 10.2,
		"prepared_001.mp4": 8.1,
		"prepared_002.mp4": 12.0,
	}
	env.prober.fn = func(path string) (*gateway.VideoInfo, error) {
		if d, ok := actual[filepath.Base(path)]; ok {
			return &gateway.VideoInfo{Duration: d, Width: 720, Height: 1280, FrameRate: 30, HasAudio: true}, nil
		}
		return &gateway.VideoInfo{Duration: 10, Width: 720, Height: 1280, FrameRate: 30, HasAudio: true}, nil
	}

	session, err := env.svc.InitiateMerge(ctx, "m-10", "user-1", vo.QualityMedium)
	require.NoError(t, err)

	workDir := filepath.Join(t.TempDir(), "work")
	require.NoError(t, env.svc.ExecuteMerge(ctx, session, port.MergeOptions{WorkDir: workDir}))

	stored, err := env.mergeRepo.GetMergeSession(ctx, "m-10")
	require.NoError(t, err)
	assert.Equal(t, vo.MergeStatusCompleted, stored.Status())
	assert.Equal(t, 100.0, stored.Progress())
	assert.True(t, strings.HasPrefix(stored.MergedVideoURL(), "http://cdn.example.com/storage/"))
	assert.Equal(t, "merged/user-1/m-10.mp4", env.storage.uploadedTo)

	metadata := stored.MergedMetadata()
	require.NotNil(t, metadata)
	require.Len(t, metadata.Segments, 3)
	assert.InDelta(t, 30.3, metadata.TotalDuration, 1e-9)
	assert.NoError(t, metadata.Validate())
	assert.InDelta(t, 10.2, metadata.Segments[0].EndTime, 1e-9)
	assert.InDelta(t, 10.2, metadata.Segments[1].StartTime, 1e-9)

	// 拼接输入按索引顺序
	require.Len(t, env.transcoder.concatInputs, 3)
	for i, input := range env.transcoder.concatInputs {
		assert.Equal(t, fmt.Sprintf("prepared_%03d.mp4", i), filepath.Base(input))
	}

	assert.Equal(t, []float64{20, 50, 70, 90}, env.sink.progress)
	assert.Contains(t, env.reporter.completed, "m-10")
}

func TestExecuteMergeStageFailures(t *testing.T) {
	ctx := context.Background()

	initiate := func(t *testing.T, env *mergeTestEnv, id string) *entity.MergeSessionEntity {
		env.seedReadyUploads(t, id, "user-1", []float64{10, 8})
		session, err := env.svc.InitiateMerge(ctx, id, "user-1", vo.QualityMedium)
		require.NoError(t, err)
		return session
	}

	assertFailed := func(t *testing.T, env *mergeTestEnv, id, wantCode string) {
		stored, err := env.mergeRepo.GetMergeSession(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, vo.MergeStatusFailed, stored.Status())
		assert.Equal(t, wantCode, stored.ErrorCode())
		assert.Equal(t, wantCode, env.reporter.failed[id])
	}

	t.Run("探测失败", func(t *testing.T) {
		env := newMergeTestEnv(t)
		session := initiate(t, env, "m-20")
		env.prober.fn = func(path string) (*gateway.VideoInfo, error) {
			return nil, fmt.Errorf("moov atom not found")
		}

		err := env.svc.ExecuteMerge(ctx, session, port.MergeOptions{WorkDir: filepath.Join(t.TempDir(), "w")})
		assert.ErrorIs(t, err, errno.ErrAnalysisFailed)
		assertFailed(t, env, "m-20", "ANALYSIS_FAILED")
	})

	t.Run("归一化失败", func(t *testing.T) {
		env := newMergeTestEnv(t)
		session := initiate(t, env, "m-21")
		env.transcoder.normalizeErr = fmt.Errorf("encoder crashed")

		err := env.svc.ExecuteMerge(ctx, session, port.MergeOptions{WorkDir: filepath.Join(t.TempDir(), "w")})
		assert.ErrorIs(t, err, errno.ErrPrepareFailed)
		assertFailed(t, env, "m-21", "PREPARE_FAILED")
	})

	t.Run("拼接失败", func(t *testing.T) {
		env := newMergeTestEnv(t)
		session := initiate(t, env, "m-22")
		env.transcoder.concatErr = fmt.Errorf("stream mismatch")

		err := env.svc.ExecuteMerge(ctx, session, port.MergeOptions{WorkDir: filepath.Join(t.TempDir(), "w")})
		assert.ErrorIs(t, err, errno.ErrConcatFailed)
		assertFailed(t, env, "m-22", "CONCAT_FAILED")
	})

	t.Run("压缩失败", func(t *testing.T) {
		env := newMergeTestEnv(t)
		session := initiate(t, env, "m-23")
		env.transcoder.compressErr = fmt.Errorf("out of disk")

		err := env.svc.ExecuteMerge(ctx, session, port.MergeOptions{WorkDir: filepath.Join(t.TempDir(), "w")})
		assert.ErrorIs(t, err, errno.ErrCompressFailed)
		assertFailed(t, env, "m-23", "COMPRESS_FAILED")
	})

	t.Run("发布失败", func(t *testing.T) {
		env := newMergeTestEnv(t)
		session := initiate(t, env, "m-24")
		env.storage.uploadErr = fmt.Errorf("bucket unavailable")

		err := env.svc.ExecuteMerge(ctx, session, port.MergeOptions{WorkDir: filepath.Join(t.TempDir(), "w")})
		assert.ErrorIs(t, err, errno.ErrPublishFailed)
		assertFailed(t, env, "m-24", "PUBLISH_FAILED")
	})
}

func TestExecuteMergeCancelledAtStageBoundary(t *testing.T) {
	ctx := context.Background()
	env := newMergeTestEnv(t)
	env.seedReadyUploads(t, "m-30", "user-1", []float64{10, 8})

	session, err := env.svc.InitiateMerge(ctx, "m-30", "user-1", vo.QualityMedium)
	require.NoError(t, err)

	// 探测阶段结束时（进度20）另一端发起取消
	opts := port.MergeOptions{
		WorkDir: filepath.Join(t.TempDir(), "w"),
		ProgressCb: func(progress float64) {
			if progress == 20 {
				env.mergeRepo.storeCancelled("m-30")
			}
		},
	}
	require.NoError(t, env.svc.ExecuteMerge(ctx, session, opts))

	stored, err := env.mergeRepo.GetMergeSession(ctx, "m-30")
	require.NoError(t, err)
	assert.Equal(t, vo.MergeStatusCancelled, stored.Status())

	// 后续阶段不再执行
	assert.Equal(t, 0, env.transcoder.normalizeCalls)
	assert.Equal(t, 0, env.transcoder.concatCalls)
	assert.Empty(t, env.reporter.completed)
}

// withDBSink 用真实的进度写库路径替换测试替身
func (e *mergeTestEnv) withDBSink(t *testing.T) MergeService {
	t.Helper()
	mediaSvc := NewMediaPrepareService(e.prober, e.transcoder, e.cfg)
	return NewMergeService(e.mergeRepo, e.uploadRepo, mediaSvc, e.transcoder,
		e.storage, e.reporter, progress.NewDBSink(e.mergeRepo), e.cfg)
}

// 阶段进行中落库的取消不能被随后的进度写入覆盖
func TestExecuteMergeCancelPersistedDuringStage(t *testing.T) {
	ctx := context.Background()
	env := newMergeTestEnv(t)
	env.seedReadyUploads(t, "m-31", "user-1", []float64{10, 8})
	svc := env.withDBSink(t)

	session, err := svc.InitiateMerge(ctx, "m-31", "user-1", vo.QualityMedium)
	require.NoError(t, err)

	// 探测阶段进行中另一端取消落库，进度持久化发生在取消之后
	fired := false
	env.prober.fn = func(path string) (*gateway.VideoInfo, error) {
		if !fired {
			fired = true
			env.mergeRepo.storeCancelled("m-31")
		}
		return &gateway.VideoInfo{Duration: 10, Width: 720, Height: 1280, FrameRate: 30, HasAudio: true}, nil
	}

	require.NoError(t, svc.ExecuteMerge(ctx, session, port.MergeOptions{WorkDir: filepath.Join(t.TempDir(), "w")}))

	stored, err := env.mergeRepo.GetMergeSession(ctx, "m-31")
	require.NoError(t, err)
	assert.Equal(t, vo.MergeStatusCancelled, stored.Status())

	assert.Equal(t, 0, env.transcoder.normalizeCalls)
	assert.Equal(t, 0, env.transcoder.concatCalls)
	assert.Empty(t, env.reporter.completed)
	assert.Empty(t, env.reporter.failed)
}

// 取消落库后发生的阶段失败不得把会话改写为失败态
func TestExecuteMergeStageFailureAfterCancelPersisted(t *testing.T) {
	ctx := context.Background()
	env := newMergeTestEnv(t)
	env.seedReadyUploads(t, "m-32", "user-1", []float64{10, 8})
	svc := env.withDBSink(t)

	session, err := svc.InitiateMerge(ctx, "m-32", "user-1", vo.QualityMedium)
	require.NoError(t, err)

	// 首次探测时取消落库并返回错误，探测阶段随即失败
	fired := false
	env.prober.fn = func(path string) (*gateway.VideoInfo, error) {
		if !fired {
			fired = true
			env.mergeRepo.storeCancelled("m-32")
		}
		return nil, fmt.Errorf("moov atom not found")
	}

	require.NoError(t, svc.ExecuteMerge(ctx, session, port.MergeOptions{WorkDir: filepath.Join(t.TempDir(), "w")}))

	stored, err := env.mergeRepo.GetMergeSession(ctx, "m-32")
	require.NoError(t, err)
	assert.Equal(t, vo.MergeStatusCancelled, stored.Status())
	assert.Empty(t, stored.ErrorCode())
	assert.Empty(t, env.reporter.failed)
}

func TestCancelMerge(t *testing.T) {
	ctx := context.Background()
	env := newMergeTestEnv(t)
	env.seedReadyUploads(t, "m-40", "user-1", []float64{10})

	_, err := env.svc.CancelMerge(ctx, "m-40", "user-1")
	assert.ErrorIs(t, err, errno.ErrMergeSessionNotFound)

	_, err = env.svc.InitiateMerge(ctx, "m-40", "user-1", vo.QualityMedium)
	require.NoError(t, err)

	_, err = env.svc.CancelMerge(ctx, "m-40", "user-2")
	assert.ErrorIs(t, err, errno.ErrAccessDenied)

	cancelled, err := env.svc.CancelMerge(ctx, "m-40", "user-1")
	require.NoError(t, err)
	assert.True(t, cancelled)

	// 终态上的取消幂等返回false
	cancelled, err = env.svc.CancelMerge(ctx, "m-40", "user-1")
	require.NoError(t, err)
	assert.False(t, cancelled)
}

func TestRecoverStuckSessions(t *testing.T) {
	ctx := context.Background()
	repo := newMemMergeRepo()

	old := time.Now().Add(-2 * time.Hour)
	stuck := entity.RestoreMergeSessionEntity("m-stuck", "user-1", vo.MergeStatusProcessing, 2, vo.QualityMedium,
		nil, 50, "", nil, "", "", 30, old, old)
	require.NoError(t, repo.CreateMergeSession(ctx, stuck))

	active := entity.RestoreMergeSessionEntity("m-active", "user-1", vo.MergeStatusProcessing, 2, vo.QualityMedium,
		nil, 50, "", nil, "", "", 30, time.Now(), time.Now())
	require.NoError(t, repo.CreateMergeSession(ctx, active))

	recovered := RecoverStuckSessions(ctx, repo, time.Hour)
	assert.Equal(t, 1, recovered)

	stored, err := repo.GetMergeSession(ctx, "m-stuck")
	require.NoError(t, err)
	assert.Equal(t, vo.MergeStatusFailed, stored.Status())

	untouched, err := repo.GetMergeSession(ctx, "m-active")
	require.NoError(t, err)
	assert.Equal(t, vo.MergeStatusProcessing, untouched.Status())
}
