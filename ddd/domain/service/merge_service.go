package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"merge-service/ddd/domain/entity"
	"merge-service/ddd/domain/gateway"
	"merge-service/ddd/domain/port"
	"merge-service/ddd/domain/repo"
	"merge-service/ddd/domain/vo"
	"merge-service/pkg/config"
	"merge-service/pkg/errno"
	"merge-service/pkg/logger"
)

// ReadinessResult 合并就绪检查结果
type ReadinessResult struct {
	Ready           bool
	VideosCompleted int
	VideosExpected  int
	Files           []vo.VideoFileRef
	TotalBytes      int64
	TotalDuration   float64
}

// MergeService 合并编排领域服务
type MergeService interface {
	// CheckMergeReadiness 检查组成视频是否全部完成且索引无缺口
	CheckMergeReadiness(ctx context.Context, mergeSessionID, userID string) (*ReadinessResult, error)
	// InitiateMerge 创建待处理合并会话并计算预估耗时
	InitiateMerge(ctx context.Context, mergeSessionID, userID string, preset vo.QualityPreset) (*entity.MergeSessionEntity, error)
	// ExecuteMerge 执行分阶段合并管线，阶段边界响应取消
	ExecuteMerge(ctx context.Context, session *entity.MergeSessionEntity, opts port.MergeOptions) error
	// CancelMerge 协作式取消，终态会话返回false
	CancelMerge(ctx context.Context, mergeSessionID, userID string) (bool, error)
	// GetMergeSession 读取会话状态
	GetMergeSession(ctx context.Context, mergeSessionID, userID string) (*entity.MergeSessionEntity, error)
}

type mergeServiceImpl struct {
	mergeRepo    repo.MergeSessionRepository
	uploadRepo   repo.UploadSessionRepository
	mediaService MediaPrepareService
	transcoder   gateway.Transcoder
	storage      gateway.StorageGateway
	reporter     gateway.MergeResultReporter
	progressSink port.ProgressSink
	cfg          *config.Config
}

// NewMergeService 创建合并编排服务
func NewMergeService(
	mergeRepo repo.MergeSessionRepository,
	uploadRepo repo.UploadSessionRepository,
	mediaService MediaPrepareService,
	transcoder gateway.Transcoder,
	storage gateway.StorageGateway,
	reporter gateway.MergeResultReporter,
	progressSink port.ProgressSink,
	cfg *config.Config,
) MergeService {
	return &mergeServiceImpl{
		mergeRepo:    mergeRepo,
		uploadRepo:   uploadRepo,
		mediaService: mediaService,
		transcoder:   transcoder,
		storage:      storage,
		reporter:     reporter,
		progressSink: progressSink,
		cfg:          cfg,
	}
}

// CheckMergeReadiness 只有恰好 video_count 个完成的组成上传且索引覆盖 [0,video_count) 才就绪
func (s *mergeServiceImpl) CheckMergeReadiness(ctx context.Context, mergeSessionID, userID string) (*ReadinessResult, error) {
	sessions, err := s.uploadRepo.QueryByMergeSession(ctx, mergeSessionID)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}

	result := &ReadinessResult{}
	if len(sessions) == 0 {
		return result, nil
	}

	expected := 0
	byIndex := make(map[int]*entity.UploadSessionEntity)
	for _, us := range sessions {
		if userID != "" && us.UserID() != userID {
			return nil, errno.ErrAccessDenied
		}
		if us.Origin().VideoCount() > expected {
			expected = us.Origin().VideoCount()
		}
		if us.Status() == vo.SessionStatusCompleted {
			// 同一索引取最近完成的一个
			if _, ok := byIndex[us.Origin().VideoIndex()]; !ok {
				byIndex[us.Origin().VideoIndex()] = us
			}
		}
	}
	result.VideosExpected = expected
	result.VideosCompleted = len(byIndex)

	if expected == 0 || len(byIndex) != expected {
		return result, nil
	}

	files := make([]vo.VideoFileRef, 0, expected)
	for i := 0; i < expected; i++ {
		us, ok := byIndex[i]
		if !ok {
			return result, nil
		}
		files = append(files, vo.VideoFileRef{
			Index:        i,
			Path:         us.AssembledPath(),
			DurationHint: us.Origin().DurationHint(),
		})
		result.TotalBytes += us.FileSize()
		result.TotalDuration += us.Origin().DurationHint()
	}
	sort.Slice(files, func(a, b int) bool { return files[a].Index < files[b].Index })

	result.Ready = true
	result.Files = files
	return result, nil
}

// InitiateMerge 就绪后创建待处理会话，记录组成视频与预估耗时
func (s *mergeServiceImpl) InitiateMerge(ctx context.Context, mergeSessionID, userID string, preset vo.QualityPreset) (*entity.MergeSessionEntity, error) {
	existing, err := s.mergeRepo.GetMergeSession(ctx, mergeSessionID)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	if existing != nil && !existing.Status().IsFinalStatus() {
		return nil, errno.ErrMergeSessionExists
	}

	readiness, err := s.CheckMergeReadiness(ctx, mergeSessionID, userID)
	if err != nil {
		return nil, err
	}
	if !readiness.Ready {
		return nil, errno.NewBizError(errno.ErrMergeNotReady,
			fmt.Errorf("%d of %d videos completed", readiness.VideosCompleted, readiness.VideosExpected))
	}

	session, err := entity.NewMergeSessionEntity(mergeSessionID, userID, readiness.VideosExpected, preset)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrInvalidParam, err)
	}
	if err := session.SetVideoFiles(readiness.Files); err != nil {
		return nil, errno.NewBizError(errno.ErrInvalidParam, err)
	}
	session.SetEstimatedSeconds(EstimateMergeSeconds(readiness.TotalDuration, readiness.TotalBytes))

	if existing != nil {
		// 终态会话允许重新发起，覆盖旧记录
		if err := s.mergeRepo.UpdateMergeSession(ctx, session); err != nil {
			return nil, errno.NewBizError(errno.ErrDatabase, err)
		}
	} else if err := s.mergeRepo.CreateMergeSession(ctx, session); err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}

	logger.Infof("merge initiated merge_session_id=%s user_id=%s videos=%d preset=%s estimate_secs=%.1f",
		mergeSessionID, userID, readiness.VideosExpected, preset, session.EstimatedSeconds())
	return session, nil
}

// EstimateMergeSeconds 预估处理耗时：基础常数 + 每秒系数 + 每MB系数，仅用于UX
func EstimateMergeSeconds(totalDurationSecs float64, totalBytes int64) float64 {
	estimate := 15.0 + 0.4*totalDurationSecs + 0.05*float64(totalBytes)/(1<<20)
	if estimate < 5 {
		estimate = 5
	}
	return estimate
}

// ExecuteMerge 分阶段执行：analyze → prepare → concat → compress → publish。
// 每个阶段边界检查取消；任一阶段失败记录阶段码后停止，不自动重试。
func (s *mergeServiceImpl) ExecuteMerge(ctx context.Context, session *entity.MergeSessionEntity, opts port.MergeOptions) error {
	if s.cfg == nil {
		s.cfg = config.GetGlobalConfig()
	}
	id := session.MergeSessionID()

	if err := session.StartProcessing(); err != nil {
		return errno.NewBizError(errno.ErrInvalidMergeStatus, err)
	}
	if err := s.mergeRepo.UpdateMergeSession(ctx, session); err != nil {
		return errno.NewBizError(errno.ErrDatabase, err)
	}

	workDir := opts.WorkDir
	if workDir == "" {
		workDir = filepath.Join(s.cfg.Merge.FFmpeg.TempDir, id)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warnf("failed to remove merge work dir merge_session_id=%s dir=%s error=%s", id, workDir, err.Error())
		}
	}()

	files := session.VideoFiles()
	logger.Infof("merge pipeline started merge_session_id=%s videos=%d work_dir=%s", id, len(files), workDir)

	// 阶段1：探测
	analysis, err := s.mediaService.Analyze(ctx, files, session.VideoCount())
	if err != nil {
		return s.failStage(ctx, session, errno.ErrAnalysisFailed, err)
	}
	s.saveProgress(ctx, session, opts, 20)
	if s.cancelledAtBoundary(ctx, session) {
		return nil
	}

	// 阶段2：归一化
	prepared, err := s.mediaService.Prepare(ctx, workDir, files, analysis)
	if err != nil {
		return s.failStage(ctx, session, errno.ErrPrepareFailed, err)
	}
	sort.Slice(prepared, func(a, b int) bool { return prepared[a].Index < prepared[b].Index })
	s.saveProgress(ctx, session, opts, 50)
	if s.cancelledAtBoundary(ctx, session) {
		return nil
	}

	// 阶段3：流复制拼接，按索引顺序
	concatPath := filepath.Join(workDir, "concat.mp4")
	inputs := make([]string, len(prepared))
	for i, clip := range prepared {
		inputs[i] = clip.Path
	}
	if err := s.transcoder.Concat(ctx, inputs, concatPath); err != nil {
		return s.failStage(ctx, session, errno.ErrConcatFailed, err)
	}
	s.saveProgress(ctx, session, opts, 70)
	if s.cancelledAtBoundary(ctx, session) {
		return nil
	}

	// 阶段4：按质量档位压缩
	finalPath := filepath.Join(workDir, "merged.mp4")
	preset := s.cfg.Merge.ResolvePreset(session.QualityPreset().String())
	if err := s.transcoder.Compress(ctx, concatPath, finalPath, gateway.CompressSpec{
		CRF:          preset.CRF,
		VideoBitrate: preset.VideoBitrate,
		AudioBitrate: preset.AudioBitrate,
		Preset:       preset.Preset,
		VideoCodec:   s.cfg.Merge.FFmpeg.VideoCodec,
		AudioCodec:   s.cfg.Merge.FFmpeg.AudioCodec,
	}); err != nil {
		return s.failStage(ctx, session, errno.ErrCompressFailed, err)
	}
	s.saveProgress(ctx, session, opts, 90)
	if s.cancelledAtBoundary(ctx, session) {
		return nil
	}

	// 阶段5：分段元数据 + 发布
	durations := make([]float64, len(prepared))
	for i, clip := range prepared {
		durations[i] = clip.Duration
	}
	metadata := &vo.MergedVideoMetadata{
		Segments:              vo.BuildSegments(durations),
		CompressionApplied:    true,
		OriginalTotalDuration: analysis.TotalDuration,
	}
	for _, d := range durations {
		metadata.TotalDuration += d
	}

	objectKey := fmt.Sprintf("merged/%s/%s.mp4", session.UserID(), id)
	url, err := s.storage.UploadMergedFile(ctx, finalPath, objectKey, "video/mp4")
	if err != nil {
		return s.failStage(ctx, session, errno.ErrPublishFailed, err)
	}
	metadata.VideoFileID = objectKey

	if err := metadata.Validate(); err != nil {
		return s.failStage(ctx, session, errno.ErrPublishFailed, err)
	}
	if err := session.Complete(url, metadata); err != nil {
		return s.failStage(ctx, session, errno.ErrPublishFailed, err)
	}
	updated, err := s.mergeRepo.UpdateMergeSessionIfProcessing(ctx, session)
	if err != nil {
		return errno.NewBizError(errno.ErrDatabase, err)
	}
	if !updated {
		// 发布期间会话被取消落库，取消优先于完成
		logger.Infof("merge cancelled before completion persisted merge_session_id=%s", id)
		return nil
	}

	if s.cfg.Merge.DeleteSources {
		for _, f := range files {
			if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
				logger.Warnf("failed to delete source clip merge_session_id=%s path=%s error=%s", id, f.Path, err.Error())
			}
		}
	}

	if s.reporter != nil {
		if err := s.reporter.ReportCompleted(ctx, id, session.UserID(), url, metadata); err != nil {
			logger.Warnf("failed to report merge completion merge_session_id=%s error=%s", id, err.Error())
		}
	}

	logger.Infof("merge pipeline completed merge_session_id=%s url=%s total_duration=%.2f segments=%d",
		id, url, metadata.TotalDuration, len(metadata.Segments))
	return nil
}

// cancelledAtBoundary 阶段边界重读会话状态，被取消则停止后续阶段
func (s *mergeServiceImpl) cancelledAtBoundary(ctx context.Context, session *entity.MergeSessionEntity) bool {
	fresh, err := s.mergeRepo.GetMergeSession(ctx, session.MergeSessionID())
	if err != nil {
		logger.Warnf("cancellation check failed merge_session_id=%s error=%s", session.MergeSessionID(), err.Error())
		return false
	}
	if fresh != nil && fresh.Status() == vo.MergeStatusCancelled {
		logger.Infof("merge cancelled at stage boundary merge_session_id=%s", session.MergeSessionID())
		return true
	}
	if ctx.Err() != nil {
		return true
	}
	return false
}

func (s *mergeServiceImpl) saveProgress(ctx context.Context, session *entity.MergeSessionEntity, opts port.MergeOptions, progress float64) {
	if err := session.UpdateProgress(progress); err != nil {
		return
	}
	if s.progressSink != nil {
		if err := s.progressSink.SaveProgress(ctx, session, progress); err != nil {
			logger.Warnf("failed to persist merge progress merge_session_id=%s progress=%.0f error=%s",
				session.MergeSessionID(), progress, err.Error())
		}
	}
	if opts.ProgressCb != nil {
		opts.ProgressCb(progress)
	}
}

// failStage 记录失败阶段码，更新会话并通知下游
func (s *mergeServiceImpl) failStage(ctx context.Context, session *entity.MergeSessionEntity, stage *errno.Errno, cause error) error {
	logger.Errorf("merge stage failed merge_session_id=%s stage=%s error=%s",
		session.MergeSessionID(), stage.Message, cause.Error())

	if err := session.Fail(stage.Message, cause.Error()); err != nil {
		logger.Warnf("failed to mark merge failed merge_session_id=%s error=%s", session.MergeSessionID(), err.Error())
	}
	updated, err := s.mergeRepo.UpdateMergeSessionIfProcessing(ctx, session)
	if err != nil {
		logger.Errorf("failed to persist merge failure merge_session_id=%s error=%s", session.MergeSessionID(), err.Error())
	} else if !updated {
		// 会话已不在处理中（并发取消落库），阶段失败不再记录与上报
		logger.Infof("merge left processing before failure persisted merge_session_id=%s stage=%s",
			session.MergeSessionID(), stage.Message)
		return nil
	}
	if s.reporter != nil {
		if err := s.reporter.ReportFailed(ctx, session.MergeSessionID(), session.UserID(), stage.Message, cause.Error()); err != nil {
			logger.Warnf("failed to report merge failure merge_session_id=%s error=%s", session.MergeSessionID(), err.Error())
		}
	}
	return errno.NewBizError(stage, cause)
}

// CancelMerge 终态返回false；处理中只标记，管线在阶段边界生效
func (s *mergeServiceImpl) CancelMerge(ctx context.Context, mergeSessionID, userID string) (bool, error) {
	session, err := s.GetMergeSession(ctx, mergeSessionID, userID)
	if err != nil {
		return false, err
	}
	if !session.Cancel() {
		return false, nil
	}
	if err := s.mergeRepo.UpdateMergeSession(ctx, session); err != nil {
		return false, errno.NewBizError(errno.ErrDatabase, err)
	}
	logger.Infof("merge cancel requested merge_session_id=%s", mergeSessionID)
	return true, nil
}

// GetMergeSession 读取会话并校验归属
func (s *mergeServiceImpl) GetMergeSession(ctx context.Context, mergeSessionID, userID string) (*entity.MergeSessionEntity, error) {
	session, err := s.mergeRepo.GetMergeSession(ctx, mergeSessionID)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	if session == nil {
		return nil, errno.ErrMergeSessionNotFound
	}
	if userID != "" && session.UserID() != userID {
		return nil, errno.ErrAccessDenied
	}
	return session, nil
}

// RecoverStuckSessions 将卡在处理状态超过阈值的会话标记失败，便于重新发起
func RecoverStuckSessions(ctx context.Context, mergeRepo repo.MergeSessionRepository, stuckThreshold time.Duration) int {
	sessions, err := mergeRepo.QueryStuckProcessing(ctx, time.Now().Add(-stuckThreshold), 50)
	if err != nil {
		logger.Warnf("stuck session scan failed error=%s", err.Error())
		return 0
	}
	recovered := 0
	for _, session := range sessions {
		if err := session.Fail(errno.ErrPublishFailed.Message, "processing exceeded stuck threshold"); err != nil {
			continue
		}
		if err := mergeRepo.UpdateMergeSession(ctx, session); err != nil {
			logger.Warnf("failed to recover stuck session merge_session_id=%s error=%s", session.MergeSessionID(), err.Error())
			continue
		}
		recovered++
	}
	if recovered > 0 {
		logger.Infof("stuck merge sessions recovered count=%d", recovered)
	}
	return recovered
}
