package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"merge-service/ddd/domain/entity"
	"merge-service/ddd/domain/gateway"
	"merge-service/ddd/domain/repo"
	"merge-service/ddd/domain/vo"
	"merge-service/pkg/config"
	"merge-service/pkg/errno"
	"merge-service/pkg/logger"
)

// ChunkedUploadService 分片上传领域服务
type ChunkedUploadService interface {
	// Initiate 创建上传会话
	Initiate(ctx context.Context, userID, filename string, fileSize int64, mimeType string, chunkSize int64, fileHash string, origin vo.UploadOrigin) (*entity.UploadSessionEntity, error)
	// UploadChunk 写入单个分片，重复索引幂等返回
	UploadChunk(ctx context.Context, sessionID, userID string, chunkNumber int, data []byte, chunkHash string) (*entity.UploadSessionEntity, bool, error)
	// Complete 校验分片完整性与整文件哈希后装配到稳定路径
	Complete(ctx context.Context, sessionID, userID, finalFileHash string) (string, error)
	// Cancel 取消会话，终态会话返回false且不报错
	Cancel(ctx context.Context, sessionID, userID string) (bool, error)
	// GetSession 读取会话状态
	GetSession(ctx context.Context, sessionID, userID string) (*entity.UploadSessionEntity, error)
	// Progress 返回上传进度百分比
	Progress(ctx context.Context, sessionID, userID string) (float64, error)
	// RemainingChunks 返回缺失分片索引，升序
	RemainingChunks(ctx context.Context, sessionID, userID string) ([]int, error)
	// CleanupExpiredSessions 回收过期未完成的会话及其分片数据
	CleanupExpiredSessions(ctx context.Context) (int, error)
}

type chunkedUploadServiceImpl struct {
	sessionRepo repo.UploadSessionRepository
	chunkStore  gateway.ChunkStore
	cfg         *config.Config
	sessionMu   sync.Map // sessionID -> *sync.Mutex
}

// NewChunkedUploadService 创建分片上传领域服务
func NewChunkedUploadService(sessionRepo repo.UploadSessionRepository, chunkStore gateway.ChunkStore, cfg *config.Config) ChunkedUploadService {
	return &chunkedUploadServiceImpl{
		sessionRepo: sessionRepo,
		chunkStore:  chunkStore,
		cfg:         cfg,
	}
}

// lockSession 会话级互斥，分片写入按会话串行化状态变更
func (s *chunkedUploadServiceImpl) lockSession(sessionID string) func() {
	v, _ := s.sessionMu.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// releaseSessionLock 终态会话不再接受变更，回收互斥锁避免map无限增长
func (s *chunkedUploadServiceImpl) releaseSessionLock(sessionID string) {
	s.sessionMu.Delete(sessionID)
}

func (s *chunkedUploadServiceImpl) uploadCfg() *config.UploadConfig {
	if s.cfg == nil {
		s.cfg = config.GetGlobalConfig()
	}
	return &s.cfg.Upload
}

// Initiate 创建上传会话
func (s *chunkedUploadServiceImpl) Initiate(ctx context.Context, userID, filename string, fileSize int64, mimeType string, chunkSize int64, fileHash string, origin vo.UploadOrigin) (*entity.UploadSessionEntity, error) {
	cfg := s.uploadCfg()

	if strings.TrimSpace(userID) == "" {
		return nil, errno.ErrUserUUIDRequired
	}
	if strings.TrimSpace(filename) == "" || strings.ContainsAny(filename, "/\\") {
		return nil, errno.ErrFileNameIllegal
	}
	if fileSize <= 0 || fileSize > cfg.MaxFileSize {
		return nil, errno.ErrFileSizeIllegal
	}
	if !cfg.IsMimeTypeAllowed(mimeType) {
		return nil, errno.ErrMimeTypeNotAllowed
	}
	if chunkSize <= 0 {
		chunkSize = cfg.DefaultChunkSize
	}
	if chunkSize < cfg.MinChunkSize || chunkSize > cfg.MaxChunkSize {
		return nil, errno.ErrChunkSizeIllegal
	}

	session, err := entity.NewUploadSessionEntity(userID, filename, mimeType, fileSize, chunkSize, fileHash, origin, cfg.SessionTTL)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrInvalidParam, err)
	}

	if err := s.sessionRepo.CreateUploadSession(ctx, session); err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}

	logger.Infof("upload session created session_id=%s user_id=%s total_chunks=%d origin=%s",
		session.SessionID(), userID, session.TotalChunks(), origin.Kind())
	return session, nil
}

// getOwnedSession 加载会话并校验归属
func (s *chunkedUploadServiceImpl) getOwnedSession(ctx context.Context, sessionID, userID string) (*entity.UploadSessionEntity, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errno.ErrSessionUUIDRequired
	}
	session, err := s.sessionRepo.GetUploadSession(ctx, sessionID)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	if session == nil {
		return nil, errno.ErrUploadSessionNotFound
	}
	if userID != "" && session.UserID() != userID {
		return nil, errno.ErrAccessDenied
	}
	return session, nil
}

// UploadChunk 写入单个分片。同索引重传幂等：直接返回且不改变分片集合。
func (s *chunkedUploadServiceImpl) UploadChunk(ctx context.Context, sessionID, userID string, chunkNumber int, data []byte, chunkHash string) (*entity.UploadSessionEntity, bool, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.getOwnedSession(ctx, sessionID, userID)
	if err != nil {
		return nil, false, err
	}
	if !session.Status().AcceptsChunks() {
		return nil, false, errno.ErrUploadSessionClosed
	}
	if session.IsExpired(time.Now()) {
		return nil, false, errno.ErrUploadSessionExpired
	}
	if !session.IsChunkNumberValid(chunkNumber) {
		return nil, false, errno.ErrChunkNumberIllegal
	}

	// 幂等重传：已存在的分片不重新校验也不重写
	if session.HasChunk(chunkNumber) {
		return session, false, nil
	}

	expected := session.ChunkSize()
	if chunkNumber == session.TotalChunks()-1 {
		expected = session.FileSize() - session.ChunkSize()*int64(session.TotalChunks()-1)
	}
	if int64(len(data)) != expected {
		return nil, false, errno.ErrChunkDataMismatch
	}
	if chunkHash != "" {
		sum := sha256.Sum256(data)
		if !strings.EqualFold(hex.EncodeToString(sum[:]), chunkHash) {
			return nil, false, errno.ErrChunkHashMismatch
		}
	}

	if err := s.chunkStore.WriteChunk(ctx, sessionID, chunkNumber, data); err != nil {
		return nil, false, errno.NewBizError(errno.ErrInternalServer, err)
	}
	if err := session.MarkChunkUploaded(chunkNumber); err != nil {
		return nil, false, errno.NewBizError(errno.ErrInvalidParam, err)
	}
	if err := s.sessionRepo.UpdateUploadSession(ctx, session); err != nil {
		return nil, false, errno.NewBizError(errno.ErrDatabase, err)
	}

	return session, true, nil
}

// Complete 校验无缺口与整文件哈希，装配到稳定路径并完成会话。
// 哈希不匹配时删除装配产物，会话保持可重传状态。
func (s *chunkedUploadServiceImpl) Complete(ctx context.Context, sessionID, userID, finalFileHash string) (string, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.getOwnedSession(ctx, sessionID, userID)
	if err != nil {
		return "", err
	}
	if session.Status() == vo.SessionStatusCompleted {
		return session.AssembledPath(), nil
	}
	if session.Status().IsFinalStatus() {
		return "", errno.ErrUploadSessionClosed
	}
	if !session.IsComplete() {
		missing := session.RemainingChunks()
		return "", errno.NewBizError(errno.ErrChunkIncomplete,
			fmt.Errorf("missing chunks: %v", missing))
	}

	destPath := s.assembledPath(session)
	assembled, err := s.chunkStore.Assemble(ctx, sessionID, session.TotalChunks(), destPath)
	if err != nil {
		return "", errno.NewBizError(errno.ErrInternalServer, err)
	}

	declaredHash := finalFileHash
	if declaredHash == "" {
		declaredHash = session.FileHash()
	}
	if declaredHash != "" {
		actual, err := hashFile(assembled)
		if err != nil {
			return "", errno.NewBizError(errno.ErrInternalServer, err)
		}
		if !strings.EqualFold(actual, declaredHash) {
			_ = s.chunkStore.RemoveFile(ctx, assembled)
			return "", errno.ErrFileHashMismatch
		}
	}

	if err := session.Complete(assembled); err != nil {
		return "", errno.NewBizError(errno.ErrInvalidParam, err)
	}
	if err := s.sessionRepo.UpdateUploadSession(ctx, session); err != nil {
		return "", errno.NewBizError(errno.ErrDatabase, err)
	}

	// 装配完成后分片数据不再需要
	if err := s.chunkStore.RemoveSession(ctx, sessionID); err != nil {
		logger.Warnf("failed to remove chunk data session_id=%s error=%s", sessionID, err.Error())
	}
	s.releaseSessionLock(sessionID)

	logger.Infof("upload session completed session_id=%s path=%s", sessionID, assembled)
	return assembled, nil
}

// Cancel 取消会话，终态会话幂等返回false
func (s *chunkedUploadServiceImpl) Cancel(ctx context.Context, sessionID, userID string) (bool, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.getOwnedSession(ctx, sessionID, userID)
	if err != nil {
		return false, err
	}
	if !session.Cancel() {
		return false, nil
	}
	if err := s.sessionRepo.UpdateUploadSession(ctx, session); err != nil {
		return false, errno.NewBizError(errno.ErrDatabase, err)
	}
	if err := s.chunkStore.RemoveSession(ctx, sessionID); err != nil {
		logger.Warnf("failed to remove chunk data on cancel session_id=%s error=%s", sessionID, err.Error())
	}
	s.releaseSessionLock(sessionID)
	return true, nil
}

// GetSession 读取会话状态
func (s *chunkedUploadServiceImpl) GetSession(ctx context.Context, sessionID, userID string) (*entity.UploadSessionEntity, error) {
	return s.getOwnedSession(ctx, sessionID, userID)
}

// Progress 返回上传进度百分比
func (s *chunkedUploadServiceImpl) Progress(ctx context.Context, sessionID, userID string) (float64, error) {
	session, err := s.getOwnedSession(ctx, sessionID, userID)
	if err != nil {
		return 0, err
	}
	return session.Progress(), nil
}

// RemainingChunks 返回缺失分片索引
func (s *chunkedUploadServiceImpl) RemainingChunks(ctx context.Context, sessionID, userID string) ([]int, error) {
	session, err := s.getOwnedSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	return session.RemainingChunks(), nil
}

// CleanupExpiredSessions 取消过期未完成的会话并删除其分片数据
func (s *chunkedUploadServiceImpl) CleanupExpiredSessions(ctx context.Context) (int, error) {
	expired, err := s.sessionRepo.QueryExpiredSessions(ctx, time.Now(), 200)
	if err != nil {
		return 0, errno.NewBizError(errno.ErrDatabase, err)
	}

	cleaned := 0
	for _, session := range expired {
		unlock := s.lockSession(session.SessionID())
		if !session.Cancel() {
			unlock()
			continue
		}
		if err := s.sessionRepo.UpdateUploadSession(ctx, session); err != nil {
			unlock()
			logger.Warnf("failed to mark expired session cancelled session_id=%s error=%s", session.SessionID(), err.Error())
			continue
		}
		if err := s.chunkStore.RemoveSession(ctx, session.SessionID()); err != nil {
			logger.Warnf("failed to remove expired chunk data session_id=%s error=%s", session.SessionID(), err.Error())
		}
		s.releaseSessionLock(session.SessionID())
		unlock()
		cleaned++
	}

	if cleaned > 0 {
		logger.Infof("expired upload sessions cleaned count=%d", cleaned)
	}
	return cleaned, nil
}

func (s *chunkedUploadServiceImpl) assembledPath(session *entity.UploadSessionEntity) string {
	cfg := s.uploadCfg()
	return fmt.Sprintf("%s/completed/%s_%s", strings.TrimRight(cfg.TempDir, "/"), session.SessionID(), session.Filename())
}
