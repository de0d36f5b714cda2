package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"merge-service/ddd/domain/entity"
	"merge-service/ddd/domain/gateway"
	"merge-service/ddd/domain/vo"
)

// memUploadRepo 内存上传会话仓储，仅用于测试
type memUploadRepo struct {
	mu       sync.Mutex
	sessions map[string]*entity.UploadSessionEntity

	createErr error
	updateErr error
	getErr    error
}

func newMemUploadRepo() *memUploadRepo {
	return &memUploadRepo{sessions: make(map[string]*entity.UploadSessionEntity)}
}

func (r *memUploadRepo) CreateUploadSession(ctx context.Context, session *entity.UploadSessionEntity) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.SessionID()] = session
	return nil
}

func (r *memUploadRepo) UpdateUploadSession(ctx context.Context, session *entity.UploadSessionEntity) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.SessionID()] = session
	return nil
}

func (r *memUploadRepo) GetUploadSession(ctx context.Context, sessionID string) (*entity.UploadSessionEntity, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[sessionID], nil
}

func (r *memUploadRepo) QueryByMergeSession(ctx context.Context, mergeSessionID string) ([]*entity.UploadSessionEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.UploadSessionEntity
	for _, s := range r.sessions {
		if s.Origin().MergeSessionID() == mergeSessionID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Origin().VideoIndex() < out[b].Origin().VideoIndex() })
	return out, nil
}

func (r *memUploadRepo) QueryExpiredSessions(ctx context.Context, now time.Time, limit int) ([]*entity.UploadSessionEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.UploadSessionEntity
	for _, s := range r.sessions {
		if s.IsExpired(now) {
			out = append(out, s)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memUploadRepo) DeleteUploadSession(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

// memMergeRepo 内存合并会话仓储，仅用于测试
type memMergeRepo struct {
	mu       sync.Mutex
	sessions map[string]*entity.MergeSessionEntity

	updateErr error
}

func newMemMergeRepo() *memMergeRepo {
	return &memMergeRepo{sessions: make(map[string]*entity.MergeSessionEntity)}
}

// snapshotMergeSession 写入时深拷贝，持久化的行与调用方持有的实体互不别名
func snapshotMergeSession(s *entity.MergeSessionEntity) *entity.MergeSessionEntity {
	return entity.RestoreMergeSessionEntity(
		s.MergeSessionID(), s.UserID(), s.Status(), s.VideoCount(), s.QualityPreset(),
		s.VideoFiles(), s.Progress(), s.MergedVideoURL(), s.MergedMetadata(),
		s.ErrorCode(), s.ErrorMessage(), s.EstimatedSeconds(), s.CreatedAt(), s.UpdatedAt())
}

func (r *memMergeRepo) CreateMergeSession(ctx context.Context, session *entity.MergeSessionEntity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.MergeSessionID()] = snapshotMergeSession(session)
	return nil
}

func (r *memMergeRepo) UpdateMergeSession(ctx context.Context, session *entity.MergeSessionEntity) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.MergeSessionID()] = snapshotMergeSession(session)
	return nil
}

func (r *memMergeRepo) UpdateMergeSessionIfProcessing(ctx context.Context, session *entity.MergeSessionEntity) (bool, error) {
	if r.updateErr != nil {
		return false, r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.sessions[session.MergeSessionID()]
	if stored == nil || stored.Status() != vo.MergeStatusProcessing {
		return false, nil
	}
	r.sessions[session.MergeSessionID()] = snapshotMergeSession(session)
	return true, nil
}

func (r *memMergeRepo) UpdateMergeProgress(ctx context.Context, mergeSessionID string, progress float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.sessions[mergeSessionID]
	if stored == nil || stored.Status() != vo.MergeStatusProcessing {
		return nil
	}
	return stored.UpdateProgress(progress)
}

func (r *memMergeRepo) GetMergeSession(ctx context.Context, mergeSessionID string) (*entity.MergeSessionEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[mergeSessionID], nil
}

func (r *memMergeRepo) QueryStuckProcessing(ctx context.Context, updatedBefore time.Time, limit int) ([]*entity.MergeSessionEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.MergeSessionEntity
	for _, s := range r.sessions {
		if s.Status() == vo.MergeStatusProcessing && s.UpdatedAt().Before(updatedBefore) {
			out = append(out, s)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// storeCancelled 用已取消状态的副本覆盖仓储记录，模拟并发取消请求
func (r *memMergeRepo) storeCancelled(mergeSessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[mergeSessionID]
	if s == nil {
		return
	}
	r.sessions[mergeSessionID] = entity.RestoreMergeSessionEntity(
		s.MergeSessionID(), s.UserID(), vo.MergeStatusCancelled, s.VideoCount(), s.QualityPreset(),
		s.VideoFiles(), s.Progress(), "", nil, "", "", s.EstimatedSeconds(), s.CreatedAt(), time.Now())
}

// memChunkStore 内存分片存储，装配结果落盘以便整文件哈希校验
type memChunkStore struct {
	mu              sync.Mutex
	chunks          map[string]map[int][]byte
	removeFileErr   map[string]error
	removedFiles    []string
	removedSessions []string
}

func newMemChunkStore() *memChunkStore {
	return &memChunkStore{
		chunks:        make(map[string]map[int][]byte),
		removeFileErr: make(map[string]error),
	}
}

func (s *memChunkStore) WriteChunk(ctx context.Context, sessionID string, chunkNumber int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chunks[sessionID] == nil {
		s.chunks[sessionID] = make(map[int][]byte)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.chunks[sessionID][chunkNumber] = buf
	return nil
}

func (s *memChunkStore) HasChunk(ctx context.Context, sessionID string, chunkNumber int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.chunks[sessionID][chunkNumber]
	return ok, nil
}

func (s *memChunkStore) Assemble(ctx context.Context, sessionID string, totalChunks int, destPath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var buf []byte
	for i := 0; i < totalChunks; i++ {
		data, ok := s.chunks[sessionID][i]
		if !ok {
			return "", fmt.Errorf("chunk %d missing", i)
		}
		buf = append(buf, data...)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(destPath, buf, 0o644); err != nil {
		return "", err
	}
	return destPath, nil
}

func (s *memChunkStore) RemoveSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, sessionID)
	s.removedSessions = append(s.removedSessions, sessionID)
	return nil
}

func (s *memChunkStore) RemoveFile(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.removeFileErr[path]; ok {
		return err
	}
	_ = os.Remove(path)
	s.removedFiles = append(s.removedFiles, path)
	return nil
}

// fakeProber 按函数返回探测结果
type fakeProber struct {
	fn func(path string) (*gateway.VideoInfo, error)
}

func (p *fakeProber) Probe(ctx context.Context, videoPath string) (*gateway.VideoInfo, error) {
	return p.fn(videoPath)
}

// fakeTranscoder 记录调用并写占位输出文件
type fakeTranscoder struct {
	mu             sync.Mutex
	normalizeCalls int
	concatCalls    int
	compressCalls  int
	concatInputs   []string

	normalizeErr error
	concatErr    error
	compressErr  error
}

func (t *fakeTranscoder) Normalize(ctx context.Context, inputPath, outputPath string, spec gateway.NormalizeSpec) error {
	t.mu.Lock()
	t.normalizeCalls++
	t.mu.Unlock()
	if t.normalizeErr != nil {
		return t.normalizeErr
	}
	return os.WriteFile(outputPath, []byte("normalized:"+inputPath), 0o644)
}

func (t *fakeTranscoder) Concat(ctx context.Context, inputPaths []string, outputPath string) error {
	t.mu.Lock()
	t.concatCalls++
	t.concatInputs = append([]string(nil), inputPaths...)
	t.mu.Unlock()
	if t.concatErr != nil {
		return t.concatErr
	}
	return os.WriteFile(outputPath, []byte("concat"), 0o644)
}

func (t *fakeTranscoder) Compress(ctx context.Context, inputPath, outputPath string, spec gateway.CompressSpec) error {
	t.mu.Lock()
	t.compressCalls++
	t.mu.Unlock()
	if t.compressErr != nil {
		return t.compressErr
	}
	return os.WriteFile(outputPath, []byte("compressed"), 0o644)
}

// fakeStorage 存储网关测试替身
type fakeStorage struct {
	uploadErr  error
	uploadedTo string
}

func (s *fakeStorage) UploadMergedFile(ctx context.Context, localPath, objectKey, contentType string) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}
	s.uploadedTo = objectKey
	return "http://cdn.example.com/storage/" + objectKey, nil
}

func (s *fakeStorage) DeleteObject(ctx context.Context, objectKey string) error { return nil }

// fakeReporter 记录上报结果
type fakeReporter struct {
	mu        sync.Mutex
	completed []string
	failed    map[string]string // mergeSessionID -> errorCode
}

func newFakeReporter() *fakeReporter {
	return &fakeReporter{failed: make(map[string]string)}
}

func (r *fakeReporter) ReportCompleted(ctx context.Context, mergeSessionID, userID, mergedVideoURL string, metadata *vo.MergedVideoMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, mergeSessionID)
	return nil
}

func (r *fakeReporter) ReportFailed(ctx context.Context, mergeSessionID, userID, errorCode, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[mergeSessionID] = errorCode
	return nil
}

// fakeProgressSink 记录进度序列
type fakeProgressSink struct {
	mu       sync.Mutex
	progress []float64
}

func (p *fakeProgressSink) SaveProgress(ctx context.Context, session *entity.MergeSessionEntity, progress float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = append(p.progress, progress)
	return nil
}
