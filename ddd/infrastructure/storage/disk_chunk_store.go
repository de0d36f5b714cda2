package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"merge-service/ddd/domain/gateway"
	"merge-service/pkg/config"
	"merge-service/pkg/logger"
)

// DiskChunkStore 本地磁盘分片存储，分片按会话分目录落盘
type DiskChunkStore struct {
	baseDir string
}

// NewDiskChunkStore 创建磁盘分片存储
func NewDiskChunkStore(cfg *config.Config) gateway.ChunkStore {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	baseDir := filepath.Join(cfg.Upload.TempDir, "chunks")
	return &DiskChunkStore{baseDir: baseDir}
}

func (s *DiskChunkStore) sessionDir(sessionID string) string {
	return filepath.Join(s.baseDir, sessionID)
}

func (s *DiskChunkStore) chunkPath(sessionID string, chunkNumber int) string {
	return filepath.Join(s.sessionDir(sessionID), "chunk_"+strconv.Itoa(chunkNumber))
}

// WriteChunk 写入分片，先写临时文件再改名，避免半截分片被当作已上传
func (s *DiskChunkStore) WriteChunk(ctx context.Context, sessionID string, chunkNumber int, data []byte) error {
	dir := s.sessionDir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create chunk dir: %w", err)
	}

	target := s.chunkPath(sessionID, chunkNumber)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write chunk file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename chunk file: %w", err)
	}
	return nil
}

// HasChunk 分片文件存在即视为已上传
func (s *DiskChunkStore) HasChunk(ctx context.Context, sessionID string, chunkNumber int) (bool, error) {
	_, err := os.Stat(s.chunkPath(sessionID, chunkNumber))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Assemble 按分片序号升序拼装到目标路径，返回最终文件路径
func (s *DiskChunkStore) Assemble(ctx context.Context, sessionID string, totalChunks int, destPath string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", fmt.Errorf("create dest dir: %w", err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create assembled file: %w", err)
	}
	defer out.Close()

	for i := 0; i < totalChunks; i++ {
		if err := ctx.Err(); err != nil {
			_ = os.Remove(destPath)
			return "", err
		}
		chunk, err := os.Open(s.chunkPath(sessionID, i))
		if err != nil {
			_ = os.Remove(destPath)
			return "", fmt.Errorf("open chunk %d: %w", i, err)
		}
		_, err = io.Copy(out, chunk)
		chunk.Close()
		if err != nil {
			_ = os.Remove(destPath)
			return "", fmt.Errorf("append chunk %d: %w", i, err)
		}
	}

	if err := out.Sync(); err != nil {
		logger.Warnf("sync assembled file failed path=%s error=%s", destPath, err.Error())
	}
	return destPath, nil
}

// RemoveSession 删除会话全部分片
func (s *DiskChunkStore) RemoveSession(ctx context.Context, sessionID string) error {
	if err := os.RemoveAll(s.sessionDir(sessionID)); err != nil {
		return fmt.Errorf("remove session chunks: %w", err)
	}
	return nil
}

// RemoveFile 删除落盘文件，文件不存在不算失败
func (s *DiskChunkStore) RemoveFile(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}
