package gateway

import "context"

// ChunkStore 分片落盘存储，按 (session_id, chunk_number) 独立存放
type ChunkStore interface {
	// WriteChunk 写入单个分片，同索引重复写入直接覆盖
	WriteChunk(ctx context.Context, sessionID string, chunkNumber int, data []byte) error
	// HasChunk 检查分片是否已落盘
	HasChunk(ctx context.Context, sessionID string, chunkNumber int) (bool, error)
	// Assemble 按索引顺序拼接全部分片到稳定路径，返回装配文件路径
	Assemble(ctx context.Context, sessionID string, totalChunks int, destPath string) (string, error)
	// RemoveSession 删除会话的全部分片数据
	RemoveSession(ctx context.Context, sessionID string) error
	// RemoveFile 删除单个装配文件
	RemoveFile(ctx context.Context, path string) error
}
