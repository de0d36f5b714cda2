package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"merge-service/pkg/config"
)

func newTestChunkStore(t *testing.T) *DiskChunkStore {
	t.Helper()
	cfg := &config.Config{Upload: config.UploadConfig{TempDir: t.TempDir()}}
	return NewDiskChunkStore(cfg).(*DiskChunkStore)
}

func TestDiskChunkStoreWriteAndHas(t *testing.T) {
	ctx := context.Background()
	store := newTestChunkStore(t)

	has, err := store.HasChunk(ctx, "s1", 0)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, store.WriteChunk(ctx, "s1", 0, []byte("hello")))
	has, err = store.HasChunk(ctx, "s1", 0)
	require.NoError(t, err)
	assert.True(t, has)

	// 同索引重复写入直接覆盖
	require.NoError(t, store.WriteChunk(ctx, "s1", 0, []byte("world")))
	data, err := os.ReadFile(store.chunkPath("s1", 0))
	require.NoError(t, err)
	assert.Equal(t, []byte("world"), data)

	// 不留临时文件
	_, err = os.Stat(store.chunkPath("s1", 0) + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestDiskChunkStoreAssemble(t *testing.T) {
	ctx := context.Background()
	store := newTestChunkStore(t)

	require.NoError(t, store.WriteChunk(ctx, "s1", 0, []byte("aaa")))
	require.NoError(t, store.WriteChunk(ctx, "s1", 1, []byte("bbb")))
	require.NoError(t, store.WriteChunk(ctx, "s1", 2, []byte("cc")))

	dest := filepath.Join(t.TempDir(), "out", "clip.mp4")
	path, err := store.Assemble(ctx, "s1", 3, dest)
	require.NoError(t, err)
	assert.Equal(t, dest, path)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("aaabbbcc"), data)
}

func TestDiskChunkStoreAssembleMissingChunk(t *testing.T) {
	ctx := context.Background()
	store := newTestChunkStore(t)

	require.NoError(t, store.WriteChunk(ctx, "s1", 0, []byte("aaa")))
	require.NoError(t, store.WriteChunk(ctx, "s1", 2, []byte("cc")))

	dest := filepath.Join(t.TempDir(), "clip.mp4")
	_, err := store.Assemble(ctx, "s1", 3, dest)
	require.Error(t, err)

	// 失败时不留半截装配文件
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDiskChunkStoreRemove(t *testing.T) {
	ctx := context.Background()
	store := newTestChunkStore(t)

	require.NoError(t, store.WriteChunk(ctx, "s1", 0, []byte("aaa")))
	require.NoError(t, store.RemoveSession(ctx, "s1"))

	has, err := store.HasChunk(ctx, "s1", 0)
	require.NoError(t, err)
	assert.False(t, has)

	// 删除不存在的文件不算失败
	assert.NoError(t, store.RemoveFile(ctx, filepath.Join(t.TempDir(), "nope.mp4")))
}
