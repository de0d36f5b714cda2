package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"merge-service/ddd/domain/gateway"
	"merge-service/ddd/domain/port"
	"merge-service/ddd/domain/vo"
)

// 三个组成视频各5个分片，交错上传后合并，覆盖完整链路
func TestInterleavedUploadsThenMerge(t *testing.T) {
	ctx := context.Background()
	cfg := testUploadConfig(t)
	cfg.Merge = testMergeConfig(t).Merge

	uploadRepo := newMemUploadRepo()
	mergeRepo := newMemMergeRepo()
	chunkStore := newMemChunkStore()
	uploadSvc := NewChunkedUploadService(uploadRepo, chunkStore, cfg)

	prober := &fakeProber{fn: func(path string) (*gateway.VideoInfo, error) {
		return &gateway.VideoInfo{Duration: 10, Width: 720, Height: 1280, FrameRate: 30, HasAudio: true}, nil
	}}
	transcoder := &fakeTranscoder{}
	storage := &fakeStorage{}
	reporter := newFakeReporter()
	sink := &fakeProgressSink{}
	mergeSvc := NewMergeService(mergeRepo, uploadRepo, NewMediaPrepareService(prober, transcoder, cfg),
		transcoder, storage, reporter, sink, cfg)

	const mergeID = "m-e2e"

	// 每个视频80字节，16字节分片 -> 5片
	contents := make([][]byte, 3)
	sessionIDs := make([]string, 3)
	for i := range contents {
		data := make([]byte, 80)
		for j := range data {
			data[j] = byte(i*31 + j)
		}
		contents[i] = data

		origin, err := vo.NewMergeComponentOrigin(mergeID, i, 3, 10)
		require.NoError(t, err)
		session, err := uploadSvc.Initiate(ctx, "user-1", fmt.Sprintf("clip-%d.mp4", i), 80, "video/mp4", 16, "", origin)
		require.NoError(t, err)
		sessionIDs[i] = session.SessionID()
	}

	// 分片上传交错进行，会话之间互不干扰
	for chunk := 0; chunk < 5; chunk++ {
		for _, i := range []int{2, 0, 1} {
			data := contents[i][chunk*16 : (chunk+1)*16]
			_, uploaded, err := uploadSvc.UploadChunk(ctx, sessionIDs[i], "user-1", chunk, data, sha256Hex(data))
			require.NoError(t, err)
			assert.True(t, uploaded)
		}
	}

	for i, id := range sessionIDs {
		path, err := uploadSvc.Complete(ctx, id, "user-1", sha256Hex(contents[i]))
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, contents[i], data)
	}

	readiness, err := mergeSvc.CheckMergeReadiness(ctx, mergeID, "user-1")
	require.NoError(t, err)
	require.True(t, readiness.Ready)
	assert.Equal(t, 3, readiness.VideosCompleted)

	session, err := mergeSvc.InitiateMerge(ctx, mergeID, "user-1", vo.QualityMedium)
	require.NoError(t, err)
	require.NoError(t, mergeSvc.ExecuteMerge(ctx, session, port.MergeOptions{WorkDir: filepath.Join(t.TempDir(), "work")}))

	stored, err := mergeRepo.GetMergeSession(ctx, mergeID)
	require.NoError(t, err)
	assert.Equal(t, vo.MergeStatusCompleted, stored.Status())
	assert.Contains(t, reporter.completed, mergeID)

	metadata := stored.MergedMetadata()
	require.NotNil(t, metadata)
	require.Len(t, metadata.Segments, 3)
	assert.NoError(t, metadata.Validate())
	assert.InDelta(t, 30, metadata.TotalDuration, 1e-9)
}

// 不同会话的分片并发写入互不干扰
func TestConcurrentChunkUploadsAcrossSessions(t *testing.T) {
	ctx := context.Background()
	svc := NewChunkedUploadService(newMemUploadRepo(), newMemChunkStore(), testUploadConfig(t))

	const sessions = 4
	const chunks = 4
	ids := make([]string, sessions)
	contents := make([][]byte, sessions)
	for i := 0; i < sessions; i++ {
		data := make([]byte, chunks*16)
		for j := range data {
			data[j] = byte(i ^ j)
		}
		contents[i] = data

		session, err := svc.Initiate(ctx, "user-1", fmt.Sprintf("c%d.mp4", i), int64(len(data)), "video/mp4", 16, "", vo.NewStandaloneOrigin())
		require.NoError(t, err)
		ids[i] = session.SessionID()
	}

	var wg sync.WaitGroup
	errCh := make(chan error, sessions*chunks)
	for i := 0; i < sessions; i++ {
		for chunk := 0; chunk < chunks; chunk++ {
			wg.Add(1)
			go func(i, chunk int) {
				defer wg.Done()
				_, _, err := svc.UploadChunk(ctx, ids[i], "user-1", chunk, contents[i][chunk*16:(chunk+1)*16], "")
				errCh <- err
			}(i, chunk)
		}
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		assert.NoError(t, err)
	}

	for i, id := range ids {
		path, err := svc.Complete(ctx, id, "user-1", sha256Hex(contents[i]))
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, contents[i], data)
	}
}
