package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"

	"merge-service/ddd/domain/gateway"
	"merge-service/internal/resource"
	"merge-service/pkg/config"
	"merge-service/pkg/logger"
)

// MinioStorage MinIO存储实现
type MinioStorage struct {
	minioResource *resource.MinioResource
	cfg           *config.Config
}

// NewMinioStorage 创建MinIO存储实例
func NewMinioStorage(minioResource *resource.MinioResource, cfg *config.Config) gateway.StorageGateway {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	return &MinioStorage{
		minioResource: minioResource,
		cfg:           cfg,
	}
}

// UploadMergedFile 上传合并输出，返回可访问的公开URL
func (s *MinioStorage) UploadMergedFile(ctx context.Context, localPath, objectKey, contentType string) (string, error) {
	client := s.minioResource.GetClient()
	bucketName := s.minioResource.GetBucketName()

	// 打开本地文件
	file, err := os.Open(localPath)
	if err != nil {
		logger.Error("Failed to open local file", map[string]interface{}{
			"local_path": localPath,
			"error":      err.Error(),
		})
		return "", fmt.Errorf("open local file failed: %w", err)
	}
	defer file.Close()

	// 获取文件信息
	fileInfo, err := file.Stat()
	if err != nil {
		logger.Error("Failed to get file info", map[string]interface{}{
			"local_path": localPath,
			"error":      err.Error(),
		})
		return "", fmt.Errorf("get file info failed: %w", err)
	}

	if contentType == "" {
		contentType = getContentTypeFromExtension(objectKey)
	}

	// 上传文件到MinIO
	_, err = client.PutObject(ctx, bucketName, objectKey, file, fileInfo.Size(), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		logger.Error("Failed to upload merged file to MinIO", map[string]interface{}{
			"local_path": localPath,
			"object_key": objectKey,
			"error":      err.Error(),
		})
		return "", fmt.Errorf("upload merged file to minio failed: %w", err)
	}

	logger.Info("Merged file uploaded successfully", map[string]interface{}{
		"local_path": localPath,
		"object_key": objectKey,
		"size":       fileInfo.Size(),
	})

	return s.buildFileURL(objectKey), nil
}

// DeleteObject 删除已发布的对象
func (s *MinioStorage) DeleteObject(ctx context.Context, objectKey string) error {
	client := s.minioResource.GetClient()
	bucketName := s.minioResource.GetBucketName()

	if err := client.RemoveObject(ctx, bucketName, objectKey, minio.RemoveObjectOptions{}); err != nil {
		logger.Error("Failed to delete object from MinIO", map[string]interface{}{
			"object_key": objectKey,
			"error":      err.Error(),
		})
		return fmt.Errorf("delete object from minio failed: %w", err)
	}
	return nil
}

// buildFileURL 由对象Key拼出对外可访问的URL
func (s *MinioStorage) buildFileURL(objectKey string) string {
	key := strings.TrimLeft(objectKey, "/")
	path := "/storage/" + key

	cfg := s.cfg
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	if cfg == nil {
		return path
	}
	publicBase := strings.TrimSpace(cfg.Public.StorageBase)
	if publicBase == "" {
		return path
	}
	if !strings.HasPrefix(publicBase, "http://") && !strings.HasPrefix(publicBase, "https://") {
		publicBase = "http://" + publicBase
	}
	return strings.TrimRight(publicBase, "/") + path
}

// getContentTypeFromExtension 根据文件扩展名获取内容类型
func getContentTypeFromExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".avi":
		return "video/x-msvideo"
	case ".mkv":
		return "video/x-matroska"
	default:
		return "application/octet-stream"
	}
}
