package gateway

import "context"

// StorageGateway 存储网关
type StorageGateway interface {
	// UploadMergedFile 上传合并输出，返回可访问的公开URL
	UploadMergedFile(ctx context.Context, localPath, objectKey, contentType string) (string, error)
	// DeleteObject 删除已发布的对象
	DeleteObject(ctx context.Context, objectKey string) error
}
