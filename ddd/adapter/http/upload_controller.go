package http

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"merge-service/ddd/application/app"
	"merge-service/ddd/application/cqe"
	"merge-service/pkg/errno"
	"merge-service/pkg/manager"
	"merge-service/pkg/restapi"
)

func init() {
	manager.RegisterControllerPlugin(&UploadControllerPlugin{})
}

// UploadControllerPlugin 上传控制器插件
type UploadControllerPlugin struct{}

func (p *UploadControllerPlugin) Name() string {
	return "uploadController"
}

func (p *UploadControllerPlugin) MustCreateController() manager.Controller {
	return NewUploadController(app.DefaultUploadApp())
}

// UploadController 分片上传控制器
type UploadController struct {
	uploadApp app.UploadApp
}

// NewUploadController 创建上传控制器
func NewUploadController(uploadApp app.UploadApp) *UploadController {
	return &UploadController{uploadApp: uploadApp}
}

// RegisterRoutes 挂载上传相关路由
func (c *UploadController) RegisterRoutes(engine *gin.Engine) {
	uploads := engine.Group("/api/v1/uploads")
	{
		uploads.POST("", c.InitiateUpload)                                  // 创建上传会话
		uploads.GET("/:session_id", c.GetUploadSession)                     // 获取会话详情
		uploads.POST("/:session_id/chunks/:chunk_number", c.UploadChunk)    // 上传分片
		uploads.POST("/:session_id/complete", c.CompleteUpload)             // 完成上传
		uploads.POST("/:session_id/cancel", c.CancelUpload)                 // 取消上传
		uploads.GET("/:session_id/progress", c.GetProgress)                 // 获取进度
		uploads.GET("/:session_id/chunks/remaining", c.GetRemainingChunks)  // 获取缺失分片
	}
}

func userUUIDFromContext(ctx *gin.Context) string {
	return ctx.GetString("user_uuid")
}

// InitiateUpload 创建上传会话
func (c *UploadController) InitiateUpload(ctx *gin.Context) {
	var req cqe.InitiateUploadReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}
	req.UserUUID = userUUIDFromContext(ctx)

	resp, err := c.uploadApp.InitiateUpload(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	restapi.Success(ctx, resp)
}

// UploadChunk 上传单个分片，分片内容走请求体
func (c *UploadController) UploadChunk(ctx *gin.Context) {
	chunkNumber, err := strconv.Atoi(ctx.Param("chunk_number"))
	if err != nil {
		restapi.Failed(ctx, errno.ErrChunkNumberIllegal)
		return
	}

	req := cqe.UploadChunkReq{
		SessionID:   ctx.Param("session_id"),
		ChunkNumber: chunkNumber,
		UserUUID:    userUUIDFromContext(ctx),
		ChunkHash:   ctx.GetHeader("X-Chunk-Hash"),
	}

	data, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}

	resp, err := c.uploadApp.UploadChunk(ctx.Request.Context(), &req, data)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	restapi.Success(ctx, resp)
}

// CompleteUpload 完成上传并装配整文件
func (c *UploadController) CompleteUpload(ctx *gin.Context) {
	req := cqe.CompleteUploadReq{
		SessionID: ctx.Param("session_id"),
		UserUUID:  userUUIDFromContext(ctx),
	}
	// 请求体可选，仅携带整文件哈希
	_ = ctx.ShouldBindJSON(&req)
	req.SessionID = ctx.Param("session_id")

	resp, err := c.uploadApp.CompleteUpload(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	restapi.Success(ctx, resp)
}

// CancelUpload 取消上传会话
func (c *UploadController) CancelUpload(ctx *gin.Context) {
	cancelled, err := c.uploadApp.CancelUpload(ctx.Request.Context(), ctx.Param("session_id"), userUUIDFromContext(ctx))
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	restapi.Success(ctx, gin.H{"cancelled": cancelled})
}

// GetUploadSession 获取会话详情
func (c *UploadController) GetUploadSession(ctx *gin.Context) {
	resp, err := c.uploadApp.GetUploadSession(ctx.Request.Context(), ctx.Param("session_id"), userUUIDFromContext(ctx))
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	restapi.Success(ctx, resp)
}

// GetProgress 获取上传进度
func (c *UploadController) GetProgress(ctx *gin.Context) {
	resp, err := c.uploadApp.GetProgress(ctx.Request.Context(), ctx.Param("session_id"), userUUIDFromContext(ctx))
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	restapi.Success(ctx, resp)
}

// GetRemainingChunks 获取缺失分片索引
func (c *UploadController) GetRemainingChunks(ctx *gin.Context) {
	resp, err := c.uploadApp.GetRemainingChunks(ctx.Request.Context(), ctx.Param("session_id"), userUUIDFromContext(ctx))
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	restapi.Success(ctx, resp)
}
