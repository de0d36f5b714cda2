package http

import (
	"github.com/gin-gonic/gin"

	"merge-service/ddd/application/app"
	"merge-service/ddd/application/cqe"
	"merge-service/pkg/manager"
	"merge-service/pkg/restapi"
)

func init() {
	manager.RegisterControllerPlugin(&MergeControllerPlugin{})
}

// MergeControllerPlugin 合并控制器插件
type MergeControllerPlugin struct{}

func (p *MergeControllerPlugin) Name() string {
	return "mergeController"
}

func (p *MergeControllerPlugin) MustCreateController() manager.Controller {
	return NewMergeController(app.DefaultMergeApp())
}

// MergeController 合并会话控制器
type MergeController struct {
	mergeApp app.MergeApp
}

// NewMergeController 创建合并控制器
func NewMergeController(mergeApp app.MergeApp) *MergeController {
	return &MergeController{mergeApp: mergeApp}
}

// RegisterRoutes 挂载合并相关路由
func (c *MergeController) RegisterRoutes(engine *gin.Engine) {
	sessions := engine.Group("/api/v1/merge-sessions")
	{
		sessions.GET("/:merge_session_id", c.GetMergeSession)            // 获取会话状态
		sessions.GET("/:merge_session_id/readiness", c.GetReadiness)     // 就绪检查
		sessions.POST("/:merge_session_id/merge", c.InitiateMerge)       // 发起合并
		sessions.POST("/:merge_session_id/cancel", c.CancelMerge)        // 取消合并
		sessions.POST("/:merge_session_id/cleanup", c.CleanupSources)    // 清理组成文件
	}
}

// GetReadiness 检查组成视频是否全部就绪
func (c *MergeController) GetReadiness(ctx *gin.Context) {
	resp, err := c.mergeApp.GetReadiness(ctx.Request.Context(), ctx.Param("merge_session_id"), userUUIDFromContext(ctx))
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	restapi.Success(ctx, resp)
}

// InitiateMerge 发起合并
func (c *MergeController) InitiateMerge(ctx *gin.Context) {
	req := cqe.InitiateMergeReq{
		MergeSessionID: ctx.Param("merge_session_id"),
		UserUUID:       userUUIDFromContext(ctx),
	}
	// 请求体可选，仅携带质量档位
	_ = ctx.ShouldBindJSON(&req)
	req.MergeSessionID = ctx.Param("merge_session_id")

	resp, err := c.mergeApp.InitiateMerge(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	restapi.Success(ctx, resp)
}

// GetMergeSession 获取合并会话状态
func (c *MergeController) GetMergeSession(ctx *gin.Context) {
	resp, err := c.mergeApp.GetMergeSession(ctx.Request.Context(), ctx.Param("merge_session_id"), userUUIDFromContext(ctx))
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	restapi.Success(ctx, resp)
}

// CancelMerge 取消合并
func (c *MergeController) CancelMerge(ctx *gin.Context) {
	cancelled, err := c.mergeApp.CancelMerge(ctx.Request.Context(), ctx.Param("merge_session_id"), userUUIDFromContext(ctx))
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	restapi.Success(ctx, gin.H{"cancelled": cancelled})
}

// CleanupSources 清理合并会话的组成视频文件
func (c *MergeController) CleanupSources(ctx *gin.Context) {
	req := cqe.CleanupMergeSourcesReq{
		MergeSessionID: ctx.Param("merge_session_id"),
		UserUUID:       userUUIDFromContext(ctx),
	}

	resp, err := c.mergeApp.CleanupSources(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	restapi.Success(ctx, resp)
}
