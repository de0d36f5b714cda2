package restapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"merge-service/pkg/errno"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, Response{
		Code:    errno.OK.Code,
		Message: errno.OK.Message,
		Data:    data,
	})
}

// Failed 失败响应，按错误码映射HTTP状态
func Failed(ctx *gin.Context, err error) {
	code, message := errno.DecodeErr(err)
	ctx.JSON(httpStatus(code, err), Response{
		Code:    code,
		Message: message,
	})
}

func httpStatus(code int, err error) int {
	switch {
	case code >= 400 && code < 600:
		return code
	case errors.Is(err, errno.ErrUploadSessionNotFound),
		errors.Is(err, errno.ErrMergeSessionNotFound),
		errors.Is(err, errno.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errno.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, errno.ErrQueueFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, errno.ErrDatabase), errors.Is(err, errno.ErrInternalServer):
		return http.StatusInternalServerError
	case code >= 20000:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
