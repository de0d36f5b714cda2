package errno

import (
	"errors"
	"fmt"
)

// BizError 业务错误，携带错误码并包装底层原因
type BizError struct {
	Err   *Errno
	Cause error
}

// NewBizError 用底层错误包装一个业务错误码
func NewBizError(err *Errno, cause error) *BizError {
	return &BizError{Err: err, Cause: cause}
}

// Error 实现error接口
func (b *BizError) Error() string {
	if b.Cause == nil {
		return b.Err.Message
	}
	return fmt.Sprintf("%s: %v", b.Err.Message, b.Cause)
}

// Unwrap 返回底层原因
func (b *BizError) Unwrap() error {
	return b.Cause
}

// Is 支持errors.Is与错误码匹配
func (b *BizError) Is(target error) bool {
	if t, ok := target.(*Errno); ok {
		return b.Err.Code == t.Code
	}
	return false
}

// DecodeErr 解析错误为错误码和消息
func DecodeErr(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var bizErr *BizError
	if errors.As(err, &bizErr) {
		return bizErr.Err.Code, bizErr.Error()
	}

	var typed *Errno
	if errors.As(err, &typed) {
		return typed.Code, typed.Message
	}

	return ErrInternalServer.Code, err.Error()
}
