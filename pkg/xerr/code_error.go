package xerr

import (
	"errors"
	"fmt"
)

// CodeError 自定义错误结构
type CodeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error 实现 error 接口
func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("Code: %d, Message: %s, Cause: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("Code: %d, Message: %s", e.Code, e.Message)
}

// Unwrap 暴露底层错误，便于 errors.Is / errors.As 继续向下匹配
func (e *CodeError) Unwrap() error {
	return e.cause
}

// Is 同码即视为同一类错误
func (e *CodeError) Is(target error) bool {
	var t *CodeError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New 创建新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{Code: code, Message: msg}
}

// Wrap 创建携带底层原因的 CodeError
func Wrap(code int, msg string, cause error) *CodeError {
	return &CodeError{Code: code, Message: msg, cause: cause}
}

// 常用通用错误码
const (
	OK                  = 200
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
	ServiceUnavailable  = 503
)

// 常用预定义错误
var (
	ErrSuccess            = New(OK, "Success")
	ErrServerError        = New(InternalServerError, "系统错误，请联系工作人员")
	ErrParam              = New(BadRequest, "参数错误")
	ErrUnauthorized       = New(Unauthorized, "未登录")
	ErrNotFound           = New(NotFound, "资源不存在")
	ErrConflict           = New(Conflict, "资源已存在")
	ErrServiceUnavailable = New(ServiceUnavailable, "依赖服务暂不可用，请稍后重试")
)
