package back

import (
	"errors"
	"net/http"

	"MarketMind/pkg/xerr"
	"MarketMind/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构；HTTP 状态码恒为 200，业务结果看 Code
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Result 统一返回入口。CodeError（含被 %w 包装的）原样透出 code/message，
// 其余错误只返回通用 500 文案，原始错误写日志。
func Result(c *gin.Context, data interface{}, err error) {
	if err == nil {
		Success(c, data)
		return
	}

	var e *xerr.CodeError
	if !errors.As(err, &e) {
		zlog.Error("unhandled error",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		e = xerr.ErrServerError
	} else if e.Code >= xerr.InternalServerError {
		zlog.Warn("request failed",
			zap.String("path", c.FullPath()),
			zap.Int("code", e.Code),
			zap.Error(err))
	}
	Error(c, e.Code, e.Message)
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: xerr.OK, Message: "Success", Data: data})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{Code: code, Message: message})
}
