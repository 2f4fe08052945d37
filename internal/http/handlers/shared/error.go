package shared

import (
	"github.com/sensevend-next/internal/http/response"
	"github.com/sensevend-next/internal/i18n"
	"github.com/sensevend-next/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const requestIDContextKey = "request_id"

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get(requestIDContextKey); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	locale := i18n.ResolveLocale(c)
	respondWrapped(c, response.WrapError(code, i18n.T(locale, key), err))
}

// RespondErrorWithMsg 返回自定义消息错误响应，并在有原始错误时记录日志。
func RespondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	respondWrapped(c, response.WrapError(code, msg, err))
}

func respondWrapped(c *gin.Context, appErr *response.AppError) {
	if appErr.Err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", appErr.Err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}
