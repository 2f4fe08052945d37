package public

import (
	handlershared "github.com/sensevend-next/internal/http/handlers/shared"
	"github.com/sensevend-next/internal/http/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondErrorWithMsg(c, code, msg, err)
}

func normalizePagination(page, pageSize int) (int, int) {
	return handlershared.NormalizePagination(page, pageSize)
}

func getUserID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, "user_id", "error.user_id_invalid", "error.user_id_type_invalid")
}

// getTenantID 读取当前用户绑定的租户，未绑定时直接返回业务错误。
func getTenantID(c *gin.Context) (string, bool) {
	tenantID, ok := handlershared.GetContextString(c, "tenant_id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.tenant_missing", nil)
		return "", false
	}
	return tenantID, true
}
