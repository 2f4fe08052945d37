package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/sensevend-next/internal/http/response"
	"github.com/sensevend-next/internal/repository"
	"github.com/sensevend-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminUsers 获取门户用户列表 (Admin)
func (h *Handler) GetAdminUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	users, total, err := h.UserAuthService.ListUsers(repository.UserListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  strings.TrimSpace(c.Query("keyword")),
		Status:   strings.TrimSpace(c.Query("status")),
		TenantID: strings.TrimSpace(c.Query("tenant_id")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}

	response.SuccessWithPage(c, users, response.NewPagination(page, pageSize, total))
}

// LinkUserTenantRequest 关联用户与租户请求
type LinkUserTenantRequest struct {
	TenantID string `json:"tenant_id" binding:"required"`
}

// LinkUserTenant 将门户用户关联到远程平台租户
func (h *Handler) LinkUserTenant(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	var req LinkUserTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	user, err := h.UserAuthService.LinkTenant(uint(id), req.TenantID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.user_not_found", nil)
		case errors.Is(err, service.ErrTenantMissing):
			respondError(c, response.CodeBadRequest, "error.tenant_missing", nil)
		default:
			respondError(c, response.CodeInternal, "error.internal", err)
		}
		return
	}

	requestLog(c).Infow("user_tenant_linked_by_admin",
		"admin_id", adminID,
		"user_id", user.ID,
		"tenant_id", user.TenantID,
	)
	response.Success(c, user)
}
