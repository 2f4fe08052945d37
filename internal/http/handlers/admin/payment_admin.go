package admin

import (
	"strconv"
	"strings"

	"github.com/sensevend-next/internal/http/response"
	"github.com/sensevend-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetAdminPayments 获取授权购买记录列表 (Admin)
func (h *Handler) GetAdminPayments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	tenantID := strings.TrimSpace(c.Query("tenant_id"))
	status := strings.TrimSpace(c.Query("status"))

	createdFrom, err := parseTimeNullable(c.Query("created_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	createdTo, err := parseTimeNullable(c.Query("created_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	payments, total, err := h.AllocationService.ListPayments(c.Request.Context(), repository.PaymentListFilter{
		Page:        page,
		PageSize:    pageSize,
		TenantID:    tenantID,
		Status:      status,
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}

	response.SuccessWithPage(c, payments, response.NewPagination(page, pageSize, total))
}
