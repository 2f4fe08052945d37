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

// GetAdminReconciliations 获取对账记录列表 (Admin)
func (h *Handler) GetAdminReconciliations(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	records, total, err := h.ReconciliationService.List(c.Request.Context(), repository.ReconciliationListFilter{
		Page:     page,
		PageSize: pageSize,
		TenantID: strings.TrimSpace(c.Query("tenant_id")),
		Reason:   strings.TrimSpace(c.Query("reason")),
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}

	response.SuccessWithPage(c, records, response.NewPagination(page, pageSize, total))
}

// ResolveReconciliation 标记对账记录已处理
func (h *Handler) ResolveReconciliation(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	record, err := h.ReconciliationService.Resolve(c.Request.Context(), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReconciliationNotFound):
			respondError(c, response.CodeNotFound, "error.reconciliation_missing", nil)
		case errors.Is(err, service.ErrReconciliationResolved):
			respondError(c, response.CodeConflict, "error.reconciliation_resolved", nil)
		default:
			respondError(c, response.CodeInternal, "error.internal", err)
		}
		return
	}

	requestLog(c).Infow("reconciliation_resolved",
		"admin_id", adminID,
		"record_id", record.ID,
		"remote_device_id", record.RemoteDeviceID,
	)
	response.Success(c, record)
}
