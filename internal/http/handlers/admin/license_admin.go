package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/sensevend-next/internal/http/response"
	"github.com/sensevend-next/internal/models"
	"github.com/sensevend-next/internal/repository"
	"github.com/sensevend-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GrantLicenseRequest 发放授权批次请求
type GrantLicenseRequest struct {
	TenantID    string `json:"tenant_id" binding:"required"`
	PackageName string `json:"package_name" binding:"required"`
	TotalUnits  int    `json:"total_units" binding:"required"`
	Price       string `json:"price"`
	// Deferred 为 true 时只建批不激活，后续走激活接口
	Deferred bool `json:"deferred"`
}

// GrantLicense 管理端发放授权批次
func (h *Handler) GrantLicense(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req GrantLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	price := models.MoneyZero()
	if raw := strings.TrimSpace(req.Price); raw != "" {
		parsed, err := models.NewMoneyFromString(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.license_price_invalid", nil)
			return
		}
		price = parsed
	}

	batch, err := h.AllocationService.GrantBatch(c.Request.Context(), service.GrantInput{
		TenantID:    req.TenantID,
		PackageName: req.PackageName,
		TotalUnits:  req.TotalUnits,
		Price:       price,
		Deferred:    req.Deferred,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTenantMissing):
			respondError(c, response.CodeBadRequest, "error.tenant_missing", nil)
		case errors.Is(err, service.ErrLicenseUnitsInvalid):
			respondError(c, response.CodeBadRequest, "error.license_units_invalid", nil)
		case errors.Is(err, service.ErrLicensePriceInvalid):
			respondError(c, response.CodeBadRequest, "error.license_price_invalid", nil)
		default:
			respondError(c, response.CodeInternal, "error.internal", err)
		}
		return
	}

	requestLog(c).Infow("license_granted",
		"admin_id", adminID,
		"tenant_id", batch.TenantID,
		"batch_id", batch.ID,
		"total_units", batch.TotalUnits,
		"activated", batch.IsAssigned,
	)
	response.Success(c, batch)
}

// ActivateLicense 激活授权批次
func (h *Handler) ActivateLicense(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	batch, err := h.AllocationService.ActivateBatch(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, service.ErrLicenseBatchNotFound) {
			respondError(c, response.CodeNotFound, "error.license_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}

	requestLog(c).Infow("license_activated", "admin_id", adminID, "batch_id", batch.ID)
	response.Success(c, batch)
}

// GetAdminLicenses 获取授权批次列表 (Admin)
func (h *Handler) GetAdminLicenses(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	tenantID := strings.TrimSpace(c.Query("tenant_id"))
	packageName := strings.TrimSpace(c.Query("package_name"))
	assignedOnly, _ := strconv.ParseBool(c.DefaultQuery("assigned_only", "false"))

	purchasedFrom, err := parseTimeNullable(c.Query("purchased_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	purchasedTo, err := parseTimeNullable(c.Query("purchased_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	batches, total, err := h.AllocationService.ListBatches(c.Request.Context(), repository.LicenseBatchListFilter{
		Page:          page,
		PageSize:      pageSize,
		TenantID:      tenantID,
		PackageName:   packageName,
		AssignedOnly:  assignedOnly,
		PurchasedFrom: purchasedFrom,
		PurchasedTo:   purchasedTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}

	response.SuccessWithPage(c, batches, response.NewPagination(page, pageSize, total))
}
