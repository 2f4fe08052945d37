package public

import (
	"github.com/sensevend-next/internal/http/response"
	"github.com/sensevend-next/internal/models"
	"github.com/sensevend-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetMyLicenses 获取当前租户授权批次与剩余额度
func (h *Handler) GetMyLicenses(c *gin.Context) {
	if _, ok := getUserID(c); !ok {
		return
	}
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}

	batches, err := h.AllocationService.ListTenantBatches(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	remaining, err := h.LicenseService.Remaining(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}

	response.Success(c, gin.H{
		"batches":         batches,
		"remaining_units": remaining,
	})
}

// GetMyLicenseRemaining 获取当前租户剩余授权额度
func (h *Handler) GetMyLicenseRemaining(c *gin.Context) {
	if _, ok := getUserID(c); !ok {
		return
	}
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}

	remaining, err := h.LicenseService.Remaining(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.Success(c, gin.H{"remaining_units": remaining})
}

// PurchaseLicenseRequest 购买授权套餐请求
type PurchaseLicenseRequest struct {
	PackageName string `json:"package_name" binding:"required"`
	TotalUnits  int    `json:"total_units" binding:"required"`
	Price       string `json:"price" binding:"required"`
}

// PurchaseLicense 购买授权套餐
// 新批次保持未激活，待管理端核对款项后激活。
func (h *Handler) PurchaseLicense(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}

	var req PurchaseLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	price, err := models.NewMoneyFromString(req.Price)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.license_price_invalid", nil)
		return
	}

	batch, err := h.AllocationService.PurchaseBatch(c.Request.Context(), service.PurchaseInput{
		TenantID:    tenantID,
		PackageName: req.PackageName,
		TotalUnits:  req.TotalUnits,
		Price:       price,
	})
	if err != nil {
		respondWithMappedError(c, err, licensePurchaseErrorRules, response.CodeInternal, "error.internal")
		return
	}

	requestLog(c).Infow("license_purchased",
		"user_id", uid,
		"tenant_id", tenantID,
		"batch_id", batch.ID,
		"total_units", batch.TotalUnits,
	)
	response.Success(c, batch)
}
