package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/sensevend-next/internal/http/response"
	"github.com/sensevend-next/internal/platform"
	"github.com/sensevend-next/internal/repository"
	"github.com/sensevend-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminDevices 获取本地设备台账列表 (Admin)
func (h *Handler) GetAdminDevices(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	tenantID := strings.TrimSpace(c.Query("tenant_id"))
	name := strings.TrimSpace(c.Query("name"))

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

	devices, total, err := h.DeviceQueryService.ListLocalDevices(c.Request.Context(), repository.DeviceListFilter{
		Page:        page,
		PageSize:    pageSize,
		TenantID:    tenantID,
		Name:        name,
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}

	response.SuccessWithPage(c, devices, response.NewPagination(page, pageSize, total))
}

// GetTenantDevices 获取指定租户在远程平台上的设备列表 (Admin)
func (h *Handler) GetTenantDevices(c *gin.Context) {
	tenantID := strings.TrimSpace(c.Param("tenantId"))
	if tenantID == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	withCredentials, _ := strconv.ParseBool(c.DefaultQuery("with_credentials", "false"))
	devices, err := h.DeviceQueryService.ListTenantDevices(c.Request.Context(), tenantID, withCredentials)
	if err != nil {
		if errors.Is(err, service.ErrPlatformUnavailable) {
			respondError(c, response.CodeUpstream, "error.platform_unavailable", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}

	response.Success(c, gin.H{"devices": devices, "total": len(devices)})
}

// GetTenantDeviceCredentials 获取租户设备凭证 (Admin)
func (h *Handler) GetTenantDeviceCredentials(c *gin.Context) {
	tenantID := strings.TrimSpace(c.Param("tenantId"))
	deviceID := strings.TrimSpace(c.Param("deviceId"))
	if tenantID == "" || deviceID == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	credentials, err := h.DeviceQueryService.GetDeviceCredentials(c.Request.Context(), tenantID, deviceID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDeviceNotFound):
			respondError(c, response.CodeNotFound, "error.device_not_found", nil)
		case errors.Is(err, service.ErrPlatformUnavailable):
			respondError(c, response.CodeUpstream, "error.platform_unavailable", nil)
		default:
			respondError(c, response.CodeInternal, "error.fetch_failed", err)
		}
		return
	}
	response.Success(c, credentials)
}

// UpdateTenantDeviceCredentialsRequest 管理端更新设备凭证请求
type UpdateTenantDeviceCredentialsRequest struct {
	ClientID     string `json:"client_id"`
	MQTTUsername string `json:"mqtt_username" binding:"required"`
	MQTTPassword string `json:"mqtt_password" binding:"required"`
}

// UpdateTenantDeviceCredentials 管理端轮换租户设备凭证
func (h *Handler) UpdateTenantDeviceCredentials(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	tenantID := strings.TrimSpace(c.Param("tenantId"))
	deviceID := strings.TrimSpace(c.Param("deviceId"))
	if tenantID == "" || deviceID == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	var req UpdateTenantDeviceCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	err := h.DeviceQueryService.UpdateDeviceCredentials(c.Request.Context(), tenantID, deviceID, platform.CredentialInput{
		ClientID: req.ClientID,
		Username: req.MQTTUsername,
		Password: req.MQTTPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDeviceNotFound):
			respondError(c, response.CodeNotFound, "error.device_not_found", nil)
		case errors.Is(err, service.ErrCredentialsInvalid):
			respondError(c, response.CodeBadRequest, "error.credentials_invalid", nil)
		case errors.Is(err, service.ErrPlatformUnavailable):
			respondError(c, response.CodeUpstream, "error.platform_unavailable", nil)
		default:
			respondError(c, response.CodeInternal, "error.internal", err)
		}
		return
	}

	requestLog(c).Infow("admin_device_credentials_rotated",
		"admin_id", adminID,
		"tenant_id", tenantID,
		"remote_device_id", deviceID,
	)
	response.Success(c, gin.H{"updated": true})
}
