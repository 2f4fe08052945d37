package public

import (
	"strconv"
	"strings"

	"github.com/sensevend-next/internal/http/response"
	"github.com/sensevend-next/internal/platform"
	"github.com/sensevend-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ProvisionDeviceRequest 设备开通请求
type ProvisionDeviceRequest struct {
	Name         string `json:"name" binding:"required"`
	MQTTUsername string `json:"mqtt_username"`
	MQTTPassword string `json:"mqtt_password"`
}

// ProvisionDevice 开通新设备，扣减一个授权额度
func (h *Handler) ProvisionDevice(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}

	var req ProvisionDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	result, err := h.ProvisioningService.ProvisionDevice(c.Request.Context(), service.ProvisionInput{
		TenantID:     tenantID,
		DeviceName:   req.Name,
		MQTTUsername: req.MQTTUsername,
		MQTTPassword: req.MQTTPassword,
	})
	if err != nil {
		respondWithMappedError(c, err, provisionErrorRules, response.CodeInternal, "error.provision_failed")
		return
	}

	requestLog(c).Infow("device_provisioned",
		"user_id", uid,
		"tenant_id", tenantID,
		"device_id", result.Device.ID,
		"remote_device_id", result.Device.RemoteDeviceID,
	)
	response.Success(c, result)
}

// GetMyDevices 获取当前租户设备列表
// with_credentials=true 时附带 MQTT 账号（不含密码）。
func (h *Handler) GetMyDevices(c *gin.Context) {
	if _, ok := getUserID(c); !ok {
		return
	}
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}

	withCredentials, _ := strconv.ParseBool(c.DefaultQuery("with_credentials", "false"))
	devices, err := h.DeviceQueryService.ListTenantDevices(c.Request.Context(), tenantID, withCredentials)
	if err != nil {
		respondWithMappedError(c, err, deviceQueryErrorRules, response.CodeInternal, "error.fetch_failed")
		return
	}
	response.Success(c, gin.H{"devices": devices, "total": len(devices)})
}

// GetMyDeviceCredentials 获取单台设备的接入凭证
func (h *Handler) GetMyDeviceCredentials(c *gin.Context) {
	if _, ok := getUserID(c); !ok {
		return
	}
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	deviceID := strings.TrimSpace(c.Param("deviceId"))
	if deviceID == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	credentials, err := h.DeviceQueryService.GetDeviceCredentials(c.Request.Context(), tenantID, deviceID)
	if err != nil {
		respondWithMappedError(c, err, deviceQueryErrorRules, response.CodeInternal, "error.fetch_failed")
		return
	}
	response.Success(c, credentials)
}

// UpdateDeviceCredentialsRequest 更新设备凭证请求
type UpdateDeviceCredentialsRequest struct {
	ClientID     string `json:"client_id"`
	MQTTUsername string `json:"mqtt_username" binding:"required"`
	MQTTPassword string `json:"mqtt_password" binding:"required"`
}

// UpdateMyDeviceCredentials 轮换单台设备的 MQTT 凭证
func (h *Handler) UpdateMyDeviceCredentials(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	deviceID := strings.TrimSpace(c.Param("deviceId"))
	if deviceID == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	var req UpdateDeviceCredentialsRequest
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
		respondWithMappedError(c, err, credentialUpdateErrorRules, response.CodeInternal, "error.internal")
		return
	}

	requestLog(c).Infow("device_credentials_rotated",
		"user_id", uid,
		"tenant_id", tenantID,
		"remote_device_id", deviceID,
	)
	response.Success(c, gin.H{"updated": true})
}
