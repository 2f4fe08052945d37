package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sensevend-next/internal/constants"
	"github.com/sensevend-next/internal/logger"
	"github.com/sensevend-next/internal/models"
	"github.com/sensevend-next/internal/platform"
	"github.com/sensevend-next/internal/queue"
	"github.com/sensevend-next/internal/repository"

	"github.com/google/uuid"
)

const deviceNameMaxLength = 128

// ProvisioningService 设备开通服务
// 开通顺序固定：占用授权 → 远程创建 → 远程分配 → 本地落库。
// 远程副作用发生之前的失败直接释放授权；之后的失败释放授权
// 并投递对账任务，远程清理交给人工核对。
type ProvisioningService struct {
	licenseService        *LicenseService
	reconciliationService *ReconciliationService
	deviceRepo            repository.DeviceRepository
	gateway               platform.Gateway
	queueClient           *queue.Client
}

// NewProvisioningService 创建设备开通服务
func NewProvisioningService(licenseService *LicenseService, reconciliationService *ReconciliationService, deviceRepo repository.DeviceRepository, gateway platform.Gateway, queueClient *queue.Client) *ProvisioningService {
	return &ProvisioningService{
		licenseService:        licenseService,
		reconciliationService: reconciliationService,
		deviceRepo:            deviceRepo,
		gateway:               gateway,
		queueClient:           queueClient,
	}
}

// ProvisionInput 设备开通输入
// MQTT 账号密码可选，缺省时自动生成。
type ProvisionInput struct {
	TenantID     string
	DeviceName   string
	MQTTUsername string
	MQTTPassword string
}

// ProvisionResult 设备开通结果
// MQTT 密码只在开通时返回一次，本地不保存明文。
type ProvisionResult struct {
	Device       *models.Device `json:"device"`
	MQTTUsername string         `json:"mqtt_username"`
	MQTTPassword string         `json:"mqtt_password"`
}

// ProvisionDevice 开通设备
func (s *ProvisioningService) ProvisionDevice(ctx context.Context, input ProvisionInput) (*ProvisionResult, error) {
	tenantID := strings.TrimSpace(input.TenantID)
	if tenantID == "" {
		return nil, ErrTenantMissing
	}
	name := strings.TrimSpace(input.DeviceName)
	if name == "" || len(name) > deviceNameMaxLength {
		return nil, ErrDeviceNameInvalid
	}

	cred := buildCredential(input)

	// 第一步：占用授权单位
	handle, err := s.licenseService.ReserveUnit(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	// 第二步：远程创建设备
	remoteDeviceID, err := s.gateway.CreateDevice(ctx, name, cred)
	if err != nil {
		s.releaseHandle(ctx, handle, "remote_create_failed")
		logger.Warnw("provision_remote_create_failed", "tenant_id", tenantID, "device_name", name, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrRemoteCreateFailed, err)
	}

	// 第三步：远程分配到租户
	if err := s.gateway.AssignDevice(ctx, remoteDeviceID, tenantID); err != nil {
		s.releaseHandle(ctx, handle, "remote_assign_failed")
		s.recordInconsistency(ctx, tenantID, remoteDeviceID, 0, name,
			constants.ReconciliationReasonRemoteOrphan, err)
		logger.Warnw("provision_remote_assign_failed",
			"tenant_id", tenantID,
			"remote_device_id", remoteDeviceID,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrRemoteAssignFailed, err)
	}

	// 凭证引用尽力获取，拿不到不影响开通
	credentialsRef := ""
	if fetched, err := s.gateway.FetchCredentials(ctx, remoteDeviceID); err == nil && fetched != nil {
		credentialsRef = fetched.ID
	}

	// 第四步：本地落库
	// 此时授权已消费、远程设备已存在，落库失败不能回滚远程
	// 副作用，只能转对账。
	device := &models.Device{
		TenantID:       tenantID,
		Name:           name,
		RemoteDeviceID: remoteDeviceID,
		LicenseBatchID: handle.BatchID,
		CredentialsRef: credentialsRef,
	}
	if err := s.deviceRepo.Create(device); err != nil {
		s.recordInconsistency(ctx, tenantID, remoteDeviceID, handle.BatchID, name,
			constants.ReconciliationReasonDevicePersistFailed, err)
		logger.Errorw("provision_persist_failed",
			"tenant_id", tenantID,
			"remote_device_id", remoteDeviceID,
			"license_batch_id", handle.BatchID,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrProvisionFailed, err)
	}

	logger.Infow("device_provisioned",
		"tenant_id", tenantID,
		"device_id", device.ID,
		"remote_device_id", remoteDeviceID,
		"license_batch_id", handle.BatchID,
	)
	return &ProvisionResult{
		Device:       device,
		MQTTUsername: cred.Username,
		MQTTPassword: cred.Password,
	}, nil
}

// releaseHandle 释放授权占用，失败只记日志（额度偏差会在人工对账时修正）
func (s *ProvisioningService) releaseHandle(ctx context.Context, handle *LicenseUnitHandle, stage string) {
	if err := s.licenseService.ReleaseUnit(ctx, handle); err != nil {
		logger.Errorw("provision_license_release_failed",
			"batch_id", handle.BatchID,
			"tenant_id", handle.TenantID,
			"stage", stage,
			"error", err,
		)
	}
}

// recordInconsistency 投递对账任务，队列不可用时直接落库
func (s *ProvisioningService) recordInconsistency(ctx context.Context, tenantID, remoteDeviceID string, licenseBatchID uint, deviceName, reason string, cause error) {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	payload := queue.ProvisionReconcilePayload{
		TenantID:       tenantID,
		RemoteDeviceID: remoteDeviceID,
		LicenseBatchID: licenseBatchID,
		DeviceName:     deviceName,
		Reason:         reason,
		Detail:         detail,
		OccurredAt:     time.Now(),
	}
	if s.queueClient.Enabled() {
		err := s.queueClient.EnqueueProvisionReconcile(payload)
		if err == nil {
			return
		}
		logger.Warnw("provision_reconcile_enqueue_failed", "remote_device_id", remoteDeviceID, "error", err)
	}
	if s.reconciliationService == nil {
		logger.Errorw("provision_reconcile_dropped", "remote_device_id", remoteDeviceID, "reason", reason)
		return
	}
	if _, err := s.reconciliationService.RecordPending(ctx, ReconciliationInput{
		TenantID:       tenantID,
		RemoteDeviceID: remoteDeviceID,
		LicenseBatchID: licenseBatchID,
		DeviceName:     deviceName,
		Reason:         reason,
		Detail:         detail,
		OccurredAt:     payload.OccurredAt,
	}); err != nil && err != ErrReconciliationExists {
		logger.Errorw("provision_reconcile_record_failed", "remote_device_id", remoteDeviceID, "error", err)
	}
}

func buildCredential(input ProvisionInput) platform.CredentialInput {
	username := strings.TrimSpace(input.MQTTUsername)
	password := strings.TrimSpace(input.MQTTPassword)
	if username == "" {
		username = "mqtt-" + uuid.NewString()[:8]
	}
	if password == "" {
		password = uuid.NewString()
	}
	return platform.CredentialInput{
		ClientID: "",
		Username: username,
		Password: password,
	}
}
