package service

import (
	"context"
	"strings"

	"github.com/sensevend-next/internal/constants"
	"github.com/sensevend-next/internal/logger"
	"github.com/sensevend-next/internal/models"
	"github.com/sensevend-next/internal/platform"
	"github.com/sensevend-next/internal/repository"

	"golang.org/x/sync/errgroup"
)

// DeviceQueryService 设备查询服务
// 设备清单以远程平台为准，本地记录用于补全授权归属；
// 凭证按需并发拉取。
type DeviceQueryService struct {
	deviceRepo repository.DeviceRepository
	gateway    platform.Gateway
}

// NewDeviceQueryService 创建设备查询服务
func NewDeviceQueryService(deviceRepo repository.DeviceRepository, gateway platform.Gateway) *DeviceQueryService {
	return &DeviceQueryService{
		deviceRepo: deviceRepo,
		gateway:    gateway,
	}
}

// DeviceView 设备视图
// Tracked 为 false 表示远程存在但本地没有开通记录（历史数据
// 或对账遗留）。
type DeviceView struct {
	RemoteDeviceID string `json:"remote_device_id"`
	Name           string `json:"name"`
	Label          string `json:"label"`
	Type           string `json:"type"`
	Active         bool   `json:"active"`
	CreatedTime    int64  `json:"created_time"`
	Tracked        bool   `json:"tracked"`
	LocalDeviceID  uint   `json:"local_device_id,omitempty"`
	LicenseBatchID uint   `json:"license_batch_id,omitempty"`
	MQTTUsername   string `json:"mqtt_username,omitempty"`
}

// ListTenantDevices 租户设备清单
// withCredentials 为 true 时并发补全每台设备的 MQTT 账号，
// 单台失败不影响整单返回。
func (s *DeviceQueryService) ListTenantDevices(ctx context.Context, tenantID string, withCredentials bool) ([]DeviceView, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrTenantMissing
	}
	remote, err := s.gateway.FetchDevices(ctx, tenantID)
	if err != nil {
		return nil, ErrPlatformUnavailable
	}
	local, err := s.deviceRepo.ListByTenant(tenantID)
	if err != nil {
		return nil, err
	}
	localByRemoteID := make(map[string]*models.Device, len(local))
	for i := range local {
		localByRemoteID[local[i].RemoteDeviceID] = &local[i]
	}

	views := make([]DeviceView, len(remote))
	for i := range remote {
		views[i] = DeviceView{
			RemoteDeviceID: remote[i].RemoteID,
			Name:           remote[i].Name,
			Label:          remote[i].Label,
			Type:           remote[i].Type,
			Active:         remote[i].Active,
			CreatedTime:    remote[i].CreatedTime,
		}
		if row, ok := localByRemoteID[remote[i].RemoteID]; ok {
			views[i].Tracked = true
			views[i].LocalDeviceID = row.ID
			views[i].LicenseBatchID = row.LicenseBatchID
		}
	}

	if withCredentials {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(constants.DeviceEnrichConcurrency)
		for i := range views {
			i := i
			g.Go(func() error {
				cred, err := s.gateway.FetchCredentials(gctx, views[i].RemoteDeviceID)
				if err != nil {
					logger.Debugw("device_credentials_enrich_failed", "remote_device_id", views[i].RemoteDeviceID, "error", err)
					return nil
				}
				views[i].MQTTUsername = platform.MQTTUsernameFromValue(cred.Value)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return views, nil
}

// GetDeviceCredentials 获取租户设备的凭证
// 先校验设备归属，防止跨租户读取。
func (s *DeviceQueryService) GetDeviceCredentials(ctx context.Context, tenantID, remoteDeviceID string) (*platform.Credentials, error) {
	device, err := s.requireTenantDevice(ctx, tenantID, remoteDeviceID)
	if err != nil {
		return nil, err
	}
	cred, err := s.gateway.FetchCredentials(ctx, device.RemoteDeviceID)
	if err != nil {
		return nil, ErrPlatformUnavailable
	}
	return cred, nil
}

// UpdateDeviceCredentials 重写设备 MQTT 凭证
func (s *DeviceQueryService) UpdateDeviceCredentials(ctx context.Context, tenantID, remoteDeviceID string, input platform.CredentialInput) error {
	device, err := s.requireTenantDevice(ctx, tenantID, remoteDeviceID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(input.Username) == "" || strings.TrimSpace(input.Password) == "" {
		return ErrCredentialsInvalid
	}
	if err := s.gateway.UpdateCredentials(ctx, device.RemoteDeviceID, input); err != nil {
		return ErrPlatformUnavailable
	}
	// 凭证引用可能随重写变化，尽力刷新
	if fetched, err := s.gateway.FetchCredentials(ctx, device.RemoteDeviceID); err == nil && fetched != nil {
		if err := s.deviceRepo.UpdateCredentialsRef(device.ID, fetched.ID); err != nil {
			logger.Warnw("device_credentials_ref_update_failed", "device_id", device.ID, "error", err)
		}
	}
	logger.Infow("device_credentials_updated", "device_id", device.ID, "remote_device_id", device.RemoteDeviceID)
	return nil
}

// ListLocalDevices 管理端本地设备记录列表
func (s *DeviceQueryService) ListLocalDevices(ctx context.Context, filter repository.DeviceListFilter) ([]models.Device, int64, error) {
	_ = ctx
	return s.deviceRepo.List(filter)
}

// CountTenantDevices 租户当前开通设备数
func (s *DeviceQueryService) CountTenantDevices(ctx context.Context, tenantID string) (int64, error) {
	_ = ctx
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return 0, ErrTenantMissing
	}
	return s.deviceRepo.CountByTenant(tenantID)
}

func (s *DeviceQueryService) requireTenantDevice(ctx context.Context, tenantID, remoteDeviceID string) (*models.Device, error) {
	_ = ctx
	tenantID = strings.TrimSpace(tenantID)
	remoteDeviceID = strings.TrimSpace(remoteDeviceID)
	if tenantID == "" {
		return nil, ErrTenantMissing
	}
	if remoteDeviceID == "" {
		return nil, ErrDeviceNotFound
	}
	device, err := s.deviceRepo.GetByRemoteID(remoteDeviceID)
	if err != nil {
		return nil, err
	}
	if device == nil || device.TenantID != tenantID {
		return nil, ErrDeviceNotFound
	}
	return device, nil
}
