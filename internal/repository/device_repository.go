package repository

import (
	"errors"
	"strings"

	"github.com/sensevend-next/internal/models"

	"gorm.io/gorm"
)

// DeviceRepository 设备数据访问接口
type DeviceRepository interface {
	Create(device *models.Device) error
	GetByID(id uint) (*models.Device, error)
	GetByRemoteID(remoteID string) (*models.Device, error)
	ListByTenant(tenantID string) ([]models.Device, error)
	List(filter DeviceListFilter) ([]models.Device, int64, error)
	UpdateCredentialsRef(id uint, credentialsRef string) error
	CountByTenant(tenantID string) (int64, error)
	WithTx(tx *gorm.DB) DeviceRepository
}

// GormDeviceRepository GORM 实现
type GormDeviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository 创建设备仓库
func NewDeviceRepository(db *gorm.DB) *GormDeviceRepository {
	return &GormDeviceRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDeviceRepository) WithTx(tx *gorm.DB) DeviceRepository {
	if tx == nil {
		return r
	}
	return &GormDeviceRepository{db: tx}
}

// Create 创建设备记录
func (r *GormDeviceRepository) Create(device *models.Device) error {
	if device == nil {
		return errors.New("device is nil")
	}
	return r.db.Create(device).Error
}

// GetByID 根据 ID 获取设备
func (r *GormDeviceRepository) GetByID(id uint) (*models.Device, error) {
	if id == 0 {
		return nil, errors.New("invalid device id")
	}
	var device models.Device
	if err := r.db.First(&device, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &device, nil
}

// GetByRemoteID 根据远程平台设备 ID 获取设备
func (r *GormDeviceRepository) GetByRemoteID(remoteID string) (*models.Device, error) {
	if strings.TrimSpace(remoteID) == "" {
		return nil, errors.New("invalid remote device id")
	}
	var device models.Device
	if err := r.db.Where("remote_device_id = ?", remoteID).First(&device).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &device, nil
}

// ListByTenant 获取租户的设备列表
func (r *GormDeviceRepository) ListByTenant(tenantID string) ([]models.Device, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, errors.New("invalid tenant id")
	}
	var devices []models.Device
	if err := r.db.Where("tenant_id = ?", tenantID).Order("created_at DESC, id DESC").Find(&devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}

// List 设备列表（管理端）
func (r *GormDeviceRepository) List(filter DeviceListFilter) ([]models.Device, int64, error) {
	query := r.db.Model(&models.Device{})

	if strings.TrimSpace(filter.TenantID) != "" {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if strings.TrimSpace(filter.Name) != "" {
		query = query.Where("name LIKE ?", "%"+filter.Name+"%")
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var devices []models.Device
	if err := applyPagination(query.Order("created_at DESC, id DESC"), filter.Page, filter.PageSize).Find(&devices).Error; err != nil {
		return nil, 0, err
	}
	return devices, total, nil
}

// UpdateCredentialsRef 更新设备凭证引用
func (r *GormDeviceRepository) UpdateCredentialsRef(id uint, credentialsRef string) error {
	if id == 0 {
		return errors.New("invalid device id")
	}
	return r.db.Model(&models.Device{}).
		Where("id = ?", id).
		Update("credentials_ref", credentialsRef).Error
}

// CountByTenant 统计租户的设备数量
func (r *GormDeviceRepository) CountByTenant(tenantID string) (int64, error) {
	if strings.TrimSpace(tenantID) == "" {
		return 0, errors.New("invalid tenant id")
	}
	var count int64
	if err := r.db.Model(&models.Device{}).Where("tenant_id = ?", tenantID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
