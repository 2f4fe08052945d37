package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/sensevend-next/internal/constants"
	"github.com/sensevend-next/internal/models"

	"gorm.io/gorm"
)

// ReconciliationRepository 对账记录数据访问接口
type ReconciliationRepository interface {
	Create(record *models.ReconciliationRecord) error
	GetByID(id uint) (*models.ReconciliationRecord, error)
	GetPendingByRemoteID(remoteDeviceID string) (*models.ReconciliationRecord, error)
	List(filter ReconciliationListFilter) ([]models.ReconciliationRecord, int64, error)
	Resolve(id uint, resolvedAt time.Time) (int64, error)
}

// GormReconciliationRepository GORM 实现
type GormReconciliationRepository struct {
	db *gorm.DB
}

// NewReconciliationRepository 创建对账记录仓库
func NewReconciliationRepository(db *gorm.DB) *GormReconciliationRepository {
	return &GormReconciliationRepository{db: db}
}

// Create 创建对账记录
func (r *GormReconciliationRepository) Create(record *models.ReconciliationRecord) error {
	if record == nil {
		return errors.New("reconciliation record is nil")
	}
	return r.db.Create(record).Error
}

// GetByID 根据 ID 获取对账记录
func (r *GormReconciliationRepository) GetByID(id uint) (*models.ReconciliationRecord, error) {
	if id == 0 {
		return nil, errors.New("invalid reconciliation record id")
	}
	var record models.ReconciliationRecord
	if err := r.db.First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetPendingByRemoteID 根据远程设备 ID 获取待处理对账记录
func (r *GormReconciliationRepository) GetPendingByRemoteID(remoteDeviceID string) (*models.ReconciliationRecord, error) {
	if strings.TrimSpace(remoteDeviceID) == "" {
		return nil, errors.New("invalid remote device id")
	}
	var record models.ReconciliationRecord
	err := r.db.
		Where("remote_device_id = ? AND status = ?", remoteDeviceID, constants.ReconciliationStatusPending).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// List 对账记录列表
func (r *GormReconciliationRepository) List(filter ReconciliationListFilter) ([]models.ReconciliationRecord, int64, error) {
	query := r.db.Model(&models.ReconciliationRecord{})

	if strings.TrimSpace(filter.TenantID) != "" {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if strings.TrimSpace(filter.Reason) != "" {
		query = query.Where("reason = ?", filter.Reason)
	}
	if strings.TrimSpace(filter.Status) != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []models.ReconciliationRecord
	if err := applyPagination(query.Order("occurred_at DESC, id DESC"), filter.Page, filter.PageSize).Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Resolve 标记对账记录为已处理（幂等：重复处理不再更新）
func (r *GormReconciliationRepository) Resolve(id uint, resolvedAt time.Time) (int64, error) {
	if id == 0 {
		return 0, errors.New("invalid reconciliation record id")
	}
	result := r.db.Model(&models.ReconciliationRecord{}).
		Where("id = ? AND status = ?", id, constants.ReconciliationStatusPending).
		Updates(map[string]interface{}{
			"status":      constants.ReconciliationStatusResolved,
			"resolved_at": resolvedAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
