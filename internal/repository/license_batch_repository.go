package repository

import (
	"errors"
	"strings"

	"github.com/sensevend-next/internal/models"

	"gorm.io/gorm"
)

// LicenseBatchRepository 授权批次数据访问接口
// used_units 只允许经由 ReserveUnit / ReleaseUnit 的条件更新修改，
// 其余组件不得对该字段做读改写。
type LicenseBatchRepository interface {
	Create(batch *models.LicenseBatch) error
	GetByID(id uint) (*models.LicenseBatch, error)
	ListEligible(tenantID string) ([]models.LicenseBatch, error)
	ListByTenant(tenantID string) ([]models.LicenseBatch, error)
	List(filter LicenseBatchListFilter) ([]models.LicenseBatch, int64, error)
	Activate(id uint) (int64, error)
	ReserveUnit(id uint) (int64, error)
	ReleaseUnit(id uint) (int64, error)
	WithTx(tx *gorm.DB) LicenseBatchRepository
}

// GormLicenseBatchRepository GORM 实现
type GormLicenseBatchRepository struct {
	db *gorm.DB
}

// NewLicenseBatchRepository 创建授权批次仓库
func NewLicenseBatchRepository(db *gorm.DB) *GormLicenseBatchRepository {
	return &GormLicenseBatchRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLicenseBatchRepository) WithTx(tx *gorm.DB) LicenseBatchRepository {
	if tx == nil {
		return r
	}
	return &GormLicenseBatchRepository{db: tx}
}

// Create 创建授权批次
func (r *GormLicenseBatchRepository) Create(batch *models.LicenseBatch) error {
	if batch == nil {
		return errors.New("license batch is nil")
	}
	return r.db.Create(batch).Error
}

// GetByID 根据 ID 获取授权批次
func (r *GormLicenseBatchRepository) GetByID(id uint) (*models.LicenseBatch, error) {
	if id == 0 {
		return nil, errors.New("invalid license batch id")
	}
	var batch models.LicenseBatch
	if err := r.db.First(&batch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

// ListEligible 获取租户可扣减的授权批次（已激活且未耗尽，按购买时间先进先出）
func (r *GormLicenseBatchRepository) ListEligible(tenantID string) ([]models.LicenseBatch, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, errors.New("invalid tenant id")
	}
	var batches []models.LicenseBatch
	err := r.db.Model(&models.LicenseBatch{}).
		Where("tenant_id = ? AND is_assigned = ? AND used_units < total_units", tenantID, true).
		Order("purchased_at ASC, id ASC").
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}

// ListByTenant 获取租户的全部授权批次（新购在前）
func (r *GormLicenseBatchRepository) ListByTenant(tenantID string) ([]models.LicenseBatch, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, errors.New("invalid tenant id")
	}
	var batches []models.LicenseBatch
	err := r.db.Where("tenant_id = ?", tenantID).
		Order("purchased_at DESC, id DESC").
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}

// List 授权批次列表（管理端）
func (r *GormLicenseBatchRepository) List(filter LicenseBatchListFilter) ([]models.LicenseBatch, int64, error) {
	query := r.db.Model(&models.LicenseBatch{})

	if strings.TrimSpace(filter.TenantID) != "" {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if strings.TrimSpace(filter.PackageName) != "" {
		query = query.Where("package_name LIKE ?", "%"+filter.PackageName+"%")
	}
	if filter.AssignedOnly {
		query = query.Where("is_assigned = ?", true)
	}
	if filter.PurchasedFrom != nil {
		query = query.Where("purchased_at >= ?", *filter.PurchasedFrom)
	}
	if filter.PurchasedTo != nil {
		query = query.Where("purchased_at <= ?", *filter.PurchasedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var batches []models.LicenseBatch
	if err := applyPagination(query.Order("purchased_at DESC, id DESC"), filter.Page, filter.PageSize).Find(&batches).Error; err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

// Activate 激活授权批次（幂等）
func (r *GormLicenseBatchRepository) Activate(id uint) (int64, error) {
	if id == 0 {
		return 0, errors.New("invalid license batch id")
	}
	result := r.db.Model(&models.LicenseBatch{}).
		Where("id = ?", id).
		Update("is_assigned", true)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReserveUnit 扣减一个授权单位
// 检查与自增合并为一条条件更新，并发请求不会在只剩一个
// 单位时同时成功；RowsAffected == 0 表示批次不可用或已耗尽。
func (r *GormLicenseBatchRepository) ReserveUnit(id uint) (int64, error) {
	if id == 0 {
		return 0, errors.New("invalid license batch id")
	}
	result := r.db.Model(&models.LicenseBatch{}).
		Where("id = ? AND is_assigned = ? AND used_units < total_units", id, true).
		Update("used_units", gorm.Expr("used_units + 1"))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReleaseUnit 归还一个授权单位（下游开通失败时的补偿），下限为 0
func (r *GormLicenseBatchRepository) ReleaseUnit(id uint) (int64, error) {
	if id == 0 {
		return 0, errors.New("invalid license batch id")
	}
	result := r.db.Model(&models.LicenseBatch{}).
		Where("id = ? AND used_units > 0", id).
		Update("used_units", gorm.Expr("used_units - 1"))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
