package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/sensevend-next/internal/constants"
	"github.com/sensevend-next/internal/models"

	"gorm.io/gorm"
)

// PaymentRepository 授权购买记录数据访问接口
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	List(filter PaymentListFilter) ([]models.Payment, int64, error)
	ExpireDue(now time.Time) (int64, error)
	WithTx(tx *gorm.DB) PaymentRepository
}

// GormPaymentRepository GORM 实现
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建授权购买记录仓库
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) PaymentRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentRepository{db: tx}
}

// Create 创建购买记录
func (r *GormPaymentRepository) Create(payment *models.Payment) error {
	if payment == nil {
		return errors.New("payment is nil")
	}
	return r.db.Create(payment).Error
}

// GetByID 根据 ID 获取购买记录
func (r *GormPaymentRepository) GetByID(id uint) (*models.Payment, error) {
	if id == 0 {
		return nil, errors.New("invalid payment id")
	}
	var payment models.Payment
	if err := r.db.First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// List 购买记录列表
func (r *GormPaymentRepository) List(filter PaymentListFilter) ([]models.Payment, int64, error) {
	query := r.db.Model(&models.Payment{})

	if strings.TrimSpace(filter.TenantID) != "" {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if strings.TrimSpace(filter.Status) != "" {
		query = query.Where("status = ?", filter.Status)
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

	var payments []models.Payment
	if err := applyPagination(query.Order("created_at DESC, id DESC"), filter.Page, filter.PageSize).Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// ExpireDue 将到期的购买记录批量标记为过期
func (r *GormPaymentRepository) ExpireDue(now time.Time) (int64, error) {
	result := r.db.Model(&models.Payment{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", constants.PaymentStatusRecorded, now).
		Update("status", constants.PaymentStatusExpired)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
