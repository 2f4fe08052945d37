package service

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sensevend-next/internal/logger"
	"github.com/sensevend-next/internal/models"
	"github.com/sensevend-next/internal/repository"
)

// reserveRounds 扣减重试轮数
// 一轮内逐个尝试候选批次；全部失手说明并发竞争激烈或额度
// 确实耗尽，重新拉取候选再试。
const reserveRounds = 3

// LicenseService 授权台账服务
// used_units 的增减只经过仓库层的条件更新，任何路径都不做
// 先查后改。
type LicenseService struct {
	licenseRepo repository.LicenseBatchRepository
}

// NewLicenseService 创建授权台账服务
func NewLicenseService(licenseRepo repository.LicenseBatchRepository) *LicenseService {
	return &LicenseService{
		licenseRepo: licenseRepo,
	}
}

// LicenseUnitHandle 授权占用凭据
// 一次成功扣减对应一个凭据；凭据只能释放一次，开通成功后
// 凭据随流程丢弃（不释放即视为消费完成）。
type LicenseUnitHandle struct {
	BatchID  uint
	TenantID string
	released atomic.Bool
}

// Released 是否已释放
func (h *LicenseUnitHandle) Released() bool {
	if h == nil {
		return true
	}
	return h.released.Load()
}

// CreateBatchInput 创建授权批次输入
type CreateBatchInput struct {
	TenantID    string
	PackageName string
	TotalUnits  int
	Price       models.Money
	IsAssigned  bool
	PurchasedAt time.Time
}

// CreateBatch 创建授权批次
func (s *LicenseService) CreateBatch(ctx context.Context, input CreateBatchInput) (*models.LicenseBatch, error) {
	_ = ctx
	tenantID := strings.TrimSpace(input.TenantID)
	if tenantID == "" {
		return nil, ErrTenantMissing
	}
	if input.TotalUnits <= 0 {
		return nil, ErrLicenseUnitsInvalid
	}
	if input.Price.IsNegative() {
		return nil, ErrLicensePriceInvalid
	}
	purchasedAt := input.PurchasedAt
	if purchasedAt.IsZero() {
		purchasedAt = time.Now()
	}
	batch := &models.LicenseBatch{
		TenantID:    tenantID,
		PackageName: strings.TrimSpace(input.PackageName),
		TotalUnits:  input.TotalUnits,
		UsedUnits:   0,
		Price:       input.Price,
		IsAssigned:  input.IsAssigned,
		PurchasedAt: purchasedAt,
	}
	if err := s.licenseRepo.Create(batch); err != nil {
		return nil, err
	}
	logger.Infow("license_batch_created",
		"batch_id", batch.ID,
		"tenant_id", batch.TenantID,
		"package_name", batch.PackageName,
		"total_units", batch.TotalUnits,
		"is_assigned", batch.IsAssigned,
	)
	return batch, nil
}

// ActivateBatch 激活授权批次
// 重复激活视为成功。
func (s *LicenseService) ActivateBatch(ctx context.Context, batchID uint) (*models.LicenseBatch, error) {
	_ = ctx
	if batchID == 0 {
		return nil, ErrLicenseBatchNotFound
	}
	affected, err := s.licenseRepo.Activate(batchID)
	if err != nil {
		return nil, err
	}
	batch, err := s.licenseRepo.GetByID(batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, ErrLicenseBatchNotFound
	}
	if affected > 0 {
		logger.Infow("license_batch_activated", "batch_id", batch.ID, "tenant_id", batch.TenantID)
	}
	return batch, nil
}

// ReserveUnit 为租户占用一个授权单位
// 候选批次按购买时间先进先出，逐个做条件扣减；条件扣减未
// 命中说明批次被并发耗尽，顺延到下一个候选。全部候选失手
// 后重新拉取候选重试，最多 reserveRounds 轮。
func (s *LicenseService) ReserveUnit(ctx context.Context, tenantID string) (*LicenseUnitHandle, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrTenantMissing
	}
	for round := 0; round < reserveRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candidates, err := s.licenseRepo.ListEligible(tenantID)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			return nil, ErrNoLicenseCapacity
		}
		for _, batch := range candidates {
			affected, err := s.licenseRepo.ReserveUnit(batch.ID)
			if err != nil {
				return nil, err
			}
			if affected == 0 {
				continue
			}
			return &LicenseUnitHandle{
				BatchID:  batch.ID,
				TenantID: tenantID,
			}, nil
		}
		logger.Debugw("license_reserve_round_exhausted", "tenant_id", tenantID, "round", round, "candidates", len(candidates))
	}
	return nil, ErrNoLicenseCapacity
}

// ReleaseUnit 释放授权占用（开通失败时的补偿）
// 凭据只能释放一次；重复释放返回 ErrLicenseHandleReleased。
func (s *LicenseService) ReleaseUnit(ctx context.Context, handle *LicenseUnitHandle) error {
	_ = ctx
	if handle == nil {
		return ErrLicenseHandleReleased
	}
	if !handle.released.CompareAndSwap(false, true) {
		logger.Warnw("license_release_duplicate", "batch_id", handle.BatchID, "tenant_id", handle.TenantID)
		return ErrLicenseHandleReleased
	}
	affected, err := s.licenseRepo.ReleaseUnit(handle.BatchID)
	if err != nil {
		// 释放落库失败时允许重试同一凭据
		handle.released.Store(false)
		return err
	}
	if affected == 0 {
		// used_units 已经为 0，说明释放与其它补偿路径撞上了
		logger.Warnw("license_release_noop", "batch_id", handle.BatchID, "tenant_id", handle.TenantID)
	}
	return nil
}

// Remaining 租户当前剩余可用授权数
func (s *LicenseService) Remaining(ctx context.Context, tenantID string) (int, error) {
	_ = ctx
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return 0, ErrTenantMissing
	}
	candidates, err := s.licenseRepo.ListEligible(tenantID)
	if err != nil {
		return 0, err
	}
	total := 0
	for i := range candidates {
		total += candidates[i].RemainingUnits()
	}
	return total, nil
}

// GetBatch 获取授权批次
func (s *LicenseService) GetBatch(ctx context.Context, batchID uint) (*models.LicenseBatch, error) {
	_ = ctx
	batch, err := s.licenseRepo.GetByID(batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, ErrLicenseBatchNotFound
	}
	return batch, nil
}
