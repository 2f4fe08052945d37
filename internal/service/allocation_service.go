package service

import (
	"context"
	"strings"
	"time"

	"github.com/sensevend-next/internal/cache"
	"github.com/sensevend-next/internal/constants"
	"github.com/sensevend-next/internal/logger"
	"github.com/sensevend-next/internal/models"
	"github.com/sensevend-next/internal/platform"
	"github.com/sensevend-next/internal/repository"

	"golang.org/x/sync/errgroup"
)

// AllocationService 授权分配服务
// 管理端发放/激活授权批次，用户端购买套餐；购买只产生账目
// 记录，真实收款流程在系统之外完成。
type AllocationService struct {
	licenseService    *LicenseService
	paymentRepo       repository.PaymentRepository
	gateway           platform.Gateway
	paymentExpiryDays int
}

// NewAllocationService 创建授权分配服务
func NewAllocationService(licenseService *LicenseService, paymentRepo repository.PaymentRepository, gateway platform.Gateway, paymentExpiryDays int) *AllocationService {
	if paymentExpiryDays <= 0 {
		paymentExpiryDays = constants.LicensePaymentExpiryDaysDefault
	}
	return &AllocationService{
		licenseService:    licenseService,
		paymentRepo:       paymentRepo,
		gateway:           gateway,
		paymentExpiryDays: paymentExpiryDays,
	}
}

// GrantInput 管理端发放授权输入
type GrantInput struct {
	TenantID    string
	PackageName string
	TotalUnits  int
	Price       models.Money
	// Deferred 仅建批不激活，留给管理端核对后手动激活
	Deferred bool
}

// GrantBatch 管理端发放授权批次
// 发放即激活，租户拿到批次后立刻可以开通设备。
func (s *AllocationService) GrantBatch(ctx context.Context, input GrantInput) (*models.LicenseBatch, error) {
	batch, err := s.licenseService.CreateBatch(ctx, CreateBatchInput{
		TenantID:    input.TenantID,
		PackageName: input.PackageName,
		TotalUnits:  input.TotalUnits,
		Price:       input.Price,
		IsAssigned:  !input.Deferred,
	})
	if err != nil {
		return nil, err
	}
	s.recordPayment(ctx, batch)
	return batch, nil
}

// PurchaseInput 用户端购买套餐输入
type PurchaseInput struct {
	TenantID    string
	PackageName string
	TotalUnits  int
	Price       models.Money
}

// PurchaseBatch 用户端购买授权套餐
// 新批次保持未激活，待管理端核对后激活。
func (s *AllocationService) PurchaseBatch(ctx context.Context, input PurchaseInput) (*models.LicenseBatch, error) {
	batch, err := s.licenseService.CreateBatch(ctx, CreateBatchInput{
		TenantID:    input.TenantID,
		PackageName: input.PackageName,
		TotalUnits:  input.TotalUnits,
		Price:       input.Price,
		IsAssigned:  false,
	})
	if err != nil {
		return nil, err
	}
	s.recordPayment(ctx, batch)
	return batch, nil
}

// ActivateBatch 激活授权批次
func (s *AllocationService) ActivateBatch(ctx context.Context, batchID uint) (*models.LicenseBatch, error) {
	return s.licenseService.ActivateBatch(ctx, batchID)
}

// recordPayment 写入购买账目记录，失败不阻断发放
func (s *AllocationService) recordPayment(ctx context.Context, batch *models.LicenseBatch) {
	expiresAt := time.Now().AddDate(0, 0, s.paymentExpiryDays)
	payment := &models.Payment{
		TenantID:       batch.TenantID,
		TenantName:     s.resolveTenantTitle(ctx, batch.TenantID),
		LicenseBatchID: batch.ID,
		Amount:         batch.Price,
		Status:         constants.PaymentStatusRecorded,
		ExpiresAt:      &expiresAt,
	}
	if err := s.paymentRepo.Create(payment); err != nil {
		logger.Errorw("license_payment_record_failed",
			"batch_id", batch.ID,
			"tenant_id", batch.TenantID,
			"error", err,
		)
	}
}

// resolveTenantTitle 解析租户名称，优先读缓存
func (s *AllocationService) resolveTenantTitle(ctx context.Context, tenantID string) string {
	if title, hit, err := cache.GetTenantTitle(ctx, tenantID); err == nil && hit {
		return title
	}
	if s.gateway == nil {
		return ""
	}
	title, err := s.gateway.FetchTenantTitle(ctx, tenantID)
	if err != nil {
		logger.Warnw("tenant_title_fetch_failed", "tenant_id", tenantID, "error", err)
		return ""
	}
	_ = cache.SetTenantTitle(ctx, tenantID, title)
	return title
}

// LicenseBatchView 授权批次视图（管理端列表）
type LicenseBatchView struct {
	models.LicenseBatch
	TenantName     string `json:"tenant_name"`
	RemainingUnits int    `json:"remaining_units"`
}

// ListBatches 管理端授权批次列表
// 每行补全租户名称，远程查询失败只留空，不影响列表返回。
func (s *AllocationService) ListBatches(ctx context.Context, filter repository.LicenseBatchListFilter) ([]LicenseBatchView, int64, error) {
	batches, total, err := s.licenseService.licenseRepo.List(filter)
	if err != nil {
		return nil, 0, err
	}

	views := make([]LicenseBatchView, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(constants.LicenseEnrichConcurrency)
	for i := range batches {
		i := i
		views[i] = LicenseBatchView{
			LicenseBatch:   batches[i],
			RemainingUnits: batches[i].RemainingUnits(),
		}
		g.Go(func() error {
			views[i].TenantName = s.resolveTenantTitle(gctx, batches[i].TenantID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// ListTenantBatches 用户端授权批次列表
func (s *AllocationService) ListTenantBatches(ctx context.Context, tenantID string) ([]LicenseBatchView, error) {
	_ = ctx
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrTenantMissing
	}
	batches, err := s.licenseService.licenseRepo.ListByTenant(tenantID)
	if err != nil {
		return nil, err
	}
	views := make([]LicenseBatchView, len(batches))
	for i := range batches {
		views[i] = LicenseBatchView{
			LicenseBatch:   batches[i],
			RemainingUnits: batches[i].RemainingUnits(),
		}
	}
	return views, nil
}

// ListPayments 购买记录列表
func (s *AllocationService) ListPayments(ctx context.Context, filter repository.PaymentListFilter) ([]models.Payment, int64, error) {
	_ = ctx
	return s.paymentRepo.List(filter)
}

// ExpireDuePayments 将到期的购买记录标记为过期
func (s *AllocationService) ExpireDuePayments(ctx context.Context, now time.Time) error {
	_ = ctx
	affected, err := s.paymentRepo.ExpireDue(now)
	if err != nil {
		return err
	}
	if affected > 0 {
		logger.Infow("license_payments_expired", "count", affected)
	}
	return nil
}
