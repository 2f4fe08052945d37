package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sensevend-next/internal/constants"
	"github.com/sensevend-next/internal/models"
	"github.com/sensevend-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var allocationTestDBSeq int

func newAllocationService(t *testing.T) (*AllocationService, repository.PaymentRepository, repository.LicenseBatchRepository) {
	t.Helper()

	allocationTestDBSeq++
	dsn := fmt.Sprintf("file:allocation_svc_%d?mode=memory&cache=shared", allocationTestDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.LicenseBatch{}, &models.Payment{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	licenseRepo := repository.NewLicenseBatchRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	svc := NewAllocationService(NewLicenseService(licenseRepo), paymentRepo, newFakeGateway(), 365)
	return svc, paymentRepo, licenseRepo
}

func TestGrantBatchRecordsPayment(t *testing.T) {
	svc, paymentRepo, _ := newAllocationService(t)
	ctx := context.Background()

	batch, err := svc.GrantBatch(ctx, GrantInput{
		TenantID:    "t1",
		PackageName: "pro",
		TotalUnits:  20,
		Price:       models.NewMoneyFromDecimal(decimal.NewFromInt(500)),
	})
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if !batch.IsAssigned {
		t.Fatal("granted batch should be assigned by default")
	}

	payments, total, err := paymentRepo.List(repository.PaymentListFilter{TenantID: "t1"})
	if err != nil {
		t.Fatalf("list payments failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("payment count = %d, want 1", total)
	}
	p := payments[0]
	if p.LicenseBatchID != batch.ID || p.Status != constants.PaymentStatusRecorded {
		t.Fatalf("unexpected payment: %+v", p)
	}
	if p.TenantName != "Tenant" {
		t.Fatalf("tenant_name = %q, want enriched title", p.TenantName)
	}
	if p.ExpiresAt == nil || time.Until(*p.ExpiresAt) < 364*24*time.Hour {
		t.Fatalf("expires_at should be about a year out, got %v", p.ExpiresAt)
	}
}

func TestGrantBatchCapacityUsableImmediately(t *testing.T) {
	svc, _, licenseRepo := newAllocationService(t)
	ctx := context.Background()

	if _, err := svc.GrantBatch(ctx, GrantInput{
		TenantID:    "t1",
		PackageName: "starter",
		TotalUnits:  1,
		Price:       models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
	}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	// 发放后无需再走激活接口，额度立即可占用
	ledger := NewLicenseService(licenseRepo)
	handle, err := ledger.ReserveUnit(ctx, "t1")
	if err != nil {
		t.Fatalf("reserve after grant failed: %v", err)
	}
	if err := ledger.ReleaseUnit(ctx, handle); err != nil {
		t.Fatalf("release failed: %v", err)
	}
}

func TestGrantBatchDeferredStaysInactive(t *testing.T) {
	svc, _, _ := newAllocationService(t)
	ctx := context.Background()

	batch, err := svc.GrantBatch(ctx, GrantInput{
		TenantID:    "t1",
		PackageName: "starter",
		TotalUnits:  5,
		Price:       models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		Deferred:    true,
	})
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if batch.IsAssigned {
		t.Fatal("deferred grant must stay unassigned")
	}
}

func TestPurchaseBatchStaysInactive(t *testing.T) {
	svc, _, _ := newAllocationService(t)
	ctx := context.Background()

	batch, err := svc.PurchaseBatch(ctx, PurchaseInput{
		TenantID:    "t1",
		PackageName: "starter",
		TotalUnits:  5,
		Price:       models.NewMoneyFromDecimal(decimal.NewFromInt(99)),
	})
	if err != nil {
		t.Fatalf("purchase failed: %v", err)
	}
	if batch.IsAssigned {
		t.Fatal("purchased batch must wait for activation")
	}

	activated, err := svc.ActivateBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if !activated.IsAssigned {
		t.Fatal("batch should be assigned after activation")
	}
}

func TestListBatchesEnrichesTenantName(t *testing.T) {
	svc, _, _ := newAllocationService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.GrantBatch(ctx, GrantInput{
			TenantID:    fmt.Sprintf("t%d", i),
			PackageName: "basic",
			TotalUnits:  5,
			Price:       models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		}); err != nil {
			t.Fatalf("grant failed: %v", err)
		}
	}

	views, total, err := svc.ListBatches(ctx, repository.LicenseBatchListFilter{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 3 || len(views) != 3 {
		t.Fatalf("expected 3 batches, got total=%d len=%d", total, len(views))
	}
	for _, v := range views {
		if v.TenantName != "Tenant" {
			t.Fatalf("tenant_name = %q, want enriched title", v.TenantName)
		}
		if v.RemainingUnits != 5 {
			t.Fatalf("remaining_units = %d, want 5", v.RemainingUnits)
		}
	}
}

func TestExpireDuePayments(t *testing.T) {
	svc, paymentRepo, _ := newAllocationService(t)
	ctx := context.Background()

	past := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(24 * time.Hour)
	due := &models.Payment{TenantID: "t1", LicenseBatchID: 1, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(10)), Status: constants.PaymentStatusRecorded, ExpiresAt: &past}
	live := &models.Payment{TenantID: "t1", LicenseBatchID: 2, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(10)), Status: constants.PaymentStatusRecorded, ExpiresAt: &future}
	if err := paymentRepo.Create(due); err != nil {
		t.Fatalf("create due payment failed: %v", err)
	}
	if err := paymentRepo.Create(live); err != nil {
		t.Fatalf("create live payment failed: %v", err)
	}

	if err := svc.ExpireDuePayments(ctx, time.Now()); err != nil {
		t.Fatalf("expire sweep failed: %v", err)
	}

	expired, _, err := paymentRepo.List(repository.PaymentListFilter{Status: constants.PaymentStatusExpired})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != due.ID {
		t.Fatalf("expected only the due payment expired, got %+v", expired)
	}
}
