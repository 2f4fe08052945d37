package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sensevend-next/internal/models"
	"github.com/sensevend-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var licenseTestDBSeq int

func newLicenseService(t *testing.T) (*LicenseService, repository.LicenseBatchRepository) {
	t.Helper()

	licenseTestDBSeq++
	dsn := fmt.Sprintf("file:license_svc_%d?mode=memory&cache=shared", licenseTestDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.LicenseBatch{}); err != nil {
		t.Fatalf("auto migrate license batch failed: %v", err)
	}
	repo := repository.NewLicenseBatchRepository(db)
	return NewLicenseService(repo), repo
}

func seedBatch(t *testing.T, repo repository.LicenseBatchRepository, tenantID string, total, used int, assigned bool, purchasedAt time.Time) *models.LicenseBatch {
	t.Helper()
	batch := &models.LicenseBatch{
		TenantID:    tenantID,
		PackageName: "basic",
		TotalUnits:  total,
		UsedUnits:   used,
		Price:       models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		IsAssigned:  assigned,
		PurchasedAt: purchasedAt,
	}
	if err := repo.Create(batch); err != nil {
		t.Fatalf("seed batch failed: %v", err)
	}
	return batch
}

func TestCreateBatchValidation(t *testing.T) {
	svc, _ := newLicenseService(t)
	ctx := context.Background()

	if _, err := svc.CreateBatch(ctx, CreateBatchInput{TenantID: "", TotalUnits: 5}); !errors.Is(err, ErrTenantMissing) {
		t.Fatalf("expected ErrTenantMissing, got %v", err)
	}
	if _, err := svc.CreateBatch(ctx, CreateBatchInput{TenantID: "t1", TotalUnits: 0}); !errors.Is(err, ErrLicenseUnitsInvalid) {
		t.Fatalf("expected ErrLicenseUnitsInvalid, got %v", err)
	}
	if _, err := svc.CreateBatch(ctx, CreateBatchInput{
		TenantID:   "t1",
		TotalUnits: 5,
		Price:      models.NewMoneyFromDecimal(decimal.NewFromInt(-1)),
	}); !errors.Is(err, ErrLicensePriceInvalid) {
		t.Fatalf("expected ErrLicensePriceInvalid, got %v", err)
	}

	batch, err := svc.CreateBatch(ctx, CreateBatchInput{
		TenantID:    "t1",
		PackageName: "pro",
		TotalUnits:  10,
		Price:       models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
	})
	if err != nil {
		t.Fatalf("create batch failed: %v", err)
	}
	if batch.ID == 0 || batch.IsAssigned {
		t.Fatalf("unexpected batch state: %+v", batch)
	}
	if batch.PurchasedAt.IsZero() {
		t.Fatal("purchased_at should default to now")
	}
}

func TestActivateBatch(t *testing.T) {
	svc, repo := newLicenseService(t)
	ctx := context.Background()

	batch := seedBatch(t, repo, "t1", 5, 0, false, time.Now())

	activated, err := svc.ActivateBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if !activated.IsAssigned {
		t.Fatal("batch should be assigned after activation")
	}

	// 重复激活幂等
	again, err := svc.ActivateBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("re-activate failed: %v", err)
	}
	if !again.IsAssigned {
		t.Fatal("batch should stay assigned")
	}

	if _, err := svc.ActivateBatch(ctx, 9999); !errors.Is(err, ErrLicenseBatchNotFound) {
		t.Fatalf("expected ErrLicenseBatchNotFound, got %v", err)
	}
}

func TestReserveUnitFIFO(t *testing.T) {
	svc, repo := newLicenseService(t)
	ctx := context.Background()

	older := seedBatch(t, repo, "t1", 1, 0, true, time.Now().Add(-48*time.Hour))
	newer := seedBatch(t, repo, "t1", 5, 0, true, time.Now())

	handle, err := svc.ReserveUnit(ctx, "t1")
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if handle.BatchID != older.ID {
		t.Fatalf("expected oldest batch %d consumed first, got %d", older.ID, handle.BatchID)
	}

	// 最老的批次已满，下一次应落到较新的批次
	handle2, err := svc.ReserveUnit(ctx, "t1")
	if err != nil {
		t.Fatalf("second reserve failed: %v", err)
	}
	if handle2.BatchID != newer.ID {
		t.Fatalf("expected batch %d, got %d", newer.ID, handle2.BatchID)
	}
}

func TestReserveUnitSkipsUnassignedAndExhausted(t *testing.T) {
	svc, repo := newLicenseService(t)
	ctx := context.Background()

	seedBatch(t, repo, "t1", 5, 0, false, time.Now().Add(-time.Hour)) // 未激活
	seedBatch(t, repo, "t1", 3, 3, true, time.Now().Add(-time.Hour))  // 已耗尽
	usable := seedBatch(t, repo, "t1", 2, 1, true, time.Now())

	handle, err := svc.ReserveUnit(ctx, "t1")
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if handle.BatchID != usable.ID {
		t.Fatalf("expected batch %d, got %d", usable.ID, handle.BatchID)
	}
}

func TestReserveUnitNoCapacity(t *testing.T) {
	svc, repo := newLicenseService(t)
	ctx := context.Background()

	if _, err := svc.ReserveUnit(ctx, "t1"); !errors.Is(err, ErrNoLicenseCapacity) {
		t.Fatalf("expected ErrNoLicenseCapacity for empty ledger, got %v", err)
	}

	seedBatch(t, repo, "t1", 2, 2, true, time.Now())
	if _, err := svc.ReserveUnit(ctx, "t1"); !errors.Is(err, ErrNoLicenseCapacity) {
		t.Fatalf("expected ErrNoLicenseCapacity for exhausted ledger, got %v", err)
	}
}

func TestReserveUnitConcurrentNeverOversells(t *testing.T) {
	svc, repo := newLicenseService(t)
	ctx := context.Background()

	const capacity = 5
	const workers = 20
	batch := seedBatch(t, repo, "t1", capacity, 0, true, time.Now())

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ReserveUnit(ctx, "t1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrNoLicenseCapacity):
		default:
			t.Fatalf("unexpected reserve error: %v", err)
		}
	}
	if succeeded != capacity {
		t.Fatalf("expected exactly %d successful reservations, got %d", capacity, succeeded)
	}

	stored, err := repo.GetByID(batch.ID)
	if err != nil {
		t.Fatalf("get batch failed: %v", err)
	}
	if stored.UsedUnits != capacity {
		t.Fatalf("used_units = %d, want %d", stored.UsedUnits, capacity)
	}
}

func TestReleaseUnitSingleUse(t *testing.T) {
	svc, repo := newLicenseService(t)
	ctx := context.Background()

	batch := seedBatch(t, repo, "t1", 3, 0, true, time.Now())

	handle, err := svc.ReserveUnit(ctx, "t1")
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	if err := svc.ReleaseUnit(ctx, handle); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	stored, _ := repo.GetByID(batch.ID)
	if stored.UsedUnits != 0 {
		t.Fatalf("used_units = %d after release, want 0", stored.UsedUnits)
	}

	// 重复释放同一凭据必须拒绝，否则会放大额度
	if err := svc.ReleaseUnit(ctx, handle); !errors.Is(err, ErrLicenseHandleReleased) {
		t.Fatalf("expected ErrLicenseHandleReleased, got %v", err)
	}
	stored, _ = repo.GetByID(batch.ID)
	if stored.UsedUnits != 0 {
		t.Fatalf("used_units = %d after duplicate release, want 0", stored.UsedUnits)
	}

	if err := svc.ReleaseUnit(ctx, nil); !errors.Is(err, ErrLicenseHandleReleased) {
		t.Fatalf("expected ErrLicenseHandleReleased for nil handle, got %v", err)
	}
}

func TestReleaseUnitClampsAtZero(t *testing.T) {
	_, repo := newLicenseService(t)

	batch := seedBatch(t, repo, "t1", 3, 0, true, time.Now())

	affected, err := repo.ReleaseUnit(batch.ID)
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("release on zero used_units should not match, affected = %d", affected)
	}
}

func TestRemaining(t *testing.T) {
	svc, repo := newLicenseService(t)
	ctx := context.Background()

	seedBatch(t, repo, "t1", 5, 2, true, time.Now())
	seedBatch(t, repo, "t1", 3, 0, true, time.Now())
	seedBatch(t, repo, "t1", 10, 0, false, time.Now()) // 未激活不计入
	seedBatch(t, repo, "t2", 7, 0, true, time.Now())   // 其它租户

	remaining, err := svc.Remaining(ctx, "t1")
	if err != nil {
		t.Fatalf("remaining failed: %v", err)
	}
	if remaining != 6 {
		t.Fatalf("remaining = %d, want 6", remaining)
	}
}
