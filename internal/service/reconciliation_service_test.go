package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sensevend-next/internal/constants"
	"github.com/sensevend-next/internal/models"
	"github.com/sensevend-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var reconTestDBSeq int

func newReconciliationService(t *testing.T) *ReconciliationService {
	t.Helper()

	reconTestDBSeq++
	dsn := fmt.Sprintf("file:recon_svc_%d?mode=memory&cache=shared", reconTestDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.ReconciliationRecord{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewReconciliationService(repository.NewReconciliationRepository(db))
}

func TestRecordPendingDeduplicates(t *testing.T) {
	svc := newReconciliationService(t)
	ctx := context.Background()

	input := ReconciliationInput{
		TenantID:       "t1",
		RemoteDeviceID: "remote-1",
		LicenseBatchID: 7,
		DeviceName:     "sensor-01",
		Reason:         constants.ReconciliationReasonDevicePersistFailed,
		Detail:         "insert failed",
		OccurredAt:     time.Now(),
	}
	record, err := svc.RecordPending(ctx, input)
	if err != nil {
		t.Fatalf("record pending failed: %v", err)
	}
	if record.Status != constants.ReconciliationStatusPending {
		t.Fatalf("status = %q, want pending", record.Status)
	}

	// 同一远程设备重复投递不产生第二条待处理记录
	dup, err := svc.RecordPending(ctx, input)
	if !errors.Is(err, ErrReconciliationExists) {
		t.Fatalf("expected ErrReconciliationExists, got %v", err)
	}
	if dup.ID != record.ID {
		t.Fatalf("duplicate should return the existing record, got %d want %d", dup.ID, record.ID)
	}

	records, total, err := svc.List(ctx, repository.ReconciliationListFilter{TenantID: "t1"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(records) != 1 {
		t.Fatalf("expected single record, got total=%d len=%d", total, len(records))
	}
}

func TestResolveReconciliation(t *testing.T) {
	svc := newReconciliationService(t)
	ctx := context.Background()

	record, err := svc.RecordPending(ctx, ReconciliationInput{
		TenantID:       "t1",
		RemoteDeviceID: "remote-1",
		Reason:         constants.ReconciliationReasonRemoteOrphan,
	})
	if err != nil {
		t.Fatalf("record pending failed: %v", err)
	}

	resolved, err := svc.Resolve(ctx, record.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Status != constants.ReconciliationStatusResolved || resolved.ResolvedAt == nil {
		t.Fatalf("unexpected resolved state: %+v", resolved)
	}

	if _, err := svc.Resolve(ctx, record.ID); !errors.Is(err, ErrReconciliationResolved) {
		t.Fatalf("expected ErrReconciliationResolved, got %v", err)
	}
	if _, err := svc.Resolve(ctx, 9999); !errors.Is(err, ErrReconciliationNotFound) {
		t.Fatalf("expected ErrReconciliationNotFound, got %v", err)
	}

	// 已处理后同一远程设备可以再次挂起
	again, err := svc.RecordPending(ctx, ReconciliationInput{
		TenantID:       "t1",
		RemoteDeviceID: "remote-1",
		Reason:         constants.ReconciliationReasonRemoteOrphan,
	})
	if err != nil {
		t.Fatalf("re-record failed: %v", err)
	}
	if again.ID == record.ID {
		t.Fatal("resolved record should not be reused")
	}
}
