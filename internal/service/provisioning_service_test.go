package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sensevend-next/internal/constants"
	"github.com/sensevend-next/internal/models"
	"github.com/sensevend-next/internal/platform"
	"github.com/sensevend-next/internal/queue"
	"github.com/sensevend-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// fakeGateway 可编程的远程平台替身
type fakeGateway struct {
	createErr     error
	assignErr     error
	fetchCredErr  error
	nextRemoteID  string
	created       []string
	assigned      map[string]string
	credentialsID string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		nextRemoteID:  "remote-1",
		assigned:      make(map[string]string),
		credentialsID: "cred-1",
	}
}

func (g *fakeGateway) CreateDevice(_ context.Context, name string, _ platform.CredentialInput) (string, error) {
	if g.createErr != nil {
		return "", g.createErr
	}
	g.created = append(g.created, name)
	return g.nextRemoteID, nil
}

func (g *fakeGateway) AssignDevice(_ context.Context, remoteDeviceID, tenantID string) error {
	if g.assignErr != nil {
		return g.assignErr
	}
	g.assigned[remoteDeviceID] = tenantID
	return nil
}

func (g *fakeGateway) FetchDevices(_ context.Context, _ string) ([]platform.DeviceInfo, error) {
	return nil, nil
}

func (g *fakeGateway) FetchCredentials(_ context.Context, remoteDeviceID string) (*platform.Credentials, error) {
	if g.fetchCredErr != nil {
		return nil, g.fetchCredErr
	}
	return &platform.Credentials{
		ID:              g.credentialsID,
		DeviceID:        remoteDeviceID,
		CredentialsType: constants.PlatformCredentialsMQTTBasic,
		Value:           `{"clientId":"","userName":"u","password":"p"}`,
	}, nil
}

func (g *fakeGateway) UpdateCredentials(_ context.Context, _ string, _ platform.CredentialInput) error {
	return nil
}

func (g *fakeGateway) FetchTenantTitle(_ context.Context, _ string) (string, error) {
	return "Tenant", nil
}

type provisioningFixture struct {
	svc            *ProvisioningService
	licenseService *LicenseService
	licenseRepo    repository.LicenseBatchRepository
	deviceRepo     repository.DeviceRepository
	reconRepo      repository.ReconciliationRepository
	gateway        *fakeGateway
}

var provisionTestDBSeq int

func newProvisioningFixture(t *testing.T) *provisioningFixture {
	t.Helper()

	provisionTestDBSeq++
	dsn := fmt.Sprintf("file:provision_svc_%d?mode=memory&cache=shared", provisionTestDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.LicenseBatch{}, &models.Device{}, &models.ReconciliationRecord{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	licenseRepo := repository.NewLicenseBatchRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	reconRepo := repository.NewReconciliationRepository(db)
	licenseService := NewLicenseService(licenseRepo)
	reconService := NewReconciliationService(reconRepo)
	gateway := newFakeGateway()

	queueClient, err := queue.NewClient(nil) // 测试里队列关闭，对账直接落库
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}

	return &provisioningFixture{
		svc:            NewProvisioningService(licenseService, reconService, deviceRepo, gateway, queueClient),
		licenseService: licenseService,
		licenseRepo:    licenseRepo,
		deviceRepo:     deviceRepo,
		reconRepo:      reconRepo,
		gateway:        gateway,
	}
}

func (f *provisioningFixture) seedCapacity(t *testing.T, tenantID string, units int) *models.LicenseBatch {
	t.Helper()
	batch := &models.LicenseBatch{
		TenantID:    tenantID,
		PackageName: "basic",
		TotalUnits:  units,
		Price:       models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		IsAssigned:  true,
		PurchasedAt: time.Now(),
	}
	if err := f.licenseRepo.Create(batch); err != nil {
		t.Fatalf("seed batch failed: %v", err)
	}
	return batch
}

func (f *provisioningFixture) usedUnits(t *testing.T, batchID uint) int {
	t.Helper()
	batch, err := f.licenseRepo.GetByID(batchID)
	if err != nil {
		t.Fatalf("get batch failed: %v", err)
	}
	return batch.UsedUnits
}

func TestProvisionDeviceSuccess(t *testing.T) {
	f := newProvisioningFixture(t)
	ctx := context.Background()
	batch := f.seedCapacity(t, "t1", 3)

	result, err := f.svc.ProvisionDevice(ctx, ProvisionInput{TenantID: "t1", DeviceName: "sensor-01"})
	if err != nil {
		t.Fatalf("provision failed: %v", err)
	}
	if result.Device == nil || result.Device.RemoteDeviceID != "remote-1" {
		t.Fatalf("unexpected device: %+v", result.Device)
	}
	if result.Device.LicenseBatchID != batch.ID {
		t.Fatalf("device bound to batch %d, want %d", result.Device.LicenseBatchID, batch.ID)
	}
	if result.Device.CredentialsRef != "cred-1" {
		t.Fatalf("credentials_ref = %q, want cred-1", result.Device.CredentialsRef)
	}
	if result.MQTTUsername == "" || result.MQTTPassword == "" {
		t.Fatal("generated credentials should be returned")
	}
	if got := f.usedUnits(t, batch.ID); got != 1 {
		t.Fatalf("used_units = %d, want 1", got)
	}
	if f.gateway.assigned["remote-1"] != "t1" {
		t.Fatal("device should be assigned to tenant on the platform")
	}
}

func TestProvisionDeviceValidation(t *testing.T) {
	f := newProvisioningFixture(t)
	ctx := context.Background()

	if _, err := f.svc.ProvisionDevice(ctx, ProvisionInput{TenantID: "", DeviceName: "x"}); !errors.Is(err, ErrTenantMissing) {
		t.Fatalf("expected ErrTenantMissing, got %v", err)
	}
	if _, err := f.svc.ProvisionDevice(ctx, ProvisionInput{TenantID: "t1", DeviceName: "  "}); !errors.Is(err, ErrDeviceNameInvalid) {
		t.Fatalf("expected ErrDeviceNameInvalid, got %v", err)
	}
}

func TestProvisionDeviceNoCapacity(t *testing.T) {
	f := newProvisioningFixture(t)
	ctx := context.Background()

	if _, err := f.svc.ProvisionDevice(ctx, ProvisionInput{TenantID: "t1", DeviceName: "sensor-01"}); !errors.Is(err, ErrNoLicenseCapacity) {
		t.Fatalf("expected ErrNoLicenseCapacity, got %v", err)
	}
	if len(f.gateway.created) != 0 {
		t.Fatal("no remote device should be created without capacity")
	}
}

func TestProvisionDeviceRemoteCreateFailureReleasesUnit(t *testing.T) {
	f := newProvisioningFixture(t)
	ctx := context.Background()
	batch := f.seedCapacity(t, "t1", 1)
	f.gateway.createErr = errors.New("boom")

	_, err := f.svc.ProvisionDevice(ctx, ProvisionInput{TenantID: "t1", DeviceName: "sensor-01"})
	if !errors.Is(err, ErrRemoteCreateFailed) {
		t.Fatalf("expected ErrRemoteCreateFailed, got %v", err)
	}
	if got := f.usedUnits(t, batch.ID); got != 0 {
		t.Fatalf("used_units = %d after compensation, want 0", got)
	}

	// 释放后额度可以再次使用
	f.gateway.createErr = nil
	if _, err := f.svc.ProvisionDevice(ctx, ProvisionInput{TenantID: "t1", DeviceName: "sensor-01"}); err != nil {
		t.Fatalf("provision after compensation failed: %v", err)
	}
}

func TestProvisionDeviceAssignFailureReleasesAndRecords(t *testing.T) {
	f := newProvisioningFixture(t)
	ctx := context.Background()
	batch := f.seedCapacity(t, "t1", 1)
	f.gateway.assignErr = errors.New("assign boom")

	_, err := f.svc.ProvisionDevice(ctx, ProvisionInput{TenantID: "t1", DeviceName: "sensor-01"})
	if !errors.Is(err, ErrRemoteAssignFailed) {
		t.Fatalf("expected ErrRemoteAssignFailed, got %v", err)
	}
	if got := f.usedUnits(t, batch.ID); got != 0 {
		t.Fatalf("used_units = %d after compensation, want 0", got)
	}

	record, err := f.reconRepo.GetPendingByRemoteID("remote-1")
	if err != nil {
		t.Fatalf("get reconciliation record failed: %v", err)
	}
	if record == nil {
		t.Fatal("remote orphan should leave a reconciliation record")
	}
	if record.Reason != constants.ReconciliationReasonRemoteOrphan {
		t.Fatalf("reason = %q, want %q", record.Reason, constants.ReconciliationReasonRemoteOrphan)
	}
}

func TestProvisionDevicePersistFailureKeepsUnitAndRecords(t *testing.T) {
	f := newProvisioningFixture(t)
	ctx := context.Background()
	batch := f.seedCapacity(t, "t1", 3)

	// 第一次开通占住 remote-1
	if _, err := f.svc.ProvisionDevice(ctx, ProvisionInput{TenantID: "t1", DeviceName: "sensor-01"}); err != nil {
		t.Fatalf("first provision failed: %v", err)
	}

	// 远程平台返回了重复的设备 ID，本地唯一索引会拒绝落库
	_, err := f.svc.ProvisionDevice(ctx, ProvisionInput{TenantID: "t1", DeviceName: "sensor-02"})
	if !errors.Is(err, ErrProvisionFailed) {
		t.Fatalf("expected ErrProvisionFailed, got %v", err)
	}

	// 远程副作用已发生，授权保持已消费，不做自动回滚
	if got := f.usedUnits(t, batch.ID); got != 2 {
		t.Fatalf("used_units = %d, want 2", got)
	}

	record, err := f.reconRepo.GetPendingByRemoteID("remote-1")
	if err != nil {
		t.Fatalf("get reconciliation record failed: %v", err)
	}
	if record == nil {
		t.Fatal("persist failure should leave a reconciliation record")
	}
	if record.Reason != constants.ReconciliationReasonDevicePersistFailed {
		t.Fatalf("reason = %q, want %q", record.Reason, constants.ReconciliationReasonDevicePersistFailed)
	}
	if record.LicenseBatchID != batch.ID {
		t.Fatalf("record batch = %d, want %d", record.LicenseBatchID, batch.ID)
	}
}

func TestProvisionDeviceCredentialsFetchFailureIsNonFatal(t *testing.T) {
	f := newProvisioningFixture(t)
	ctx := context.Background()
	f.seedCapacity(t, "t1", 1)
	f.gateway.fetchCredErr = errors.New("cred boom")

	result, err := f.svc.ProvisionDevice(ctx, ProvisionInput{TenantID: "t1", DeviceName: "sensor-01"})
	if err != nil {
		t.Fatalf("provision failed: %v", err)
	}
	if result.Device.CredentialsRef != "" {
		t.Fatalf("credentials_ref = %q, want empty", result.Device.CredentialsRef)
	}
}
