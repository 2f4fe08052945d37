package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sensevend-next/internal/models"
	"github.com/sensevend-next/internal/platform"
	"github.com/sensevend-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// listingGateway 固定设备清单的替身
type listingGateway struct {
	fakeGateway
	devices []platform.DeviceInfo
	listErr error
}

func (g *listingGateway) FetchDevices(_ context.Context, _ string) ([]platform.DeviceInfo, error) {
	if g.listErr != nil {
		return nil, g.listErr
	}
	return g.devices, nil
}

var deviceQueryTestDBSeq int

func newDeviceQueryFixture(t *testing.T) (*DeviceQueryService, repository.DeviceRepository, *listingGateway) {
	t.Helper()

	deviceQueryTestDBSeq++
	dsn := fmt.Sprintf("file:device_query_%d?mode=memory&cache=shared", deviceQueryTestDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Device{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	deviceRepo := repository.NewDeviceRepository(db)
	gateway := &listingGateway{fakeGateway: *newFakeGateway()}
	return NewDeviceQueryService(deviceRepo, gateway), deviceRepo, gateway
}

func TestListTenantDevicesMergesLocalRows(t *testing.T) {
	svc, deviceRepo, gateway := newDeviceQueryFixture(t)
	ctx := context.Background()

	gateway.devices = []platform.DeviceInfo{
		{RemoteID: "remote-1", Name: "sensor-01", Active: true},
		{RemoteID: "remote-2", Name: "sensor-02"},
	}
	local := &models.Device{TenantID: "t1", Name: "sensor-01", RemoteDeviceID: "remote-1", LicenseBatchID: 9}
	if err := deviceRepo.Create(local); err != nil {
		t.Fatalf("create local device failed: %v", err)
	}

	views, err := svc.ListTenantDevices(ctx, "t1", false)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("view count = %d, want 2", len(views))
	}
	byRemote := map[string]DeviceView{}
	for _, v := range views {
		byRemote[v.RemoteDeviceID] = v
	}
	tracked := byRemote["remote-1"]
	if !tracked.Tracked || tracked.LicenseBatchID != 9 || tracked.LocalDeviceID != local.ID {
		t.Fatalf("unexpected tracked view: %+v", tracked)
	}
	if byRemote["remote-2"].Tracked {
		t.Fatal("remote-2 has no local row and must not be tracked")
	}
}

func TestListTenantDevicesWithCredentials(t *testing.T) {
	svc, _, gateway := newDeviceQueryFixture(t)
	ctx := context.Background()

	gateway.devices = []platform.DeviceInfo{
		{RemoteID: "remote-1", Name: "sensor-01"},
		{RemoteID: "remote-2", Name: "sensor-02"},
	}

	views, err := svc.ListTenantDevices(ctx, "t1", true)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, v := range views {
		if v.MQTTUsername != "u" {
			t.Fatalf("mqtt_username = %q, want u", v.MQTTUsername)
		}
	}
}

func TestListTenantDevicesPlatformDown(t *testing.T) {
	svc, _, gateway := newDeviceQueryFixture(t)
	gateway.listErr = errors.New("down")

	if _, err := svc.ListTenantDevices(context.Background(), "t1", false); !errors.Is(err, ErrPlatformUnavailable) {
		t.Fatalf("expected ErrPlatformUnavailable, got %v", err)
	}
}

func TestGetDeviceCredentialsChecksOwnership(t *testing.T) {
	svc, deviceRepo, _ := newDeviceQueryFixture(t)
	ctx := context.Background()

	if err := deviceRepo.Create(&models.Device{TenantID: "t1", Name: "sensor-01", RemoteDeviceID: "remote-1", LicenseBatchID: 1}); err != nil {
		t.Fatalf("create device failed: %v", err)
	}

	cred, err := svc.GetDeviceCredentials(ctx, "t1", "remote-1")
	if err != nil {
		t.Fatalf("get credentials failed: %v", err)
	}
	if cred.ID != "cred-1" {
		t.Fatalf("credentials id = %q, want cred-1", cred.ID)
	}

	// 跨租户读取必须拒绝
	if _, err := svc.GetDeviceCredentials(ctx, "t2", "remote-1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
	if _, err := svc.GetDeviceCredentials(ctx, "t1", "remote-x"); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestUpdateDeviceCredentialsValidation(t *testing.T) {
	svc, deviceRepo, _ := newDeviceQueryFixture(t)
	ctx := context.Background()

	if err := deviceRepo.Create(&models.Device{TenantID: "t1", Name: "sensor-01", RemoteDeviceID: "remote-1", LicenseBatchID: 1}); err != nil {
		t.Fatalf("create device failed: %v", err)
	}

	err := svc.UpdateDeviceCredentials(ctx, "t1", "remote-1", platform.CredentialInput{Username: "", Password: ""})
	if !errors.Is(err, ErrCredentialsInvalid) {
		t.Fatalf("expected ErrCredentialsInvalid, got %v", err)
	}

	if err := svc.UpdateDeviceCredentials(ctx, "t1", "remote-1", platform.CredentialInput{Username: "new", Password: "pass"}); err != nil {
		t.Fatalf("update credentials failed: %v", err)
	}
	device, err := deviceRepo.GetByRemoteID("remote-1")
	if err != nil {
		t.Fatalf("get device failed: %v", err)
	}
	if device.CredentialsRef != "cred-1" {
		t.Fatalf("credentials_ref = %q, want refreshed", device.CredentialsRef)
	}
}
