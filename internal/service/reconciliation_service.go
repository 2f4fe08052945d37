package service

import (
	"context"
	"strings"
	"time"

	"github.com/sensevend-next/internal/constants"
	"github.com/sensevend-next/internal/logger"
	"github.com/sensevend-next/internal/models"
	"github.com/sensevend-next/internal/repository"
)

// ReconciliationService 对账记录服务
type ReconciliationService struct {
	reconciliationRepo repository.ReconciliationRepository
}

// NewReconciliationService 创建对账记录服务
func NewReconciliationService(reconciliationRepo repository.ReconciliationRepository) *ReconciliationService {
	return &ReconciliationService{
		reconciliationRepo: reconciliationRepo,
	}
}

// ReconciliationInput 对账记录输入
type ReconciliationInput struct {
	TenantID       string
	RemoteDeviceID string
	LicenseBatchID uint
	DeviceName     string
	Reason         string
	Detail         string
	OccurredAt     time.Time
}

// RecordPending 写入待处理对账记录
// 同一远程设备的待处理记录只保留一条，重复投递返回
// ErrReconciliationExists。
func (s *ReconciliationService) RecordPending(ctx context.Context, input ReconciliationInput) (*models.ReconciliationRecord, error) {
	_ = ctx
	remoteDeviceID := strings.TrimSpace(input.RemoteDeviceID)
	if remoteDeviceID == "" {
		return nil, ErrReconciliationNotFound
	}
	existing, err := s.reconciliationRepo.GetPendingByRemoteID(remoteDeviceID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, ErrReconciliationExists
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = constants.ReconciliationReasonDevicePersistFailed
	}
	record := &models.ReconciliationRecord{
		TenantID:       strings.TrimSpace(input.TenantID),
		RemoteDeviceID: remoteDeviceID,
		LicenseBatchID: input.LicenseBatchID,
		DeviceName:     strings.TrimSpace(input.DeviceName),
		Reason:         reason,
		Status:         constants.ReconciliationStatusPending,
		OccurredAt:     occurredAt,
	}
	if detail := strings.TrimSpace(input.Detail); detail != "" {
		record.Detail = models.JSON{"error": detail}
	}
	if err := s.reconciliationRepo.Create(record); err != nil {
		return nil, err
	}
	logger.Warnw("reconciliation_recorded",
		"record_id", record.ID,
		"tenant_id", record.TenantID,
		"remote_device_id", record.RemoteDeviceID,
		"license_batch_id", record.LicenseBatchID,
		"reason", record.Reason,
	)
	return record, nil
}

// Resolve 标记对账记录为已处理
func (s *ReconciliationService) Resolve(ctx context.Context, recordID uint) (*models.ReconciliationRecord, error) {
	_ = ctx
	record, err := s.reconciliationRepo.GetByID(recordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrReconciliationNotFound
	}
	affected, err := s.reconciliationRepo.Resolve(recordID, time.Now())
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return record, ErrReconciliationResolved
	}
	logger.Infow("reconciliation_resolved", "record_id", recordID, "remote_device_id", record.RemoteDeviceID)
	return s.reconciliationRepo.GetByID(recordID)
}

// List 对账记录列表
func (s *ReconciliationService) List(ctx context.Context, filter repository.ReconciliationListFilter) ([]models.ReconciliationRecord, int64, error) {
	_ = ctx
	return s.reconciliationRepo.List(filter)
}
