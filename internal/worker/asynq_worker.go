package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/sensevend-next/internal/logger"
	"github.com/sensevend-next/internal/provider"
	"github.com/sensevend-next/internal/queue"
	"github.com/sensevend-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskProvisionReconcile, c.handleProvisionReconcile)
}

func (c *Consumer) handleProvisionReconcile(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_provision_reconcile_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ProvisionReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_provision_reconcile_unmarshal_failed", "error", err)
		return err
	}
	if strings.TrimSpace(payload.RemoteDeviceID) == "" {
		logger.Debugw("worker_provision_reconcile_skip_invalid_payload", "tenant_id", payload.TenantID)
		return nil
	}
	if c.ReconciliationService == nil {
		logger.Warnw("worker_provision_reconcile_skip_service_nil", "remote_device_id", payload.RemoteDeviceID)
		return nil
	}
	input := service.ReconciliationInput{
		TenantID:       payload.TenantID,
		RemoteDeviceID: payload.RemoteDeviceID,
		LicenseBatchID: payload.LicenseBatchID,
		DeviceName:     payload.DeviceName,
		Reason:         payload.Reason,
		Detail:         payload.Detail,
		OccurredAt:     payload.OccurredAt,
	}
	if _, err := c.ReconciliationService.RecordPending(ctx, input); err != nil {
		if errors.Is(err, service.ErrReconciliationExists) {
			logger.Debugw("worker_provision_reconcile_skip_exists", "remote_device_id", payload.RemoteDeviceID)
			return nil
		}
		logger.Warnw("worker_provision_reconcile_record_failed",
			"tenant_id", payload.TenantID,
			"remote_device_id", payload.RemoteDeviceID,
			"license_batch_id", payload.LicenseBatchID,
			"error", err,
		)
		return err
	}
	return nil
}
