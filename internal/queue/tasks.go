package queue

import (
	"encoding/json"
	"time"

	"github.com/sensevend-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskProvisionReconcile 设备开通对账任务
	TaskProvisionReconcile = constants.TaskProvisionReconcile
)

// ProvisionReconcilePayload 设备开通对账任务载荷
// 远程平台已创建设备但本地落库失败时投递，由 worker
// 记录待处理的对账条目。
type ProvisionReconcilePayload struct {
	TenantID       string    `json:"tenant_id"`
	RemoteDeviceID string    `json:"remote_device_id"`
	LicenseBatchID uint      `json:"license_batch_id"`
	DeviceName     string    `json:"device_name"`
	Reason         string    `json:"reason"`
	Detail         string    `json:"detail"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewProvisionReconcileTask 创建设备开通对账任务
func NewProvisionReconcileTask(payload ProvisionReconcilePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProvisionReconcile, body), nil
}
