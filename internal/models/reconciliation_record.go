package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSON 类型定义，用于存储结构化明细
type JSON map[string]interface{}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// ReconciliationRecord 对账记录表
// 设备开通流程出现"远程副作用已发生但本地落库失败"等不可回滚
// 的不一致时写入，供运维人员人工核对；对终端用户不可见。
type ReconciliationRecord struct {
	ID             uint       `gorm:"primarykey" json:"id"`                    // 主键
	TenantID       string     `gorm:"index;not null" json:"tenant_id"`         // 租户ID
	RemoteDeviceID string     `gorm:"index" json:"remote_device_id"`           // 远程平台设备ID（如已创建）
	LicenseBatchID uint       `gorm:"index" json:"license_batch_id"`           // 已扣减的授权批次ID
	DeviceName     string     `gorm:"default:''" json:"device_name"`           // 设备名称
	Reason         string     `gorm:"index;not null" json:"reason"`            // 不一致原因
	Detail         JSON       `gorm:"type:json" json:"detail"`                 // 明细
	Status         string     `gorm:"index;not null" json:"status"`            // 处理状态
	OccurredAt     time.Time  `gorm:"index;not null" json:"occurred_at"`       // 发生时间
	ResolvedAt     *time.Time `json:"resolved_at"`                             // 处理时间
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`                 // 创建时间
	UpdatedAt      time.Time  `gorm:"index" json:"updated_at"`                 // 更新时间
}

// TableName 指定表名
func (ReconciliationRecord) TableName() string {
	return "reconciliation_records"
}
