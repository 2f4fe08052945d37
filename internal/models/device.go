package models

import (
	"time"

	"gorm.io/gorm"
)

// Device 本地设备记录表
// 每一行都对应一次成功的远程创建+分配，以及一次授权扣减；
// 只由设备开通流程写入，除凭证引用外不做更新。
type Device struct {
	ID             uint           `gorm:"primarykey" json:"id"`                        // 主键
	TenantID       string         `gorm:"index;not null" json:"tenant_id"`             // 租户ID
	Name           string         `gorm:"not null" json:"name"`                        // 设备名称
	RemoteDeviceID string         `gorm:"uniqueIndex;not null" json:"remote_device_id"` // 远程平台设备ID
	LicenseBatchID uint           `gorm:"index;not null" json:"license_batch_id"`      // 扣减的授权批次ID
	CredentialsRef string         `gorm:"default:''" json:"credentials_ref"`           // 凭证引用（远程凭证ID）
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                     // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                     // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                              // 软删除时间（仅管理端下线）
}

// TableName 指定表名
func (Device) TableName() string {
	return "devices"
}
