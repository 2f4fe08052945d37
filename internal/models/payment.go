package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment 授权购买记录表
// 仅作为账目记录，支付处理本身不在本系统范围内。
type Payment struct {
	ID             uint           `gorm:"primarykey" json:"id"`                     // 主键
	TenantID       string         `gorm:"index;not null" json:"tenant_id"`          // 租户ID
	TenantName     string         `gorm:"default:''" json:"tenant_name"`            // 租户名称（远程平台 title 快照）
	LicenseBatchID uint           `gorm:"index;not null" json:"license_batch_id"`   // 对应授权批次ID
	Amount         Money          `gorm:"type:decimal(20,2);not null" json:"amount"` // 金额
	Status         string         `gorm:"index;not null" json:"status"`             // 状态
	ExpiresAt      *time.Time     `gorm:"index" json:"expires_at"`                  // 有效期截止
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                  // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                  // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                           // 软删除时间
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}
