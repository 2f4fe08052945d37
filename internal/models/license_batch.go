package models

import (
	"time"
)

// LicenseBatch 授权批次表
// 不变量：0 <= used_units <= total_units；批次只有在 is_assigned = true
// 且 used_units < total_units 时才可被扣减。批次永不删除（历史凭证）。
// used_units 只允许通过仓库层的条件更新修改。
type LicenseBatch struct {
	ID          uint      `gorm:"primarykey" json:"id"`                       // 主键
	TenantID    string    `gorm:"index;not null" json:"tenant_id"`            // 租户ID
	PackageName string    `gorm:"not null" json:"package_name"`               // 套餐名称
	TotalUnits  int       `gorm:"not null" json:"total_units"`                // 授权总量
	UsedUnits   int       `gorm:"not null;default:0" json:"used_units"`       // 已用数量
	Price       Money     `gorm:"type:decimal(20,2);not null" json:"price"`   // 套餐价格
	IsAssigned  bool      `gorm:"not null;default:false" json:"is_assigned"`  // 是否已激活（激活后方可消费）
	PurchasedAt time.Time `gorm:"index;not null" json:"purchased_at"`         // 购买时间（FIFO 消费顺序依据）
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                    // 创建时间
	UpdatedAt   time.Time `gorm:"index" json:"updated_at"`                    // 更新时间
}

// TableName 指定表名
func (LicenseBatch) TableName() string {
	return "license_batches"
}

// RemainingUnits 剩余可用授权数
func (b *LicenseBatch) RemainingUnits() int {
	if b == nil {
		return 0
	}
	remaining := b.TotalUnits - b.UsedUnits
	if remaining < 0 {
		return 0
	}
	return remaining
}
