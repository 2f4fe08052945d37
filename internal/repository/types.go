package repository

import "time"

// LicenseBatchListFilter 查询授权批次列表的过滤条件
type LicenseBatchListFilter struct {
	Page          int
	PageSize      int
	TenantID      string
	PackageName   string
	AssignedOnly  bool
	PurchasedFrom *time.Time
	PurchasedTo   *time.Time
}

// DeviceListFilter 查询设备列表的过滤条件
type DeviceListFilter struct {
	Page        int
	PageSize    int
	TenantID    string
	Name        string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PaymentListFilter 查询授权购买记录列表的过滤条件
type PaymentListFilter struct {
	Page        int
	PageSize    int
	TenantID    string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ReconciliationListFilter 查询对账记录列表的过滤条件
type ReconciliationListFilter struct {
	Page     int
	PageSize int
	TenantID string
	Reason   string
	Status   string
}

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page     int
	PageSize int
	Keyword  string
	Status   string
	TenantID string
}
