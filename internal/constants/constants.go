package constants

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 支付状态常量（授权批次购买记录）
const (
	PaymentStatusRecorded = "recorded"
	PaymentStatusExpired  = "expired"
)

// 对账记录状态常量
const (
	ReconciliationStatusPending  = "pending"
	ReconciliationStatusResolved = "resolved"
)

// 对账原因常量
const (
	ReconciliationReasonDevicePersistFailed = "device_persist_failed"
	ReconciliationReasonRemoteOrphan        = "remote_device_orphaned"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型常量
const (
	TaskProvisionReconcile = "provision:reconcile"
)

// 远程平台凭证类型常量
const (
	PlatformCredentialsMQTTBasic = "MQTT_BASIC"
)

// 设备清单并发补全上限
const (
	DeviceEnrichConcurrency  = 8
	LicenseEnrichConcurrency = 8
)

// 授权套餐默认有效期（天）
const (
	LicensePaymentExpiryDaysDefault = 365
)
