package service

import "errors"

// 服务层统一错误定义
var (
	ErrNotFound           = errors.New("资源不存在")
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrInvalidPassword    = errors.New("密码错误")
	ErrWeakPassword       = errors.New("密码强度不足")
	ErrUserDisabled       = errors.New("账号已被禁用")
	ErrUserExists         = errors.New("邮箱已注册")
	ErrInvalidEmail       = errors.New("邮箱格式不正确")
	ErrTenantMissing      = errors.New("账号未关联租户")

	ErrNoLicenseCapacity     = errors.New("无可用授权额度")
	ErrLicenseBatchNotFound  = errors.New("授权批次不存在")
	ErrLicenseUnitsInvalid   = errors.New("授权数量无效")
	ErrLicensePriceInvalid   = errors.New("授权价格无效")
	ErrLicenseHandleReleased = errors.New("授权占用已释放")

	ErrDeviceNameInvalid  = errors.New("设备名称无效")
	ErrDeviceNotFound     = errors.New("设备不存在")
	ErrDeviceExists       = errors.New("设备已存在")
	ErrProvisionFailed    = errors.New("设备开通失败")
	ErrRemoteCreateFailed = errors.New("远程设备创建失败")
	ErrRemoteAssignFailed = errors.New("远程设备分配失败")

	ErrPlatformUnavailable = errors.New("远程平台不可用")
	ErrCredentialsInvalid  = errors.New("设备凭证无效")

	ErrReconciliationExists   = errors.New("对账记录已存在")
	ErrReconciliationNotFound = errors.New("对账记录不存在")
	ErrReconciliationResolved = errors.New("对账记录已处理")
)
