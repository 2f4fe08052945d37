package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// DefaultLocale 默认语言
	DefaultLocale = "en-US"
	// LocaleZhCN 简体中文
	LocaleZhCN = "zh-CN"
)

// catalogs 文案目录，按语言和键检索
var catalogs = map[string]map[string]string{
	DefaultLocale: {
		"error.bad_request":             "invalid request",
		"error.unauthorized":            "unauthorized",
		"error.forbidden":               "forbidden",
		"error.not_found":               "resource not found",
		"error.internal":                "internal server error",
		"error.too_many_requests":       "too many requests, please retry later",
		"error.auth_header_missing":     "authorization header missing",
		"error.auth_header_invalid":     "authorization header invalid",
		"error.token_invalid":           "token invalid or expired",
		"error.token_revoked":           "token revoked",
		"error.jwt_secret_missing":      "jwt secret not configured",
		"error.login_failed":            "invalid username or password",
		"error.user_disabled":           "account disabled",
		"error.password_min_length":      "password must be at least %d characters",
		"error.password_max_length":      "password must not exceed %d bytes",
		"error.password_require_upper":   "password must contain an uppercase letter",
		"error.password_require_lower":   "password must contain a lowercase letter",
		"error.password_require_number":  "password must contain a digit",
		"error.password_require_special": "password must contain a special character",
		"error.tenant_missing":          "account is not linked to a customer",
		"error.license_no_capacity":     "no license capacity available, purchase or activate more licenses",
		"error.remote_create_failed":    "remote device creation failed, try again later",
		"error.remote_assign_failed":    "remote device assignment failed, try again later",
		"error.license_not_found":       "license batch not found",
		"error.license_units_invalid":   "license units must be positive",
		"error.license_price_invalid":   "license price invalid",
		"error.device_name_invalid":     "device name invalid",
		"error.device_not_found":        "device not found",
		"error.device_exists":           "device already exists",
		"error.provision_failed":        "device provisioning failed",
		"error.platform_unavailable":    "remote platform unavailable",
		"error.credentials_invalid":     "device credentials invalid",
		"error.payment_not_found":       "payment record not found",
		"error.reconciliation_missing":  "reconciliation record not found",
		"error.reconciliation_resolved": "reconciliation record already resolved",
		"error.email_invalid":           "email address invalid",
		"error.email_exists":            "email already registered",
		"error.user_not_found":          "user not found",
		"error.register_failed":         "registration failed",
		"error.password_weak":           "password is too weak",
		"error.user_id_invalid":         "user id invalid",
		"error.user_id_type_invalid":    "user id type invalid",
		"error.admin_id_invalid":        "admin id invalid",
		"error.admin_id_type_invalid":   "admin id type invalid",
		"error.fetch_failed":            "failed to fetch data",
		"error.rate_limit_unavailable":  "rate limiter unavailable",
		"error.login_too_many":          "too many login attempts, retry in %d seconds",
	},
	LocaleZhCN: {
		"error.bad_request":             "请求参数错误",
		"error.unauthorized":            "未登录或登录已过期",
		"error.forbidden":               "没有访问权限",
		"error.not_found":               "资源不存在",
		"error.internal":                "服务器内部错误",
		"error.too_many_requests":       "请求过于频繁，请稍后重试",
		"error.auth_header_missing":     "缺少认证头",
		"error.auth_header_invalid":     "认证头格式错误",
		"error.token_invalid":           "令牌无效或已过期",
		"error.token_revoked":           "令牌已失效",
		"error.jwt_secret_missing":      "JWT 密钥未配置",
		"error.login_failed":            "用户名或密码错误",
		"error.user_disabled":           "账号已被禁用",
		"error.password_min_length":      "密码长度不能少于 %d 位",
		"error.password_max_length":      "密码长度不能超过 %d 字节",
		"error.password_require_upper":   "密码必须包含大写字母",
		"error.password_require_lower":   "密码必须包含小写字母",
		"error.password_require_number":  "密码必须包含数字",
		"error.password_require_special": "密码必须包含特殊字符",
		"error.tenant_missing":          "账号未关联客户",
		"error.license_no_capacity":     "授权额度不足，请购买或激活更多授权",
		"error.remote_create_failed":    "远程设备创建失败，请稍后重试",
		"error.remote_assign_failed":    "远程设备分配失败，请稍后重试",
		"error.license_not_found":       "授权批次不存在",
		"error.license_units_invalid":   "授权数量必须为正数",
		"error.license_price_invalid":   "授权价格无效",
		"error.device_name_invalid":     "设备名称无效",
		"error.device_not_found":        "设备不存在",
		"error.device_exists":           "设备已存在",
		"error.provision_failed":        "设备开通失败",
		"error.platform_unavailable":    "远程平台不可用",
		"error.credentials_invalid":     "设备凭证无效",
		"error.payment_not_found":       "购买记录不存在",
		"error.reconciliation_missing":  "对账记录不存在",
		"error.reconciliation_resolved": "对账记录已处理",
		"error.email_invalid":           "邮箱格式错误",
		"error.email_exists":            "邮箱已被注册",
		"error.user_not_found":          "用户不存在",
		"error.register_failed":         "注册失败",
		"error.password_weak":           "密码强度不足",
		"error.user_id_invalid":         "用户ID无效",
		"error.user_id_type_invalid":    "用户ID类型错误",
		"error.admin_id_invalid":        "管理员ID无效",
		"error.admin_id_type_invalid":   "管理员ID类型错误",
		"error.fetch_failed":            "数据获取失败",
		"error.rate_limit_unavailable":  "限流服务不可用",
		"error.login_too_many":          "登录尝试过于频繁，请 %d 秒后重试",
	},
}

// ResolveLocale 解析请求语言
// 优先使用 lang 查询参数，其次 Accept-Language 头。
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return DefaultLocale
	}
	if lang := normalizeLocale(c.Query("lang")); lang != "" {
		return lang
	}
	if lang := normalizeLocale(c.GetHeader("Accept-Language")); lang != "" {
		return lang
	}
	return DefaultLocale
}

// T 查找指定语言的文案，找不到时回退默认语言，最终回退键本身
func T(locale, key string) string {
	if catalog, ok := catalogs[locale]; ok {
		if msg, ok := catalog[key]; ok {
			return msg
		}
	}
	if msg, ok := catalogs[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 带参数的文案格式化
func Sprintf(locale, key string, args ...interface{}) string {
	template := T(locale, key)
	if len(args) == 0 {
		return template
	}
	return fmt.Sprintf(template, args...)
}

func normalizeLocale(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	// Accept-Language 可能携带权重，只看首个候选
	if idx := strings.IndexAny(raw, ",;"); idx >= 0 {
		raw = raw[:idx]
	}
	lowered := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(lowered, "zh"):
		return LocaleZhCN
	case strings.HasPrefix(lowered, "en"):
		return DefaultLocale
	default:
		return ""
	}
}
