package platform

import (
	"context"
	"encoding/json"
)

// CredentialInput 设备接入凭证输入（MQTT 基础认证）
type CredentialInput struct {
	ClientID string `json:"client_id"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Credentials 远程平台返回的设备凭证
type Credentials struct {
	ID              string `json:"id"`
	DeviceID        string `json:"device_id"`
	CredentialsType string `json:"credentials_type"`
	Value           string `json:"value"`
}

// DeviceInfo 远程平台设备描述
type DeviceInfo struct {
	RemoteID    string       `json:"remote_id"`
	Name        string       `json:"name"`
	Label       string       `json:"label"`
	Type        string       `json:"type"`
	Active      bool         `json:"active"`
	CreatedTime int64        `json:"created_time"`
	Credentials *Credentials `json:"credentials,omitempty"`
}

// MQTTUsernameFromValue 从 MQTT 基础认证凭证串中解出账号
// 凭证串不是合法 JSON 时返回空。
func MQTTUsernameFromValue(value string) string {
	var parsed struct {
		UserName string `json:"userName"`
	}
	if err := json.Unmarshal([]byte(value), &parsed); err != nil {
		return ""
	}
	return parsed.UserName
}

// Gateway 远程设备管理平台能力接口
// 本系统消费远程平台的方式被收敛为这组能力；
// 所有调用都应携带有界超时的 context。
type Gateway interface {
	// CreateDevice 在远程平台创建设备并返回远程设备 ID
	CreateDevice(ctx context.Context, name string, cred CredentialInput) (string, error)
	// AssignDevice 将远程设备分配给租户
	AssignDevice(ctx context.Context, remoteDeviceID, tenantID string) error
	// FetchDevices 获取租户在远程平台上的设备列表
	FetchDevices(ctx context.Context, tenantID string) ([]DeviceInfo, error)
	// FetchCredentials 获取设备凭证
	FetchCredentials(ctx context.Context, remoteDeviceID string) (*Credentials, error)
	// UpdateCredentials 重写设备凭证
	UpdateCredentials(ctx context.Context, remoteDeviceID string, cred CredentialInput) error
	// FetchTenantTitle 获取租户在远程平台上的名称
	FetchTenantTitle(ctx context.Context, tenantID string) (string, error)
}
