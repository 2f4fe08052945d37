package thingsboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sensevend-next/internal/platform"

	"github.com/go-resty/resty/v2"
)

var (
	ErrConfigInvalid   = errors.New("thingsboard config invalid")
	ErrAuthFailed      = errors.New("thingsboard auth failed")
	ErrRequestFailed   = errors.New("thingsboard request failed")
	ErrResponseInvalid = errors.New("thingsboard response invalid")
)

const (
	defaultTimeout      = 10 * time.Second
	defaultTokenTTL     = 50 * time.Minute
	credentialMQTTBasic = "MQTT_BASIC"
	authHeader          = "X-Authorization"
)

// Config ThingsBoard 客户端配置
type Config struct {
	BaseURL         string // 平台地址
	Username        string // API 账号
	Password        string // API 密码
	DeviceProfileID string // 创建设备使用的设备档案 ID
	Timeout         time.Duration
	TokenTTL        time.Duration
}

func (c *Config) normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.Username = strings.TrimSpace(c.Username)
	c.DeviceProfileID = strings.TrimSpace(c.DeviceProfileID)
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = defaultTokenTTL
	}
}

// ValidateConfig 校验客户端配置
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return fmt.Errorf("%w: base_url is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.Password) == "" {
		return fmt.Errorf("%w: password is required", ErrConfigInvalid)
	}
	return nil
}

// Client ThingsBoard 平台客户端
// 实现 platform.Gateway 能力接口；登录令牌由 tokenSource 统一
// 维护，所有请求不会各自重新登录。
type Client struct {
	cfg    Config
	http   *resty.Client
	tokens *tokenSource
}

// New 创建 ThingsBoard 客户端
func New(cfg Config) *Client {
	cfg.normalize()
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	c := &Client{
		cfg:  cfg,
		http: httpClient,
	}
	c.tokens = newTokenSource(cfg, c.login)
	return c
}

type entityID struct {
	ID         string `json:"id"`
	EntityType string `json:"entityType"`
}

type deviceWithCredentialsRequest struct {
	Device struct {
		Name            string    `json:"name"`
		Label           string    `json:"label"`
		DeviceProfileID *entityID `json:"deviceProfileId,omitempty"`
	} `json:"device"`
	Credentials struct {
		CredentialsType  string `json:"credentialsType"`
		CredentialsValue string `json:"credentialsValue"`
	} `json:"credentials"`
}

type deviceResponse struct {
	ID          entityID `json:"id"`
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Type        string   `json:"type"`
	CreatedTime int64    `json:"createdTime"`
}

type deviceInfoPage struct {
	Data []struct {
		ID          entityID `json:"id"`
		Name        string   `json:"name"`
		Label       string   `json:"label"`
		Type        string   `json:"type"`
		Active      bool     `json:"active"`
		CreatedTime int64    `json:"createdTime"`
	} `json:"data"`
	TotalElements int64 `json:"totalElements"`
	HasNext       bool  `json:"hasNext"`
}

type credentialsBody struct {
	ID struct {
		ID string `json:"id"`
	} `json:"id"`
	DeviceID         entityID `json:"deviceId"`
	CredentialsType  string   `json:"credentialsType"`
	CredentialsID    string   `json:"credentialsId"`
	CredentialsValue string   `json:"credentialsValue"`
}

// CreateDevice 在远程平台创建设备（携带 MQTT 基础认证凭证）
func (c *Client) CreateDevice(ctx context.Context, name string, cred platform.CredentialInput) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: device name is empty", ErrRequestFailed)
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	body := deviceWithCredentialsRequest{}
	body.Device.Name = name
	if c.cfg.DeviceProfileID != "" {
		body.Device.DeviceProfileID = &entityID{ID: c.cfg.DeviceProfileID, EntityType: "DEVICE_PROFILE"}
	}
	body.Credentials.CredentialsType = credentialMQTTBasic
	body.Credentials.CredentialsValue = encodeMQTTBasic(cred)

	var result deviceResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(authHeader, "Bearer "+token).
		SetBody(body).
		SetResult(&result).
		Post("/api/device-with-credentials")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if resp.IsError() {
		c.tokens.invalidateOnUnauthorized(resp.StatusCode())
		return "", fmt.Errorf("%w: status=%d body=%s", ErrRequestFailed, resp.StatusCode(), truncateBody(resp.String()))
	}
	if strings.TrimSpace(result.ID.ID) == "" {
		return "", fmt.Errorf("%w: device id missing", ErrResponseInvalid)
	}
	return result.ID.ID, nil
}

// AssignDevice 将远程设备分配给租户
func (c *Client) AssignDevice(ctx context.Context, remoteDeviceID, tenantID string) error {
	if strings.TrimSpace(remoteDeviceID) == "" || strings.TrimSpace(tenantID) == "" {
		return fmt.Errorf("%w: device or tenant id is empty", ErrRequestFailed)
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(authHeader, "Bearer "+token).
		Post(fmt.Sprintf("/api/customer/%s/device/%s", tenantID, remoteDeviceID))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if resp.IsError() {
		c.tokens.invalidateOnUnauthorized(resp.StatusCode())
		return fmt.Errorf("%w: status=%d body=%s", ErrRequestFailed, resp.StatusCode(), truncateBody(resp.String()))
	}
	return nil
}

// FetchDevices 获取租户的设备列表
func (c *Client) FetchDevices(ctx context.Context, tenantID string) ([]platform.DeviceInfo, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, fmt.Errorf("%w: tenant id is empty", ErrRequestFailed)
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var page deviceInfoPage
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(authHeader, "Bearer "+token).
		SetQueryParams(map[string]string{
			"pageSize": "1000",
			"page":     "0",
		}).
		SetResult(&page).
		Get(fmt.Sprintf("/api/customer/%s/deviceInfos", tenantID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if resp.IsError() {
		c.tokens.invalidateOnUnauthorized(resp.StatusCode())
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrRequestFailed, resp.StatusCode(), truncateBody(resp.String()))
	}

	devices := make([]platform.DeviceInfo, 0, len(page.Data))
	for _, item := range page.Data {
		devices = append(devices, platform.DeviceInfo{
			RemoteID:    item.ID.ID,
			Name:        item.Name,
			Label:       item.Label,
			Type:        item.Type,
			Active:      item.Active,
			CreatedTime: item.CreatedTime,
		})
	}
	return devices, nil
}

// FetchCredentials 获取设备凭证
func (c *Client) FetchCredentials(ctx context.Context, remoteDeviceID string) (*platform.Credentials, error) {
	if strings.TrimSpace(remoteDeviceID) == "" {
		return nil, fmt.Errorf("%w: device id is empty", ErrRequestFailed)
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var body credentialsBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(authHeader, "Bearer "+token).
		SetResult(&body).
		Get(fmt.Sprintf("/api/device/%s/credentials", remoteDeviceID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if resp.IsError() {
		c.tokens.invalidateOnUnauthorized(resp.StatusCode())
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrRequestFailed, resp.StatusCode(), truncateBody(resp.String()))
	}
	return &platform.Credentials{
		ID:              body.ID.ID,
		DeviceID:        body.DeviceID.ID,
		CredentialsType: body.CredentialsType,
		Value:           body.CredentialsValue,
	}, nil
}

// UpdateCredentials 重写设备凭证（管理端）
func (c *Client) UpdateCredentials(ctx context.Context, remoteDeviceID string, cred platform.CredentialInput) error {
	if strings.TrimSpace(remoteDeviceID) == "" {
		return fmt.Errorf("%w: device id is empty", ErrRequestFailed)
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	// 平台要求先带回当前凭证 ID，再整体提交
	current, err := c.FetchCredentials(ctx, remoteDeviceID)
	if err != nil {
		return err
	}

	body := credentialsBody{}
	body.ID.ID = current.ID
	body.DeviceID = entityID{ID: remoteDeviceID, EntityType: "DEVICE"}
	body.CredentialsType = credentialMQTTBasic
	body.CredentialsValue = encodeMQTTBasic(cred)

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(authHeader, "Bearer "+token).
		SetBody(body).
		Post("/api/device/credentials")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if resp.IsError() {
		c.tokens.invalidateOnUnauthorized(resp.StatusCode())
		return fmt.Errorf("%w: status=%d body=%s", ErrRequestFailed, resp.StatusCode(), truncateBody(resp.String()))
	}
	return nil
}

// FetchTenantTitle 获取租户名称
func (c *Client) FetchTenantTitle(ctx context.Context, tenantID string) (string, error) {
	if strings.TrimSpace(tenantID) == "" {
		return "", fmt.Errorf("%w: tenant id is empty", ErrRequestFailed)
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	var body struct {
		Title string `json:"title"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(authHeader, "Bearer "+token).
		SetResult(&body).
		Get(fmt.Sprintf("/api/customer/%s", tenantID))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if resp.IsError() {
		c.tokens.invalidateOnUnauthorized(resp.StatusCode())
		return "", fmt.Errorf("%w: status=%d body=%s", ErrRequestFailed, resp.StatusCode(), truncateBody(resp.String()))
	}
	return body.Title, nil
}

// login 调用平台登录接口换取访问令牌
func (c *Client) login(ctx context.Context) (string, error) {
	var result struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"username": c.cfg.Username,
			"password": c.cfg.Password,
		}).
		SetResult(&result).
		Post("/api/auth/login")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: status=%d body=%s", ErrAuthFailed, resp.StatusCode(), truncateBody(resp.String()))
	}
	if strings.TrimSpace(result.Token) == "" {
		return "", fmt.Errorf("%w: token missing in login response", ErrAuthFailed)
	}
	return result.Token, nil
}

// encodeMQTTBasic 序列化 MQTT 基础认证凭证
func encodeMQTTBasic(cred platform.CredentialInput) string {
	payload, _ := json.Marshal(map[string]string{
		"clientId": cred.ClientID,
		"userName": cred.Username,
		"password": cred.Password,
	})
	return string(payload)
}

func truncateBody(body string) string {
	const maxLen = 512
	body = strings.TrimSpace(body)
	if len(body) > maxLen {
		return body[:maxLen] + "..."
	}
	return body
}
