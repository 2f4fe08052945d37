package admin

import "github.com/sensevend-next/internal/provider"

// Handler 供应商门户管理端接口处理器
// 覆盖授权发放、租户设备运维、对账处理与权限管理。
type Handler struct {
	*provider.Container
}

// New 创建管理端处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
