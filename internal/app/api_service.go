package app

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// 门户接口以短请求为主，读超时收紧，写超时给设备清单
// 的远程补全留出余量。
const (
	apiReadHeaderTimeout = 5 * time.Second
	apiWriteTimeout      = 60 * time.Second
)

// APIService 门户 HTTP 服务封装
type APIService struct {
	name   string
	server *http.Server
}

// NewAPIService 创建门户 HTTP 服务
func NewAPIService(addr string, handler http.Handler) *APIService {
	return &APIService{
		name: "api",
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: apiReadHeaderTimeout,
			WriteTimeout:      apiWriteTimeout,
		},
	}
}

// Name 服务名称
func (s *APIService) Name() string {
	if s == nil || s.name == "" {
		return "api"
	}
	return s.name
}

// Start 启动服务
func (s *APIService) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("api server not initialized")
	}
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 停止服务
func (s *APIService) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
