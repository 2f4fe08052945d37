package thingsboard

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// refreshMargin 令牌到期前的提前刷新窗口
const refreshMargin = 2 * time.Minute

// tokenSource 平台访问令牌源
// 进程内共享一份令牌，过期前统一重新登录；并发请求下最多
// 只有一个 goroutine 触发登录，其余请求复用结果。
type tokenSource struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	ttl       time.Duration
	login     func(ctx context.Context) (string, error)
	now       func() time.Time
}

func newTokenSource(cfg Config, login func(ctx context.Context) (string, error)) *tokenSource {
	return &tokenSource{
		ttl:   cfg.TokenTTL,
		login: login,
		now:   time.Now,
	}
}

// Token 返回可用令牌，必要时重新登录
func (s *tokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Add(refreshMargin).Before(s.expiresAt) {
		return s.token, nil
	}

	token, err := s.login(ctx)
	if err != nil {
		return "", err
	}
	s.token = token
	s.expiresAt = s.now().Add(s.ttl)
	return token, nil
}

// Invalidate 丢弃缓存令牌，下一次请求重新登录
func (s *tokenSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiresAt = time.Time{}
}

// invalidateOnUnauthorized 平台返回 401 时作废本地令牌
func (s *tokenSource) invalidateOnUnauthorized(statusCode int) {
	if statusCode == http.StatusUnauthorized {
		s.Invalidate()
	}
}
