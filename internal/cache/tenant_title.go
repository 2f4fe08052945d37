package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
)

const tenantTitleCacheTTL = 30 * time.Minute

// tenantTitleEntry 租户名称缓存条目
type tenantTitleEntry struct {
	Title     string `json:"title"`
	UpdatedAt int64  `json:"updated_at"`
}

func tenantTitleKey(tenantID string) string {
	sum := sha1.Sum([]byte(strings.TrimSpace(tenantID)))
	return "tenant:title:" + hex.EncodeToString(sum[:])
}

// GetTenantTitle 获取租户名称缓存
func GetTenantTitle(ctx context.Context, tenantID string) (string, bool, error) {
	if strings.TrimSpace(tenantID) == "" {
		return "", false, nil
	}
	var entry tenantTitleEntry
	hit, err := GetJSON(ctx, tenantTitleKey(tenantID), &entry)
	if err != nil || !hit {
		return "", hit, err
	}
	return entry.Title, true, nil
}

// SetTenantTitle 写入租户名称缓存
func SetTenantTitle(ctx context.Context, tenantID, title string) error {
	if strings.TrimSpace(tenantID) == "" || strings.TrimSpace(title) == "" {
		return nil
	}
	entry := tenantTitleEntry{
		Title:     title,
		UpdatedAt: time.Now().Unix(),
	}
	return SetJSON(ctx, tenantTitleKey(tenantID), entry, tenantTitleCacheTTL)
}

// DelTenantTitle 删除租户名称缓存
func DelTenantTitle(ctx context.Context, tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return nil
	}
	return Del(ctx, tenantTitleKey(tenantID))
}
