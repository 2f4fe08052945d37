package main

import (
	"time"

	"github.com/sensevend-next/internal/config"
	"github.com/sensevend-next/internal/logger"
	"github.com/sensevend-next/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// 开发环境演示数据：一个演示租户、两批授权、一个门户账号。
func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	const demoTenantID = "8a3bca80-demo-tenant-0001"

	now := time.Now()
	batches := []models.LicenseBatch{
		{
			TenantID:    demoTenantID,
			PackageName: "starter-50",
			TotalUnits:  50,
			Price:       models.NewMoneyFromDecimal(decimal.NewFromInt(499)),
			IsAssigned:  true,
			PurchasedAt: now.AddDate(0, -2, 0),
		},
		{
			TenantID:    demoTenantID,
			PackageName: "growth-200",
			TotalUnits:  200,
			Price:       models.NewMoneyFromDecimal(decimal.NewFromInt(1599)),
			IsAssigned:  false,
			PurchasedAt: now,
		},
	}
	for i := range batches {
		if err := models.DB.Create(&batches[i]).Error; err != nil {
			stdLog.Fatalf("写入授权批次失败: %v", err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("Portal@123"), bcrypt.DefaultCost)
	if err != nil {
		stdLog.Fatalf("生成密码哈希失败: %v", err)
	}
	user := models.User{
		Email:        "demo@sensevend.dev",
		PasswordHash: string(hash),
		DisplayName:  "Demo Vendor",
		TenantID:     demoTenantID,
		Status:       "active",
	}
	if err := models.DB.Create(&user).Error; err != nil {
		stdLog.Fatalf("写入演示用户失败: %v", err)
	}

	logger.Infow("seed_done",
		"tenant_id", demoTenantID,
		"license_batches", len(batches),
		"demo_user", user.Email,
	)
	stdLog.Printf("演示数据写入完成：tenant=%s user=%s", demoTenantID, user.Email)
}
