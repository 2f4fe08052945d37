package provider

import (
	"time"

	"github.com/sensevend-next/internal/authz"
	"github.com/sensevend-next/internal/cache"
	"github.com/sensevend-next/internal/config"
	"github.com/sensevend-next/internal/logger"
	"github.com/sensevend-next/internal/models"
	"github.com/sensevend-next/internal/platform"
	"github.com/sensevend-next/internal/platform/thingsboard"
	"github.com/sensevend-next/internal/queue"
	"github.com/sensevend-next/internal/repository"
	"github.com/sensevend-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Gateway     platform.Gateway

	// Repositories
	AdminRepo          repository.AdminRepository
	UserRepo           repository.UserRepository
	LicenseBatchRepo   repository.LicenseBatchRepository
	DeviceRepo         repository.DeviceRepository
	PaymentRepo        repository.PaymentRepository
	ReconciliationRepo repository.ReconciliationRepository

	// Services
	AuthzService          *authz.Service
	AuthService           *service.AuthService
	UserAuthService       *service.UserAuthService
	LicenseService        *service.LicenseService
	AllocationService     *service.AllocationService
	ProvisioningService   *service.ProvisioningService
	DeviceQueryService    *service.DeviceQueryService
	ReconciliationService *service.ReconciliationService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化远程平台客户端
	c.initGateway()

	// 2. 初始化 Repositories
	c.initRepositories()

	// 3. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initGateway() {
	tbCfg := thingsboard.Config{
		BaseURL:         c.Config.Platform.BaseURL,
		Username:        c.Config.Platform.Username,
		Password:        c.Config.Platform.Password,
		DeviceProfileID: c.Config.Platform.DeviceProfileID,
		Timeout:         time.Duration(c.Config.Platform.TimeoutMS) * time.Millisecond,
		TokenTTL:        time.Duration(c.Config.Platform.TokenTTLMinutes) * time.Minute,
	}
	if err := thingsboard.ValidateConfig(&tbCfg); err != nil {
		// 配置缺失时仍然启动，设备相关接口会返回平台不可用
		logger.Warnw("provider_platform_config_invalid", "error", err)
	}
	c.Gateway = thingsboard.New(tbCfg)
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.LicenseBatchRepo = repository.NewLicenseBatchRepository(db)
	c.DeviceRepo = repository.NewDeviceRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.ReconciliationRepo = repository.NewReconciliationRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo)
	c.LicenseService = service.NewLicenseService(c.LicenseBatchRepo)
	c.ReconciliationService = service.NewReconciliationService(c.ReconciliationRepo)
	c.AllocationService = service.NewAllocationService(c.LicenseService, c.PaymentRepo, c.Gateway, c.Config.License.PaymentExpiryDays)
	c.ProvisioningService = service.NewProvisioningService(c.LicenseService, c.ReconciliationService, c.DeviceRepo, c.Gateway, c.QueueClient)
	c.DeviceQueryService = service.NewDeviceQueryService(c.DeviceRepo, c.Gateway)
}
