package container

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"autoparts-returns-backend/internal/config"
	infraCache "autoparts-returns-backend/internal/infrastructure/cache"
	"autoparts-returns-backend/internal/infrastructure/database"
	"autoparts-returns-backend/internal/infrastructure/directory"
	"autoparts-returns-backend/internal/infrastructure/orderledger"
	"autoparts-returns-backend/internal/infrastructure/storage"
	"autoparts-returns-backend/pkg/cache"
	"autoparts-returns-backend/pkg/jwt"

	pickupGateway "autoparts-returns-backend/internal/domains/pickup/gateway"
	"autoparts-returns-backend/internal/domains/pickup/gateway/borzo"
	pickupHandler "autoparts-returns-backend/internal/domains/pickup/handler"
	pickupService "autoparts-returns-backend/internal/domains/pickup/service"
	refundGateway "autoparts-returns-backend/internal/domains/refund/gateway"
	"autoparts-returns-backend/internal/domains/refund/gateway/razorpay"
	refundHandler "autoparts-returns-backend/internal/domains/refund/handler"
	refundRepo "autoparts-returns-backend/internal/domains/refund/repository"
	refundService "autoparts-returns-backend/internal/domains/refund/service"
	returnsHandler "autoparts-returns-backend/internal/domains/returns/handler"
	returnsRepo "autoparts-returns-backend/internal/domains/returns/repository"
	returnsService "autoparts-returns-backend/internal/domains/returns/service"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container is the root of the dependency graph. Everything in it is a
// singleton wired once at startup; both the API and the worker build the
// same graph and pick the pieces they need.
type Container struct {
	// Infrastructure
	Config      *config.Config
	DB          *database.PostgresDB
	Cache       cache.Cache
	JWTManager  *jwt.Manager
	AsynqClient *asynq.Client
	Storage     *storage.MinIOStorage
	ImageProc   *storage.ImageProcessor

	// Outbound adapters
	OrderLedger returnsService.OrderLedger
	Directory   returnsService.Directory
	Logistics   pickupGateway.LogisticsGateway
	Processor   refundGateway.RefundProcessor

	// Repositories
	ReturnRepo  returnsRepo.ReturnRepository
	RefundRepo  refundRepo.RefundRepository
	WebhookRepo refundRepo.WebhookRepository

	// Services
	Orchestrator      *returnsService.Orchestrator
	ReturnService     returnsService.ReturnService
	InspectionService returnsService.InspectionService
	ImageService      *returnsService.ImageService
	PickupService     pickupService.PickupService
	RefundService     refundService.RefundService

	// Handlers
	ReturnHandler        *returnsHandler.ReturnHandler
	PickupHandler        *pickupHandler.PickupHandler
	PickupWebhookHandler *pickupHandler.WebhookHandler
	RefundHandler        *refundHandler.RefundHandler
	RefundWebhookHandler *refundHandler.WebhookHandler
}

// ========================================
// CONSTRUCTOR: BUILD CONTAINER
// ========================================

// NewContainer initializes the whole dependency graph in order: config,
// infrastructure, gateways, repositories, services, handlers.
func NewContainer() (*Container, error) {
	log.Println("🔧 Initializing DI Container...")

	c := &Container{}

	// ========================================
	// STEP 1: LOAD CONFIGURATION
	// ========================================
	log.Println("📋 Loading configuration...")

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	log.Printf("✅ Config loaded (Environment: %s)", cfg.App.Environment)

	// ========================================
	// STEP 2: INITIALIZE DATABASE
	// ========================================
	log.Println("🗄️  Connecting to PostgreSQL...")

	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.HealthCheck(context.Background()); err != nil {
		return nil, fmt.Errorf("database health check failed: %w", err)
	}

	c.DB = db
	log.Println("✅ Database connected")

	// ========================================
	// STEP 3: INITIALIZE CACHE + QUEUE CLIENT
	// ========================================
	log.Println("🔴 Connecting to Redis...")

	redisCache := infraCache.NewRedisCache(
		cfg.Redis.Host,
		cfg.Redis.Password,
		cfg.Redis.DB,
	)

	if rc, ok := redisCache.(*infraCache.RedisCache); ok {
		if err := rc.Connect(context.Background()); err != nil {
			// Redis failure is not fatal here: webhook dedup degrades to
			// the database-level log and directory lookups go uncached.
			log.Printf("⚠️  Redis connection failed (non-critical): %v", err)
		} else {
			log.Println("✅ Redis connected")
		}
	}
	c.Cache = redisCache

	c.AsynqClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	c.JWTManager = jwt.NewManager(cfg.JWT.Secret)

	// ========================================
	// STEP 4: INITIALIZE STORAGE + GATEWAYS
	// ========================================
	log.Println("📦 Initializing storage and partner gateways...")

	minioStorage, err := storage.NewMinIOStorage(cfg.MinIO)
	if err != nil {
		return nil, fmt.Errorf("failed to init object storage: %w", err)
	}
	c.Storage = minioStorage
	c.ImageProc = storage.NewImageProcessor()

	c.OrderLedger = orderledger.NewClient(cfg.OrderLedger)
	c.Directory = directory.NewClient(cfg.Directory, c.Cache)

	logistics, err := borzo.NewClient(borzo.NewConfig(
		cfg.Borzo.APIURL,
		cfg.Borzo.AuthToken,
		cfg.Borzo.CallbackSecret,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to init logistics gateway: %w", err)
	}
	c.Logistics = logistics

	processor, err := razorpay.NewClient(razorpay.NewConfig(
		cfg.Razorpay.APIURL,
		cfg.Razorpay.KeyID,
		cfg.Razorpay.KeySecret,
		cfg.Razorpay.WebhookSecret,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to init refund processor: %w", err)
	}
	c.Processor = processor

	log.Println("✅ Storage and gateways initialized")

	// ========================================
	// STEP 5: INITIALIZE REPOSITORIES
	// ========================================
	c.initRepositories()

	// ========================================
	// STEP 6: INITIALIZE SERVICES
	// ========================================
	c.initServices()

	// ========================================
	// STEP 7: INITIALIZE HANDLERS
	// ========================================
	c.initHandlers()

	log.Println("🎉 DI Container initialized successfully")
	return c, nil
}

// ========================================
// PRIVATE INITIALIZATION METHODS
// ========================================

func (c *Container) initRepositories() {
	pool := c.DB.Pool

	c.ReturnRepo = returnsRepo.NewPostgresReturnRepository(pool)
	c.RefundRepo = refundRepo.NewRefundRepository(pool)
	c.WebhookRepo = refundRepo.NewWebhookRepository(pool)
}

func (c *Container) initServices() {
	c.Orchestrator = returnsService.NewOrchestrator(c.ReturnRepo)

	policy := returnsService.EligibilityPolicy{
		ReturnWindowDays: c.Config.ReturnPolicy.ReturnWindowDays,
	}

	c.ReturnService = returnsService.NewReturnService(
		c.ReturnRepo,
		c.Orchestrator,
		c.OrderLedger,
		c.Directory,
		c.AsynqClient,
		policy,
	)

	c.InspectionService = returnsService.NewInspectionService(
		c.ReturnRepo,
		c.Orchestrator,
	)

	c.ImageService = returnsService.NewImageService(
		c.ReturnRepo,
		c.Storage,
		c.AsynqClient,
	)

	c.PickupService = pickupService.NewPickupCoordinator(
		c.ReturnRepo,
		c.Orchestrator,
		c.Logistics,
		c.AsynqClient,
		c.Config.ReturnPolicy.MaxPickupAttempts,
	)

	c.RefundService = refundService.NewRefundService(
		c.RefundRepo,
		c.WebhookRepo,
		c.ReturnRepo,
		c.Orchestrator,
		c.Processor,
		c.OrderLedger,
		c.AsynqClient,
		c.Config.ReturnPolicy,
	)
}

func (c *Container) initHandlers() {
	c.ReturnHandler = returnsHandler.NewReturnHandler(
		c.ReturnService,
		c.InspectionService,
		c.ImageService,
	)

	c.PickupHandler = pickupHandler.NewPickupHandler(c.PickupService)
	c.PickupWebhookHandler = pickupHandler.NewWebhookHandler(c.Logistics, c.Cache, c.AsynqClient)

	c.RefundHandler = refundHandler.NewRefundHandler(c.RefundService)
	c.RefundWebhookHandler = refundHandler.NewWebhookHandler(c.Processor, c.Cache, c.AsynqClient)
}

// ========================================
// CLEANUP
// ========================================

// Cleanup releases container resources during graceful shutdown.
func (c *Container) Cleanup() {
	log.Println("🧹 Cleaning up container resources...")

	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			log.Printf("⚠️  Failed to close task client: %v", err)
		}
	}

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			log.Printf("⚠️  Failed to close database: %v", err)
		} else {
			log.Println("✅ Database connections closed")
		}
	}

	if c.Cache != nil {
		if rc, ok := c.Cache.(*infraCache.RedisCache); ok {
			if err := rc.Close(); err != nil {
				log.Printf("⚠️  Failed to close Redis: %v", err)
			} else {
				log.Println("✅ Redis connections closed")
			}
		}
	}

	log.Println("✅ Container cleanup completed")
}
