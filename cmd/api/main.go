package main

import (
	"context"

	_ "factorymes/api/swagger" // swagger docs
	"factorymes/internal/config"
	"factorymes/internal/database"
	"factorymes/internal/handler"
	"factorymes/internal/middleware"
	"factorymes/internal/model"
	"factorymes/internal/repository"
	"factorymes/internal/service"
	"factorymes/internal/websocket"

	"github.com/bsm/redislock"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// ratingPenalty is subtracted from a supplier's rating each time an
// inspection finds defects, floored at 1.
var ratingPenalty = decimal.NewFromFloat(0.1)

// @title           Inventory Replenishment API
// @version         1.0
// @description     Item ledger, auto-reorder and purchase-order lifecycle engine.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	logger := config.NewLogger()

	gin.SetMode(cfg.GinMode)

	db, err := database.NewConnection(cfg.DSN())
	if err != nil {
		logger.WithError(err).Fatal("database connection failed")
	}
	logger.Info("connected to postgres")

	// Distributed lock client for the reorder scan. Optional: without redis
	// the scan still runs, guarded only by the per-day idempotency keys.
	var locker *redislock.Client
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable, reorder scan runs unlocked")
		} else {
			locker = redislock.New(rdb)
		}
	}

	wsHub := websocket.NewHub(logger)
	go wsHub.Run()

	// Repositories
	txManager := repository.NewTransactionManager(db)
	itemRepo := repository.NewItemRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	inspectionRepo := repository.NewInspectionRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	userRepo := repository.NewUserRepository(db)

	// A receipt with defects knocks a tenth of a point off the supplier's
	// rating. Failures here only warn; the receipt itself is already committed.
	ratingHook := func(ctx context.Context, supplier model.Supplier, record model.ReceivingInspectionRecord) {
		next := supplier.Rating.Sub(ratingPenalty)
		if next.LessThan(decimal.NewFromInt(1)) {
			next = decimal.NewFromInt(1)
		}
		if err := supplierRepo.UpdateRating(ctx, supplier.ID, next); err != nil {
			logger.WithError(err).WithField("supplier", supplier.Code).Warn("supplier rating update failed")
		}
	}

	// Services
	ledgerService := service.NewLedgerService(itemRepo, movementRepo, auditRepo, txManager, wsHub, logger)
	orderService := service.NewOrderService(orderRepo, itemRepo, supplierRepo, scheduleRepo, inspectionRepo, auditRepo, txManager, wsHub, logger)
	receivingService := service.NewReceivingService(orderRepo, scheduleRepo, inspectionRepo, auditRepo, ledgerService, txManager, wsHub, logger, ratingHook)
	reorderService := service.NewReorderService(ruleRepo, itemRepo, supplierRepo, auditRepo, ledgerService, orderService, txManager, locker, cfg.ReorderInterval, cfg.DefaultWarehouse, logger)
	itemService := service.NewItemService(itemRepo, auditRepo, txManager)
	supplierService := service.NewSupplierService(supplierRepo, auditRepo, txManager)
	auditService := service.NewAuditService(auditRepo)
	userService := service.NewUserService(userRepo, middleware.GetJWTSecret())

	// Handlers
	itemHandler := handler.NewItemHandler(itemService, ledgerService)
	supplierHandler := handler.NewSupplierHandler(supplierService)
	orderHandler := handler.NewOrderHandler(orderService)
	receivingHandler := handler.NewReceivingHandler(receivingService)
	reorderHandler := handler.NewReorderHandler(reorderService)
	exportHandler := handler.NewExportHandler(ledgerService)
	auditHandler := handler.NewAuditHandler(auditService)
	userHandler := handler.NewUserHandler(userService)

	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "Idempotency-Key"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// API routing
	api := router.Group("")
	userHandler.RegisterRoutes(api)
	itemHandler.RegisterRoutes(api)
	supplierHandler.RegisterRoutes(api)
	orderHandler.RegisterRoutes(api)
	receivingHandler.RegisterRoutes(api)
	reorderHandler.RegisterRoutes(api)
	exportHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)

	// Background reorder scan
	reorderService.Start(context.Background())

	logger.WithField("port", cfg.Port).Info("server listening")
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("server failed")
	}
}
