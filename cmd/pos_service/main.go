package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	catalogAPI "github.com/ridloal/inventory-pos/internal/catalog/api"
	catalogRepo "github.com/ridloal/inventory-pos/internal/catalog/repository"
	catalogService "github.com/ridloal/inventory-pos/internal/catalog/service"
	checkoutAPI "github.com/ridloal/inventory-pos/internal/checkout/api"
	checkoutService "github.com/ridloal/inventory-pos/internal/checkout/service"
	forecastAPI "github.com/ridloal/inventory-pos/internal/forecast/api"
	"github.com/ridloal/inventory-pos/internal/forecast/scheduler"
	forecastService "github.com/ridloal/inventory-pos/internal/forecast/service"
	ledgerAPI "github.com/ridloal/inventory-pos/internal/ledger/api"
	ledgerRepo "github.com/ridloal/inventory-pos/internal/ledger/repository"
	ledgerService "github.com/ridloal/inventory-pos/internal/ledger/service"
	"github.com/ridloal/inventory-pos/internal/platform/cache"
	"github.com/ridloal/inventory-pos/internal/platform/config"
	"github.com/ridloal/inventory-pos/internal/platform/database"
	"github.com/ridloal/inventory-pos/internal/platform/idempotency"
	"github.com/ridloal/inventory-pos/internal/platform/logger"
	"github.com/ridloal/inventory-pos/internal/platform/metrics"
	"github.com/ridloal/inventory-pos/internal/platform/middleware"
	"github.com/ridloal/inventory-pos/internal/platform/storage"
	userAPI "github.com/ridloal/inventory-pos/internal/user/api"
	userRepo "github.com/ridloal/inventory-pos/internal/user/repository"
	userService "github.com/ridloal/inventory-pos/internal/user/service"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	// Load Config
	config.LoadDotEnv()
	serverCfg := config.LoadServerConfig("5001")
	dbCfg := config.LoadDBConfig()
	mongoCfg := config.LoadMongoConfig()
	redisCfg := config.LoadRedisConfig()
	authCfg := config.LoadAuthConfig()
	s3Cfg := config.LoadS3Config()
	forecastCfg := config.LoadForecastConfig()

	logger.Initialize(serverCfg.Env)
	defer logger.Sync()
	logger.Info("Starting Inventory POS Service...", zap.String("env", serverCfg.Env))

	if err := authCfg.Validate(serverCfg.Env); err != nil {
		logger.Error("Refusing to start with the default JWT secret", err)
		os.Exit(1)
	}
	if authCfg.DefaultSecret {
		logger.Warn("JWT_SECRET not set, using the insecure development secret")
	}

	if serverCfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Database
	db, err := database.Connect(dbCfg)
	if err != nil {
		logger.Error("Failed to connect to database", err)
		os.Exit(1)
	}
	defer db.Close()

	if dbCfg.AutoMigrate {
		if err := database.EnsureSchema(context.Background(), db); err != nil {
			logger.Error("Failed to apply schema", err)
			os.Exit(1)
		}
	}

	m := metrics.New()

	// Optional backends
	var metadataRepository catalogRepo.MetadataRepository
	if mongoCfg.URI != "" {
		mongoClient, mongoDB, err := database.ConnectMongo(mongoCfg)
		if err != nil {
			logger.Error("Failed to connect to MongoDB", err)
			os.Exit(1)
		}
		defer database.DisconnectMongo(mongoClient)
		metadataRepository = newMetadataRepository(mongoDB.Collection(mongoCfg.Collection))
	} else {
		logger.Warn("MONGO_URI not set, product metadata disabled")
	}

	var catalogCache cache.Cache = cache.Noop{}
	var idempotencyStore idempotency.Store
	if redisCfg.Addr != "" {
		redisClient, err := database.ConnectRedis(redisCfg)
		if err != nil {
			logger.Error("Failed to connect to Redis", err)
			os.Exit(1)
		}
		defer closeRedis(redisClient)
		catalogCache = cache.NewRedisCache(redisClient, "catalog", redisCfg.CacheTTL, m.CacheLookups)
		idempotencyStore = idempotency.NewRedisStore(redisClient, time.Minute, 24*time.Hour)
	} else {
		logger.Warn("REDIS_ADDR not set, catalog cache and idempotent checkout disabled")
	}

	var imageStore storage.ImageStore = storage.NewInlineStore()
	if s3Cfg.Enabled() {
		s3Client, err := storage.NewS3Client(context.Background(), s3Cfg)
		if err != nil {
			logger.Error("Failed to configure S3 client", err)
			os.Exit(1)
		}
		imageStore = storage.NewS3Store(s3Client, s3Cfg)
		logger.Info("Product images stored in S3", zap.String("bucket", s3Cfg.Bucket))
	}

	// Setup Dependencies
	ledgerRepository := ledgerRepo.NewPostgresLedgerRepository(db)
	productRepository := catalogRepo.NewPostgresProductRepository(db)
	userRepository := userRepo.NewPostgresUserRepository(db)

	ledgerSvc := ledgerService.NewLedgerService(ledgerRepository, catalogCache)
	catalogSvc := catalogService.NewCatalogService(productRepository, ledgerRepository, metadataRepository, catalogCache, imageStore)
	checkoutSvc := checkoutService.NewCheckoutService(ledgerRepository, catalogCache, m)
	userSvc := userService.NewUserService(userRepository, authCfg)
	advisor := forecastService.NewAdvisor(ledgerRepository, forecastCfg.HorizonDays)

	forecastJob, err := scheduler.New(advisor, forecastCfg.Schedule, time.Minute, m.ReorderFlagged, m.ForecastRuns)
	if err != nil {
		logger.Error("Invalid FORECAST_CRON schedule", err, zap.String("spec", forecastCfg.Schedule))
		os.Exit(1)
	}
	forecastJob.Start()
	defer forecastJob.Stop()

	limiter := middleware.NewRateLimiter(rate.Limit(config.GetEnvAsInt("RATE_LIMIT_RPS", 20)), config.GetEnvAsInt("RATE_LIMIT_BURST", 40), 10*time.Minute)
	stopLimiter := make(chan struct{})
	go limiter.Run(stopLimiter)
	defer close(stopLimiter)

	// Setup Gin Router
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(logger.L()),
		middleware.Metrics(m),
		middleware.SecurityHeaders(),
		middleware.CORS(serverCfg.AllowedOrigins),
		limiter.Middleware(),
		middleware.Timeout(serverCfg.RequestTimeout),
	)

	router.GET("/health", healthHandler(db))
	router.GET("/metrics", gin.WrapH(m.Handler()))

	protect := middleware.Protect(authCfg.JWTSecret)
	adminOnly := middleware.AdminOnly()

	apiV1 := router.Group("/api/v1")
	userAPI.NewUserHandler(userSvc).RegisterRoutes(apiV1, protect)
	catalogAPI.NewProductHandler(catalogSvc).RegisterRoutes(apiV1, protect, adminOnly)
	ledgerAPI.NewInventoryHandler(ledgerSvc).RegisterRoutes(apiV1, protect, adminOnly)
	checkoutAPI.NewCheckoutHandler(checkoutSvc, idempotencyStore).RegisterRoutes(apiV1, protect)
	forecastAPI.NewForecastHandler(advisor).RegisterRoutes(apiV1, protect, adminOnly)

	srv := &http.Server{
		Addr:              serverCfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Inventory POS Service running on port " + serverCfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to run server", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	logger.Info("Server exiting")
}

func newMetadataRepository(coll *mongo.Collection) catalogRepo.MetadataRepository {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := catalogRepo.EnsureIndexes(ctx, coll); err != nil {
		logger.Warn("Failed to ensure metadata indexes", zap.Error(err))
	}
	return catalogRepo.NewMongoMetadataRepository(coll)
}

func closeRedis(client *redis.Client) {
	if err := client.Close(); err != nil {
		logger.Error("Failed to close Redis client", err)
	}
}

func healthHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
