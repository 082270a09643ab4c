package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/mechfleet/maintenance-api/api/swagger"
	"github.com/mechfleet/maintenance-api/internal/handler"
	"github.com/mechfleet/maintenance-api/internal/middleware"
	"github.com/mechfleet/maintenance-api/internal/models"
	"github.com/mechfleet/maintenance-api/internal/repository"
	"github.com/mechfleet/maintenance-api/internal/service"
	"github.com/mechfleet/maintenance-api/pkg/cache"
	"github.com/mechfleet/maintenance-api/pkg/config"
	"github.com/mechfleet/maintenance-api/pkg/database"
	"github.com/mechfleet/maintenance-api/pkg/logger"
	corsmiddleware "github.com/mechfleet/maintenance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/mechfleet/maintenance-api/pkg/middleware/requestid"
)

// @title Fleet Maintenance API
// @version 1.0.0
// @description Vehicle fleet failure reporting and repair workflow
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, reference cache disabled", "error", err)
			redisClient = nil
		}
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	manufacturerRepo := repository.NewManufacturerRepository(db)
	failureRepo := repository.NewFailureReportRepository(db)
	repairRepo := repository.NewRepairReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "maintenance-api",
	})
	failureSvc := service.NewFailureReportService(failureRepo, vehicleRepo, locationRepo, userRepo, validate, logr, metricsSvc)
	repairSvc := service.NewRepairReportService(repairRepo, userRepo, validate, logr, metricsSvc, cfg.Exports.MaxRows)
	vehicleSvc := service.NewVehicleService(vehicleRepo, failureRepo, locationRepo, manufacturerRepo, validate, logr)
	locationSvc := service.NewLocationService(locationRepo, cacheRepo, cfg.Cache.ReferenceTTL, validate, logr, metricsSvc)
	manufacturerSvc := service.NewManufacturerService(manufacturerRepo, cacheRepo, cfg.Cache.ReferenceTTL, validate, logr, metricsSvc)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	vehicleHandler := handler.NewVehicleHandler(vehicleSvc, repairSvc, authSvc)
	locationHandler := handler.NewLocationHandler(locationSvc, authSvc)
	manufacturerHandler := handler.NewManufacturerHandler(manufacturerSvc, authSvc)
	failureHandler := handler.NewFailureReportHandler(failureSvc, authSvc)
	repairHandler := handler.NewRepairReportHandler(repairSvc, authSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.PUT("/password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))
	{
		secured.GET("/vehicles", vehicleHandler.List)
		secured.GET("/vehicles/:id", vehicleHandler.Get)
		secured.POST("/vehicles", middleware.RequireRoles(models.RoleAdmin), vehicleHandler.Create)
		secured.PUT("/vehicles/:id", middleware.RequireRoles(models.RoleAdmin), vehicleHandler.Update)
		secured.DELETE("/vehicles/:id", middleware.RequireRoles(models.RoleAdmin), vehicleHandler.Delete)
		secured.GET("/vehicles/:id/repair-history", middleware.RequireRoles(models.RoleMechanic), vehicleHandler.RepairHistory)

		secured.GET("/locations", locationHandler.List)
		secured.GET("/locations/:id", locationHandler.Get)
		secured.POST("/locations", middleware.RequireRoles(models.RoleAdmin), locationHandler.Create)
		secured.PUT("/locations/:id", middleware.RequireRoles(models.RoleAdmin), locationHandler.Update)
		secured.DELETE("/locations/:id", middleware.RequireRoles(models.RoleAdmin), locationHandler.Delete)

		secured.GET("/manufacturers", manufacturerHandler.List)
		secured.GET("/manufacturers/:id", manufacturerHandler.Get)
		secured.POST("/manufacturers", middleware.RequireRoles(models.RoleAdmin), manufacturerHandler.Create)
		secured.PUT("/manufacturers/:id", middleware.RequireRoles(models.RoleAdmin), manufacturerHandler.Update)
		secured.DELETE("/manufacturers/:id", middleware.RequireRoles(models.RoleAdmin), manufacturerHandler.Delete)

		secured.GET("/failure-reports", middleware.RequireRoles(models.RoleManager, models.RoleAdmin), failureHandler.List)
		secured.GET("/failure-reports/:id", middleware.RequireRoles(models.RoleManager, models.RoleAdmin), failureHandler.Get)
		secured.POST("/failure-reports", middleware.RequireRoles(models.RoleStandard), failureHandler.Create)
		secured.POST("/failure-reports/:id/claim", middleware.RequireRoles(models.RoleManager), failureHandler.Claim)
		secured.POST("/failure-reports/:id/release", middleware.RequireRoles(models.RoleManager), failureHandler.Release)
		secured.POST("/failure-reports/:id/assign", middleware.RequireRoles(models.RoleManager), failureHandler.Assign)
		secured.POST("/failure-reports/:id/reassign", middleware.RequireRoles(models.RoleManager), failureHandler.Reassign)
		secured.POST("/failure-reports/:id/dismiss", middleware.RequireRoles(models.RoleManager), failureHandler.Dismiss)
		secured.POST("/failure-reports/:id/resolve", middleware.RequireRoles(models.RoleManager), failureHandler.Resolve)

		secured.GET("/repair-reports", repairHandler.List)
		secured.GET("/repair-reports/export", middleware.RequireRoles(models.RoleManager, models.RoleAdmin), repairHandler.Export)
		secured.GET("/repair-reports/:id", repairHandler.Get)
		secured.PUT("/repair-reports/:id", middleware.RequireRoles(models.RoleMechanic), repairHandler.Update)
		secured.PUT("/repair-reports/:id/status", middleware.RequireRoles(models.RoleMechanic), repairHandler.SetStatus)
		secured.POST("/repair-reports/:id/reject", middleware.RequireRoles(models.RoleManager), repairHandler.Reject)
		secured.GET("/repair-reports/:id/rejections", repairHandler.ListRejections)
		secured.GET("/repair-report-rejections", repairHandler.Rejections)
		secured.GET("/repair-report-rejections/:id", repairHandler.GetRejection)

		secured.GET("/metrics/snapshot", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
