package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/grader-api/api/swagger"
	"github.com/noah-isme/grader-api/internal/handler"
	"github.com/noah-isme/grader-api/internal/middleware"
	"github.com/noah-isme/grader-api/internal/repository"
	"github.com/noah-isme/grader-api/internal/service"
	"github.com/noah-isme/grader-api/pkg/cache"
	"github.com/noah-isme/grader-api/pkg/config"
	"github.com/noah-isme/grader-api/pkg/database"
	"github.com/noah-isme/grader-api/pkg/jobs"
	"github.com/noah-isme/grader-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/grader-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/grader-api/pkg/middleware/requestid"
	"github.com/noah-isme/grader-api/pkg/storage"
)

// @title Grader API
// @version 1.0.0
// @description Grading pane backend: grade normalization, gradebook sync and exports
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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Grading.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Grading.LetterCacheTTL, logr, true)
		}
	}

	activityRepo := repository.NewActivityRepository(db)
	gradeRepo := repository.NewActivityGradeRepository(db)
	gradebookRepo := repository.NewGradebookRepository(db, cfg.Grading.GradebookSource)
	groupRepo := repository.NewGroupRepository(db)
	letterRepo := repository.NewLetterRepository(db)
	advancedRepo := repository.NewAdvancedGradingRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)

	tokenSvc := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	}, logr)
	advancedSvc := service.NewAdvancedGradingService(advancedRepo, logr)
	gradingSvc := service.NewGradingService(activityRepo, gradeRepo, gradebookRepo, groupRepo, letterRepo, advancedSvc, cacheSvc, metricsSvc, nil, logr)
	activitySvc := service.NewActivityService(activityRepo, gradeRepo, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	gradingHandler := handler.NewGradingHandler(gradingSvc)
	activityHandler := handler.NewActivityHandler(activitySvc)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))
	api.GET("/system/metrics", middleware.RequireRoles("ADMIN"), metricsHandler.System)

	courses := api.Group("/courses/:courseId")
	courses.Use(middleware.RequireRoles("TEACHER", "ADMIN"))
	courses.GET("/activities", activityHandler.List)
	courses.GET("/activities/:activityId/report", activityHandler.Report)
	courses.GET("/activities/:activityId/users/:userId/grading", gradingHandler.Session)
	courses.POST("/activities/:activityId/users/:userId/grading", gradingHandler.Submit)

	if cfg.Exports.Enabled {
		wireExports(r, api, courses, cfg, activityRepo, gradeRepo, letterRepo, exportJobRepo, logr)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func wireExports(r *gin.Engine, api, courses *gin.RouterGroup, cfg *config.Config, activityRepo *repository.ActivityRepository, gradeRepo *repository.ActivityGradeRepository, letterRepo *repository.LetterRepository, exportJobRepo *repository.ExportJobRepository, logr *zap.Logger) {
	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	exportSvc := service.NewExportService(gradeRepo, activityRepo, letterRepo, store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr, nil, nil)

	worker := service.NewExportWorker(exportJobRepo, exportSvc, cfg.Exports.WorkerRetries, logr)
	queue := jobs.NewQueue("grading-exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	})
	queue.Start(context.Background())

	exportJobSvc := service.NewExportJobService(exportJobRepo, activityRepo, queue, exportSvc, logr, service.ExportJobConfig{
		ResultTTL:  cfg.Exports.SignedURLTTL,
		MaxRetries: cfg.Exports.WorkerRetries,
	})
	exportJobSvc.RecoverPendingJobs(context.Background())
	exportJobSvc.StartCleanup(context.Background())

	exportHandler := handler.NewExportHandler(exportJobSvc)
	courses.POST("/activities/:activityId/exports", exportHandler.CreateExport)
	api.GET("/exports/:id", exportHandler.ExportStatus)
	// Signed token downloads skip JWT middleware; the token is the credential.
	r.GET(cfg.APIPrefix+"/export/:token", exportHandler.Download)
}
