package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campus-dsi/pointage-api/api/swagger"
	"github.com/campus-dsi/pointage-api/internal/handler"
	"github.com/campus-dsi/pointage-api/internal/middleware"
	"github.com/campus-dsi/pointage-api/internal/reconcile"
	"github.com/campus-dsi/pointage-api/internal/service"
	"github.com/campus-dsi/pointage-api/internal/tenant"
	"github.com/campus-dsi/pointage-api/pkg/cache"
	"github.com/campus-dsi/pointage-api/pkg/config"
	"github.com/campus-dsi/pointage-api/pkg/jobs"
	"github.com/campus-dsi/pointage-api/pkg/logger"
	corsmiddleware "github.com/campus-dsi/pointage-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campus-dsi/pointage-api/pkg/middleware/requestid"
)

// @title Pointage API
// @version 1.0.0
// @description Multi-establishment attendance reconciliation and tracking
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

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logr.Sugar().Fatalw("invalid timezone", "timezone", cfg.Timezone, "error", err)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	directory := tenant.NewDirectory(cfg.Tenants, logr)
	defer directory.Close()

	policy := reconcile.Policy{
		Grace:          cfg.Reconcile.Grace,
		Cutoff:         time.Duration(cfg.Reconcile.CutoffHours) * time.Hour,
		EarlyThreshold: cfg.Reconcile.EarlyThreshold,
	}

	metricsSvc := service.NewMetricsService()
	trackerSvc := service.NewTrackerService(directory, loc, policy, redisClient, cfg.Tracker.CacheTTL, logr)
	absenceSvc := service.NewAbsenceService(directory, nil, logr)
	qrSvc := service.NewQRService(directory, cfg.QR.SigningSecret, cfg.QR.TokenTTL, redisClient, logr)

	trackerHandler := handler.NewTrackerHandler(trackerSvc, loc, nil)
	absenceHandler := handler.NewAbsenceHandler(absenceSvc, loc)
	qrHandler := handler.NewQRHandler(qrSvc, nil)
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

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.Tenant(directory))
	{
		api.GET("/tracker/students/:matricule", trackerHandler.Track)
		api.GET("/tracker/export", trackerHandler.Export)
		api.GET("/absences", absenceHandler.List)
		api.GET("/absences/summary", absenceHandler.Summary)
		api.PATCH("/absences/:id/justification", absenceHandler.Justify)
		api.POST("/qr/sessions", qrHandler.Issue)
		api.POST("/qr/scan", qrHandler.Scan)
	}

	if cfg.Batch.CronSchedule != "" {
		engine := service.NewEngine(directory, loc, policy, metricsSvc, logr)
		runner := jobs.NewRunner(jobs.RunnerConfig{
			Workers:    cfg.Batch.Workers,
			MaxRetries: cfg.Batch.TenantRetry,
			Backoff:    cfg.Batch.RetryBackoff,
			Logger:     logr,
		})
		batchSvc := service.NewBatchService(directory.IDs(), engine, runner, logr)

		scheduler := cron.New(cron.WithLocation(loc))
		if _, err := scheduler.AddFunc(cfg.Batch.CronSchedule, func() {
			start := time.Now()
			report, err := batchSvc.Run(context.Background(), service.BatchParams{CutoffHours: cfg.Reconcile.CutoffHours})
			if err != nil {
				logr.Sugar().Errorw("scheduled batch run failed", "error", err)
				return
			}
			metricsSvc.ObserveBatchRun(time.Since(start))
			logr.Sugar().Infow("scheduled batch run complete",
				"created", report.TotalCreated,
				"updated", report.TotalUpdated,
				"errors", report.TotalErrors,
				"warnings", len(report.Warnings))
		}); err != nil {
			logr.Sugar().Fatalw("invalid batch schedule", "schedule", cfg.Batch.CronSchedule, "error", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		logr.Sugar().Infow("batch schedule registered", "schedule", cfg.Batch.CronSchedule)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "tenants", len(cfg.Tenants))
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
