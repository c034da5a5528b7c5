package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/danvolkens/haven-hub-api/internal/events"
	"github.com/danvolkens/haven-hub-api/internal/handler"
	"github.com/danvolkens/haven-hub-api/internal/middleware"
	"github.com/danvolkens/haven-hub-api/internal/mockups"
	"github.com/danvolkens/haven-hub-api/internal/models"
	"github.com/danvolkens/haven-hub-api/internal/pinterest"
	"github.com/danvolkens/haven-hub-api/internal/render"
	"github.com/danvolkens/haven-hub-api/internal/repository"
	"github.com/danvolkens/haven-hub-api/internal/service"
	"github.com/danvolkens/haven-hub-api/pkg/cache"
	"github.com/danvolkens/haven-hub-api/pkg/config"
	"github.com/danvolkens/haven-hub-api/pkg/database"
	"github.com/danvolkens/haven-hub-api/pkg/jobs"
	"github.com/danvolkens/haven-hub-api/pkg/logger"
	corsmiddleware "github.com/danvolkens/haven-hub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/danvolkens/haven-hub-api/pkg/middleware/requestid"
	"github.com/danvolkens/haven-hub-api/pkg/storage"
)

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, winner cache disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	objectStore, err := storage.NewObjectStore(cfg.ObjectStore)
	if err != nil {
		logr.Sugar().Fatalw("object store connection failed", "error", err)
	}

	renderer, err := render.NewRenderer()
	if err != nil {
		logr.Sugar().Fatalw("renderer init failed", "error", err)
	}

	emitter := events.NewPublisher(cfg.Kafka, logr)
	defer emitter.Close() //nolint:errcheck

	quoteRepo := repository.NewQuoteRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	mockupRepo := repository.NewMockupRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	pinRepo := repository.NewPinRepository(db)
	winnerRepo := repository.NewWinnerRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	integrationRepo := repository.NewIntegrationRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	metricsSvc := service.NewMetricsService()

	approvalSvc := service.NewApprovalService(approvalRepo, settingsRepo, cfg.Pipeline.QualityThreshold, logr)

	assetSvc := service.NewAssetService(quoteRepo, assetRepo, objectStore, approvalSvc, activityRepo, emitter, nil, renderer, logr)
	renderQueue := jobs.NewQueue("asset-render", assetSvc.HandleRenderJob, jobs.QueueConfig{
		Workers:    cfg.Pipeline.RenderWorkers,
		BufferSize: cfg.Pipeline.RenderQueueBuffer,
		Logger:     logr,
	})
	assetSvc.SetQueue(renderQueue)

	mockupSvc := service.NewMockupService(mockupRepo, assetRepo, mockups.NewClient(cfg.Mockups), approvalSvc, activityRepo, activityRepo, logr)

	approvalSvc.RegisterApplier(models.ReferenceAssets, assetSvc.ApplyAssetVerdict)
	approvalSvc.RegisterApplier(models.ReferenceMockups, mockupSvc.ApplyMockupVerdict)

	publisherSvc := service.NewPublisherService(pinRepo, integrationRepo, pinterest.NewClient(cfg.Pinterest), emitter, metricsSvc, logr, service.PublisherConfig{
		PublishInterval: cfg.Pipeline.PublishInterval,
		BatchSize:       cfg.Pipeline.PublishBatchSize,
		RetryInterval:   cfg.Pipeline.RetryInterval,
		RetryCooldown:   cfg.Pipeline.RetryCooldown,
		MaxRetries:      cfg.Pipeline.MaxPublishRetries,
	})

	winnerSvc := service.NewWinnerService(pinRepo, winnerRepo, activityRepo, emitter, redisClient, cfg.Pipeline.WinnerCacheTTL, metricsSvc, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	renderQueue.Start(ctx)
	defer renderQueue.Stop()
	publisherSvc.StartSchedulers(ctx)

	assetHandler := handler.NewAssetHandler(assetSvc)
	mockupHandler := handler.NewMockupHandler(mockupSvc)
	approvalHandler := handler.NewApprovalHandler(approvalSvc)
	pinHandler := handler.NewPinHandler(publisherSvc)
	winnerHandler := handler.NewWinnerHandler(winnerSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/quotes/:id/assets", assetHandler.Generate)
		api.POST("/mockups/generate", mockupHandler.Generate)
		api.GET("/approvals", approvalHandler.List)
		api.POST("/approvals/:id/resolve", approvalHandler.Resolve)
		api.GET("/pins", pinHandler.List)
		api.GET("/pins/:id", pinHandler.Get)
		api.POST("/pins/publish-due", pinHandler.PublishDue)
		api.POST("/pins/retry-sweep", pinHandler.RetrySweep)
		api.POST("/winners/refresh", winnerHandler.Refresh)
		api.GET("/winners", winnerHandler.List)
		api.GET("/winners/export", winnerHandler.Export)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown failed", "error", err)
	}
}
