package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/admission-api/api/swagger"
	"github.com/noah-isme/admission-api/internal/handler"
	"github.com/noah-isme/admission-api/internal/middleware"
	"github.com/noah-isme/admission-api/internal/repository"
	"github.com/noah-isme/admission-api/internal/service"
	"github.com/noah-isme/admission-api/pkg/cache"
	"github.com/noah-isme/admission-api/pkg/config"
	"github.com/noah-isme/admission-api/pkg/database"
	"github.com/noah-isme/admission-api/pkg/jobs"
	"github.com/noah-isme/admission-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/admission-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/admission-api/pkg/middleware/requestid"
	"github.com/noah-isme/admission-api/pkg/storage"
)

// @title Admission API
// @version 1.0.0
// @description Application submission lifecycle for the admissions wizard
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	checks := map[string]handler.Pinger{"postgres": db}

	var store service.ApplicationStore = repository.NewApplicationRepository(db)
	if cfg.Applications.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		cacheRepo := repository.NewCacheRepository(client, logr)
		defer cacheRepo.Close() //nolint:errcheck
		store = repository.NewCachedApplicationStore(store, cacheRepo, cfg.Applications.CacheTTL, metrics, logr)
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })
	}
	profiles := repository.NewProfileRepository(db)

	registry := service.NewSessionRegistry(store, metrics, logr, service.SessionRegistryConfig{
		IdleTTL: cfg.Sessions.IdleTTL,
		Manager: service.ManagerConfig{StoreTimeout: cfg.Applications.StoreTimeout},
	})
	go registry.Run(ctx, cfg.Sessions.SweepInterval)

	mux := jobs.NewMux()
	queue := jobs.NewQueue("admission", mux.Dispatch, jobs.QueueConfig{
		Workers:    cfg.Queue.Workers,
		MaxRetries: cfg.Queue.MaxRetries,
		RetryDelay: cfg.Queue.RetryDelay,
		Logger:     logr,
	})

	onboardingSvc := service.NewOnboardingService(profiles, queue, logr)
	mux.Handle(service.JobTypeDisplayName, onboardingSvc.HandleDisplayNameJob)

	var confirmations *jobs.Queue
	if cfg.Notify.Enabled {
		sender, err := service.NewSESSender(ctx, cfg.Notify.AWSRegion)
		if err != nil {
			return err
		}
		notifier := service.NewNotificationService(sender, cfg.Notify.Sender, logr)
		mux.Handle(service.JobTypeSubmissionConfirmation, notifier.HandleSubmissionJob)
		confirmations = queue
	}
	queue.Start(ctx)
	defer queue.Stop()

	blobs, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		return err
	}
	signer := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)
	documentSvc := service.NewDocumentService(blobs, signer, metrics, logr, service.DocumentServiceConfig{
		MaxFileSize:    cfg.Documents.MaxFileSizeBytes,
		AllowedMIMEs:   cfg.Documents.AllowedMIMEs,
		InlineFallback: cfg.Documents.InlineFallback,
		APIPrefix:      cfg.APIPrefix,
	})

	identitySvc := service.NewIdentityService(service.IdentityConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		Leeway:   cfg.JWT.Leeway,
	})

	applicationHandler := handler.NewApplicationHandler(
		newSubmissionService(confirmations, logr),
		service.NewReceiptService(nil),
	)
	documentHandler := handler.NewDocumentHandler(documentSvc)
	onboardingHandler := handler.NewOnboardingHandler(onboardingSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.MaxMultipartMemory = cfg.Documents.MaxFileSizeBytes + 1<<20

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/documents/blob", documentHandler.Blob)

	secured := api.Group("")
	secured.Use(middleware.Identity(identitySvc), middleware.Session(registry))
	secured.GET("/onboarding", onboardingHandler.Status)
	secured.POST("/onboarding", onboardingHandler.Complete)

	applications := secured.Group("/application")
	applications.GET("", applicationHandler.Get)
	applications.POST("/refresh", applicationHandler.Refresh)
	applications.PUT("/personal-details", applicationHandler.UpdatePersonalDetails)
	applications.PUT("/academic-details", applicationHandler.UpdateAcademicDetails)
	applications.POST("/draft", applicationHandler.SaveDraft)
	applications.POST("/documents/:kind", documentHandler.Upload)
	applications.GET("/review", applicationHandler.Review)
	applications.POST("/submit", applicationHandler.Submit)
	applications.GET("/receipt", applicationHandler.Receipt)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newSubmissionService keeps a nil *jobs.Queue from becoming a non-nil
// interface value.
func newSubmissionService(queue *jobs.Queue, logr *zap.Logger) *service.SubmissionService {
	if queue == nil {
		return service.NewSubmissionService(nil, logr)
	}
	return service.NewSubmissionService(queue, logr)
}
