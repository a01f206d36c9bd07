package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/erp/sharepointsync/docs"
	spapp "github.com/erp/sharepointsync/internal/application/sharepoint"
	"github.com/erp/sharepointsync/internal/domain/sharepoint"
	"github.com/erp/sharepointsync/internal/infrastructure/cache"
	"github.com/erp/sharepointsync/internal/infrastructure/config"
	"github.com/erp/sharepointsync/internal/infrastructure/logger"
	"github.com/erp/sharepointsync/internal/infrastructure/persistence"
	"github.com/erp/sharepointsync/internal/infrastructure/scheduler"
	"github.com/erp/sharepointsync/internal/infrastructure/source"
	"github.com/erp/sharepointsync/internal/infrastructure/telemetry"
	"github.com/erp/sharepointsync/internal/interfaces/http/handler"
	"github.com/erp/sharepointsync/internal/interfaces/http/middleware"
	"github.com/erp/sharepointsync/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

const serviceVersion = "1.0.0"

//	@title			SharePoint Sync API
//	@version		1.0
//	@description	Detects operation folders in the SharePoint document library and imports them as operations.

//	@contact.name	Operations Support

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	// Telemetry comes up before the real logger so log records can be bridged to OTLP
	providers, err := telemetry.Setup(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    serviceVersion,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsEnabled:    cfg.Telemetry.MetricsEnabled,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	log, err := logger.New(logCfg, providers.ZapCore(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting SharePoint sync",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("provider", cfg.SharePoint.Provider),
	)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.ProfilingServerAddress,
		ApplicationName:   cfg.Telemetry.ServiceName,
		BasicAuthUser:     cfg.Telemetry.ProfilingBasicAuthUser,
		BasicAuthPassword: cfg.Telemetry.ProfilingBasicAuthPassword,
		ProfileTypes:      cfg.Telemetry.ProfilingTypes,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if cfg.Telemetry.ProfilingSpanProfiles && profiler.Enabled() && !providers.EnableSpanProfiles() {
		log.Warn("Span profiles need tracing, telemetry.enabled is false")
	}

	// Database with a zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.DefaultDBTracingConfig()
		dbTracing.Enabled = true
		dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
		dbTracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
		if err := telemetry.RegisterDBTracing(db.DB, dbTracing, log); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	// Folder source and classifier
	folderSource, err := source.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize folder source", zap.Error(err))
	}
	classifier, err := sharepoint.NewClassifier(sharepoint.ClassifierOptions{
		OrderPatterns:   cfg.Classifier.OrderPatterns,
		InvoicePatterns: cfg.Classifier.InvoicePatterns,
	})
	if err != nil {
		log.Fatal("Invalid classifier patterns", zap.Error(err))
	}

	lease, closeLease, err := newScanLease(cfg, db)
	if err != nil {
		log.Fatal("Failed to initialize scan lease", zap.Error(err))
	}
	defer closeLease()

	// Repositories
	pendingRepo := persistence.NewGormPendingItemRepository(db.DB)
	scanRunRepo := persistence.NewGormScanRunRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Application services
	scanService := spapp.NewScanService(folderSource, classifier, txScope, lease, scanRunRepo, log, spapp.ScanConfig{
		RootPath: cfg.SharePoint.RootPath,
		Timeout:  cfg.Scan.Timeout,
		LeaseTTL: cfg.Scan.LeaseTTL,
	})
	importService := spapp.NewImportService(txScope, log, cfg.Import.Timeout)
	pendingService := spapp.NewPendingItemService(pendingRepo, scanRunRepo, log)
	pendingService.SetOperations(persistence.NewGormOperationRepository(db.DB))
	// stored references are stable, responses get links minted on read
	if linker, ok := folderSource.(sharepoint.DownloadLinker); ok {
		pendingService.SetDownloadLinker(linker)
	}

	syncMetrics, err := telemetry.NewSyncMetrics(providers.Meter("sharepoint-sync"))
	if err != nil {
		log.Fatal("Failed to register sync metrics", zap.Error(err))
	}
	scanService.SetMetrics(syncMetrics)
	importService.SetMetrics(syncMetrics)
	pendingService.SetMetrics(syncMetrics)

	// Periodic scans share the lease with manual ones
	scanScheduler := scheduler.NewScanScheduler(scanService, log, scheduler.ScanSchedulerConfig{
		Enabled:    cfg.Scan.ScheduleEnabled,
		Interval:   cfg.Scan.ScheduleInterval,
		RunOnStart: true,
	})
	if err := scanScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start scan scheduler", zap.Error(err))
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	// Request ID first so every later middleware can log it
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     providers.TracingEnabled(),
	})...)
	engine.Use(logger.GinMiddleware(log))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Health check endpoint (outside API versioning)
	healthHandler := handler.NewHealthHandler(db, cfg.App.Name, serviceVersion)
	engine.GET("/health", healthHandler.Health)

	if cfg.Swagger.Enabled {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	sharePointHandler := handler.NewSharePointHandler(scanService, importService, pendingService)
	r := router.NewRouter(engine, router.WithAPIVersion("v1"), router.WithNoRoute(handler.NotFound))
	routes := r.Register(handler.SharePointRoutes(sharePointHandler)).Setup()
	log.Info("API routes registered", zap.String("base_path", r.BasePath()), zap.Int("routes", len(routes)))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := scanScheduler.Stop(ctx); err != nil {
		log.Warn("Scan scheduler did not stop cleanly", zap.Error(err))
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := providers.Shutdown(ctx); err != nil {
		log.Error("Telemetry shutdown failed", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Profiler shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newScanLease picks the lease store named by scan.lease_backend. The returned func
// releases whatever the backend holds open.
func newScanLease(cfg *config.Config, db *persistence.Database) (sharepoint.ScanLease, func(), error) {
	switch cfg.Scan.LeaseBackend {
	case config.LeaseBackendRedis:
		lease, err := cache.NewRedisScanLease(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return lease, func() { _ = lease.Close() }, nil
	default:
		return persistence.NewGormScanLease(db.DB), func() {}, nil
	}
}
