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
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/aulao-api/api/swagger"
	"github.com/noah-isme/aulao-api/internal/handler"
	internalmiddleware "github.com/noah-isme/aulao-api/internal/middleware"
	"github.com/noah-isme/aulao-api/internal/models"
	"github.com/noah-isme/aulao-api/internal/repository"
	"github.com/noah-isme/aulao-api/internal/repository/memory"
	"github.com/noah-isme/aulao-api/internal/service"
	"github.com/noah-isme/aulao-api/pkg/broker"
	"github.com/noah-isme/aulao-api/pkg/cache"
	"github.com/noah-isme/aulao-api/pkg/config"
	"github.com/noah-isme/aulao-api/pkg/database"
	"github.com/noah-isme/aulao-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/aulao-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/aulao-api/pkg/middleware/requestid"
	"github.com/noah-isme/aulao-api/pkg/signedlink"
)

// @title Aulão API
// @version 1.0.0
// @description Live class marketplace: catalog, checkout, access and teacher reporting.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]handler.ReadinessCheck{}

	repos, db, err := openStores(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open datastore", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
		checks["database"] = db.PingContext
	}

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(client, logr)
			defer client.Close()
			checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cacheRepo != nil)

	eventSvc := service.NewEventService(newPublisher(cfg, logr), metricsSvc, logr, service.EventServiceConfig{
		Workers:    cfg.Events.Workers,
		BufferSize: cfg.Events.QueueBufferSize,
		MaxRetries: cfg.Events.MaxRetries,
		RetryDelay: cfg.Events.QueueRetryDelay,
	})
	eventSvc.Start(ctx)
	defer eventSvc.Stop()

	validate := validator.New()
	signer := signedlink.NewSigner(cfg.JoinLink.Secret, cfg.JoinLink.TTL)

	accessSvc := service.NewAccessService(service.AccessServiceParams{
		Events:      repos.ClassEvents,
		Enrollments: repos.Enrollments,
		Signer:      signer,
		JoinPath:    cfg.APIPrefix + "/join/",
		Logger:      logr,
	})
	catalogSvc := service.NewCatalogService(service.CatalogServiceParams{
		Catalog:     repos.Catalog,
		Events:      repos.ClassEvents,
		Enrollments: repos.Enrollments,
		Logger:      logr,
	})
	purchaseSvc := service.NewPurchaseService(service.PurchaseServiceParams{
		Purchases:   repos.Purchases,
		Payments:    repos.Payments,
		Enrollments: repos.Enrollments,
		Events:      repos.ClassEvents,
		Cache:       cacheSvc,
		Metrics:     metricsSvc,
		Emitter:     eventSvc,
		Validator:   validate,
		Logger:      logr,
		Timeout:     cfg.Checkout.Timeout,
	})
	classEventSvc := service.NewClassEventService(service.ClassEventServiceParams{
		Events:    repos.ClassEvents,
		Catalog:   repos.Catalog,
		Cache:     cacheSvc,
		Metrics:   metricsSvc,
		Emitter:   eventSvc,
		Validator: validate,
		Logger:    logr,
	})
	reportingSvc := service.NewReportingService(service.ReportingServiceParams{
		Reports: repos.Reports,
		Buyers:  repos.Enrollments,
		Cache:   cacheSvc,
		Logger:  logr,
		Config:  service.ReportingServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})

	if cfg.Scheduler.Enabled {
		scheduler := service.NewMeetingScheduler(service.MeetingSchedulerParams{
			Events:   repos.ClassEvents,
			Cache:    cacheSvc,
			Metrics:  metricsSvc,
			Emitter:  eventSvc,
			Logger:   logr,
			Schedule: cfg.Scheduler.ReleaseSchedule,
		})
		if err := scheduler.Start(); err != nil {
			logr.Fatal("failed to start meeting scheduler", zap.Error(err))
		}
		defer func() { <-scheduler.Stop().Done() }()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	ops := handler.NewMetricsHandler(metricsSvc, checks)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Register(r.Group(cfg.APIPrefix), handler.Handlers{
		ClassEvents: handler.NewClassEventHandler(accessSvc, catalogSvc, purchaseSvc),
		Agenda:      handler.NewAgendaHandler(service.NewAgendaService(repos.Enrollments)),
		Catalog:     handler.NewCatalogHandler(catalogSvc),
		Teacher:     handler.NewTeacherHandler(classEventSvc, reportingSvc),
		Payments:    handler.NewPaymentHandler(purchaseSvc),
	}, handler.RouteConfig{
		JWTSecret:             cfg.JWT.Secret,
		PaymentCallbackSecret: cfg.Payments.CallbackSecret,
		Viewer: models.Viewer{
			UserID:           cfg.Viewer.UserID,
			StudentProfileID: cfg.Viewer.StudentProfileID,
			TeacherProfileID: cfg.Viewer.TeacherProfileID,
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg *config.Config, logr *zap.Logger) (repository.Set, *sqlx.DB, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		store := memory.New()
		if cfg.Store.SeedDemo {
			memory.Seed(store, time.Now().UTC())
			logr.Info("seeded demo catalog into memory store")
		}
		return memory.NewSet(store), nil, nil
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return repository.Set{}, nil, err
	}
	return repository.NewPostgresSet(db), db, nil
}

func newPublisher(cfg *config.Config, logr *zap.Logger) broker.Publisher {
	if !cfg.Events.Enabled {
		return broker.NewLogPublisher(logr)
	}
	brokerCfg := broker.Config{
		URL:             cfg.Events.URL,
		Exchange:        cfg.Events.Exchange,
		DialTimeout:     cfg.Events.DialTimeout,
		PublishTimeout:  cfg.Events.PublishTimeout,
		BreakerFailures: cfg.Events.BreakerFailures,
		BreakerTimeout:  cfg.Events.BreakerTimeout,
		BreakerHalfOpen: cfg.Events.BreakerHalfOpen,
		BreakerInterval: cfg.Events.BreakerInterval,
	}
	amqpPublisher, err := broker.NewAMQPPublisher(brokerCfg, logr)
	if err != nil {
		logr.Warn("rabbitmq unavailable, domain events will only be logged", zap.Error(err))
		return broker.NewLogPublisher(logr)
	}
	return broker.NewBreakerPublisher(amqpPublisher, brokerCfg, logr)
}
