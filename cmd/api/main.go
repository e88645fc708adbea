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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tutoring-payments-api/api/swagger"
	"github.com/noah-isme/tutoring-payments-api/internal/handler"
	internalmiddleware "github.com/noah-isme/tutoring-payments-api/internal/middleware"
	"github.com/noah-isme/tutoring-payments-api/internal/models"
	"github.com/noah-isme/tutoring-payments-api/internal/repository"
	"github.com/noah-isme/tutoring-payments-api/internal/service"
	"github.com/noah-isme/tutoring-payments-api/pkg/cache"
	"github.com/noah-isme/tutoring-payments-api/pkg/config"
	"github.com/noah-isme/tutoring-payments-api/pkg/database"
	"github.com/noah-isme/tutoring-payments-api/pkg/export"
	"github.com/noah-isme/tutoring-payments-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tutoring-payments-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tutoring-payments-api/pkg/middleware/requestid"
	"github.com/noah-isme/tutoring-payments-api/pkg/storage"
)

// @title Tutoring Payments API
// @version 1.0.0
// @description Overdue payments, subscription renewals and account balances for tutoring schools.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	mongoClient, mongoDB, err := database.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		logr.Fatal("failed to connect mongo", zap.Error(err))
	}
	defer mongoClient.Disconnect(context.Background()) //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis, cfg.Cache.Enabled)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metricsSvc, cfg.Payments.CacheTTL, logr, redisClient != nil)

	rpc := repository.NewRPCClient(db, metricsSvc)
	documents := repository.NewDocumentStore(mongoDB, metricsSvc)
	students := repository.NewStudentDocumentRepository(documents)
	subscriptions := repository.NewSubscriptionRepository(rpc)
	legacySubscriptions := repository.NewSubscriptionDocumentRepository(documents)
	transactions := repository.NewTransactionRepository(rpc)

	overdueSvc := service.NewOverduePaymentService(service.OverduePaymentServiceParams{
		Students:            students,
		Subscriptions:       subscriptions,
		LegacySubscriptions: legacySubscriptions,
		Payments:            repository.NewPaymentDocumentRepository(documents),
		Transactions:        transactions,
		Cache:               cacheSvc,
		Metrics:             metricsSvc,
		Logger:              logr,
		Config: service.OverduePaymentServiceConfig{
			CacheTTL:         cfg.Payments.CacheTTL,
			Concurrency:      cfg.Payments.Concurrency,
			HighPriorityDays: cfg.Payments.HighPriorityDays,
		},
	})
	renewalSvc := service.NewRenewalService(service.RenewalServiceParams{
		Students:            students,
		Subscriptions:       subscriptions,
		LegacySubscriptions: legacySubscriptions,
		Lessons:             repository.NewLessonRepository(rpc),
		Cache:               cacheSvc,
		Metrics:             metricsSvc,
		Logger:              logr,
		Config: service.RenewalServiceConfig{
			CacheTTL:    cfg.Payments.CacheTTL,
			Concurrency: cfg.Payments.Concurrency,
			WindowDays:  cfg.Payments.RenewalWindowDays,
		},
	})
	balanceSvc := service.NewBalanceService(service.BalanceServiceParams{
		Accounts:     repository.NewAccountRepository(rpc),
		Transactions: transactions,
		Cache:        cacheSvc,
		Metrics:      metricsSvc,
		Logger:       logr,
		CacheTTL:     cfg.Payments.CacheTTL,
	})

	fileStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	validate := service.NewValidator()
	exportSvc := service.NewExportService(service.ExportServiceParams{
		Overdue:   overdueSvc,
		Renewals:  renewalSvc,
		Balances:  balanceSvc,
		Storage:   fileStore,
		Signer:    storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		Renderers: []export.Renderer{export.NewCSVExporter(), export.NewPDFExporter("Tutoring payments")},
		Validator: validate,
		Logger:    logr,
		Config:    service.ExportConfig{APIPrefix: cfg.APIPrefix},
	})
	go exportSvc.RunCleanup(ctx, cfg.Exports.CleanupInterval)

	reminderSvc := service.NewReminderService(service.ReminderServiceParams{
		Overdue:   overdueSvc,
		Templates: repository.NewTemplateRepository(rpc),
		Outbox:    repository.NewNotificationRepository(db),
		Metrics:   metricsSvc,
		Validator: validate,
		Logger:    logr,
		Config: service.ReminderConfig{
			Enabled: cfg.Reminders.Enabled,
			Workers: cfg.Reminders.Workers,
			Retries: cfg.Reminders.Retries,
		},
	})
	reminderSvc.Start(ctx)
	defer reminderSvc.Stop()

	sessions := service.NewSessionService(service.SessionConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	audit := repository.NewAuditRepository(db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, readinessChecks(db, mongoClient, redisClient))
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	paymentsHandler := handler.NewPaymentsHandler(overdueSvc, renewalSvc, balanceSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	reminderHandler := handler.NewReminderHandler(reminderSvc)

	api := r.Group(cfg.APIPrefix)
	api.GET("/exports/download", exportHandler.Download)

	secured := api.Group("")
	secured.Use(internalmiddleware.Session(sessions), internalmiddleware.WithResponseMeta())
	secured.GET("/metrics/summary", internalmiddleware.RequireRoles(models.RoleSuperAdmin), metricsHandler.Summary)

	schools := secured.Group("/schools/:schoolId")
	schools.Use(internalmiddleware.SchoolScope("schoolId"))
	schools.GET("/overdue-payments", paymentsHandler.Overdue)
	schools.GET("/subscription-renewals", paymentsHandler.Renewals)
	schools.GET("/account-balances", paymentsHandler.Balances)

	mutating := schools.Group("")
	mutating.Use(internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager))
	mutating.POST("/exports", internalmiddleware.Audit(audit, logr, models.AuditActionExport, "exports"), exportHandler.Create)
	mutating.POST("/reminders", internalmiddleware.Audit(audit, logr, models.AuditActionReminder, "reminders"), reminderHandler.Send)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
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

func readinessChecks(db *sqlx.DB, mongoClient *mongo.Client, redisClient *redis.Client) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
		"mongo": func(ctx context.Context) error {
			return mongoClient.Ping(ctx, readpref.Primary())
		},
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}
