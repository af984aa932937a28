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
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/aquacentre-api/api/swagger"
	"github.com/noah-isme/aquacentre-api/internal/handler"
	"github.com/noah-isme/aquacentre-api/internal/middleware"
	"github.com/noah-isme/aquacentre-api/internal/models"
	"github.com/noah-isme/aquacentre-api/internal/repository"
	"github.com/noah-isme/aquacentre-api/internal/service"
	"github.com/noah-isme/aquacentre-api/pkg/cache"
	"github.com/noah-isme/aquacentre-api/pkg/config"
	"github.com/noah-isme/aquacentre-api/pkg/database"
	"github.com/noah-isme/aquacentre-api/pkg/export"
	"github.com/noah-isme/aquacentre-api/pkg/jobs"
	"github.com/noah-isme/aquacentre-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/aquacentre-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/aquacentre-api/pkg/middleware/requestid"
	"github.com/noah-isme/aquacentre-api/pkg/payment"
	"github.com/noah-isme/aquacentre-api/pkg/realtime"
	"github.com/noah-isme/aquacentre-api/pkg/storage"
)

// @title Aquacentre API
// @version 1.0.0
// @description Booking, schedules, payments and content for aquatic fitness centres
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

	loc, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		logr.Fatal("invalid booking timezone", zap.String("timezone", cfg.Booking.Timezone), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logr); err != nil {
			logr.Fatal("migration failed", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	metrics := service.NewMetricsService()
	validate := service.NewValidator()

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	templateRepo := repository.NewScheduleTemplateRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	pricingRepo := repository.NewPricingRepository(db)
	contentRepo := repository.NewContentRepository(db)

	var cacheRepo service.CacheRepository
	var selections service.SelectionStore
	if redisClient != nil {
		repo := repository.NewCacheRepository(redisClient, "aquacentre")
		cacheRepo = repo
		selections = service.NewCacheSelectionStore(repo, cfg.Booking.SelectionTTL)
	} else {
		selections = service.NewMemorySelectionStore(cfg.Booking.SelectionTTL)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TemplateTTL, logr, cfg.Cache.Enabled)

	hub := realtime.NewHub(cfg.Realtime.BufferSize, func(realtime.Event) { metrics.RecordRealtimeDrop() })
	var relay *realtime.RedisRelay
	if redisClient != nil && cfg.Realtime.RedisRelay {
		relay = realtime.NewRedisRelay(redisClient, "aquacentre:changes", uuid.NewString(), logr)
		go func() {
			if err := relay.Run(ctx, hub); err != nil && !errors.Is(err, context.Canceled) {
				logr.Error("realtime relay stopped", zap.Error(err))
			}
		}()
	}
	publisher := realtime.NewPublisher(hub, relay, realtime.PublisherConfig{
		Workers: cfg.Realtime.PublishWorkers,
		Retries: cfg.Realtime.PublishRetries,
		Logger:  logr,
	})
	publisher.Start(ctx)
	defer publisher.Stop()
	streamer := realtime.NewStreamer(hub, cfg.CORS.AllowedOrigins, logr)

	availabilitySvc := service.NewAvailabilityService(templateRepo, reservationRepo, service.NewExpander(loc), cacheSvc, metrics, logr, service.AvailabilityConfig{
		DefaultDays: cfg.Booking.HorizonDays,
		MaxDays:     cfg.Booking.MaxHorizonDays,
		TemplateTTL: cfg.Cache.TemplateTTL,
	})
	admissionSvc := service.NewAdmissionService(availabilitySvc, reservationRepo, auditRepo, publisher, validate, metrics, logr, service.AdmissionConfig{
		LoginPath: cfg.Booking.LoginPath,
		MaxDays:   cfg.Booking.MaxHorizonDays,
		Location:  loc,
	})
	bookingSvc := service.NewBookingFlowService(availabilitySvc, admissionSvc, selections, logr, cfg.Booking.LoginPath)
	eventSvc := service.NewEventService(availabilitySvc, cfg.Booking.EventsActivity, cfg.Booking.EventsMonths, cfg.Booking.MaxHorizonDays)

	authSvc := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	scheduleSvc := service.NewScheduleService(templateRepo, cacheSvc, auditRepo, publisher, validate, logr)
	if cfg.Seed.SchedulesFile != "" {
		n, err := scheduleSvc.SeedFromFile(ctx, cfg.Seed.SchedulesFile)
		if err != nil {
			logr.Fatal("schedule seed failed", zap.String("file", cfg.Seed.SchedulesFile), zap.Error(err))
		}
		logr.Info("schedule templates seeded", zap.Int("inserted", n))
	}

	receiptStore, err := storage.NewLocalStorage(cfg.Receipts.StorageDir)
	if err != nil {
		logr.Fatal("failed to init receipt storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Receipts.SignedURLSecret, cfg.Receipts.SignedURLTTL)
	accountSvc := service.NewAccountService(reservationRepo, export.NewPDFExporter(), receiptStore, signer, logr, loc, cfg.APIPrefix+"/receipts")

	gateway := payment.NewMidtransGateway(cfg.Payments.ServerKey, cfg.Payments.Production)
	paymentSvc := service.NewPaymentService(paymentRepo, pricingRepo, userRepo, gateway, auditRepo, publisher, validate, metrics, logr, service.PaymentConfig{
		PendingExpiry: cfg.Payments.PendingExpiry,
	})
	pricingSvc := service.NewPricingService(pricingRepo, auditRepo, validate, logr, cfg.Payments.Currency)
	contentSvc := service.NewContentService(contentRepo, cacheSvc, auditRepo, publisher, validate, logr)
	reservationAdminSvc := service.NewReservationAdminService(reservationRepo, admissionSvc, export.NewCSVExporter(';'), logr)

	if cfg.Jobs.Enabled {
		scheduler := jobs.NewScheduler(loc, logr)
		maintenance := service.NewMaintenanceService(paymentSvc, receiptStore, cacheSvc, cfg.Receipts.RetentionPeriod, logr)
		if err := maintenance.Register(scheduler, service.MaintenanceSpecs{
			ExpirePayments:   cfg.Jobs.ExpirePaymentsSpec,
			PurgeReceipts:    cfg.Jobs.PurgeReceiptsSpec,
			RefreshTemplates: cfg.Jobs.RefreshTemplateSpec,
		}); err != nil {
			logr.Fatal("failed to register maintenance jobs", zap.Error(err))
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	dependencies := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		dependencies["redis"] = redisPinger(redisClient)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc, admissionSvc, availabilitySvc, eventSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	pricingHandler := handler.NewPricingHandler(pricingSvc)
	contentHandler := handler.NewContentHandler(contentSvc)
	accountHandler := handler.NewAccountHandler(accountSvc, paymentSvc, streamer, logr)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	adminHandler := handler.NewAdminHandler(reservationAdminSvc, streamer)
	metricsHandler := handler.NewMetricsHandler(metrics.Handler(), dependencies)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	requireAuth := middleware.JWT(authSvc, cfg.Booking.LoginPath)
	requireAdmin := middleware.RequireRoles(models.RoleAdmin)

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		auth.POST("/register", limiter.Middleware(), authHandler.Register)
		auth.POST("/login", limiter.Middleware(), authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", requireAuth, authHandler.Logout)
		auth.GET("/me", requireAuth, authHandler.Me)

		api.GET("/availability/:activity", bookingHandler.Availability)
		api.GET("/events", bookingHandler.Events)
		api.POST("/events/quote", limiter.Middleware(), contentHandler.EventQuote)
		api.GET("/schedules", scheduleHandler.List)
		api.GET("/schedules/activities", scheduleHandler.Activities)
		api.GET("/pricing", pricingHandler.List)
		api.GET("/settings", contentHandler.Settings)
		api.POST("/newsletter", limiter.Middleware(), contentHandler.Subscribe)
		api.POST("/contact", limiter.Middleware(), contentHandler.Contact)
		api.GET("/receipts", accountHandler.DownloadReceipt)
		api.POST("/payments/notifications", paymentHandler.Notification)

		api.POST("/reservations", middleware.OptionalJWT(authSvc), bookingHandler.Admit)

		booking := api.Group("/booking/:activity", requireAuth)
		booking.GET("", bookingHandler.View)
		booking.PUT("/selection/day", bookingHandler.SelectDay)
		booking.PUT("/selection/time", bookingHandler.SelectTime)
		booking.DELETE("/selection", bookingHandler.Reset)
		booking.POST("/confirm", bookingHandler.Confirm)

		account := api.Group("/account", requireAuth)
		account.GET("/reservations", accountHandler.Reservations)
		account.GET("/reservations.ics", accountHandler.Calendar)
		account.GET("/reservations/:id/receipt", accountHandler.ReceiptLink)
		account.GET("/payments", accountHandler.Payments)
		account.GET("/stream", accountHandler.Stream)

		api.POST("/payments/checkout", requireAuth, paymentHandler.Checkout)

		admin := api.Group("/admin", requireAuth, requireAdmin)
		admin.POST("/schedules", scheduleHandler.Create)
		admin.PUT("/schedules/:id", scheduleHandler.Update)
		admin.DELETE("/schedules/:id", scheduleHandler.Delete)

		admin.GET("/pricing", pricingHandler.ListAll)
		admin.POST("/pricing", pricingHandler.Create)
		admin.PUT("/pricing/:id", pricingHandler.Update)
		admin.DELETE("/pricing/:id", pricingHandler.Delete)

		admin.GET("/reservations", adminHandler.Reservations)
		admin.GET("/reservations/export", middleware.Audit(auditRepo, models.AuditActionAdminExport, "reservations"), adminHandler.ExportReservations)
		admin.DELETE("/reservations/:id", adminHandler.DeleteReservation)

		admin.PUT("/settings", contentHandler.UpdateSettings)
		admin.GET("/newsletter", contentHandler.Subscriptions)
		admin.GET("/newsletter/export", middleware.Audit(auditRepo, models.AuditActionAdminExport, "newsletter"), contentHandler.ExportSubscriptions)
		admin.GET("/messages", contentHandler.Messages)
		admin.GET("/stream", adminHandler.Stream)
	}

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

func redisPinger(client *redis.Client) handler.PingFunc {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
