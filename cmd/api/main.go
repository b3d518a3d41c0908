package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/perscom/personnel-api/internal/audit"
	"github.com/perscom/personnel-api/internal/config"
	"github.com/perscom/personnel-api/internal/database"
	"github.com/perscom/personnel-api/internal/handler"
	"github.com/perscom/personnel-api/internal/middleware"
	"github.com/perscom/personnel-api/internal/models"
	"github.com/perscom/personnel-api/internal/observability"
	"github.com/perscom/personnel-api/internal/repository"
	"github.com/perscom/personnel-api/internal/router"
	"github.com/perscom/personnel-api/internal/service"
	"github.com/perscom/personnel-api/pkg/cloudstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	observability.RegisterMetrics()

	db, err := database.ConnectPostgres(cfg.DatabaseURL, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Admin{},
		&models.Procedure{},
		&models.ProcedureAssignment{},
		&models.ActivityLog{},
		&models.Notification{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Redis and NATS are optional: without them the service runs with the
	// unread-count cache and cross-node events disabled.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not configured, unread-count cache disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats url not configured, cross-node notification events disabled")
	}

	var storage service.FileStorage
	if cfg.CloudinaryCloudName != "" {
		uploader, err := cloudstore.New(cloudstore.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		storage = uploader
	} else {
		logger.Warn().Msg("cloudinary not configured, photo uploads disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	procedureRepo := repository.NewProcedureRepository(db)

	recorder := audit.NewWriter(activityRepo, cfg.AuditQueueSize, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder.Start(ctx)
	defer recorder.Close()

	notificationService := service.NewNotificationService(
		notificationRepo, userRepo, adminRepo,
		redisClient, cfg.UnreadCacheTTL, natsConn,
		validate, logger,
	)
	notificationService.Start(ctx)

	authService := service.NewAuthService(
		userRepo, adminRepo, notificationService, recorder,
		validate, cfg.JWTSecret, cfg.TokenTTL, cfg.LockDuration, logger,
	)
	userService := service.NewUserService(userRepo, validate, logger)
	adminService := service.NewAdminService(userRepo, notificationService, validate, logger)
	procedureService := service.NewProcedureService(procedureRepo, notificationService, validate, logger)
	activityService := service.NewActivityService(activityRepo, logger)
	uploadService := service.NewUploadService(storage, userService, cfg.MaxPhotoMB, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:         handler.NewAuthHandler(authService, logger),
		UserHandler:         handler.NewUserHandler(userService, procedureService, uploadService, logger),
		AdminHandler:        handler.NewAdminHandler(adminService, logger),
		ProcedureHandler:    handler.NewProcedureHandler(procedureService, logger),
		ActivityHandler:     handler.NewActivityHandler(activityService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger),
		Recorder:            recorder,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
