package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/unimarket/unimarket-backend/config"
	"github.com/unimarket/unimarket-backend/internal/app/controller"
	"github.com/unimarket/unimarket-backend/internal/app/repository"
	"github.com/unimarket/unimarket-backend/internal/app/service"
	"github.com/unimarket/unimarket-backend/internal/db"
	"github.com/unimarket/unimarket-backend/internal/middleware"
	"github.com/unimarket/unimarket-backend/internal/router"
	"github.com/unimarket/unimarket-backend/internal/scheduler"
	"github.com/unimarket/unimarket-backend/internal/storage"
	"github.com/unimarket/unimarket-backend/internal/websocket"
	"github.com/unimarket/unimarket-backend/internal/worker"
	"github.com/unimarket/unimarket-backend/pkg/logger"
	"github.com/unimarket/unimarket-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting UniMarket Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Initialize Redis (token blacklist)
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Fatal("Failed to initialize Redis", err)
	}
	defer func() {
		if err := redis.Close(); err != nil {
			logger.Error("Failed to close Redis connection", err)
		}
	}()

	// Initialize S3 storage for presigned uploads
	s3Storage, err := storage.NewS3Storage(&cfg.S3)
	if err != nil {
		logger.Fatal("Failed to initialize S3 storage", err)
	}

	// WebSocket hub for chat and notification pushes
	hub := websocket.NewHub()
	go hub.Run()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	verificationRepo := repository.NewVerificationRepository(db.GetDB())
	listingRepo := repository.NewListingRepository(db.GetDB())
	chatRepo := repository.NewChatRepository(db.GetDB())
	notificationRepo := repository.NewNotificationRepository(db.GetDB())

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	faceMatchService := service.NewFaceMatchService(cfg)
	ocrService := service.NewOCRService(cfg)
	trustService := service.NewTrustService()
	notificationService := service.NewNotificationService(notificationRepo, hub)
	verificationService := service.NewVerificationService(
		verificationRepo,
		userRepo,
		listingRepo,
		faceMatchService,
		ocrService,
		trustService,
		notificationService,
		nil, // environment-backed verification config
	)
	listingService := service.NewListingService(listingRepo, userRepo, trustService, notificationService)
	chatService := service.NewChatService(chatRepo, listingRepo, hub, notificationService)
	reportService := service.NewReportService(verificationRepo)

	// Initialize controllers
	authController := controller.NewAuthController(authService)
	verificationController := controller.NewVerificationController(verificationService)
	adminVerificationController := controller.NewAdminVerificationController(verificationService, reportService)
	listingController := controller.NewListingController(listingService)
	chatController := controller.NewChatController(chatService, hub)
	notificationController := controller.NewNotificationController(notificationService)
	uploadController := controller.NewUploadController(s3Storage)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Setup router
	r := router.NewRouter(
		authController,
		verificationController,
		adminVerificationController,
		listingController,
		chatController,
		notificationController,
		uploadController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	// Background queue worker for async verification submissions
	verificationWorker := worker.NewVerificationWorker(verificationService, nil)
	verificationWorker.Start()
	defer verificationWorker.Stop()

	// Daily retention cleanup
	cleanupScheduler := scheduler.NewCleanupScheduler(verificationService)
	if err := cleanupScheduler.Start(); err != nil {
		logger.Fatal("Failed to start cleanup scheduler", err)
	}
	defer cleanupScheduler.Stop()

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
