package router

import (
	"github.com/gin-gonic/gin"

	"github.com/unimarket/unimarket-backend/config"
	"github.com/unimarket/unimarket-backend/internal/app/controller"
	"github.com/unimarket/unimarket-backend/internal/middleware"
)

type Router struct {
	authController              *controller.AuthController
	verificationController      *controller.VerificationController
	adminVerificationController *controller.AdminVerificationController
	listingController           *controller.ListingController
	chatController              *controller.ChatController
	notificationController      *controller.NotificationController
	uploadController            *controller.UploadController
	authMiddleware              *middleware.AuthMiddleware
	config                      *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	verificationController *controller.VerificationController,
	adminVerificationController *controller.AdminVerificationController,
	listingController *controller.ListingController,
	chatController *controller.ChatController,
	notificationController *controller.NotificationController,
	uploadController *controller.UploadController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:              authController,
		verificationController:      verificationController,
		adminVerificationController: adminVerificationController,
		listingController:           listingController,
		chatController:              chatController,
		notificationController:      notificationController,
		uploadController:            uploadController,
		authMiddleware:              authMiddleware,
		config:                      cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "UniMarket API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/refresh", r.authController.Refresh)
			auth.POST("/logout", r.authMiddleware.Authenticate(), r.authController.Logout)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
			auth.PUT("/me", r.authMiddleware.Authenticate(), r.authController.UpdateMe)
		}

		verification := v1.Group("/verification")
		verification.Use(r.authMiddleware.Authenticate())
		{
			verification.POST("", r.verificationController.Submit)
			verification.GET("/status", r.verificationController.GetStatus)
		}

		admin := v1.Group("/admin/verification")
		admin.Use(r.authMiddleware.Authenticate())
		admin.Use(r.authMiddleware.RequireRole("admin"))
		{
			admin.GET("/pending", r.adminVerificationController.ListPending)
			admin.PUT("/:id/review", r.adminVerificationController.Review)
			admin.POST("/batch", r.adminVerificationController.RunBatch)
			admin.GET("/health", r.adminVerificationController.Health)
			admin.POST("/cleanup", r.adminVerificationController.Cleanup)
			admin.GET("/export", r.adminVerificationController.Export)
		}

		listings := v1.Group("/listings")
		{
			listings.GET("", r.listingController.ListListings)
			listings.GET("/:id", r.listingController.GetListing)

			listings.POST("", r.authMiddleware.Authenticate(), r.listingController.CreateListing)
			listings.PUT("/:id", r.authMiddleware.Authenticate(), r.listingController.UpdateListing)
			listings.PUT("/:id/status", r.authMiddleware.Authenticate(), r.listingController.UpdateListingStatus)
			listings.DELETE("/:id", r.authMiddleware.Authenticate(), r.listingController.DeleteListing)
		}

		chat := v1.Group("/chat")
		chat.Use(r.authMiddleware.Authenticate())
		{
			chat.POST("/rooms", r.chatController.OpenRoom)
			chat.GET("/rooms", r.chatController.GetRooms)
			chat.GET("/rooms/:id/messages", r.chatController.GetMessages)
			chat.POST("/rooms/:id/messages", r.chatController.SendMessage)
			chat.PUT("/rooms/:id/read", r.chatController.MarkAsRead)
			chat.POST("/rooms/:id/join", r.chatController.JoinRoom)
			chat.POST("/rooms/:id/leave", r.chatController.LeaveRoom)
		}

		// The browser WebSocket API cannot set an Authorization header,
		// so this route authenticates via a token query parameter.
		v1.GET("/ws", r.authMiddleware.Authenticate(), r.chatController.WebSocketHandler)

		notifications := v1.Group("/notifications")
		notifications.Use(r.authMiddleware.Authenticate())
		{
			notifications.GET("", r.notificationController.GetNotifications)
			notifications.GET("/unread-count", r.notificationController.GetUnreadCount)
			notifications.PUT("/:id/read", r.notificationController.MarkAsRead)
			notifications.PUT("/read-all", r.notificationController.MarkAllAsRead)
			notifications.DELETE("/:id", r.notificationController.DeleteNotification)
		}

		uploads := v1.Group("/uploads")
		uploads.Use(r.authMiddleware.Authenticate())
		{
			uploads.POST("/presigned-url", r.uploadController.GetPresignedURL)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
