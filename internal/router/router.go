// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vendora/marketplace-backend/internal/config"
	"github.com/vendora/marketplace-backend/internal/handlers"
	"github.com/vendora/marketplace-backend/internal/middleware"
	"github.com/vendora/marketplace-backend/internal/services"
	"github.com/vendora/marketplace-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	notificationService := services.NewNotificationService(db, cfg)
	storageService, _ := services.NewStorageService(cfg)

	authService := services.NewAuthService(db, cfg)
	userService := services.NewUserService(db)
	ruleService := services.NewRuleService(db)
	legalService := services.NewLegalService(db)
	storeService := services.NewStoreService(db)
	catalogService := services.NewCatalogService(db)
	orderService := services.NewOrderService(db, cfg, ruleService)
	settlementService := services.NewSettlementService(db)
	returnsService := services.NewReturnsService(db, cfg)
	moderationService := services.NewModerationService(db)
	flagService := services.NewFeatureFlagService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	ruleHandler := handlers.NewRuleHandler(ruleService)
	legalHandler := handlers.NewLegalHandler(legalService)
	storeHandler := handlers.NewStoreHandler(storeService)
	catalogHandler := handlers.NewCatalogHandler(catalogService, storeService, storageService, moderationService)
	orderHandler := handlers.NewOrderHandler(orderService, storeService)
	settlementHandler := handlers.NewSettlementHandler(settlementService, storeService)
	returnHandler := handlers.NewReturnHandler(returnsService, storeService)
	adminHandler := handlers.NewAdminHandler(db, userService, moderationService, flagService, notificationService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS([]string{cfg.Frontend.BaseURL}))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", middleware.AuthRequired(), authHandler.Logout)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/forgot-password", authHandler.ForgotPassword)
			auth.POST("/reset-password", authHandler.ResetPassword)
			auth.POST("/verify-email", authHandler.VerifyEmail)
			auth.GET("/me", middleware.AuthRequired(), authHandler.Me)
		}

		// User profile routes
		users := v1.Group("/users")
		users.Use(middleware.AuthRequired())
		{
			users.GET("/me", userHandler.GetProfile)
			users.PUT("/me", userHandler.UpdateProfile)
			users.POST("/me/password", userHandler.ChangePassword)
		}

		// Legal document routes
		legal := v1.Group("/legal")
		{
			legal.GET("/consent/pending", middleware.AuthRequired(), legalHandler.PendingConsents)
			legal.GET("/consent/history", middleware.AuthRequired(), legalHandler.ConsentHistory)
			legal.POST("/consent", middleware.AuthRequired(), legalHandler.RecordConsent)
			legal.GET("/:type", legalHandler.GetActiveDocument)
		}

		// Public storefront routes
		stores := v1.Group("/stores")
		{
			stores.GET("/:slug", storeHandler.GetStoreBySlug)
		}

		categories := v1.Group("/categories")
		{
			categories.GET("", catalogHandler.CategoryTree)
		}

		products := v1.Group("/products")
		{
			products.GET("", middleware.OptionalAuth(), catalogHandler.SearchProducts)
			products.GET("/:id", middleware.OptionalAuth(), catalogHandler.GetProduct)
			products.GET("/:id/reviews", catalogHandler.ProductReviews)
			products.POST("/:id/reviews", middleware.AuthRequired(), catalogHandler.SubmitReview)
		}

		// Order routes (buyer side)
		orders := v1.Group("/orders")
		orders.Use(middleware.AuthRequired())
		{
			orders.POST("", orderHandler.PlaceOrder)
			orders.GET("", orderHandler.MyOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.POST("/:id/payment-intent", orderHandler.CreatePaymentIntent)
			orders.POST("/:id/confirm", orderHandler.ConfirmPayment)
			orders.POST("/:id/complete", orderHandler.CompleteOrder)
		}

		// Refund routes
		refunds := v1.Group("/refunds")
		refunds.Use(middleware.AuthRequired())
		{
			refunds.POST("", orderHandler.RequestRefund)
		}

		// Return routes (buyer side)
		returns := v1.Group("/returns")
		returns.Use(middleware.AuthRequired())
		{
			returns.POST("", returnHandler.RequestReturn)
			returns.GET("", returnHandler.MyReturns)
			returns.GET("/:id", returnHandler.GetReturn)
		}

		// Settlement lookup (owner or admin)
		settlements := v1.Group("/settlements")
		settlements.Use(middleware.AuthRequired())
		{
			settlements.GET("/:id", settlementHandler.GetSettlement)
			settlements.GET("/:id/history", settlementHandler.VersionHistory)
		}

		// Seller routes
		seller := v1.Group("/seller")
		seller.Use(middleware.AuthRequired(), middleware.SellerRequired())
		{
			sellerStores := seller.Group("/stores")
			{
				sellerStores.POST("", storeHandler.CreateStore)
				sellerStores.GET("/mine", storeHandler.MyStore)
				sellerStores.PUT("/:id", storeHandler.UpdateStore)
			}

			sellerProducts := seller.Group("/products")
			{
				sellerProducts.POST("", catalogHandler.CreateProduct)
				sellerProducts.PUT("/:id", catalogHandler.UpdateProduct)
				sellerProducts.POST("/:id/publish", catalogHandler.PublishProduct)
				sellerProducts.POST("/:id/unpublish", catalogHandler.UnpublishProduct)
				sellerProducts.POST("/:id/photos", middleware.UploadRateLimit(), catalogHandler.UploadPhoto)
			}

			seller.GET("/orders", orderHandler.StoreOrders)
			seller.GET("/settlements", settlementHandler.MyStoreSettlements)

			sellerReturns := seller.Group("/returns")
			{
				sellerReturns.GET("", returnHandler.StoreReturns)
				sellerReturns.POST("/:id/respond", returnHandler.RespondToReturn)
			}
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			// Platform rule management
			adminRules := admin.Group("/rules")
			{
				adminRules.GET("", ruleHandler.ListRules)
				adminRules.GET("/active", ruleHandler.ActiveRules)
				adminRules.GET("/future", ruleHandler.FutureRules)
				adminRules.POST("", ruleHandler.CreateRule)
				adminRules.GET("/:id", ruleHandler.GetRule)
				adminRules.PUT("/:id", ruleHandler.UpdateRule)
				adminRules.DELETE("/:id", ruleHandler.DeleteRule)
				adminRules.POST("/:id/deactivate", ruleHandler.DeactivateRule)
			}

			// Legal document management
			adminLegal := admin.Group("/legal")
			{
				adminLegal.POST("", legalHandler.CreateDocument)
				adminLegal.POST("/:id/activate", legalHandler.ActivateDocument)
				adminLegal.GET("/:type/versions", legalHandler.ListVersions)
			}

			// Settlement management
			adminSettlements := admin.Group("/settlements")
			{
				adminSettlements.POST("", settlementHandler.GenerateSettlement)
				adminSettlements.POST("/:id/finalize", settlementHandler.FinalizeSettlement)
				adminSettlements.POST("/:id/regenerate", settlementHandler.RegenerateSettlement)
				adminSettlements.POST("/:id/adjustments", settlementHandler.AddAdjustment)
			}

			// Store management
			adminStores := admin.Group("/stores")
			{
				adminStores.GET("", storeHandler.ListStores)
				adminStores.POST("/:id/approve", storeHandler.ApproveStore)
				adminStores.POST("/:id/suspend", storeHandler.SuspendStore)
				adminStores.POST("/:id/tier", storeHandler.ChangeTier)
			}

			// Category management
			adminCategories := admin.Group("/categories")
			{
				adminCategories.POST("", catalogHandler.CreateCategory)
				adminCategories.DELETE("/:id", catalogHandler.DeleteCategory)
				adminCategories.POST("/:id/attributes", catalogHandler.AddAttribute)
			}

			// Refund decisions
			adminRefunds := admin.Group("/refunds")
			{
				adminRefunds.POST("/:id/decide", orderHandler.DecideRefund)
			}

			// Return escalations
			adminReturns := admin.Group("/returns")
			{
				adminReturns.GET("/escalated", returnHandler.EscalatedReturns)
				adminReturns.POST("/:id/resolve", returnHandler.ResolveReturn)
			}

			// User management
			adminUsers := admin.Group("/users")
			{
				adminUsers.GET("", adminHandler.ListUsers)
				adminUsers.POST("/:id/status", adminHandler.SetUserStatus)
			}

			// Content moderation
			adminModeration := admin.Group("/moderation")
			{
				adminModeration.GET("/queue", adminHandler.ModerationQueue)
				adminModeration.POST("/:id/decide", adminHandler.DecideModeration)
			}

			// Feature flags
			adminFlags := admin.Group("/feature-flags")
			{
				adminFlags.GET("", adminHandler.ListFlags)
				adminFlags.PUT("/:key", adminHandler.SetFlag)
				adminFlags.PUT("/:key/overrides", adminHandler.SetFlagOverride)
				adminFlags.DELETE("/:key/overrides/:storeId", adminHandler.RemoveFlagOverride)
			}

			// Notifications and audit trail
			adminNotifications := admin.Group("/notifications")
			{
				adminNotifications.GET("", adminHandler.ListNotifications)
				adminNotifications.POST("/:id/read", adminHandler.MarkNotificationRead)
			}

			admin.GET("/audit-logs", adminHandler.ListAuditLogs)
		}
	}

	// Static file serving (for development)
	if cfg.Environment == "development" {
		r.Static("/uploads", "./uploads")
	}

	return r
}
