// internal/router/router.go
package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ciclismo-epn/club-backend/internal/config"
	"github.com/ciclismo-epn/club-backend/internal/handlers"
	"github.com/ciclismo-epn/club-backend/internal/middleware"
	"github.com/ciclismo-epn/club-backend/internal/queue"
	"github.com/ciclismo-epn/club-backend/internal/services"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

// Options carries the collaborators that are chosen at startup.
type Options struct {
	// Dispatcher receives deferred tasks; nil drops them.
	Dispatcher queue.Dispatcher
	// Payments is the card gateway; nil disables donations.
	Payments services.PaymentGateway
}

func Initialize(db *gorm.DB, cfg *config.Config, opts Options) (*gin.Engine, error) {
	// Initialize services
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	invoiceService := services.NewInvoiceService(storageService, cfg.Club)

	authService := services.NewAuthService(db, cfg, opts.Dispatcher)
	userService := services.NewUserService(db, storageService)
	catalogService := services.NewCatalogService(db, storageService)
	orderService := services.NewOrderService(db, storageService, invoiceService, opts.Dispatcher)
	financeService := services.NewFinanceService(db)
	sponsorService := services.NewSponsorService(db, opts.Dispatcher)
	documentService := services.NewDocumentService(db, storageService)
	donationService := services.NewDonationService(db, opts.Payments, opts.Dispatcher, cfg.Payment)
	membershipService := services.NewMembershipService(db, opts.Dispatcher)
	eventService := services.NewEventService(db, cfg.Club.Location())
	adminService := services.NewAdminService(db)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	authHandler := handlers.NewAuthHandler(authService, userService)
	userHandler := handlers.NewUserHandler(userService)
	resourceHandler := handlers.NewResourceHandler(catalogService)
	orderHandler := handlers.NewOrderHandler(orderService)
	financeHandler := handlers.NewFinanceHandler(financeService)
	sponsorHandler := handlers.NewSponsorHandler(sponsorService)
	documentHandler := handlers.NewDocumentHandler(documentService)
	donationHandler := handlers.NewDonationHandler(donationService)
	membershipHandler := handlers.NewMembershipHandler(membershipService)
	eventHandler := handlers.NewEventHandler(eventService)
	adminHandler := handlers.NewAdminHandler(adminService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.I18nMiddleware())
	if cfg.Server.RateLimit {
		r.Use(middleware.GeneralRateLimit())
	}
	r.Use(middleware.AuditLogMiddleware(db))

	var authLimit, uploadLimit gin.HandlerFunc = passThrough, passThrough
	if cfg.Server.RateLimit {
		authLimit = middleware.AuthRateLimit()
		uploadLimit = middleware.UploadRateLimit()
	}

	r.GET("/health", healthHandler.Health)

	if !storageService.IsRemote() {
		r.Static(cfg.Storage.PublicURL, cfg.Storage.UploadDir)
	}

	auth := r.Group("/auth")
	{
		auth.POST("/register", authLimit, authHandler.Register)
		auth.POST("/token", authLimit, authHandler.Login)
		auth.POST("/refresh", authLimit, authHandler.RefreshToken)
		auth.POST("/forgot-password", authLimit, authHandler.ForgotPassword)
		auth.POST("/reset-password", authLimit, authHandler.ResetPassword)

		me := auth.Group("/me")
		me.Use(middleware.AuthRequired())
		{
			me.GET("", authHandler.GetMe)
			me.PUT("", authHandler.UpdateMe)
			me.PUT("/password", authHandler.ChangePassword)
			me.POST("/photo", uploadLimit, authHandler.UploadPhoto)
		}
	}

	users := r.Group("/usuarios")
	users.Use(middleware.AuthRequired(), middleware.AdminRequired())
	{
		users.GET("", userHandler.ListUsers)
		users.PUT("/:id/rol", userHandler.UpdateRole)
		users.DELETE("/:id", userHandler.DeleteUser)
	}

	ventas := r.Group("/ventas")
	{
		ventas.POST("/checkout", middleware.OptionalAuth(), uploadLimit, orderHandler.Checkout)

		admin := ventas.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/", orderHandler.ListOrders)
			admin.GET("/:id", orderHandler.GetOrder)
			admin.PUT("/:id/confirmar", orderHandler.ConfirmOrder)
			admin.PUT("/:id/cancelar", orderHandler.CancelOrder)
		}
	}

	recursos := r.Group("/recursos")
	{
		recursos.GET("/", resourceHandler.ListResources)
		recursos.GET("/publicos", resourceHandler.ListPublic)
		recursos.GET("/:id", resourceHandler.GetResource)

		admin := recursos.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.POST("/", uploadLimit, resourceHandler.CreateResource)
			admin.PUT("/:id", uploadLimit, resourceHandler.UpdateResource)
			admin.DELETE("/:id", resourceHandler.DeleteResource)
			admin.POST("/:id/comprar", resourceHandler.PurchaseOne)
			admin.POST("/:id/imagenes", uploadLimit, resourceHandler.AddImages)
			admin.DELETE("/:id/imagenes/:image_id", resourceHandler.DeleteImage)
		}
	}

	finanzas := r.Group("/finanzas")
	finanzas.Use(middleware.AuthRequired(), middleware.AdminRequired())
	{
		finanzas.POST("/", financeHandler.RecordTransaction)
		finanzas.GET("/", financeHandler.ListTransactions)
		finanzas.GET("/balance", financeHandler.GetBalance)
	}

	sponsors := r.Group("/sponsors")
	{
		sponsors.POST("/apply", middleware.OptionalAuth(), uploadLimit, sponsorHandler.Apply)

		admin := sponsors.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("", sponsorHandler.ListApplications)
			admin.PUT("/:id/status", sponsorHandler.UpdateStatus)
		}
	}

	documentos := r.Group("/documentos")
	documentos.Use(middleware.AuthRequired())
	{
		documentos.GET("/", documentHandler.ListDocuments)
		documentos.GET("/:id", documentHandler.GetDocument)
		documentos.GET("/:id/descargar", documentHandler.DownloadDocument)

		admin := documentos.Group("")
		admin.Use(middleware.AdminRequired())
		{
			admin.POST("/", uploadLimit, documentHandler.CreateDocument)
			admin.PUT("/:id", uploadLimit, documentHandler.UpdateDocument)
			admin.DELETE("/:id", documentHandler.DeleteDocument)
		}
	}

	donaciones := r.Group("/donaciones")
	donaciones.Use(middleware.OptionalAuth())
	{
		donaciones.POST("/intent", donationHandler.CreateIntent)
		donaciones.POST("/confirm", donationHandler.Confirm)
	}

	memberships := r.Group("/memberships")
	memberships.Use(middleware.AuthRequired())
	{
		memberships.POST("/", membershipHandler.Create)
		memberships.GET("/my-status", membershipHandler.MyStatus)
		memberships.PUT("/:user_id", membershipHandler.Update)
		memberships.POST("/:user_id/renew", membershipHandler.Renew)
		memberships.POST("/:user_id/request-reactivation", membershipHandler.RequestReactivation)
		memberships.GET("/:user_id/payments", membershipHandler.Payments)
		memberships.GET("/:user_id/participation-stats", membershipHandler.ParticipationStats)

		admin := memberships.Group("")
		admin.Use(middleware.AdminRequired())
		{
			admin.GET("/", membershipHandler.List)
			admin.GET("/stats", membershipHandler.Stats)
			admin.PUT("/:user_id/status", membershipHandler.SetStatus)
			admin.POST("/:user_id/payments", membershipHandler.RecordPayment)
		}
	}

	events := r.Group("/event")
	{
		events.GET("/next", eventHandler.Next)
		events.GET("/public_upcoming", eventHandler.PublicUpcoming)

		members := events.Group("")
		members.Use(middleware.AuthRequired())
		{
			members.GET("/", eventHandler.List)
			members.GET("/:id", eventHandler.Get)
		}

		admin := events.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.POST("/create", eventHandler.Create)
			admin.PUT("/update/:id", eventHandler.Update)
			admin.DELETE("/delete/:id", eventHandler.Delete)
		}
	}

	participants := r.Group("/participants")
	participants.Use(middleware.AuthRequired())
	{
		participants.POST("/register_event", eventHandler.Register)
		participants.DELETE("/unregister_event/:event_id", eventHandler.Unregister)
		participants.GET("/my_events", eventHandler.MyEvents)
		participants.GET("/event/:event_id", middleware.AdminRequired(), eventHandler.Participants)
	}

	adminRoutes := r.Group("/admin")
	adminRoutes.Use(middleware.AuthRequired(), middleware.AdminRequired())
	{
		adminRoutes.GET("/dashboard", adminHandler.GetDashboardStats)
		adminRoutes.GET("/audit-logs", adminHandler.GetAuditLogs)
	}

	return r, nil
}

func passThrough(c *gin.Context) { c.Next() }
