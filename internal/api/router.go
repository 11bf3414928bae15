package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/api/handlers"
	"github.com/izerwaren/b2bportal/internal/api/middleware"
	"github.com/izerwaren/b2bportal/internal/config"
	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/repository"
	"github.com/izerwaren/b2bportal/internal/service"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, repos *repository.Repositories, services *service.Services, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(repos, logger))
	{
		customer := api.Group("")
		customer.Use(middleware.RequireRole(domain.RoleCustomer))
		{
			customer.POST("/carts", handlers.HandleCreateCart(services, logger))
			customer.GET("/carts", handlers.HandleListCarts(services, logger))
			customer.GET("/carts/:id", handlers.HandleGetCart(services, logger))
			customer.DELETE("/carts/:id", handlers.HandleDeleteCart(services, logger))
			customer.POST("/carts/:id/items", handlers.HandleAddCartItem(services, logger))
			customer.DELETE("/carts/:id/items", handlers.HandleClearCart(services, logger))
			customer.PATCH("/carts/:id/items/:itemId", handlers.HandleUpdateCartItem(services, logger))
			customer.DELETE("/carts/:id/items/:itemId", handlers.HandleRemoveCartItem(services, logger))
			customer.POST("/carts/:id/validate", handlers.HandleValidateCart(services, logger))
			customer.POST("/carts/:id/checkout", handlers.HandleCheckoutCart(services, logger))
			customer.GET("/carts/:id/export.csv", handlers.HandleExportCart(services, logger))

			customer.POST("/rfq", handlers.HandleSubmitRFQ(services, logger))
			customer.GET("/rfq", handlers.HandleListMyRFQs(services, logger))
			customer.GET("/rfq/:id", handlers.HandleGetRFQ(services, logger))
			customer.POST("/rfq/:id/respond", handlers.HandleRespondRFQ(services, logger))
		}

		rep := api.Group("/rep")
		rep.Use(middleware.RequireRole(domain.RoleRep, domain.RoleAdmin))
		{
			rep.GET("/rfq", handlers.HandleRepListRFQs(services, logger))
			rep.GET("/rfq/:id", handlers.HandleGetRFQ(services, logger))
			rep.PATCH("/rfq/:id/status", handlers.HandleUpdateRFQStatus(services, logger))
			rep.POST("/rfq/:id/quote", handlers.HandleBuildQuote(services, logger))
		}

		admin := api.Group("/admin")
		admin.Use(middleware.RequireRole(domain.RoleAdmin))
		{
			admin.GET("/rfq", handlers.HandleAdminListRFQs(services, logger))
			admin.GET("/rfq/:id/events", handlers.HandleRFQEvents(services, logger))
			admin.POST("/rfq/bulk-assign", handlers.HandleBulkAssign(services, logger))
			admin.POST("/rfq/auto-assign", handlers.HandleAutoAssign(services, logger))
			admin.POST("/rfq/expire-overdue", handlers.HandleExpireOverdue(services, logger))
		}
	}

	return router
}
