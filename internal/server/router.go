package server

import (
	"auction-console/internal/models"
	handler "auction-console/services/console/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the console
func SetupRouter(h *handler.Handler, gate *Gate) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.CustomRecovery(h.RecoveryHandler)) // recovery view with a reset action
	router.Use(RequestLoggerMiddleware)               // custom request logging

	router.GET("/", h.HomeHandler)
	router.POST("/logout", h.LogoutHandler)
	router.POST("/reset", h.ResetHandler)

	router.GET("/login", gate.RedirectAuthenticated, h.ShowLoginHandler)
	router.GET("/register", gate.RedirectAuthenticated, h.ShowRegisterHandler)
	router.POST("/login", h.LoginHandler)
	router.POST("/register", h.RegisterHandler)

	notifications := router.Group("/notifications")
	{
		notifications.GET("", h.ListNotificationsHandler)
		notifications.DELETE("/:id", h.DismissNotificationHandler)
	}

	canBid := gate.RequireRoles(models.RoleBidder, models.RoleAdmin)
	canSell := gate.RequireRoles(models.RoleSeller, models.RoleAdmin)

	auctions := router.Group("/auctions", gate.RequireAuth)
	{
		auctions.GET("", h.ListAuctionsHandler)
		auctions.GET("/:id", h.AuctionDetailHandler)
		auctions.GET("/:id/winner", h.WinnerHandler)
		auctions.POST("/:id/bids", canBid, h.PlaceBidHandler)
		auctions.GET("/:id/live", h.LiveAuctionHandler)
		auctions.POST("/:id/live/bids", canBid, h.LiveBidHandler)
	}

	create := router.Group("/create-auction", gate.RequireAuth, canSell)
	{
		create.GET("", h.ShowCreateAuctionHandler)
		create.POST("", h.CreateAuctionHandler)
	}

	seller := router.Group("/seller", gate.RequireAuth, canSell)
	{
		seller.GET("", h.SellerDashboardHandler)
		seller.PUT("/auctions/:id", h.UpdateAuctionHandler)
		seller.DELETE("/auctions/:id", h.DeleteAuctionHandler)
		seller.POST("/auctions/:id/activate", h.ActivateAuctionHandler)
	}

	admin := router.Group("/admin", gate.RequireAuth, gate.RequireRoles(models.RoleAdmin))
	{
		admin.GET("", h.AdminDashboardHandler)
		admin.DELETE("/users/:id", h.AdminDeleteUserHandler)
		admin.DELETE("/auctions/:id", h.AdminDeleteAuctionHandler)
	}

	return router
}
