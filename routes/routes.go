package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/givers/givers-backend/config"
	"github.com/givers/givers-backend/controllers"
	"github.com/givers/givers-backend/middleware"
	"github.com/givers/givers-backend/services"
)

// Deps bundles everything the route table hands to the handlers.
type Deps struct {
	Cfg         *config.Config
	Users       *services.Users
	Campaigns   *services.Campaigns
	Foundations *services.Foundations
	Checkout    *controllers.Checkout
}

func SetupRoutes(r *gin.Engine, d Deps) {
	// public
	r.POST("/auth/register", controllers.Register(d.Cfg, d.Users))
	r.POST("/auth/login", controllers.Login(d.Cfg, d.Users))
	r.POST("/auth/refresh", controllers.RefreshToken(d.Cfg, d.Users))

	// public catalog reads, donors browse without an account
	r.GET("/campaigns", controllers.ListCampaigns(d.Campaigns))
	r.GET("/campaigns/:id", controllers.GetCampaign(d.Campaigns))
	r.GET("/foundations", controllers.ListFoundations(d.Foundations))
	r.GET("/foundations/:id", controllers.GetFoundation(d.Foundations))
	r.GET("/foundations/:id/campaigns", controllers.CampaignsByFoundation(d.Campaigns))

	// checkout, anonymous contributions are allowed
	r.POST("/contributions", d.Checkout.CreateContribution())
	r.GET("/payments/mercadopago/return", d.Checkout.MercadoPagoReturn())
	r.GET("/payments/webpay/return", d.Checkout.WebpayReturn())
	r.POST("/payments/webpay/return", d.Checkout.WebpayReturn())

	// protected
	auth := middleware.AuthMiddleware(d.Cfg)
	admin := middleware.AdminOnly()

	users := r.Group("/users")
	users.Use(auth)
	{
		users.GET("", admin, controllers.ListUsers(d.Users))
		users.GET("/:id", controllers.GetUser(d.Users))
		users.PATCH("/:id/status", admin, controllers.ToggleUserStatus(d.Users))
		users.DELETE("/:id", admin, controllers.DeleteUser(d.Users))
	}

	campaigns := r.Group("/campaigns")
	campaigns.Use(auth)
	{
		campaigns.POST("", controllers.CreateCampaign(d.Campaigns))
		campaigns.GET("/pending", admin, controllers.PendingCampaigns(d.Campaigns))
		campaigns.GET("/dashboard", admin, controllers.CampaignDashboard(d.Campaigns))
		campaigns.POST("/:id/approve", admin, controllers.ApproveCampaign(d.Campaigns))
		campaigns.POST("/:id/execute", controllers.BeginCampaignExecution(d.Campaigns))
		campaigns.POST("/:id/finish", controllers.FinishCampaign(d.Campaigns))
		campaigns.POST("/:id/video", controllers.UploadCampaignVideo(d.Campaigns))
		campaigns.PATCH("/:id/status", admin, controllers.ToggleCampaignStatus(d.Campaigns))
		campaigns.DELETE("/:id", admin, controllers.DeleteCampaign(d.Campaigns))
	}

	foundations := r.Group("/foundations")
	foundations.Use(auth)
	{
		foundations.POST("", controllers.CreateFoundation(d.Foundations))
		foundations.POST("/:id/multimedia", controllers.UploadFoundationMedia(d.Foundations))
		foundations.PATCH("/:id/status", admin, controllers.ToggleFoundationStatus(d.Foundations))
		foundations.DELETE("/:id", admin, controllers.DeleteFoundation(d.Foundations))
	}

	contributions := r.Group("/contributions")
	contributions.Use(auth)
	{
		contributions.GET("", d.Checkout.ListContributions())
		contributions.GET("/:id", d.Checkout.GetContribution())
	}
}
