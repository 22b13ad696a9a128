// Package routes defines HTTP routes for the permit service.
package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/naciremadream81/permitpro-v1/docs"
	"github.com/naciremadream81/permitpro-v1/internal/config"
	"github.com/naciremadream81/permitpro-v1/internal/handlers"
	"github.com/naciremadream81/permitpro-v1/internal/metrics"
	"github.com/naciremadream81/permitpro-v1/internal/middleware"
	"github.com/naciremadream81/permitpro-v1/internal/models"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Permits     *handlers.PermitHandler
	Contractors *handlers.ContractorHandler
	Catalog     *handlers.CatalogHandler
	Health      *handlers.HealthHandler
}

// Setup configures all HTTP routes for the application.
func Setup(
	router *gin.Engine,
	h Handlers,
	authenticator middleware.Authenticator,
	cfg *config.Config,
	metricsCollector *metrics.Metrics,
	log logrus.FieldLogger,
) {
	// cors.New panics on an empty origin list.
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Disposition", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	router.Use(middleware.RequestLogger(log))
	router.Use(metricsCollector.Middleware())
	router.Use(middleware.CSRF(middleware.CSRFConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		CookieName:     handlers.AccessTokenCookie,
	}))

	router.GET("/health", h.Health.Check)
	router.GET("/metrics", gin.WrapH(metricsCollector.Handler()))

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
	}

	api.GET("/permit-types", h.Catalog.PermitTypes)
	api.GET("/permit-types/:key", h.Catalog.PermitType)
	api.GET("/counties", h.Catalog.Counties)

	protected := api.Group("")
	protected.Use(middleware.Auth(authenticator, handlers.AccessTokenCookie))
	{
		protected.POST("/auth/logout", h.Auth.Logout)
		protected.GET("/auth/me", h.Auth.Me)

		protected.GET("/permits", h.Permits.List)
		protected.POST("/permits", h.Permits.Create)
		protected.GET("/permits/export.xlsx", h.Permits.Export)
		protected.GET("/permits/:id", h.Permits.Get)
		protected.PATCH("/permits/:id/status", h.Permits.UpdateStatus)
		protected.PUT("/permits/:id/status", h.Permits.UpdateStatus)
		protected.POST("/permits/:id/documents", h.Permits.AddDocument)
		protected.GET("/permits/:id/documents/:docId/content", h.Permits.DocumentContent)
		protected.PATCH("/permits/:id/checklist/:itemId", h.Permits.UpdateChecklistItem)
		protected.GET("/permits/:id/download-all", h.Permits.DownloadAll)
		protected.GET("/dashboard/stats", h.Permits.Stats)

		protected.GET("/contractors", h.Contractors.List)
		protected.GET("/contractors/:id", h.Contractors.Get)
	}

	writes := protected.Group("", middleware.RequireRole(models.Role(cfg.ContractorWriteRole)))
	{
		writes.POST("/contractors", h.Contractors.Create)
		writes.PUT("/contractors/:id", h.Contractors.Update)
		writes.DELETE("/contractors/:id", h.Contractors.Delete)
		writes.PATCH("/contractors/:id/status", h.Contractors.UpdateStatus)
	}

	// Swagger documentation (only if SWAGGER_HOST is configured)
	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}
