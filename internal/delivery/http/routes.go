package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/suplementor/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RecoveryMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		supplements := v1.Group("/supplements")
		{
			supplements.GET("", handler.ListSupplements)
			supplements.GET("/:id", handler.GetSupplement)
		}

		v1.POST("/recommendations", handler.Recommend)

		interactions := v1.Group("/interactions")
		{
			interactions.POST("", handler.AnalyzeInteractions)
			interactions.GET("/:idA/:idB", handler.AnalyzePair)
			interactions.POST("/safety-summary", handler.SafetySummary)
			interactions.POST("/medications", handler.CheckMedications)
			interactions.POST("/graph", handler.BuildGraph)
		}
	}

	return router
}
