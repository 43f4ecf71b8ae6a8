package handler

import (
	"net/http"

	"github.com/dafedescribe/wey/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(
	linkHandler *LinkHandler,
	webhookHandler *WebhookHandler,
	rateLimiter *middleware.RateLimiter,
	apiKeyMiddleware gin.HandlerFunc,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	if logger != nil {
		router.Use(func(c *gin.Context) {
			logger.Info("request",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
			)
			c.Next()
		})
	}

	if rateLimiter != nil {
		router.Use(rateLimiter.Middleware())
	}

	api := router.Group("/api")
	{
		api.GET("/health", HealthCheck)
		api.GET("/stats/:code", linkHandler.GetStats)
		api.GET("/stats/:code/daily", linkHandler.GetDailyStats)

		// Admin surface; protected when API keys are configured.
		admin := api.Group("")
		if apiKeyMiddleware != nil {
			admin.Use(apiKeyMiddleware)
		}
		admin.GET("/links", linkHandler.ListLinks)
		admin.DELETE("/links/:code", linkHandler.Deactivate)
	}

	router.POST("/webhook/message", webhookHandler.HandleMessage)
	router.GET("/preview/:code", linkHandler.Preview)
	router.GET("/:code", linkHandler.Redirect)

	return router
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
