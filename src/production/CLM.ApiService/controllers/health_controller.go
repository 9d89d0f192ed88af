package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/maplesense1/climate_monitor/src/production/CLM.ApiService/health"
)

// HealthController handles health and metrics requests
type HealthController struct {
	checker *health.HealthChecker
	metrics http.Handler
}

// NewHealthController creates a new health controller
func NewHealthController(checker *health.HealthChecker, metricsHandler http.Handler) *HealthController {
	return &HealthController{
		checker: checker,
		metrics: metricsHandler,
	}
}

// RegisterRoutes registers the health routes with Gin
func (c *HealthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", c.Health)
	router.GET("/metrics", gin.WrapH(c.metrics))
}

func (c *HealthController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.checker.GetHealthStatus(ctx.Request.Context()))
}
