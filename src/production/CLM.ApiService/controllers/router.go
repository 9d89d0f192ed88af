package controllers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gitlab.com/maplesense1/climate_monitor/src/production/CLM.ApiService/middleware"
	config "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Config"
	logger "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Logger"
)

// RouteRegistrar is implemented by every controller
type RouteRegistrar interface {
	RegisterRoutes(router *gin.Engine)
}

// NewRouter builds the Gin engine with logging, recovery, CORS and the
// JSON 404 handler, then lets each controller register its routes
func NewRouter(cfg *config.Config, log *logger.Logger, registrars ...RouteRegistrar) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Recovery(log, cfg.IsDevelopment()))

	corsConfig := cors.Config{
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	if len(cfg.CORS.AllowedOrigins) == 1 && cfg.CORS.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	router.Use(cors.New(corsConfig))

	for _, r := range registrars {
		r.RegisterRoutes(router)
	}

	router.NoRoute(middleware.NotFound())
	return router
}
