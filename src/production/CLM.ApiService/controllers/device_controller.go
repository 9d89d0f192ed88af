package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/maplesense1/climate_monitor/src/production/CLM.ApiService/implementation/query"
	logger "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Logger"
)

// DeviceController serves the device roster
type DeviceController struct {
	query    *query.Service
	logger   *logger.Logger
	detailed bool
}

// NewDeviceController creates a new device controller
func NewDeviceController(queryService *query.Service, logger *logger.Logger, detailedErrors bool) *DeviceController {
	return &DeviceController{
		query:    queryService,
		logger:   logger,
		detailed: detailedErrors,
	}
}

// RegisterRoutes registers the device routes with Gin
func (c *DeviceController) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/devices", c.ListDevices)
}

func (c *DeviceController) ListDevices(ctx *gin.Context) {
	result, err := c.query.Devices(ctx.Request.Context())
	if err != nil {
		writeError(ctx, c.logger, c.detailed, "Error fetching devices", err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}
