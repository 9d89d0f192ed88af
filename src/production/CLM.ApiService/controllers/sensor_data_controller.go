package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/maplesense1/climate_monitor/src/production/CLM.ApiService/implementation/ingestion"
	"gitlab.com/maplesense1/climate_monitor/src/production/CLM.ApiService/implementation/query"
	logger "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Logger"
	clmmodels "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Models"
)

// SensorDataController handles reading ingestion and reading queries
type SensorDataController struct {
	ingestion *ingestion.Service
	query     *query.Service
	logger    *logger.Logger
	detailed  bool
}

// NewSensorDataController creates a new sensor data controller
func NewSensorDataController(ingestionService *ingestion.Service, queryService *query.Service, logger *logger.Logger, detailedErrors bool) *SensorDataController {
	return &SensorDataController{
		ingestion: ingestionService,
		query:     queryService,
		logger:    logger,
		detailed:  detailedErrors,
	}
}

// RegisterRoutes registers the sensor data routes with Gin
func (c *SensorDataController) RegisterRoutes(router *gin.Engine) {
	sensorData := router.Group("/api/sensor-data")
	{
		sensorData.POST("", c.CreateReading)
		sensorData.GET("/latest", c.GetLatest)
		sensorData.GET("/range", c.GetRange)
		sensorData.GET("/stats", c.GetStatistics)
	}
}

func (c *SensorDataController) CreateReading(ctx *gin.Context) {
	// an empty body decodes as {} and fails validation like one
	var payload clmmodels.ReadingPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
		badRequest(ctx, "Invalid JSON body")
		return
	}

	result, err := c.ingestion.Ingest(ctx.Request.Context(), payload)
	if err != nil {
		writeError(ctx, c.logger, c.detailed, "Error saving sensor data", err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message":   "Sensor data saved successfully",
		"id":        result.ID,
		"timestamp": result.Timestamp,
	})
}

func (c *SensorDataController) GetLatest(ctx *gin.Context) {
	limit, err := parseLimit(ctx)
	if err != nil {
		badRequest(ctx, "%v", err)
		return
	}

	result, err := c.query.Latest(ctx.Request.Context(), ctx.Query("deviceId"), limit)
	if err != nil {
		writeError(ctx, c.logger, c.detailed, "Error fetching latest data", err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

func (c *SensorDataController) GetRange(ctx *gin.Context) {
	limit, err := parseLimit(ctx)
	if err != nil {
		badRequest(ctx, "%v", err)
		return
	}
	start, err := parseTime("startTime", ctx.Query("startTime"))
	if err != nil {
		badRequest(ctx, "%v", err)
		return
	}
	end, err := parseTime("endTime", ctx.Query("endTime"))
	if err != nil {
		badRequest(ctx, "%v", err)
		return
	}
	if start != nil && end != nil && start.After(*end) {
		badRequest(ctx, "startTime must not be after endTime")
		return
	}

	filter := clmmodels.ReadingFilter{
		DeviceID: ctx.Query("deviceId"),
		Start:    start,
		End:      end,
		Limit:    limit,
	}

	result, err := c.query.Range(ctx.Request.Context(), filter)
	if err != nil {
		writeError(ctx, c.logger, c.detailed, "Error fetching data range", err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

func (c *SensorDataController) GetStatistics(ctx *gin.Context) {
	hours, err := parseHours(ctx)
	if err != nil {
		badRequest(ctx, "%v", err)
		return
	}

	result, err := c.query.Statistics(ctx.Request.Context(), ctx.Query("deviceId"), hours)
	if err != nil {
		writeError(ctx, c.logger, c.detailed, "Error fetching statistics", err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}
