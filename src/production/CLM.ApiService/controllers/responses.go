package controllers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gitlab.com/maplesense1/climate_monitor/src/production/CLM.ApiService/implementation/validation"
	"gitlab.com/maplesense1/climate_monitor/src/production/CLM.ApiService/middleware"
	logger "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Logger"
)

// writeError maps service errors onto the API's status codes. Validation
// failures are client faults; everything else is reported as a 500 whose
// message is only detailed in development mode.
func writeError(ctx *gin.Context, log *logger.Logger, detailed bool, msg string, err error) {
	var vErr *validation.ValidationError
	if errors.As(err, &vErr) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
		return
	}

	middleware.GetLoggerFromGinContext(ctx, log).ErrorWithError(err, msg)
	_ = ctx.Error(err)
	ctx.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Internal server error",
		"message": middleware.PublicMessage(err, detailed),
	})
}

func badRequest(ctx *gin.Context, format string, args ...interface{}) {
	ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf(format, args...)})
}

// parseLimit reads an optional positive integer; 0 means "not supplied"
func parseLimit(ctx *gin.Context) (int, error) {
	raw := strings.TrimSpace(ctx.Query("limit"))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer, got %q", raw)
	}
	return n, nil
}

// parseHours reads an optional positive number of hours; 0 means "not supplied"
func parseHours(ctx *gin.Context) (float64, error) {
	raw := strings.TrimSpace(ctx.Query("hours"))
	if raw == "" {
		return 0, nil
	}
	h, err := strconv.ParseFloat(raw, 64)
	if err != nil || h <= 0 || math.IsInf(h, 0) {
		return 0, fmt.Errorf("hours must be a positive number, got %q", raw)
	}
	return h, nil
}

// parseTime accepts RFC3339 timestamps, plain dates and Unix epoch seconds
func parseTime(name, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return &t, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil && validation.ValidEpochSeconds(secs) {
		t := validation.FromEpochSeconds(secs)
		return &t, nil
	}
	return nil, fmt.Errorf("%s must be an RFC3339 timestamp or Unix seconds, got %q", name, raw)
}
