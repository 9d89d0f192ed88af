package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	logger "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Logger"
)

// Recovery turns panics into a 500 JSON response. The panic value is only
// returned to the client when detailed is set (development mode).
func Recovery(log *logger.Logger, detailed bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				err := fmt.Errorf("panic: %v", rec)
				GetLoggerFromGinContext(c, log).ErrorWithError(err, "Unhandled error")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   "Internal server error",
					"message": PublicMessage(err, detailed),
				})
			}
		}()
		c.Next()
	}
}

// NotFound answers unmatched routes
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Route not found",
			"message": fmt.Sprintf("Cannot %s %s", c.Request.Method, c.Request.URL.RequestURI()),
		})
	}
}

// PublicMessage hides internal error details outside development mode
func PublicMessage(err error, detailed bool) string {
	if detailed && err != nil {
		return err.Error()
	}
	return "Something went wrong"
}
