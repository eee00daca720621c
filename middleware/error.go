package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"FitCoachAI/pkg/logger"
)

// ErrorHandler renders errors pushed with c.Error as a generic 500. The
// cause is logged, never sent to the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		logger.WithContext(c.Request.Context()).Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		if c.Writer.Written() {
			return
		}
		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": "Internal server error"})
	}
}
