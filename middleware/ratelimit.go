package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"FitCoachAI/pkg/limiter"
	"FitCoachAI/pkg/logger"
)

func clientIP(c *gin.Context) string {
	ip := strings.TrimSpace(c.ClientIP())
	if ip == "" {
		host, _, _ := net.SplitHostPort(strings.TrimSpace(c.Request.RemoteAddr))
		ip = host
	}
	return ip
}

// clientKey identifies a caller by bearer token and address. It must run
// after BearerAuth or QueryTokenAuth.
func clientKey(c *gin.Context) string {
	tok := c.GetString(ContextTokenKey)
	return tok + "@" + clientIP(c)
}

// RateLimit rejects callers over their quota with 429. Limiter failures let
// the request through.
func RateLimit(l limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := l.Allow(c.Request.Context(), clientKey(c))
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		setRateLimitHeaders(c, res)
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(ceilSeconds(res)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, res limiter.Result) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	c.Header("X-RateLimit-Reset", strconv.Itoa(ceilSeconds(res)))
}

func ceilSeconds(res limiter.Result) int {
	s := int(res.ResetIn.Seconds())
	if float64(s) < res.ResetIn.Seconds() {
		s++
	}
	return max(s, 1)
}
