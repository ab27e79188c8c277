package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cinelist/cineapi/internal/keys"
)

var corsAllowedHeaders = strings.Join([]string{
	"Origin",
	"X-Requested-With",
	"Content-Type",
	"Accept",
	"Authorization",
	"X-API-Key",
}, ", ")

var corsExposedHeaders = strings.Join([]string{
	HeaderDailyLimit,
	HeaderDailyRemaining,
	HeaderMonthlyLimit,
	HeaderMonthlyRemaining,
}, ", ")

// DynamicCORS applies CORS headers. Requests authenticated with a
// domain-restricted key are limited to that key's allowed domains;
// everything else falls back to the open default. Must run after
// APIKeyAuth so the key record is available.
func DynamicCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			// Non-browser client; nothing to negotiate.
			c.Next()
			return
		}

		allowed := []string{"*"}
		if key, ok := KeyFromContext(c); ok && key.Domains() != nil {
			allowed = key.Domains()
		}

		if !keys.DomainAllowed(allowed, origin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "CORS policy violation",
				"message": "Origin " + origin + " not allowed by CORS policy",
				"code":    "CORS_NOT_ALLOWED",
			})
			return
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Vary", "Origin")
		c.Header("Access-Control-Allow-Headers", corsAllowedHeaders)
		c.Header("Access-Control-Expose-Headers", corsExposedHeaders)
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
