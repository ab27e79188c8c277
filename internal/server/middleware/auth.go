package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/cinelist/cineapi/internal/keys"
	"github.com/cinelist/cineapi/internal/models"
)

// Rate limit response headers set on every authenticated response.
const (
	HeaderDailyLimit       = "X-RateLimit-Daily-Limit"
	HeaderDailyRemaining   = "X-RateLimit-Daily-Remaining"
	HeaderMonthlyLimit     = "X-RateLimit-Monthly-Limit"
	HeaderMonthlyRemaining = "X-RateLimit-Monthly-Remaining"

	// UnlimitedSentinel is rendered when a window has no limit.
	UnlimitedSentinel = "unlimited"
)

// Gin context keys set by APIKeyAuth on acceptance.
const (
	ContextAPIKey           = "apiKey"
	ContextRemainingDaily   = "remainingDaily"
	ContextRemainingMonthly = "remainingMonthly"
)

// Machine-readable rejection codes.
const (
	CodeMissingAPIKey = "MISSING_API_KEY"
	CodeInvalidAPIKey = "INVALID_API_KEY"
	CodeAuthError     = "AUTH_ERROR"
)

// AuthOptions configures the request accounting middleware.
type AuthOptions struct {
	// Required rejects requests carrying no credential. When false such
	// requests pass through unauthenticated, but a credential that is
	// present is still validated.
	Required bool
	// SkipPaths bypass authentication entirely. An entry ending in "*"
	// is a prefix match; otherwise the path must equal the entry or live
	// under it.
	SkipPaths []string
	// SkipMethods bypass authentication for the given HTTP methods.
	SkipMethods []string
}

// APIKeyAuth authenticates requests, enforces quotas and accounts usage.
//
// The credential is taken from the X-API-Key header, then the Authorization
// Bearer header, then the apiKey query parameter. On acceptance the key
// record and remaining-quota figures are attached to the request context,
// rate limit headers are set, usage is incremented, and an audit row is
// written off the critical path once the response is complete.
func APIKeyAuth(svc *keys.Service, opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pathSkipped(opts.SkipPaths, c.Request.URL.Path) || methodSkipped(opts.SkipMethods, c.Request.Method) {
			c.Next()
			return
		}

		secret := extractCredential(c)
		if secret == "" {
			if !opts.Required {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide an API key via the X-API-Key header, an Authorization Bearer token, or the apiKey query parameter",
				"code":    CodeMissingAPIKey,
			})
			return
		}

		ipAddress := c.ClientIP()
		origin := c.GetHeader("Origin")

		verdict, errValidate := svc.Validate(c.Request.Context(), secret, ipAddress, origin)
		if errValidate != nil {
			log.WithError(errValidate).Error("auth: validation failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "Authentication error",
				"message": "Internal server error during authentication",
				"code":    CodeAuthError,
			})
			return
		}
		if !verdict.Valid {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "Invalid API key",
				"message": verdict.Reason,
				"code":    CodeInvalidAPIKey,
			})
			return
		}

		key := verdict.Key
		c.Set(ContextAPIKey, key)
		if verdict.RemainingDaily != nil {
			c.Set(ContextRemainingDaily, *verdict.RemainingDaily)
		}
		if verdict.RemainingMonthly != nil {
			c.Set(ContextRemainingMonthly, *verdict.RemainingMonthly)
		}

		c.Header(HeaderDailyLimit, limitHeaderValue(key.DailyLimit))
		c.Header(HeaderDailyRemaining, remainingHeaderValue(verdict.RemainingDaily))
		c.Header(HeaderMonthlyLimit, limitHeaderValue(key.MonthlyLimit))
		c.Header(HeaderMonthlyRemaining, remainingHeaderValue(verdict.RemainingMonthly))

		svc.IncrementUsage(c.Request.Context(), key.KeyID, ipAddress)

		start := time.Now()
		c.Next()

		entry := models.RequestLog{
			KeyID:          key.KeyID,
			Endpoint:       c.Request.URL.Path,
			Method:         c.Request.Method,
			StatusCode:     c.Writer.Status(),
			ResponseTimeMs: time.Since(start).Milliseconds(),
			RequestSize:    max(c.Request.ContentLength, 0),
			ResponseSize:   int64(max(c.Writer.Size(), 0)),
			UserAgent:      c.Request.UserAgent(),
			IPAddress:      ipAddress,
			Referer:        c.Request.Referer(),
		}
		// Detached from the request; the audit write must never surface
		// into a response that has already been sent.
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("auth: request log panic: %v", r)
				}
			}()
			logCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			svc.AppendRequestLog(logCtx, entry)
		}()
	}
}

// KeyFromContext returns the authenticated key record, when present.
func KeyFromContext(c *gin.Context) (*models.APIKey, bool) {
	value, ok := c.Get(ContextAPIKey)
	if !ok {
		return nil, false
	}
	key, ok := value.(*models.APIKey)
	return key, ok
}

// extractCredential pulls the API key from the request, first non-empty
// source wins.
func extractCredential(c *gin.Context) string {
	if v := strings.TrimSpace(c.GetHeader("X-API-Key")); v != "" {
		return v
	}
	if auth := strings.TrimSpace(c.GetHeader("Authorization")); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		}
	}
	return strings.TrimSpace(c.Query("apiKey"))
}

func pathSkipped(skipPaths []string, path string) bool {
	for _, route := range skipPaths {
		if route == "" {
			continue
		}
		if strings.HasSuffix(route, "*") {
			if strings.HasPrefix(path, strings.TrimSuffix(route, "*")) {
				return true
			}
			continue
		}
		if path == route || strings.HasPrefix(path, route+"/") {
			return true
		}
	}
	return false
}

func methodSkipped(skipMethods []string, method string) bool {
	for _, skip := range skipMethods {
		if strings.EqualFold(skip, method) {
			return true
		}
	}
	return false
}

func limitHeaderValue(limit *int64) string {
	if limit == nil {
		return UnlimitedSentinel
	}
	return strconv.FormatInt(*limit, 10)
}

func remainingHeaderValue(remaining *int64) string {
	if remaining == nil {
		return UnlimitedSentinel
	}
	return strconv.FormatInt(*remaining, 10)
}
