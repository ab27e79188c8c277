package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// CacheStats handles GET /cache/stats.
func (h *Handler) CacheStats(c *gin.Context) {
	keys, errKeys := h.cache.Keys(c.Request.Context())
	if errKeys != nil {
		log.WithError(errKeys).Error("handlers: cache stats")
		respondError(c, http.StatusInternalServerError, "Failed to read cache stats", errKeys)
		return
	}
	respondOK(c, http.StatusOK, "Cache stats fetched successfully", gin.H{
		"enabled":   h.cache.Enabled(),
		"totalKeys": len(keys),
		"keys":      keys,
	})
}

// CacheClearAll handles DELETE /cache/clear.
func (h *Handler) CacheClearAll(c *gin.Context) {
	removed, errClear := h.cache.ClearAll(c.Request.Context())
	if errClear != nil {
		log.WithError(errClear).Error("handlers: cache clear")
		respondError(c, http.StatusInternalServerError, "Failed to clear cache", errClear)
		return
	}
	respondOK(c, http.StatusOK, "Cache cleared successfully", gin.H{"cleared": removed})
}

// CacheClearPattern handles DELETE /cache/clear/:pattern.
func (h *Handler) CacheClearPattern(c *gin.Context) {
	pattern := c.Param("pattern")
	if strings.TrimSpace(pattern) == "" {
		respondError(c, http.StatusBadRequest, "Pattern is required", nil)
		return
	}
	removed, errClear := h.cache.ClearPattern(c.Request.Context(), pattern)
	if errClear != nil {
		log.WithError(errClear).Error("handlers: cache clear pattern")
		respondError(c, http.StatusInternalServerError, "Failed to clear cache", errClear)
		return
	}
	respondOK(c, http.StatusOK, "Cache cleared successfully", gin.H{"cleared": removed})
}

// CacheClearKey handles DELETE /cache/key/*key.
func (h *Handler) CacheClearKey(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		respondError(c, http.StatusBadRequest, "Cache key is required", nil)
		return
	}
	removed, errDelete := h.cache.Delete(c.Request.Context(), key)
	if errDelete != nil {
		log.WithError(errDelete).Error("handlers: cache delete key")
		respondError(c, http.StatusInternalServerError, "Failed to delete cache key", errDelete)
		return
	}
	if !removed {
		respondError(c, http.StatusNotFound, "Cache key not found", nil)
		return
	}
	respondOK(c, http.StatusOK, "Cache key deleted successfully", gin.H{"key": key})
}
