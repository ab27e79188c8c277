package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cinelist/cineapi/internal/cache"
	"github.com/cinelist/cineapi/internal/catalog"
)

// Handler bundles the dependencies shared by all route handlers.
type Handler struct {
	catalog *catalog.Service
	cache   *cache.Store

	movieSiteURL  string
	seriesSiteURL string
}

// New constructs a Handler.
func New(catalogSvc *catalog.Service, cacheStore *cache.Store, movieSiteURL, seriesSiteURL string) *Handler {
	return &Handler{
		catalog:       catalogSvc,
		cache:         cacheStore,
		movieSiteURL:  movieSiteURL,
		seriesSiteURL: seriesSiteURL,
	}
}

func respondOK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, message string, err error) {
	payload := gin.H{
		"success": false,
		"message": message,
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	c.JSON(status, payload)
}

// pageQuery reads the ?page query parameter, defaulting to 1.
func pageQuery(c *gin.Context) int {
	parsed, errParse := strconv.Atoi(c.DefaultQuery("page", "1"))
	if errParse != nil || parsed < 1 {
		return 1
	}
	return parsed
}
