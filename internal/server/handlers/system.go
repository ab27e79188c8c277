package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Root handles GET / with a short service description and the upstream
// sites the catalog is sourced from.
func (h *Handler) Root(c *gin.Context) {
	respondOK(c, http.StatusOK, "Service is running", gin.H{
		"name":        "cineapi",
		"description": "Unofficial movie and series catalog API",
		"sources": gin.H{
			"movies": h.movieSiteURL,
			"series": h.seriesSiteURL,
		},
	})
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
