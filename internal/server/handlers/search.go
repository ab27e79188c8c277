package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Search handles GET /search/:title.
func (h *Handler) Search(c *gin.Context) {
	title := c.Param("title")
	if title == "" {
		respondError(c, http.StatusBadRequest, "Search title is required", nil)
		return
	}

	movies, series, errSearch := h.catalog.Search(c.Request.Context(), title)
	if errSearch != nil {
		log.WithError(errSearch).Error("handlers: search")
		respondError(c, http.StatusInternalServerError, "Failed to search", errSearch)
		return
	}
	respondOK(c, http.StatusOK, "Search results fetched successfully", gin.H{
		"movies": movies,
		"series": series,
	})
}
