package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/cinelist/cineapi/internal/catalog"
)

// MovieStreams handles GET /movies/:id/streams.
func (h *Handler) MovieStreams(c *gin.Context) {
	h.streams(c, c.Param("id"), "Movie streams fetched successfully")
}

// EpisodeStreams handles GET /episodes/:id.
func (h *Handler) EpisodeStreams(c *gin.Context) {
	h.streams(c, c.Param("id"), "Episode streams fetched successfully")
}

func (h *Handler) streams(c *gin.Context, sourceID, message string) {
	rows, errStreams := h.catalog.Streams(c.Request.Context(), sourceID)
	switch {
	case errors.Is(errStreams, catalog.ErrUpstreamUnavailable):
		respondError(c, http.StatusServiceUnavailable, "Stream lookup is not available", errStreams)
		return
	case errStreams != nil:
		log.WithError(errStreams).Error("handlers: streams")
		respondError(c, http.StatusInternalServerError, "Failed to fetch streams", errStreams)
		return
	}
	respondOK(c, http.StatusOK, message, rows)
}
