package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/cinelist/cineapi/internal/catalog"
	"github.com/cinelist/cineapi/internal/upstream"
)

// LatestSeries handles GET /series.
func (h *Handler) LatestSeries(c *gin.Context) {
	h.seriesListing(c, upstream.ListingLatest, "Latest series fetched successfully")
}

// PopularSeries handles GET /popular/series.
func (h *Handler) PopularSeries(c *gin.Context) {
	h.seriesListing(c, upstream.ListingPopular, "Popular series fetched successfully")
}

// RecentReleaseSeries handles GET /recent-release/series.
func (h *Handler) RecentReleaseSeries(c *gin.Context) {
	h.seriesListing(c, upstream.ListingRecentRelease, "Recent release series fetched successfully")
}

// TopRatedSeries handles GET /top-rated/series.
func (h *Handler) TopRatedSeries(c *gin.Context) {
	h.seriesListing(c, upstream.ListingTopRated, "Top-rated series fetched successfully")
}

func (h *Handler) seriesListing(c *gin.Context, listing, message string) {
	rows, errList := h.catalog.SeriesList(c.Request.Context(), listing, pageQuery(c))
	if errList != nil {
		log.WithError(errList).Errorf("handlers: %s series", listing)
		respondError(c, http.StatusInternalServerError, "Failed to fetch series", errList)
		return
	}
	respondOK(c, http.StatusOK, message, rows)
}

// SeriesDetails handles GET /series/:id.
func (h *Handler) SeriesDetails(c *gin.Context) {
	row, errGet := h.catalog.SeriesByID(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(errGet, catalog.ErrNotFound):
		respondError(c, http.StatusNotFound, "Series not found", nil)
		return
	case errGet != nil:
		log.WithError(errGet).Error("handlers: series details")
		respondError(c, http.StatusInternalServerError, "Failed to fetch series details", errGet)
		return
	}
	respondOK(c, http.StatusOK, "Series details fetched successfully", row)
}
