package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/cinelist/cineapi/internal/catalog"
	"github.com/cinelist/cineapi/internal/upstream"
)

// LatestMovies handles GET /movies.
func (h *Handler) LatestMovies(c *gin.Context) {
	h.movieListing(c, upstream.ListingLatest, "Latest movies fetched successfully")
}

// PopularMovies handles GET /popular/movies.
func (h *Handler) PopularMovies(c *gin.Context) {
	h.movieListing(c, upstream.ListingPopular, "Popular movies fetched successfully")
}

// RecentReleaseMovies handles GET /recent-release/movies.
func (h *Handler) RecentReleaseMovies(c *gin.Context) {
	h.movieListing(c, upstream.ListingRecentRelease, "Recent release movies fetched successfully")
}

// TopRatedMovies handles GET /top-rated/movies.
func (h *Handler) TopRatedMovies(c *gin.Context) {
	h.movieListing(c, upstream.ListingTopRated, "Top-rated movies fetched successfully")
}

func (h *Handler) movieListing(c *gin.Context, listing, message string) {
	rows, errList := h.catalog.Movies(c.Request.Context(), listing, pageQuery(c))
	if errList != nil {
		log.WithError(errList).Errorf("handlers: %s movies", listing)
		respondError(c, http.StatusInternalServerError, "Failed to fetch movies", errList)
		return
	}
	respondOK(c, http.StatusOK, message, rows)
}

// MovieDetails handles GET /movies/:id.
func (h *Handler) MovieDetails(c *gin.Context) {
	row, errGet := h.catalog.MovieByID(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(errGet, catalog.ErrNotFound):
		respondError(c, http.StatusNotFound, "Movie not found", nil)
		return
	case errGet != nil:
		log.WithError(errGet).Error("handlers: movie details")
		respondError(c, http.StatusInternalServerError, "Failed to fetch movie details", errGet)
		return
	}
	respondOK(c, http.StatusOK, "Movie details fetched successfully", row)
}
