package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/cinelist/cineapi/internal/models"
)

// Genres handles GET /genres.
func (h *Handler) Genres(c *gin.Context) {
	h.taxonomyListing(c, models.TaxonomyGenre, "Genres fetched successfully")
}

// Countries handles GET /countries.
func (h *Handler) Countries(c *gin.Context) {
	h.taxonomyListing(c, models.TaxonomyCountry, "Countries fetched successfully")
}

// Years handles GET /years.
func (h *Handler) Years(c *gin.Context) {
	h.taxonomyListing(c, models.TaxonomyYear, "Years fetched successfully")
}

func (h *Handler) taxonomyListing(c *gin.Context, kind, message string) {
	rows, errList := h.catalog.Taxonomies(c.Request.Context(), kind)
	if errList != nil {
		log.WithError(errList).Errorf("handlers: list %s", kind)
		respondError(c, http.StatusInternalServerError, "Failed to fetch "+kind+" list", errList)
		return
	}
	respondOK(c, http.StatusOK, message, rows)
}

// MoviesByGenre handles GET /genres/:genre.
func (h *Handler) MoviesByGenre(c *gin.Context) {
	h.moviesByTaxonomy(c, models.TaxonomyGenre, c.Param("genre"))
}

// MoviesByCountry handles GET /countries/:country.
func (h *Handler) MoviesByCountry(c *gin.Context) {
	h.moviesByTaxonomy(c, models.TaxonomyCountry, c.Param("country"))
}

// MoviesByYear handles GET /years/:year.
func (h *Handler) MoviesByYear(c *gin.Context) {
	h.moviesByTaxonomy(c, models.TaxonomyYear, c.Param("year"))
}

func (h *Handler) moviesByTaxonomy(c *gin.Context, kind, value string) {
	rows, errList := h.catalog.MoviesByTaxonomy(c.Request.Context(), kind, value, pageQuery(c))
	if errList != nil {
		log.WithError(errList).Errorf("handlers: movies by %s", kind)
		respondError(c, http.StatusInternalServerError, "Failed to fetch movies by "+kind, errList)
		return
	}
	respondOK(c, http.StatusOK, "Movies fetched successfully", rows)
}
