// Package server assembles the HTTP surface of the service: the gin
// router, the middleware chain and the listener lifecycle.
package server

import (
	"github.com/gin-gonic/gin"

	"github.com/cinelist/cineapi/internal/cache"
	"github.com/cinelist/cineapi/internal/catalog"
	"github.com/cinelist/cineapi/internal/config"
	"github.com/cinelist/cineapi/internal/keys"
	"github.com/cinelist/cineapi/internal/server/handlers"
	"github.com/cinelist/cineapi/internal/server/middleware"
)

// NewRouter builds the gin engine with the full route table. Every
// route passes through the API key middleware; the catalog routes are
// additionally memoized through the response cache.
func NewRouter(cfg *config.Config, keySvc *keys.Service, catalogSvc *catalog.Service, cacheStore *cache.Store) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.AccessLog())
	engine.Use(middleware.APIKeyAuth(keySvc, middleware.AuthOptions{
		Required:    cfg.Auth.Required,
		SkipPaths:   cfg.Auth.SkipPaths,
		SkipMethods: cfg.Auth.SkipMethods,
	}))
	engine.Use(middleware.DynamicCORS())

	h := handlers.New(catalogSvc, cacheStore, cfg.Upstream.MovieSiteURL, cfg.Upstream.SeriesSiteURL)

	engine.GET("/", h.Root)
	engine.GET("/healthz", h.Health)

	cached := engine.Group("/", middleware.ResponseCache(cacheStore))

	cached.GET("/movies", h.LatestMovies)
	cached.GET("/popular/movies", h.PopularMovies)
	cached.GET("/recent-release/movies", h.RecentReleaseMovies)
	cached.GET("/top-rated/movies", h.TopRatedMovies)
	cached.GET("/movies/:id", h.MovieDetails)
	cached.GET("/movies/:id/streams", h.MovieStreams)

	cached.GET("/series", h.LatestSeries)
	cached.GET("/popular/series", h.PopularSeries)
	cached.GET("/recent-release/series", h.RecentReleaseSeries)
	cached.GET("/top-rated/series", h.TopRatedSeries)
	cached.GET("/series/:id", h.SeriesDetails)

	cached.GET("/episodes/:id", h.EpisodeStreams)

	cached.GET("/genres", h.Genres)
	cached.GET("/genres/:genre", h.MoviesByGenre)
	cached.GET("/countries", h.Countries)
	cached.GET("/countries/:country", h.MoviesByCountry)
	cached.GET("/years", h.Years)
	cached.GET("/years/:year", h.MoviesByYear)

	cached.GET("/search/:title", h.Search)

	engine.GET("/cache/stats", h.CacheStats)
	engine.DELETE("/cache/clear", h.CacheClearAll)
	engine.DELETE("/cache/clear/:pattern", h.CacheClearPattern)
	engine.DELETE("/cache/key/*key", h.CacheClearKey)

	return engine
}
