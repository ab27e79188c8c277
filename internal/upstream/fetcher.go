package upstream

import (
	"context"

	"github.com/cinelist/cineapi/internal/models"
)

// Listing identifiers accepted by Fetcher implementations.
const (
	ListingLatest        = "latest"
	ListingPopular       = "popular"
	ListingRecentRelease = "recent-release"
	ListingTopRated      = "top-rated"
)

// Stream is one playable or downloadable source for a title.
type Stream struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
	Quality  string `json:"quality,omitempty"`
}

// Fetcher retrieves remote content and normalizes it into typed records.
// Implementations own the site-specific markup handling; everything above
// this interface treats the upstream sites as opaque.
type Fetcher interface {
	// FetchMovies returns one page of a movie listing.
	FetchMovies(ctx context.Context, listing string, page int) ([]models.Movie, error)
	// FetchSeries returns one page of a series listing.
	FetchSeries(ctx context.Context, listing string, page int) ([]models.Series, error)
	// Search returns movies and series matching a title.
	Search(ctx context.Context, title string) ([]models.Movie, []models.Series, error)
	// FetchStreams returns the stream sources for a title.
	FetchStreams(ctx context.Context, sourceID string) ([]Stream, error)
}
