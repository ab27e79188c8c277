// Package catalog persists and serves the movie/series metadata produced by
// the upstream fetchers.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cinelist/cineapi/internal/db"
	"github.com/cinelist/cineapi/internal/models"
	"github.com/cinelist/cineapi/internal/upstream"
)

// PageSize is the number of titles returned per listing page.
const PageSize = 20

// Catalog errors.
var (
	// ErrNotFound indicates no stored record matches the identifier.
	ErrNotFound = errors.New("catalog: not found")
	// ErrUpstreamUnavailable indicates the operation needs a fetcher and none is wired.
	ErrUpstreamUnavailable = errors.New("catalog: upstream fetcher unavailable")
)

// Service serves catalog reads and owns the best-effort persistence of
// freshly scraped records.
type Service struct {
	db      *gorm.DB
	fetcher upstream.Fetcher
}

// NewService constructs a Service. fetcher may be nil, in which case all
// reads are served from the store and stream lookups fail with
// ErrUpstreamUnavailable.
func NewService(conn *gorm.DB, fetcher upstream.Fetcher) *Service {
	return &Service{db: conn, fetcher: fetcher}
}

// Movies returns one page of a movie listing. When a fetcher is wired the
// page comes from upstream and is persisted off the response path; otherwise
// it is served from the store.
func (s *Service) Movies(ctx context.Context, listing string, page int) ([]models.Movie, error) {
	if page < 1 {
		page = 1
	}
	if s.fetcher != nil {
		rows, errFetch := s.fetcher.FetchMovies(ctx, listing, page)
		if errFetch != nil {
			return nil, fmt.Errorf("catalog: fetch movies: %w", errFetch)
		}
		s.saveMoviesAsync(rows)
		return rows, nil
	}

	var rows []models.Movie
	if errFind := s.db.WithContext(ctx).
		Order("updated_at DESC").
		Offset((page - 1) * PageSize).
		Limit(PageSize).
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("catalog: list movies: %w", errFind)
	}
	return rows, nil
}

// MovieByID returns one stored movie by its upstream slug.
func (s *Service) MovieByID(ctx context.Context, sourceID string) (*models.Movie, error) {
	var row models.Movie
	errFind := s.db.WithContext(ctx).Where("source_id = ?", sourceID).First(&row).Error
	switch {
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	case errFind != nil:
		return nil, fmt.Errorf("catalog: get movie: %w", errFind)
	}
	return &row, nil
}

// SeriesList returns one page of a series listing.
func (s *Service) SeriesList(ctx context.Context, listing string, page int) ([]models.Series, error) {
	if page < 1 {
		page = 1
	}
	if s.fetcher != nil {
		rows, errFetch := s.fetcher.FetchSeries(ctx, listing, page)
		if errFetch != nil {
			return nil, fmt.Errorf("catalog: fetch series: %w", errFetch)
		}
		s.saveSeriesAsync(rows)
		return rows, nil
	}

	var rows []models.Series
	if errFind := s.db.WithContext(ctx).
		Order("updated_at DESC").
		Offset((page - 1) * PageSize).
		Limit(PageSize).
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("catalog: list series: %w", errFind)
	}
	return rows, nil
}

// SeriesByID returns one stored series by its upstream slug.
func (s *Service) SeriesByID(ctx context.Context, sourceID string) (*models.Series, error) {
	var row models.Series
	errFind := s.db.WithContext(ctx).Where("source_id = ?", sourceID).First(&row).Error
	switch {
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	case errFind != nil:
		return nil, fmt.Errorf("catalog: get series: %w", errFind)
	}
	return &row, nil
}

// Search returns movies and series matching a title, from upstream when a
// fetcher is wired, otherwise from the store.
func (s *Service) Search(ctx context.Context, title string) ([]models.Movie, []models.Series, error) {
	title = strings.TrimSpace(title)
	if s.fetcher != nil {
		movies, series, errSearch := s.fetcher.Search(ctx, title)
		if errSearch != nil {
			return nil, nil, fmt.Errorf("catalog: search: %w", errSearch)
		}
		s.saveMoviesAsync(movies)
		s.saveSeriesAsync(series)
		return movies, series, nil
	}

	pattern := db.NormalizeLikePattern(s.db, "%"+title+"%")

	var movies []models.Movie
	if errFind := s.db.WithContext(ctx).
		Where(db.CaseInsensitiveLikeExpr(s.db, "title"), pattern).
		Limit(PageSize).
		Find(&movies).Error; errFind != nil {
		return nil, nil, fmt.Errorf("catalog: search movies: %w", errFind)
	}
	var series []models.Series
	if errFind := s.db.WithContext(ctx).
		Where(db.CaseInsensitiveLikeExpr(s.db, "title"), pattern).
		Limit(PageSize).
		Find(&series).Error; errFind != nil {
		return nil, nil, fmt.Errorf("catalog: search series: %w", errFind)
	}
	return movies, series, nil
}

// MoviesByTaxonomy returns stored movies tagged with the given genre or
// country name, or released in the given year.
func (s *Service) MoviesByTaxonomy(ctx context.Context, kind, value string, page int) ([]models.Movie, error) {
	if page < 1 {
		page = 1
	}
	query := s.db.WithContext(ctx).Model(&models.Movie{})
	switch kind {
	case models.TaxonomyGenre:
		query = query.Where(db.CaseInsensitiveLikeExpr(s.db, "genres"), db.NormalizeLikePattern(s.db, `%"`+value+`"%`))
	case models.TaxonomyCountry:
		query = query.Where(db.CaseInsensitiveLikeExpr(s.db, "countries"), db.NormalizeLikePattern(s.db, `%"`+value+`"%`))
	case models.TaxonomyYear:
		query = query.Where("year = ?", value)
	default:
		return nil, fmt.Errorf("catalog: unknown taxonomy kind %q", kind)
	}

	var rows []models.Movie
	if errFind := query.
		Order("updated_at DESC").
		Offset((page - 1) * PageSize).
		Limit(PageSize).
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("catalog: movies by %s: %w", kind, errFind)
	}
	return rows, nil
}

// Taxonomies returns all stored entries of one kind ordered by slug.
func (s *Service) Taxonomies(ctx context.Context, kind string) ([]models.Taxonomy, error) {
	var rows []models.Taxonomy
	if errFind := s.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("slug ASC").
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("catalog: taxonomies: %w", errFind)
	}
	return rows, nil
}

// Streams returns the stream sources for a title. Requires a wired fetcher.
func (s *Service) Streams(ctx context.Context, sourceID string) ([]upstream.Stream, error) {
	if s.fetcher == nil {
		return nil, ErrUpstreamUnavailable
	}
	streams, errFetch := s.fetcher.FetchStreams(ctx, sourceID)
	if errFetch != nil {
		return nil, fmt.Errorf("catalog: fetch streams: %w", errFetch)
	}
	return streams, nil
}

// UpsertMovies inserts or refreshes scraped movie rows keyed on source_id.
func (s *Service) UpsertMovies(ctx context.Context, rows []models.Movie) error {
	if len(rows) == 0 {
		return nil
	}
	if errUpsert := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "poster_url", "rating", "quality", "duration", "year", "genres", "countries", "updated_at"}),
		}).
		Create(&rows).Error; errUpsert != nil {
		return fmt.Errorf("catalog: upsert movies: %w", errUpsert)
	}
	return nil
}

// UpsertSeries inserts or refreshes scraped series rows keyed on source_id.
func (s *Service) UpsertSeries(ctx context.Context, rows []models.Series) error {
	if len(rows) == 0 {
		return nil
	}
	if errUpsert := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "poster_url", "rating", "status", "episodes", "year", "genres", "countries", "updated_at"}),
		}).
		Create(&rows).Error; errUpsert != nil {
		return fmt.Errorf("catalog: upsert series: %w", errUpsert)
	}
	return nil
}

// UpsertTaxonomies inserts or refreshes browseable categories.
func (s *Service) UpsertTaxonomies(ctx context.Context, rows []models.Taxonomy) error {
	if len(rows) == 0 {
		return nil
	}
	if errUpsert := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}).
		Create(&rows).Error; errUpsert != nil {
		return fmt.Errorf("catalog: upsert taxonomies: %w", errUpsert)
	}
	return nil
}

// saveMoviesAsync persists scraped rows off the response path. A failed save
// only costs freshness, never a response.
func (s *Service) saveMoviesAsync(rows []models.Movie) {
	if len(rows) == 0 {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("catalog: movie save panic: %v", r)
			}
		}()
		if errUpsert := s.UpsertMovies(context.Background(), rows); errUpsert != nil {
			log.WithError(errUpsert).Warn("catalog: background movie save failed")
		}
	}()
}

func (s *Service) saveSeriesAsync(rows []models.Series) {
	if len(rows) == 0 {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("catalog: series save panic: %v", r)
			}
		}()
		if errUpsert := s.UpsertSeries(context.Background(), rows); errUpsert != nil {
			log.WithError(errUpsert).Warn("catalog: background series save failed")
		}
	}()
}
