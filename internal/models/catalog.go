package models

import (
	"time"

	"gorm.io/datatypes"
)

// Movie stores normalized metadata scraped from the upstream movie site.
type Movie struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	SourceID string `gorm:"type:varchar(255);not null;uniqueIndex"` // Slug identifier on the upstream site.

	Title     string         `gorm:"type:varchar(500);not null;index"` // Display title.
	PosterURL string         `gorm:"type:text"`                        // Poster image URL.
	Rating    string         `gorm:"type:varchar(16)"`                 // Upstream rating value.
	Quality   string         `gorm:"type:varchar(32)"`                 // Release quality label.
	Duration  string         `gorm:"type:varchar(32)"`                 // Runtime label.
	Year      int            `gorm:"index"`                            // Release year.
	Genres    datatypes.JSON // JSON array of genre names.
	Countries datatypes.JSON // JSON array of country names.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // First seen.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last refresh.
}

// Series stores normalized metadata scraped from the upstream series site.
type Series struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	SourceID string `gorm:"type:varchar(255);not null;uniqueIndex"` // Slug identifier on the upstream site.

	Title     string         `gorm:"type:varchar(500);not null;index"` // Display title.
	PosterURL string         `gorm:"type:text"`                        // Poster image URL.
	Rating    string         `gorm:"type:varchar(16)"`                 // Upstream rating value.
	Status    string         `gorm:"type:varchar(32)"`                 // Airing status label.
	Episodes  int            `gorm:"not null;default:0"`               // Known episode count.
	Year      int            `gorm:"index"`                            // First-air year.
	Genres    datatypes.JSON // JSON array of genre names.
	Countries datatypes.JSON // JSON array of country names.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // First seen.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last refresh.
}

// Taxonomy kinds used for browse listings.
const (
	TaxonomyGenre   = "genre"
	TaxonomyCountry = "country"
	TaxonomyYear    = "year"
)

// Taxonomy stores a browseable category (genre, country or year) discovered
// on the upstream sites.
type Taxonomy struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Kind string `gorm:"type:varchar(16);not null;uniqueIndex:idx_taxonomies_kind_slug"`  // One of genre, country, year.
	Slug string `gorm:"type:varchar(255);not null;uniqueIndex:idx_taxonomies_kind_slug"` // URL-safe identifier.
	Name string `gorm:"type:varchar(255);not null"`                                      // Display name.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // First seen.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last refresh.
}
