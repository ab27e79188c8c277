package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/cinelist/cineapi/internal/models"
)

// Migrate creates or updates the database schema.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errMigrate := conn.AutoMigrate(
		&models.APIKey{},
		&models.RequestLog{},
		&models.Movie{},
		&models.Series{},
		&models.Taxonomy{},
	); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}
	return nil
}
