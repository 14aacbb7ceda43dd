package db

import (
	"fmt"
	"strings"

	"github.com/AntonKrinichnyi/trainstation/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns every GORM model in dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Station{},
		&models.TrainType{},
		&models.Crew{},
		&models.Train{},
		&models.Route{},
		&models.Journey{},
		&models.Order{},
		&models.Ticket{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedTrainTypes inserts the named train types, leaving existing rows alone.
// It returns the number of rows actually inserted.
func SeedTrainTypes(db *gorm.DB, names []string) (int64, error) {
	var inserted int64
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&models.TrainType{Name: name})
		if result.Error != nil {
			return inserted, fmt.Errorf("db: seed train type %q: %w", name, result.Error)
		}
		inserted += result.RowsAffected
	}
	return inserted, nil
}
