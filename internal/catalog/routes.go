package catalog

import (
	"fmt"

	"github.com/AntonKrinichnyi/trainstation/internal/apperr"
	"github.com/AntonKrinichnyi/trainstation/internal/db"
	"github.com/AntonKrinichnyi/trainstation/internal/models"
	"gorm.io/gorm"
)

// RouteOpts holds parameters for creating a route.
type RouteOpts struct {
	SourceID      uint
	DestinationID uint
	Distance      int
}

// RouteFilters restricts ListRoutes. Nil fields do not filter.
type RouteFilters struct {
	SourceID      *uint
	DestinationID *uint
}

// CreateRoute inserts a route between two distinct existing stations.
func CreateRoute(gdb *gorm.DB, opts RouteOpts) (*models.Route, error) {
	verr := apperr.Invalid()
	if opts.Distance < 1 {
		verr.Add("distance", "distance must be positive")
	}
	if opts.SourceID != 0 && opts.SourceID == opts.DestinationID {
		verr.Add("destination", "destination must differ from source")
	}
	for field, id := range map[string]uint{"source": opts.SourceID, "destination": opts.DestinationID} {
		if id == 0 {
			verr.Add(field, field+" is required")
			continue
		}
		var n int64
		if err := gdb.Model(&models.Station{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("catalog: check station %d: %w", id, err)
		}
		if n == 0 {
			verr.Add(field, fmt.Sprintf("station %d does not exist", id))
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	route := models.Route{
		SourceID:      opts.SourceID,
		DestinationID: opts.DestinationID,
		Distance:      opts.Distance,
	}
	if err := gdb.Create(&route).Error; err != nil {
		return nil, fmt.Errorf("catalog: create route: %w", db.TranslateWrite(err, "route", "route already exists"))
	}
	return GetRoute(gdb, route.ID)
}

// GetRoute retrieves a route by ID with both stations loaded.
func GetRoute(gdb *gorm.DB, id uint) (*models.Route, error) {
	var route models.Route
	err := gdb.Preload("Source").Preload("Destination").Where("id = ?", id).First(&route).Error
	if err != nil {
		return nil, fmt.Errorf("catalog: get route %d: %w", id, db.TranslateRead(err, "route", id))
	}
	return &route, nil
}

// ListRoutes returns routes matching filters with both stations loaded,
// ordered by ID.
func ListRoutes(gdb *gorm.DB, filters RouteFilters) ([]models.Route, error) {
	q := gdb.Model(&models.Route{}).Preload("Source").Preload("Destination")
	if filters.SourceID != nil {
		q = q.Where("source_id = ?", *filters.SourceID)
	}
	if filters.DestinationID != nil {
		q = q.Where("destination_id = ?", *filters.DestinationID)
	}

	var routes []models.Route
	if err := q.Order("id ASC").Find(&routes).Error; err != nil {
		return nil, fmt.Errorf("catalog: list routes: %w", err)
	}
	return routes, nil
}
