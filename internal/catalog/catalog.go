// Package catalog provides data access for the reference records journeys
// are built from: stations, train types, crew, trains and routes.
package catalog

import (
	"fmt"
	"strings"

	"github.com/AntonKrinichnyi/trainstation/internal/apperr"
	"github.com/AntonKrinichnyi/trainstation/internal/db"
	"github.com/AntonKrinichnyi/trainstation/internal/models"
	"gorm.io/gorm"
)

// StationOpts holds parameters for creating a station.
type StationOpts struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// CreateStation inserts a station. Names are unique.
func CreateStation(gdb *gorm.DB, opts StationOpts) (*models.Station, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return nil, apperr.Validation("name", "name is required")
	}

	st := models.Station{Name: name, Latitude: opts.Latitude, Longitude: opts.Longitude}
	if err := gdb.Create(&st).Error; err != nil {
		err = db.TranslateWrite(err, "name", fmt.Sprintf("station with name %q already exists", name))
		return nil, fmt.Errorf("catalog: create station: %w", err)
	}
	return &st, nil
}

// ListStations returns all stations ordered by ID.
func ListStations(gdb *gorm.DB) ([]models.Station, error) {
	var stations []models.Station
	if err := gdb.Order("id ASC").Find(&stations).Error; err != nil {
		return nil, fmt.Errorf("catalog: list stations: %w", err)
	}
	return stations, nil
}

// GetStation retrieves a station by ID.
func GetStation(gdb *gorm.DB, id uint) (*models.Station, error) {
	var st models.Station
	if err := gdb.Where("id = ?", id).First(&st).Error; err != nil {
		return nil, fmt.Errorf("catalog: get station %d: %w", id, db.TranslateRead(err, "station", id))
	}
	return &st, nil
}

// CreateTrainType inserts a train type. Names are unique.
func CreateTrainType(gdb *gorm.DB, name string) (*models.TrainType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("name", "name is required")
	}

	tt := models.TrainType{Name: name}
	if err := gdb.Create(&tt).Error; err != nil {
		err = db.TranslateWrite(err, "name", fmt.Sprintf("train type with name %q already exists", name))
		return nil, fmt.Errorf("catalog: create train type: %w", err)
	}
	return &tt, nil
}

// ListTrainTypes returns all train types ordered by ID.
func ListTrainTypes(gdb *gorm.DB) ([]models.TrainType, error) {
	var types []models.TrainType
	if err := gdb.Order("id ASC").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("catalog: list train types: %w", err)
	}
	return types, nil
}

// CrewOpts holds parameters for creating a crew member.
type CrewOpts struct {
	FirstName string
	LastName  string
}

// CreateCrew inserts a crew member.
func CreateCrew(gdb *gorm.DB, opts CrewOpts) (*models.Crew, error) {
	verr := apperr.Invalid()
	first := strings.TrimSpace(opts.FirstName)
	last := strings.TrimSpace(opts.LastName)
	if first == "" {
		verr.Add("first_name", "first name is required")
	}
	if last == "" {
		verr.Add("last_name", "last name is required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	c := models.Crew{FirstName: first, LastName: last}
	if err := gdb.Create(&c).Error; err != nil {
		return nil, fmt.Errorf("catalog: create crew: %w", err)
	}
	return &c, nil
}

// ListCrew returns all crew members ordered by ID.
func ListCrew(gdb *gorm.DB) ([]models.Crew, error) {
	var crew []models.Crew
	if err := gdb.Order("id ASC").Find(&crew).Error; err != nil {
		return nil, fmt.Errorf("catalog: list crew: %w", err)
	}
	return crew, nil
}
