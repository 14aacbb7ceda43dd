package catalog

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/AntonKrinichnyi/trainstation/internal/apperr"
	"github.com/AntonKrinichnyi/trainstation/internal/db"
	"github.com/AntonKrinichnyi/trainstation/internal/journey"
	"github.com/AntonKrinichnyi/trainstation/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TrainOpts holds the writable fields of a train. The image is managed
// separately through SetTrainImage.
type TrainOpts struct {
	Name          string
	CargoNum      int
	PlacesInCargo int
	TrainTypeID   uint
}

// TrainPatch holds a partial train update. Nil fields are left unchanged.
type TrainPatch struct {
	Name          *string
	CargoNum      *int
	PlacesInCargo *int
	TrainTypeID   *uint
}

// ImageRemover deletes a stored image by its stored path.
type ImageRemover interface {
	Remove(path string) error
}

func validateTrain(gdb *gorm.DB, opts TrainOpts) error {
	verr := apperr.Invalid()
	if strings.TrimSpace(opts.Name) == "" {
		verr.Add("name", "name is required")
	}
	if opts.CargoNum < 1 {
		verr.Add("cargo_num", "cargo_num must be at least 1")
	}
	if opts.PlacesInCargo < 1 {
		verr.Add("places_in_cargo", "places_in_cargo must be at least 1")
	}
	if opts.TrainTypeID == 0 {
		verr.Add("train_type", "train_type is required")
	} else {
		var n int64
		if err := gdb.Model(&models.TrainType{}).Where("id = ?", opts.TrainTypeID).Count(&n).Error; err != nil {
			return fmt.Errorf("catalog: check train type %d: %w", opts.TrainTypeID, err)
		}
		if n == 0 {
			verr.Add("train_type", fmt.Sprintf("train type %d does not exist", opts.TrainTypeID))
		}
	}
	return verr.OrNil()
}

// CreateTrain inserts a train.
func CreateTrain(gdb *gorm.DB, opts TrainOpts) (*models.Train, error) {
	opts.Name = strings.TrimSpace(opts.Name)
	if err := validateTrain(gdb, opts); err != nil {
		return nil, err
	}

	train := models.Train{
		Name:          opts.Name,
		CargoNum:      opts.CargoNum,
		PlacesInCargo: opts.PlacesInCargo,
		TrainTypeID:   opts.TrainTypeID,
	}
	if err := gdb.Create(&train).Error; err != nil {
		err = db.TranslateWrite(err, "name", fmt.Sprintf("train with name %q already exists", opts.Name))
		return nil, fmt.Errorf("catalog: create train: %w", err)
	}
	return GetTrain(gdb, train.ID)
}

// GetTrain retrieves a train by ID with its train type.
func GetTrain(gdb *gorm.DB, id uint) (*models.Train, error) {
	var train models.Train
	if err := gdb.Preload("TrainType").Where("id = ?", id).First(&train).Error; err != nil {
		return nil, fmt.Errorf("catalog: get train %d: %w", id, db.TranslateRead(err, "train", id))
	}
	return &train, nil
}

// ListTrains returns all trains with their train types, ordered by ID.
func ListTrains(gdb *gorm.DB) ([]models.Train, error) {
	var trains []models.Train
	if err := gdb.Preload("TrainType").Order("id ASC").Find(&trains).Error; err != nil {
		return nil, fmt.Errorf("catalog: list trains: %w", err)
	}
	return trains, nil
}

// UpdateTrain replaces every writable field of a train.
func UpdateTrain(gdb *gorm.DB, id uint, opts TrainOpts) (*models.Train, error) {
	return PatchTrain(gdb, id, TrainPatch{
		Name:          &opts.Name,
		CargoNum:      &opts.CargoNum,
		PlacesInCargo: &opts.PlacesInCargo,
		TrainTypeID:   &opts.TrainTypeID,
	})
}

// PatchTrain applies the non-nil fields of p. Dimensions cannot shrink below
// a cargo or seat that is already booked on one of the train's journeys.
// The train row stays locked until commit, and bookings take the same lock.
func PatchTrain(gdb *gorm.DB, id uint, p TrainPatch) (*models.Train, error) {
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var train models.Train
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&train).Error; err != nil {
			return db.TranslateRead(err, "train", id)
		}

		opts := TrainOpts{
			Name:          train.Name,
			CargoNum:      train.CargoNum,
			PlacesInCargo: train.PlacesInCargo,
			TrainTypeID:   train.TrainTypeID,
		}
		if p.Name != nil {
			opts.Name = strings.TrimSpace(*p.Name)
		}
		if p.CargoNum != nil {
			opts.CargoNum = *p.CargoNum
		}
		if p.PlacesInCargo != nil {
			opts.PlacesInCargo = *p.PlacesInCargo
		}
		if p.TrainTypeID != nil {
			opts.TrainTypeID = *p.TrainTypeID
		}
		if err := validateTrain(tx, opts); err != nil {
			return err
		}
		if err := checkBookedDimensions(tx, id, opts); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"name":            opts.Name,
			"cargo_num":       opts.CargoNum,
			"places_in_cargo": opts.PlacesInCargo,
			"train_type_id":   opts.TrainTypeID,
		}
		if err := tx.Model(&models.Train{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return db.TranslateWrite(err, "name", fmt.Sprintf("train with name %q already exists", opts.Name))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: update train %d: %w", id, err)
	}
	return GetTrain(gdb, id)
}

// checkBookedDimensions rejects dimensions that would strand existing tickets.
func checkBookedDimensions(tx *gorm.DB, trainID uint, opts TrainOpts) error {
	var booked struct {
		Cargo int
		Seat  int
	}
	err := tx.Model(&models.Ticket{}).
		Select("COALESCE(MAX(tickets.cargo), 0) AS cargo, COALESCE(MAX(tickets.seat), 0) AS seat").
		Joins("JOIN journeys ON journeys.id = tickets.journey_id").
		Where("journeys.train_id = ?", trainID).
		Scan(&booked).Error
	if err != nil {
		return fmt.Errorf("check booked seats: %w", err)
	}

	verr := apperr.Invalid()
	if booked.Cargo > opts.CargoNum {
		verr.Add("cargo_num", fmt.Sprintf("cargo %d is already booked", booked.Cargo))
	}
	if booked.Seat > opts.PlacesInCargo {
		verr.Add("places_in_cargo", fmt.Sprintf("seat %d is already booked", booked.Seat))
	}
	return verr.OrNil()
}

// SetTrainImage stores path as the train's image and returns the previous
// path, empty when the train had none.
func SetTrainImage(gdb *gorm.DB, id uint, path string) (string, error) {
	var old string
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var train models.Train
		if err := tx.Where("id = ?", id).First(&train).Error; err != nil {
			return db.TranslateRead(err, "train", id)
		}
		old = train.Image
		return tx.Model(&models.Train{}).Where("id = ?", id).Update("image", path).Error
	})
	if err != nil {
		return "", fmt.Errorf("catalog: set image for train %d: %w", id, err)
	}
	return old, nil
}

// DeleteTrain removes a train together with its journeys and their tickets.
// The stored image is removed after the transaction commits; a failure to
// remove it is logged and left for the media sweep.
func DeleteTrain(ctx context.Context, gdb *gorm.DB, remover ImageRemover, id uint) error {
	var image string
	err := gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var train models.Train
		if err := tx.Where("id = ?", id).First(&train).Error; err != nil {
			return db.TranslateRead(err, "train", id)
		}
		image = train.Image

		if _, err := journey.DeleteWhere(tx, "train_id = ?", id); err != nil {
			return err
		}
		return tx.Delete(&models.Train{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("catalog: delete train %d: %w", id, err)
	}

	if image != "" && remover != nil {
		if err := remover.Remove(image); err != nil {
			log.Printf("catalog: remove image %s of train %d: %v", image, id, err)
		}
	}
	return nil
}
