// Package journey provides data access for scheduled journeys.
package journey

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/AntonKrinichnyi/trainstation/internal/apperr"
	"github.com/AntonKrinichnyi/trainstation/internal/db"
	"github.com/AntonKrinichnyi/trainstation/internal/models"
	"gorm.io/gorm"
)

// DateLayout is the accepted format of the departure_date filter.
const DateLayout = "2006-01-02"

// Opts holds the writable fields of a journey.
type Opts struct {
	RouteID       uint
	TrainID       uint
	CrewIDs       []uint
	DepartureTime time.Time
	ArrivalTime   time.Time
}

// PatchOpts holds a partial journey update. Nil fields are left unchanged;
// a non-nil CrewIDs replaces the whole crew.
type PatchOpts struct {
	RouteID       *uint
	TrainID       *uint
	CrewIDs       *[]uint
	DepartureTime *time.Time
	ArrivalTime   *time.Time
}

// Filters restricts List. Nil fields do not filter.
type Filters struct {
	RouteID *uint
	// Date matches journeys departing on that calendar day (UTC).
	Date *time.Time
}

// ParseFilters parses the raw route and departure_date query values.
// Empty values leave the corresponding filter unset.
func ParseFilters(route, date string) (Filters, error) {
	var f Filters
	verr := apperr.Invalid()
	if route != "" {
		n, err := strconv.ParseUint(route, 10, 64)
		if err != nil {
			verr.Add("route", fmt.Sprintf("route must be an integer id, got %q", route))
		} else {
			id := uint(n)
			f.RouteID = &id
		}
	}
	if date != "" {
		d, err := time.Parse(DateLayout, date)
		if err != nil {
			verr.Add("departure_date", fmt.Sprintf("departure_date must be YYYY-MM-DD, got %q", date))
		} else {
			f.Date = &d
		}
	}
	if err := verr.OrNil(); err != nil {
		return Filters{}, err
	}
	return f, nil
}

// withDetails preloads everything the journey projections render.
func withDetails(q *gorm.DB) *gorm.DB {
	return q.Preload("Route.Source").
		Preload("Route.Destination").
		Preload("Train.TrainType").
		Preload("Crew", func(db *gorm.DB) *gorm.DB { return db.Order("crews.id ASC") })
}

// Create inserts a journey and assigns its crew.
func Create(ctx context.Context, gdb *gorm.DB, opts Opts) (*models.Journey, error) {
	var id uint
	err := gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		crew, err := validate(tx, opts)
		if err != nil {
			return err
		}
		j := models.Journey{
			RouteID:       opts.RouteID,
			TrainID:       opts.TrainID,
			DepartureTime: opts.DepartureTime.UTC(),
			ArrivalTime:   opts.ArrivalTime.UTC(),
		}
		if err := tx.Omit("Crew").Create(&j).Error; err != nil {
			return db.TranslateWrite(err, "journey", "journey could not be stored")
		}
		id = j.ID
		return replaceCrew(tx, &j, crew)
	})
	if err != nil {
		return nil, fmt.Errorf("journey: create: %w", err)
	}
	return Get(gdb, id)
}

// Get retrieves a journey by ID with route stations, train type and crew.
func Get(gdb *gorm.DB, id uint) (*models.Journey, error) {
	var j models.Journey
	if err := withDetails(gdb).Where("id = ?", id).First(&j).Error; err != nil {
		return nil, fmt.Errorf("journey: get %d: %w", id, db.TranslateRead(err, "journey", id))
	}
	return &j, nil
}

// List returns journeys matching filters ordered by departure time.
func List(gdb *gorm.DB, filters Filters) ([]models.Journey, error) {
	q := withDetails(gdb.Model(&models.Journey{}))
	if filters.RouteID != nil {
		q = q.Where("route_id = ?", *filters.RouteID)
	}
	if filters.Date != nil {
		d := filters.Date.UTC()
		start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		q = q.Where("departure_time >= ? AND departure_time < ?", start, start.AddDate(0, 0, 1))
	}

	var journeys []models.Journey
	if err := q.Order("departure_time ASC, id ASC").Find(&journeys).Error; err != nil {
		return nil, fmt.Errorf("journey: list: %w", err)
	}
	return journeys, nil
}

// Update replaces every writable field of a journey.
func Update(ctx context.Context, gdb *gorm.DB, id uint, opts Opts) (*models.Journey, error) {
	crew := opts.CrewIDs
	return Patch(ctx, gdb, id, PatchOpts{
		RouteID:       &opts.RouteID,
		TrainID:       &opts.TrainID,
		CrewIDs:       &crew,
		DepartureTime: &opts.DepartureTime,
		ArrivalTime:   &opts.ArrivalTime,
	})
}

// Patch applies the non-nil fields of p. Switching trains is rejected
// when an already booked ticket would not fit the new train.
func Patch(ctx context.Context, gdb *gorm.DB, id uint, p PatchOpts) (*models.Journey, error) {
	err := gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var j models.Journey
		if err := tx.Preload("Crew").Where("id = ?", id).First(&j).Error; err != nil {
			return db.TranslateRead(err, "journey", id)
		}

		opts := Opts{
			RouteID:       j.RouteID,
			TrainID:       j.TrainID,
			DepartureTime: j.DepartureTime,
			ArrivalTime:   j.ArrivalTime,
		}
		for _, c := range j.Crew {
			opts.CrewIDs = append(opts.CrewIDs, c.ID)
		}
		if p.RouteID != nil {
			opts.RouteID = *p.RouteID
		}
		if p.TrainID != nil {
			opts.TrainID = *p.TrainID
		}
		if p.CrewIDs != nil {
			opts.CrewIDs = *p.CrewIDs
		}
		if p.DepartureTime != nil {
			opts.DepartureTime = *p.DepartureTime
		}
		if p.ArrivalTime != nil {
			opts.ArrivalTime = *p.ArrivalTime
		}

		crew, err := validate(tx, opts)
		if err != nil {
			return err
		}
		if opts.TrainID != j.TrainID {
			if err := checkTicketsFit(tx, id, opts.TrainID); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"route_id":       opts.RouteID,
			"train_id":       opts.TrainID,
			"departure_time": opts.DepartureTime.UTC(),
			"arrival_time":   opts.ArrivalTime.UTC(),
		}
		if err := tx.Model(&models.Journey{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return db.TranslateWrite(err, "journey", "journey could not be stored")
		}
		if p.CrewIDs != nil {
			return replaceCrew(tx, &models.Journey{ID: id}, crew)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("journey: update %d: %w", id, err)
	}
	return Get(gdb, id)
}

// Delete removes a journey and its tickets. Orders left without tickets
// are kept.
func Delete(ctx context.Context, gdb *gorm.DB, id uint) error {
	err := gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := DeleteWhere(tx, "id = ?", id)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFound("journey", id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("journey: delete %d: %w", id, err)
	}
	return nil
}

// DeleteWhere removes the journeys matching query together with their
// tickets and crew assignments, and returns how many journeys it removed.
// It must run on a transaction.
func DeleteWhere(tx *gorm.DB, query interface{}, args ...interface{}) (int64, error) {
	var ids []uint
	if err := tx.Model(&models.Journey{}).Where(query, args...).Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("journey: find journeys to delete: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := tx.Where("journey_id IN ?", ids).Delete(&models.Ticket{}).Error; err != nil {
		return 0, fmt.Errorf("journey: delete tickets: %w", err)
	}
	if err := tx.Exec("DELETE FROM journey_crew WHERE journey_id IN ?", ids).Error; err != nil {
		return 0, fmt.Errorf("journey: delete crew assignments: %w", err)
	}
	result := tx.Where("id IN ?", ids).Delete(&models.Journey{})
	if result.Error != nil {
		return 0, fmt.Errorf("journey: delete journeys: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// validate checks references and times, returning the crew to assign.
func validate(tx *gorm.DB, opts Opts) ([]models.Crew, error) {
	verr := apperr.Invalid()

	if opts.RouteID == 0 {
		verr.Add("route", "route is required")
	} else {
		ok, err := exists(tx, &models.Route{}, opts.RouteID)
		if err != nil {
			return nil, fmt.Errorf("check route %d: %w", opts.RouteID, err)
		}
		if !ok {
			verr.Add("route", fmt.Sprintf("route %d does not exist", opts.RouteID))
		}
	}
	if opts.TrainID == 0 {
		verr.Add("train", "train is required")
	} else {
		ok, err := exists(tx, &models.Train{}, opts.TrainID)
		if err != nil {
			return nil, fmt.Errorf("check train %d: %w", opts.TrainID, err)
		}
		if !ok {
			verr.Add("train", fmt.Sprintf("train %d does not exist", opts.TrainID))
		}
	}

	if opts.DepartureTime.IsZero() {
		verr.Add("departure_time", "departure_time is required")
	}
	if opts.ArrivalTime.IsZero() {
		verr.Add("arrival_time", "arrival_time is required")
	} else if !opts.DepartureTime.IsZero() && !opts.ArrivalTime.After(opts.DepartureTime) {
		verr.Add("arrival_time", "arrival_time must be after departure_time")
	}

	ids := dedupe(opts.CrewIDs)
	var crew []models.Crew
	if len(ids) > 0 {
		if err := tx.Where("id IN ?", ids).Order("id ASC").Find(&crew).Error; err != nil {
			return nil, fmt.Errorf("load crew: %w", err)
		}
		found := make(map[uint]bool, len(crew))
		for _, c := range crew {
			found[c.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				verr.Add("crew", fmt.Sprintf("crew member %d does not exist", id))
			}
		}
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return crew, nil
}

func exists(tx *gorm.DB, model interface{}, id uint) (bool, error) {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func replaceCrew(tx *gorm.DB, j *models.Journey, crew []models.Crew) error {
	assoc := tx.Model(j).Association("Crew")
	if len(crew) == 0 {
		if err := assoc.Clear(); err != nil {
			return fmt.Errorf("clear crew: %w", err)
		}
		return nil
	}
	if err := assoc.Replace(crew); err != nil {
		return fmt.Errorf("assign crew: %w", err)
	}
	return nil
}

// checkTicketsFit rejects moving a journey to a train its booked tickets
// do not fit.
func checkTicketsFit(tx *gorm.DB, journeyID, trainID uint) error {
	var train models.Train
	if err := tx.Where("id = ?", trainID).First(&train).Error; err != nil {
		return db.TranslateRead(err, "train", trainID)
	}
	var n int64
	err := tx.Model(&models.Ticket{}).
		Where("journey_id = ? AND (cargo > ? OR seat > ?)", journeyID, train.CargoNum, train.PlacesInCargo).
		Count(&n).Error
	if err != nil {
		return fmt.Errorf("check booked tickets: %w", err)
	}
	if n > 0 {
		return apperr.Validation("train", fmt.Sprintf("%d booked tickets do not fit train %d", n, trainID))
	}
	return nil
}
