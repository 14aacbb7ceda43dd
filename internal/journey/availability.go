package journey

import (
	"fmt"

	"github.com/AntonKrinichnyi/trainstation/internal/models"
	"gorm.io/gorm"
)

// Place is one booked (cargo, seat) pair.
type Place struct {
	Cargo int `json:"cargo"`
	Seat  int `json:"seat"`
}

// BookedCounts returns the number of tickets per journey for the given IDs.
// Journeys without tickets are absent from the map.
func BookedCounts(gdb *gorm.DB, ids []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	var rows []struct {
		JourneyID uint
		Booked    int
	}
	err := gdb.Model(&models.Ticket{}).
		Select("journey_id, COUNT(*) AS booked").
		Where("journey_id IN ?", ids).
		Group("journey_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("journey: count booked tickets: %w", err)
	}
	for _, r := range rows {
		counts[r.JourneyID] = r.Booked
	}
	return counts, nil
}

// AvailableSeats is the train capacity minus booked tickets. j.Train must be
// loaded.
func AvailableSeats(j models.Journey, booked int) int {
	return j.Train.Capacity() - booked
}

// TakenPlaces lists the booked places of a journey ordered by cargo, seat.
func TakenPlaces(gdb *gorm.DB, journeyID uint) ([]Place, error) {
	places := []Place{}
	err := gdb.Model(&models.Ticket{}).
		Select("cargo, seat").
		Where("journey_id = ?", journeyID).
		Order("cargo ASC, seat ASC").
		Scan(&places).Error
	if err != nil {
		return nil, fmt.Errorf("journey: taken places of %d: %w", journeyID, err)
	}
	return places, nil
}
