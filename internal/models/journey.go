package models

import "time"

// Journey is a scheduled run of a train over a route.
type Journey struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"`
	RouteID       uint      `gorm:"not null;index"`
	TrainID       uint      `gorm:"not null;index"`
	DepartureTime time.Time `gorm:"not null;index"`
	ArrivalTime   time.Time `gorm:"not null"`

	Route Route  `gorm:"foreignKey:RouteID"`
	Train Train  `gorm:"foreignKey:TrainID"`
	Crew  []Crew `gorm:"many2many:journey_crew"`
}
