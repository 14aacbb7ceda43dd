package models

import "fmt"

// Station is a stop trains depart from and arrive at.
type Station struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"`
	Name      string  `gorm:"size:255;not null;uniqueIndex"`
	Latitude  float64 `gorm:"not null"`
	Longitude float64 `gorm:"not null"`
}

// TrainType classifies trains (intercity, regional, ...).
type TrainType struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:100;not null;uniqueIndex"`
}

// Crew is a member of staff who can be assigned to journeys.
type Crew struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	FirstName string `gorm:"size:255;not null"`
	LastName  string `gorm:"size:255;not null"`
}

// FullName joins first and last name.
func (c Crew) FullName() string {
	return fmt.Sprintf("%s %s", c.FirstName, c.LastName)
}

// Route connects a source station to a destination station.
type Route struct {
	ID            uint `gorm:"primaryKey;autoIncrement"`
	SourceID      uint `gorm:"not null;index"`
	DestinationID uint `gorm:"not null;index"`
	Distance      int  `gorm:"not null"`

	Source      Station `gorm:"foreignKey:SourceID"`
	Destination Station `gorm:"foreignKey:DestinationID"`
}

// FullRoute renders the route as "Source - Destination".
// Source and Destination must be loaded.
func (r Route) FullRoute() string {
	return fmt.Sprintf("%s - %s", r.Source.Name, r.Destination.Name)
}
