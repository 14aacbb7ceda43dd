package models

// Train is a rolling stock unit made of CargoNum cars with PlacesInCargo seats each.
type Train struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	Name          string `gorm:"size:255;not null;uniqueIndex"`
	CargoNum      int    `gorm:"not null"`
	PlacesInCargo int    `gorm:"not null"`
	TrainTypeID   uint   `gorm:"not null;index"`
	Image         string `gorm:"size:255"`

	TrainType TrainType `gorm:"foreignKey:TrainTypeID"`
}

// Capacity is the total number of seats on the train.
func (t Train) Capacity() int {
	return t.CargoNum * t.PlacesInCargo
}
