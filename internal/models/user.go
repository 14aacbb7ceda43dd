package models

import "time"

// User is an API account. Staff users may modify the catalog.
type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	Email        string `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string `gorm:"size:255;not null"`
	IsStaff      bool   `gorm:"default:false"`
	CreatedAt    time.Time
}
