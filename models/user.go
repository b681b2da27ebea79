package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the principal record. Users are never hard-deleted; email stays
// unique across non-deleted rows.
type User struct {
	ID             uint `gorm:"primaryKey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	Email          string         `gorm:"size:255;not null;uniqueIndex"`
	HashedPassword []byte         `gorm:"not null" json:"-"`
	FullName       string         `gorm:"size:255;not null"`
	IsVerified     bool           `gorm:"default:false;not null"`
	RoleID         *uint          `gorm:"index"`
	Role           Role           `gorm:"foreignKey:RoleID;references:ID"`
	UserRooms      []UserRoom
	Tasks          []Task
}
