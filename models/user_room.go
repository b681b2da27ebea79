package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRoom is the room membership join row. Exactly one member per room has
// IsOwner set.
type UserRoom struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	UserID    uint           `gorm:"index;not null"`
	User      User           `gorm:"foreignKey:UserID;references:ID"`
	RoomID    uint           `gorm:"index;not null"`
	Room      Room           `gorm:"foreignKey:RoomID;references:ID"`
	IsOwner   bool           `gorm:"default:false;not null"`
}
