package models

import (
	"time"

	"gorm.io/gorm"
)

// Room groups users and their tasks. Membership lives in UserRoom.
type Room struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Name        string         `gorm:"size:255;not null"`
	Description string         `gorm:"size:512"`
	InviteCode  string         `gorm:"size:64;uniqueIndex;not null"`
	UserRooms   []UserRoom
	Tasks       []Task
}
