package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification is a persisted per-user message, also pushed to the user's
// active sessions when a device token is registered.
type Notification struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	UserID    uint           `gorm:"index;not null"`
	Title     string         `gorm:"size:255;not null"`
	Body      string         `gorm:"size:1024"`
	IsRead    bool           `gorm:"default:false;not null"`
}
