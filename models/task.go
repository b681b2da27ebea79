package models

import (
	"time"

	"gorm.io/gorm"
)

// Task statuses.
const (
	TaskStatusTodo       = "TODO"
	TaskStatusInProgress = "IN_PROGRESS"
	TaskStatusDone       = "DONE"
)

// ValidTaskStatus reports whether s is one of the known task statuses.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// Task belongs to a room and may be assigned to one of its members.
type Task struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Title       string         `gorm:"size:255;not null"`
	Description string         `gorm:"size:1024"`
	DueDate     time.Time      `gorm:"not null"`
	Status      string         `gorm:"size:32;not null;default:TODO"`
	Review      string         `gorm:"size:1024"`
	UserID      *uint          `gorm:"index"` // nullable assignee
	User        *User          `gorm:"foreignKey:UserID;references:ID"`
	RoomID      uint           `gorm:"index;not null"`
	Room        Room           `gorm:"foreignKey:RoomID;references:ID"`
}
