package model

import (
	"time"

	"gorm.io/gorm"
)

// Task belongs to exactly one project; tasks are the sole input of the
// progress recomputation.
type Task struct {
	gorm.Model
	ProjectID    uint       `gorm:"not null;index"`
	Title        string     `gorm:"type:varchar(128);not null"`
	Description  string     `gorm:"type:text"`
	Status       TaskStatus `gorm:"type:varchar(16);not null;default:'TODO'"`
	DueDate      *time.Time
	AssignedToID *uint      `gorm:"index"`
	CreatedByID  uint       `gorm:"not null"`
}
