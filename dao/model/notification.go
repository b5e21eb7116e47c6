package model

import (
	"gorm.io/gorm"
)

// Notification is an in-app message produced by the alert sink. EventID
// groups the rows emitted for a single domain event (e.g. one allocation
// commit fanned out to every team member).
type Notification struct {
	gorm.Model
	UserID  uint   `gorm:"not null;index"`
	Kind    string `gorm:"type:varchar(32);not null"`
	Message string `gorm:"type:text;not null"`
	Read    bool   `gorm:"not null;default:false"`
	EventID string `gorm:"type:varchar(36);index"`
}
