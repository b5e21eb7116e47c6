package model

import (
	"strings"

	"gorm.io/gorm"
)

// Team is a fixed group of students that jointly submits project
// preferences. Application records reference the team by name; NameLower
// keeps the name-based lookups and uniqueness case-insensitive.
type Team struct {
	gorm.Model
	Name      string `gorm:"type:varchar(64);not null"`
	NameLower string `gorm:"uniqueIndex;type:varchar(64);not null"`
	// Confirmed is set by the tutor once the roster is accepted.
	Confirmed bool `gorm:"not null;default:false"`
	// ProjectID is written only by the allocation commit.
	ProjectID   *uint `gorm:"index"`
	CreatedByID uint  `gorm:"not null"`
	Members     []User
}

func (t *Team) BeforeSave(_ *gorm.DB) error {
	t.NameLower = strings.ToLower(t.Name)
	return nil
}
