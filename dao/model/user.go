package model

import (
	"gorm.io/gorm"
)

// User is the basic entity of the system.
type User struct {
	gorm.Model
	Name      string  `gorm:"uniqueIndex;type:varchar(32);not null"`
	Email     string  `gorm:"uniqueIndex;type:varchar(128);not null"`
	Password  *string `gorm:"type:varchar(128)"`
	FirstName string  `gorm:"type:varchar(64)"`
	LastName  string  `gorm:"type:varchar(64)"`
	Role      Role    `gorm:"type:varchar(16);not null"`
	// TeamID is maintained by the team handler; the assigned project is
	// reached through the team.
	TeamID *uint `gorm:"index"`
}
