package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProgressPoint is one sample of the completion history, the input of the
// forecaster service.
type ProgressPoint struct {
	Date     time.Time `json:"date"`
	Progress int       `json:"progress"`
}

type Project struct {
	gorm.Model
	Name        string                          `gorm:"uniqueIndex;type:varchar(128);not null"`
	Description string                          `gorm:"type:text;not null"`
	Tags        datatypes.JSONSlice[string]     `gorm:"type:json"`
	Stage       ProjectStage                    `gorm:"type:varchar(16);not null;default:'PENDING'"`
	Approval    ApprovalStatus                  `gorm:"type:varchar(16);not null;default:'PENDING_REVIEW'"`
	TutorID     *uint                           `gorm:"index"`
	Capacity    int                             `gorm:"not null;default:3"`
	StartDate   *time.Time
	EndDate     *time.Time
	Progress    int                             `gorm:"not null;default:0"` // percentage in [0,100]
	History     datatypes.JSONSlice[ProgressPoint] `gorm:"type:json"`

	// Teams assigned by the allocation commit (Team.ProjectID back
	// reference); never more than Capacity.
	Teams []Team
	Tasks []Task
}
