package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Evaluation is the single grading record of a team. Resubmitting for the
// same team replaces the record and its items.
type Evaluation struct {
	gorm.Model
	TeamID      uint      `gorm:"uniqueIndex;not null"`
	EvaluatorID uint      `gorm:"not null"`
	TeamAverage float64   `gorm:"not null"` // in [0,20], 2 decimals
	EvaluatedAt time.Time `gorm:"not null"`

	Items []EvaluationItem `gorm:"constraint:OnDelete:CASCADE"`
}

// EvaluationItem holds one member's rubric vector and the grade derived
// from it.
type EvaluationItem struct {
	gorm.Model
	EvaluationID uint                                    `gorm:"not null;index"`
	MemberID     uint                                    `gorm:"not null"`
	Scores       datatypes.JSONType[map[string]float64] `gorm:"type:json"`
	Grade        float64                                 `gorm:"not null"` // in [0,20], 2 decimals
}
