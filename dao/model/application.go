package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Application is one team's bid for one project at a stated priority.
//
// The (student, project) unique index is the backstop for concurrent
// submissions by one student. The team-level rules (distinct priority,
// distinct project) are backed by partial unique indexes scoped to PENDING
// rows: they serialize concurrent submissions for one team name, while the
// allocation commit can still fan the accepted application out to every
// team member even though those ACCEPTED rows share team and priority.
type Application struct {
	gorm.Model
	TeamName      string            `gorm:"type:varchar(64);not null"`
	TeamNameLower string            `gorm:"type:varchar(64);not null;index;uniqueIndex:idx_app_team_priority_pending;uniqueIndex:idx_app_team_project_pending"`
	Priority      int               `gorm:"not null;uniqueIndex:idx_app_team_priority_pending,where:status = 'PENDING'"`
	ProjectID     uint              `gorm:"not null;uniqueIndex:idx_app_student_project;uniqueIndex:idx_app_team_project_pending,where:status = 'PENDING'"`
	StudentID     uint              `gorm:"not null;uniqueIndex:idx_app_student_project"`
	Motivation    string            `gorm:"type:text;not null"`
	Status        ApplicationStatus `gorm:"type:varchar(16);not null;default:'PENDING'"`
	SubmittedAt   time.Time         `gorm:"not null"`

	Project Project
	Student User
}

func (a *Application) BeforeSave(_ *gorm.DB) error {
	a.TeamNameLower = strings.ToLower(a.TeamName)
	return nil
}
