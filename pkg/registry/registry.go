// Package registry implements the project application workflow: a team
// files at most two prioritized applications, each backed by a motivation
// letter, before the allocation round.
package registry

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/atelier-edu/atelier/dao/model"
	"github.com/atelier-edu/atelier/pkg/apperr"
)

// MaxApplicationsPerTeam caps how many projects one team may bid on.
const MaxApplicationsPerTeam = 2

// MaxMotivationWords bounds the motivation letter length.
const MaxMotivationWords = 250

type Registry struct {
	db *gorm.DB
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

type SubmitRequest struct {
	TeamName   string `json:"teamName" binding:"required"`
	ProjectID  uint   `json:"projectId" binding:"required"`
	Priority   int    `json:"priority" binding:"required"`
	Motivation string `json:"motivation" binding:"required"`
}

// Submit files one application for the student's team and returns the
// team's full application set so the caller can show "1/2" or "2/2".
//
// Team identity is the name as claimed by the first filer: once a team has
// an application on file, only that filer may add the second one. All
// duplicate conditions are pre-checked for precise messages; the unique
// indexes on the application table are the concurrent-request backstop.
func (r *Registry) Submit(ctx context.Context, studentID uint, req *SubmitRequest) ([]model.Application, error) {
	if req.Priority != 1 && req.Priority != 2 {
		return nil, apperr.Validationf("priority must be 1 or 2")
	}
	motivation := strings.TrimSpace(req.Motivation)
	if motivation == "" {
		return nil, apperr.Validationf("motivation letter is required")
	}
	if words := len(strings.Fields(motivation)); words > MaxMotivationWords {
		return nil, apperr.Validationf("motivation letter exceeds %d words", MaxMotivationWords)
	}
	teamName := strings.TrimSpace(req.TeamName)
	if teamName == "" {
		return nil, apperr.Validationf("team name is required")
	}
	nameLower := strings.ToLower(teamName)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project model.Project
		if err := tx.First(&project, req.ProjectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("project %d not found", req.ProjectID)
			}
			return err
		}
		if project.Approval != model.ApprovalApproved {
			return apperr.Validationf("project %q is not open for applications", project.Name)
		}

		var existing []model.Application
		if err := tx.Where("team_name_lower = ?", nameLower).Find(&existing).Error; err != nil {
			return err
		}
		if len(existing) >= MaxApplicationsPerTeam {
			return apperr.Conflictf("team %q already has %d applications", teamName, MaxApplicationsPerTeam)
		}
		for _, app := range existing {
			if app.ProjectID == req.ProjectID {
				return apperr.Conflictf("team %q already applied to this project", teamName)
			}
			if app.Priority == req.Priority {
				return apperr.Conflictf("team %q already used priority %d", teamName, req.Priority)
			}
			if app.StudentID != studentID {
				return apperr.Conflictf("only the original applicant may add applications for team %q", teamName)
			}
		}

		// The same student may not chase one project through two team names.
		var crossTeam int64
		if err := tx.Model(&model.Application{}).
			Where("student_id = ? AND project_id = ?", studentID, req.ProjectID).
			Count(&crossTeam).Error; err != nil {
			return err
		}
		if crossTeam > 0 {
			return apperr.Conflictf("you already applied to this project under another team")
		}

		application := model.Application{
			TeamName:    teamName,
			Priority:    req.Priority,
			ProjectID:   req.ProjectID,
			StudentID:   studentID,
			Motivation:  motivation,
			Status:      model.ApplicationPending,
			SubmittedAt: time.Now(),
		}
		if err := tx.Create(&application).Error; err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflictf("a conflicting application was filed concurrently")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.ListForTeam(ctx, teamName)
}

// Cancel hard-deletes a pending application. Only the filer may cancel.
func (r *Registry) Cancel(ctx context.Context, applicationID, requesterID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var application model.Application
		if err := tx.First(&application, applicationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("application %d not found", applicationID)
			}
			return err
		}
		if application.StudentID != requesterID {
			return apperr.Forbiddenf("only the applicant may cancel this application")
		}
		if application.Status != model.ApplicationPending {
			return apperr.Conflictf("only pending applications can be cancelled")
		}
		return tx.Unscoped().Delete(&application).Error
	})
}

func (r *Registry) ListForStudent(ctx context.Context, studentID uint) ([]model.Application, error) {
	var applications []model.Application
	err := r.db.WithContext(ctx).Preload("Project").
		Where("student_id = ?", studentID).
		Order("priority").Find(&applications).Error
	return applications, err
}

// ListForTeam matches the team name case-insensitively.
func (r *Registry) ListForTeam(ctx context.Context, teamName string) ([]model.Application, error) {
	var applications []model.Application
	err := r.db.WithContext(ctx).Preload("Project").
		Where("team_name_lower = ?", strings.ToLower(strings.TrimSpace(teamName))).
		Order("priority").Find(&applications).Error
	return applications, err
}

// ListAll is the tutor/admin projection over every application.
func (r *Registry) ListAll(ctx context.Context) ([]model.Application, error) {
	var applications []model.Application
	err := r.db.WithContext(ctx).Preload("Project").Preload("Student").
		Order("team_name_lower, priority").Find(&applications).Error
	return applications, err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
