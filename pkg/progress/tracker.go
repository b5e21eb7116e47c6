// Package progress recomputes a project's completion percentage from its
// tasks and derives advisory completion forecasts and risk alerts.
package progress

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/atelier-edu/atelier/dao/model"
	"github.com/atelier-edu/atelier/pkg/apperr"
	"github.com/atelier-edu/atelier/pkg/monitor"
)

type Tracker struct {
	db         *gorm.DB
	forecaster *Forecaster
}

// NewTracker builds a tracker; forecaster may be nil, in which case
// predictions are always reported unavailable.
func NewTracker(db *gorm.DB, forecaster *Forecaster) *Tracker {
	return &Tracker{db: db, forecaster: forecaster}
}

// Recompute recalculates the progress percentage of a project after a task
// mutation. Only COMPLETED tasks count; a project without tasks is at 0.
// A history point is appended only when the percentage actually moved.
func (t *Tracker) Recompute(ctx context.Context, projectID uint) (*model.Project, error) {
	var project model.Project
	if err := t.db.WithContext(ctx).First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("project %d not found", projectID)
		}
		return nil, err
	}

	var total, completed int64
	if err := t.db.WithContext(ctx).Model(&model.Task{}).
		Where("project_id = ?", projectID).Count(&total).Error; err != nil {
		return nil, err
	}
	if total > 0 {
		if err := t.db.WithContext(ctx).Model(&model.Task{}).
			Where("project_id = ? AND status = ?", projectID, model.TaskCompleted).
			Count(&completed).Error; err != nil {
			return nil, err
		}
	}

	percentage := 0
	if total > 0 {
		percentage = int(math.Round(float64(completed) / float64(total) * 100))
	}

	if percentage != project.Progress {
		project.Progress = percentage
		project.History = append(project.History, model.ProgressPoint{
			Date:     time.Now(),
			Progress: percentage,
		})
		if err := t.db.WithContext(ctx).Model(&project).
			Select("progress", "history").Updates(&project).Error; err != nil {
			return nil, err
		}
	}
	return &project, nil
}

// Prediction is the advisory answer of PredictCompletion; Date is nil when
// no prediction is possible and Message says why.
type Prediction struct {
	Date     *string `json:"predictedCompletionDate"`
	Message  string  `json:"message,omitempty"`
	Fallback bool    `json:"fallback,omitempty"`
}

// PredictCompletion extrapolates a completion date from the progress
// history. Requires at least two valid history samples; forecaster
// failures degrade to an "unavailable" answer instead of failing the
// caller.
func (t *Tracker) PredictCompletion(ctx context.Context, projectID uint) (*Prediction, error) {
	var project model.Project
	if err := t.db.WithContext(ctx).First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("project %d not found", projectID)
		}
		return nil, err
	}

	if project.Progress == 100 {
		var date *string
		if project.EndDate != nil {
			formatted := project.EndDate.Format(time.RFC3339)
			date = &formatted
		}
		return &Prediction{Date: date, Message: "Project is complete"}, nil
	}

	if len(project.History) < 2 {
		return &Prediction{Message: "Insufficient data for prediction"}, nil
	}
	for _, point := range project.History {
		if point.Date.IsZero() || point.Progress < 0 || point.Progress > 100 {
			return &Prediction{Message: "Invalid progress history"}, nil
		}
	}

	if t.forecaster == nil {
		monitor.ForecastFallbacks.Inc()
		return &Prediction{Message: "Prediction service not configured", Fallback: true}, nil
	}
	date, err := t.forecaster.Extrapolate(ctx, project.History)
	if err != nil {
		klog.Errorf("prediction for project %d unavailable: %v", projectID, err)
		monitor.ForecastFallbacks.Inc()
		return &Prediction{Message: "Prediction service temporarily unavailable", Fallback: true}, nil
	}
	return &Prediction{Date: date}, nil
}

// RiskAlert reports overdue work: non-completed tasks past their due date.
// Returns nil when the project is on track.
func (t *Tracker) RiskAlert(ctx context.Context, projectID uint) (*string, error) {
	var overdue int64
	err := t.db.WithContext(ctx).Model(&model.Task{}).
		Where("project_id = ? AND status <> ? AND due_date < ?",
			projectID, model.TaskCompleted, time.Now()).
		Count(&overdue).Error
	if err != nil {
		return nil, err
	}
	if overdue == 0 {
		return nil, nil
	}
	alert := fmt.Sprintf("Warning: %d task(s) are overdue.", overdue)
	return &alert, nil
}
