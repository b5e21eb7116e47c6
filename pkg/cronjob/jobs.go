package cronjob

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/atelier-edu/atelier/dao/model"
)

// OverdueDigest mails each tutor one digest per active project that has
// overdue tasks. One failing project does not stop the sweep.
func (m *Manager) OverdueDigest(ctx context.Context) error {
	var projects []model.Project
	if err := m.db.WithContext(ctx).
		Where("stage = ? AND tutor_id IS NOT NULL", model.StageActive).
		Find(&projects).Error; err != nil {
		return err
	}

	eventID := uuid.NewString()
	for i := range projects {
		project := &projects[i]
		var overdue int64
		err := m.db.WithContext(ctx).Model(&model.Task{}).
			Where("project_id = ? AND status <> ? AND due_date < ?",
				project.ID, model.TaskCompleted, time.Now()).
			Count(&overdue).Error
		if err != nil {
			klog.Errorf("overdue count for project %d: %v", project.ID, err)
			continue
		}
		if overdue == 0 {
			continue
		}

		var tutor model.User
		if err := m.db.WithContext(ctx).First(&tutor, *project.TutorID).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				klog.Errorf("tutor %d for project %d: %v", *project.TutorID, project.ID, err)
			}
			continue
		}
		if m.sink != nil {
			m.sink.OverdueTasks(ctx, eventID, &tutor, project, int(overdue))
		}
	}
	return nil
}

// ProgressSnapshot recomputes every active project so the history picks up
// a point even when no task was touched through the API that day.
func (m *Manager) ProgressSnapshot(ctx context.Context) error {
	var projectIDs []uint
	if err := m.db.WithContext(ctx).Model(&model.Project{}).
		Where("stage = ?", model.StageActive).
		Pluck("id", &projectIDs).Error; err != nil {
		return err
	}

	for _, id := range projectIDs {
		if _, err := m.tracker.Recompute(ctx, id); err != nil {
			klog.Errorf("progress snapshot for project %d: %v", id, err)
		}
	}
	return nil
}
