package cronjob

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/atelier-edu/atelier/dao/model"
	"github.com/atelier-edu/atelier/pkg/progress"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Project{}, &model.Task{}))
	return db
}

type capturingSink struct {
	mu      sync.Mutex
	overdue []int
}

func (s *capturingSink) TeamConfirmed(context.Context, string, *model.Team, []model.User) {}

func (s *capturingSink) AllocationCommitted(context.Context, string, *model.Team, *model.Project, []model.User) {
}

func (s *capturingSink) EvaluationPublished(context.Context, string, *model.Team, []model.User) {}

func (s *capturingSink) OverdueTasks(_ context.Context, _ string, _ *model.User, _ *model.Project, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overdue = append(s.overdue, count)
}

func TestAddJob(t *testing.T) {
	manager := NewManager(nil, nil, nil)
	assert.Error(t, manager.AddJob("bad", "not a spec", func() {}))
	assert.NoError(t, manager.AddJob("ok", "@daily", func() {}))
}

func TestOverdueDigest(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	tutor := model.User{Name: "tutor", Email: "tutor@example.edu", Role: model.RoleTutor}
	require.NoError(t, db.Create(&tutor).Error)

	past := time.Now().AddDate(0, 0, -1)
	late := model.Project{
		Name: "Late", Description: "d", Capacity: 3,
		Stage: model.StageActive, TutorID: &tutor.ID,
	}
	require.NoError(t, db.Create(&late).Error)
	require.NoError(t, db.Create(&model.Task{
		ProjectID: late.ID, Title: "t1", Status: model.TaskTodo,
		DueDate: &past, CreatedByID: tutor.ID,
	}).Error)
	require.NoError(t, db.Create(&model.Task{
		ProjectID: late.ID, Title: "t2", Status: model.TaskInProgress,
		DueDate: &past, CreatedByID: tutor.ID,
	}).Error)

	onTrack := model.Project{
		Name: "OnTrack", Description: "d", Capacity: 3,
		Stage: model.StageActive, TutorID: &tutor.ID,
	}
	require.NoError(t, db.Create(&onTrack).Error)

	sink := &capturingSink{}
	manager := NewManager(db, nil, sink)
	require.NoError(t, manager.OverdueDigest(ctx))

	require.Len(t, sink.overdue, 1)
	assert.Equal(t, 2, sink.overdue[0])
}

func TestProgressSnapshot(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	project := model.Project{Name: "Alpha", Description: "d", Capacity: 3, Stage: model.StageActive}
	require.NoError(t, db.Create(&project).Error)
	require.NoError(t, db.Create(&model.Task{
		ProjectID: project.ID, Title: "t", Status: model.TaskCompleted, CreatedByID: 1,
	}).Error)

	manager := NewManager(db, progress.NewTracker(db, nil), nil)
	require.NoError(t, manager.ProgressSnapshot(ctx))

	var reloaded model.Project
	require.NoError(t, db.First(&reloaded, project.ID).Error)
	assert.Equal(t, 100, reloaded.Progress)
	require.Len(t, reloaded.History, 1)
}
