package progress

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/atelier-edu/atelier/dao/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Project{}, &model.Task{}))
	return db
}

func newProject(t *testing.T, db *gorm.DB) *model.Project {
	t.Helper()
	project := &model.Project{
		Name:        "Alpha",
		Description: "test project",
		Stage:       model.StageActive,
		Approval:    model.ApprovalApproved,
		Capacity:    model.DefaultProjectCapacity,
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

func addTask(t *testing.T, db *gorm.DB, projectID uint, status model.TaskStatus) *model.Task {
	t.Helper()
	task := &model.Task{
		ProjectID:   projectID,
		Title:       "task",
		Status:      status,
		CreatedByID: 1,
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

func TestRecompute(t *testing.T) {
	db := newTestDB(t)
	tracker := NewTracker(db, nil)
	ctx := context.Background()

	t.Run("no tasks means zero progress", func(t *testing.T) {
		project := newProject(t, db)
		got, err := tracker.Recompute(ctx, project.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Progress)
		assert.Empty(t, got.History)
	})

	t.Run("one of four tasks completed is 25", func(t *testing.T) {
		project := &model.Project{Name: "Beta", Description: "d", Capacity: 3}
		require.NoError(t, db.Create(project).Error)
		addTask(t, db, project.ID, model.TaskCompleted)
		addTask(t, db, project.ID, model.TaskTodo)
		addTask(t, db, project.ID, model.TaskInProgress)
		addTask(t, db, project.ID, model.TaskReview)

		got, err := tracker.Recompute(ctx, project.ID)
		require.NoError(t, err)
		assert.Equal(t, 25, got.Progress)
		require.Len(t, got.History, 1)
		assert.Equal(t, 25, got.History[0].Progress)
	})

	t.Run("all completed is 100 and history grows only on change", func(t *testing.T) {
		project := &model.Project{Name: "Gamma", Description: "d", Capacity: 3}
		require.NoError(t, db.Create(project).Error)
		tasks := []*model.Task{
			addTask(t, db, project.ID, model.TaskTodo),
			addTask(t, db, project.ID, model.TaskTodo),
		}

		got, err := tracker.Recompute(ctx, project.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Progress)
		assert.Empty(t, got.History)

		for _, task := range tasks {
			require.NoError(t, db.Model(task).Update("status", model.TaskCompleted).Error)
		}
		got, err = tracker.Recompute(ctx, project.ID)
		require.NoError(t, err)
		assert.Equal(t, 100, got.Progress)
		require.Len(t, got.History, 1)

		// No task changed: recompute again must not append.
		got, err = tracker.Recompute(ctx, project.ID)
		require.NoError(t, err)
		assert.Equal(t, 100, got.Progress)
		assert.Len(t, got.History, 1)
	})

	t.Run("unknown project", func(t *testing.T) {
		_, err := tracker.Recompute(ctx, 99999)
		require.Error(t, err)
	})
}

func historyOf(points ...int) []model.ProgressPoint {
	history := make([]model.ProgressPoint, len(points))
	for i, p := range points {
		history[i] = model.ProgressPoint{Date: time.Now().AddDate(0, 0, i-len(points)), Progress: p}
	}
	return history
}

func TestPredictCompletion(t *testing.T) {
	ctx := context.Background()

	t.Run("insufficient history", func(t *testing.T) {
		db := newTestDB(t)
		project := newProject(t, db)
		tracker := NewTracker(db, nil)

		prediction, err := tracker.PredictCompletion(ctx, project.ID)
		require.NoError(t, err)
		assert.Nil(t, prediction.Date)
		assert.Equal(t, "Insufficient data for prediction", prediction.Message)
	})

	t.Run("completed project reports its end date", func(t *testing.T) {
		db := newTestDB(t)
		end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		project := &model.Project{Name: "Done", Description: "d", Capacity: 3, Progress: 100, EndDate: &end}
		require.NoError(t, db.Create(project).Error)
		tracker := NewTracker(db, nil)

		prediction, err := tracker.PredictCompletion(ctx, project.ID)
		require.NoError(t, err)
		require.NotNil(t, prediction.Date)
		assert.Equal(t, end.Format(time.RFC3339), *prediction.Date)
	})

	t.Run("forecaster answer is forwarded", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body forecastReq
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Len(t, body.ProgressHistory, 3)

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"predictedCompletionDate": "2026-10-01T00:00:00Z",
			})
		}))
		defer srv.Close()

		db := newTestDB(t)
		project := &model.Project{
			Name: "Trending", Description: "d", Capacity: 3,
			Progress: 50, History: historyOf(10, 30, 50),
		}
		require.NoError(t, db.Create(project).Error)
		tracker := NewTracker(db, NewForecaster(srv.URL, time.Second))

		prediction, err := tracker.PredictCompletion(ctx, project.ID)
		require.NoError(t, err)
		require.NotNil(t, prediction.Date)
		assert.Equal(t, "2026-10-01T00:00:00Z", *prediction.Date)
	})

	t.Run("forecaster failure degrades to unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		db := newTestDB(t)
		project := &model.Project{
			Name: "Flaky", Description: "d", Capacity: 3,
			Progress: 40, History: historyOf(20, 40),
		}
		require.NoError(t, db.Create(project).Error)
		tracker := NewTracker(db, NewForecaster(srv.URL, time.Second))

		prediction, err := tracker.PredictCompletion(ctx, project.ID)
		require.NoError(t, err)
		assert.Nil(t, prediction.Date)
		assert.True(t, prediction.Fallback)
	})
}

func TestRiskAlert(t *testing.T) {
	db := newTestDB(t)
	tracker := NewTracker(db, nil)
	ctx := context.Background()
	project := newProject(t, db)

	alert, err := tracker.RiskAlert(ctx, project.ID)
	require.NoError(t, err)
	assert.Nil(t, alert)

	past := time.Now().AddDate(0, 0, -2)
	task := &model.Task{ProjectID: project.ID, Title: "late", Status: model.TaskInProgress, DueDate: &past, CreatedByID: 1}
	require.NoError(t, db.Create(task).Error)

	alert, err = tracker.RiskAlert(ctx, project.ID)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Contains(t, *alert, "1 task(s) are overdue")
}
