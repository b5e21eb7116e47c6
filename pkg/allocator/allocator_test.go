package allocator

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/atelier-edu/atelier/dao/model"
	"github.com/atelier-edu/atelier/pkg/apperr"
	"github.com/atelier-edu/atelier/pkg/recommend"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{}, &model.Team{}, &model.Project{}, &model.Application{}))
	return db
}

func seedProject(t *testing.T, db *gorm.DB, name string, capacity int) *model.Project {
	t.Helper()
	project := &model.Project{
		Name:        name,
		Description: "d",
		Stage:       model.StageActive,
		Approval:    model.ApprovalApproved,
		Capacity:    capacity,
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

func seedTeam(t *testing.T, db *gorm.DB, name string, memberIDs ...uint) *model.Team {
	t.Helper()
	team := &model.Team{Name: name, CreatedByID: 1}
	require.NoError(t, db.Create(team).Error)
	for _, id := range memberIDs {
		require.NoError(t, db.Model(&model.User{}).
			Where("id = ?", id).Update("team_id", team.ID).Error)
	}
	return team
}

func seedStudent(t *testing.T, db *gorm.DB, name string) *model.User {
	t.Helper()
	user := &model.User{Name: name, Email: name + "@example.edu", Role: model.RoleStudent}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedApplication(t *testing.T, db *gorm.DB, team string, studentID, projectID uint, priority int) *model.Application {
	t.Helper()
	application := &model.Application{
		TeamName:   team,
		Priority:   priority,
		ProjectID:  projectID,
		StudentID:  studentID,
		Motivation: "We like it.",
		Status:     model.ApplicationPending,
	}
	require.NoError(t, db.Create(application).Error)
	return application
}

type stubRecommender struct {
	assignments []recommend.Assignment
	err         error
	gotPrefs    []recommend.TeamPreference
}

func (s *stubRecommender) Propose(_ context.Context, prefs []recommend.TeamPreference) ([]recommend.Assignment, error) {
	s.gotPrefs = prefs
	return s.assignments, s.err
}

func TestPropose(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves recommendations against the database", func(t *testing.T) {
		db := newTestDB(t)
		alpha := seedProject(t, db, "Alpha", 3)
		seedProject(t, db, "Beta", 3)
		apollo := seedStudent(t, db, "apollo1")
		hermes := seedStudent(t, db, "hermes1")
		seedApplication(t, db, "Apollo", apollo.ID, alpha.ID, 1)
		seedApplication(t, db, "Hermes", hermes.ID, alpha.ID, 1)

		stub := &stubRecommender{assignments: []recommend.Assignment{
			{TeamName: "Apollo", AssignedProject: "Alpha"},
			{TeamName: "Hermes", AssignedProject: "beta"},
			{TeamName: "Ghost", AssignedProject: "Alpha"},
			{TeamName: "Apollo", AssignedProject: "Vaporware"},
		}}
		allocator := New(db, stub, nil, nil)

		proposals, err := allocator.Propose(ctx)
		require.NoError(t, err)
		require.Len(t, proposals, 4)
		assert.Len(t, stub.gotPrefs, 2)

		assert.Equal(t, StatusRecommended, proposals[0].Status)
		require.NotNil(t, proposals[0].ProjectID)
		assert.Equal(t, alpha.ID, *proposals[0].ProjectID)

		// Case-insensitive project fallback normalizes the name.
		assert.Equal(t, StatusRecommended, proposals[1].Status)
		assert.Equal(t, "Beta", proposals[1].ProjectName)

		assert.Equal(t, StatusTeamNotFound, proposals[2].Status)
		assert.Equal(t, StatusProjectNotFound, proposals[3].Status)
	})

	t.Run("no pending applications", func(t *testing.T) {
		db := newTestDB(t)
		allocator := New(db, &stubRecommender{}, nil, nil)

		_, err := allocator.Propose(ctx)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("recommender failure surfaces as upstream", func(t *testing.T) {
		db := newTestDB(t)
		alpha := seedProject(t, db, "Alpha", 3)
		student := seedStudent(t, db, "apollo1")
		seedApplication(t, db, "Apollo", student.ID, alpha.ID, 1)

		stub := &stubRecommender{err: apperr.Upstreamf("recommender down")}
		allocator := New(db, stub, nil, nil)

		_, err := allocator.Propose(ctx)
		assert.True(t, apperr.IsKind(err, apperr.KindUpstream))
	})
}

func TestCommit(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns the team and settles member applications", func(t *testing.T) {
		db := newTestDB(t)
		alpha := seedProject(t, db, "Alpha", 3)
		beta := seedProject(t, db, "Beta", 3)
		s1 := seedStudent(t, db, "apollo1")
		s2 := seedStudent(t, db, "apollo2")
		seedTeam(t, db, "Apollo", s1.ID, s2.ID)
		seedApplication(t, db, "Apollo", s1.ID, alpha.ID, 1)
		seedApplication(t, db, "Apollo", s1.ID, beta.ID, 2)

		allocator := New(db, nil, nil, nil)
		result, err := allocator.Commit(ctx, "apollo", "Alpha")
		require.NoError(t, err)
		assert.False(t, result.AlreadyAssigned)
		require.NotNil(t, result.Team.ProjectID)
		assert.Equal(t, alpha.ID, *result.Team.ProjectID)
		assert.Len(t, result.Members, 2)

		// The filer's application was accepted, the other one dropped.
		var s1Apps []model.Application
		require.NoError(t, db.Where("student_id = ?", s1.ID).Find(&s1Apps).Error)
		require.Len(t, s1Apps, 1)
		assert.Equal(t, alpha.ID, s1Apps[0].ProjectID)
		assert.Equal(t, model.ApplicationAccepted, s1Apps[0].Status)

		// The teammate who never applied got a system application.
		var s2Apps []model.Application
		require.NoError(t, db.Where("student_id = ?", s2.ID).Find(&s2Apps).Error)
		require.Len(t, s2Apps, 1)
		assert.Equal(t, SystemMotivation, s2Apps[0].Motivation)
		assert.Equal(t, model.ApplicationAccepted, s2Apps[0].Status)
	})

	t.Run("recommit to the same project is a no-op", func(t *testing.T) {
		db := newTestDB(t)
		seedProject(t, db, "Alpha", 3)
		s1 := seedStudent(t, db, "apollo1")
		seedTeam(t, db, "Apollo", s1.ID)

		allocator := New(db, nil, nil, nil)
		_, err := allocator.Commit(ctx, "Apollo", "Alpha")
		require.NoError(t, err)

		result, err := allocator.Commit(ctx, "Apollo", "Alpha")
		require.NoError(t, err)
		assert.True(t, result.AlreadyAssigned)
	})

	t.Run("moving an assigned team is refused", func(t *testing.T) {
		db := newTestDB(t)
		seedProject(t, db, "Alpha", 3)
		seedProject(t, db, "Beta", 3)
		s1 := seedStudent(t, db, "apollo1")
		seedTeam(t, db, "Apollo", s1.ID)

		allocator := New(db, nil, nil, nil)
		_, err := allocator.Commit(ctx, "Apollo", "Alpha")
		require.NoError(t, err)

		_, err = allocator.Commit(ctx, "Apollo", "Beta")
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})

	t.Run("capacity is enforced", func(t *testing.T) {
		db := newTestDB(t)
		seedProject(t, db, "Alpha", 2)
		for _, name := range []string{"Apollo", "Hermes", "Artemis"} {
			student := seedStudent(t, db, name+"1")
			seedTeam(t, db, name, student.ID)
		}

		allocator := New(db, nil, nil, nil)
		_, err := allocator.Commit(ctx, "Apollo", "Alpha")
		require.NoError(t, err)
		_, err = allocator.Commit(ctx, "Hermes", "Alpha")
		require.NoError(t, err)

		_, err = allocator.Commit(ctx, "Artemis", "Alpha")
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})

	t.Run("unknown team or project", func(t *testing.T) {
		db := newTestDB(t)
		seedProject(t, db, "Alpha", 3)
		s1 := seedStudent(t, db, "apollo1")
		seedTeam(t, db, "Apollo", s1.ID)

		allocator := New(db, nil, nil, nil)
		_, err := allocator.Commit(ctx, "Ghost", "Alpha")
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

		_, err = allocator.Commit(ctx, "Apollo", "Vaporware")
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}
