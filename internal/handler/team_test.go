package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/atelier-edu/atelier/dao/model"
	"github.com/atelier-edu/atelier/internal/util"
)

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Team{}, &model.Project{},
		&model.Application{}, &model.Task{}))
	return db
}

// jsonCtx builds a gin test context carrying the given token claims and an
// optional JSON body.
func jsonCtx(t *testing.T, msg util.JWTMessage, body any) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	c.Request = httptest.NewRequest(http.MethodPost, "/", &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	util.SetJWTContext(c, msg)
	return c, w
}

func withID(c *gin.Context, id uint) {
	c.Params = append(c.Params, gin.Param{Key: "id", Value: strconv.FormatUint(uint64(id), 10)})
}

// Membership checks must hold even when the token predates the user's
// current team: the team claim only refreshes on re-login.
func TestTeamMembershipReadFromDB(t *testing.T) {
	db := newHandlerDB(t)
	mgr := &TeamMgr{name: "teams", db: db}

	apollo := &model.Team{Name: "Apollo", CreatedByID: 1}
	require.NoError(t, db.Create(apollo).Error)
	hermes := &model.Team{Name: "Hermes", CreatedByID: 2}
	require.NoError(t, db.Create(hermes).Error)

	user := &model.User{Name: "ada", Email: "ada@example.org", Role: model.RoleStudent, TeamID: &apollo.ID}
	require.NoError(t, db.Create(user).Error)
	project := &model.Project{Name: "Compiler", Description: "d", Approval: model.ApprovalApproved, Capacity: 3}
	require.NoError(t, db.Create(project).Error)
	require.NoError(t, db.Create(&model.Application{
		TeamName:    "Apollo",
		Priority:    1,
		ProjectID:   project.ID,
		StudentID:   user.ID,
		Motivation:  "m",
		Status:      model.ApplicationPending,
		SubmittedAt: time.Now(),
	}).Error)

	// Claims minted before the user joined Apollo.
	stale := util.JWTMessage{
		UserID:   user.ID,
		Username: user.Name,
		Role:     model.RoleStudent,
		TeamID:   util.TeamIDNull,
	}

	t.Run("join refused while on a team with applications", func(t *testing.T) {
		c, w := jsonCtx(t, stale, nil)
		withID(c, hermes.ID)
		mgr.Join(c)
		assert.Equal(t, http.StatusConflict, w.Code)

		var got model.User
		require.NoError(t, db.First(&got, user.ID).Error)
		require.NotNil(t, got.TeamID)
		assert.Equal(t, apollo.ID, *got.TeamID)
	})

	t.Run("leave refused while applications on file", func(t *testing.T) {
		c, w := jsonCtx(t, stale, nil)
		mgr.Leave(c)
		assert.Equal(t, http.StatusConflict, w.Code)

		var got model.User
		require.NoError(t, db.First(&got, user.ID).Error)
		assert.NotNil(t, got.TeamID)
	})

	t.Run("create refused while already on a team", func(t *testing.T) {
		c, w := jsonCtx(t, stale, CreateTeamReq{Name: "Nova"})
		mgr.Create(c)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestTeamLeaveUnlocked(t *testing.T) {
	db := newHandlerDB(t)
	mgr := &TeamMgr{name: "teams", db: db}

	team := &model.Team{Name: "Orion", CreatedByID: 1}
	require.NoError(t, db.Create(team).Error)
	user := &model.User{Name: "bob", Email: "bob@example.org", Role: model.RoleStudent, TeamID: &team.ID}
	require.NoError(t, db.Create(user).Error)

	stale := util.JWTMessage{UserID: user.ID, Username: user.Name, Role: model.RoleStudent, TeamID: util.TeamIDNull}
	c, w := jsonCtx(t, stale, nil)
	mgr.Leave(c)
	require.Equal(t, http.StatusOK, w.Code)

	var got model.User
	require.NoError(t, db.First(&got, user.ID).Error)
	assert.Nil(t, got.TeamID)
}

func TestTeamDeleteFreesName(t *testing.T) {
	db := newHandlerDB(t)
	mgr := &TeamMgr{name: "teams", db: db}

	team := &model.Team{Name: "Vega", CreatedByID: 1}
	require.NoError(t, db.Create(team).Error)

	admin := util.JWTMessage{UserID: 99, Username: "root", Role: model.RoleAdmin}
	c, w := jsonCtx(t, admin, nil)
	withID(c, team.ID)
	mgr.Delete(c)
	require.Equal(t, http.StatusOK, w.Code)

	founder := &model.User{Name: "eve", Email: "eve@example.org", Role: model.RoleStudent}
	require.NoError(t, db.Create(founder).Error)
	c, w = jsonCtx(t, util.JWTMessage{UserID: founder.ID, Username: founder.Name, Role: model.RoleStudent},
		CreateTeamReq{Name: "Vega"})
	mgr.Create(c)
	assert.Equal(t, http.StatusOK, w.Code)
}
