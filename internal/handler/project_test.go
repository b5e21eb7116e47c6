package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-edu/atelier/dao/model"
	"github.com/atelier-edu/atelier/internal/util"
)

func TestProjectDeleteFreesName(t *testing.T) {
	db := newHandlerDB(t)
	mgr := &ProjectMgr{name: "projects", db: db}
	admin := util.JWTMessage{UserID: 1, Username: "root", Role: model.RoleAdmin}

	c, w := jsonCtx(t, admin, CreateProjectReq{Name: "Metis", Description: "d"})
	mgr.Create(c)
	require.Equal(t, http.StatusOK, w.Code)

	var project model.Project
	require.NoError(t, db.Where("name = ?", "Metis").First(&project).Error)

	c, w = jsonCtx(t, admin, nil)
	withID(c, project.ID)
	mgr.Delete(c)
	require.Equal(t, http.StatusOK, w.Code)

	// The unique name is free again.
	c, w = jsonCtx(t, admin, CreateProjectReq{Name: "Metis", Description: "d"})
	mgr.Create(c)
	assert.Equal(t, http.StatusOK, w.Code)
}
