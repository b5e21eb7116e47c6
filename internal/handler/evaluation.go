package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atelier-edu/atelier/dao/model"
	"github.com/atelier-edu/atelier/internal/resputil"
	"github.com/atelier-edu/atelier/internal/util"
	"github.com/atelier-edu/atelier/pkg/evalstore"
	"github.com/atelier-edu/atelier/pkg/grader"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewEvaluationMgr)
}

type EvaluationMgr struct {
	name  string
	store *evalstore.Store
}

func NewEvaluationMgr(conf *RegisterConfig) Manager {
	return &EvaluationMgr{
		name:  "evaluations",
		store: conf.EvalStore,
	}
}

func (mgr *EvaluationMgr) GetName() string { return mgr.name }

func (mgr *EvaluationMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *EvaluationMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/team/:id", mgr.GetByTeam)
}

func (mgr *EvaluationMgr) RegisterTutor(g *gin.RouterGroup) {
	g.POST("", mgr.Submit)
	g.GET("/rubric", mgr.Rubric)
}

func (mgr *EvaluationMgr) RegisterAdmin(_ *gin.RouterGroup) {}

func (mgr *EvaluationMgr) Submit(c *gin.Context) {
	var req evalstore.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	evaluation, err := mgr.store.Submit(c, token.UserID, &req)
	if err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, evaluation)
}

// GetByTeam returns the team's evaluation. Students only see their own
// team's.
func (mgr *EvaluationMgr) GetByTeam(c *gin.Context) {
	var req TeamIDReq
	if err := c.ShouldBindUri(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	if token.Role == model.RoleStudent && token.TeamID != req.ID {
		resputil.HTTPError(c, http.StatusForbidden, "Not your team", resputil.UserNotAllowed)
		return
	}

	evaluation, err := mgr.store.GetByTeam(c, req.ID)
	if err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	if evaluation == nil {
		resputil.HTTPError(c, http.StatusNotFound, "No evaluation on file", resputil.NotFound)
		return
	}
	resputil.Success(c, evaluation)
}

// Rubric exposes the weight table the grader applies, so the grading UI
// and the backend cannot drift apart.
func (mgr *EvaluationMgr) Rubric(c *gin.Context) {
	resputil.Success(c, grader.DefaultWeights())
}
