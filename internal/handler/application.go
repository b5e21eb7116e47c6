package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/atelier-edu/atelier/internal/resputil"
	"github.com/atelier-edu/atelier/internal/util"
	"github.com/atelier-edu/atelier/pkg/registry"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewApplicationMgr)
}

type ApplicationMgr struct {
	name     string
	registry *registry.Registry
}

func NewApplicationMgr(conf *RegisterConfig) Manager {
	return &ApplicationMgr{
		name:     "applications",
		registry: conf.Registry,
	}
}

func (mgr *ApplicationMgr) GetName() string { return mgr.name }

func (mgr *ApplicationMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *ApplicationMgr) RegisterProtected(g *gin.RouterGroup) {
	g.POST("", mgr.Submit)
	g.DELETE("/:id", mgr.Cancel)
	g.GET("", mgr.ListMine)
	g.GET("/team/:name", mgr.ListForTeam)
}

func (mgr *ApplicationMgr) RegisterTutor(g *gin.RouterGroup) {
	g.GET("", mgr.ListAll)
}

func (mgr *ApplicationMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type ApplicationIDReq struct {
	ID uint `uri:"id" binding:"required"`
}

type TeamNameReq struct {
	Name string `uri:"name" binding:"required"`
}

// Submit files an application for the actor's team and returns the team's
// current set, so the client can show "1/2" or "2/2".
func (mgr *ApplicationMgr) Submit(c *gin.Context) {
	var req registry.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	applications, err := mgr.registry.Submit(c, token.UserID, &req)
	if err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, applications)
}

func (mgr *ApplicationMgr) Cancel(c *gin.Context) {
	var req ApplicationIDReq
	if err := c.ShouldBindUri(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	if err := mgr.registry.Cancel(c, req.ID, token.UserID); err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, "cancelled")
}

func (mgr *ApplicationMgr) ListMine(c *gin.Context) {
	token := util.GetToken(c)
	applications, err := mgr.registry.ListForStudent(c, token.UserID)
	if err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, applications)
}

func (mgr *ApplicationMgr) ListForTeam(c *gin.Context) {
	var req TeamNameReq
	if err := c.ShouldBindUri(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	applications, err := mgr.registry.ListForTeam(c, req.Name)
	if err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, applications)
}

func (mgr *ApplicationMgr) ListAll(c *gin.Context) {
	applications, err := mgr.registry.ListAll(c)
	if err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, applications)
}
