package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/atelier-edu/atelier/internal/resputil"
	"github.com/atelier-edu/atelier/pkg/allocator"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewAllocationMgr)
}

type AllocationMgr struct {
	name      string
	allocator *allocator.Allocator
}

func NewAllocationMgr(conf *RegisterConfig) Manager {
	return &AllocationMgr{
		name:      "allocations",
		allocator: conf.Allocator,
	}
}

func (mgr *AllocationMgr) GetName() string { return mgr.name }

func (mgr *AllocationMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *AllocationMgr) RegisterProtected(_ *gin.RouterGroup) {}

func (mgr *AllocationMgr) RegisterTutor(_ *gin.RouterGroup) {}

func (mgr *AllocationMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.POST("/propose", mgr.Propose)
	g.POST("/commit", mgr.Commit)
}

type CommitReq struct {
	TeamName    string `json:"teamName" binding:"required"`
	ProjectName string `json:"projectName" binding:"required"`
}

// Propose returns the advisory pairing for all pending applications.
// Nothing is persisted until the admin commits a row.
func (mgr *AllocationMgr) Propose(c *gin.Context) {
	proposals, err := mgr.allocator.Propose(c)
	if err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, proposals)
}

func (mgr *AllocationMgr) Commit(c *gin.Context) {
	var req CommitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	result, err := mgr.allocator.Commit(c, req.TeamName, req.ProjectName)
	if err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, result)
}
