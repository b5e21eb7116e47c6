package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atelier-edu/atelier/dao/model"
	"github.com/atelier-edu/atelier/internal/resputil"
	"github.com/atelier-edu/atelier/internal/util"
	"github.com/atelier-edu/atelier/pkg/alert"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewTeamMgr)
}

type TeamMgr struct {
	name string
	db   *gorm.DB
	sink alert.Sink
}

func NewTeamMgr(conf *RegisterConfig) Manager {
	return &TeamMgr{
		name: "teams",
		db:   conf.DB,
		sink: conf.Sink,
	}
}

func (mgr *TeamMgr) GetName() string { return mgr.name }

func (mgr *TeamMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *TeamMgr) RegisterProtected(g *gin.RouterGroup) {
	g.POST("", mgr.Create)
	g.GET("", mgr.List)
	g.GET("/:id", mgr.Get)
	g.POST("/:id/join", mgr.Join)
	g.POST("/leave", mgr.Leave)
}

func (mgr *TeamMgr) RegisterTutor(g *gin.RouterGroup) {
	g.POST("/:id/confirm", mgr.Confirm)
}

func (mgr *TeamMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.DELETE("/:id", mgr.Delete)
}

type (
	TeamIDReq struct {
		ID uint `uri:"id" binding:"required"`
	}

	CreateTeamReq struct {
		Name string `json:"name" binding:"required,min=2,max=64"`
	}

	TeamResp struct {
		model.Team
		MemberCount int `json:"memberCount"`
	}
)

// Create founds a team; the founder becomes its first member. A student
// can belong to one team at a time.
func (mgr *TeamMgr) Create(c *gin.Context) {
	var req CreateTeamReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	actor, ok := mgr.loadActor(c)
	if !ok {
		return
	}
	if actor.TeamID != nil {
		resputil.HTTPError(c, http.StatusConflict, "You already belong to a team", resputil.Conflict)
		return
	}

	team := model.Team{
		Name:        strings.TrimSpace(req.Name),
		CreatedByID: actor.ID,
	}
	err := mgr.db.WithContext(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&team).Error; err != nil {
			return err
		}
		return tx.Model(&model.User{}).
			Where("id = ?", actor.ID).Update("team_id", team.ID).Error
	})
	if err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "UNIQUE") ||
			errors.Is(err, gorm.ErrDuplicatedKey) {
			resputil.HTTPError(c, http.StatusConflict, "Team name already taken", resputil.Conflict)
			return
		}
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, team)
}

func (mgr *TeamMgr) List(c *gin.Context) {
	var teams []model.Team
	if err := mgr.db.WithContext(c).Preload("Members").
		Order("name_lower").Find(&teams).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}

	rows := make([]TeamResp, 0, len(teams))
	for i := range teams {
		rows = append(rows, TeamResp{Team: teams[i], MemberCount: len(teams[i].Members)})
	}
	resputil.Success(c, rows)
}

func (mgr *TeamMgr) Get(c *gin.Context) {
	team, ok := mgr.loadTeam(c)
	if !ok {
		return
	}
	resputil.Success(c, TeamResp{Team: *team, MemberCount: len(team.Members)})
}

// Join adds the actor to an unconfirmed team. Membership is read from the
// database, not the token: the token's team claim only refreshes on
// re-login, and a frozen roster must not be escapable through a stale one.
func (mgr *TeamMgr) Join(c *gin.Context) {
	team, ok := mgr.loadTeam(c)
	if !ok {
		return
	}

	actor, ok := mgr.loadActor(c)
	if !ok {
		return
	}
	if actor.TeamID != nil {
		resputil.HTTPError(c, http.StatusConflict, "You already belong to a team", resputil.Conflict)
		return
	}
	if team.Confirmed {
		resputil.HTTPError(c, http.StatusConflict, "Team roster is confirmed", resputil.Conflict)
		return
	}
	if mgr.hasApplications(c, team) {
		resputil.HTTPError(c, http.StatusConflict, "Team has applications on file", resputil.Conflict)
		return
	}

	if err := mgr.db.WithContext(c).Model(&model.User{}).
		Where("id = ?", actor.ID).Update("team_id", team.ID).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, "joined")
}

// Leave removes the actor from their team, unless the roster is confirmed
// or the team already holds a project.
func (mgr *TeamMgr) Leave(c *gin.Context) {
	actor, ok := mgr.loadActor(c)
	if !ok {
		return
	}
	if actor.TeamID == nil {
		resputil.BadRequestError(c, "You do not belong to a team")
		return
	}

	var team model.Team
	if err := mgr.db.WithContext(c).First(&team, *actor.TeamID).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	if team.Confirmed || team.ProjectID != nil || mgr.hasApplications(c, &team) {
		resputil.HTTPError(c, http.StatusConflict, "Team is locked", resputil.Conflict)
		return
	}

	if err := mgr.db.WithContext(c).Model(&model.User{}).
		Where("id = ?", actor.ID).Update("team_id", nil).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, "left")
}

// Confirm locks the roster before the allocation round.
func (mgr *TeamMgr) Confirm(c *gin.Context) {
	team, ok := mgr.loadTeam(c)
	if !ok {
		return
	}
	if len(team.Members) == 0 {
		resputil.BadRequestError(c, "Cannot confirm an empty team")
		return
	}

	if err := mgr.db.WithContext(c).Model(team).
		Update("confirmed", true).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}

	if mgr.sink != nil {
		go mgr.sink.TeamConfirmed(context.WithoutCancel(c), uuid.NewString(), team, team.Members)
	}
	resputil.Success(c, team)
}

// loadActor fetches the requesting user's current record; team membership
// checks must not trust the token's team claim.
func (mgr *TeamMgr) loadActor(c *gin.Context) (*model.User, bool) {
	token := util.GetToken(c)
	var user model.User
	if err := mgr.db.WithContext(c).First(&user, token.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			resputil.HTTPError(c, http.StatusUnauthorized, "User no longer exists", resputil.TokenInvalid)
			return nil, false
		}
		resputil.WrapServiceError(c, err)
		return nil, false
	}
	return &user, true
}

// hasApplications reports whether the team already filed project
// applications; the roster is frozen from that point on.
func (mgr *TeamMgr) hasApplications(c *gin.Context, team *model.Team) bool {
	var count int64
	if err := mgr.db.WithContext(c).Model(&model.Application{}).
		Where("team_name_lower = ?", team.NameLower).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

// Delete disbands a team that holds no project; members are released.
func (mgr *TeamMgr) Delete(c *gin.Context) {
	team, ok := mgr.loadTeam(c)
	if !ok {
		return
	}
	if team.ProjectID != nil {
		resputil.HTTPError(c, http.StatusConflict, "Team is assigned to a project", resputil.Conflict)
		return
	}

	err := mgr.db.WithContext(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.User{}).
			Where("team_id = ?", team.ID).Update("team_id", nil).Error; err != nil {
			return err
		}
		// Hard delete: a soft-deleted row would keep the unique name
		// occupied forever.
		return tx.Unscoped().Delete(team).Error
	})
	if err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, "deleted")
}

func (mgr *TeamMgr) loadTeam(c *gin.Context) (*model.Team, bool) {
	var req TeamIDReq
	if err := c.ShouldBindUri(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return nil, false
	}

	var team model.Team
	if err := mgr.db.WithContext(c).Preload("Members").First(&team, req.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			resputil.HTTPError(c, http.StatusNotFound, "Team not found", resputil.NotFound)
			return nil, false
		}
		resputil.WrapServiceError(c, err)
		return nil, false
	}
	return &team, true
}
