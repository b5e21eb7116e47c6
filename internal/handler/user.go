package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/atelier-edu/atelier/dao/model"
	"github.com/atelier-edu/atelier/internal/payload"
	"github.com/atelier-edu/atelier/internal/resputil"
	"github.com/atelier-edu/atelier/internal/util"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewUserMgr)
}

type UserMgr struct {
	name string
	db   *gorm.DB
}

func NewUserMgr(conf *RegisterConfig) Manager {
	return &UserMgr{
		name: "users",
		db:   conf.DB,
	}
}

func (mgr *UserMgr) GetName() string { return mgr.name }

func (mgr *UserMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *UserMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/me", mgr.Me)
}

func (mgr *UserMgr) RegisterTutor(_ *gin.RouterGroup) {}

func (mgr *UserMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.GET("", mgr.List)
	g.PUT("/:id/role", mgr.UpdateRole)
}

type (
	UserIDReq struct {
		ID uint `uri:"id" binding:"required"`
	}

	UpdateRoleReq struct {
		Role model.Role `json:"role" binding:"required"`
	}

	// UserResp leaves the password hash out.
	UserResp struct {
		ID        uint       `json:"id"`
		Name      string     `json:"name"`
		Email     string     `json:"email"`
		FirstName string     `json:"firstName"`
		LastName  string     `json:"lastName"`
		Role      model.Role `json:"role"`
		TeamID    *uint      `json:"teamId,omitempty"`
	}
)

func toUserResp(user model.User, _ int) UserResp {
	return UserResp{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		TeamID:    user.TeamID,
	}
}

func (mgr *UserMgr) Me(c *gin.Context) {
	token := util.GetToken(c)
	var user model.User
	if err := mgr.db.WithContext(c).First(&user, token.UserID).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, toUserResp(user, 0))
}

func (mgr *UserMgr) List(c *gin.Context) {
	var req payload.ListReqQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	var count int64
	if err := mgr.db.WithContext(c).Model(&model.User{}).Count(&count).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}

	var users []model.User
	if err := mgr.db.WithContext(c).
		Scopes(payload.Paginate(req.PageIndex, req.PageSize)).
		Order("id").Find(&users).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, payload.ListResp[UserResp]{
		Rows:  lo.Map(users, toUserResp),
		Count: count,
	})
}

// UpdateRole is how tutors are provisioned: an admin promotes an account.
func (mgr *UserMgr) UpdateRole(c *gin.Context) {
	var uriReq UserIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req UpdateRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	switch req.Role {
	case model.RoleStudent, model.RoleTutor, model.RoleAdmin:
	default:
		resputil.BadRequestError(c, "unknown role")
		return
	}

	var user model.User
	if err := mgr.db.WithContext(c).First(&user, uriReq.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			resputil.HTTPError(c, http.StatusNotFound, "User not found", resputil.NotFound)
			return
		}
		resputil.WrapServiceError(c, err)
		return
	}

	if err := mgr.db.WithContext(c).Model(&user).
		Update("role", req.Role).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, toUserResp(user, 0))
}
