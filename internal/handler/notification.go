package handler

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/atelier-edu/atelier/dao/model"
	"github.com/atelier-edu/atelier/internal/resputil"
	"github.com/atelier-edu/atelier/internal/util"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewNotificationMgr)
}

type NotificationMgr struct {
	name string
	db   *gorm.DB
}

func NewNotificationMgr(conf *RegisterConfig) Manager {
	return &NotificationMgr{
		name: "notifications",
		db:   conf.DB,
	}
}

func (mgr *NotificationMgr) GetName() string { return mgr.name }

func (mgr *NotificationMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *NotificationMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.List)
	g.PUT("/:id/read", mgr.MarkRead)
	g.PUT("/read-all", mgr.MarkAllRead)
}

func (mgr *NotificationMgr) RegisterTutor(_ *gin.RouterGroup) {}

func (mgr *NotificationMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	NotificationIDReq struct {
		ID uint `uri:"id" binding:"required"`
	}

	ListNotificationQuery struct {
		UnreadOnly bool `form:"unread_only"`
	}
)

func (mgr *NotificationMgr) List(c *gin.Context) {
	var req ListNotificationQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	q := mgr.db.WithContext(c).Where("user_id = ?", token.UserID)
	if req.UnreadOnly {
		q = q.Where("read = ?", false)
	}

	var notifications []model.Notification
	if err := q.Order("id DESC").Limit(100).Find(&notifications).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, notifications)
}

// MarkRead is scoped to the actor, so one user cannot touch another's
// notifications no matter the id.
func (mgr *NotificationMgr) MarkRead(c *gin.Context) {
	var req NotificationIDReq
	if err := c.ShouldBindUri(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	if err := mgr.db.WithContext(c).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", req.ID, token.UserID).
		Update("read", true).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, "read")
}

func (mgr *NotificationMgr) MarkAllRead(c *gin.Context) {
	token := util.GetToken(c)
	if err := mgr.db.WithContext(c).Model(&model.Notification{}).
		Where("user_id = ? AND read = ?", token.UserID, false).
		Update("read", true).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, "read")
}
