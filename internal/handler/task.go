package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/atelier-edu/atelier/dao/model"
	"github.com/atelier-edu/atelier/internal/resputil"
	"github.com/atelier-edu/atelier/internal/util"
	"github.com/atelier-edu/atelier/pkg/progress"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewTaskMgr)
}

type TaskMgr struct {
	name    string
	db      *gorm.DB
	tracker *progress.Tracker
}

func NewTaskMgr(conf *RegisterConfig) Manager {
	return &TaskMgr{
		name:    "tasks",
		db:      conf.DB,
		tracker: conf.Tracker,
	}
}

func (mgr *TaskMgr) GetName() string { return mgr.name }

func (mgr *TaskMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *TaskMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.List)
	g.PUT("/:id/status", mgr.UpdateStatus)
}

func (mgr *TaskMgr) RegisterTutor(g *gin.RouterGroup) {
	g.POST("", mgr.Create)
	g.PUT("/:id", mgr.Update)
	g.DELETE("/:id", mgr.Delete)
}

func (mgr *TaskMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	TaskIDReq struct {
		ID uint `uri:"id" binding:"required"`
	}

	ListTaskQuery struct {
		ProjectID uint             `form:"project_id" binding:"required"`
		Status    model.TaskStatus `form:"status"`
	}

	CreateTaskReq struct {
		ProjectID    uint       `json:"projectId" binding:"required"`
		Title        string     `json:"title" binding:"required,max=128"`
		Description  string     `json:"description"`
		DueDate      *time.Time `json:"dueDate"`
		AssignedToID *uint      `json:"assignedToId"`
	}

	UpdateTaskReq struct {
		Title        *string    `json:"title"`
		Description  *string    `json:"description"`
		DueDate      *time.Time `json:"dueDate"`
		AssignedToID *uint      `json:"assignedToId"`
	}

	UpdateTaskStatusReq struct {
		Status model.TaskStatus `json:"status" binding:"required"`
	}
)

func (mgr *TaskMgr) List(c *gin.Context) {
	var req ListTaskQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if req.Status != "" && !validStatus(req.Status) {
		resputil.BadRequestError(c, "unknown task status")
		return
	}

	q := mgr.db.WithContext(c).Where("project_id = ?", req.ProjectID)
	if req.Status != "" {
		q = q.Where("status = ?", req.Status)
	}
	var tasks []model.Task
	if err := q.Order("id").Find(&tasks).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, tasks)
}

func (mgr *TaskMgr) Create(c *gin.Context) {
	var req CreateTaskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	var project model.Project
	if err := mgr.db.WithContext(c).First(&project, req.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			resputil.HTTPError(c, http.StatusNotFound, "Project not found", resputil.NotFound)
			return
		}
		resputil.WrapServiceError(c, err)
		return
	}

	token := util.GetToken(c)
	task := model.Task{
		ProjectID:    req.ProjectID,
		Title:        req.Title,
		Description:  req.Description,
		Status:       model.TaskTodo,
		DueDate:      req.DueDate,
		AssignedToID: req.AssignedToID,
		CreatedByID:  token.UserID,
	}
	if err := mgr.db.WithContext(c).Create(&task).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}

	mgr.recompute(c, task.ProjectID)
	resputil.Success(c, task)
}

func (mgr *TaskMgr) Update(c *gin.Context) {
	task, ok := mgr.loadTask(c)
	if !ok {
		return
	}

	var req UpdateTaskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if req.AssignedToID != nil {
		updates["assigned_to_id"] = *req.AssignedToID
	}
	if len(updates) > 0 {
		if err := mgr.db.WithContext(c).Model(task).Updates(updates).Error; err != nil {
			resputil.WrapServiceError(c, err)
			return
		}
	}
	resputil.Success(c, task)
}

// UpdateStatus moves a task through the board. Students may only move
// tasks of the project their team holds.
func (mgr *TaskMgr) UpdateStatus(c *gin.Context) {
	task, ok := mgr.loadTask(c)
	if !ok {
		return
	}

	var req UpdateTaskStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if !validStatus(req.Status) {
		resputil.BadRequestError(c, "unknown task status")
		return
	}

	token := util.GetToken(c)
	if token.Role == model.RoleStudent && !mgr.onProjectTeam(c, token, task.ProjectID) {
		resputil.HTTPError(c, http.StatusForbidden, "Task belongs to another project", resputil.UserNotAllowed)
		return
	}

	if err := mgr.db.WithContext(c).Model(task).
		Update("status", req.Status).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}

	mgr.recompute(c, task.ProjectID)
	resputil.Success(c, task)
}

func (mgr *TaskMgr) Delete(c *gin.Context) {
	task, ok := mgr.loadTask(c)
	if !ok {
		return
	}

	if err := mgr.db.WithContext(c).Delete(task).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}

	mgr.recompute(c, task.ProjectID)
	resputil.Success(c, "deleted")
}

func (mgr *TaskMgr) loadTask(c *gin.Context) (*model.Task, bool) {
	var req TaskIDReq
	if err := c.ShouldBindUri(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return nil, false
	}

	var task model.Task
	if err := mgr.db.WithContext(c).First(&task, req.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			resputil.HTTPError(c, http.StatusNotFound, "Task not found", resputil.NotFound)
			return nil, false
		}
		resputil.WrapServiceError(c, err)
		return nil, false
	}
	return &task, true
}

func (mgr *TaskMgr) onProjectTeam(c *gin.Context, token util.JWTMessage, projectID uint) bool {
	if token.TeamID == util.TeamIDNull {
		return false
	}
	var team model.Team
	if err := mgr.db.WithContext(c).First(&team, token.TeamID).Error; err != nil {
		return false
	}
	return team.ProjectID != nil && *team.ProjectID == projectID
}

// recompute refreshes the project progress after a task mutation. Failures
// are logged; the task change itself already succeeded.
func (mgr *TaskMgr) recompute(c *gin.Context, projectID uint) {
	if _, err := mgr.tracker.Recompute(c, projectID); err != nil {
		klog.Errorf("progress recompute for project %d: %v", projectID, err)
	}
}

func validStatus(status model.TaskStatus) bool {
	switch status {
	case model.TaskTodo, model.TaskInProgress, model.TaskReview, model.TaskCompleted:
		return true
	}
	return false
}
