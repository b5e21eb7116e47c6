package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/atelier-edu/atelier/dao/model"
	"github.com/atelier-edu/atelier/internal/payload"
	"github.com/atelier-edu/atelier/internal/resputil"
	"github.com/atelier-edu/atelier/internal/util"
	"github.com/atelier-edu/atelier/pkg/limiter"
	"github.com/atelier-edu/atelier/pkg/progress"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewProjectMgr)
}

type ProjectMgr struct {
	name    string
	db      *gorm.DB
	tracker *progress.Tracker
	cache   *limiter.CapacityCache
}

func NewProjectMgr(conf *RegisterConfig) Manager {
	return &ProjectMgr{
		name:    "projects",
		db:      conf.DB,
		tracker: conf.Tracker,
		cache:   conf.CapacityCache,
	}
}

func (mgr *ProjectMgr) GetName() string { return mgr.name }

func (mgr *ProjectMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *ProjectMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.List)
	g.GET("/:id", mgr.Get)
	g.GET("/:id/stats", mgr.Stats)
	g.GET("/:id/prediction", mgr.Prediction)
	g.GET("/:id/risks", mgr.Risks)
}

func (mgr *ProjectMgr) RegisterTutor(g *gin.RouterGroup) {
	g.POST("", mgr.Create)
	g.PUT("/:id", mgr.Update)
	g.DELETE("/:id", mgr.Delete)
}

func (mgr *ProjectMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.POST("/:id/approve", mgr.Approve)
	g.POST("/:id/reject", mgr.Reject)
}

type (
	ProjectIDReq struct {
		ID uint `uri:"id" binding:"required"`
	}

	CreateProjectReq struct {
		Name        string     `json:"name" binding:"required,max=128"`
		Description string     `json:"description" binding:"required"`
		Tags        []string   `json:"tags"`
		Capacity    int        `json:"capacity"`
		StartDate   *time.Time `json:"startDate"`
		EndDate     *time.Time `json:"endDate"`
	}

	UpdateProjectReq struct {
		Description *string             `json:"description"`
		Tags        []string            `json:"tags"`
		Stage       *model.ProjectStage `json:"stage"`
		Capacity    *int                `json:"capacity"`
		StartDate   *time.Time          `json:"startDate"`
		EndDate     *time.Time          `json:"endDate"`
	}

	ListProjectQuery struct {
		PageIndex *int                 `form:"page_index"`
		PageSize  *int                 `form:"page_size"`
		Stage     model.ProjectStage   `form:"stage"`
		Approval  model.ApprovalStatus `form:"approval"`
		Tag       string               `form:"tag"`
	}

	ProjectResp struct {
		model.Project
		AssignedTeams int `json:"assignedTeams"`
	}

	ProjectStatsResp struct {
		Progress  int                      `json:"progress"`
		ByStatus  map[model.TaskStatus]int `json:"byStatus"`
		TaskTotal int                      `json:"taskTotal"`
	}
)

// Create registers a project proposal. A tutor's proposal queues for admin
// review as RECOMMENDED; an admin's project is approved on the spot.
func (mgr *ProjectMgr) Create(c *gin.Context) {
	var req CreateProjectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if req.Capacity < 0 {
		resputil.BadRequestError(c, "capacity must be positive")
		return
	}
	if req.Capacity == 0 {
		req.Capacity = model.DefaultProjectCapacity
	}

	token := util.GetToken(c)
	project := model.Project{
		Name:        req.Name,
		Description: req.Description,
		Tags:        datatypes.NewJSONSlice(req.Tags),
		Stage:       model.StagePending,
		Capacity:    req.Capacity,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	if token.Role == model.RoleAdmin {
		project.Approval = model.ApprovalApproved
	} else {
		project.Approval = model.ApprovalRecommended
		project.TutorID = &token.UserID
	}

	if err := mgr.db.WithContext(c).Create(&project).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, project)
}

// List pages through projects. Students only see approved ones; tutors and
// admins may filter by approval state.
func (mgr *ProjectMgr) List(c *gin.Context) {
	var req ListProjectQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	filter := func(db *gorm.DB) *gorm.DB {
		if token.Role == model.RoleStudent {
			db = db.Where("approval = ?", model.ApprovalApproved)
		} else if req.Approval != "" {
			db = db.Where("approval = ?", req.Approval)
		}
		if req.Stage != "" {
			db = db.Where("stage = ?", req.Stage)
		}
		if req.Tag != "" {
			db = db.Where("tags LIKE ?", "%\""+req.Tag+"\"%")
		}
		return db
	}

	var count int64
	if err := mgr.db.WithContext(c).Model(&model.Project{}).
		Scopes(filter).Count(&count).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}

	var projects []model.Project
	if err := mgr.db.WithContext(c).
		Scopes(filter, payload.Paginate(req.PageIndex, req.PageSize)).
		Order("id").Find(&projects).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}

	rows := make([]ProjectResp, 0, len(projects))
	for i := range projects {
		rows = append(rows, ProjectResp{
			Project:       projects[i],
			AssignedTeams: mgr.assignedTeams(c, projects[i].ID),
		})
	}
	resputil.Success(c, payload.ListResp[ProjectResp]{Rows: rows, Count: count})
}

// assignedTeams serves the team count from the capacity cache when it can.
func (mgr *ProjectMgr) assignedTeams(c *gin.Context, projectID uint) int {
	if mgr.cache != nil {
		if used, ok := mgr.cache.Get(c, projectID); ok {
			return used
		}
	}
	var used int64
	if err := mgr.db.WithContext(c).Model(&model.Team{}).
		Where("project_id = ?", projectID).Count(&used).Error; err != nil {
		return 0
	}
	if mgr.cache != nil {
		mgr.cache.Put(c, projectID, int(used))
	}
	return int(used)
}

func (mgr *ProjectMgr) Get(c *gin.Context) {
	project, ok := mgr.loadProject(c)
	if !ok {
		return
	}
	resputil.Success(c, ProjectResp{
		Project:       *project,
		AssignedTeams: mgr.assignedTeams(c, project.ID),
	})
}

// Update lets the owning tutor or an admin edit the proposal. The name is
// immutable; applications and allocations reference it.
func (mgr *ProjectMgr) Update(c *gin.Context) {
	project, ok := mgr.loadProject(c)
	if !ok {
		return
	}
	if !mgr.canManage(c, project) {
		return
	}

	var req UpdateProjectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	updates := map[string]any{}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Tags != nil {
		updates["tags"] = datatypes.NewJSONSlice(req.Tags)
	}
	if req.Stage != nil {
		updates["stage"] = *req.Stage
	}
	if req.Capacity != nil {
		if *req.Capacity < 1 {
			resputil.BadRequestError(c, "capacity must be positive")
			return
		}
		updates["capacity"] = *req.Capacity
	}
	if req.StartDate != nil {
		updates["start_date"] = *req.StartDate
	}
	if req.EndDate != nil {
		updates["end_date"] = *req.EndDate
	}
	if len(updates) == 0 {
		resputil.Success(c, project)
		return
	}

	if err := mgr.db.WithContext(c).Model(project).Updates(updates).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, project)
}

// Delete removes a project that no team holds yet.
func (mgr *ProjectMgr) Delete(c *gin.Context) {
	project, ok := mgr.loadProject(c)
	if !ok {
		return
	}
	if !mgr.canManage(c, project) {
		return
	}

	var assigned int64
	if err := mgr.db.WithContext(c).Model(&model.Team{}).
		Where("project_id = ?", project.ID).Count(&assigned).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	if assigned > 0 {
		resputil.HTTPError(c, http.StatusConflict, "Project has assigned teams", resputil.Conflict)
		return
	}

	// Hard delete: a soft-deleted row would keep the unique name occupied
	// forever.
	if err := mgr.db.WithContext(c).Unscoped().Select("Tasks").Delete(project).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, "deleted")
}

func (mgr *ProjectMgr) Approve(c *gin.Context) {
	mgr.review(c, model.ApprovalApproved)
}

func (mgr *ProjectMgr) Reject(c *gin.Context) {
	mgr.review(c, model.ApprovalRejected)
}

func (mgr *ProjectMgr) review(c *gin.Context, verdict model.ApprovalStatus) {
	project, ok := mgr.loadProject(c)
	if !ok {
		return
	}

	updates := map[string]any{"approval": verdict}
	if verdict == model.ApprovalApproved && project.Stage == model.StagePending {
		updates["stage"] = model.StageActive
	}
	if err := mgr.db.WithContext(c).Model(project).Updates(updates).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, project)
}

// Stats reports the task breakdown and the current progress percentage.
func (mgr *ProjectMgr) Stats(c *gin.Context) {
	project, ok := mgr.loadProject(c)
	if !ok {
		return
	}

	type statusCount struct {
		Status model.TaskStatus
		N      int
	}
	var counts []statusCount
	if err := mgr.db.WithContext(c).Model(&model.Task{}).
		Select("status, count(*) as n").
		Where("project_id = ?", project.ID).
		Group("status").Scan(&counts).Error; err != nil {
		resputil.WrapServiceError(c, err)
		return
	}

	stats := ProjectStatsResp{
		Progress: project.Progress,
		ByStatus: map[model.TaskStatus]int{
			model.TaskTodo:       0,
			model.TaskInProgress: 0,
			model.TaskReview:     0,
			model.TaskCompleted:  0,
		},
	}
	for _, sc := range counts {
		stats.ByStatus[sc.Status] = sc.N
		stats.TaskTotal += sc.N
	}
	resputil.Success(c, stats)
}

func (mgr *ProjectMgr) Prediction(c *gin.Context) {
	var req ProjectIDReq
	if err := c.ShouldBindUri(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	prediction, err := mgr.tracker.PredictCompletion(c, req.ID)
	if err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, prediction)
}

func (mgr *ProjectMgr) Risks(c *gin.Context) {
	var req ProjectIDReq
	if err := c.ShouldBindUri(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	warning, err := mgr.tracker.RiskAlert(c, req.ID)
	if err != nil {
		resputil.WrapServiceError(c, err)
		return
	}
	resputil.Success(c, gin.H{"warning": warning})
}

func (mgr *ProjectMgr) loadProject(c *gin.Context) (*model.Project, bool) {
	var req ProjectIDReq
	if err := c.ShouldBindUri(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return nil, false
	}

	var project model.Project
	if err := mgr.db.WithContext(c).First(&project, req.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			resputil.HTTPError(c, http.StatusNotFound, "Project not found", resputil.NotFound)
			return nil, false
		}
		resputil.WrapServiceError(c, err)
		return nil, false
	}
	return &project, true
}

// canManage admits the owning tutor and admins.
func (mgr *ProjectMgr) canManage(c *gin.Context, project *model.Project) bool {
	token := util.GetToken(c)
	if token.Role == model.RoleAdmin {
		return true
	}
	if project.TutorID != nil && *project.TutorID == token.UserID {
		return true
	}
	resputil.HTTPError(c, http.StatusForbidden, "Not the project owner", resputil.UserNotAllowed)
	return false
}
