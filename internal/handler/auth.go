package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/atelier-edu/atelier/dao/model"
	"github.com/atelier-edu/atelier/internal/resputil"
	"github.com/atelier-edu/atelier/internal/util"
	"github.com/atelier-edu/atelier/pkg/limiter"
	"github.com/atelier-edu/atelier/pkg/monitor"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewAuthMgr)
}

type AuthMgr struct {
	name     string
	db       *gorm.DB
	tokenMgr *util.TokenManager
	limiter  *limiter.LoginLimiter
}

func NewAuthMgr(conf *RegisterConfig) Manager {
	return &AuthMgr{
		name:     "auth",
		db:       conf.DB,
		tokenMgr: util.GetTokenMgr(),
		limiter:  conf.LoginLimiter,
	}
}

func (mgr *AuthMgr) GetName() string { return mgr.name }

func (mgr *AuthMgr) RegisterPublic(g *gin.RouterGroup) {
	g.POST("/signup", mgr.Signup)
	g.POST("/login", mgr.Login)
	g.POST("/refresh", mgr.RefreshToken)
}

func (mgr *AuthMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/context", mgr.Context)
}

func (mgr *AuthMgr) RegisterTutor(_ *gin.RouterGroup) {}

func (mgr *AuthMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	SignupReq struct {
		Username  string `json:"username" binding:"required,min=3,max=32"`
		Email     string `json:"email" binding:"required,email"`
		Password  string `json:"password" binding:"required,min=8"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}

	LoginReq struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	RefreshReq struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}

	LoginResp struct {
		AccessToken  string      `json:"accessToken"`
		RefreshToken string      `json:"refreshToken"`
		Context      UserContext `json:"context"`
	}

	UserContext struct {
		UserID   uint       `json:"userId"`
		Username string     `json:"username"`
		Role     model.Role `json:"role"`
		TeamID   *uint      `json:"teamId,omitempty"`
	}
)

// Signup registers a student account. Tutors and admins are provisioned
// out of band.
func (mgr *AuthMgr) Signup(c *gin.Context) {
	var req SignupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	password := string(hash)
	user := model.User{
		Name:      strings.ToLower(strings.TrimSpace(req.Username)),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Password:  &password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      model.RoleStudent,
	}
	if err := mgr.db.WithContext(c).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "UNIQUE") {
			resputil.HTTPError(c, http.StatusConflict, "Username or email already taken", resputil.Conflict)
			return
		}
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	mgr.respondWithTokens(c, &user)
}

func (mgr *AuthMgr) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	username := strings.ToLower(strings.TrimSpace(req.Username))

	if mgr.limiter != nil && !mgr.limiter.Allowed(c, username, c.ClientIP()) {
		resputil.HTTPError(c, http.StatusTooManyRequests,
			"Too many failed attempts, try again later", resputil.TooManyAttempts)
		return
	}

	var user model.User
	err := mgr.db.WithContext(c).Where("name = ?", username).First(&user).Error
	if err != nil || user.Password == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(req.Password)) != nil {
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			klog.Errorf("login lookup for %s: %v", username, err)
		}
		monitor.LoginFailures.Inc()
		if mgr.limiter != nil {
			mgr.limiter.RecordFailure(c, username, c.ClientIP())
		}
		resputil.HTTPError(c, http.StatusUnauthorized, "Invalid credentials", resputil.InvalidCredentials)
		return
	}

	if mgr.limiter != nil {
		mgr.limiter.Reset(c, username, c.ClientIP())
	}
	mgr.respondWithTokens(c, &user)
}

// RefreshToken exchanges a valid refresh token for a new pair. The claims
// are rebuilt from the database, so role or team changes take effect here.
func (mgr *AuthMgr) RefreshToken(c *gin.Context) {
	var req RefreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token, err := mgr.tokenMgr.CheckToken(req.RefreshToken)
	if err != nil {
		resputil.HTTPError(c, http.StatusUnauthorized, "Invalid refresh token", resputil.TokenExpired)
		return
	}

	var user model.User
	if err := mgr.db.WithContext(c).First(&user, token.UserID).Error; err != nil {
		resputil.HTTPError(c, http.StatusUnauthorized, "User no longer exists", resputil.TokenInvalid)
		return
	}
	mgr.respondWithTokens(c, &user)
}

// Context echoes the actor resolved by the middleware.
func (mgr *AuthMgr) Context(c *gin.Context) {
	token := util.GetToken(c)
	ctx := UserContext{
		UserID:   token.UserID,
		Username: token.Username,
		Role:     token.Role,
	}
	if token.TeamID != util.TeamIDNull {
		teamID := token.TeamID
		ctx.TeamID = &teamID
	}
	resputil.Success(c, ctx)
}

func (mgr *AuthMgr) respondWithTokens(c *gin.Context, user *model.User) {
	msg := util.JWTMessage{
		UserID:   user.ID,
		Username: user.Name,
		Role:     user.Role,
	}
	if user.TeamID != nil {
		msg.TeamID = *user.TeamID
	}
	accessToken, refreshToken, err := mgr.tokenMgr.CreateTokens(&msg)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	ctx := UserContext{
		UserID:   user.ID,
		Username: user.Name,
		Role:     user.Role,
		TeamID:   user.TeamID,
	}
	resputil.Success(c, LoginResp{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Context:      ctx,
	})
}
