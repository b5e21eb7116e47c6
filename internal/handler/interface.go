package handler

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/atelier-edu/atelier/pkg/alert"
	"github.com/atelier-edu/atelier/pkg/allocator"
	"github.com/atelier-edu/atelier/pkg/evalstore"
	"github.com/atelier-edu/atelier/pkg/limiter"
	"github.com/atelier-edu/atelier/pkg/progress"
	"github.com/atelier-edu/atelier/pkg/registry"
)

// Manager is one route family. Each register method receives the group
// guarded by the matching middleware tier; a manager leaves the tiers it
// does not use empty.
type Manager interface {
	GetName() string
	RegisterPublic(group *gin.RouterGroup)
	RegisterProtected(group *gin.RouterGroup)
	RegisterTutor(group *gin.RouterGroup)
	RegisterAdmin(group *gin.RouterGroup)
}

// Registers collects the manager constructors; each handler file appends
// its own in init().
var Registers []func(*RegisterConfig) Manager

// RegisterConfig carries the shared dependencies into the managers.
type RegisterConfig struct {
	DB            *gorm.DB
	Registry      *registry.Registry
	Allocator     *allocator.Allocator
	Tracker       *progress.Tracker
	EvalStore     *evalstore.Store
	Sink          alert.Sink
	LoginLimiter  *limiter.LoginLimiter
	CapacityCache *limiter.CapacityCache
}
