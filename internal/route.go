package internal

import (
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/atelier-edu/atelier/internal/handler"
	"github.com/atelier-edu/atelier/internal/middleware"
)

const apiPrefix = "/v1"

type Backend struct {
	R *gin.Engine
}

// Register builds the engine: a health probe plus the public, protected,
// tutor and admin route tiers, each manager mounted under its own prefix.
func Register(conf *handler.RegisterConfig) *Backend {
	s := &Backend{R: gin.Default()}

	s.R.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	// CORS for a local frontend in debug mode.
	if gin.Mode() == gin.DebugMode {
		if fe := os.Getenv("ATELIER_FE_PORT"); fe != "" {
			corsConf := cors.DefaultConfig()
			corsConf.AllowOrigins = []string{"http://localhost:" + fe}
			corsConf.AddAllowHeaders("Authorization")
			s.R.Use(cors.New(corsConf))
		}
	}

	managers := registerManagers(conf)

	publicRouter := s.R.Group(apiPrefix)

	protectedRouter := s.R.Group(apiPrefix)
	protectedRouter.Use(middleware.AuthProtected(conf.DB))

	tutorRouter := s.R.Group(apiPrefix + "/tutor")
	tutorRouter.Use(middleware.AuthProtected(conf.DB), middleware.AuthTutor())

	adminRouter := s.R.Group(apiPrefix + "/admin")
	adminRouter.Use(middleware.AuthProtected(conf.DB), middleware.AuthAdmin())

	for _, mgr := range managers {
		name := mgr.GetName()
		mgr.RegisterPublic(publicRouter.Group(name))
		mgr.RegisterProtected(protectedRouter.Group(name))
		mgr.RegisterTutor(tutorRouter.Group(name))
		mgr.RegisterAdmin(adminRouter.Group(name))
	}

	return s
}
