package bootstrap

import (
	"database/sql"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	httpapi "github.com/taskforge-app/taskforge-backend/internal/api/http"
	"github.com/taskforge-app/taskforge-backend/internal/api/http/middleware"
	authhttp "github.com/taskforge-app/taskforge-backend/internal/auth/http"
	authmw "github.com/taskforge-app/taskforge-backend/internal/auth/middleware"
	authsvc "github.com/taskforge-app/taskforge-backend/internal/auth/service"
	projecthttp "github.com/taskforge-app/taskforge-backend/internal/projects/http"
	projectsvc "github.com/taskforge-app/taskforge-backend/internal/projects/service"
	sprinthttp "github.com/taskforge-app/taskforge-backend/internal/sprints/http"
	sprintsvc "github.com/taskforge-app/taskforge-backend/internal/sprints/service"
	"github.com/taskforge-app/taskforge-backend/internal/storage/postgres"
	taskhttp "github.com/taskforge-app/taskforge-backend/internal/tasks/http"
	tasksvc "github.com/taskforge-app/taskforge-backend/internal/tasks/service"

	"github.com/taskforge-app/taskforge-backend/config"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	Config      *config.Config
	DB          *sql.DB
	Revocation  authsvc.RevocationStore
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB)
	healthHandler.RegisterRoutes(r)

	runner := postgres.NewRunner(dep.DB, dep.Config.Database.LockTimeout)

	authService := authsvc.NewAuthService(dep.DB, dep.Config.Auth, dep.Revocation)
	projectService := projectsvc.NewProjectService(dep.DB, runner)
	memberService := projectsvc.NewMemberService(dep.DB, runner)
	sprintService := sprintsvc.NewSprintService(dep.DB, runner)
	taskService := tasksvc.NewTaskService(dep.DB, runner)

	api := r.Group("/api/v1")

	authHandler := authhttp.New(authService)
	authHandler.Register(api.Group("/auth"), middleware.LoginRateLimit(10, 5))

	api.Use(authmw.BearerAuth(authService))

	projectHandler := projecthttp.New(projectService, memberService)
	sprintHandler := sprinthttp.New(sprintService)
	taskHandler := taskhttp.New(taskService)

	projectsGroup := api.Group("/projects")
	projectHandler.Register(projectsGroup)
	sprintHandler.RegisterProjectSubroutes(projectsGroup)
	taskHandler.RegisterProjectSubroutes(projectsGroup)

	sprintHandler.Register(api.Group("/sprints"))
	taskHandler.Register(api.Group("/tasks"))

	return r
}
