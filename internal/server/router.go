// Package server assembles the HTTP router.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/taskpro/backend/docs"
	"github.com/taskpro/backend/internal/auth"
	"github.com/taskpro/backend/internal/dashboard"
	"github.com/taskpro/backend/internal/emaillogs"
	"github.com/taskpro/backend/internal/invites"
	"github.com/taskpro/backend/internal/members"
	"github.com/taskpro/backend/internal/middleware"
	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/internal/organizations"
	"github.com/taskpro/backend/internal/realtime"
	"github.com/taskpro/backend/internal/tasks"
	"github.com/taskpro/backend/pkg/response"
)

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

// Deps are the handlers and collaborators mounted by NewRouter.
// Hub, Health and a zero AuthRatePerMinute are optional.
type Deps struct {
	Logger            *zap.Logger
	Authenticator     middleware.Authenticator
	CORSOrigins       []string
	AuthRatePerMinute int

	Auth      *auth.Handler
	Orgs      *organizations.Handler
	Members   *members.Handler
	Invites   *invites.Handler
	Tasks     *tasks.Handler
	Dashboard *dashboard.Handler
	Emails    *emaillogs.Handler
	Hub       *realtime.Hub
	Health    map[string]HealthCheck
}

// NewRouter mounts every route.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(d.CORSOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", health(d.Health))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Public auth, rate limited per client IP.
	public := router.Group("")
	public.Use(middleware.NewRateLimiter(d.AuthRatePerMinute).Middleware())
	{
		public.POST("/register", d.Auth.Register)
		public.POST("/register/admin", d.Auth.RegisterAdmin)
		public.POST("/register/manager", d.Auth.RegisterManager)
		public.POST("/register/member", d.Auth.RegisterMember)
		public.POST("/login", d.Auth.Login(""))
		public.POST("/login/admin", d.Auth.Login(models.RoleAdmin))
		public.POST("/login/manager", d.Auth.Login(models.RoleManager))
		public.POST("/login/member", d.Auth.Login(models.RoleMember))
	}

	admin := middleware.RequireRole(models.RoleAdmin)
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleManager)

	api := router.Group("")
	api.Use(middleware.JWT(d.Authenticator))
	{
		api.GET("/org", d.Orgs.Get)
		api.POST("/org", admin, d.Orgs.Create)
		api.PUT("/org", admin, d.Orgs.Update)
		api.DELETE("/org", admin, d.Orgs.Delete)

		api.POST("/invite", staff, d.Invites.Create)
		api.GET("/invites", staff, d.Invites.ListPending)

		api.GET("/members", staff, d.Members.List)
		api.DELETE("/members/:id", admin, d.Members.Remove)
		api.PATCH("/members/:id/role", admin, d.Members.UpdateRole)
		api.PUT("/members/:id", admin, d.Members.UpdateProfile)

		api.POST("/tasks", staff, d.Tasks.Create)
		api.GET("/tasks", d.Tasks.List)
		api.GET("/tasks/:id", d.Tasks.Get)
		api.PUT("/tasks/:id", staff, d.Tasks.Update)
		api.DELETE("/tasks/:id", staff, d.Tasks.Delete)
		api.PATCH("/tasks/:id/status", d.Tasks.UpdateStatus)

		api.GET("/dashboard/stats", d.Dashboard.Stats)
		api.GET("/emails", admin, d.Emails.List)
	}

	// WebSocket (token in query; no Authorization header required)
	if d.Hub != nil {
		router.GET("/ws", realtime.ServeWs(d.Hub, d.Authenticator, d.CORSOrigins, logger))
	}

	router.NoRoute(func(c *gin.Context) { response.NotFound(c, "route not found") })
	return router
}

func health(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		for name, check := range checks {
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": name + ": " + err.Error()})
				return
			}
		}
		response.OK(c, gin.H{"status": "ok"})
	}
}
