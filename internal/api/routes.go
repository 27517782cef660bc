package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"jobboard/internal/api/middleware"
	"jobboard/internal/applications"
	"jobboard/internal/auth"
	"jobboard/internal/company"
	"jobboard/internal/config"
	"jobboard/internal/database"
	"jobboard/internal/feed"
	"jobboard/internal/jobs"
	"jobboard/internal/role"
	"jobboard/internal/storage"
)

// Dependencies 汇总路由需要的服务实例，由 cmd/api 组装。
type Dependencies struct {
	Config       *config.Config
	Logger       *slog.Logger
	Redis        redis.UniversalClient
	Auth         *auth.AuthService
	Resolver     *role.Resolver
	Principals   *database.PrincipalRepository
	Jobs         *jobs.Manager
	Applications *applications.Manager
	Verifier     *company.Verifier
	Queue        TaskEnqueuer
	Scanner      storage.Scanner
	Bus          feed.Bus
}

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resumeLinkTTL := cfg.Uploads.ResumeLinkTTL
	if resumeLinkTTL <= 0 {
		resumeLinkTTL = 15 * time.Minute
	}

	authHandler := NewAuthHandler(
		deps.Principals,
		deps.Resolver,
		deps.Auth,
		deps.Redis,
		logger,
		cfg.Auth.LoginRateLimitPerHour,
		cfg.Auth.LoginLockThreshold,
		cfg.Auth.LoginLockTTL,
		cfg.Auth.CookieDomain,
	)
	jobHandler := NewJobHandler(deps.Jobs, logger)
	applicationHandler := NewApplicationHandler(deps.Applications, deps.Scanner, logger, resumeLinkTTL)
	companyHandler := NewCompanyHandler(deps.Jobs, deps.Verifier, deps.Queue, logger)
	adminHandler := NewAdminHandler(deps.Jobs, deps.Principals, logger)
	wsHandler := NewWsHandler(deps.Redis, deps.Auth, deps.Resolver, deps.Bus, deps.Jobs, deps.Applications, logger, cfg.API.AllowedOrigins)

	sessionMiddleware := middleware.SessionMiddleware(deps.Auth, deps.Resolver)
	authMiddleware := middleware.AuthMiddleware()
	passwordGate := middleware.RequirePasswordChangeCompletedMiddleware()

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", sessionMiddleware, authMiddleware, authHandler.Logout)
			authGroup.GET("/me", sessionMiddleware, authMiddleware, authHandler.Me)
			authGroup.POST("/change-password", sessionMiddleware, authMiddleware, authHandler.ChangePassword)
		}

		// 以下路由允许 guest 访问，具体权限由服务层按会话判断。
		open := v1.Group("")
		open.Use(sessionMiddleware, passwordGate)
		{
			open.GET("/navigation/:view", Navigation)
			open.GET("/jobs", jobHandler.ListVisible)
			open.GET("/jobs/:id", jobHandler.GetVisible)
			open.GET("/jobs/:id/company", companyHandler.Profile)
			open.POST("/jobs/:id/apply", applicationHandler.Submit)
		}

		signedIn := v1.Group("")
		signedIn.Use(sessionMiddleware, authMiddleware, passwordGate)
		{
			employer := signedIn.Group("/employer")
			{
				employer.POST("/jobs", jobHandler.Create)
				employer.GET("/jobs", jobHandler.ListOwn)
				employer.POST("/jobs/:id/visibility", jobHandler.ToggleVisibility)
				employer.DELETE("/jobs/:id", jobHandler.Delete)
			}

			applicationGroup := signedIn.Group("/applications")
			{
				applicationGroup.GET("/mine", applicationHandler.ListMine)
				applicationGroup.GET("/received", applicationHandler.ListReceived)
				applicationGroup.POST("/:id/open", applicationHandler.Open)
				applicationGroup.POST("/:id/shortlist", applicationHandler.Shortlist)
				applicationGroup.POST("/:id/reject", applicationHandler.Reject)
				applicationGroup.GET("/:id/resume-link", applicationHandler.ResumeLink)
			}

			companyGroup := signedIn.Group("/company")
			{
				companyGroup.POST("/verify-cin", companyHandler.VerifyCIN)
			}

			admin := signedIn.Group("/admin")
			{
				admin.GET("/jobs", jobHandler.ListAll)
				admin.GET("/review-queue", jobHandler.ReviewQueue)
				admin.POST("/jobs/:id/approve", jobHandler.Approve)
				admin.POST("/jobs/:id/reject", jobHandler.Reject)
				admin.POST("/jobs/:id/block", jobHandler.Block)
				admin.GET("/companies", companyHandler.List)
				admin.POST("/companies/verify", companyHandler.Verify)
				admin.GET("/stats", adminHandler.Stats)
			}
		}
	}
}
