package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tasktrack/backend/internal/cache"
	"tasktrack/backend/internal/identity"
	"tasktrack/backend/internal/middleware"
	"tasktrack/backend/internal/monitoring"
	"tasktrack/backend/internal/services"
)

// RouterDeps carries everything the HTTP surface needs. Services are
// interfaces so tests can substitute fakes.
type RouterDeps struct {
	DB              *gorm.DB
	Cache           *cache.RedisCache
	Provider        identity.Provider
	Verifier        identity.Verifier
	RateLimiter     *middleware.RateLimiter
	TaskService     services.TaskService
	CategoryService services.CategoryService
	ProfileService  services.ProfileService
	Analytics       services.AnalyticsService
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RecoveryWithLog())
	router.Use(monitoring.MetricsMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	if deps.RateLimiter != nil {
		router.Use(deps.RateLimiter.Middleware())
	}

	router.GET("/health", monitoring.HealthHandler())
	router.GET("/metrics", monitoring.MetricsHandler())

	authHandler := NewAuthHandler(deps.DB, deps.Provider, deps.ProfileService)
	taskHandler := NewTaskHandler(deps.DB, deps.TaskService)
	categoryHandler := NewCategoryHandler(deps.DB, deps.CategoryService)
	analyticsHandler := NewAnalyticsHandler(deps.DB, deps.Analytics)

	auth := router.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("")
		authed.Use(middleware.AuthRequired(deps.Verifier))
		{
			authed.POST("/logout", authHandler.Logout)
			authed.GET("/profile", authHandler.Profile)
			authed.PUT("/profile", authHandler.UpdateProfile)
		}
	}

	protected := router.Group("")
	protected.Use(middleware.AuthRequired(deps.Verifier))

	tasks := protected.Group("/tasks")
	{
		tasks.GET("", taskHandler.ListTasks)
		tasks.POST("", taskHandler.CreateTask)
		tasks.GET("/:id", taskHandler.GetTask)
		tasks.PUT("/:id", taskHandler.UpdateTask)
		tasks.DELETE("/:id", taskHandler.DeleteTask)
		tasks.PATCH("/:id/status", taskHandler.SetStatus)
		tasks.PATCH("/:id/assign", taskHandler.AssignTask)
	}

	categories := protected.Group("/categories")
	{
		categories.GET("", categoryHandler.ListCategories)
		categories.POST("", categoryHandler.CreateCategory)
		categories.GET("/:id", categoryHandler.GetCategory)
		categories.PUT("/:id", categoryHandler.UpdateCategory)
		categories.DELETE("/:id", categoryHandler.DeleteCategory)
		categories.GET("/:id/tasks", categoryHandler.ListCategoryTasks)
	}

	analytics := protected.Group("/analytics")
	{
		analytics.GET("/overview", analyticsHandler.Overview)
		analytics.GET("/completion-rates", analyticsHandler.CompletionRates)
		analytics.GET("/overdue-tasks", analyticsHandler.OverdueTasks)
		analytics.GET("/productivity", analyticsHandler.Productivity)
		analytics.GET("/categories", analyticsHandler.Categories)
	}

	return router
}
