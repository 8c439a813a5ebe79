package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"tasktrack/backend/internal/cache"
	"tasktrack/backend/internal/config"
	"tasktrack/backend/internal/database"
	"tasktrack/backend/internal/handlers"
	"tasktrack/backend/internal/identity"
	"tasktrack/backend/internal/middleware"
	"tasktrack/backend/internal/monitoring"
	"tasktrack/backend/internal/scheduler"
	"tasktrack/backend/internal/services"
	"tasktrack/backend/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelDebug
	if cfg.IsProduction() {
		logLevel = slog.LevelInfo
		gin.SetMode(gin.ReleaseMode)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	pool, err := database.NewDatabasePool(database.PoolConfigFromApp(cfg))
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.GetRedisAddr())
	if err := redisCache.Health(); err != nil {
		// Cache is an accelerator, not a dependency; services fall through
		// to the database when redis is unreachable.
		slog.Warn("redis unavailable, continuing without warm cache", "error", err)
	}
	defer redisCache.Close()

	provider := identity.NewClient(cfg.Identity)
	verifier := identity.NewJWTVerifier(cfg.Identity.JWTSecret)

	taskService := services.NewCachedTaskService(services.NewTaskService(), redisCache)
	categoryService := services.NewCachedCategoryService(services.NewCategoryService(), redisCache)
	profileService := services.NewProfileService()
	analyticsService := services.NewCachedAnalyticsService(services.NewAnalyticsService(), redisCache)

	monitoring.RegisterHealthCheck("database", func(ctx context.Context) error {
		return pool.Health()
	})
	monitoring.RegisterHealthCheck("redis", func(ctx context.Context) error {
		return redisCache.Health()
	})

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimit)
		defer rateLimiter.Stop()
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		DB:              pool.DB,
		Cache:           redisCache,
		Provider:        provider,
		Verifier:        verifier,
		RateLimiter:     rateLimiter,
		TaskService:     taskService,
		CategoryService: categoryService,
		ProfileService:  profileService,
		Analytics:       analyticsService,
	})

	jobWorker := worker.NewWorker(redisCache.Client())
	scheduler.RegisterJobHandlers(jobWorker, pool.DB, analyticsService)

	if cfg.Scheduler.Enabled {
		jobWorker.Start(2)
		defer jobWorker.Stop()

		sched := scheduler.New(pool.DB, cfg.Scheduler, profileService, worker.NewQueue(redisCache.Client()))
		if err := sched.Start(); err != nil {
			slog.Error("scheduler start failed", "error", err)
			os.Exit(1)
		}
		defer sched.Stop()
	}

	server := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("server listening", "addr", server.Addr, "environment", cfg.Server.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
}
