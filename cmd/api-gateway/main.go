package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/studyflow/studyflow-api/api/swagger"
	"github.com/studyflow/studyflow-api/internal/handler"
	"github.com/studyflow/studyflow-api/internal/middleware"
	"github.com/studyflow/studyflow-api/internal/repository"
	"github.com/studyflow/studyflow-api/internal/service"
	"github.com/studyflow/studyflow-api/pkg/cache"
	"github.com/studyflow/studyflow-api/pkg/config"
	"github.com/studyflow/studyflow-api/pkg/database"
	"github.com/studyflow/studyflow-api/pkg/logger"
	corsmiddleware "github.com/studyflow/studyflow-api/pkg/middleware/cors"
	reqidmiddleware "github.com/studyflow/studyflow-api/pkg/middleware/requestid"
)

// @title StudyFlow API
// @version 1.0.0
// @description Study workload planner: availability, tasks and automatic session scheduling
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// Redis is optional; locking and the week cache degrade gracefully
	// without it.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching and run locks disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	taskSvc := service.NewTaskService(taskRepo, courseRepo, sessionRepo, validate, logr)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, validate, logr)
	sessionSvc := service.NewSessionService(sessionRepo, taskRepo, cacheRepo, validate, logr)
	scheduleSvc := service.NewScheduleService(
		taskRepo, sessionRepo, availabilityRepo, userRepo,
		cacheRepo, metricsSvc, validate, logr,
		cfg.Scheduler, cfg.Cache.WeekTTL,
	)
	exportSvc := service.NewExportService(sessionRepo, taskRepo, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	taskHandler := handler.NewTaskHandler(taskSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc, exportSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
		}

		protected := api.Group("")
		protected.Use(middleware.JWT(authSvc))
		{
			protected.POST("/auth/logout", authHandler.Logout)
			protected.GET("/me", authHandler.Profile)
			protected.PATCH("/me", authHandler.UpdateProfile)

			courses := protected.Group("/courses")
			{
				courses.GET("", courseHandler.List)
				courses.POST("", courseHandler.Create)
				courses.GET("/:id", courseHandler.Get)
				courses.PATCH("/:id", courseHandler.Update)
				courses.DELETE("/:id", courseHandler.Delete)
			}

			tasks := protected.Group("/tasks")
			{
				tasks.GET("", taskHandler.List)
				tasks.POST("", taskHandler.Create)
				tasks.GET("/:id", taskHandler.Get)
				tasks.PATCH("/:id", taskHandler.Update)
				tasks.DELETE("/:id", taskHandler.Delete)
				tasks.POST("/:id/complete", taskHandler.Complete)
			}

			availability := protected.Group("/availability")
			{
				availability.GET("/rules", availabilityHandler.ListRules)
				availability.POST("/rules", availabilityHandler.CreateRule)
				availability.PATCH("/rules/:id", availabilityHandler.UpdateRule)
				availability.DELETE("/rules/:id", availabilityHandler.DeleteRule)
				availability.GET("/exceptions", availabilityHandler.ListExceptions)
				availability.POST("/exceptions", availabilityHandler.CreateException)
				availability.DELETE("/exceptions/:id", availabilityHandler.DeleteException)
			}

			schedule := protected.Group("/schedule")
			{
				schedule.POST("/generate", scheduleHandler.Generate)
				schedule.POST("/replan", scheduleHandler.Replan)
				schedule.GET("/week", scheduleHandler.Week)
				schedule.GET("/export", scheduleHandler.Export)
			}

			sessions := protected.Group("/sessions")
			{
				sessions.GET("", sessionHandler.List)
				sessions.POST("/:id/start", sessionHandler.Start)
				sessions.POST("/:id/complete", sessionHandler.Complete)
				sessions.POST("/:id/skip", sessionHandler.Skip)
			}
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}

	if err := cacheRepo.Close(); err != nil {
		logr.Sugar().Warnw("failed to close redis", "error", err)
	}
}
