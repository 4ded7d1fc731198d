package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/gradewise/gradewise-api/api/swagger"
	"github.com/gradewise/gradewise-api/internal/handler"
	"github.com/gradewise/gradewise-api/internal/middleware"
	"github.com/gradewise/gradewise-api/internal/models"
	"github.com/gradewise/gradewise-api/internal/repository"
	"github.com/gradewise/gradewise-api/internal/service"
	"github.com/gradewise/gradewise-api/pkg/cache"
	"github.com/gradewise/gradewise-api/pkg/config"
	"github.com/gradewise/gradewise-api/pkg/database"
	"github.com/gradewise/gradewise-api/pkg/logger"
	corsmiddleware "github.com/gradewise/gradewise-api/pkg/middleware/cors"
	reqidmiddleware "github.com/gradewise/gradewise-api/pkg/middleware/requestid"

	"github.com/go-playground/validator/v10"
)

// @title GradeWise API
// @version 1.0.0
// @description Daily rating, attendance and recap backend for SMKN 3 Soppeng
// @BasePath /api/v1
// @schemes http

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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The leaderboard cache is optional; degrade to uncached reads.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	studentRepo := repository.NewStudentRepository(db)
	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	pointRepo := repository.NewPointRecordRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Leaderboard.CacheTTL, logr, cfg.Leaderboard.CacheEnabled && redisClient != nil)
	settingsSvc := service.NewSettingsService(settingsRepo, validate, logr)
	categorySvc := service.NewCategoryService(categoryRepo, ratingRepo, validate, logr)
	ratingSvc := service.NewRatingService(ratingRepo, attendanceRepo, categoryRepo, settingsRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, settingsRepo, ratingSvc, metricsSvc, validate, logr)
	recapSvc := service.NewRecapService(studentRepo, ratingRepo, attendanceRepo, pointRepo, categoryRepo, cacheSvc, cfg.Leaderboard.CacheTTL, logr)
	pointSvc := service.NewPointService(pointRepo, recapSvc, validate, logr)
	positionSvc := service.NewPositionService(positionRepo, studentRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	authSvc := service.NewAuthService(userRepo, studentRepo, cfg.JWT.Secret, cfg.JWT.Expiration, validate, logr)
	analysisSvc := service.NewAnalysisService(recapSvc, cfg.Analysis, logr)

	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := settingsSvc.Seed(seedCtx, seedSettings(cfg)); err != nil {
		logr.Sugar().Fatalw("failed to seed settings", "error", err)
	}
	if err := categorySvc.SeedAttendanceCategory(seedCtx); err != nil {
		logr.Sugar().Fatalw("failed to seed attendance category", "error", err)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	categoryHandler := handler.NewCategoryHandler(categorySvc)
	ratingHandler := handler.NewRatingHandler(ratingSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	pointHandler := handler.NewPointHandler(pointSvc)
	recapHandler := handler.NewRecapHandler(recapSvc)
	positionHandler := handler.NewPositionHandler(positionSvc)
	settingsHandler := handler.NewSettingsHandler(settingsSvc)
	userHandler := handler.NewUserHandler(userSvc)
	analysisHandler := handler.NewAnalysisHandler(analysisSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/teacher/login", authHandler.LoginTeacher)
	api.POST("/auth/student/login", authHandler.LoginStudent)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	teacher := authed.Group("")
	teacher.Use(middleware.RequireRoles(models.RoleTeacher))
	{
		teacher.GET("/students", studentHandler.List)
		teacher.POST("/students", studentHandler.Create)
		teacher.PUT("/students/:id", studentHandler.Update)
		teacher.DELETE("/students/:id", studentHandler.Delete)
		teacher.POST("/students/:id/reset-device", studentHandler.ResetDevice)

		teacher.POST("/categories", categoryHandler.Create)
		teacher.PUT("/categories/:id", categoryHandler.Rename)
		teacher.DELETE("/categories/:id", categoryHandler.Delete)

		teacher.POST("/ratings", ratingHandler.Save)

		teacher.PUT("/attendance/override", attendanceHandler.Override)
		teacher.POST("/attendance/bulk", attendanceHandler.BulkMark)

		teacher.POST("/points", pointHandler.Create)
		teacher.DELETE("/points/:id", pointHandler.Delete)

		teacher.POST("/positions", positionHandler.Create)
		teacher.PUT("/positions/:id", positionHandler.Rename)
		teacher.DELETE("/positions/:id", positionHandler.Delete)

		teacher.PUT("/settings", settingsHandler.Update)

		teacher.GET("/users", userHandler.List)
		teacher.POST("/users", userHandler.Create)
		teacher.PUT("/users/:id", userHandler.Update)
		teacher.DELETE("/users/:id", userHandler.Delete)

		teacher.GET("/recap/export/csv", recapHandler.ExportCSV)
		teacher.GET("/recap/export/pdf", recapHandler.ExportPDF)
		teacher.POST("/students/:id/analysis", analysisHandler.Analyze)

		teacher.GET("/admin/metrics", metricsHandler.Snapshot)
	}

	// Shared reads. Handlers scope students down to their own records.
	authed.GET("/students/:id", middleware.RequireTeacherOrSelf("id"), studentHandler.Get)
	authed.GET("/categories", categoryHandler.List)
	authed.GET("/ratings", ratingHandler.List)
	authed.GET("/ratings/:studentId/:date", middleware.RequireTeacherOrSelf("studentId"), ratingHandler.Get)
	authed.GET("/attendance", attendanceHandler.List)
	authed.GET("/points", pointHandler.List)
	authed.GET("/positions", positionHandler.List)
	authed.GET("/settings", settingsHandler.Get)
	authed.GET("/recap", recapHandler.Recap)
	authed.GET("/leaderboard", recapHandler.Leaderboard)

	student := authed.Group("")
	student.Use(middleware.RequireRoles(models.RoleStudent))
	{
		student.POST("/attendance/check-in", attendanceHandler.CheckIn)
		student.POST("/attendance/check-out", attendanceHandler.CheckOut)
		student.POST("/attendance/report", attendanceHandler.ReportAbsence)
		student.GET("/attendance/today", attendanceHandler.Today)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func seedSettings(cfg *config.Config) *models.Settings {
	return &models.Settings{
		ID:            1,
		SchoolName:    cfg.School.Name,
		SchoolLogoURL: cfg.School.LogoURL,
		Latitude:      cfg.School.Latitude,
		Longitude:     cfg.School.Longitude,
		CheckInRadius: cfg.School.CheckInRadius,
		LateTime:      cfg.School.LateTime,
		CheckOutTime:  cfg.School.CheckOutTime,
	}
}
