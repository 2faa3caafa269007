package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/rumbimoyo/academy-api/api/swagger"
	"github.com/rumbimoyo/academy-api/internal/handler"
	"github.com/rumbimoyo/academy-api/internal/middleware"
	"github.com/rumbimoyo/academy-api/internal/models"
	"github.com/rumbimoyo/academy-api/internal/repository"
	"github.com/rumbimoyo/academy-api/internal/service"
	"github.com/rumbimoyo/academy-api/pkg/cache"
	"github.com/rumbimoyo/academy-api/pkg/config"
	"github.com/rumbimoyo/academy-api/pkg/database"
	"github.com/rumbimoyo/academy-api/pkg/jobs"
	"github.com/rumbimoyo/academy-api/pkg/logger"
	corsmiddleware "github.com/rumbimoyo/academy-api/pkg/middleware/cors"
	reqidmiddleware "github.com/rumbimoyo/academy-api/pkg/middleware/requestid"
	"github.com/rumbimoyo/academy-api/pkg/storage"
)

// @title Academy API
// @version 1.0.0
// @description Multi-tenant academy management backend
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.Enabled)
	}

	profileRepo := repository.NewProfileRepository(db)
	programRepo := repository.NewProgramRepository(db)
	cohortRepo := repository.NewCohortRepository(db)
	cohortLecturerRepo := repository.NewCohortLecturerRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	exportRepo := repository.NewExportRepository(db)

	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, profileRepo, programRepo, nil, logr)
	rosterSvc := service.NewRosterService(enrollmentRepo, cohortRepo, profileRepo, cohortLecturerRepo, cfg.Cohorts, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, enrollmentRepo, nil, logr)
	programSvc := service.NewProgramService(programRepo, cohortRepo, nil, logr)
	cohortSvc := service.NewCohortService(cohortRepo, programRepo, enrollmentRepo, cohortLecturerRepo, nil, logr)
	profileSvc := service.NewProfileService(profileRepo, nil, logr)
	announcementSvc := service.NewAnnouncementService(announcementRepo, cohortRepo, nil, logr)
	dashboardSvc := service.NewDashboardService(enrollmentRepo, paymentRepo, programRepo, cohortRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)
	authSvc := service.NewAuthService(profileRepo, enrollmentSvc, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "academy-api",
	})

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Fatal("failed to init export storage", zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

		var worker *service.ExportWorker
		exportQueue := jobs.NewQueue("exports", func(ctx context.Context, job jobs.Job) error {
			return worker.Handle(ctx, job)
		}, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportSvc = service.NewExportService(exportRepo, paymentRepo, cohortRepo, enrollmentRepo, exportQueue, store, signer, service.ExportConfig{
			APIPrefix:  cfg.APIPrefix,
			ResultTTL:  cfg.Exports.SignedURLTTL,
			MaxRetries: cfg.Exports.WorkerRetries,
		}, logr, nil, nil)
		worker = service.NewExportWorker(exportRepo, exportSvc, cfg.Exports.WorkerRetries, logr)

		exportQueue.Start(ctx)
		defer exportQueue.Stop()
		exportSvc.RecoverPendingJobs(ctx)
		exportSvc.StartCleanup(ctx)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	profileHandler := handler.NewProfileHandler(profileSvc)
	programHandler := handler.NewProgramHandler(programSvc)
	cohortHandler := handler.NewCohortHandler(cohortSvc)
	rosterHandler := handler.NewRosterHandler(rosterSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	announcementHandler := handler.NewAnnouncementHandler(announcementSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
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
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	admin := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin, models.RoleLecturer)

	profiles := api.Group("/profiles", middleware.JWT(authSvc))
	{
		profiles.GET("", admin, profileHandler.List)
		profiles.GET("/:id", middleware.RBAC("ADMIN", "SUPER_ADMIN", "SELF"), profileHandler.Get)
		profiles.PUT("/:id", middleware.RBAC("ADMIN", "SUPER_ADMIN", "SELF"), profileHandler.Update)
		profiles.PUT("/:id/approve", admin, profileHandler.Approve)
		profiles.PUT("/:id/deactivate", admin, profileHandler.Deactivate)
		profiles.PUT("/:id/reactivate", admin, profileHandler.Reactivate)
	}

	programs := api.Group("/programs")
	{
		programs.GET("", programHandler.List)
		programs.GET("/:id", programHandler.Get)
		programs.POST("", middleware.JWT(authSvc), admin, programHandler.Create)
		programs.PUT("/:id", middleware.JWT(authSvc), admin, programHandler.Update)
		programs.DELETE("/:id", middleware.JWT(authSvc), admin, programHandler.Delete)
	}

	cohorts := api.Group("/cohorts", middleware.JWT(authSvc))
	{
		cohorts.GET("", staff, cohortHandler.List)
		cohorts.GET("/eligible-students", admin, rosterHandler.EligibleStudents)
		cohorts.GET("/:id", staff, cohortHandler.Get)
		cohorts.POST("", admin, cohortHandler.Create)
		cohorts.PUT("/:id", admin, cohortHandler.Update)
		cohorts.DELETE("/:id", admin, middleware.Audit(profileRepo, "COHORT_DELETE", "cohorts"), cohortHandler.Delete)

		cohorts.GET("/:id/roster", staff, rosterHandler.Roster)
		cohorts.POST("/:id/students", admin, middleware.Audit(profileRepo, models.AuditActionRosterAdd, "roster"), rosterHandler.AddStudent)
		cohorts.DELETE("/:id/students/:enrollmentId", admin, middleware.Audit(profileRepo, models.AuditActionRosterRemove, "roster"), rosterHandler.RemoveStudent)
		cohorts.GET("/:id/eligible-lecturers", admin, rosterHandler.EligibleLecturers)
		cohorts.POST("/:id/lecturers", admin, middleware.Audit(profileRepo, models.AuditActionLecturerAssign, "roster"), rosterHandler.AssignLecturer)
		cohorts.DELETE("/:id/lecturers/:linkId", admin, middleware.Audit(profileRepo, models.AuditActionLecturerRemove, "roster"), rosterHandler.RemoveLecturer)
		cohorts.PUT("/:id/lecturers/toggle-lead", admin, middleware.Audit(profileRepo, models.AuditActionLeadToggle, "roster"), rosterHandler.ToggleLead)

		cohorts.GET("/:id/announcements", announcementHandler.ListByCohort)
	}

	enrollments := api.Group("/enrollments", middleware.JWT(authSvc))
	{
		enrollments.GET("", staff, enrollmentHandler.List)
		enrollments.GET("/:id", staff, enrollmentHandler.Get)
		enrollments.POST("", enrollmentHandler.Apply)
		enrollments.PUT("/:id/approve", admin, middleware.Audit(profileRepo, models.AuditActionEnrollmentApprove, "enrollments"), enrollmentHandler.Approve)
		enrollments.PUT("/:id/reject", admin, middleware.Audit(profileRepo, models.AuditActionEnrollmentReject, "enrollments"), enrollmentHandler.Reject)
		enrollments.PUT("/:id/suspend", admin, middleware.Audit(profileRepo, models.AuditActionEnrollmentSuspend, "enrollments"), enrollmentHandler.Suspend)
		enrollments.PUT("/:id/complete", admin, enrollmentHandler.Complete)
	}

	payments := api.Group("/payments", middleware.JWT(authSvc))
	{
		payments.GET("", paymentHandler.List)
		payments.POST("", paymentHandler.Submit)
		payments.PUT("/:id/confirm", admin, middleware.Audit(profileRepo, models.AuditActionPaymentConfirm, "payments"), paymentHandler.Confirm)
		payments.PUT("/:id/reject", admin, middleware.Audit(profileRepo, models.AuditActionPaymentReject, "payments"), paymentHandler.Reject)
		payments.PUT("/:id/refund", admin, paymentHandler.Refund)
	}

	announcements := api.Group("/announcements", middleware.JWT(authSvc))
	{
		announcements.POST("", staff, announcementHandler.Create)
		announcements.PUT("/:id", staff, announcementHandler.Update)
		announcements.DELETE("/:id", staff, announcementHandler.Delete)
	}

	if cfg.Dashboard.Enabled {
		api.GET("/dashboard/admin", middleware.JWT(authSvc), admin, dashboardHandler.Admin)
	}

	if exportSvc != nil {
		exportHandler := handler.NewExportHandler(exportSvc)
		exports := api.Group("/exports")
		{
			exports.GET("/download/:token", exportHandler.Download)
			exports.POST("", middleware.JWT(authSvc), staff, exportHandler.Create)
			exports.GET("/:id", middleware.JWT(authSvc), exportHandler.Status)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
