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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/faculty-timetable-api/api/swagger"
	"github.com/noah-isme/faculty-timetable-api/internal/dto"
	"github.com/noah-isme/faculty-timetable-api/internal/handler"
	"github.com/noah-isme/faculty-timetable-api/internal/middleware"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	"github.com/noah-isme/faculty-timetable-api/internal/repository"
	"github.com/noah-isme/faculty-timetable-api/internal/service"
	"github.com/noah-isme/faculty-timetable-api/pkg/cache"
	"github.com/noah-isme/faculty-timetable-api/pkg/config"
	"github.com/noah-isme/faculty-timetable-api/pkg/jobs"
	"github.com/noah-isme/faculty-timetable-api/pkg/logger"
	"github.com/noah-isme/faculty-timetable-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/faculty-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/faculty-timetable-api/pkg/middleware/requestid"
)

// @title Faculty Timetable API
// @version 1.0.0
// @description Timetable generation, conflict detection and substitute faculty management.
// @BasePath /api/v1
// @schemes http https
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(cfg)
	if err != nil {
		logr.Fatal("failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer st.close() //nolint:errcheck

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Timetable.CacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, timetable cache disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(client, logr)
			st.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		}
	}
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Timetable.CacheTTL, logr, cacheRepo.Enabled())

	sender, err := mailer.New(cfg.Mail, logr)
	if err != nil {
		logr.Fatal("failed to init mailer", zap.Error(err))
	}
	notifications := service.NewNotificationService(sender, service.NotificationConfig{
		PublicBaseURL: cfg.Substitute.PublicBaseURL,
		APIPrefix:     cfg.APIPrefix,
	}, metrics, logr)
	queue := jobs.NewQueue("notifications", notifications.Handle, jobs.QueueConfig{
		Workers:    cfg.Notify.Workers,
		MaxRetries: cfg.Notify.Retries,
		RetryDelay: cfg.Notify.RetryDelay,
		Logger:     logr,
		OnFailure:  notifications.OnFailure,
	})
	notifications.AttachQueue(queue)
	queue.Start(ctx)
	defer queue.Stop()

	validate := dto.NewValidator()
	conflicts := service.NewConflictService(st.timetable)
	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	facultySvc := service.NewFacultyService(st.faculty, validate, logr)
	batchSvc := service.NewBatchService(st.batches, validate, logr)
	courseSvc := service.NewCourseService(st.courses, validate, logr)
	assignmentSvc := service.NewCourseAssignmentService(st.assignments, st.faculty, st.courses, st.batches, cacheSvc, validate, logr)
	generatorSvc := service.NewTimetableGeneratorService(st.faculty, st.assignments, st.timetable, cacheSvc, metrics, validate, logr)
	timetableSvc := service.NewTimetableService(st.timetable, st.faculty, st.batches, st.courses, conflicts, cacheSvc, validate, logr)
	substituteSvc := service.NewSubstituteService(st.substitutes, st.timetable, st.faculty, st.assignments, conflicts, notifications, metrics, validate, logr, service.SubstituteConfig{
		RequestWindow: cfg.Substitute.RequestWindow,
		TokenTTL:      cfg.Substitute.TokenTTL,
		TokenSecret:   cfg.Substitute.TokenSecret,
		Location:      cfg.Location(),
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if metrics != nil {
		r.Use(middleware.Metrics(metrics, "/health", "/metrics", "/docs"))
	}

	metricsHandler := handler.NewMetricsHandler(metrics, st.checks)
	r.GET("/health", metricsHandler.Health)
	if metrics != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), authSvc, routeHandlers{
		faculty:    handler.NewFacultyHandler(facultySvc, assignmentSvc),
		batches:    handler.NewBatchHandler(batchSvc),
		courses:    handler.NewCourseHandler(courseSvc),
		timetable:  handler.NewTimetableHandler(generatorSvc, timetableSvc),
		substitute: handler.NewSubstituteHandler(substituteSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

type routeHandlers struct {
	faculty    *handler.FacultyHandler
	batches    *handler.BatchHandler
	courses    *handler.CourseHandler
	timetable  *handler.TimetableHandler
	substitute *handler.SubstituteHandler
}

func registerRoutes(api *gin.RouterGroup, auth middleware.TokenValidator, h routeHandlers) {
	admin := string(models.RoleAdmin)
	faculty := string(models.RoleFaculty)
	student := string(models.RoleStudent)
	self := middleware.SelfRole

	// email action links carry their own token
	api.GET("/substitute/process-token", h.substitute.ProcessToken)

	secured := api.Group("")
	secured.Use(middleware.JWT(auth))

	fac := secured.Group("/faculty")
	fac.GET("", middleware.RBAC(admin, faculty), h.faculty.List)
	fac.GET("/:id", middleware.RBAC(admin, faculty), h.faculty.Get)
	fac.POST("", middleware.RBAC(admin), h.faculty.Create)
	fac.PUT("/:id", middleware.RBAC(admin, self), h.faculty.Update)
	fac.GET("/:id/assignments", middleware.RBAC(admin, self), h.faculty.ListAssignments)
	fac.POST("/:id/assignments", middleware.RBAC(admin), h.faculty.CreateAssignment)
	fac.DELETE("/:id/assignments/:assignmentId", middleware.RBAC(admin), h.faculty.DeleteAssignment)

	batches := secured.Group("/batches")
	batches.GET("", middleware.RBAC(admin, faculty), h.batches.List)
	batches.GET("/:id", middleware.RBAC(admin, faculty), h.batches.Get)
	batches.POST("", middleware.RBAC(admin), h.batches.Create)

	courses := secured.Group("/courses")
	courses.GET("", middleware.RBAC(admin, faculty), h.courses.List)
	courses.GET("/:id", middleware.RBAC(admin, faculty), h.courses.Get)
	courses.POST("", middleware.RBAC(admin), h.courses.Create)
	courses.POST("/import", middleware.RBAC(admin), h.courses.Import)

	tt := secured.Group("/timetable")
	tt.GET("/periods", h.timetable.Periods)
	tt.POST("/generate", middleware.RBAC(admin), h.timetable.Generate)
	tt.GET("/faculty/:id", middleware.RBAC(admin, faculty), h.timetable.FacultyTimetable)
	tt.GET("/faculty/:id/export", middleware.RBAC(admin, faculty), h.timetable.Export)
	tt.GET("/batch/:id", middleware.RBAC(admin, faculty, student), h.timetable.BatchTimetable)
	tt.GET("/batch/:id/validate", middleware.RBAC(admin), h.timetable.ValidateBatch)
	tt.POST("/check-slot", middleware.RBAC(admin), h.timetable.CheckSlot)
	tt.POST("/entries", middleware.RBAC(admin), h.timetable.CreateEntry)
	tt.PUT("/entries/:id", middleware.RBAC(admin), h.timetable.UpdateEntry)
	tt.DELETE("/entries/:id", middleware.RBAC(admin), h.timetable.DeleteEntry)

	sub := secured.Group("/substitute")
	sub.POST("/filter-faculty", middleware.RBAC(faculty), h.substitute.FilterFaculty)
	sub.POST("/request", middleware.RBAC(faculty), h.substitute.CreateRequest)
	sub.GET("/request/:id", middleware.RBAC(admin, faculty), h.substitute.Get)
	sub.PUT("/request/:id/status", middleware.RBAC(faculty), h.substitute.UpdateStatus)
	sub.GET("/requests/requester/:id", middleware.RBAC(admin, self), h.substitute.ListByRequester)
	sub.GET("/requests/substitute/:id", middleware.RBAC(admin, self), h.substitute.ListBySubstitute)
	sub.GET("/requests/substitute/:id/pending", middleware.RBAC(admin, self), h.substitute.ListPendingBySubstitute)
}
