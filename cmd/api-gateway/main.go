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
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

// @title SMA Timetable API
// @version 1.0.0
// @description Generates fixed timetables and timetable plans from term lesson requirements.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	metrics := service.NewMetricsService()

	termRepo := repository.NewTermRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	ruleRepo := repository.NewWeekdayRuleRepository(db)
	calendarRepo := repository.NewCalendarDayRepository(db)
	requirementRepo := repository.NewRequiredLessonCountRepository(db)
	planRepo := repository.NewTimetablePlanRepository(db)
	fixedRepo := repository.NewFixedTimetableSlotRepository(db)
	planSlotRepo := repository.NewTimetablePlanSlotRepository(db)

	var (
		cacheRepo service.CacheRepository
		locker    service.GenerationLocker = service.NewLocalGenerationLocker()
	)
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient)
		locker = service.NewRedisGenerationLocker(repository.NewGenerationLockRepository(redisClient), cfg.Scheduler.LockTTL, uuid.NewString, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Coverage.CacheTTL, logr)

	coverageSvc := service.NewCoverageService(termRepo, requirementRepo, calendarRepo, fixedRepo, planRepo, planSlotRepo, cacheSvc, cfg.Coverage.CacheTTL, logr)
	generatorSvc := service.NewTimetableGeneratorService(
		termRepo,
		requirementRepo,
		ruleRepo,
		calendarRepo,
		fixedRepo,
		planRepo,
		planSlotRepo,
		db,
		locker,
		coverageSvc,
		metrics,
		nil,
		logr,
		service.TimetableGeneratorConfig{RandomSeed: cfg.Scheduler.RandomSeed},
	)
	exportSvc := service.NewExportService(termRepo, subjectRepo, fixedRepo, planRepo, planSlotRepo, nil, logr)

	jobSvc := service.NewGenerationJobService(generatorSvc, cfg.Scheduler.JobTTL, logr)
	queue := jobs.NewQueue("timetable-generation", jobSvc.Handle, jobs.QueueConfig{
		Workers:    cfg.Scheduler.Workers,
		BufferSize: cfg.Scheduler.QueueSize,
		MaxRetries: cfg.Scheduler.JobRetries,
		Logger:     logr,
		OnFailure:  jobSvc.HandleFailure,
	})
	queue.Start(ctx)
	defer queue.Stop()
	jobSvc.SetQueue(queue)

	tokenSvc := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)
	timetableHandler := handler.NewTimetableHandler(generatorSvc, jobSvc)
	coverageHandler := handler.NewCoverageHandler(coverageSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(tokenSvc))
	api.Use(internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	{
		terms := api.Group("/terms/:termId")
		terms.POST("/fixed-timetable/generate", timetableHandler.GenerateFixed)
		terms.GET("/fixed-timetable/coverage", coverageHandler.Fixed)
		terms.GET("/fixed-timetable/export", exportHandler.Fixed)
		terms.POST("/timetables/:planId/generate", timetableHandler.GeneratePlan)
		terms.POST("/timetables/:planId/reset", timetableHandler.ResetPlan)
		terms.GET("/timetables/:planId/coverage", coverageHandler.Plan)
		terms.GET("/timetables/:planId/export", exportHandler.Plan)

		api.GET("/generation-jobs/:jobId", timetableHandler.Job)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
