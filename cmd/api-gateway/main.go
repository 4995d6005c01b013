package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"reflect"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-engine/api/swagger"
	"github.com/noah-isme/timetable-engine/internal/handler"
	internalmiddleware "github.com/noah-isme/timetable-engine/internal/middleware"
	"github.com/noah-isme/timetable-engine/internal/repository"
	"github.com/noah-isme/timetable-engine/internal/service"
	"github.com/noah-isme/timetable-engine/pkg/cache"
	"github.com/noah-isme/timetable-engine/pkg/config"
	"github.com/noah-isme/timetable-engine/pkg/database"
	"github.com/noah-isme/timetable-engine/pkg/jobs"
	"github.com/noah-isme/timetable-engine/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-engine/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-engine/pkg/middleware/requestid"
)

// @title Timetable Engine API
// @version 1.0.0
// @description Timetable generation, conflict detection and versioned persistence.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, audit cache disabled", zap.Error(err))
	}
	cacheRepo := repository.NewCacheRepository(redisClient, "timetable", logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Scheduler.CacheTTL, logr, redisClient != nil)
	tokenVerifier := service.NewTokenVerifier(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	timetableSvc := service.NewTimetableService(
		repository.NewTimetableRepository(db),
		repository.NewTimetableSlotRepository(db),
		db,
		cacheSvc,
		metricsSvc,
		newValidator(),
		logr,
		service.TimetableServiceConfig{
			MaxBacktrackSteps: cfg.Scheduler.MaxBacktrackSteps,
			TimeBudget:        cfg.Scheduler.TimeBudget,
			MaxTimeBudget:     cfg.Scheduler.MaxTimeBudget,
			SlotMinutes:       cfg.Scheduler.SlotMinutes,
			LoadSpread:        cfg.Scheduler.LoadSpread,
			ProposalTTL:       cfg.Scheduler.ProposalTTL,
			CacheTTL:          cfg.Scheduler.CacheTTL,
			BatchConcurrency:  cfg.Scheduler.BatchConcurrency,
			RunRetention:      cfg.Scheduler.RunRetention,
			ExportsEnabled:    cfg.Exports.Enabled,
			PDFTitle:          cfg.Exports.PDFTitle,
		},
	)

	var runQueue *jobs.Queue
	if cfg.Scheduler.Enabled {
		runQueue = jobs.NewQueue("timetable-runs", timetableSvc.HandleRun, jobs.QueueConfig{
			Workers:    cfg.Scheduler.Workers,
			BufferSize: cfg.Scheduler.QueueSize,
			MaxRetries: 2,
			Logger:     logr,
			OnDrop:     timetableSvc.DropRun,
		})
		runQueue.Start(ctx)
		timetableSvc.UseQueue(runQueue)
	}

	dependencies := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		dependencies["redis"] = handler.PingFunc(cacheRepo.Ping)
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, dependencies)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	planners := internalmiddleware.RBAC(internalmiddleware.PlannerRoles()...)
	readers := internalmiddleware.RBAC()

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(tokenVerifier))
	timetables := api.Group("/timetables")
	timetables.POST("/generate", planners, timetableHandler.Generate)
	timetables.POST("/generate/batch", planners, timetableHandler.GenerateBatch)
	timetables.POST("/audit", readers, timetableHandler.Audit)
	timetables.POST("/runs", planners, timetableHandler.SubmitRun)
	timetables.GET("/runs/:id", readers, timetableHandler.RunStatus)
	timetables.POST("", planners, timetableHandler.Save)
	timetables.GET("", readers, timetableHandler.List)
	timetables.GET("/:id", readers, timetableHandler.Get)
	timetables.DELETE("/:id", planners, timetableHandler.Delete)
	timetables.POST("/:id/publish", planners, timetableHandler.Publish)
	timetables.POST("/:id/audit", readers, timetableHandler.AuditStored)
	timetables.GET("/:id/export", readers, timetableHandler.Export)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http server shutdown failed", zap.Error(err))
	}
	if runQueue != nil {
		runQueue.Stop()
	}
	logr.Info("shutdown complete")
}

// newValidator reports request fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
