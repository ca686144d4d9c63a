package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/study-planner-api/api/swagger"
	"github.com/noah-isme/study-planner-api/internal/handler"
	internalmiddleware "github.com/noah-isme/study-planner-api/internal/middleware"
	"github.com/noah-isme/study-planner-api/internal/models"
	"github.com/noah-isme/study-planner-api/internal/repository"
	"github.com/noah-isme/study-planner-api/internal/service"
	"github.com/noah-isme/study-planner-api/pkg/cache"
	"github.com/noah-isme/study-planner-api/pkg/config"
	"github.com/noah-isme/study-planner-api/pkg/database"
	"github.com/noah-isme/study-planner-api/pkg/export"
	"github.com/noah-isme/study-planner-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/study-planner-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/study-planner-api/pkg/middleware/requestid"
)

// @title Study Planner API
// @version 0.1.0
// @description Deadline-aware study schedule generation
// @BasePath /
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Planner.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, schedule cache disabled", zap.Error(err))
		}
	}

	location, err := time.LoadLocation(cfg.Planner.Timezone)
	if err != nil {
		logr.Warn("unknown planner timezone, using UTC", zap.String("timezone", cfg.Planner.Timezone), zap.Error(err))
		location = time.UTC
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Planner.CacheTTL, logr, cfg.Planner.CacheEnabled && redisClient != nil)

	var proposer service.ScheduleProposer
	if cfg.Proposer.Enabled {
		proposer = service.NewHTTPScheduleProposer(service.HTTPProposerConfig{
			URL:     cfg.Proposer.URL,
			APIKey:  cfg.Proposer.APIKey,
			Timeout: cfg.Proposer.Timeout,
		}, nil)
	}

	scheduleSvc := service.NewStudyScheduleService(
		repository.NewDeadlineRepository(db),
		repository.NewTimetableRepository(db),
		repository.NewStudyPreferenceRepository(db),
		repository.NewStudySessionRepository(db),
		cacheSvc,
		db,
		proposer,
		metrics,
		validate,
		logr,
		service.StudyScheduleConfig{
			HorizonWeeks:        cfg.Planner.HorizonWeeks,
			MaxHorizonWeeks:     cfg.Planner.MaxHorizonWeeks,
			MinSessionMinutes:   cfg.Planner.MinSessionMinutes,
			MaxSessionMinutes:   cfg.Planner.MaxSessionMinutes,
			Location:            location,
			CacheTTL:            cfg.Planner.CacheTTL,
			ProposerEnabled:     cfg.Proposer.Enabled,
			ProposerModels:      cfg.Proposer.Models,
			ProposerTimeout:     cfg.Proposer.Timeout,
			ProposerMaxAttempts: cfg.Proposer.MaxAttempts,
		},
	)

	var exporter *service.ExportService
	if cfg.Exports.Enabled {
		exporter = service.NewExportService(scheduleSvc, service.ExportConfig{Title: cfg.Exports.Title}, logr,
			export.NewCSVExporter(true), nil)
	}

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	scheduleHandler := newScheduleHandler(scheduleSvc, exporter)
	metricsHandler := handler.NewMetricsHandler(metrics, checks, logr)
	tokens := service.NewTokenService(cfg.JWT.Secret)

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
	api.Use(internalmiddleware.JWT(tokens))
	{
		schedules := api.Group("/study-schedule")
		schedules.POST("/generate", scheduleHandler.Generate)
		schedules.POST("/validate", scheduleHandler.Validate)
		schedules.GET("", scheduleHandler.List)
		schedules.GET("/export", scheduleHandler.Export)

		api.GET("/metrics/summary", internalmiddleware.RequireRoles(models.RoleAdmin), metricsHandler.Summary)
	}

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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
		_ = srv.Close()
	}
}

// newScheduleHandler keeps a nil exporter a nil interface.
func newScheduleHandler(svc *service.StudyScheduleService, exporter *service.ExportService) *handler.StudyScheduleHandler {
	if exporter == nil {
		return handler.NewStudyScheduleHandler(svc, nil)
	}
	return handler.NewStudyScheduleHandler(svc, exporter)
}
